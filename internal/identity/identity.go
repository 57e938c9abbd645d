// Package identity maps tracker usernames to chat-platform handles through
// the members API, caching the full mapping for a configured TTL.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/skors/reminder-engine/internal/lib/backoff"
)

// Identity is one recipient's chat-platform identity.
type Identity struct {
	Handle      string
	DisplayName string
}

// Resolver resolves a tracker username to a chat handle. The second return
// is false when no mapping exists.
type Resolver interface {
	Resolve(ctx context.Context, githubUser string) (Identity, bool)
}

type Config struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Client fetches the github-to-chat mapping and serves it from an in-memory
// cache. A failed refresh keeps serving the previous mapping; an empty cache
// simply resolves nobody, which downgrades deliveries to the fallback
// channel rather than failing the cycle.
type Client struct {
	log   *slog.Logger
	cfg   Config
	http  *http.Client
	retry backoff.Config
	now   func() time.Time

	mu        sync.Mutex
	cache     map[string]Identity
	fetchedAt time.Time
}

func New(log *slog.Logger, cfg Config, retry backoff.Config) *Client {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		log:   log,
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		retry: retry,
		now:   time.Now,
		cache: make(map[string]Identity),
	}
}

func (c *Client) Resolve(ctx context.Context, githubUser string) (Identity, bool) {
	mapping := c.mapping(ctx)
	id, ok := mapping[githubUser]
	return id, ok
}

// CacheInfo reports cache size and age for introspection.
type CacheInfo struct {
	Size       int           `json:"size"`
	Age        time.Duration `json:"age"`
	LastFetch  time.Time     `json:"last_fetch"`
	CacheValid bool          `json:"cache_valid"`
}

func (c *Client) CacheInfo() CacheInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := CacheInfo{Size: len(c.cache), LastFetch: c.fetchedAt}
	if !c.fetchedAt.IsZero() {
		info.Age = c.now().Sub(c.fetchedAt)
		info.CacheValid = info.Age < c.cfg.CacheTTL
	}
	return info
}

func (c *Client) mapping(ctx context.Context) map[string]Identity {
	const op = "identity.Client.mapping"

	c.mu.Lock()
	if c.now().Sub(c.fetchedAt) < c.cfg.CacheTTL && len(c.cache) > 0 {
		cached := c.cache
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	// The fetch happens outside the lock; a concurrent duplicate refresh is
	// harmless and cheaper than blocking every resolver on the network.
	fresh, err := backoff.Do(ctx, c.retry, c.fetch)
	if err != nil {
		c.log.Warn("member mapping refresh failed, serving cached data",
			slog.String("op", op),
			slog.String("err", err.Error()))

		c.mu.Lock()
		cached := c.cache
		c.mu.Unlock()
		return cached
	}

	c.mu.Lock()
	c.cache = fresh
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.log.Info("member mapping refreshed", slog.Int("mappings", len(fresh)))
	return fresh
}

type mappingResponse struct {
	Success bool `json:"success"`
	Mapping map[string]struct {
		ChatHandle string `json:"chat_handle"`
		Name       string `json:"name"`
	} `json:"mapping"`
	Error string `json:"error"`
}

func (c *Client) fetch(ctx context.Context) (map[string]Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/members/github-chat-mapping/", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Api-Key "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapping request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &backoff.StatusError{Code: resp.StatusCode, Msg: "mapping fetch"}
	}

	var decoded mappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("mapping API error: %s", decoded.Error)
	}

	mapping := make(map[string]Identity, len(decoded.Mapping))
	for githubUser, info := range decoded.Mapping {
		if info.ChatHandle == "" {
			continue
		}
		mapping[githubUser] = Identity{Handle: info.ChatHandle, DisplayName: info.Name}
	}
	return mapping, nil
}
