// Package chat holds the delivery primitives of the chat platform, reached
// through a gateway service that fronts the actual messenger.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/skors/reminder-engine/internal/lib/backoff"
)

// Messenger delivers rendered messages. Both sends return the id of the
// outbound message so replies can be matched back to it.
type Messenger interface {
	SendDirect(ctx context.Context, handle, content string) (string, error)
	SendToChannel(ctx context.Context, channelID, content string) (string, error)
}

// Mention renders a notification token for a handle. Plain handle text does
// not notify; this does.
func Mention(handle string) string {
	return "<@" + handle + ">"
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Gateway is the HTTP client for the chat gateway. Message ids are assigned
// client-side so the id is known even when the response cannot be read.
type Gateway struct {
	cfg   Config
	http  *http.Client
	newID func() string
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Gateway{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		newID: func() string { return uuid.NewString() },
	}
}

func (g *Gateway) SendDirect(ctx context.Context, handle, content string) (string, error) {
	return g.send(ctx, "/messages/direct", map[string]string{
		"message_id": g.newID(),
		"handle":     handle,
		"content":    content,
	})
}

func (g *Gateway) SendToChannel(ctx context.Context, channelID, content string) (string, error) {
	return g.send(ctx, "/messages/channel", map[string]string{
		"message_id": g.newID(),
		"channel_id": channelID,
		"content":    content,
	})
}

func (g *Gateway) send(ctx context.Context, path string, payload map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &backoff.StatusError{Code: resp.StatusCode, Msg: "chat gateway send"}
	}
	return payload["message_id"], nil
}
