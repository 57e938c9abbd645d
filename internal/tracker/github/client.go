package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skors/reminder-engine/internal/domains"
	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/skors/reminder-engine/internal/tracker"
)

const (
	defaultGraphQLURL = "https://api.github.com/graphql"
	defaultAPIBaseURL = "https://api.github.com"
	defaultTimeout    = 30 * time.Second
)

type Config struct {
	Token      string
	Org        string
	GraphQLURL string
	APIBaseURL string
	Timeout    time.Duration
}

// Client implements the tracker page-fetch and comment-post contracts on top
// of the GitHub GraphQL and REST APIs.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = defaultGraphQLURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

const issuesQuery = `
query GetRepoIssues($owner: String!, $name: String!, $first: Int!, $cursor: String) {
  repository(owner: $owner, name: $name) {
    issues(first: $first, after: $cursor, states: OPEN, orderBy: {field: UPDATED_AT, direction: DESC}) {
      pageInfo {
        endCursor
        hasNextPage
      }
      nodes {
        title
        url
        number
        createdAt
        updatedAt
        author {
          login
        }
        assignees(first: 10) {
          nodes {
            login
          }
        }
      }
    }
  }
}`

const pullRequestsQuery = `
query GetRepoPRs($owner: String!, $name: String!, $first: Int!, $cursor: String) {
  repository(owner: $owner, name: $name) {
    pullRequests(first: $first, after: $cursor, states: OPEN, orderBy: {field: UPDATED_AT, direction: DESC}) {
      pageInfo {
        endCursor
        hasNextPage
      }
      nodes {
        title
        url
        number
        createdAt
        updatedAt
        isDraft
        author {
          login
        }
        reviewDecision
        reviewRequests(first: 10) {
          nodes {
            requestedReviewer {
              ... on User {
                login
              }
            }
          }
        }
      }
    }
  }
}`

type gqlActor struct {
	Login string `json:"login"`
}

type gqlPageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

type gqlItem struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Number         int       `json:"number"`
	CreatedAt      string    `json:"createdAt"`
	UpdatedAt      string    `json:"updatedAt"`
	IsDraft        bool      `json:"isDraft"`
	Author         *gqlActor `json:"author"`
	ReviewDecision string    `json:"reviewDecision"`
	Assignees      struct {
		Nodes []gqlActor `json:"nodes"`
	} `json:"assignees"`
	ReviewRequests struct {
		Nodes []struct {
			RequestedReviewer *gqlActor `json:"requestedReviewer"`
		} `json:"nodes"`
	} `json:"reviewRequests"`
}

type gqlConnection struct {
	PageInfo gqlPageInfo `json:"pageInfo"`
	Nodes    []*gqlItem  `json:"nodes"`
}

type gqlResponse struct {
	Data struct {
		Repository *struct {
			Issues       *gqlConnection `json:"issues"`
			PullRequests *gqlConnection `json:"pullRequests"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchPage requests one page of open issues or pull requests for a
// repository, ordered newest-updated-first, threading the opaque cursor.
func (c *Client) FetchPage(ctx context.Context, repo string, kind domains.ItemKind, cursor string, pageSize int) (tracker.Page, error) {
	query := issuesQuery
	if kind == domains.KindPullRequest {
		query = pullRequestsQuery
	}

	variables := map[string]any{
		"owner": c.cfg.Org,
		"name":  repo,
		"first": pageSize,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return tracker.Page{}, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GraphQLURL, bytes.NewReader(body))
	if err != nil {
		return tracker.Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return tracker.Page{}, fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tracker.Page{}, &backoff.StatusError{Code: resp.StatusCode, Msg: "graphql query"}
	}

	var decoded gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return tracker.Page{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return tracker.Page{}, fmt.Errorf("graphql error: %s", decoded.Errors[0].Message)
	}
	if decoded.Data.Repository == nil {
		return tracker.Page{}, fmt.Errorf("%s: %w", repo, tracker.ErrNotFound)
	}

	conn := decoded.Data.Repository.Issues
	if kind == domains.KindPullRequest {
		conn = decoded.Data.Repository.PullRequests
	}
	if conn == nil {
		return tracker.Page{}, nil
	}

	page := tracker.Page{
		NextCursor: conn.PageInfo.EndCursor,
		HasMore:    conn.PageInfo.HasNextPage,
	}
	for _, node := range conn.Nodes {
		if node == nil {
			continue
		}
		page.Items = append(page.Items, c.toItem(repo, kind, node))
	}
	return page, nil
}

func (c *Client) toItem(repo string, kind domains.ItemKind, node *gqlItem) domains.TrackedItem {
	item := domains.TrackedItem{
		Repository:  repo,
		Number:      node.Number,
		Title:       node.Title,
		URL:         node.URL,
		Kind:        kind,
		IsDraft:     node.IsDraft,
		ReviewState: domains.ReviewState(node.ReviewDecision),
	}
	if node.Author != nil {
		item.Author = node.Author.Login
	}
	for _, assignee := range node.Assignees.Nodes {
		if assignee.Login != "" {
			item.Assignees = append(item.Assignees, assignee.Login)
		}
	}
	for _, req := range node.ReviewRequests.Nodes {
		if req.RequestedReviewer != nil && req.RequestedReviewer.Login != "" {
			item.Reviewers = append(item.Reviewers, req.RequestedReviewer.Login)
		}
	}
	if created, err := time.Parse(time.RFC3339, node.CreatedAt); err == nil {
		item.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339, node.UpdatedAt); err == nil {
		item.UpdatedAt = updated
		item.UpdatedAtValid = true
	}
	return item
}

type commentResponse struct {
	HTMLURL string `json:"html_url"`
}

// PostComment creates a comment through the REST API. Pull requests share the
// issues comment endpoint.
func (c *Client) PostComment(ctx context.Context, repo string, number int, body string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.cfg.APIBaseURL, c.cfg.Org, repo, number)

	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return "", fmt.Errorf("marshal comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("comment request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var created commentResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("decode comment response: %w", err)
		}
		return created.HTMLURL, nil
	case http.StatusNotFound:
		return "", fmt.Errorf("%s#%d: %w", repo, number, tracker.ErrNotFound)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &backoff.StatusError{Code: resp.StatusCode, Msg: string(msg)}
	}
}
