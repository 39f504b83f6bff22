package graphiti

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vantagegraph/vantage/backend/internal/util"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// Client talks to a Graphiti-compatible graph service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a graph client for the service at baseURL.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns the process-wide graph client, constructing it lazily
// from GRAPHITI_URL and GRAPHITI_API_KEY on first use.
func Default() *Client {
	defaultOnce.Do(func() {
		url := util.GetEnvString("GRAPHITI_URL", "http://localhost:8000")
		defaultClient = NewClient(url, util.GetEnv("GRAPHITI_API_KEY"))
	})
	return defaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("graph request %s %s: status %d: %s", method, path, res.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// SearchOption tunes a graph search request.
type SearchOption func(*searchRequest)

// WithMaxFacts caps the number of facts returned.
func WithMaxFacts(n int) SearchOption {
	return func(r *searchRequest) {
		r.MaxFacts = n
	}
}

// WithGroupIDs restricts the search to the given graph partitions.
func WithGroupIDs(ids ...string) SearchOption {
	return func(r *searchRequest) {
		r.GroupIDs = ids
	}
}

// SemanticSearch runs a semantic search over the temporal graph and returns
// matching facts. A missing or empty result set is returned as an empty
// slice, never nil field access downstream.
func (c *Client) SemanticSearch(ctx context.Context, query string, opts ...SearchOption) ([]Fact, error) {
	req := searchRequest{Query: query, MaxFacts: 10}
	for _, o := range opts {
		o(&req)
	}

	var res searchResponse
	if err := c.do(ctx, http.MethodPost, "/search", req, &res); err != nil {
		return nil, err
	}
	if res.Facts == nil {
		return []Fact{}, nil
	}
	return res.Facts, nil
}

// NodeSearch searches entity nodes, optionally filtered by entity type
// labels (e.g. "Person", "Company").
func (c *Client) NodeSearch(ctx context.Context, query string, entityTypes []string, limit int) ([]Node, error) {
	req := nodeSearchRequest{Query: query, EntityTypes: entityTypes, Limit: limit}

	var res nodeSearchResponse
	if err := c.do(ctx, http.MethodPost, "/nodes/search", req, &res); err != nil {
		return nil, err
	}
	if res.Nodes == nil {
		return []Node{}, nil
	}
	return res.Nodes, nil
}

// AddEpisode submits one episode to the graph for entity and edge
// extraction. The call returns once the episode is queued; extraction is
// asynchronous on the graph side.
func (c *Client) AddEpisode(ctx context.Context, episode Episode) error {
	if episode.ReferenceTime.IsZero() {
		episode.ReferenceTime = time.Now().UTC()
	}
	logger.Debug("[Graph] Adding episode", "name", episode.Name, "source", episode.SourceDescription)
	return c.do(ctx, http.MethodPost, "/episodes", episode, nil)
}

// ClearAll wipes the entire graph. Irreversible.
func (c *Client) ClearAll(ctx context.Context) error {
	logger.Warn("[Graph] Clearing all graph data")
	return c.do(ctx, http.MethodPost, "/clear", nil, nil)
}

// Healthy reports whether the graph service answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	err := c.do(ctx, http.MethodGet, "/healthcheck", nil, nil)
	return err == nil
}
