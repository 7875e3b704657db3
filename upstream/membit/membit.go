// Package membit is the client for the social-analytics search API.
package membit

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/trendpulse/pulsed/config"
	"github.com/trendpulse/pulsed/internal/shape"
	"github.com/trendpulse/pulsed/upstream"
	"github.com/trendpulse/pulsed/utils"
)

// ErrNotConfigured is returned when the analytics API key is absent. Handlers
// surface it as a per-request 500 rather than refusing to start the process.
var ErrNotConfigured = errors.New("membit api key not configured")

// apiKeyHeader is the key-header scheme used by the GET search endpoints.
const apiKeyHeader = "X-Membit-Api-Key"

type Client struct {
	caller  *upstream.Caller
	apiKey  string
	baseURL string
}

func New(cfg config.MembitConfig) *Client {
	return &Client{
		caller:  upstream.NewCaller(cfg.Timeout),
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
	}
}

func (c *Client) Configured() bool { return c.apiKey != "" }

// SearchPosts runs a post search. The decoded body keeps whatever shape the
// upstream returned; use shape.Records with shape.PostKeys to get the list.
func (c *Client) SearchPosts(ctx context.Context, query string, limit int) (any, error) {
	return c.search(ctx, "search-posts", query, limit)
}

// SearchClusters runs a cluster search; shape.ClusterKeys applies.
func (c *Client) SearchClusters(ctx context.Context, query string, limit int) (any, error) {
	return c.search(ctx, "search-clusters", query, limit)
}

func (c *Client) search(ctx context.Context, path, query string, limit int) (any, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	body := map[string]any{"query": query, "limit": limit}
	return c.caller.Do(ctx, c.baseURL+"/"+path, body, upstream.Bearer(c.apiKey))
}

// EnrichedCluster is a cluster joined with its top posts.
type EnrichedCluster struct {
	Label           string  `json:"label"`
	Summary         string  `json:"summary"`
	Category        any     `json:"category"`
	EngagementScore float64 `json:"engagement_score"`
	Posts           []any   `json:"posts"`
}

// ClustersWithPosts fetches trending clusters and joins up to three posts to
// each via the cluster_label filter. Per-cluster post failures degrade to an
// empty post list; a clusters-search failure fails the whole call.
func (c *Client) ClustersWithPosts(ctx context.Context, query string, limit int) ([]EnrichedCluster, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if query == "" {
		query = "trending"
	}
	if limit <= 0 || limit > 10 {
		limit = 10
	}

	raw, err := c.caller.Do(ctx, c.getURL("clusters/search", url.Values{
		"q":     {query},
		"limit": {fmt.Sprint(limit)},
	}), nil, upstream.APIKey(apiKeyHeader, c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("clusters search: %w", err)
	}

	clusters := shape.Records(raw, "clusters", "data")
	if len(clusters) > limit {
		clusters = clusters[:limit]
	}

	enriched := make([]EnrichedCluster, 0, len(clusters))
	for _, it := range clusters {
		cl, _ := it.(map[string]any)
		label := pick(cl, "label", "name")
		ec := EnrichedCluster{
			Label:           label,
			Summary:         pick(cl, "summary", "description"),
			Category:        firstSet(cl, "category", "tags"),
			EngagementScore: num(firstSet(cl, "engagement_score", "search_score")),
			Posts:           c.postsForLabel(ctx, label),
		}
		enriched = append(enriched, ec)
	}
	return enriched, nil
}

// postsForLabel tries a filtered post search first, then an unfiltered one
// with client-side filtering. Either failing leaves the cluster post-less.
func (c *Client) postsForLabel(ctx context.Context, label string) []any {
	auth := upstream.APIKey(apiKeyHeader, c.apiKey)
	raw, err := c.caller.Do(ctx, c.getURL("posts/search", url.Values{
		"cluster_label": {label},
		"limit":         {"3"},
	}), nil, auth)
	if err == nil {
		return shape.Records(raw, "posts", "data")
	}

	raw, err = c.caller.Do(ctx, c.getURL("posts/search", nil), nil, auth)
	if err != nil {
		return []any{}
	}
	all := shape.Records(raw, "posts", "data")
	out := make([]any, 0, 3)
	for _, p := range all {
		pm, _ := p.(map[string]any)
		if utils.Str(pm["cluster_label"]) == label {
			out = append(out, p)
			if len(out) == 3 {
				break
			}
		}
	}
	return out
}

func (c *Client) getURL(path string, params url.Values) string {
	u := c.baseURL + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func pick(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return utils.Str(v)
		}
	}
	return ""
}

func firstSet(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}
