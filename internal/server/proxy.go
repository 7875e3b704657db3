package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"

	"github.com/trendpulse/pulsed/internal/cache"
	"github.com/trendpulse/pulsed/upstream"
	"github.com/trendpulse/pulsed/upstream/membit"
)

// ProxyHandler fronts the analytics search endpoints with the query cache.
// Concurrent identical requests are collapsed so at most one upstream call
// is in flight per key.
type ProxyHandler struct {
	Cache  cache.Store
	Membit *membit.Client

	flight singleflight.Group
}

func (h *ProxyHandler) Register(g *echo.Group) {
	g.POST("/search-posts-proxy", h.searchPosts)
	g.POST("/search-clusters-proxy", h.searchClusters)
	g.GET("/clusters-with-posts", h.clustersWithPosts)
}

func (h *ProxyHandler) searchPosts(c echo.Context) error {
	return h.search(c, "search-posts", 25, "results", h.Membit.SearchPosts)
}

func (h *ProxyHandler) searchClusters(c echo.Context) error {
	return h.search(c, "search-clusters", 10, "clusters", h.Membit.SearchClusters)
}

func (h *ProxyHandler) search(c echo.Context, kind string, defLimit int, emptyKey string,
	call func(ctx context.Context, query string, limit int) (any, error)) error {

	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	// an empty or malformed body means default query and limit
	_ = c.Bind(&req)
	if req.Limit <= 0 {
		req.Limit = defLimit
	}
	key := cache.Key{Kind: kind, Query: req.Query, Limit: req.Limit}
	ctx := c.Request().Context()

	if payload, ok := h.Cache.Get(ctx, key); ok {
		return c.JSONBlob(http.StatusOK, payload)
	}

	v, err, _ := h.flight.Do(key.String(), func() (any, error) {
		if payload, ok := h.Cache.Get(ctx, key); ok {
			return payload, nil
		}
		out, err := call(ctx, req.Query, req.Limit)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = map[string]any{emptyKey: []any{}}
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		h.Cache.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return upstreamHTTPError(err)
	}
	return c.JSONBlob(http.StatusOK, v.([]byte))
}

func (h *ProxyHandler) clustersWithPosts(c echo.Context) error {
	q := c.QueryParam("q")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	enriched, err := h.Membit.ClustersWithPosts(c.Request().Context(), q, limit)
	if err != nil {
		return upstreamHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "clusters": enriched})
}

// upstreamHTTPError maps upstream failures onto the response: configuration
// errors are a 500, non-2xx upstream statuses are mirrored, anything else is
// a 502.
func upstreamHTTPError(err error) error {
	if errors.Is(err, membit.ErrNotConfigured) {
		return echo.NewHTTPError(http.StatusInternalServerError, "MEMBIT_API_KEY not configured")
	}
	var ue *upstream.Error
	if errors.As(err, &ue) {
		return echo.NewHTTPError(ue.Status, ue.Error())
	}
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}
