// Package flowise is the client for the chat backend. Deployments disagree
// on which auth header the endpoint honors, so the client speaks Bearer
// first and falls back once to the x-api-key scheme on a 401.
package flowise

import (
	"context"
	"errors"

	"github.com/trendpulse/pulsed/config"
	"github.com/trendpulse/pulsed/upstream"
)

// ErrNotConfigured is returned when no chat backend URL is set.
var ErrNotConfigured = errors.New("flowise url not configured")

const apiKeyHeader = "x-api-key"

type Client struct {
	caller *upstream.Caller
	url    string
	apiKey string
}

func New(cfg config.FlowiseConfig) *Client {
	return &Client{
		caller: upstream.NewCaller(cfg.Timeout),
		url:    cfg.URL,
		apiKey: cfg.APIKey,
	}
}

func (c *Client) URLConfigured() bool { return c.url != "" }
func (c *Client) KeyConfigured() bool { return c.apiKey != "" }

// Chat posts the payload to the chat backend. On an unauthorized response
// with a key configured, exactly one retry is made with the alternate header
// scheme; the second outcome is final. No backoff, no further retries.
func (c *Client) Chat(ctx context.Context, payload map[string]any) (any, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}
	if payload == nil {
		payload = map[string]any{}
	}

	out, err := c.caller.Do(ctx, c.url, payload, upstream.Bearer(c.apiKey))
	if err != nil && c.apiKey != "" && upstream.IsUnauthorized(err) {
		return c.caller.Do(ctx, c.url, payload, upstream.APIKey(apiKeyHeader, c.apiKey))
	}
	return out, err
}
