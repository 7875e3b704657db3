// Package upstream issues authenticated HTTP calls to the third-party
// services the proxy depends on. Responses are decoded defensively: a body
// that is not JSON comes back as {"raw": text} instead of an error, since
// upstream schema drift is expected.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/trendpulse/pulsed/utils"
)

// Error reports a non-2xx upstream status. The caller decides whether it is
// fatal or tolerable.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.Status, utils.Truncate(e.Body, 500))
}

var unauthorizedRe = regexp.MustCompile(`(?i)unauthorized`)

// IsUnauthorized reports whether err looks like an auth-scheme rejection:
// a 401, or an unauthorized-pattern body on any status.
func IsUnauthorized(err error) bool {
	ue, ok := err.(*Error)
	if !ok {
		return false
	}
	return ue.Status == http.StatusUnauthorized || unauthorizedRe.MatchString(ue.Body)
}

// Auth describes how a credential rides on the request. The zero value sends
// no credential. An empty Header means Authorization: Bearer.
type Auth struct {
	Token  string
	Header string
}

func Bearer(token string) Auth         { return Auth{Token: token} }
func APIKey(header, token string) Auth { return Auth{Token: token, Header: header} }

func (a Auth) apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	if a.Header == "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
		return
	}
	req.Header.Set(a.Header, a.Token)
}

// Caller is a thin authenticated JSON caller shared by the upstream clients.
type Caller struct {
	httpClient *http.Client
}

func NewCaller(timeout time.Duration) *Caller {
	return &Caller{httpClient: &http.Client{Timeout: timeout}}
}

// Do issues a GET when body is nil and a POST otherwise, attaching auth per
// the given scheme. The response body is read exactly once as text and then
// JSON-decoded; on decode failure the raw text is wrapped as {"raw": text}.
// Non-2xx statuses yield *Error with the body preserved.
func (c *Caller) Do(ctx context.Context, url string, body any, auth Auth) (any, error) {
	method := http.MethodGet
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		method = http.MethodPost
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	auth.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	requestsTotal.WithLabelValues(req.URL.Host, fmt.Sprint(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Body: string(text)}
	}

	var out any
	if err := json.Unmarshal(text, &out); err != nil {
		return map[string]any{"raw": string(text)}, nil
	}
	return out, nil
}
