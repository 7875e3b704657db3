package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trendpulse/pulsed/internal/shape"
	"github.com/trendpulse/pulsed/upstream"
	"github.com/trendpulse/pulsed/upstream/flowise"
	"github.com/trendpulse/pulsed/utils"
)

// ChatHandler proxies the dashboard chat to the flowise backend and
// normalizes its wildly varying reply shapes into a single envelope.
type ChatHandler struct {
	Flowise *flowise.Client
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat-proxy", h.chat)
	g.GET("/chat-config", h.chatConfig)
}

func (h *ChatHandler) chatConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":            true,
		"urlConfigured": h.Flowise.URLConfigured(),
		"keyConfigured": h.Flowise.KeyConfigured(),
	})
}

func (h *ChatHandler) chat(c echo.Context) error {
	var body map[string]any
	if err := c.Bind(&body); err != nil || body == nil {
		body = map[string]any{}
	}
	question := firstString(body, "question", "input", "message", "query")
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}
	// the backend expects the prompt under "question"; everything else
	// (meta, overrideConfig, chatId) passes through untouched
	body["question"] = question

	raw, err := h.Flowise.Chat(c.Request().Context(), body)
	if err != nil {
		if errors.Is(err, flowise.ErrNotConfigured) {
			return echo.NewHTTPError(http.StatusInternalServerError, "FLOWISE_API_URL not configured")
		}
		var ue *upstream.Error
		if errors.As(err, &ue) {
			return echo.NewHTTPError(ue.Status, ue.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	resp := map[string]any{
		"ok":        true,
		"text":      replyText(raw),
		"raw":       raw,
		"followUps": followUps(raw),
	}
	if m, ok := raw.(map[string]any); ok {
		if id := firstString(m, "chatId", "sessionId"); id != "" {
			resp["chatId"] = id
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// replyText picks the human-readable reply out of a flowise response, which
// may be a bare string or an object keyed any of several ways.
func replyText(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return "(no reply)"
	}
	for _, k := range []string{"text", "answer"} {
		if v, ok := m[k]; ok && v != nil {
			return utils.Str(v)
		}
	}
	for _, k := range []string{"data", "output", "result"} {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		b, _ := json.Marshal(v)
		return string(b)
	}
	if v, ok := m["raw"]; ok && v != nil {
		return utils.Str(v)
	}
	return "(no reply)"
}

// followUps recovers follow-up prompt suggestions, which flowise returns
// under several keys and frequently double-JSON-encoded.
func followUps(raw any) []string {
	m, ok := raw.(map[string]any)
	if !ok {
		return []string{}
	}
	for _, k := range []string{"followUpPrompts", "follow_up_prompts", "followups", "followUps"} {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if out := shape.StringList(shape.Extract(v)); out != nil {
			return out
		}
	}
	return []string{}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := utils.Str(v); s != "" {
				return s
			}
		}
	}
	return ""
}
