package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trendpulse/pulsed/internal/predict"
)

// PredictHandler runs the viral-prediction flow.
type PredictHandler struct {
	Engine *predict.Engine
}

func (h *PredictHandler) Register(g *echo.Group) {
	g.POST("/predict", h.run)
}

func (h *PredictHandler) run(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
	}
	_ = c.Bind(&req)

	out, err := h.Engine.RunPrediction(c.Request().Context(), req.Query)
	if err != nil {
		// prediction failures keep the ok:false envelope the dashboard expects
		return c.JSON(http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
	}

	resp := map[string]any{
		"ok":       true,
		"data":     out.Data,
		"posts":    out.Posts,
		"clusters": out.Clusters,
	}
	if out.Raw != "" {
		resp["raw"] = out.Raw
	}
	return c.JSON(http.StatusOK, resp)
}
