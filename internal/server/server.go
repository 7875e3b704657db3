package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendpulse/pulsed/config"
	"github.com/trendpulse/pulsed/internal/cache"
	"github.com/trendpulse/pulsed/internal/predict"
	"github.com/trendpulse/pulsed/provider"
	"github.com/trendpulse/pulsed/upstream/flowise"
	"github.com/trendpulse/pulsed/upstream/membit"
)

// Run wires the proxy together and serves it. All shared dependencies are
// constructed here once and handed to the handlers by reference.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	store, err := cache.NewStore(cfg.Cache)
	if err != nil {
		return err
	}

	mb := membit.New(cfg.Membit)
	if !mb.Configured() {
		baseLogger.Printf("membit api key not configured; proxy endpoints will answer 500")
	}
	fw := flowise.New(cfg.Flowise)

	var llm provider.Provider
	if cfg.OpenAI.APIKey != "" {
		llm, err = provider.NewProvider(provider.OpenAI, cfg.OpenAI)
		if err != nil {
			return err
		}
	} else {
		baseLogger.Printf("openai api key not configured; predictions use the rule-based fallback")
	}

	api := e.Group("/api")

	ph := &ProxyHandler{Cache: store, Membit: mb}
	ph.Register(api)

	ch := &ChatHandler{Flowise: fw}
	ch.Register(api)

	rh := &PredictHandler{Engine: predict.NewEngine(mb, llm)}
	rh.Register(api)

	if addr == "" {
		addr = cfg.Server.Address
	}
	if cfg.Server.RequestTimeout > 0 {
		e.Server.ReadTimeout = cfg.Server.RequestTimeout
		e.Server.WriteTimeout = cfg.Server.RequestTimeout
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
