package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
)

// HealthServer is the small HTTP surface the services runner exposes:
// /healthz for liveness (with a database ping) and /metrics for
// Prometheus.
type HealthServer struct {
	echo *echo.Echo
	db   *bun.DB
	cfg  *config.Config
	log  *slog.Logger
}

// NewHealthServer creates the health listener.
func NewHealthServer(db *bun.DB, cfg *config.Config, log *slog.Logger) *HealthServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered",
				logger.Error(err),
				slog.String("stack", string(stack)))
			return nil
		},
	}))

	h := &HealthServer{
		echo: e,
		db:   db,
		cfg:  cfg,
		log:  log.With(logger.Scope("health")),
	}

	e.GET("/healthz", h.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return h
}

func (h *HealthServer) healthz(c echo.Context) error {
	if err := h.db.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start begins serving in the background.
func (h *HealthServer) Start() {
	addr := fmt.Sprintf("%s:%d", h.cfg.HealthAddress, h.cfg.HealthPort)
	h.log.Info("health listener starting", slog.String("address", addr))

	go func() {
		if err := h.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			h.log.Error("health listener error", logger.Error(err))
		}
	}()
}

// Stop shuts the listener down within the drain window.
func (h *HealthServer) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, h.cfg.ShutdownTimeout)
	defer cancel()
	return h.echo.Shutdown(shutdownCtx)
}
