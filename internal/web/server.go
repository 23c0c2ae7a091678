package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/moham3d/sho-hl7/internal/audit"
	"github.com/moham3d/sho-hl7/internal/hl7"
	"github.com/moham3d/sho-hl7/internal/store"
)

// Server exposes the operational status API: liveness of the collaborators,
// ingest counters and the recent audit trail. It has no part in the HL7
// protocol itself.
type Server struct {
	echo     *echo.Echo
	port     int
	store    store.Store
	js       jetstream.JetStream
	recorder *audit.Recorder
	mllp     *hl7.Server
}

func NewServer(port int, st store.Store, js jetstream.JetStream, recorder *audit.Recorder, mllp *hl7.Server) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	return &Server{
		echo:     e,
		port:     port,
		store:    st,
		js:       js,
		recorder: recorder,
		mllp:     mllp,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("Status API starting", "port", s.port)

	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("Status API error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/audit", s.handleAudit)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	components := make(map[string]string)
	overallStatus := "healthy"

	if err := s.store.Ping(ctx); err != nil {
		components["database"] = "unhealthy: " + err.Error()
		overallStatus = "unhealthy"
	} else {
		components["database"] = "healthy"
	}

	if s.js != nil {
		if _, err := s.js.AccountInfo(ctx); err != nil {
			components["audit_store"] = "unhealthy: " + err.Error()
			overallStatus = "degraded"
		} else {
			components["audit_store"] = "healthy"
		}
	} else {
		components["audit_store"] = "unhealthy: not initialized"
		overallStatus = "degraded"
	}

	counters := s.mllp.Snapshot()
	components["mllp_server"] = fmt.Sprintf("healthy (messages: %d)", counters.Received)

	health := map[string]interface{}{
		"status":     overallStatus,
		"timestamp":  time.Now(),
		"components": components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, health)
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()

	persisted, err := s.recorder.Stats(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "stats store unavailable")
	}

	stats := map[string]interface{}{
		"process":   s.mllp.Snapshot(),
		"persisted": persisted,
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleAudit(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := s.recorder.Recent(ctx, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit store unavailable")
	}
	return c.JSON(http.StatusOK, entries)
}
