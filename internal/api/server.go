// Package api exposes the HTTP control surface for the crawler service:
// manual triggers, stop/resume, config updates, and status snapshots.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cinefeed/cinefeed/internal/config"
	"github.com/cinefeed/cinefeed/internal/crawl"
	"github.com/cinefeed/cinefeed/internal/metrics"
)

// Server wires HTTP handlers to the orchestrator registry.
type Server struct {
	router   chi.Router
	registry *crawl.Registry
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(registry *crawl.Registry, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/sources", s.listSources)
		r.Route("/sources/{name}", func(r chi.Router) {
			r.Get("/status", s.getStatus)
			r.Get("/config", s.getConfig)
			r.Put("/config", s.updateConfig)
			r.Post("/trigger", s.trigger)
			r.Post("/stop", s.stop)
			r.Post("/resume", s.resume)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sources": s.registry.Names()})
}

func (s *Server) orchestrator(w http.ResponseWriter, r *http.Request) *crawl.Orchestrator {
	name := chi.URLParam(r, "name")
	o := s.registry.Get(name)
	if o == nil {
		writeError(w, http.StatusNotFound, "unknown source")
		return nil
	}
	return o
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	o := s.orchestrator(w, r)
	if o == nil {
		return
	}
	writeJSON(w, http.StatusOK, o.Status())
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	o := s.orchestrator(w, r)
	if o == nil {
		return
	}
	writeJSON(w, http.StatusOK, o.Config().Settings())
}

type triggerRequest struct {
	Slug string `json:"slug"`
}

func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	o := s.orchestrator(w, r)
	if o == nil {
		return
	}
	var req triggerRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	// The crawl outlives the request; expected refusals are logged inside
	// Trigger with their context.
	go func() {
		err := o.Trigger(context.Background(), req.Slug)
		if err != nil && !errors.Is(err, crawl.ErrAlreadyRunning) &&
			!errors.Is(err, crawl.ErrCoolingDown) && !errors.Is(err, crawl.ErrSourceDisabled) {
			s.logger.Warn("triggered crawl failed",
				zap.String("source", o.Source()), zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"source": o.Source(), "status": "triggered"})
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	o := s.orchestrator(w, r)
	if o == nil {
		return
	}
	o.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"source": o.Source(), "status": "stopping"})
}

func (s *Server) resume(w http.ResponseWriter, r *http.Request) {
	o := s.orchestrator(w, r)
	if o == nil {
		return
	}
	go func() {
		if err := o.Resume(context.Background()); err != nil && !errors.Is(err, crawl.ErrAlreadyRunning) {
			s.logger.Warn("resumed crawl failed",
				zap.String("source", o.Source()), zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"source": o.Source(), "status": "resuming"})
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	o := s.orchestrator(w, r)
	if o == nil {
		return
	}
	var settings struct {
		Host               string `json:"host"`
		ImageHost          string `json:"image_host"`
		CronSchedule       string `json:"cron_schedule"`
		ForceUpdate        bool   `json:"force_update"`
		MaxRetries         int    `json:"max_retries"`
		RateLimitDelayMs   int    `json:"rate_limit_delay_ms"`
		MaxConcurrent      int    `json:"max_concurrent"`
		MaxContinuousSkips int    `json:"max_continuous_skips"`
		Enabled            bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	cfg := crawl.Config{
		SourceName:         o.Source(),
		Host:               settings.Host,
		ImageHost:          settings.ImageHost,
		CronSchedule:       settings.CronSchedule,
		ForceUpdate:        settings.ForceUpdate,
		MaxRetries:         settings.MaxRetries,
		RateLimitDelay:     time.Duration(settings.RateLimitDelayMs) * time.Millisecond,
		MaxConcurrent:      settings.MaxConcurrent,
		MaxContinuousSkips: settings.MaxContinuousSkips,
		Enabled:            settings.Enabled,
	}
	if err := o.UpdateConfig(r.Context(), cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg.Settings())
}
