// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/coordinator"
	"github.com/kataniwayou/argus/internal/leader"
	"github.com/kataniwayou/argus/internal/monitor"
	"github.com/kataniwayou/argus/internal/noc"
	"github.com/kataniwayou/argus/internal/sources/k8slayer"
	"github.com/kataniwayou/argus/internal/sources/prompush"
	"github.com/kataniwayou/argus/internal/watchdog"
)

const shutdownTimeout = 5 * time.Second

// readinessStaleness is how long the central timer heartbeat may lag before
// the replica reports not ready.
const readinessStaleness = 5 * coordinator.TickInterval

// Server serves the alert ingress and the status reader endpoints.
type Server struct {
	address   string
	processor *prompush.Processor
	vector    *alerts.Vector
	watchdog  *watchdog.Watchdog
	k8sLayer  *k8slayer.Layer
	liveness  *coordinator.LivenessVector
	health    *noc.Health
	elector   *leader.Elector
	timer     *coordinator.CentralTimer
	metrics   *monitor.Metrics
	logger    logr.Logger
}

// New creates the ingress server.
func New(address string, processor *prompush.Processor, vector *alerts.Vector, wd *watchdog.Watchdog, layer *k8slayer.Layer,
	liveness *coordinator.LivenessVector, health *noc.Health, elector *leader.Elector, timer *coordinator.CentralTimer,
	metrics *monitor.Metrics, logger logr.Logger) *Server {
	return &Server{
		address:   address,
		processor: processor,
		vector:    vector,
		watchdog:  wd,
		k8sLayer:  layer,
		liveness:  liveness,
		health:    health,
		elector:   elector,
		timer:     timer,
		metrics:   metrics,
		logger:    logger.WithName("ingress-server"),
	}
}

// Router builds the chi router serving all endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/v2/alerts", s.handlePushedAlerts)
	r.Get("/api/alerts", s.handleAlerts)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/k8s/health", s.handleK8sHealth)
	r.Get("/api/watchdog", s.handleWatchdog)
	r.Get("/livez", s.handleLivez)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return r
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting ingress server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down ingress server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handlePushedAlerts(w http.ResponseWriter, r *http.Request) {
	var pushed []prompush.Alert
	if err := json.NewDecoder(r.Body).Decode(&pushed); err != nil {
		s.logger.Info("Rejecting malformed alert push", "err", err.Error())
		http.Error(w, "malformed alert body", http.StatusBadRequest)
		return
	}
	s.processor.Process(pushed)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.vector.GetSnapshot()
	writeJSON(w, map[string]any{
		"count":  len(snapshot),
		"alerts": snapshot,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	tick := s.timer.TickCount()
	unhealthy := s.liveness.GetUnhealthyCallbacks(tick)
	writeJSON(w, map[string]any{
		"tick":               tick,
		"gracePeriodActive":  s.timer.IsGracePeriodActive(),
		"livenessHealthy":    len(unhealthy) == 0,
		"unhealthyCallbacks": unhealthy,
		"nocCircuitBreaker": map[string]any{
			"isHealthy":           s.health.IsHealthy(),
			"consecutiveFailures": s.health.ConsecutiveFailures(),
			"failureThreshold":    s.health.FailureThreshold(),
		},
		"leadership": map[string]any{
			"isLeader":      s.elector.IsLeader(),
			"identity":      s.elector.Identity(),
			"currentLeader": s.elector.CurrentLeader(),
		},
	})
}

func (s *Server) handleK8sHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.k8sLayer.LastStatus())
}

func (s *Server) handleWatchdog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.watchdog.State())
}

func (s *Server) handleLivez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports ready once the central timer ticks and keeps ticking.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.timer.TickCount() < 1 || time.Since(s.timer.HeartbeatTimestamp()) > readinessStaleness {
		http.Error(w, "central timer is not ticking", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
