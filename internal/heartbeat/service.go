// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package heartbeat

import (
	"context"

	"github.com/go-logr/logr"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/coordinator"
	"github.com/kataniwayou/argus/internal/noc"
)

// Service is the liveness aware heartbeat. Both roles run it every interval,
// only the leader performs the NOC send phase and writes the heartbeat file.
// When the liveness vector or the circuit breaker degrade, the leader writes
// one final diagnostic file and then stays silent so the external monitor sees
// the file go stale.
type Service struct {
	liveness   *coordinator.LivenessVector
	leadership noc.Leadership
	health     *noc.Health
	twoPhase   *noc.TwoPhase

	httpEnabled  bool
	payload      *mapi.NocPayload
	clientConfig mapi.NocHttpClientConfig

	fileEnabled bool
	fileWriter  *FileWriter

	wasLivenessUnhealthy bool
	wasBreakerTripped    bool

	logger logr.Logger
}

// NewService creates the heartbeat service.
func NewService(liveness *coordinator.LivenessVector, leadership noc.Leadership, health *noc.Health, twoPhase *noc.TwoPhase,
	config mapi.HeartbeatConfig, clientConfig mapi.NocHttpClientConfig, fileWriter *FileWriter, logger logr.Logger) *Service {
	httpEnabled := config.Http.Enabled == nil || *config.Http.Enabled
	fileEnabled := config.File.Enabled == nil || *config.File.Enabled
	return &Service{
		liveness:     liveness,
		leadership:   leadership,
		health:       health,
		twoPhase:     twoPhase,
		httpEnabled:  httpEnabled && config.Http.Payload != nil,
		payload:      config.Http.Payload,
		clientConfig: clientConfig,
		fileEnabled:  fileEnabled,
		fileWriter:   fileWriter,
		logger:       logger.WithName("heartbeat"),
	}
}

// Tick runs one heartbeat cycle. It is registered as a non-grace-aware central
// timer callback.
func (s *Service) Tick(ctx context.Context, tick int64, correlationID string) error {
	unhealthy := s.liveness.GetUnhealthyCallbacks(tick)
	isLivenessHealthy := len(unhealthy) == 0

	if !isLivenessHealthy {
		if !s.wasLivenessUnhealthy {
			s.wasLivenessUnhealthy = true
			s.logger.Info("Liveness vector reports stuck callbacks, suspending heartbeats", "unhealthyCount", len(unhealthy), "correlationId", correlationID)
			s.writeFinalDiagnostic(tick, correlationID, ReasonLivenessFailure)
		}
		return nil
	}
	if s.wasLivenessUnhealthy {
		s.wasLivenessUnhealthy = false
		s.logger.Info("Liveness vector recovered, resuming heartbeats", "correlationId", correlationID)
	}

	if s.httpEnabled {
		payload := s.buildPayload()
		if err := s.twoPhase.Execute(ctx, payload.SuppressionKey, payload, correlationID); err != nil {
			// The shared circuit breaker already recorded the failure, the
			// breaker edge below decides what happens to the file heartbeat.
			s.logger.Info("NOC heartbeat failed", "correlationId", correlationID, "err", err.Error())
		}
	}

	breakerHealthy := s.health.IsHealthy()
	if !breakerHealthy {
		if !s.wasBreakerTripped {
			s.wasBreakerTripped = true
			s.logger.Info("NOC circuit breaker tripped, suspending file heartbeat", "correlationId", correlationID)
			s.writeFinalDiagnostic(tick, correlationID, ReasonNocFailure)
		}
		return nil
	}
	if s.wasBreakerTripped {
		s.wasBreakerTripped = false
		s.logger.Info("NOC circuit breaker recovered, resuming file heartbeat", "correlationId", correlationID)
	}

	if s.fileEnabled && s.leadership.IsLeader() {
		status := s.buildFileStatus(tick, correlationID)
		status.Status = StatusHealthy
		if err := s.fileWriter.Write(status); err != nil {
			s.logger.Error(err, "Failed to write heartbeat file", "correlationId", correlationID)
			return err
		}
	}
	return nil
}

func (s *Service) buildPayload() *mapi.NocPayload {
	payload := *s.payload
	if payload.Custom1 == "" {
		payload.Custom1 = s.clientConfig.TeamName
	}
	if payload.Custom2 == "" {
		payload.Custom2 = s.clientConfig.SystemName
	}
	if payload.HostName == "" {
		payload.HostName = s.clientConfig.HostName
	}
	return &payload
}

// writeFinalDiagnostic writes the last heartbeat file before the service goes
// silent. Follower replicas never write.
func (s *Service) writeFinalDiagnostic(tick int64, correlationID, reason string) {
	if !s.fileEnabled || !s.leadership.IsLeader() {
		return
	}
	status := s.buildFileStatus(tick, correlationID)
	status.Status = StatusUnhealthy
	status.UnhealthyReason = reason
	s.logger.Info("Writing final diagnostic heartbeat file", "reason", reason, "correlationId", correlationID)
	if err := s.fileWriter.Write(status); err != nil {
		s.logger.Error(err, "Failed to write final diagnostic heartbeat file", "reason", reason, "correlationId", correlationID)
	}
}

func (s *Service) buildFileStatus(tick int64, correlationID string) *FileStatus {
	entries := s.liveness.GetSnapshot()
	unhealthy := s.liveness.GetUnhealthyCallbacks(tick)
	return &FileStatus{
		Tick:          tick,
		CorrelationID: correlationID,
		NocCircuitBreaker: CircuitBreakerStatus{
			IsHealthy:           s.health.IsHealthy(),
			ConsecutiveFailures: s.health.ConsecutiveFailures(),
			FailureThreshold:    s.health.FailureThreshold(),
		},
		LivenessVector: LivenessStatus{
			IsHealthy:        len(unhealthy) == 0,
			TotalCount:       len(entries),
			HealthyCount:     len(entries) - len(unhealthy),
			UnhealthyCount:   len(unhealthy),
			Callbacks:        entries,
			UnhealthyDetails: unhealthy,
		},
	}
}
