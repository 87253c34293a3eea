// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package heartbeat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/kataniwayou/argus/internal/coordinator"
	"github.com/kataniwayou/argus/internal/monitor"
)

const (
	// StatusHealthy is the file status while the monitor considers itself healthy.
	StatusHealthy = "HEALTHY"
	// StatusUnhealthy is the file status of a final diagnostic write.
	StatusUnhealthy = "UNHEALTHY"

	// ReasonLivenessFailure marks a final diagnostic caused by stuck callbacks.
	ReasonLivenessFailure = "LIVENESS_FAILURE"
	// ReasonNocFailure marks a final diagnostic caused by the tripped circuit breaker.
	ReasonNocFailure = "NOC_FAILURE"
)

// CircuitBreakerStatus is the circuit breaker section of the heartbeat file.
type CircuitBreakerStatus struct {
	IsHealthy           bool  `json:"isHealthy"`
	ConsecutiveFailures int32 `json:"consecutiveFailures"`
	FailureThreshold    int32 `json:"failureThreshold"`
}

// LivenessStatus is the liveness vector section of the heartbeat file.
type LivenessStatus struct {
	IsHealthy        bool                        `json:"isHealthy"`
	TotalCount       int                         `json:"totalCount"`
	HealthyCount     int                         `json:"healthyCount"`
	UnhealthyCount   int                         `json:"unhealthyCount"`
	Callbacks        []coordinator.LivenessEntry `json:"callbacks"`
	UnhealthyDetails []coordinator.LivenessEntry `json:"unhealthyDetails"`
}

// FileStatus is the JSON document written to the heartbeat file. External
// monitors parse it and alert when the file stops updating or reports
// UNHEALTHY.
type FileStatus struct {
	Tick              int64                `json:"tick"`
	CorrelationID     string               `json:"correlationId"`
	Status            string               `json:"status"`
	UnhealthyReason   string               `json:"unhealthyReason,omitempty"`
	NocCircuitBreaker CircuitBreakerStatus `json:"nocCircuitBreaker"`
	LivenessVector    LivenessStatus       `json:"livenessVector"`
}

// FileWriter writes the heartbeat file atomically via temp file and rename.
type FileWriter struct {
	path    string
	metrics *monitor.Metrics
	logger  logr.Logger
}

// NewFileWriter creates a writer for the given destination path.
func NewFileWriter(path string, metrics *monitor.Metrics, logger logr.Logger) *FileWriter {
	return &FileWriter{
		path:    path,
		metrics: metrics,
		logger:  logger.WithName("heartbeat-file"),
	}
}

// Write serializes the status and replaces the heartbeat file atomically. The
// destination directory is created on demand.
func (w *FileWriter) Write(status *FileStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal heartbeat status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create heartbeat directory: %w", err)
	}
	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write heartbeat temp file: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return fmt.Errorf("failed to replace heartbeat file: %w", err)
	}
	w.metrics.HeartbeatFileWritten()
	return nil
}
