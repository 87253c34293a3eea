// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/kataniwayou/argus/internal/monitor"
)

// Health is the NOC circuit breaker. It counts consecutive failures across the
// heartbeat and alert paths and trips once the threshold is reached. A single
// success closes it again.
type Health struct {
	consecutiveFailures atomic.Int32
	failureThreshold    int32

	metrics *monitor.Metrics
	logger  logr.Logger
}

// NewHealth creates a circuit breaker with the given failure threshold.
func NewHealth(failureThreshold int32, metrics *monitor.Metrics, logger logr.Logger) *Health {
	return &Health{
		failureThreshold: failureThreshold,
		metrics:          metrics,
		logger:           logger.WithName("noc-health"),
	}
}

// RecordFailure increments the consecutive failure counter and logs the
// healthy to tripped edge.
func (h *Health) RecordFailure() {
	failures := h.consecutiveFailures.Add(1)
	if failures == h.failureThreshold {
		h.logger.Info("NOC circuit breaker tripped", "consecutiveFailures", failures, "failureThreshold", h.failureThreshold)
	}
	h.metrics.SetBreakerHealthy(h.IsHealthy())
}

// RecordSuccess resets the counter and logs the tripped to healthy edge.
func (h *Health) RecordSuccess() {
	previous := h.consecutiveFailures.Swap(0)
	if previous >= h.failureThreshold {
		h.logger.Info("NOC circuit breaker recovered", "previousConsecutiveFailures", previous)
	}
	h.metrics.SetBreakerHealthy(true)
}

// IsHealthy reports whether the breaker is closed.
func (h *Health) IsHealthy() bool {
	return h.consecutiveFailures.Load() < h.failureThreshold
}

// ConsecutiveFailures returns the current counter value.
func (h *Health) ConsecutiveFailures() int32 {
	return h.consecutiveFailures.Load()
}

// FailureThreshold returns the configured threshold.
func (h *Health) FailureThreshold() int32 {
	return h.failureThreshold
}
