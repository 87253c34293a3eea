// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package alerts

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/kataniwayou/argus/internal/monitor"
)

// Vector is the priority ordered in-memory store of currently active alerts.
// It is the serialization point for alert state, every mutation takes its lock
// and stamps the alert with the current tick.
type Vector struct {
	mu     sync.Mutex
	alerts map[string]*Alert

	ttlTicks    int64
	ticks       TickSource
	suppression *SuppressionCache
	metrics     *monitor.Metrics
	logger      logr.Logger
}

// NewVector creates an alerts vector whose entries expire after ttlTicks
// without an update.
func NewVector(ttlTicks int64, ticks TickSource, suppression *SuppressionCache, metrics *monitor.Metrics, logger logr.Logger) *Vector {
	return &Vector{
		alerts:      make(map[string]*Alert),
		ttlTicks:    ttlTicks,
		ticks:       ticks,
		suppression: suppression,
		metrics:     metrics,
		logger:      logger.WithName("alerts-vector"),
	}
}

// UpdateAlert upserts the alert. A CANCEL can never introduce a new entry and
// a CANCEL on an already cancelled entry only refreshes its last-seen stamps.
func (v *Vector) UpdateAlert(a *Alert) error {
	if a == nil || a.Fingerprint == "" {
		v.logger.Info("Rejecting alert without fingerprint")
		return fmt.Errorf("alert must carry a non-empty fingerprint")
	}
	if a.Status != StatusCreate && a.Status != StatusCancel {
		v.logger.Info("Rejecting alert with unknown status", "fingerprint", a.Fingerprint, "status", a.Status)
		return fmt.Errorf("alert %s carries unknown status %q", a.Fingerprint, a.Status)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.ticks.HeartbeatTimestamp()
	tick := v.ticks.TickCount()

	existing, exists := v.alerts[a.Fingerprint]
	if !exists && a.Status == StatusCancel {
		v.logger.V(1).Info("Ignoring cancel for unknown alert", "fingerprint", a.Fingerprint)
		return nil
	}
	if exists && existing.Status == StatusCancel && a.Status == StatusCancel {
		existing.LastSeenTick = tick
		existing.LastSeenTimestamp = now
		return nil
	}

	stored := *a
	if stored.Timestamp.IsZero() {
		stored.Timestamp = now
	}
	stored.LastSeenTick = tick
	stored.LastSeenTimestamp = now
	v.alerts[a.Fingerprint] = &stored
	v.metrics.SetActiveAlerts(len(v.alerts))

	switch {
	case !exists && a.Status == StatusCreate:
		v.logger.Info("Alert created", "fingerprint", a.Fingerprint, "name", a.Name, "priority", a.Priority, "source", a.Source, "executionId", a.ExecutionID)
		v.metrics.AlertCreated()
	case exists && existing.Status == StatusCancel && a.Status == StatusCreate:
		v.logger.Info("Alert created", "fingerprint", a.Fingerprint, "name", a.Name, "priority", a.Priority, "source", a.Source, "executionId", a.ExecutionID, "previousStatus", existing.Status)
		v.metrics.AlertCreated()
	case exists && existing.Status == StatusCreate && a.Status == StatusCancel:
		v.logger.Info("Alert resolved", "fingerprint", a.Fingerprint, "name", a.Name, "executionId", a.ExecutionID)
	default:
		v.logger.V(1).Info("Alert refreshed", "fingerprint", a.Fingerprint, "status", a.Status)
	}
	return nil
}

// GetAlert returns a copy of the alert with the given fingerprint.
func (v *Vector) GetAlert(fingerprint string) (Alert, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a, ok := v.alerts[fingerprint]
	if !ok {
		return Alert{}, false
	}
	return *a, true
}

// RemoveAlert removes the alert and clears its suppression entries. It reports
// whether an entry was removed.
func (v *Vector) RemoveAlert(fingerprint string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.alerts[fingerprint]; !ok {
		return false
	}
	delete(v.alerts, fingerprint)
	v.suppression.ClearFingerprint(fingerprint)
	v.metrics.AlertResolved()
	v.metrics.SetActiveAlerts(len(v.alerts))
	v.logger.Info("Alert removed", "fingerprint", fingerprint)
	return true
}

// GetSnapshot returns a materialized copy of all alerts ordered by priority
// ascending and then timestamp ascending. This ordering is the authoritative
// priority used downstream.
func (v *Vector) GetSnapshot() []Alert {
	v.mu.Lock()
	snapshot := make([]Alert, 0, len(v.alerts))
	for _, a := range v.alerts {
		snapshot = append(snapshot, *a)
	}
	v.mu.Unlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Priority != snapshot[j].Priority {
			return snapshot[i].Priority < snapshot[j].Priority
		}
		return snapshot[i].Timestamp.Before(snapshot[j].Timestamp)
	})
	return snapshot
}

// CleanupExpiredAlerts evicts every alert which has not been re-seen within the
// TTL, clearing its suppression entries.
func (v *Vector) CleanupExpiredAlerts() {
	v.mu.Lock()
	defer v.mu.Unlock()
	tick := v.ticks.TickCount()
	for fingerprint, a := range v.alerts {
		if tick-a.LastSeenTick > v.ttlTicks {
			delete(v.alerts, fingerprint)
			v.suppression.ClearFingerprint(fingerprint)
			v.metrics.AlertExpired()
			v.logger.Info("Alert expired, evicting", "fingerprint", fingerprint, "name", a.Name, "lastSeenTick", a.LastSeenTick, "currentTick", tick)
		}
	}
	v.metrics.SetActiveAlerts(len(v.alerts))
}

// Count returns the number of active alerts.
func (v *Vector) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.alerts)
}

// Clear empties the vector.
func (v *Vector) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = make(map[string]*Alert)
	v.metrics.SetActiveAlerts(0)
}
