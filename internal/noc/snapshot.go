// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/kataniwayou/argus/internal/alerts"
)

// Snapshotter periodically reads the alerts vector and enqueues dispatch
// decisions. Per cycle at most one CREATE (the highest priority one) and one
// batch of CANCELs are enqueued, suppression marks are set at enqueue time.
type Snapshotter struct {
	vector      *alerts.Vector
	suppression *alerts.SuppressionCache
	queue       *Queue
	ticks       alerts.TickSource
	logger      logr.Logger
}

// NewSnapshotter creates the snapshot cycle.
func NewSnapshotter(vector *alerts.Vector, suppression *alerts.SuppressionCache, queue *Queue, ticks alerts.TickSource, logger logr.Logger) *Snapshotter {
	return &Snapshotter{
		vector:      vector,
		suppression: suppression,
		queue:       queue,
		ticks:       ticks,
		logger:      logger.WithName("noc-snapshot"),
	}
}

// Tick runs one snapshot cycle. It is registered as a grace-aware central
// timer callback.
func (s *Snapshotter) Tick(_ context.Context, _ int64, correlationID string) error {
	s.vector.CleanupExpiredAlerts()
	snapshot := s.vector.GetSnapshot()
	if len(snapshot) == 0 {
		return nil
	}
	now := s.ticks.HeartbeatTimestamp()

	var firstCreate *alerts.Alert
	var cancels []alerts.Alert
	for i := range snapshot {
		switch snapshot[i].Status {
		case alerts.StatusCreate:
			if firstCreate == nil {
				firstCreate = &snapshot[i]
			}
		case alerts.StatusCancel:
			cancels = append(cancels, snapshot[i])
		}
	}

	if firstCreate != nil {
		if s.suppression.WasRecentlyProcessed(firstCreate) {
			s.logger.Info("Suppressing create, recently processed", "fingerprint", firstCreate.Fingerprint, "correlationId", correlationID)
		} else {
			s.queue.Enqueue(Decision{
				Kind:          DecisionHandleCreate,
				Create:        firstCreate,
				SnapshotTime:  now,
				CorrelationID: correlationID,
			})
			s.suppression.MarkAsProcessed(firstCreate)
			s.logger.Info("Enqueued create decision", "fingerprint", firstCreate.Fingerprint, "priority", firstCreate.Priority, "correlationId", correlationID)
		}
	}

	var dispatchable []alerts.Alert
	for i := range cancels {
		if s.suppression.WasRecentlyProcessed(&cancels[i]) {
			continue
		}
		dispatchable = append(dispatchable, cancels[i])
	}
	if len(dispatchable) > 0 {
		s.queue.Enqueue(Decision{
			Kind:          DecisionHandleCancels,
			Cancels:       dispatchable,
			SnapshotTime:  now,
			CorrelationID: correlationID,
		})
		for i := range dispatchable {
			s.suppression.MarkAsProcessed(&dispatchable[i])
		}
		s.logger.Info("Enqueued cancel decisions", "count", len(dispatchable), "correlationId", correlationID)
	}
	return nil
}
