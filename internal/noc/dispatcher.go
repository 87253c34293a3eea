// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/util"
)

const (
	// idleWait is how long the dispatcher sleeps when the queue is empty.
	idleWait = 100 * time.Millisecond
	// errorBackoff is how long the dispatcher waits after a recoverable error.
	errorBackoff = time.Second
)

// Dispatcher drains the decision queue one decision at a time. It re-reads the
// current alert state before acting and runs the two-phase protocol against
// the NOC.
type Dispatcher struct {
	queue        *Queue
	vector       *alerts.Vector
	suppression  *alerts.SuppressionCache
	twoPhase     *TwoPhase
	clientConfig mapi.NocHttpClientConfig
	nocEnabled   bool
	logger       logr.Logger
}

// NewDispatcher creates the queue consumer.
func NewDispatcher(queue *Queue, vector *alerts.Vector, suppression *alerts.SuppressionCache, twoPhase *TwoPhase,
	clientConfig mapi.NocHttpClientConfig, nocEnabled bool, logger logr.Logger) *Dispatcher {
	return &Dispatcher{
		queue:        queue,
		vector:       vector,
		suppression:  suppression,
		twoPhase:     twoPhase,
		clientConfig: clientConfig,
		nocEnabled:   nocEnabled,
		logger:       logger.WithName("noc-dispatcher"),
	}
}

// Run drains the queue until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Starting NOC dispatcher", "nocEnabled", d.nocEnabled)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("NOC dispatcher stopping")
			return
		default:
		}
		decision, ok := d.queue.Dequeue()
		if !ok {
			_ = util.SleepWithContext(ctx, idleWait)
			continue
		}
		if err := d.process(ctx, decision); err != nil && ctx.Err() == nil {
			d.logger.Info("Decision processing failed, backing off", "kind", decision.Kind, "correlationId", decision.CorrelationID, "err", err.Error())
			_ = util.SleepWithContext(ctx, errorBackoff)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, decision Decision) error {
	switch decision.Kind {
	case DecisionHandleCreate:
		return d.handleCreate(ctx, decision)
	case DecisionHandleCancels:
		return d.handleCancels(ctx, decision)
	default:
		d.logger.Info("Discarding decision of unknown kind", "kind", decision.Kind, "correlationId", decision.CorrelationID)
		return nil
	}
}

func (d *Dispatcher) handleCreate(ctx context.Context, decision Decision) error {
	if decision.Create == nil {
		d.logger.Info("Discarding create decision without alert", "correlationId", decision.CorrelationID)
		return nil
	}
	current, ok := d.vector.GetAlert(decision.Create.Fingerprint)
	if !ok || current.Status != alerts.StatusCreate {
		d.logger.V(1).Info("Dropping stale create decision", "fingerprint", decision.Create.Fingerprint, "correlationId", decision.CorrelationID)
		return nil
	}
	return d.dispatchAlert(ctx, &current, decision.CorrelationID)
}

func (d *Dispatcher) handleCancels(ctx context.Context, decision Decision) error {
	var firstErr error
	for i := range decision.Cancels {
		current, ok := d.vector.GetAlert(decision.Cancels[i].Fingerprint)
		if !ok || current.Status != alerts.StatusCancel {
			d.logger.V(1).Info("Dropping stale cancel decision", "fingerprint", decision.Cancels[i].Fingerprint, "correlationId", decision.CorrelationID)
			continue
		}
		if err := d.dispatchAlert(ctx, &current, decision.CorrelationID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dispatchAlert runs the two-phase protocol for one alert and applies the
// outcome to the vector and the suppression cache.
func (d *Dispatcher) dispatchAlert(ctx context.Context, a *alerts.Alert, correlationID string) error {
	if !a.SendToNoc || !d.nocEnabled {
		// The HTTP path is skipped, cancels still leave the vector.
		if a.Status == alerts.StatusCancel {
			d.vector.RemoveAlert(a.Fingerprint)
		}
		return nil
	}

	payload := BuildPayload(a, d.clientConfig)
	if err := d.twoPhase.Execute(ctx, a.Fingerprint, payload, correlationID); err != nil {
		// Unmark so the next snapshot retries the alert.
		d.suppression.UnmarkAsProcessed(a)
		return err
	}

	if a.Status == alerts.StatusCancel {
		d.vector.RemoveAlert(a.Fingerprint)
		d.twoPhase.DropCached(a.Fingerprint)
	}
	d.logger.Info("Alert confirmed at NOC", "fingerprint", a.Fingerprint, "status", a.Status, "executionId", a.ExecutionID, "correlationId", correlationID)
	return nil
}
