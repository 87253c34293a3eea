// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/monitor"
)

// Leadership reports the role of this replica. It is implemented by the leader
// elector.
type Leadership interface {
	IsLeader() bool
}

// TwoPhase drives the send-then-verify NOC protocol shared by the alert
// dispatcher and the heartbeat service. Phase one (send) runs on the leader
// only, phase two (verify) runs on leader and follower alike. Every phase two
// outcome feeds the shared circuit breaker.
type TwoPhase struct {
	client     *Client
	leadership Leadership
	health     *Health

	mu   sync.Mutex
	sent map[string]*mapi.NocPayload

	metrics *monitor.Metrics
	logger  logr.Logger
}

// NewTwoPhase creates the two-phase sender.
func NewTwoPhase(client *Client, leadership Leadership, health *Health, metrics *monitor.Metrics, logger logr.Logger) *TwoPhase {
	return &TwoPhase{
		client:     client,
		leadership: leadership,
		health:     health,
		sent:       make(map[string]*mapi.NocPayload),
		metrics:    metrics,
		logger:     logger.WithName("noc-two-phase"),
	}
}

// Execute runs both phases for the given payload. The fingerprint keys the
// sent-payload cache which the follower uses to synthesize its verify filter.
// A nil return means phase two confirmed the payload at the NOC.
func (tp *TwoPhase) Execute(ctx context.Context, fingerprint string, payload *mapi.NocPayload, correlationID string) error {
	if tp.leadership.IsLeader() {
		if err := tp.client.Send(ctx, payload); err != nil {
			// The receiver may have accepted the write despite an error
			// response, so phase two still runs.
			tp.logger.Info("NOC send failed, verification will decide the outcome", "suppressionKey", fingerprint, "correlationId", correlationID, "err", err.Error())
			tp.metrics.NocSend("failure")
		} else {
			tp.metrics.NocSend("success")
			tp.cacheSent(fingerprint, payload)
		}
	}

	reference := tp.cachedSent(fingerprint)
	if reference == nil {
		reference = payload
	}
	received, err := tp.client.Verify(ctx, BuildVerifyFilter(reference))
	if err != nil {
		tp.metrics.NocVerify("failure")
		tp.health.RecordFailure()
		return fmt.Errorf("NOC verify failed for %s: %w", fingerprint, err)
	}
	if !ComparePayloads(reference, received) {
		tp.metrics.NocVerify("mismatch")
		tp.health.RecordFailure()
		tp.logger.Info("NOC verify returned a mismatching payload", "suppressionKey", fingerprint, "correlationId", correlationID,
			"receivedSuppressionKey", received.SuppressionKey, "receivedLevel", received.Level, "receivedSource", received.Source)
		return fmt.Errorf("NOC verify mismatch for %s", fingerprint)
	}
	tp.metrics.NocVerify("success")
	tp.health.RecordSuccess()
	return nil
}

// DropCached removes the cached sent payload of a fingerprint, typically after
// a confirmed CANCEL round-trip.
func (tp *TwoPhase) DropCached(fingerprint string) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	delete(tp.sent, fingerprint)
}

func (tp *TwoPhase) cacheSent(fingerprint string, payload *mapi.NocPayload) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	copied := *payload
	tp.sent[fingerprint] = &copied
}

func (tp *TwoPhase) cachedSent(fingerprint string) *mapi.NocPayload {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if payload, ok := tp.sent[fingerprint]; ok {
		copied := *payload
		return &copied
	}
	return nil
}
