// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/kataniwayou/argus/internal/monitor"
)

// TickInterval is the fixed interval of the central timer.
const TickInterval = time.Second

// CallbackFn is the function invoked by the central timer. All callbacks
// launched within one tick share the same correlation id.
type CallbackFn func(ctx context.Context, tick int64, correlationID string)

type registeredCallback struct {
	name             string
	intervalTicks    int64
	fn               CallbackFn
	gracePeriodAware bool
	running          atomic.Bool
}

// CentralTimer is the single 1s-tick scheduler of the monitor. It owns the
// monotonically increasing tick count, the startup grace period latch and the
// per-tick correlation ids handed to the registered callbacks.
type CentralTimer struct {
	mu        sync.Mutex
	callbacks []*registeredCallback
	names     map[string]struct{}

	tickCount   atomic.Int64
	heartbeatTS atomic.Int64
	graceTicks  int64
	graceOver   atomic.Bool

	metrics *monitor.Metrics
	logger  logr.Logger
}

// NewCentralTimer creates a central timer whose grace period spans
// snapshotIntervalSeconds scaled by gracePeriodMultiplier. Multipliers below
// 1.0 are raised to 1.0.
func NewCentralTimer(snapshotIntervalSeconds int, gracePeriodMultiplier float64, metrics *monitor.Metrics, logger logr.Logger) *CentralTimer {
	if gracePeriodMultiplier < 1.0 {
		gracePeriodMultiplier = 1.0
	}
	t := &CentralTimer{
		names:      make(map[string]struct{}),
		graceTicks: int64(float64(snapshotIntervalSeconds) * gracePeriodMultiplier),
		metrics:    metrics,
		logger:     logger.WithName("central-timer"),
	}
	t.heartbeatTS.Store(time.Now().UnixNano())
	return t
}

// Register registers a callback which will run every intervalTicks ticks.
// Names are unique, a later registration with an existing name is rejected.
func (t *CentralTimer) Register(name string, intervalTicks int64, gracePeriodAware bool, fn CallbackFn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if intervalTicks < 1 {
		return fmt.Errorf("callback %s must have an interval of at least one tick, got %d", name, intervalTicks)
	}
	if _, exists := t.names[name]; exists {
		t.logger.Info("Rejecting duplicate callback registration", "callback", name)
		return fmt.Errorf("callback %s is already registered", name)
	}
	t.names[name] = struct{}{}
	t.callbacks = append(t.callbacks, &registeredCallback{
		name:             name,
		intervalTicks:    intervalTicks,
		fn:               fn,
		gracePeriodAware: gracePeriodAware,
	})
	t.logger.Info("Registered callback", "callback", name, "intervalTicks", intervalTicks, "gracePeriodAware", gracePeriodAware)
	return nil
}

// TickCount returns the number of ticks elapsed since the timer started.
func (t *CentralTimer) TickCount() int64 {
	return t.tickCount.Load()
}

// HeartbeatTimestamp returns the wall clock recorded at the last tick.
func (t *CentralTimer) HeartbeatTimestamp() time.Time {
	return time.Unix(0, t.heartbeatTS.Load())
}

// GracePeriodSeconds returns the length of the startup grace period.
func (t *CentralTimer) GracePeriodSeconds() int64 {
	return t.graceTicks
}

// IsGracePeriodActive reports whether the startup grace period is still in
// effect. Once it has elapsed the latch never re-arms.
func (t *CentralTimer) IsGracePeriodActive() bool {
	if t.graceOver.Load() {
		return false
	}
	if t.tickCount.Load() >= t.graceTicks {
		t.graceOver.Store(true)
		return false
	}
	return true
}

// Run drives the tick loop until the context is cancelled. Callback launches
// within a tick happen in registration order, execution is concurrent and the
// timer never waits for callbacks before advancing.
func (t *CentralTimer) Run(ctx context.Context) {
	t.logger.Info("Starting central timer", "tickInterval", TickInterval.String(), "gracePeriodSeconds", t.graceTicks)
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Central timer stopping", "tickCount", t.tickCount.Load())
			return
		case <-ticker.C:
			t.onTick(ctx)
		}
	}
}

func (t *CentralTimer) onTick(ctx context.Context) {
	tick := t.tickCount.Add(1)
	t.heartbeatTS.Store(time.Now().UnixNano())
	graceActive := t.IsGracePeriodActive()
	correlationID := newCorrelationID(tick)

	t.mu.Lock()
	callbacks := t.callbacks
	t.mu.Unlock()

	for _, cb := range callbacks {
		if tick%cb.intervalTicks != 0 {
			continue
		}
		if cb.gracePeriodAware && graceActive {
			continue
		}
		if !cb.running.CompareAndSwap(false, true) {
			t.logger.Info("Skipping callback, prior invocation still running", "callback", cb.name, "tick", tick)
			t.metrics.CallbackSkipped(cb.name)
			continue
		}
		go t.launch(ctx, cb, tick, correlationID)
	}
}

func (t *CentralTimer) launch(ctx context.Context, cb *registeredCallback, tick int64, correlationID string) {
	defer cb.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error(fmt.Errorf("callback panicked: %v", r), "Callback failed", "callback", cb.name, "tick", tick, "correlationId", correlationID)
			t.metrics.CallbackError(cb.name)
		}
	}()
	cb.fn(ctx, tick, correlationID)
}

// newCorrelationID builds the per-tick correlation id shared by all callbacks
// launched within the same tick.
func newCorrelationID(tick int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("tick-%05d-%s", tick, suffix)
}
