// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/util"
)

const (
	// Fingerprint is the fixed alerts vector fingerprint of the watchdog alert.
	Fingerprint = "watchdog"
	// Priority is the fixed priority of the watchdog alert.
	Priority = -7
	// DefaultAlertName is the alertmanager alert name treated as heartbeat when
	// no other name is configured.
	DefaultAlertName = "Watchdog"
	source           = "watchdog"
)

// Status is the derived watchdog state.
type Status string

const (
	// StatusInitializing is reported while the startup grace period is active.
	StatusInitializing Status = "Initializing"
	// StatusHealthy is reported while heartbeats arrive within the timeout.
	StatusHealthy Status = "Healthy"
	// StatusMissing is reported when no heartbeat arrived within the timeout.
	StatusMissing Status = "Missing"
)

// tickSource is the slice of the central timer the watchdog needs.
type tickSource interface {
	TickCount() int64
	HeartbeatTimestamp() time.Time
	IsGracePeriodActive() bool
}

// State is the queryable watchdog state.
type State struct {
	Status            Status `json:"status"`
	LastHeartbeatTick int64  `json:"lastHeartbeatTick"`
	CurrentTick       int64  `json:"currentTick"`
	TimeoutTicks      int64  `json:"timeoutTicks"`
}

// Watchdog expires the external prometheus watchdog heartbeat. Ingress only
// records the heartbeat tick, the tick callback is the sole writer of the
// watchdog fingerprint into the alerts vector. The one-tick reaction delay
// this separation costs is accepted.
type Watchdog struct {
	mu                sync.Mutex
	lastHeartbeatTick int64
	hasHeartbeat      bool
	wasExpired        bool

	timeoutTicks         int64
	ticks                tickSource
	vector               *alerts.Vector
	createBehavior       *mapi.NocBehavior
	cancelBehavior       *mapi.NocBehavior
	createSuppressWindow *time.Duration
	cancelSuppressWindow *time.Duration
	logger               logr.Logger
}

// New creates a watchdog from its configuration section.
func New(config mapi.WatchdogConfig, ticks tickSource, vector *alerts.Vector, logger logr.Logger) *Watchdog {
	timeoutTicks := int64(*config.TimeoutSeconds)
	if timeoutTicks < 1 {
		timeoutTicks = 1
	}
	w := &Watchdog{
		timeoutTicks:   timeoutTicks,
		ticks:          ticks,
		vector:         vector,
		createBehavior: config.CreateNocBehavior,
		cancelBehavior: config.CancelNocBehavior,
		logger:         logger.WithName("watchdog"),
	}
	w.createSuppressWindow = parseBehaviorWindow(config.CreateNocBehavior, logger)
	w.cancelSuppressWindow = parseBehaviorWindow(config.CancelNocBehavior, logger)
	return w
}

func parseBehaviorWindow(behavior *mapi.NocBehavior, logger logr.Logger) *time.Duration {
	if behavior == nil || behavior.SuppressWindow == "" {
		return nil
	}
	window, err := util.ParseWindow(behavior.SuppressWindow)
	if err != nil {
		logger.Info("Ignoring unparseable watchdog suppress window", "value", behavior.SuppressWindow, "err", err.Error())
		return nil
	}
	return &window
}

// TimeoutTicks returns the callback interval of the watchdog.
func (w *Watchdog) TimeoutTicks() int64 {
	return w.timeoutTicks
}

// RecordHeartbeat stores the current tick as the latest heartbeat. It never
// touches the alerts vector.
func (w *Watchdog) RecordHeartbeat() {
	tick := w.ticks.TickCount()
	w.mu.Lock()
	w.lastHeartbeatTick = tick
	w.hasHeartbeat = true
	w.mu.Unlock()
	w.logger.V(1).Info("Watchdog heartbeat recorded", "tick", tick)
}

// State derives the current watchdog state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Watchdog) stateLocked() State {
	tick := w.ticks.TickCount()
	s := State{
		LastHeartbeatTick: w.lastHeartbeatTick,
		CurrentTick:       tick,
		TimeoutTicks:      w.timeoutTicks,
	}
	switch {
	case w.ticks.IsGracePeriodActive():
		s.Status = StatusInitializing
	case !w.hasHeartbeat:
		s.Status = StatusMissing
	case tick-w.lastHeartbeatTick < w.timeoutTicks:
		s.Status = StatusHealthy
	default:
		s.Status = StatusMissing
	}
	return s
}

// Tick evaluates the heartbeat age and upserts the watchdog alert. It is
// registered as a grace-aware central timer callback with the timeout as its
// interval.
func (w *Watchdog) Tick(_ context.Context, _ int64, correlationID string) error {
	w.mu.Lock()
	state := w.stateLocked()
	expired := state.Status == StatusMissing
	transitioned := expired != w.wasExpired
	w.wasExpired = expired
	w.mu.Unlock()

	if transitioned {
		if expired {
			w.logger.Info("Watchdog heartbeat missing, raising alert", "lastHeartbeatTick", state.LastHeartbeatTick, "correlationId", correlationID)
		} else {
			w.logger.Info("Watchdog heartbeat restored", "lastHeartbeatTick", state.LastHeartbeatTick, "correlationId", correlationID)
		}
	}

	return w.vector.UpdateAlert(w.buildAlert(state))
}

func (w *Watchdog) buildAlert(state State) *alerts.Alert {
	a := &alerts.Alert{
		Fingerprint: Fingerprint,
		Priority:    Priority,
		Name:        DefaultAlertName,
		Source:      source,
		SendToNoc:   true,
		Timestamp:   w.ticks.HeartbeatTimestamp(),
		ExecutionID: strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	}
	if state.Status == StatusMissing {
		a.Status = alerts.StatusCreate
		a.Summary = "Watchdog heartbeat missing"
		a.Description = "The prometheus watchdog heartbeat has not been received within the timeout"
		if w.createBehavior != nil {
			a.Payload = w.createBehavior.Payload
		}
		a.SuppressWindow = w.createSuppressWindow
	} else {
		a.Status = alerts.StatusCancel
		a.Summary = "Watchdog heartbeat healthy"
		a.Description = "The prometheus watchdog heartbeat is arriving within the timeout"
		if w.cancelBehavior != nil {
			a.Payload = w.cancelBehavior.Payload
		}
		a.SuppressWindow = w.cancelSuppressWindow
	}
	return a
}
