// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/monitor"
)

// fakeTicks is a manually advanced tick source.
type fakeTicks struct {
	tick atomic.Int64
}

func (f *fakeTicks) TickCount() int64 {
	return f.tick.Load()
}

func (f *fakeTicks) HeartbeatTimestamp() time.Time {
	return time.Unix(f.tick.Load(), 0)
}

func (f *fakeTicks) advance(ticks int64) {
	f.tick.Add(ticks)
}

// fakeLeadership is a settable leadership source.
type fakeLeadership struct {
	leader atomic.Bool
}

func (f *fakeLeadership) IsLeader() bool {
	return f.leader.Load()
}

func newTestVector(ticks *fakeTicks) (*alerts.Vector, *alerts.SuppressionCache) {
	suppression := alerts.NewSuppressionCache(ticks, 0, 0, logr.Discard())
	vector := alerts.NewVector(1000, ticks, suppression, monitor.NewMetrics(), logr.Discard())
	return vector, suppression
}
