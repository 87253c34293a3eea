// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package alerts

import (
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

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

func newTestVector(ttlTicks int64) (*Vector, *SuppressionCache, *fakeTicks) {
	ticks := &fakeTicks{}
	suppression := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	vector := NewVector(ttlTicks, ticks, suppression, monitor.NewMetrics(), logr.Discard())
	return vector, suppression, ticks
}
