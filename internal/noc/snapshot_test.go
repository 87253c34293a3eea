// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"

	"github.com/kataniwayou/argus/internal/alerts"
)

func vectorAlert(fingerprint string, priority int, status alerts.Status, window time.Duration) *alerts.Alert {
	a := &alerts.Alert{
		Fingerprint: fingerprint,
		Priority:    priority,
		Name:        fingerprint,
		Source:      "test",
		Status:      status,
		SendToNoc:   true,
	}
	if window > 0 {
		a.SuppressWindow = &window
	}
	return a
}

// seed inserts an alert regardless of status. Cancels are seeded by first
// inserting the create.
func seed(g *WithT, vector *alerts.Vector, a *alerts.Alert) {
	if a.Status == alerts.StatusCancel {
		create := *a
		create.Status = alerts.StatusCreate
		g.Expect(vector.UpdateAlert(&create)).To(Succeed())
	}
	g.Expect(vector.UpdateAlert(a)).To(Succeed())
}

func TestSnapshotEnqueuesHighestPriorityCreateAndAllCancels(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	vector, suppression := newTestVector(ticks)
	queue := NewQueue()
	snapshotter := NewSnapshotter(vector, suppression, queue, ticks, logr.Discard())

	seed(g, vector, vectorAlert("a", -10, alerts.StatusCreate, 0))
	seed(g, vector, vectorAlert("b", 0, alerts.StatusCreate, 0))
	seed(g, vector, vectorAlert("c", 5, alerts.StatusCancel, 0))

	g.Expect(snapshotter.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())

	g.Expect(queue.Len()).To(Equal(2))
	first, ok := queue.Dequeue()
	g.Expect(ok).To(BeTrue())
	g.Expect(first.Kind).To(Equal(DecisionHandleCreate))
	g.Expect(first.Create.Fingerprint).To(Equal("a"), "only the highest priority create is enqueued")

	second, ok := queue.Dequeue()
	g.Expect(ok).To(BeTrue())
	g.Expect(second.Kind).To(Equal(DecisionHandleCancels))
	g.Expect(second.Cancels).To(HaveLen(1))
	g.Expect(second.Cancels[0].Fingerprint).To(Equal("c"))

	_, ok = queue.Dequeue()
	g.Expect(ok).To(BeFalse())
}

func TestSnapshotSuppressesWithinWindow(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	vector, suppression := newTestVector(ticks)
	queue := NewQueue()
	snapshotter := NewSnapshotter(vector, suppression, queue, ticks, logr.Discard())

	seed(g, vector, vectorAlert("x", 0, alerts.StatusCreate, 2*time.Minute))

	g.Expect(snapshotter.Tick(context.Background(), 0, "tick-00000-deadbeef")).To(Succeed())
	g.Expect(queue.Len()).To(Equal(1))
	_, _ = queue.Dequeue()

	ticks.advance(60)
	g.Expect(snapshotter.Tick(context.Background(), 60, "tick-00060-deadbeef")).To(Succeed())
	g.Expect(queue.Len()).To(BeZero(), "the alert is still within its suppression window")

	ticks.advance(70)
	g.Expect(snapshotter.Tick(context.Background(), 130, "tick-00130-deadbeef")).To(Succeed())
	g.Expect(queue.Len()).To(Equal(1), "the window has elapsed, the alert is re-enqueued")
}

func TestSnapshotSkipsSuppressedCancels(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	vector, suppression := newTestVector(ticks)
	queue := NewQueue()
	snapshotter := NewSnapshotter(vector, suppression, queue, ticks, logr.Discard())

	seed(g, vector, vectorAlert("c1", 1, alerts.StatusCancel, time.Minute))
	seed(g, vector, vectorAlert("c2", 2, alerts.StatusCancel, 0))

	g.Expect(snapshotter.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())
	first, ok := queue.Dequeue()
	g.Expect(ok).To(BeTrue())
	g.Expect(first.Cancels).To(HaveLen(2))

	// c1 is now marked, c2 carries no window and is re-dispatched every cycle.
	g.Expect(snapshotter.Tick(context.Background(), 60, "tick-00060-deadbeef")).To(Succeed())
	second, ok := queue.Dequeue()
	g.Expect(ok).To(BeTrue())
	g.Expect(second.Cancels).To(HaveLen(1))
	g.Expect(second.Cancels[0].Fingerprint).To(Equal("c2"))
}

func TestSnapshotTriggersTtlCleanup(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	vector, suppression := newTestVector(ticks)
	queue := NewQueue()
	snapshotter := NewSnapshotter(vector, suppression, queue, ticks, logr.Discard())

	seed(g, vector, vectorAlert("stale", 0, alerts.StatusCreate, 0))
	ticks.advance(2000)

	g.Expect(snapshotter.Tick(context.Background(), 2000, "tick-02000-deadbeef")).To(Succeed())
	g.Expect(vector.Count()).To(BeZero())
	g.Expect(queue.Len()).To(BeZero())
}
