// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package alerts

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"
)

func suppressibleAlert(fingerprint string, status Status, window time.Duration) *Alert {
	return &Alert{
		Fingerprint:    fingerprint,
		Status:         status,
		SuppressWindow: &window,
	}
}

func TestMarkThenSuppressedUntilWindowElapses(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	a := suppressibleAlert("x", StatusCreate, 2*time.Minute)

	cache.MarkAsProcessed(a)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeTrue())

	ticks.advance(60)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeTrue(), "one minute into a two minute window the alert is still suppressed")

	ticks.advance(70)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeFalse(), "the window has elapsed")
}

func TestZeroWindowNeverSuppresses(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	a := suppressibleAlert("x", StatusCreate, 0)

	cache.MarkAsProcessed(a)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeFalse())
	g.Expect(cache.Count()).To(BeZero(), "zero windows are not recorded")
}

func TestStatusesAreSuppressedIndependently(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	created := suppressibleAlert("x", StatusCreate, time.Minute)
	cancelled := suppressibleAlert("x", StatusCancel, time.Minute)

	cache.MarkAsProcessed(created)
	g.Expect(cache.WasRecentlyProcessed(created)).To(BeTrue())
	g.Expect(cache.WasRecentlyProcessed(cancelled)).To(BeFalse())
}

func TestUnmarkReArmsTheAlert(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	a := suppressibleAlert("x", StatusCreate, time.Minute)

	cache.MarkAsProcessed(a)
	cache.UnmarkAsProcessed(a)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeFalse())
}

func TestClearFingerprintRemovesBothStatuses(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	created := suppressibleAlert("x", StatusCreate, time.Minute)
	cancelled := suppressibleAlert("x", StatusCancel, time.Minute)

	cache.MarkAsProcessed(created)
	cache.MarkAsProcessed(cancelled)
	cache.ClearFingerprint("x")
	g.Expect(cache.WasRecentlyProcessed(created)).To(BeFalse())
	g.Expect(cache.WasRecentlyProcessed(cancelled)).To(BeFalse())
	g.Expect(cache.Count()).To(BeZero())
}

func TestAnnotationWindowIsUsedWhenNoExplicitWindow(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	a := &Alert{
		Fingerprint: "x",
		Status:      StatusCreate,
		Annotations: map[string]string{SuppressWindowAnnotation: "30s"},
	}

	cache.MarkAsProcessed(a)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeTrue())
	ticks.advance(31)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeFalse())
}

func TestEmptyAnnotationDisablesSuppression(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, time.Hour, time.Hour, logr.Discard())
	a := &Alert{
		Fingerprint: "x",
		Status:      StatusCreate,
		Annotations: map[string]string{SuppressWindowAnnotation: ""},
	}

	cache.MarkAsProcessed(a)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeFalse(), "an empty annotation explicitly disables suppression")
}

func TestUnparseableAnnotationFallsThroughToDefault(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, time.Minute, 0, logr.Discard())
	a := &Alert{
		Fingerprint: "x",
		Status:      StatusCreate,
		Annotations: map[string]string{SuppressWindowAnnotation: "soon"},
	}

	cache.MarkAsProcessed(a)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeTrue(), "the default window applies when the annotation cannot be parsed")
}

func TestExplicitWindowTakesPrecedenceOverAnnotation(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	window := 10 * time.Second
	a := &Alert{
		Fingerprint:    "x",
		Status:         StatusCreate,
		SuppressWindow: &window,
		Annotations:    map[string]string{SuppressWindowAnnotation: "1h"},
	}

	cache.MarkAsProcessed(a)
	ticks.advance(11)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeFalse())
}

func TestSubSecondWindowStillSuppressesForOneTick(t *testing.T) {
	g := NewWithT(t)
	ticks := &fakeTicks{}
	cache := NewSuppressionCache(ticks, 0, 0, logr.Discard())
	a := suppressibleAlert("x", StatusCreate, 500*time.Millisecond)

	cache.MarkAsProcessed(a)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeTrue(), "windows round up to at least one tick")
	ticks.advance(1)
	g.Expect(cache.WasRecentlyProcessed(a)).To(BeFalse())
}
