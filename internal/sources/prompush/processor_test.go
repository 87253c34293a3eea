// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package prompush

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/monitor"
)

type fakeTicks struct{ tick int64 }

func (f *fakeTicks) TickCount() int64              { return f.tick }
func (f *fakeTicks) HeartbeatTimestamp() time.Time { return time.Unix(f.tick, 0) }

type fakeWatchdog struct {
	heartbeats atomic.Int32
}

func (f *fakeWatchdog) RecordHeartbeat() { f.heartbeats.Add(1) }

func newTestProcessor() (*Processor, *alerts.Vector, *fakeWatchdog) {
	ticks := &fakeTicks{}
	suppression := alerts.NewSuppressionCache(ticks, 0, 0, logr.Discard())
	vector := alerts.NewVector(1000, ticks, suppression, monitor.NewMetrics(), logr.Discard())
	wd := &fakeWatchdog{}
	defaults := mapi.DefaultNocConfig{
		CreateNocBehavior: &mapi.NocBehavior{Payload: &mapi.NocPayload{Severity: "warning", Visible: true}},
		CancelNocBehavior: &mapi.NocBehavior{Payload: &mapi.NocPayload{Severity: "clear", Visible: true}},
	}
	processor := NewProcessor(vector, wd, defaults, "Watchdog", monitor.NewMetrics(), logr.Discard())
	return processor, vector, wd
}

func pushedAlert(name, fingerprint, status string, labels map[string]string) Alert {
	merged := map[string]string{
		platformLabel:  platformValue,
		alertNameLabel: name,
	}
	for k, v := range labels {
		merged[k] = v
	}
	return Alert{
		Labels:      merged,
		Annotations: map[string]string{"summary": "s", "description": "d"},
		Status:      status,
		StartsAt:    time.Now(),
		Fingerprint: fingerprint,
	}
}

func TestAlertsWithoutPlatformLabelAreFiltered(t *testing.T) {
	g := NewWithT(t)
	processor, vector, _ := newTestProcessor()
	a := pushedAlert("HighLatency", "fp1", statusFiring, nil)
	a.Labels[platformLabel] = "other"
	processor.Process([]Alert{a})
	g.Expect(vector.Count()).To(BeZero())
}

func TestFiringWatchdogOnlyFeedsHeartbeat(t *testing.T) {
	g := NewWithT(t)
	processor, vector, wd := newTestProcessor()
	processor.Process([]Alert{pushedAlert("Watchdog", "fp-wd", statusFiring, nil)})
	g.Expect(wd.heartbeats.Load()).To(Equal(int32(1)))
	g.Expect(vector.Count()).To(BeZero(), "the watchdog alert never enters the vector through ingress")
}

func TestResolvedWatchdogIsIgnored(t *testing.T) {
	g := NewWithT(t)
	processor, vector, wd := newTestProcessor()
	processor.Process([]Alert{pushedAlert("Watchdog", "fp-wd", statusResolved, nil)})
	g.Expect(wd.heartbeats.Load()).To(BeZero())
	g.Expect(vector.Count()).To(BeZero())
}

func TestFiringAlertIsConverted(t *testing.T) {
	g := NewWithT(t)
	processor, vector, _ := newTestProcessor()
	processor.Process([]Alert{pushedAlert("HighLatency", "fp1", statusFiring, map[string]string{priorityLabel: "4"})})

	a, ok := vector.GetAlert("fp1")
	g.Expect(ok).To(BeTrue())
	g.Expect(a.Status).To(Equal(alerts.StatusCreate))
	g.Expect(a.Priority).To(Equal(4))
	g.Expect(a.Name).To(Equal("HighLatency"))
	g.Expect(a.Source).To(Equal(defaultSource))
	g.Expect(a.Summary).To(Equal("s"))
	g.Expect(a.Description).To(Equal("d"))
	g.Expect(a.Payload.Severity).To(Equal("warning"))
	g.Expect(a.ExecutionID).ToNot(BeEmpty())
	g.Expect(a.SendToNoc).To(BeTrue())
}

func TestResolvedAlertCancelsExistingEntry(t *testing.T) {
	g := NewWithT(t)
	processor, vector, _ := newTestProcessor()
	processor.Process([]Alert{pushedAlert("HighLatency", "fp1", statusFiring, nil)})
	processor.Process([]Alert{pushedAlert("HighLatency", "fp1", statusResolved, nil)})

	a, ok := vector.GetAlert("fp1")
	g.Expect(ok).To(BeTrue())
	g.Expect(a.Status).To(Equal(alerts.StatusCancel))
	g.Expect(a.Payload.Severity).To(Equal("clear"))
}

func TestNegativePriorityIsClamped(t *testing.T) {
	g := NewWithT(t)
	processor, vector, _ := newTestProcessor()
	processor.Process([]Alert{pushedAlert("HighLatency", "fp1", statusFiring, map[string]string{priorityLabel: "-5"})})
	a, _ := vector.GetAlert("fp1")
	g.Expect(a.Priority).To(BeZero(), "pushed alerts never outrank infrastructure alerts")
}

func TestSourceLabelIsRespected(t *testing.T) {
	g := NewWithT(t)
	processor, vector, _ := newTestProcessor()
	processor.Process([]Alert{pushedAlert("HighLatency", "fp1", statusFiring, map[string]string{sourceLabel: "edge"})})
	a, _ := vector.GetAlert("fp1")
	g.Expect(a.Source).To(Equal("edge"))
}

func TestSuppressWindowAnnotationTravelsWithTheAlert(t *testing.T) {
	g := NewWithT(t)
	processor, vector, _ := newTestProcessor()
	a := pushedAlert("HighLatency", "fp1", statusFiring, nil)
	a.Annotations[alerts.SuppressWindowAnnotation] = "10m"
	processor.Process([]Alert{a})
	stored, _ := vector.GetAlert("fp1")
	g.Expect(stored.Annotations).To(HaveKeyWithValue(alerts.SuppressWindowAnnotation, "10m"))
}

func TestAlertWithoutFingerprintIsRejected(t *testing.T) {
	g := NewWithT(t)
	processor, vector, _ := newTestProcessor()
	processor.Process([]Alert{pushedAlert("HighLatency", "", statusFiring, nil)})
	g.Expect(vector.Count()).To(BeZero())
}
