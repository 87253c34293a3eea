// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"testing"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"

	"github.com/kataniwayou/argus/internal/monitor"
)

func newTestHealth(threshold int32) *Health {
	return NewHealth(threshold, monitor.NewMetrics(), logr.Discard())
}

func TestHealthyBelowThreshold(t *testing.T) {
	g := NewWithT(t)
	h := newTestHealth(3)
	g.Expect(h.IsHealthy()).To(BeTrue())
	h.RecordFailure()
	h.RecordFailure()
	g.Expect(h.IsHealthy()).To(BeTrue())
	g.Expect(h.ConsecutiveFailures()).To(Equal(int32(2)))
}

func TestTripsAtThreshold(t *testing.T) {
	g := NewWithT(t)
	h := newTestHealth(3)
	h.RecordFailure()
	h.RecordFailure()
	h.RecordFailure()
	g.Expect(h.IsHealthy()).To(BeFalse())
}

func TestSingleSuccessResets(t *testing.T) {
	g := NewWithT(t)
	h := newTestHealth(3)
	h.RecordFailure()
	h.RecordFailure()
	h.RecordFailure()
	h.RecordFailure()
	g.Expect(h.IsHealthy()).To(BeFalse())

	h.RecordSuccess()
	g.Expect(h.IsHealthy()).To(BeTrue())
	g.Expect(h.ConsecutiveFailures()).To(BeZero())
}
