// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestRecordExecutionOverwritesEntry(t *testing.T) {
	g := NewWithT(t)
	v := NewLivenessVector()
	v.RecordExecution("snapshot", 30, 30)
	v.RecordExecution("snapshot", 30, 60)
	g.Expect(v.Count()).To(Equal(1))
	snapshot := v.GetSnapshot()
	g.Expect(snapshot).To(HaveLen(1))
	g.Expect(snapshot[0].LastExecutionTick).To(Equal(int64(60)))
}

func TestHealthyBelowTwiceTheInterval(t *testing.T) {
	g := NewWithT(t)
	v := NewLivenessVector()
	v.RecordExecution("snapshot", 10, 100)
	g.Expect(v.IsHealthy(119)).To(BeTrue(), "age 19 is below twice the interval")
	g.Expect(v.GetUnhealthyCallbacks(119)).To(BeEmpty())
}

func TestUnhealthyAtTwiceTheInterval(t *testing.T) {
	g := NewWithT(t)
	v := NewLivenessVector()
	v.RecordExecution("snapshot", 10, 100)
	g.Expect(v.IsHealthy(120)).To(BeFalse(), "age 20 reaches twice the interval")
	unhealthy := v.GetUnhealthyCallbacks(120)
	g.Expect(unhealthy).To(HaveLen(1))
	g.Expect(unhealthy[0].Name).To(Equal("snapshot"))
}

func TestSingleStuckCallbackMakesVectorUnhealthy(t *testing.T) {
	g := NewWithT(t)
	v := NewLivenessVector()
	v.RecordExecution("snapshot", 30, 200)
	v.RecordExecution("heartbeat", 30, 150)
	g.Expect(v.IsHealthy(211)).To(BeFalse())
	unhealthy := v.GetUnhealthyCallbacks(211)
	g.Expect(unhealthy).To(HaveLen(1))
	g.Expect(unhealthy[0].Name).To(Equal("heartbeat"))
}

func TestEmptyVectorIsHealthy(t *testing.T) {
	g := NewWithT(t)
	v := NewLivenessVector()
	g.Expect(v.IsHealthy(1000)).To(BeTrue())
	g.Expect(v.Count()).To(BeZero())
}
