// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the prometheus collectors of the monitor.
type Metrics struct {
	registry *prometheus.Registry

	callbackErrors  *prometheus.CounterVec
	callbackSkips   *prometheus.CounterVec
	alertsCreated   prometheus.Counter
	alertsResolved  prometheus.Counter
	alertsExpired   prometheus.Counter
	alertsFiltered  prometheus.Counter
	nocSends        *prometheus.CounterVec
	nocVerifies     *prometheus.CounterVec
	leader          prometheus.Gauge
	breakerHealthy  prometheus.Gauge
	activeAlerts    prometheus.Gauge
	heartbeatWrites prometheus.Counter
}

// NewMetrics creates the monitor metrics and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		callbackErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_timer_callback_errors_total",
			Help: "Number of callback invocations which returned an error.",
		}, []string{"callback"}),
		callbackSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_timer_callback_skips_total",
			Help: "Number of callback invocations skipped because a prior invocation was still running.",
		}, []string{"callback"}),
		alertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_alerts_created_total",
			Help: "Number of alerts which entered the alerts vector with status CREATE.",
		}),
		alertsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_alerts_resolved_total",
			Help: "Number of alerts removed from the alerts vector.",
		}),
		alertsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_alerts_expired_total",
			Help: "Number of alerts evicted from the alerts vector by TTL cleanup.",
		}),
		alertsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_alerts_filtered_total",
			Help: "Number of pushed alerts dropped because they are not addressed to this monitor.",
		}),
		nocSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_noc_sends_total",
			Help: "Number of NOC send attempts by outcome.",
		}, []string{"outcome"}),
		nocVerifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_noc_verifies_total",
			Help: "Number of NOC verify attempts by outcome.",
		}, []string{"outcome"}),
		leader: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "argus_leader",
			Help: "1 when this replica currently holds the leader lease.",
		}),
		breakerHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "argus_noc_circuit_breaker_healthy",
			Help: "1 when the NOC circuit breaker is closed.",
		}),
		activeAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "argus_active_alerts",
			Help: "Number of alerts currently held in the alerts vector.",
		}),
		heartbeatWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_heartbeat_file_writes_total",
			Help: "Number of heartbeat file writes.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.callbackErrors, m.callbackSkips,
		m.alertsCreated, m.alertsResolved, m.alertsExpired, m.alertsFiltered,
		m.nocSends, m.nocVerifies,
		m.leader, m.breakerHealthy, m.activeAlerts,
		m.heartbeatWrites,
	)
	m.breakerHealthy.Set(1)
	return m
}

// Registry returns the prometheus registry backing the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CallbackError counts an errored callback invocation.
func (m *Metrics) CallbackError(name string) { m.callbackErrors.WithLabelValues(name).Inc() }

// CallbackSkipped counts a dropped overlapping callback invocation.
func (m *Metrics) CallbackSkipped(name string) { m.callbackSkips.WithLabelValues(name).Inc() }

// AlertCreated counts an alert entering the vector.
func (m *Metrics) AlertCreated() { m.alertsCreated.Inc() }

// AlertResolved counts an alert removal.
func (m *Metrics) AlertResolved() { m.alertsResolved.Inc() }

// AlertExpired counts a TTL eviction.
func (m *Metrics) AlertExpired() { m.alertsExpired.Inc() }

// AlertFiltered counts a dropped pushed alert.
func (m *Metrics) AlertFiltered() { m.alertsFiltered.Inc() }

// NocSend counts a NOC send attempt.
func (m *Metrics) NocSend(outcome string) { m.nocSends.WithLabelValues(outcome).Inc() }

// NocVerify counts a NOC verify attempt.
func (m *Metrics) NocVerify(outcome string) { m.nocVerifies.WithLabelValues(outcome).Inc() }

// SetLeader records the current leadership state.
func (m *Metrics) SetLeader(isLeader bool) { m.leader.Set(boolToGauge(isLeader)) }

// SetBreakerHealthy records the circuit breaker state.
func (m *Metrics) SetBreakerHealthy(healthy bool) { m.breakerHealthy.Set(boolToGauge(healthy)) }

// SetActiveAlerts records the vector size.
func (m *Metrics) SetActiveAlerts(n int) { m.activeAlerts.Set(float64(n)) }

// HeartbeatFileWritten counts a heartbeat file write.
func (m *Metrics) HeartbeatFileWritten() { m.heartbeatWrites.Inc() }

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
