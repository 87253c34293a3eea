// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package prompush

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/monitor"
)

const (
	platformLabel  = "platform"
	platformValue  = "argus"
	alertNameLabel = "alertname"
	sourceLabel    = "source"
	priorityLabel  = "priority"

	statusFiring   = "firing"
	statusResolved = "resolved"

	defaultSource = "prometheus"
)

// Alert is the alertmanager v2 alert object pushed to the ingress endpoint.
type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	Status      string            `json:"status"`
	StartsAt    time.Time         `json:"startsAt"`
	EndsAt      time.Time         `json:"endsAt"`
	Fingerprint string            `json:"fingerprint"`
}

// heartbeatSink receives watchdog heartbeats. It is implemented by the watchdog.
type heartbeatSink interface {
	RecordHeartbeat()
}

// Processor converts pushed alertmanager alerts into vector alerts. Alerts not
// addressed to this monitor are counted and dropped, firing watchdog alerts
// only feed the watchdog heartbeat.
type Processor struct {
	vector            *alerts.Vector
	watchdog          heartbeatSink
	defaults          mapi.DefaultNocConfig
	watchdogAlertName string
	metrics           *monitor.Metrics
	logger            logr.Logger
}

// NewProcessor creates the push processor.
func NewProcessor(vector *alerts.Vector, watchdog heartbeatSink, defaults mapi.DefaultNocConfig, watchdogAlertName string,
	metrics *monitor.Metrics, logger logr.Logger) *Processor {
	return &Processor{
		vector:            vector,
		watchdog:          watchdog,
		defaults:          defaults,
		watchdogAlertName: watchdogAlertName,
		metrics:           metrics,
		logger:            logger.WithName("prometheus-push"),
	}
}

// Process handles one pushed batch.
func (p *Processor) Process(pushed []Alert) {
	for i := range pushed {
		p.processOne(&pushed[i])
	}
}

func (p *Processor) processOne(pushed *Alert) {
	if pushed.Labels[platformLabel] != platformValue {
		p.metrics.AlertFiltered()
		p.logger.V(1).Info("Filtered pushed alert without platform label", "alertname", pushed.Labels[alertNameLabel])
		return
	}
	if pushed.Labels[alertNameLabel] == p.watchdogAlertName {
		if pushed.Status == statusFiring {
			p.watchdog.RecordHeartbeat()
		}
		return
	}

	status := alerts.StatusCreate
	if pushed.Status == statusResolved {
		status = alerts.StatusCancel
	}
	a := &alerts.Alert{
		Fingerprint: pushed.Fingerprint,
		Priority:    parsePriority(pushed.Labels[priorityLabel]),
		Name:        pushed.Labels[alertNameLabel],
		Source:      sourceOf(pushed.Labels),
		Status:      status,
		Summary:     pushed.Annotations["summary"],
		Description: pushed.Annotations["description"],
		Payload:     alerts.DefaultPayload(p.defaults, status),
		SendToNoc:   true,
		Timestamp:   timestampOf(pushed, status),
		ExecutionID: strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Annotations: pushed.Annotations,
	}
	if err := p.vector.UpdateAlert(a); err != nil {
		p.logger.Info("Rejected pushed alert", "alertname", a.Name, "err", err.Error())
	}
}

// parsePriority reads the priority label. Pushed alerts never rank above the
// infrastructure alerts, so negative values are clamped to zero.
func parsePriority(raw string) int {
	priority, err := strconv.Atoi(raw)
	if err != nil || priority < 0 {
		return 0
	}
	return priority
}

func sourceOf(labels map[string]string) string {
	if s := labels[sourceLabel]; s != "" {
		return s
	}
	return defaultSource
}

func timestampOf(pushed *Alert, status alerts.Status) time.Time {
	if status == alerts.StatusCancel && !pushed.EndsAt.IsZero() {
		return pushed.EndsAt
	}
	if !pushed.StartsAt.IsZero() {
		return pushed.StartsAt
	}
	return time.Now()
}
