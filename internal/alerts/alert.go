// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package alerts

import (
	"time"

	mapi "github.com/kataniwayou/argus/api/monitor"
)

// Status is the lifecycle status of an alert.
type Status string

const (
	// StatusCreate marks a firing alert which opens an incident.
	StatusCreate Status = "CREATE"
	// StatusCancel marks a resolved alert which closes an incident.
	StatusCancel Status = "CANCEL"
)

// SuppressWindowAnnotation is the annotation key through which a source can
// attach a suppression window to an alert.
const SuppressWindowAnnotation = "suppress_window"

// tickInterval matches the central timer's fixed tick interval and is used to
// convert window durations into ticks.
const tickInterval = time.Second

// Alert is a structured health assertion carried from a source through the
// alerts vector to the NOC dispatch. Its fingerprint is stable across replicas
// and ticks and doubles as the NOC suppression key.
type Alert struct {
	// Fingerprint is the stable identity of the alert and the primary key in the
	// alerts vector. It must not be empty.
	Fingerprint string `json:"fingerprint"`
	// Priority orders alerts, lower means more important. Infrastructure alerts
	// use negative priorities, pushed prometheus alerts are zero or above.
	Priority int `json:"priority"`
	// Name is the human readable alert name.
	Name string `json:"name"`
	// Source names the component which emitted the alert.
	Source string `json:"source"`
	// Status is CREATE or CANCEL.
	Status Status `json:"status"`
	// Summary is the short description, used as wire message fallback.
	Summary string `json:"summary,omitempty"`
	// Description is the long description, preferred as wire message.
	Description string `json:"description,omitempty"`
	// Payload is the NOC payload template for this alert.
	Payload *mapi.NocPayload `json:"payload,omitempty"`
	// SendToNoc controls whether the alert takes the NOC HTTP path at all.
	SendToNoc bool `json:"sendToNoc"`
	// SuppressWindow is the explicit suppression window. Nil falls back to the
	// suppress_window annotation and then to the per-status default, zero
	// disables suppression.
	SuppressWindow *time.Duration `json:"suppressWindow,omitempty"`
	// Timestamp is the wall clock at which the source created the alert.
	Timestamp time.Time `json:"timestamp"`
	// LastSeenTick and LastSeenTimestamp are stamped on every vector update.
	LastSeenTick      int64     `json:"lastSeenTick"`
	LastSeenTimestamp time.Time `json:"lastSeenTimestamp"`
	// ExecutionID is an opaque correlation string assigned once by the emitting
	// source. It travels unchanged to the NOC send.
	ExecutionID string `json:"executionId,omitempty"`
	// Annotations are source provided key value pairs.
	Annotations map[string]string `json:"annotations,omitempty"`
}

// EffectiveMessage returns the description and falls back to the summary.
func (a *Alert) EffectiveMessage() string {
	if a.Description != "" {
		return a.Description
	}
	return a.Summary
}

// TickSource provides the current tick and its wall clock. It is implemented
// by the central timer.
type TickSource interface {
	TickCount() int64
	HeartbeatTimestamp() time.Time
}
