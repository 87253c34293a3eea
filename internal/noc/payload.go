// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
)

const (
	// CreateLevel is the wire level of a CREATE payload.
	CreateLevel = 3
	// CancelLevel is the wire level of a CANCEL payload.
	CancelLevel = 0
)

// BuildPayload materializes the wire payload of an alert. It copies the
// alert's payload template, applies the runtime overrides and fills the custom
// fields and host name from the client configuration when empty.
func BuildPayload(a *alerts.Alert, config mapi.NocHttpClientConfig) *mapi.NocPayload {
	payload := &mapi.NocPayload{}
	if a.Payload != nil {
		*payload = *a.Payload
	}
	if a.Status == alerts.StatusCreate {
		payload.Level = CreateLevel
	} else {
		payload.Level = CancelLevel
	}
	payload.Message = a.EffectiveMessage()
	payload.Source = a.Source
	payload.SuppressionKey = a.Fingerprint
	fillPayloadDefaults(payload, config)
	return payload
}

// fillPayloadDefaults fills custom1, custom2 and hostName from configuration
// when the template left them empty.
func fillPayloadDefaults(payload *mapi.NocPayload, config mapi.NocHttpClientConfig) {
	if payload.Custom1 == "" {
		payload.Custom1 = config.TeamName
	}
	if payload.Custom2 == "" {
		payload.Custom2 = config.SystemName
	}
	if payload.HostName == "" {
		payload.HostName = config.HostName
	}
}

// BuildVerifyFilter derives the verify filter document from a sent payload.
// The userTga fields are always sent empty.
func BuildVerifyFilter(payload *mapi.NocPayload) *mapi.NocVerifyFilter {
	return &mapi.NocVerifyFilter{NocPayload: *payload}
}

// ComparePayloads reports whether the received payload confirms the sent one.
// Only the suppression key, the level and the source have to match.
func ComparePayloads(sent, received *mapi.NocPayload) bool {
	return sent.SuppressionKey == received.SuppressionKey &&
		sent.Level == received.Level &&
		sent.Source == received.Source
}
