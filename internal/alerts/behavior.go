// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package alerts

import (
	mapi "github.com/kataniwayou/argus/api/monitor"
)

// DefaultPayload picks the default NOC payload template for the given status.
// Sources attach it to alerts which do not carry their own template.
func DefaultPayload(defaults mapi.DefaultNocConfig, status Status) *mapi.NocPayload {
	var behavior *mapi.NocBehavior
	if status == StatusCreate {
		behavior = defaults.CreateNocBehavior
	} else {
		behavior = defaults.CancelNocBehavior
	}
	if behavior == nil {
		return nil
	}
	return behavior.Payload
}
