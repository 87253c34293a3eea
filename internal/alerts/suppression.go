// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/kataniwayou/argus/internal/util"
)

type suppressionEntry struct {
	processedAtTick int64
	windowTicks     int64
}

// SuppressionCache remembers which (fingerprint, status) pairs have recently
// been handed to the NOC dispatch. Entries are overwritten on re-processing and
// cleared on vector removal or dispatch failure, there is no sweeper.
type SuppressionCache struct {
	mu      sync.Mutex
	entries map[string]suppressionEntry

	ticks               TickSource
	defaultCreateWindow time.Duration
	defaultCancelWindow time.Duration
	logger              logr.Logger
}

// NewSuppressionCache creates a suppression cache with the given per-status
// default windows.
func NewSuppressionCache(ticks TickSource, defaultCreateWindow, defaultCancelWindow time.Duration, logger logr.Logger) *SuppressionCache {
	return &SuppressionCache{
		entries:             make(map[string]suppressionEntry),
		ticks:               ticks,
		defaultCreateWindow: defaultCreateWindow,
		defaultCancelWindow: defaultCancelWindow,
		logger:              logger.WithName("suppression-cache"),
	}
}

func suppressionKey(fingerprint string, status Status) string {
	return fmt.Sprintf("%s:%s", fingerprint, status)
}

// effectiveWindow resolves the suppression window of an alert. Resolution
// order: the explicit window, the suppress_window annotation (empty string
// disables suppression, an unparseable value falls through), the per-status
// default.
func (c *SuppressionCache) effectiveWindow(a *Alert) time.Duration {
	if a.SuppressWindow != nil {
		return *a.SuppressWindow
	}
	if raw, ok := a.Annotations[SuppressWindowAnnotation]; ok {
		if raw == "" {
			return 0
		}
		window, err := util.ParseWindow(raw)
		if err == nil {
			return window
		}
		c.logger.V(1).Info("Ignoring unparseable suppress_window annotation", "fingerprint", a.Fingerprint, "value", raw, "err", err.Error())
	}
	if a.Status == StatusCreate {
		return c.defaultCreateWindow
	}
	return c.defaultCancelWindow
}

// WasRecentlyProcessed reports whether the alert was processed within its
// suppression window. An effective window of zero never suppresses.
func (c *SuppressionCache) WasRecentlyProcessed(a *Alert) bool {
	window := c.effectiveWindow(a)
	if window <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[suppressionKey(a.Fingerprint, a.Status)]
	if !ok {
		return false
	}
	return c.ticks.TickCount()-entry.processedAtTick < entry.windowTicks
}

// MarkAsProcessed records the alert as processed at the current tick. Alerts
// whose effective window is zero are not recorded.
func (c *SuppressionCache) MarkAsProcessed(a *Alert) {
	window := c.effectiveWindow(a)
	if window <= 0 {
		return
	}
	windowTicks := int64(window / tickInterval)
	if windowTicks < 1 {
		windowTicks = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[suppressionKey(a.Fingerprint, a.Status)] = suppressionEntry{
		processedAtTick: c.ticks.TickCount(),
		windowTicks:     windowTicks,
	}
}

// UnmarkAsProcessed removes the single (fingerprint, status) entry, re-arming
// the alert for the next snapshot.
func (c *SuppressionCache) UnmarkAsProcessed(a *Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, suppressionKey(a.Fingerprint, a.Status))
}

// ClearFingerprint removes both the CREATE and the CANCEL entries of a fingerprint.
func (c *SuppressionCache) ClearFingerprint(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, suppressionKey(fingerprint, StatusCreate))
	delete(c.entries, suppressionKey(fingerprint, StatusCancel))
}

// Count returns the number of live suppression entries.
func (c *SuppressionCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
