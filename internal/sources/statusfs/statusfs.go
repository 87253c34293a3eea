// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package statusfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
)

const (
	// Fingerprint identifies the status filesystem alert.
	Fingerprint = "status-filesystem"
	// Priority is the fixed priority of the status filesystem alert.
	Priority = -6

	source = "status-filesystem"
)

// Probe verifies that the heartbeat destination directory exists and is
// writable by creating and deleting a unique probe file.
type Probe struct {
	directory string
	defaults  mapi.DefaultNocConfig
	vector    *alerts.Vector
	logger    logr.Logger
}

// New creates the filesystem probe for the directory holding the given
// heartbeat file.
func New(heartbeatPath string, defaults mapi.DefaultNocConfig, vector *alerts.Vector, logger logr.Logger) *Probe {
	return &Probe{
		directory: filepath.Dir(heartbeatPath),
		defaults:  defaults,
		vector:    vector,
		logger:    logger.WithName("status-filesystem"),
	}
}

// Tick runs one probe. It is registered as a non-grace-aware central timer
// callback.
func (p *Probe) Tick(_ context.Context, _ int64, correlationID string) error {
	err := p.probe()
	status := alerts.StatusCancel
	message := fmt.Sprintf("heartbeat directory %s is writable", p.directory)
	if err != nil {
		status = alerts.StatusCreate
		message = err.Error()
		p.logger.Info("Heartbeat directory probe failed", "directory", p.directory, "correlationId", correlationID, "err", err.Error())
	}
	return p.vector.UpdateAlert(&alerts.Alert{
		Fingerprint: Fingerprint,
		Priority:    Priority,
		Name:        "Heartbeat filesystem unavailable",
		Source:      source,
		Status:      status,
		Summary:     "Heartbeat filesystem unavailable",
		Description: message,
		Payload:     alerts.DefaultPayload(p.defaults, status),
		SendToNoc:   true,
		Timestamp:   time.Now(),
		ExecutionID: strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	})
}

func (p *Probe) probe() error {
	info, err := os.Stat(p.directory)
	if err != nil {
		return fmt.Errorf("heartbeat directory %s is not accessible: %w", p.directory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("heartbeat destination %s is not a directory", p.directory)
	}
	probeFile := filepath.Join(p.directory, fmt.Sprintf(".argus-probe-%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:8]))
	if err := os.WriteFile(probeFile, []byte("probe"), 0o600); err != nil {
		return fmt.Errorf("heartbeat directory %s is not writable: %w", p.directory, err)
	}
	if err := os.Remove(probeFile); err != nil {
		return fmt.Errorf("failed to remove probe file %s: %w", probeFile, err)
	}
	return nil
}
