// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"fmt"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/util"
)

const (
	// DefaultSnapshotIntervalSeconds is the default interval of the NOC snapshot cycle.
	DefaultSnapshotIntervalSeconds = 30
	// DefaultStartupGracePeriodMultiplier is the default scaling of the snapshot interval into the grace period.
	DefaultStartupGracePeriodMultiplier = 1.0
	// DefaultLeaseDurationSeconds is the default duration after which a non-renewed lease expires.
	DefaultLeaseDurationSeconds = int32(30)
	// DefaultRenewIntervalSeconds is the default interval of the leader election tick.
	DefaultRenewIntervalSeconds = 10
	// DefaultRetryIntervalSeconds is the default of the (unused) lease retry interval setting.
	DefaultRetryIntervalSeconds = 2
	// DefaultK8sPollingIntervalSeconds is the default interval of the kubernetes layer poll.
	DefaultK8sPollingIntervalSeconds = 30
	// DefaultRestartTrackingWindowSize is the default number of polling cycles in the restart window.
	DefaultRestartTrackingWindowSize = 10
	// DefaultRestartThreshold is the default number of restarts tolerated within the window.
	DefaultRestartThreshold = int32(3)
	// DefaultWatchdogTimeoutSeconds is the default watchdog heartbeat timeout.
	DefaultWatchdogTimeoutSeconds = 60
	// DefaultStatusFsPollingIntervalSeconds is the default interval of the filesystem probe.
	DefaultStatusFsPollingIntervalSeconds = 60
	// DefaultAlertTtl is the default TTL of alerts which are not re-seen.
	DefaultAlertTtl = "1d"
	// DefaultNocFailureThreshold is the default circuit breaker threshold.
	DefaultNocFailureThreshold = int32(3)
	// DefaultNocTimeoutSeconds is the default NOC HTTP client timeout.
	DefaultNocTimeoutSeconds = 30
	// DefaultHeartbeatIntervalSeconds is the default interval of the heartbeat callback.
	DefaultHeartbeatIntervalSeconds = 30
)

// LoadConfig reads the monitor configuration from a file, unmarshalls it,
// fills in the default values and validates the result.
func LoadConfig(file string) (*mapi.ArgusConfig, error) {
	root, err := util.ReadAndUnmarshall[mapi.Config](file)
	if err != nil {
		return nil, err
	}
	config := &root.Argus
	fillDefaultValues(config)
	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func fillDefaultValues(c *mapi.ArgusConfig) {
	util.FillDefaultIfNil(&c.Coordinator.SnapshotIntervalSeconds, DefaultSnapshotIntervalSeconds)
	util.FillDefaultIfNil(&c.Coordinator.StartupGracePeriodMultiplier, DefaultStartupGracePeriodMultiplier)
	util.FillDefaultIfNil(&c.LeaderElection.LeaseDurationSeconds, DefaultLeaseDurationSeconds)
	util.FillDefaultIfNil(&c.LeaderElection.RenewIntervalSeconds, DefaultRenewIntervalSeconds)
	util.FillDefaultIfNil(&c.LeaderElection.RetryIntervalSeconds, DefaultRetryIntervalSeconds)
	util.FillDefaultIfNil(&c.K8sLayer.PollingIntervalSeconds, DefaultK8sPollingIntervalSeconds)
	util.FillDefaultIfNil(&c.K8sLayer.RestartTracking.WindowSize, DefaultRestartTrackingWindowSize)
	util.FillDefaultIfNil(&c.K8sLayer.RestartTracking.RestartThreshold, DefaultRestartThreshold)
	util.FillDefaultIfNil(&c.Watchdog.TimeoutSeconds, DefaultWatchdogTimeoutSeconds)
	util.FillDefaultIfNil(&c.StatusFileSystem.PollingIntervalSeconds, DefaultStatusFsPollingIntervalSeconds)
	util.FillDefaultIfNil(&c.Noc.Enabled, true)
	util.FillDefaultIfNil(&c.Noc.CircuitBreaker.FailureThreshold, DefaultNocFailureThreshold)
	util.FillDefaultIfNil(&c.Noc.HttpClient.TimeoutSeconds, DefaultNocTimeoutSeconds)
	util.FillDefaultIfNil(&c.Heartbeat.IntervalSeconds, DefaultHeartbeatIntervalSeconds)
	util.FillDefaultIfNil(&c.Heartbeat.File.Enabled, true)
	util.FillDefaultIfNil(&c.Heartbeat.Http.Enabled, true)
	if c.Watchdog.AlertName == "" {
		c.Watchdog.AlertName = "Watchdog"
	}
	if c.AlertsVector.AlertTtl == "" {
		c.AlertsVector.AlertTtl = DefaultAlertTtl
	}
}

func validate(c *mapi.ArgusConfig) error {
	v := new(util.Validator)
	v.MustNotBeEmpty("LeaderElection.LeaseName", c.LeaderElection.LeaseName)
	v.MustNotBeEmpty("LeaderElection.Namespace", c.LeaderElection.Namespace)
	v.MustBePositive("LeaderElection.RenewIntervalSeconds", *c.LeaderElection.RenewIntervalSeconds)
	v.MustBeSmaller("LeaderElection.RenewIntervalSeconds", *c.LeaderElection.RenewIntervalSeconds, int(*c.LeaderElection.LeaseDurationSeconds))
	v.MustBePositive("Coordinator.SnapshotIntervalSeconds", *c.Coordinator.SnapshotIntervalSeconds)
	v.MustBePositive("K8sLayer.PollingIntervalSeconds", *c.K8sLayer.PollingIntervalSeconds)
	v.MustNotBeEmpty("K8sLayer.Namespace", c.K8sLayer.Namespace)
	v.MustNotBeEmpty("K8sLayer.PrometheusPodSelector", c.K8sLayer.PrometheusPodSelector)
	v.MustNotBeEmpty("K8sLayer.KsmPodSelector", c.K8sLayer.KsmPodSelector)
	v.MustBePositive("Watchdog.TimeoutSeconds", *c.Watchdog.TimeoutSeconds)
	v.MustBePositive("StatusFileSystem.PollingIntervalSeconds", *c.StatusFileSystem.PollingIntervalSeconds)
	v.MustBePositive("Heartbeat.IntervalSeconds", *c.Heartbeat.IntervalSeconds)
	if *c.Noc.Enabled {
		v.MustNotBeEmpty("Noc.HttpClient.SendEndpoint", c.Noc.HttpClient.SendEndpoint)
		v.MustNotBeEmpty("Noc.HttpClient.VerifyEndpoint", c.Noc.HttpClient.VerifyEndpoint)
	}
	if *c.Heartbeat.File.Enabled {
		v.MustNotBeEmpty("Heartbeat.File.DestinationPath", c.Heartbeat.File.DestinationPath)
	}
	if v.Error != nil {
		return v.Error
	}
	if _, err := util.ParseWindow(c.AlertsVector.AlertTtl); err != nil {
		return fmt.Errorf("invalid AlertsVector.AlertTtl: %w", err)
	}
	return nil
}
