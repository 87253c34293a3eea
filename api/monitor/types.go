// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package monitor

// Config is the root of the monitor configuration. It mirrors the single
// top-level section of the mounted config-map YAML file.
type Config struct {
	// Argus holds the entire monitor configuration tree.
	Argus ArgusConfig `json:"argus"`
}

// ArgusConfig provides typed access to the monitor configuration.
type ArgusConfig struct {
	// Coordinator configures the central timer and the NOC snapshot cycle.
	Coordinator CoordinatorConfig `json:"coordinator"`
	// LeaderElection configures the kubernetes lease based leader election.
	LeaderElection LeaderElectionConfig `json:"leaderElection"`
	// K8sLayer configures the kubernetes layer health source.
	K8sLayer K8sLayerConfig `json:"k8sLayer"`
	// Watchdog configures the expiration of the external watchdog heartbeat.
	Watchdog WatchdogConfig `json:"watchdog"`
	// StatusFileSystem configures the heartbeat destination directory probe.
	StatusFileSystem StatusFileSystemConfig `json:"statusFileSystem"`
	// AlertsVector configures the in-memory alert store.
	AlertsVector AlertsVectorConfig `json:"alertsVector"`
	// DefaultNoc holds the NOC behaviors applied to alerts which do not carry their own.
	DefaultNoc DefaultNocConfig `json:"defaultNoc"`
	// Noc configures the NOC HTTP contract and its circuit breaker.
	Noc NocConfig `json:"noc"`
	// Heartbeat configures the NOC and file heartbeats.
	Heartbeat HeartbeatConfig `json:"heartbeat"`
}

// CoordinatorConfig configures the central timer.
type CoordinatorConfig struct {
	// SnapshotIntervalSeconds is the interval with which the NOC snapshot callback runs.
	SnapshotIntervalSeconds *int `json:"snapshotIntervalSeconds,omitempty"`
	// StartupGracePeriodMultiplier scales the snapshot interval to derive the startup
	// grace period. Values below 1.0 are raised to 1.0.
	StartupGracePeriodMultiplier *float64 `json:"startupGracePeriodMultiplier,omitempty"`
}

// LeaderElectionConfig configures the lease based leader election.
type LeaderElectionConfig struct {
	// LeaseName is the name of the coordination.k8s.io/v1 Lease resource.
	LeaseName string `json:"leaseName"`
	// Namespace is the namespace in which the lease resource lives.
	Namespace string `json:"namespace"`
	// LeaseDurationSeconds is the duration after which a non-renewed lease is considered expired.
	LeaseDurationSeconds *int32 `json:"leaseDurationSeconds,omitempty"`
	// RenewIntervalSeconds is the interval with which the elector ticks. It must be
	// smaller than LeaseDurationSeconds.
	RenewIntervalSeconds *int `json:"renewIntervalSeconds,omitempty"`
	// RetryIntervalSeconds is accepted and defaulted but not read by the elector;
	// a follower retries acquisition on its next renew-interval tick.
	RetryIntervalSeconds *int `json:"retryIntervalSeconds,omitempty"`
}

// K8sLayerConfig configures the kubernetes layer health source.
type K8sLayerConfig struct {
	// PollingIntervalSeconds is the interval with which the layer checks run.
	PollingIntervalSeconds *int `json:"pollingIntervalSeconds,omitempty"`
	// Namespace is the namespace in which the observed pods run.
	Namespace string `json:"namespace"`
	// PrometheusPodSelector is the label selector identifying the prometheus pods.
	PrometheusPodSelector string `json:"prometheusPodSelector"`
	// KsmPodSelector is the label selector identifying the kube-state-metrics pods.
	KsmPodSelector string `json:"ksmPodSelector"`
	// RestartTracking configures the container restart window check.
	RestartTracking RestartTrackingConfig `json:"restartTracking"`
}

// RestartTrackingConfig bounds the number of container restarts tolerated
// within the observation window.
type RestartTrackingConfig struct {
	// WindowSize is the number of polling cycles kept in the observation window.
	WindowSize *int `json:"windowSize,omitempty"`
	// RestartThreshold is the number of restarts within the window at which a pod
	// is reported unhealthy.
	RestartThreshold *int32 `json:"restartThreshold,omitempty"`
}

// WatchdogConfig configures the expiration of the external watchdog heartbeat.
type WatchdogConfig struct {
	// AlertName is the alertmanager alert name whose firing notifications are
	// treated as watchdog heartbeats.
	AlertName string `json:"alertName,omitempty"`
	// TimeoutSeconds is the age at which the last received heartbeat is considered expired.
	TimeoutSeconds *int `json:"timeoutSeconds,omitempty"`
	// CreateNocBehavior is the NOC behavior used when the watchdog heartbeat is missing.
	CreateNocBehavior *NocBehavior `json:"createNocBehavior,omitempty"`
	// CancelNocBehavior is the NOC behavior used when the watchdog heartbeat is healthy.
	CancelNocBehavior *NocBehavior `json:"cancelNocBehavior,omitempty"`
}

// StatusFileSystemConfig configures the heartbeat destination directory probe.
type StatusFileSystemConfig struct {
	// PollingIntervalSeconds is the interval with which the directory probe runs.
	PollingIntervalSeconds *int `json:"pollingIntervalSeconds,omitempty"`
}

// AlertsVectorConfig configures the in-memory alert store.
type AlertsVectorConfig struct {
	// AlertTtl is the duration (grammar: <decimal><s|m|h|d>) after which an alert
	// that has not been re-seen is evicted.
	AlertTtl string `json:"alertTtl,omitempty"`
}

// DefaultNocConfig holds the default NOC behaviors per alert status.
type DefaultNocConfig struct {
	// CreateNocBehavior applies to alerts with status CREATE.
	CreateNocBehavior *NocBehavior `json:"createNocBehavior,omitempty"`
	// CancelNocBehavior applies to alerts with status CANCEL.
	CancelNocBehavior *NocBehavior `json:"cancelNocBehavior,omitempty"`
}

// NocBehavior bundles the NOC payload template and the suppression window
// applied to an alert of a given status.
type NocBehavior struct {
	// Payload is the NOC payload template sent on the wire.
	Payload *NocPayload `json:"payload,omitempty"`
	// SuppressWindow is the suppression window (grammar: <decimal><s|m|h|d>).
	// An empty string means no suppression.
	SuppressWindow string `json:"suppressWindow,omitempty"`
}

// NocPayload is the NOC wire payload. Field names follow the NOC HTTP contract.
type NocPayload struct {
	Custom1        string `json:"custom1"`
	Custom2        string `json:"custom2"`
	HostName       string `json:"hostName"`
	Level          int    `json:"level"`
	Message        string `json:"message"`
	Severity       string `json:"severity"`
	Source         string `json:"source"`
	SuppressionKey string `json:"suppressionKey"`
	Visible        bool   `json:"visible"`
}

// NocVerifyFilter is the filter document posted to the verify endpoint. It has
// the payload shape plus the userTga fields which are always sent empty.
type NocVerifyFilter struct {
	NocPayload
	UserTga1 string `json:"userTga1"`
	UserTga2 string `json:"userTga2"`
	UserTga3 string `json:"userTga3"`
}

// NocConfig configures the NOC HTTP contract.
type NocConfig struct {
	// Enabled is the master kill-switch for all NOC HTTP traffic.
	Enabled *bool `json:"enabled,omitempty"`
	// HttpClient configures the NOC HTTP client.
	HttpClient NocHttpClientConfig `json:"httpClient"`
	// CircuitBreaker configures the consecutive-failure circuit breaker.
	CircuitBreaker CircuitBreakerConfig `json:"circuitBreaker"`
}

// NocHttpClientConfig configures the NOC HTTP client.
type NocHttpClientConfig struct {
	// SendEndpoint is the URL to which alert and heartbeat payloads are posted.
	SendEndpoint string `json:"sendEndpoint"`
	// VerifyEndpoint is the URL against which sent payloads are verified.
	VerifyEndpoint string `json:"verifyEndpoint"`
	// TimeoutSeconds is the HTTP client timeout.
	TimeoutSeconds *int `json:"timeoutSeconds,omitempty"`
	// BypassSslValidation disables server certificate validation.
	BypassSslValidation bool `json:"bypassSslValidation,omitempty"`
	// ConnectIpAddress, if set, bypasses DNS resolution and dials this address instead.
	ConnectIpAddress string `json:"connectIpAddress,omitempty"`
	// ConnectPort is the port used together with ConnectIpAddress.
	ConnectPort int `json:"connectPort,omitempty"`
	// Username and Password enable HTTP basic auth when Username is non-empty.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// TeamName and SystemName fill the custom1/custom2 payload fields when empty.
	TeamName   string `json:"teamName,omitempty"`
	SystemName string `json:"systemName,omitempty"`
	// HostName fills the hostName payload field when empty.
	HostName string `json:"hostName,omitempty"`
}

// CircuitBreakerConfig configures the shared NOC circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures at which the breaker trips.
	FailureThreshold *int32 `json:"failureThreshold,omitempty"`
}

// HeartbeatConfig configures the NOC heartbeat and the on-disk liveness heartbeat.
type HeartbeatConfig struct {
	// IntervalSeconds is the interval with which the heartbeat callback runs.
	IntervalSeconds *int `json:"intervalSeconds,omitempty"`
	// File configures the on-disk heartbeat consumed by the external monitor.
	File HeartbeatFileConfig `json:"file"`
	// Http configures the NOC heartbeat payload.
	Http HeartbeatHttpConfig `json:"http"`
}

// HeartbeatFileConfig configures the on-disk heartbeat file.
type HeartbeatFileConfig struct {
	// Enabled toggles writing of the heartbeat file.
	Enabled *bool `json:"enabled,omitempty"`
	// DestinationPath is the path of the heartbeat file. The parent directory is
	// created on demand.
	DestinationPath string `json:"destinationPath"`
}

// HeartbeatHttpConfig configures the NOC heartbeat payload.
type HeartbeatHttpConfig struct {
	// Enabled toggles the NOC heartbeat.
	Enabled *bool `json:"enabled,omitempty"`
	// Payload is the heartbeat payload template sent through the two-phase protocol.
	Payload *NocPayload `json:"payload,omitempty"`
}
