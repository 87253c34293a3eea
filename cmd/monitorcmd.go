// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/coordinator"
	"github.com/kataniwayou/argus/internal/heartbeat"
	"github.com/kataniwayou/argus/internal/leader"
	"github.com/kataniwayou/argus/internal/monitor"
	"github.com/kataniwayou/argus/internal/noc"
	"github.com/kataniwayou/argus/internal/server"
	"github.com/kataniwayou/argus/internal/sources/k8slayer"
	"github.com/kataniwayou/argus/internal/sources/prompush"
	"github.com/kataniwayou/argus/internal/sources/statusfs"
	"github.com/kataniwayou/argus/internal/util"
	"github.com/kataniwayou/argus/internal/watchdog"
)

var (
	// MonitorCmd stores info about using the monitor command
	MonitorCmd = &Command{
		Name:      "monitor",
		UsageLine: "",
		ShortDesc: "Aggregates health signals and forwards active alerts to the NOC",
		LongDesc: `Runs the monitoring sidecar. A central timer drives the kubernetes layer poll, the watchdog
expiration, the filesystem probe, the NOC snapshot cycle and the heartbeat. A replicated deployment
elects one leader through a kubernetes lease; only the leader performs the NOC send phase and writes
the on-disk liveness heartbeat consumed by the external monitor.

Flags:
	--config-path
		Path of the configuration file containing the monitor configuration
	--server-bind-addr
		TCP address the ingress and status server binds to
`,
		AddFlags: addMonitorFlags,
		Run:      runMonitor,
	}
	monitorOpts = monitorOptions{}
)

type monitorOptions struct {
	SharedOpts
}

func addMonitorFlags(fs *flag.FlagSet) {
	SetSharedOpts(fs, &monitorOpts.SharedOpts)
}

func runMonitor(ctx context.Context, _ []string, logger logr.Logger) error {
	mLogger := logger.WithName("monitor")
	config, err := monitor.LoadConfig(monitorOpts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to parse monitor config file %s : %w", monitorOpts.ConfigPath, err)
	}

	restConf := ctrl.GetConfigOrDie()
	clientset, err := kubernetes.NewForConfig(restConf)
	if err != nil {
		return fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	metrics := monitor.NewMetrics()
	timer := coordinator.NewCentralTimer(*config.Coordinator.SnapshotIntervalSeconds, *config.Coordinator.StartupGracePeriodMultiplier, metrics, mLogger)
	liveness := coordinator.NewLivenessVector()

	defaultCreateWindow := behaviorWindow(config.DefaultNoc.CreateNocBehavior, mLogger)
	defaultCancelWindow := behaviorWindow(config.DefaultNoc.CancelNocBehavior, mLogger)
	suppression := alerts.NewSuppressionCache(timer, defaultCreateWindow, defaultCancelWindow, mLogger)

	ttl, err := util.ParseWindow(config.AlertsVector.AlertTtl)
	if err != nil {
		return fmt.Errorf("invalid alert TTL %s: %w", config.AlertsVector.AlertTtl, err)
	}
	vector := alerts.NewVector(int64(ttl/time.Second), timer, suppression, metrics, mLogger)

	elector := leader.NewElector(clientset, config.LeaderElection, metrics, mLogger)
	health := noc.NewHealth(*config.Noc.CircuitBreaker.FailureThreshold, metrics, mLogger)
	nocClient := noc.NewClient(config.Noc.HttpClient, mLogger)
	twoPhase := noc.NewTwoPhase(nocClient, elector, health, metrics, mLogger)
	queue := noc.NewQueue()
	dispatcher := noc.NewDispatcher(queue, vector, suppression, twoPhase, config.Noc.HttpClient, *config.Noc.Enabled, mLogger)
	snapshotter := noc.NewSnapshotter(vector, suppression, queue, timer, mLogger)

	wd := watchdog.New(config.Watchdog, timer, vector, mLogger)
	layer := k8slayer.New(clientset, config.K8sLayer, config.DefaultNoc, vector, mLogger)
	fsProbe := statusfs.New(config.Heartbeat.File.DestinationPath, config.DefaultNoc, vector, mLogger)

	fileWriter := heartbeat.NewFileWriter(config.Heartbeat.File.DestinationPath, metrics, mLogger)
	hbService := heartbeat.NewService(liveness, elector, health, twoPhase, config.Heartbeat, config.Noc.HttpClient, fileWriter, mLogger)

	processor := prompush.NewProcessor(vector, wd, config.DefaultNoc, config.Watchdog.AlertName, metrics, mLogger)
	srv := server.New(monitorOpts.ServerBindAddress, processor, vector, wd, layer, liveness, health, elector, timer, metrics, mLogger)

	registrations := []struct {
		name             string
		intervalTicks    int64
		gracePeriodAware bool
		tick             func(ctx context.Context, tick int64, correlationID string) error
	}{
		{"leader-election", int64(*config.LeaderElection.RenewIntervalSeconds), false, elector.Tick},
		{"k8s-layer", int64(*config.K8sLayer.PollingIntervalSeconds), false, layer.Tick},
		{"status-filesystem", int64(*config.StatusFileSystem.PollingIntervalSeconds), false, fsProbe.Tick},
		{"heartbeat", int64(*config.Heartbeat.IntervalSeconds), false, hbService.Tick},
		{"watchdog", wd.TimeoutTicks(), true, wd.Tick},
		{"noc-snapshot", int64(*config.Coordinator.SnapshotIntervalSeconds), true, snapshotter.Tick},
	}
	for _, reg := range registrations {
		if err := registerStamped(timer, liveness, metrics, mLogger, reg.name, reg.intervalTicks, reg.gracePeriodAware, reg.tick); err != nil {
			return err
		}
	}

	go timer.Run(ctx)
	go dispatcher.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("ingress server failed: %w", err)
		}
	case <-ctx.Done():
		<-serverErr
	}
	elector.Shutdown()
	return nil
}

// registerStamped registers a callback which stamps the liveness vector only
// when its tick returns without error. Errored ticks are counted and leave the
// liveness entry to age, which is how stuck callbacks surface.
func registerStamped(timer *coordinator.CentralTimer, liveness *coordinator.LivenessVector, metrics *monitor.Metrics, logger logr.Logger,
	name string, intervalTicks int64, gracePeriodAware bool, tick func(ctx context.Context, tick int64, correlationID string) error) error {
	return timer.Register(name, intervalTicks, gracePeriodAware, func(ctx context.Context, currentTick int64, correlationID string) {
		if err := tick(ctx, currentTick, correlationID); err != nil {
			logger.Error(err, "Callback failed", "callback", name, "tick", currentTick, "correlationId", correlationID)
			metrics.CallbackError(name)
			return
		}
		liveness.RecordExecution(name, intervalTicks, currentTick)
	})
}

// behaviorWindow parses the suppression window of a default NOC behavior.
// Missing or unparseable windows fall back to no suppression.
func behaviorWindow(behavior *mapi.NocBehavior, logger logr.Logger) time.Duration {
	if behavior == nil || behavior.SuppressWindow == "" {
		return 0
	}
	window, err := util.ParseWindow(behavior.SuppressWindow)
	if err != nil {
		logger.Info("Ignoring unparseable default suppress window", "value", behavior.SuppressWindow, "err", err.Error())
		return 0
	}
	return window
}
