// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package k8slayer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/util"
)

const (
	// APIFingerprint identifies the kube API reachability alert.
	APIFingerprint = "k8s-layer-api"
	// PrometheusFingerprint identifies the prometheus pod health alert.
	PrometheusFingerprint = "k8s-layer-prometheus"
	// KsmFingerprint identifies the kube-state-metrics pod health alert.
	KsmFingerprint = "k8s-layer-ksm"

	apiPriority        = -10
	prometheusPriority = -9
	ksmPriority        = -8

	source = "k8s-layer"

	apiCheckAttempts = 3
	apiCheckBackoff  = 2 * time.Second
)

// Status is the result of the latest polling cycle, served on the status API.
type Status struct {
	APIServerHealthy  bool      `json:"apiServerHealthy"`
	PrometheusHealthy bool      `json:"prometheusHealthy"`
	KsmHealthy        bool      `json:"ksmHealthy"`
	CheckedAt         time.Time `json:"checkedAt"`
	ExecutionID       string    `json:"executionId"`
}

type checkResult struct {
	healthy bool
	message string
}

// Layer polls the kubernetes layer: API server reachability, prometheus pod
// health and kube-state-metrics pod health. Every cycle emits all three alerts
// as CREATE or CANCEL so the alerts vector always reflects current state.
type Layer struct {
	client   kubernetes.Interface
	config   mapi.K8sLayerConfig
	defaults mapi.DefaultNocConfig
	vector   *alerts.Vector

	promRestarts *restartTracker
	ksmRestarts  *restartTracker

	mu         sync.Mutex
	lastStatus Status

	logger logr.Logger
}

// New creates the kubernetes layer source.
func New(client kubernetes.Interface, config mapi.K8sLayerConfig, defaults mapi.DefaultNocConfig, vector *alerts.Vector, logger logr.Logger) *Layer {
	windowSize := *config.RestartTracking.WindowSize
	threshold := *config.RestartTracking.RestartThreshold
	return &Layer{
		client:       client,
		config:       config,
		defaults:     defaults,
		vector:       vector,
		promRestarts: newRestartTracker(windowSize, threshold),
		ksmRestarts:  newRestartTracker(windowSize, threshold),
		logger:       logger.WithName("k8s-layer"),
	}
}

// LastStatus returns the result of the latest polling cycle.
func (l *Layer) LastStatus() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastStatus
}

// Tick runs one polling cycle. It is registered as a non-grace-aware central
// timer callback. All three checks run in parallel and share one execution id.
func (l *Layer) Tick(ctx context.Context, _ int64, correlationID string) error {
	executionID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	var api, prom, ksm checkResult
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		api = l.checkAPIServer(ctx)
	}()
	go func() {
		defer wg.Done()
		prom = l.checkPods(ctx, "prometheus", l.config.PrometheusPodSelector, l.promRestarts)
	}()
	go func() {
		defer wg.Done()
		ksm = l.checkPods(ctx, "kube-state-metrics", l.config.KsmPodSelector, l.ksmRestarts)
	}()
	wg.Wait()

	l.mu.Lock()
	l.lastStatus = Status{
		APIServerHealthy:  api.healthy,
		PrometheusHealthy: prom.healthy,
		KsmHealthy:        ksm.healthy,
		CheckedAt:         time.Now(),
		ExecutionID:       executionID,
	}
	l.mu.Unlock()

	l.logger.V(1).Info("Kubernetes layer polled", "apiServerHealthy", api.healthy, "prometheusHealthy", prom.healthy,
		"ksmHealthy", ksm.healthy, "executionId", executionID, "correlationId", correlationID)

	if err := l.emit(APIFingerprint, apiPriority, "Kubernetes API unreachable", api, executionID); err != nil {
		return err
	}
	if err := l.emit(PrometheusFingerprint, prometheusPriority, "Prometheus unhealthy", prom, executionID); err != nil {
		return err
	}
	return l.emit(KsmFingerprint, ksmPriority, "Kube-state-metrics unhealthy", ksm, executionID)
}

func (l *Layer) checkAPIServer(ctx context.Context) checkResult {
	result := util.Retry(ctx, l.logger, "api-server-version",
		func() (any, error) {
			return l.client.Discovery().ServerVersion()
		}, apiCheckAttempts, apiCheckBackoff, util.AlwaysRetry)
	if result.Err != nil {
		return checkResult{healthy: false, message: fmt.Sprintf("kubernetes API server is unreachable: %v", result.Err)}
	}
	return checkResult{healthy: true, message: "kubernetes API server is reachable"}
}

func (l *Layer) checkPods(ctx context.Context, what, selector string, restarts *restartTracker) checkResult {
	pods, err := l.client.CoreV1().Pods(l.config.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return checkResult{healthy: false, message: fmt.Sprintf("failed to list %s pods: %v", what, err)}
	}
	if len(pods.Items) == 0 {
		return checkResult{healthy: false, message: fmt.Sprintf("no %s pods found for selector %q", what, selector)}
	}
	ready := false
	var totalRestarts int32
	for i := range pods.Items {
		if isPodReady(&pods.Items[i]) {
			ready = true
		}
		for _, cs := range pods.Items[i].Status.ContainerStatuses {
			totalRestarts += cs.RestartCount
		}
	}
	if !ready {
		return checkResult{healthy: false, message: fmt.Sprintf("no %s pod is ready", what)}
	}
	if restarts.observe(totalRestarts) {
		return checkResult{healthy: false, message: fmt.Sprintf("%s pods restarted too often within the tracking window", what)}
	}
	return checkResult{healthy: true, message: fmt.Sprintf("%s pods are healthy", what)}
}

func (l *Layer) emit(fingerprint string, priority int, name string, result checkResult, executionID string) error {
	status := alerts.StatusCancel
	if !result.healthy {
		status = alerts.StatusCreate
	}
	return l.vector.UpdateAlert(&alerts.Alert{
		Fingerprint: fingerprint,
		Priority:    priority,
		Name:        name,
		Source:      source,
		Status:      status,
		Summary:     name,
		Description: result.message,
		Payload:     alerts.DefaultPayload(l.defaults, status),
		SendToNoc:   true,
		Timestamp:   time.Now(),
		ExecutionID: executionID,
	})
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
