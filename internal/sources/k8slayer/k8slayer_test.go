// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package k8slayer

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/utils/ptr"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/alerts"
	"github.com/kataniwayou/argus/internal/monitor"
)

const testNamespace = "monitoring"

type fakeTicks struct{ tick int64 }

func (f *fakeTicks) TickCount() int64              { return f.tick }
func (f *fakeTicks) HeartbeatTimestamp() time.Time { return time.Unix(f.tick, 0) }

func readyPod(name, app string, restarts int32) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: testNamespace,
			Labels:    map[string]string{"app": app},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: corev1.ConditionTrue},
			},
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "main", RestartCount: restarts},
			},
		},
	}
}

func pendingPod(name, app string) *corev1.Pod {
	pod := readyPod(name, app, 0)
	pod.Status.Phase = corev1.PodPending
	pod.Status.Conditions = nil
	return pod
}

func newTestLayer(pods ...*corev1.Pod) (*Layer, *alerts.Vector, *fake.Clientset) {
	client := fake.NewSimpleClientset()
	for _, pod := range pods {
		_, _ = client.CoreV1().Pods(testNamespace).Create(context.Background(), pod, metav1.CreateOptions{})
	}
	ticks := &fakeTicks{}
	suppression := alerts.NewSuppressionCache(ticks, 0, 0, logr.Discard())
	vector := alerts.NewVector(1000, ticks, suppression, monitor.NewMetrics(), logr.Discard())
	layer := New(client, mapi.K8sLayerConfig{
		PollingIntervalSeconds: ptr.To(30),
		Namespace:              testNamespace,
		PrometheusPodSelector:  "app=prometheus",
		KsmPodSelector:         "app=kube-state-metrics",
		RestartTracking: mapi.RestartTrackingConfig{
			WindowSize:       ptr.To(5),
			RestartThreshold: ptr.To(int32(3)),
		},
	}, mapi.DefaultNocConfig{}, vector, logr.Discard())
	return layer, vector, client
}

func TestHealthyLayerEmitsOnlyCancels(t *testing.T) {
	g := NewWithT(t)
	layer, vector, _ := newTestLayer(
		readyPod("prometheus-0", "prometheus", 0),
		readyPod("ksm-0", "kube-state-metrics", 0),
	)

	g.Expect(layer.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())

	g.Expect(vector.Count()).To(BeZero(), "cancels for unknown fingerprints never enter the vector")
	status := layer.LastStatus()
	g.Expect(status.APIServerHealthy).To(BeTrue())
	g.Expect(status.PrometheusHealthy).To(BeTrue())
	g.Expect(status.KsmHealthy).To(BeTrue())
	g.Expect(status.ExecutionID).ToNot(BeEmpty())
}

func TestMissingPrometheusPodsRaiseAlert(t *testing.T) {
	g := NewWithT(t)
	layer, vector, _ := newTestLayer(readyPod("ksm-0", "kube-state-metrics", 0))

	g.Expect(layer.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())

	a, ok := vector.GetAlert(PrometheusFingerprint)
	g.Expect(ok).To(BeTrue())
	g.Expect(a.Status).To(Equal(alerts.StatusCreate))
	g.Expect(a.Priority).To(Equal(prometheusPriority))
	_, ok = vector.GetAlert(KsmFingerprint)
	g.Expect(ok).To(BeFalse())
}

func TestUnreadyPodsRaiseAlert(t *testing.T) {
	g := NewWithT(t)
	layer, vector, _ := newTestLayer(
		pendingPod("prometheus-0", "prometheus"),
		readyPod("ksm-0", "kube-state-metrics", 0),
	)

	g.Expect(layer.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())
	a, ok := vector.GetAlert(PrometheusFingerprint)
	g.Expect(ok).To(BeTrue())
	g.Expect(a.Status).To(Equal(alerts.StatusCreate))
}

func TestAllChecksShareOneExecutionID(t *testing.T) {
	g := NewWithT(t)
	layer, vector, _ := newTestLayer()

	g.Expect(layer.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())

	prom, ok := vector.GetAlert(PrometheusFingerprint)
	g.Expect(ok).To(BeTrue())
	ksm, ok := vector.GetAlert(KsmFingerprint)
	g.Expect(ok).To(BeTrue())
	g.Expect(prom.ExecutionID).To(Equal(ksm.ExecutionID))
	g.Expect(prom.ExecutionID).To(Equal(layer.LastStatus().ExecutionID))
}

func TestRecoveryResolvesTheAlert(t *testing.T) {
	g := NewWithT(t)
	layer, vector, client := newTestLayer(readyPod("ksm-0", "kube-state-metrics", 0))

	g.Expect(layer.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())
	_, ok := vector.GetAlert(PrometheusFingerprint)
	g.Expect(ok).To(BeTrue())

	_, err := client.CoreV1().Pods(testNamespace).Create(context.Background(), readyPod("prometheus-0", "prometheus", 0), metav1.CreateOptions{})
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(layer.Tick(context.Background(), 60, "tick-00060-deadbeef")).To(Succeed())
	a, ok := vector.GetAlert(PrometheusFingerprint)
	g.Expect(ok).To(BeTrue())
	g.Expect(a.Status).To(Equal(alerts.StatusCancel))
}

func TestRestartTracker(t *testing.T) {
	g := NewWithT(t)
	tracker := newRestartTracker(3, 3)

	g.Expect(tracker.observe(0)).To(BeFalse())
	g.Expect(tracker.observe(1)).To(BeFalse(), "one restart within the window is tolerated")
	g.Expect(tracker.observe(3)).To(BeTrue(), "three restarts within the window reach the threshold")
	g.Expect(tracker.observe(3)).To(BeFalse(), "the oldest observation left the window")
	g.Expect(tracker.observe(3)).To(BeFalse())
	g.Expect(tracker.observe(3)).To(BeFalse(), "a stable count is healthy again")
}

func TestRestartThresholdBreachedRaisesAlert(t *testing.T) {
	g := NewWithT(t)
	layer, vector, client := newTestLayer(
		readyPod("prometheus-0", "prometheus", 0),
		readyPod("ksm-0", "kube-state-metrics", 0),
	)

	g.Expect(layer.Tick(context.Background(), 30, "tick-00030-deadbeef")).To(Succeed())

	pod, err := client.CoreV1().Pods(testNamespace).Get(context.Background(), "prometheus-0", metav1.GetOptions{})
	g.Expect(err).ToNot(HaveOccurred())
	pod.Status.ContainerStatuses[0].RestartCount = 4
	_, err = client.CoreV1().Pods(testNamespace).UpdateStatus(context.Background(), pod, metav1.UpdateOptions{})
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(layer.Tick(context.Background(), 60, "tick-00060-deadbeef")).To(Succeed())
	a, ok := vector.GetAlert(PrometheusFingerprint)
	g.Expect(ok).To(BeTrue())
	g.Expect(a.Status).To(Equal(alerts.StatusCreate))
}
