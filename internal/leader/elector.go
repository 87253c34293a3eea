// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package leader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	coordinationv1 "k8s.io/api/coordination/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"

	mapi "github.com/kataniwayou/argus/api/monitor"
	"github.com/kataniwayou/argus/internal/monitor"
)

// podNameEnvVar provides the lease holder identity when set.
const podNameEnvVar = "POD_NAME"

// Elector maintains this replica's role through a coordination.k8s.io/v1 lease.
// All replicas run the same tick, only the current holder renews, everybody
// else watches for expiry and claims.
type Elector struct {
	client   kubernetes.Interface
	config   mapi.LeaderElectionConfig
	identity string

	mu            sync.Mutex
	isLeader      bool
	currentHolder string
	subscribers   []func(isLeader bool)

	metrics *monitor.Metrics
	logger  logr.Logger
}

// NewElector creates an elector. The identity is taken from the POD_NAME
// environment variable and falls back to a fresh random identifier.
func NewElector(client kubernetes.Interface, config mapi.LeaderElectionConfig, metrics *monitor.Metrics, logger logr.Logger) *Elector {
	identity := os.Getenv(podNameEnvVar)
	if identity == "" {
		identity = fmt.Sprintf("argus-%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	return &Elector{
		client:   client,
		config:   config,
		identity: identity,
		metrics:  metrics,
		logger:   logger.WithName("leader-elector").WithValues("identity", identity, "lease", config.LeaseName),
	}
}

// Identity returns the lease holder identity of this replica.
func (e *Elector) Identity() string {
	return e.identity
}

// IsLeader reports whether this replica currently holds the lease.
func (e *Elector) IsLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLeader
}

// CurrentLeader returns the identity of the last observed lease holder.
func (e *Elector) CurrentLeader() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentHolder
}

// Subscribe registers a callback invoked on every actual leadership flip.
func (e *Elector) Subscribe(fn func(isLeader bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// Tick runs one round of the lease state machine. It is registered as a
// non-grace-aware central timer callback.
func (e *Elector) Tick(ctx context.Context, _ int64, correlationID string) error {
	if e.IsLeader() {
		return e.renew(ctx, correlationID)
	}
	return e.acquire(ctx, correlationID)
}

func (e *Elector) renew(ctx context.Context, correlationID string) error {
	leases := e.client.CoordinationV1().Leases(e.config.Namespace)
	lease, err := leases.Get(ctx, e.config.LeaseName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) || apierrors.IsConflict(err) {
			e.logger.Info("Lease vanished or conflicted during renewal, stepping down", "correlationId", correlationID)
			e.setLeader(false, "")
			return nil
		}
		e.logger.Info("Failed to read lease during renewal, keeping role", "correlationId", correlationID, "err", err.Error())
		return err
	}
	holder := ptr.Deref(lease.Spec.HolderIdentity, "")
	if holder != e.identity {
		e.logger.Info("Lease has been taken over, stepping down", "holder", holder, "correlationId", correlationID)
		e.setLeader(false, holder)
		return nil
	}
	lease.Spec.RenewTime = &metav1.MicroTime{Time: time.Now()}
	if _, err := leases.Update(ctx, lease, metav1.UpdateOptions{}); err != nil {
		if apierrors.IsConflict(err) || apierrors.IsNotFound(err) {
			e.logger.Info("Lease renewal rejected, stepping down", "correlationId", correlationID, "err", err.Error())
			e.setLeader(false, "")
			return nil
		}
		e.logger.Info("Failed to renew lease, keeping role", "correlationId", correlationID, "err", err.Error())
		return err
	}
	return nil
}

func (e *Elector) acquire(ctx context.Context, correlationID string) error {
	leases := e.client.CoordinationV1().Leases(e.config.Namespace)
	lease, err := leases.Get(ctx, e.config.LeaseName, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			e.logger.Info("Failed to read lease during acquisition", "correlationId", correlationID, "err", err.Error())
			return err
		}
		return e.create(ctx, leases, correlationID)
	}

	now := time.Now()
	holder := ptr.Deref(lease.Spec.HolderIdentity, "")
	expired := lease.Spec.RenewTime == nil ||
		now.Sub(lease.Spec.RenewTime.Time) > time.Duration(ptr.Deref(lease.Spec.LeaseDurationSeconds, *e.config.LeaseDurationSeconds))*time.Second
	if !expired && holder != e.identity {
		e.rememberHolder(holder)
		return nil
	}

	lease.Spec.HolderIdentity = ptr.To(e.identity)
	if lease.Spec.AcquireTime == nil {
		lease.Spec.AcquireTime = &metav1.MicroTime{Time: now}
	}
	lease.Spec.RenewTime = &metav1.MicroTime{Time: now}
	lease.Spec.LeaseDurationSeconds = e.config.LeaseDurationSeconds
	if _, err := leases.Update(ctx, lease, metav1.UpdateOptions{}); err != nil {
		if apierrors.IsConflict(err) {
			e.logger.Info("Lost the race to claim the lease, staying follower", "correlationId", correlationID)
			return nil
		}
		e.logger.Info("Failed to claim lease", "correlationId", correlationID, "err", err.Error())
		return err
	}
	e.logger.Info("Acquired leadership", "previousHolder", holder, "correlationId", correlationID)
	e.setLeader(true, e.identity)
	return nil
}

func (e *Elector) create(ctx context.Context, leases leaseInterface, correlationID string) error {
	now := time.Now()
	lease := &coordinationv1.Lease{
		ObjectMeta: metav1.ObjectMeta{
			Name:      e.config.LeaseName,
			Namespace: e.config.Namespace,
		},
		Spec: coordinationv1.LeaseSpec{
			HolderIdentity:       ptr.To(e.identity),
			LeaseDurationSeconds: e.config.LeaseDurationSeconds,
			AcquireTime:          &metav1.MicroTime{Time: now},
			RenewTime:            &metav1.MicroTime{Time: now},
		},
	}
	if _, err := leases.Create(ctx, lease, metav1.CreateOptions{}); err != nil {
		if apierrors.IsAlreadyExists(err) || apierrors.IsConflict(err) {
			existing, getErr := leases.Get(ctx, e.config.LeaseName, metav1.GetOptions{})
			if getErr == nil {
				e.rememberHolder(ptr.Deref(existing.Spec.HolderIdentity, ""))
			}
			return nil
		}
		e.logger.Info("Failed to create lease", "correlationId", correlationID, "err", err.Error())
		return err
	}
	e.logger.Info("Created lease and acquired leadership", "correlationId", correlationID)
	e.setLeader(true, e.identity)
	return nil
}

// Shutdown silently drops leadership on cancellation so that leader-only work
// stops before the process exits.
func (e *Elector) Shutdown() {
	e.mu.Lock()
	wasLeader := e.isLeader
	e.isLeader = false
	subscribers := e.subscribers
	e.mu.Unlock()
	e.metrics.SetLeader(false)
	if wasLeader {
		for _, fn := range subscribers {
			fn(false)
		}
	}
}

func (e *Elector) rememberHolder(holder string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentHolder = holder
}

// setLeader flips the role and notifies subscribers on actual transitions only.
func (e *Elector) setLeader(isLeader bool, holder string) {
	e.mu.Lock()
	changed := e.isLeader != isLeader
	e.isLeader = isLeader
	e.currentHolder = holder
	subscribers := e.subscribers
	e.mu.Unlock()

	e.metrics.SetLeader(isLeader)
	if !changed {
		return
	}
	if isLeader {
		e.logger.Info("Leadership transition, now leading")
	} else {
		e.logger.Info("Leadership transition, now following", "holder", holder)
	}
	for _, fn := range subscribers {
		fn(isLeader)
	}
}

// leaseInterface narrows the client-go lease client to the operations the
// elector needs, which keeps the fake surface small in tests.
type leaseInterface interface {
	Get(ctx context.Context, name string, opts metav1.GetOptions) (*coordinationv1.Lease, error)
	Create(ctx context.Context, lease *coordinationv1.Lease, opts metav1.CreateOptions) (*coordinationv1.Lease, error)
	Update(ctx context.Context, lease *coordinationv1.Lease, opts metav1.UpdateOptions) (*coordinationv1.Lease, error)
}
