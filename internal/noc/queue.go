// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"sync"
	"time"

	"github.com/kataniwayou/argus/internal/alerts"
)

// DecisionKind tags the variant of a queued NOC decision.
type DecisionKind string

const (
	// DecisionHandleCreate dispatches a single CREATE alert.
	DecisionHandleCreate DecisionKind = "HandleCreate"
	// DecisionHandleCancels dispatches a batch of CANCEL alerts.
	DecisionHandleCancels DecisionKind = "HandleCancels"
)

// Decision is one element of the dispatch queue. Decisions live only between
// enqueue and dispatch.
type Decision struct {
	Kind          DecisionKind
	Create        *alerts.Alert
	Cancels       []alerts.Alert
	SnapshotTime  time.Time
	CorrelationID string
}

// Queue is the FIFO between the snapshot cycle and the dispatcher. It is
// drained by exactly one consumer.
type Queue struct {
	mu    sync.Mutex
	items []Decision
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a decision.
func (q *Queue) Enqueue(d Decision) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, d)
}

// Dequeue pops the oldest decision. It reports false when the queue is empty.
func (q *Queue) Dequeue() (Decision, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Decision{}, false
	}
	d := q.items[0]
	q.items = q.items[1:]
	return d, true
}

// Len returns the number of queued decisions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
