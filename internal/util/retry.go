// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// RetryResult captures the outcome of a retried check.
type RetryResult[T any] struct {
	Value T
	Err   error
}

// Retry re-attempts a flaky check, typically a call against the kube API
// server, until one of the following holds:
// 1. the check succeeds,
// 2. `canRetry` classifies the error as permanent,
// 3. `numAttempts` are exhausted,
// 4. the context is cancelled.
// Health sources use this so that a single dropped request does not flip an
// alert; the final error still surfaces as an unhealthy check result.
func Retry[T any](ctx context.Context, logger logr.Logger, operation string, fn func() (T, error), numAttempts int, backOff time.Duration, canRetry func(error) bool) RetryResult[T] {
	var result T
	var err error
	for attempt := 1; attempt <= numAttempts; attempt++ {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping retry", "operation", operation)
			return RetryResult[T]{Err: ctx.Err()}
		default:
		}
		result, err = fn()
		if err == nil {
			return RetryResult[T]{Value: result}
		}
		if !canRetry(err) {
			logger.Info("Error is not retriable, giving up", "operation", operation, "attempt", attempt, "err", err.Error())
			return RetryResult[T]{Err: err}
		}
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping retry", "operation", operation)
			return RetryResult[T]{Err: ctx.Err()}
		case <-time.After(backOff):
			logger.V(1).Info("Retrying operation", "operation", operation, "attempt", attempt, "err", err.Error())
		}
	}
	return RetryResult[T]{Value: result, Err: err}
}

// AlwaysRetry treats every error as retriable.
func AlwaysRetry(_ error) bool {
	return true
}
