// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"os"
	"time"

	"sigs.k8s.io/yaml"
)

// SleepWithContext sleeps until sleepFor duration has expired or the context has been cancelled.
func SleepWithContext(ctx context.Context, sleepFor time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sleepFor):
		return nil
	}
}

// ReadAndUnmarshall reads file and Unmarshall the contents in a generic type
func ReadAndUnmarshall[T any](filename string) (*T, error) {
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	t := new(T)
	err = yaml.Unmarshal(configBytes, t)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FillDefaultIfNil sets the target to the given default when it is nil.
func FillDefaultIfNil[T any](target **T, defaultValue T) {
	if *target == nil {
		v := defaultValue
		*target = &v
	}
}
