// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"reflect"
	"strings"

	multierr "github.com/hashicorp/go-multierror"
)

// Validator is a struct to store all validation errors.
type Validator struct {
	Error error
}

// MustNotBeEmpty checks whether the given value is empty. It returns false if it is empty or nil.
func (v *Validator) MustNotBeEmpty(key string, value interface{}) bool {
	if value == nil {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be nil or empty", key))
		return false
	}
	cv := reflect.ValueOf(value)
	switch cv.Kind() {
	case reflect.String:
		if strings.TrimSpace(cv.String()) == "" {
			v.Error = multierr.Append(v.Error, fmt.Errorf("value for key %s must not be empty", key))
			return false
		}
	case reflect.Slice:
		if cv.Len() == 0 {
			v.Error = multierr.Append(v.Error, fmt.Errorf("value for key %s must not be empty", key))
			return false
		}
	case reflect.Map:
		if cv.Len() == 0 {
			v.Error = multierr.Append(v.Error, fmt.Errorf("value for key %s must not be empty", key))
			return false
		}
	default:
		v.Error = multierr.Append(v.Error, fmt.Errorf("unsupported type of value for key %s. do not know how to check if it is empty", key))
		return false
	}
	return true
}

// MustNotBeNil checks whether the given value is nil and returns false if it is nil.
func (v *Validator) MustNotBeNil(key string, value interface{}) bool {
	if value == nil || reflect.ValueOf(value).IsNil() {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be nil", key))
		return false
	}
	return true
}

// MustBePositive checks whether the given value is greater than zero.
func (v *Validator) MustBePositive(key string, value int) bool {
	if value <= 0 {
		v.Error = multierr.Append(v.Error, fmt.Errorf("value for key %s must be positive, got %d", key, value))
		return false
	}
	return true
}

// MustBeSmaller checks whether value is strictly smaller than the bound.
func (v *Validator) MustBeSmaller(key string, value, bound int) bool {
	if value >= bound {
		v.Error = multierr.Append(v.Error, fmt.Errorf("value for key %s must be smaller than %d, got %d", key, bound, value))
		return false
	}
	return true
}
