// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"

	"cogentcore.org/core/base/errors"
)

var (
	// ErrResourceCreation is the kind of error returned when a GPU object
	// cannot be created. It is fatal: there is no fallback.
	ErrResourceCreation = errors.New("gpu: resource creation failed")

	// ErrIO is the kind of error returned when a shader or texture asset
	// is missing or unreadable.
	ErrIO = errors.New("gpu: asset unreadable")

	// ErrPrecondition is the kind of error returned when an operation is
	// invoked in a state where it is not allowed.
	ErrPrecondition = errors.New("precondition failed")

	// ErrDegradedFrame marks a frame that was skipped.
	// It is logged, never returned from the frame loop.
	ErrDegradedFrame = errors.New("degraded frame")

	// ErrPoolExhausted is returned when a fixed capacity descriptor pool
	// has no room left for another allocation.
	ErrPoolExhausted = errors.New("gpu: descriptor pool exhausted")
)

// ResourceError is an error about a named object, of one of the
// kinds above. errors.Is matches both the Kind and the cause.
type ResourceError struct {
	// Kind is one of the sentinel errors of this package.
	Kind error

	// Object names what was being created or loaded.
	Object string

	// Err is the underlying cause, which may be nil.
	Err error
}

func (re *ResourceError) Error() string {
	if re.Err == nil {
		return fmt.Sprintf("%v: %s", re.Kind, re.Object)
	}
	return fmt.Sprintf("%v: %s: %v", re.Kind, re.Object, re.Err)
}

func (re *ResourceError) Unwrap() []error {
	if re.Err == nil {
		return []error{re.Kind}
	}
	return []error{re.Kind, re.Err}
}

// NewResourceError returns an [ErrResourceCreation] error for the object.
func NewResourceError(object string, err error) error {
	return &ResourceError{Kind: ErrResourceCreation, Object: object, Err: err}
}

// NewIOError returns an [ErrIO] error for the given path.
func NewIOError(path string, err error) error {
	return &ResourceError{Kind: ErrIO, Object: path, Err: err}
}

// NewPreconditionError returns an [ErrPrecondition] error with the
// formatted message as its object.
func NewPreconditionError(format string, args ...any) error {
	return &ResourceError{Kind: ErrPrecondition, Object: fmt.Sprintf(format, args...)}
}
