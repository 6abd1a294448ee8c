// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package safe contains utilities for executing user-provided
// functions, such as mapping functions, subscriptions, and disposal
// callbacks, without letting a panic escape into the caller's signal
// delivery.
package safe

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const captureDepth = 32

// A RecoveredError associates a recovered panic with a stack trace.
type RecoveredError struct {
	Err   error
	Stack []uintptr
}

// Error implements error.
func (e *RecoveredError) Error() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "recovered: %v\n", e.Err)
	frames := runtime.CallersFrames(e.Stack)
	for {
		frame, more := frames.Next()
		_, _ = fmt.Fprintf(&sb, "%s ( %s:%d )\n", frame.Function, frame.File, frame.Line)

		if !more {
			return sb.String()
		}
	}
}

// String is for debugging use only.
func (e *RecoveredError) String() string {
	return e.Error()
}

// Unwrap return the enclosed error.
func (e *RecoveredError) Unwrap() error { return e.Err }

// Call executes the function. If the function panics, a
// [RecoveredError] will be returned.
func Call(fn func()) error {
	return CallE(func() error {
		fn()
		return nil
	})
}

// CallE executes the function. If the function panics, the recovered
// value will be joined with any error that had already been assigned.
func CallE(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r, err)
		}
	}()
	err = fn()
	return
}

// CallRE executes the function, returning some result value. If the
// function panics, the zero value is returned along with a
// [RecoveredError].
func CallRE[R any](fn func() (R, error)) (ret R, err error) {
	defer func() {
		if r := recover(); r != nil {
			ret = *new(R)
			err = recovered(r, err)
		}
	}()
	ret, err = fn()
	return
}

// Apply is a convenience for invoking a single-argument user function
// via [CallRE].
func Apply[A, R any](fn func(A) (R, error), arg A) (R, error) {
	return CallRE(func() (R, error) { return fn(arg) })
}

// recovered must be called from the deferred function so that the
// captured stack begins at the panicking frame.
func recovered(r any, prior error) error {
	var err error
	if e, ok := r.(error); ok {
		err = e
	} else {
		err = fmt.Errorf("panic: %v", r)
	}
	stack := make([]uintptr, captureDepth)
	stack = stack[:runtime.Callers(3, stack)]
	return &RecoveredError{
		Err:   errors.Join(prior, err),
		Stack: stack,
	}
}
