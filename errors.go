// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream

import "fmt"

// A ConfigurationError is returned when a combinator is constructed
// with invalid arguments.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// A MappingError is delivered downstream when the mapping function of
// a merge fails, panics, or returns a nil stream. It is treated as a
// failure of the source.
type MappingError struct {
	Err error
}

// Error implements error.
func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping function failed: %v", e.Err)
}

// Unwrap returns the enclosed error.
func (e *MappingError) Unwrap() error { return e.Err }

// A DisposalError indicates that releasing a subscription failed. It
// is delivered downstream if the merge has not yet sent a terminal
// signal. Otherwise, it is returned when the merge is disposed.
type DisposalError struct {
	Err error
}

// Error implements error.
func (e *DisposalError) Error() string {
	return fmt.Sprintf("disposal failed: %v", e.Err)
}

// Unwrap returns the enclosed error.
func (e *DisposalError) Unwrap() error { return e.Err }
