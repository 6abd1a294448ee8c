// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package disposable contains release handles for stream
// subscriptions.
//
// A [Disposable] represents resources held on behalf of a subscriber.
// Releasing it more than once must be harmless, which [Once] enforces
// by memoizing the first outcome. [Join] and [All] release groups of
// handles concurrently and aggregate every failure with
// [errors.Join]; no failure is dropped in favor of the first one.
//
// A [Deferred] covers the window in which a release is requested
// before the underlying handle exists, e.g. when a stream completes
// synchronously from within its own Subscribe call.
package disposable
