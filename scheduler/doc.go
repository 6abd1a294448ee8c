// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package scheduler contains implementations of [stream.Scheduler].
//
// Both implementations run tasks one at a time, which satisfies the
// serial-delivery requirement of [stream.Sink]. [Virtual] advances a
// simulated timeline on the caller's goroutine and is intended for
// deterministic tests. [Clocked] follows a [clock.Clock], executing
// tasks on the goroutine that calls [Clocked.Run].
package scheduler

import "github.com/juju/loggo"

var logger = loggo.GetLogger("stream.scheduler")
