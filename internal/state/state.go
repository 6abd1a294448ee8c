// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package state defines the lifecycle phases of a merge subscription.
package state

import "fmt"

// A Phase is the lifecycle position of a merge subscription. The zero
// value is [Running].
//
// A Phase carries no lock of its own. It is guarded by whatever mutex
// also protects the active-set and pending queue it describes.
type Phase int

const (
	// Running is the initial phase: the source is subscribed and may
	// still emit events.
	Running Phase = iota
	// SourceEnded means the source has completed but inner streams
	// are still active. The end signal is deferred until they drain.
	SourceEnded
	// Ended is terminal: downstream has received its end signal.
	Ended
	// Errored is terminal: downstream has received its error signal.
	Errored
	// Disposed is terminal: the subscription was released before it
	// completed. Nothing further is owed to downstream.
	Disposed
)

// legal lists the phases reachable from each non-terminal phase.
var legal = [...][]Phase{
	Running:     {SourceEnded, Ended, Errored, Disposed},
	SourceEnded: {Ended, Errored, Disposed},
}

// Terminal returns true for [Ended], [Errored], and [Disposed].
func (p Phase) Terminal() bool { return p >= Ended }

// Accepting returns true if the phase permits new source events to be
// mapped and admitted.
func (p Phase) Accepting() bool { return p == Running }

// To moves the receiver to the next phase, returning false if the
// transition is not legal. A terminal phase never changes.
func (p *Phase) To(next Phase) bool {
	if *p < Running || p.Terminal() {
		return false
	}
	for _, ok := range legal[*p] {
		if ok == next {
			*p = next
			return true
		}
	}
	return false
}

// String is for debugging use only.
func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case SourceEnded:
		return "source-ended"
	case Ended:
		return "ended"
	case Errored:
		return "errored"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}
