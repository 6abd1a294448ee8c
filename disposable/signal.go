// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package disposable

// OnReceive will dispose of d when a value is received from the
// channel or if the channel is closed. OnReceive can be used, for
// example, with [os/signal.Notify]. The outcome of that release is
// discarded; wrap d with [Once] to observe it with a later call.
//
// Disposing the returned value stops watching the channel without
// disposing of d. It waits for a release that is already underway.
func OnReceive[T any](ch <-chan T, d Disposable) Disposable {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ch:
			_ = All([]Disposable{d})
		case <-stop:
		}
	}()
	return Once(Func(func() error {
		close(stop)
		<-done
		return nil
	}))
}
