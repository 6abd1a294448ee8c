// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package disposable

import (
	"errors"

	"golang.org/x/sync/errgroup"
	"vawter.tech/stream/internal/safe"
)

// Join returns a Disposable that releases all of its arguments via
// [All]. The returned value behaves like [Once]. Nil elements are
// ignored.
func Join(ds ...Disposable) Disposable {
	members := make([]Disposable, 0, len(ds))
	for _, d := range ds {
		if d != nil {
			members = append(members, d)
		}
	}
	return Once(Func(func() error { return All(members) }))
}

// All releases every Disposable concurrently and waits for them to
// finish. The returned error joins every failure, in argument order.
// A panic in any Dispose method is reported as an error.
func All[D Disposable](ds []D) error {
	switch len(ds) {
	case 0:
		return nil
	case 1:
		return safe.CallE(ds[0].Dispose)
	}

	// Each goroutine owns one slot, so the errgroup never sees a
	// failure and cannot short-circuit the others.
	errs := make([]error, len(ds))
	var g errgroup.Group
	for idx, d := range ds {
		g.Go(func() error {
			errs[idx] = safe.CallE(d.Dispose)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
