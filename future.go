// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"

	"code.hybscloud.com/iox"
)

// Future is the state of one logical engine call. fn must be safe to call
// repeatedly: each call either completes or reports would-block. Retries are
// strictly sequential; fn never runs concurrently with itself.
type Future[R any] struct {
	p           Poller
	op          string
	fn          func() (R, error)
	suspensions int
	done        bool
}

// NewFuture returns a pending future for fn. op names the call in logs,
// metrics and errors.
func NewFuture[R any](a *Adapter, op string, fn func() (R, error)) *Future[R] {
	return &Future[R]{p: Poller{a: a, w: NewWaker()}, op: op, fn: fn}
}

// Poll makes one attempt. It returns iox.ErrWouldBlock while the call is
// pending; wait on Ready before polling again.
func (f *Future[R]) Poll() (R, error) {
	var v R
	err := f.p.Poll(f.op, func() error {
		var err error
		v, err = f.fn()
		return err
	})
	if iox.IsWouldBlock(err) {
		f.suspensions++
		var zero R
		return zero, err
	}
	f.resolve(err)
	return v, err
}

// Ready returns the channel signalled when a pending call may progress.
func (f *Future[R]) Ready() <-chan struct{} {
	return f.p.Ready()
}

// Await polls until the call resolves, suspending on every would-block.
// If ctx is done first the waker is deregistered and ctx.Err() is returned.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	var zero R
	for {
		if err := ctx.Err(); err != nil {
			f.p.Cancel()
			f.resolve(err)
			return zero, err
		}
		v, err := f.Poll()
		if !iox.IsWouldBlock(err) {
			return v, err
		}
		if err := f.p.Wait(ctx); err != nil {
			f.resolve(err)
			return zero, err
		}
	}
}

// Cancel drops the pending call and deregisters its interest.
func (f *Future[R]) Cancel() {
	f.p.Cancel()
}

// Suspensions returns how many times the call has suspended.
func (f *Future[R]) Suspensions() int {
	return f.suspensions
}

func (f *Future[R]) resolve(err error) {
	if f.done {
		return
	}
	f.done = true
	f.p.a.finish(f.op, err)
}

// Await runs fn through a to completion. The adapter's configured operation
// timeout, if any, bounds ctx.
func Await[R any](ctx context.Context, a *Adapter, op string, fn func() (R, error)) (R, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	return NewFuture(a, op, fn).Await(ctx)
}

// do is Await for engine calls that return only an error.
func do(ctx context.Context, a *Adapter, op string, fn func() error) error {
	_, err := Await(ctx, a, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
