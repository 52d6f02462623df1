// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "context"

// Waker is the wake handle a suspended call registers with a [Readiness].
// Wake never blocks. Wakes coalesce until the owner receives from C.
type Waker struct {
	c chan struct{}
}

// NewWaker returns a Waker with no pending wake.
func NewWaker() *Waker {
	return &Waker{c: make(chan struct{}, 1)}
}

// Wake signals the owner. Safe to call from any goroutine.
func (w *Waker) Wake() {
	select {
	case w.c <- struct{}{}:
	default:
	}
}

// C returns the channel that receives one value per coalesced wake.
func (w *Waker) C() <-chan struct{} {
	return w.c
}

func (w *Waker) drain() {
	select {
	case <-w.c:
	default:
	}
}

// Readiness is the readiness notifier of one stream socket.
//
// PollReadable and PollWritable never suspend. They return true when the
// socket is ready in that direction now; otherwise they register w and return
// false, and w is woken once the direction becomes ready. Registering replaces
// whatever waker held that direction before, so only the most recent waiter is
// ever woken.
//
// Forget removes w from every direction it currently holds. It leaves other
// wakers in place, so a late Forget from a cancelled call never clobbers a newer
// registration.
//
// A Readiness never reads or writes the socket's data stream.
type Readiness interface {
	PollReadable(w *Waker) (bool, error)
	PollWritable(w *Waker) (bool, error)
	Forget(w *Waker)
}

// WaitReadable suspends until r reports readable or ctx is done.
func WaitReadable(ctx context.Context, r Readiness) error {
	return WaitReady(ctx, r, BlockInbound)
}

// WaitWritable suspends until r reports writable or ctx is done.
func WaitWritable(ctx context.Context, r Readiness) error {
	return WaitReady(ctx, r, BlockOutbound)
}

// WaitReady suspends until r is ready in dir. For BlockBoth it returns on the
// first of readable or writable.
func WaitReady(ctx context.Context, r Readiness, dir BlockDirection) error {
	if dir == BlockNone {
		return ErrNoDirection
	}
	w := NewWaker()
	ready, err := arm(r, dir, w)
	defer r.Forget(w)
	if err != nil || ready {
		return err
	}
	select {
	case <-w.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// arm registers w on r for dir and reports whether r is ready already.
// For BlockBoth the same waker takes both directions, so whichever fires
// first wins the race.
func arm(r Readiness, dir BlockDirection, w *Waker) (bool, error) {
	switch dir {
	case BlockInbound:
		return r.PollReadable(w)
	case BlockOutbound:
		return r.PollWritable(w)
	case BlockBoth:
		ready, err := r.PollReadable(w)
		if err != nil || ready {
			return ready, err
		}
		return r.PollWritable(w)
	}
	return false, ErrNoDirection
}
