// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "context"

// Poller is the single-poll primitive of the retry adapter.
//
// Poll invokes the operation exactly once. On a definitive outcome it returns
// the operation's error. On would-block it leaves the poller's waker armed for
// the engine's current direction and returns iox.ErrWouldBlock; Ready then
// fires once a retry can make progress.
//
// A Poller serves one logical call at a time and is not safe for concurrent use.
type Poller struct {
	a     *Adapter
	w     *Waker
	armed bool
}

// NewPoller returns a poller driving calls through a.
func NewPoller(a *Adapter) *Poller {
	return &Poller{a: a, w: NewWaker()}
}

// Poll runs try once. Any registration left by the previous Poll is dropped
// before try runs, so the poller holds interest only while suspended.
func (p *Poller) Poll(op string, try func() error) error {
	p.disarm()
	armed, err := p.a.attempt(op, p.w, try)
	p.armed = armed
	return err
}

// Ready returns the channel signalled when the armed direction is ready.
func (p *Poller) Ready() <-chan struct{} {
	return p.w.C()
}

// Wait suspends until Ready fires or ctx is done. A cancelled wait
// deregisters the poller's waker.
func (p *Poller) Wait(ctx context.Context) error {
	select {
	case <-p.w.C():
		return nil
	case <-ctx.Done():
		p.Cancel()
		return ctx.Err()
	}
}

// Cancel deregisters the poller's waker. The engine sub-object stays valid;
// the same call may be polled again later.
func (p *Poller) Cancel() {
	p.disarm()
}

func (p *Poller) disarm() {
	if p.armed {
		p.a.src.Forget(p.w)
		p.armed = false
	}
	p.w.drain()
}
