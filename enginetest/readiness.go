// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import (
	"sync"

	"code.hybscloud.com/assh"
	"code.hybscloud.com/atomix"
)

const (
	inbound = iota
	outbound
)

// Readiness is a scripted [assh.Readiness].
type Readiness struct {
	mu     sync.Mutex
	tokens [2]int
	slots  [2]*assh.Waker
	err    error
	auto   bool
	armed  chan assh.BlockDirection

	polls   atomix.Uint64
	forgets atomix.Uint64
}

var _ assh.Readiness = (*Readiness)(nil)

// NewReadiness returns a source that is ready in no direction.
func NewReadiness() *Readiness {
	return &Readiness{armed: make(chan assh.BlockDirection, 64)}
}

func (r *Readiness) PollReadable(w *assh.Waker) (bool, error) {
	return r.poll(inbound, w)
}

func (r *Readiness) PollWritable(w *assh.Waker) (bool, error) {
	return r.poll(outbound, w)
}

func (r *Readiness) poll(i int, w *assh.Waker) (bool, error) {
	r.polls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if r.auto {
		return true, nil
	}
	if r.tokens[i] > 0 {
		r.tokens[i]--
		return true, nil
	}
	r.slots[i] = w
	dir := assh.BlockInbound
	if i == outbound {
		dir = assh.BlockOutbound
	}
	select {
	case r.armed <- dir:
	default:
	}
	return false, nil
}

// Forget drops w from every direction it holds.
func (r *Readiness) Forget(w *assh.Waker) {
	r.forgets.Add(1)
	r.mu.Lock()
	for i, s := range r.slots {
		if s == w {
			r.slots[i] = nil
		}
	}
	r.mu.Unlock()
}

// Fire makes dir ready once. A waker holding the direction is woken and
// released; otherwise a token is left for the next poll.
func (r *Readiness) Fire(dir assh.BlockDirection) {
	r.mu.Lock()
	var woken [2]*assh.Waker
	for i, on := range [2]bool{dir.Inbound(), dir.Outbound()} {
		if !on {
			continue
		}
		if r.slots[i] != nil {
			woken[i], r.slots[i] = r.slots[i], nil
		} else {
			r.tokens[i]++
		}
	}
	r.mu.Unlock()
	for _, w := range woken {
		if w != nil {
			w.Wake()
		}
	}
}

// Fail makes every later poll return err and wakes all holders.
func (r *Readiness) Fail(err error) {
	r.mu.Lock()
	r.err = err
	woken := r.slots
	r.slots = [2]*assh.Waker{}
	r.mu.Unlock()
	for _, w := range woken {
		if w != nil {
			w.Wake()
		}
	}
}

// SetAuto makes every poll report ready, as a socket with unlimited
// buffers would.
func (r *Readiness) SetAuto(on bool) {
	r.mu.Lock()
	r.auto = on
	r.mu.Unlock()
}

// Armed receives the direction of every registration, best effort.
func (r *Readiness) Armed() <-chan assh.BlockDirection {
	return r.armed
}

// Holds reports whether w currently holds any direction of dir.
func (r *Readiness) Holds(w *assh.Waker, dir assh.BlockDirection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (dir.Inbound() && r.slots[inbound] == w) || (dir.Outbound() && r.slots[outbound] == w)
}

// Waiting reports whether any waker holds a direction of dir.
func (r *Readiness) Waiting(dir assh.BlockDirection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (dir.Inbound() && r.slots[inbound] != nil) || (dir.Outbound() && r.slots[outbound] != nil)
}

// Polls returns the number of PollReadable and PollWritable calls.
func (r *Readiness) Polls() uint64 { return r.polls.Load() }

// Forgets returns the number of Forget calls.
func (r *Readiness) Forgets() uint64 { return r.forgets.Load() }
