// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import (
	"errors"
	"sync"

	"code.hybscloud.com/assh"
	"code.hybscloud.com/iox"
	"github.com/eapache/queue"
)

// ErrExhausted is returned by a Sequence called past its last outcome.
var ErrExhausted = errors.New("enginetest: sequence exhausted")

// Outcome is one scripted result of a Sequence call.
type Outcome[R any] struct {
	block bool
	dir   assh.BlockDirection
	val   R
	err   error
}

// Block is a would-block outcome that reports dir.
func Block[R any](dir assh.BlockDirection) Outcome[R] {
	return Outcome[R]{block: true, dir: dir}
}

// Ok is a successful outcome.
func Ok[R any](v R) Outcome[R] {
	return Outcome[R]{val: v}
}

// Fail is a failed outcome.
func Fail[R any](err error) Outcome[R] {
	return Outcome[R]{err: err}
}

// Sequence is a scripted engine operation. Each Call returns the next
// outcome; after a Block, BlockDirections reports its direction. It also
// detects overlapping calls.
type Sequence[R any] struct {
	mu       sync.Mutex
	q        *queue.Queue
	dir      assh.BlockDirection
	calls    int
	active   bool
	overlaps int
	onBlock  func(assh.BlockDirection)
}

var _ assh.DirectionResolver = (*Sequence[int])(nil)

// NewSequence returns a sequence yielding outcomes in order.
func NewSequence[R any](outcomes ...Outcome[R]) *Sequence[R] {
	s := &Sequence[R]{q: queue.New()}
	for _, o := range outcomes {
		s.q.Add(o)
	}
	return s
}

// Push appends outcomes.
func (s *Sequence[R]) Push(outcomes ...Outcome[R]) {
	s.mu.Lock()
	for _, o := range outcomes {
		s.q.Add(o)
	}
	s.mu.Unlock()
}

// OnBlock registers f to run on every Block outcome, after the direction
// is recorded.
func (s *Sequence[R]) OnBlock(f func(assh.BlockDirection)) {
	s.onBlock = f
}

// Call returns the next outcome.
func (s *Sequence[R]) Call() (R, error) {
	var zero R
	s.mu.Lock()
	if s.active {
		s.overlaps++
	}
	s.active = true
	s.calls++
	if s.q.Length() == 0 {
		s.active = false
		s.mu.Unlock()
		return zero, ErrExhausted
	}
	o := s.q.Remove().(Outcome[R])
	if o.block {
		s.dir = o.dir
	}
	s.active = false
	s.mu.Unlock()

	if o.block {
		if s.onBlock != nil {
			s.onBlock(o.dir)
		}
		return zero, iox.ErrWouldBlock
	}
	return o.val, o.err
}

func (s *Sequence[R]) BlockDirections() assh.BlockDirection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// Calls returns how many times Call ran.
func (s *Sequence[R]) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Overlaps returns how many calls began while another was running.
func (s *Sequence[R]) Overlaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlaps
}

// Remaining returns the number of outcomes not yet consumed.
func (s *Sequence[R]) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Length()
}
