// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"code.hybscloud.com/kont"
)

// Call is the effect operation for one engine call returning R.
// Perform(Call[R]{Name: "exec", Fn: fn}) runs fn through the adapter,
// retrying it on every would-block until it resolves.
type Call[R any] struct {
	kont.Phantom[R]
	Name string
	Fn   func() (R, error)
}

// callDispatcher is the structural interface for engine-call operations.
// dispatchCall is non-blocking: it returns iox.ErrWouldBlock with the
// poller armed when the engine cannot make progress.
type callDispatcher interface {
	callName() string
	dispatchCall(p *Poller) (kont.Resumed, error)
}

func (c Call[R]) callName() string { return c.Name }

func (c Call[R]) dispatchCall(p *Poller) (kont.Resumed, error) {
	var v R
	err := p.Poll(c.Name, func() error {
		var err error
		v, err = c.Fn()
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Perform returns the effect of calling fn as one engine operation.
func Perform[R any](name string, fn func() (R, error)) kont.Eff[R] {
	return kont.Perform(Call[R]{Name: name, Fn: fn})
}

// PerformErr is Perform for engine calls that return only an error.
func PerformErr(name string, fn func() error) kont.Eff[struct{}] {
	return kont.Perform(Call[struct{}]{Name: name, Fn: func() (struct{}, error) {
		return struct{}{}, fn()
	}})
}
