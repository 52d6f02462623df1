// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Reify converts a Cont-world script to Expr-world so it can be stepped
// with Step and Advance or run with ExecExpr.
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Step evaluates a script until its first engine call.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](script kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(script)
}

// Advance makes one attempt at the suspended engine call through p.
//
// On success the suspension is consumed and the script advances to the next
// call or completes. On iox.ErrWouldBlock the suspension is returned
// unconsumed with p armed; retry once p.Ready fires. On any other error the
// suspension is discarded and the error is returned with a nil suspension.
func Advance[R any](p *Poller, susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	cop, ok := susp.Op().(callDispatcher)
	if !ok {
		panic("assh: unhandled effect in Advance")
	}
	var zero R
	v, err := cop.dispatchCall(p)
	if iox.IsWouldBlock(err) {
		return zero, susp, err
	}
	p.a.finish(cop.callName(), err)
	if err != nil {
		susp.Discard()
		return zero, nil, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}
