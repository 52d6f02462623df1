// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Run runs two Cont-world scripts of one session on the calling goroutine.
// See RunExpr.
func Run[A, B any](ctx context.Context, a *Adapter, x kont.Eff[A], y kont.Eff[B]) (A, B, error) {
	return RunExpr(ctx, a, Reify(x), Reify(y))
}

// RunExpr interleaves two Expr-world scripts of one session on the calling
// goroutine. Engine calls never overlap: each script advances one attempt at
// a time, and when both are pending the goroutine suspends until either
// poller is ready. A registration replaces the previous waiter of its
// direction, so any wake retries both pending scripts. The first fatal error
// discards the other script and is returned.
func RunExpr[A, B any](ctx context.Context, a *Adapter, x kont.Expr[A], y kont.Expr[B]) (A, B, error) {
	px, py := NewPoller(a), NewPoller(a)
	resultX, suspX := Step(x)
	resultY, suspY := Step(y)
	readyX, readyY := true, true
	var zeroA A
	var zeroB B
	fail := func(err error) (A, B, error) {
		px.Cancel()
		py.Cancel()
		if suspX != nil {
			suspX.Discard()
		}
		if suspY != nil {
			suspY.Discard()
		}
		return zeroA, zeroB, err
	}

	for suspX != nil || suspY != nil {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		var err error
		if suspX != nil && readyX {
			resultX, suspX, err = Advance(px, suspX)
			if err != nil && !iox.IsWouldBlock(err) {
				return fail(err)
			}
			readyX = err == nil
		}
		if suspY != nil && readyY {
			resultY, suspY, err = Advance(py, suspY)
			if err != nil && !iox.IsWouldBlock(err) {
				return fail(err)
			}
			readyY = err == nil
		}
		if suspX == nil && suspY == nil {
			break
		}
		if (suspX == nil || !readyX) && (suspY == nil || !readyY) {
			select {
			case <-px.Ready():
			case <-py.Ready():
			case <-ctx.Done():
				return fail(ctx.Err())
			}
			readyX, readyY = true, true
		}
	}
	return resultX, resultY, nil
}
