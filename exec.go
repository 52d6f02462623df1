// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// callHandler implements kont.Handler for engine-call effects.
// Each Call is awaited to completion; a fatal error short-circuits the
// script with Left.
type callHandler[R any] struct {
	ctx context.Context
	p   *Poller
}

// Dispatch implements kont.Handler via structural interface assertion.
func (h callHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	cop, ok := op.(callDispatcher)
	if !ok {
		panic("assh: unhandled effect in callHandler")
	}
	v, err := dispatchAwait(h.ctx, h.p, cop)
	if err != nil {
		return kont.Left[error, R](err), false
	}
	return v, true
}

// dispatchAwait retries cop until it resolves, suspending on the poller's
// waker after every would-block. The configured operation timeout bounds
// each call separately.
func dispatchAwait(ctx context.Context, p *Poller, cop callDispatcher) (kont.Resumed, error) {
	ctx, cancel := p.a.bound(ctx)
	defer cancel()
	for {
		if err := ctx.Err(); err != nil {
			p.Cancel()
			p.a.finish(cop.callName(), err)
			return nil, err
		}
		v, err := cop.dispatchCall(p)
		if !iox.IsWouldBlock(err) {
			p.a.finish(cop.callName(), err)
			return v, err
		}
		if err := p.Wait(ctx); err != nil {
			p.a.finish(cop.callName(), err)
			return nil, err
		}
	}
}

// Exec runs a Cont-world script of engine calls through a. It returns the
// script's result, or the first error any call produced.
func Exec[R any](ctx context.Context, a *Adapter, script kont.Eff[R]) (R, error) {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[error, R]](script, func(r R) kont.Either[error, R] {
		return kont.Right[error, R](r)
	})
	h := callHandler[R]{ctx: ctx, p: NewPoller(a)}
	return fromEither(kont.Handle(wrapped, h))
}

// ExecExpr runs an Expr-world script of engine calls through a.
func ExecExpr[R any](ctx context.Context, a *Adapter, script kont.Expr[R]) (R, error) {
	wrapped := kont.ExprMap(script, func(r R) kont.Either[error, R] {
		return kont.Right[error, R](r)
	})
	h := callHandler[R]{ctx: ctx, p: NewPoller(a)}
	return fromEither(kont.HandleExpr(wrapped, h))
}

func fromEither[R any](e kont.Either[error, R]) (R, error) {
	if err, ok := e.GetLeft(); ok {
		var zero R
		return zero, err
	}
	r, _ := e.GetRight()
	return r, nil
}
