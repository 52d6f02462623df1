// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"
	"io"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
)

// Adapter binds one engine's direction resolver to the readiness source of
// its socket. It is shared by every handle of a session and carries no
// per-call state; that lives in [Poller] and [Future].
type Adapter struct {
	src     Readiness
	dir     DirectionResolver
	serial  Serial
	timeout time.Duration
	log     zerolog.Logger
	metrics *Metrics
	closed  atomix.Uint32
	stats   counters
}

type counters struct {
	calls       atomix.Uint64
	attempts    atomix.Uint64
	suspensions atomix.Uint64
	contract    atomix.Uint64
	transport   atomix.Uint64
}

// Stats is a snapshot of an adapter's counters.
type Stats struct {
	// Calls is the number of logical calls that reached a final result.
	Calls uint64
	// Attempts is the number of engine invocations.
	Attempts uint64
	// Suspensions is the number of would-block outcomes that armed a waker.
	Suspensions uint64
	// ContractViolations counts would-block outcomes with no usable direction.
	ContractViolations uint64
	// TransportErrors counts readiness failures.
	TransportErrors uint64
}

// NewAdapter returns an adapter over src and dir. A nil src is allowed;
// would-block outcomes then fail with ErrNoTransport.
func NewAdapter(src Readiness, dir DirectionResolver, opts ...Option) *Adapter {
	return newAdapter(src, dir, buildOptions(opts))
}

func newAdapter(src Readiness, dir DirectionResolver, o options) *Adapter {
	return &Adapter{
		src:     src,
		dir:     dir,
		serial:  nextSerial(),
		timeout: o.cfg.OpTimeout,
		log:     o.log,
		metrics: o.metrics,
	}
}

// Readiness returns the shared readiness source, or nil.
func (a *Adapter) Readiness() Readiness {
	return a.src
}

// Serial returns the serial number assigned to this adapter.
func (a *Adapter) Serial() Serial {
	return a.serial
}

// Stats returns a snapshot of the adapter's counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		Calls:              a.stats.calls.Load(),
		Attempts:           a.stats.attempts.Load(),
		Suspensions:        a.stats.suspensions.Load(),
		ContractViolations: a.stats.contract.Load(),
		TransportErrors:    a.stats.transport.Load(),
	}
}

func (a *Adapter) direction() BlockDirection {
	if a.dir == nil {
		return BlockNone
	}
	return a.dir.BlockDirections()
}

// bound applies the configured per-operation timeout to ctx.
func (a *Adapter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return ctx, func() {}
}

// finish records one logical call reaching its final result. io.EOF counts
// as success.
func (a *Adapter) finish(op string, err error) {
	a.stats.calls.Add(1)
	if err == io.EOF {
		err = nil
	}
	a.metrics.call(op, err)
}

// attempt invokes try once. On a definitive outcome it returns try's error
// unchanged. On would-block it arms w for the engine's current direction and
// returns iox.ErrWouldBlock; armed reports that w may hold a registration.
//
// A would-block with no direction gets exactly one immediate retry. A second
// directionless would-block, or a direction outside BlockBoth, fails with
// *ContractError.
func (a *Adapter) attempt(op string, w *Waker, try func() error) (armed bool, err error) {
	if a.closed.Load() != 0 {
		return false, ErrClosed
	}
	a.stats.attempts.Add(1)
	err = try()
	if !iox.IsWouldBlock(err) {
		return false, err
	}
	dir := a.direction()
	if dir == BlockNone {
		var bo iox.Backoff
		bo.Wait()
		a.stats.attempts.Add(1)
		err = try()
		if !iox.IsWouldBlock(err) {
			return false, err
		}
		dir = a.direction()
		if dir == BlockNone {
			return false, a.violation(op, "would block with no direction")
		}
	}
	if dir > BlockBoth {
		return false, a.violation(op, "would block on an unknown direction")
	}
	if a.src == nil {
		return false, ErrNoTransport
	}
	ready, err := arm(a.src, dir, w)
	if err != nil {
		a.src.Forget(w)
		a.stats.transport.Add(1)
		a.metrics.failure("transport")
		a.log.Error().Uint32("serial", a.serial).Str("op", op).Err(err).Msg("readiness failed")
		return false, &TransportError{Op: op, Err: err}
	}
	if ready {
		w.Wake()
	}
	a.stats.suspensions.Add(1)
	a.metrics.suspend(dir)
	a.log.Debug().Uint32("serial", a.serial).Str("op", op).Stringer("dir", dir).Bool("ready", ready).Msg("suspend")
	return true, iox.ErrWouldBlock
}

// violation records a broken would-block contract during op.
func (a *Adapter) violation(op, msg string) error {
	a.stats.contract.Add(1)
	a.metrics.failure("contract")
	a.log.Warn().Uint32("serial", a.serial).Str("op", op).Msg(msg)
	return &ContractError{Op: op}
}

func (a *Adapter) close() {
	a.closed.Store(1)
}
