// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh_test

import (
	"context"
	"testing"
	"time"

	"code.hybscloud.com/assh"
	"code.hybscloud.com/assh/enginetest"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

const (
	testUser     = "alice"
	testPassword = "secret"
)

// testContext returns a context that fails the test instead of hanging it.
func testContext(tb testing.TB) context.Context {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tb.Cleanup(cancel)
	return ctx
}

// newSession returns a session over a fresh fake engine that knows
// testUser.
func newSession(tb testing.TB, opts ...assh.Option) (*assh.Session, *enginetest.Engine, *enginetest.Readiness) {
	tb.Helper()
	src := enginetest.NewReadiness()
	e := enginetest.New(src)
	e.AddUser(testUser, testPassword)
	s := assh.NewSession(e, src, opts...)
	tb.Cleanup(func() { s.Close() })
	return s, e, src
}

// login runs the handshake and password authentication.
func login(tb testing.TB, s *assh.Session) {
	tb.Helper()
	ctx := testContext(tb)
	if err := s.Handshake(ctx); err != nil {
		tb.Fatalf("handshake: %v", err)
	}
	if err := s.UserauthPassword(ctx, testUser, testPassword); err != nil {
		tb.Fatalf("userauth: %v", err)
	}
}

// loggedIn is newSession followed by login.
func loggedIn(tb testing.TB, opts ...assh.Option) (*assh.Session, *enginetest.Engine, *enginetest.Readiness) {
	tb.Helper()
	s, e, src := newSession(tb, opts...)
	login(tb, s)
	return s, e, src
}

// stepAll drives a script to completion via the Step+Advance loop,
// waiting on the poller after every would-block.
func stepAll[R any](ctx context.Context, a *assh.Adapter, script kont.Expr[R]) (R, int, error) {
	p := assh.NewPoller(a)
	result, susp := assh.Step(script)
	suspended := 0
	for susp != nil {
		var err error
		result, susp, err = assh.Advance(p, susp)
		if iox.IsWouldBlock(err) {
			suspended++
			if err := p.Wait(ctx); err != nil {
				return result, suspended, err
			}
			continue
		}
		if err != nil {
			return result, suspended, err
		}
	}
	return result, suspended, nil
}

// eventually polls cond until it holds or a second passes.
func eventually(tb testing.TB, what string, cond func() bool) {
	tb.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			tb.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type answers []string

func (a answers) Prompt(username, instructions string, prompts []assh.Prompt) []string {
	return a[:min(len(a), len(prompts))]
}

// fixed is a resolver that always reports one direction.
type fixed assh.BlockDirection

func (d fixed) BlockDirections() assh.BlockDirection { return assh.BlockDirection(d) }
