// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package assh drives a non-blocking SSH protocol engine from goroutines.
//
// The engine is a synchronous session object over one stream socket. Its calls
// never park: when the socket is not ready they return [code.hybscloud.com/iox.ErrWouldBlock]
// and report, through [DirectionResolver], whether they wait on inbound data,
// outbound buffer space, or both. This package turns that retry contract into
// suspension points.
//
// # Architecture
//
//   - Readiness: [Readiness] is the per-socket readiness notifier. [Waker] is the wake handle
//     a suspended call registers; a new registration replaces the previous one.
//     Package netpoll provides the epoll binding, package enginetest a scripted one.
//   - Retry: [Poller] is the single-poll primitive, [Future] the per-call state machine.
//     [Await] and [Future.Await] are the to-completion flavor.
//   - Handles: [Session], [Channel], [Stream], [Listener], [Agent], [Sftp], [File] compose engine
//     calls with the adapter. Every handle of one session shares one [Adapter].
//   - Scripts: [Call] is an engine-call effect on [code.hybscloud.com/kont]. [Exec] runs a script to
//     completion; [Step] and [Advance] evaluate it one call at a time.
//
// # Concurrency
//
// The engine is single-flight. All handles derived from one Session must have
// their operations serialized by the caller; the package does not lock on the
// caller's behalf. Independent sessions run in parallel.
//
// # Errors
//
// Engine errors are returned verbatim. Readiness failures are [*TransportError].
// A would-block outcome that names no direction is retried immediately once and
// then fails with [*ContractError].
//
// # Example
//
//	src, _ := reactor.OpenConn(conn)
//	s := assh.NewSession(engine, src)
//	if err := s.Handshake(ctx); err != nil {
//		return err
//	}
//	if err := s.UserauthPassword(ctx, "user", "secret"); err != nil {
//		return err
//	}
//	out, err := s.Output(ctx, "uname -a")
package assh
