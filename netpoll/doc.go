// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package netpoll binds [assh.Readiness] to the operating system's
// readiness notification.
//
// A [Reactor] owns one epoll instance and an eventfd that interrupts its
// wait. Each socket handed to the reactor becomes a [Source], which
// implements assh.Readiness. Registration is level-triggered with
// EPOLLONESHOT: a source is armed only while some waker holds a direction,
// and readiness that arrives between a probe and the arm is still reported.
//
// The reactor delivers wakeups only while [Reactor.Run] is running.
//
// Only Linux is supported. Elsewhere every constructor returns ErrUnsupported.
package netpoll

import "errors"

var (
	// ErrUnsupported is returned on platforms without an epoll binding.
	ErrUnsupported = errors.New("netpoll: unsupported platform")

	// ErrClosed is returned by a closed Reactor or Source.
	ErrClosed = errors.New("netpoll: closed")
)
