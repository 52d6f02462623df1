// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package netpoll

import (
	"context"
	"io"
	"syscall"

	"code.hybscloud.com/assh"
)

// Reactor is unavailable on this platform.
type Reactor struct{}

func NewReactor(opts ...Option) (*Reactor, error) { return nil, ErrUnsupported }

func (r *Reactor) Run(ctx context.Context) error { return ErrUnsupported }

func (r *Reactor) Open(fd int) (*Source, error) { return nil, ErrUnsupported }

func (r *Reactor) OpenConn(c syscall.Conn) (*Source, error) { return nil, ErrUnsupported }

func (r *Reactor) Len() int { return 0 }

func (r *Reactor) Close() error { return ErrUnsupported }

// Source is unavailable on this platform.
type Source struct{}

var _ assh.Readiness = (*Source)(nil)

func (s *Source) Fd() int { return -1 }

func (s *Source) Conn() io.Closer { return nil }

func (s *Source) PollReadable(w *assh.Waker) (bool, error) { return false, ErrUnsupported }

func (s *Source) PollWritable(w *assh.Waker) (bool, error) { return false, ErrUnsupported }

func (s *Source) Forget(w *assh.Waker) {}

func (s *Source) Close() error { return ErrUnsupported }
