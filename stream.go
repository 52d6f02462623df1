// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"
	"io"

	"code.hybscloud.com/iox"
)

// Stream is an asynchronous byte stream over one engine substream: the data
// or stderr stream of a channel, or an open SFTP file.
//
// Reads and writes keep separate pollers, but their interest shares the
// session's per-direction readiness slots. When a read and a write both
// wait on the same direction, the later registration replaces the earlier
// one and only the latest waiter is woken. Engine access is single-flight:
// the caller serializes operations across every handle of one session.
type Stream struct {
	a     *Adapter
	name  string
	read  func(p []byte) (int, error)
	write func(p []byte) (int, error)
	flush func() error
	rp    Poller
	wp    Poller
}

func newStream(a *Adapter, name string, read, write func([]byte) (int, error), flush func() error) *Stream {
	return &Stream{
		a:     a,
		name:  name,
		read:  read,
		write: write,
		flush: flush,
		rp:    Poller{a: a, w: NewWaker()},
		wp:    Poller{a: a, w: NewWaker()},
	}
}

// TryRead makes one read attempt. It returns iox.ErrWouldBlock when no data
// is available yet; wait on ReadReady before trying again.
func (s *Stream) TryRead(p []byte) (n int, err error) {
	op := s.name + ".read"
	err = s.rp.Poll(op, func() error {
		var err error
		n, err = s.read(p)
		return err
	})
	if !iox.IsWouldBlock(err) {
		s.a.finish(op, err)
	}
	return n, err
}

// TryWrite makes one write attempt and returns the bytes the engine accepted.
func (s *Stream) TryWrite(p []byte) (n int, err error) {
	op := s.name + ".write"
	err = s.wp.Poll(op, func() error {
		var err error
		n, err = s.write(p)
		return err
	})
	if !iox.IsWouldBlock(err) {
		s.a.finish(op, err)
	}
	return n, err
}

// TryFlush makes one flush attempt.
func (s *Stream) TryFlush() error {
	if s.flush == nil {
		return nil
	}
	op := s.name + ".flush"
	err := s.wp.Poll(op, s.flush)
	if !iox.IsWouldBlock(err) {
		s.a.finish(op, err)
	}
	return err
}

// ReadReady returns the channel signalled after a TryRead would-block once
// the read may progress.
func (s *Stream) ReadReady() <-chan struct{} {
	return s.rp.Ready()
}

// WriteReady returns the channel signalled after a TryWrite or TryFlush
// would-block once the write may progress.
func (s *Stream) WriteReady() <-chan struct{} {
	return s.wp.Ready()
}

// ReadContext reads at most len(p) bytes, suspending until data arrives.
// It returns io.EOF at the end of the substream.
func (s *Stream) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	ctx, cancel := s.a.bound(ctx)
	defer cancel()
	for {
		n, err := s.TryRead(p)
		if !iox.IsWouldBlock(err) {
			return n, err
		}
		if err := s.rp.Wait(ctx); err != nil {
			return 0, err
		}
	}
}

// WriteContext writes all of p, suspending whenever the engine's send
// window or socket is full. It returns the bytes written before any error.
func (s *Stream) WriteContext(ctx context.Context, p []byte) (int, error) {
	ctx, cancel := s.a.bound(ctx)
	defer cancel()
	total := 0
	for total < len(p) {
		n, err := s.TryWrite(p[total:])
		total += n
		if iox.IsWouldBlock(err) {
			if err := s.wp.Wait(ctx); err != nil {
				return total, err
			}
			continue
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// FlushContext flushes buffered output, suspending until it completes.
func (s *Stream) FlushContext(ctx context.Context) error {
	ctx, cancel := s.a.bound(ctx)
	defer cancel()
	for {
		err := s.TryFlush()
		if !iox.IsWouldBlock(err) {
			return err
		}
		if err := s.wp.Wait(ctx); err != nil {
			return err
		}
	}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	return s.ReadContext(context.Background(), p)
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

// Flush flushes buffered output.
func (s *Stream) Flush() error {
	return s.FlushContext(context.Background())
}

// Cancel deregisters any pending read or write interest.
func (s *Stream) Cancel() {
	s.rp.Cancel()
	s.wp.Cancel()
}

var (
	_ io.Reader = (*Stream)(nil)
	_ io.Writer = (*Stream)(nil)
)
