// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package netpoll

import (
	"errors"
	"io"
	"sync"

	"code.hybscloud.com/assh"
	"golang.org/x/sys/unix"
)

// Source is the readiness notifier of one socket registered with a Reactor.
// It holds at most one waker per direction; registering replaces the
// previous holder.
type Source struct {
	r      *Reactor
	fd     int
	closer io.Closer

	mu     sync.Mutex
	rw, ww *assh.Waker
	err    error
	closed bool
}

var _ assh.Readiness = (*Source)(nil)

// Fd returns the registered descriptor.
func (s *Source) Fd() int { return s.fd }

// Conn returns the connection passed to OpenConn, or nil.
func (s *Source) Conn() io.Closer { return s.closer }

// PollReadable reports whether the socket is readable now, registering w
// for the next readable event if not.
func (s *Source) PollReadable(w *assh.Waker) (bool, error) {
	return s.poll(w, unix.POLLIN, &s.rw)
}

// PollWritable reports whether the socket is writable now, registering w
// for the next writable event if not.
func (s *Source) PollWritable(w *assh.Waker) (bool, error) {
	return s.poll(w, unix.POLLOUT, &s.ww)
}

func (s *Source) poll(w *assh.Waker, events int16, slot **assh.Waker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.err != nil {
		return false, s.err
	}
	ready, err := probe(s.fd, events)
	if err != nil {
		return false, err
	}
	if ready {
		return true, nil
	}
	*slot = w
	return false, s.rearm()
}

// rearm arms the descriptor for the held directions. s.mu must be held.
func (s *Source) rearm() error {
	var events uint32
	if s.rw != nil {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if s.ww != nil {
		events |= unix.EPOLLOUT
	}
	if events == 0 {
		return nil
	}
	return s.r.rearm(s.fd, events)
}

// dispatch wakes the wakers of the directions in events and rearms for any
// direction still held.
func (s *Source) dispatch(events uint32) {
	var rw, ww *assh.Waker
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	failed := events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
	if events&unix.EPOLLERR != 0 {
		if v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR); err == nil && v != 0 {
			s.err = unix.Errno(v)
		}
	}
	if failed || events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
		rw, s.rw = s.rw, nil
	}
	if failed || events&unix.EPOLLOUT != 0 {
		ww, s.ww = s.ww, nil
	}
	if err := s.rearm(); err != nil {
		s.err = err
		rw, ww = pick(rw, s.rw), pick(ww, s.ww)
		s.rw, s.ww = nil, nil
	}
	s.mu.Unlock()
	wake(rw, ww)
}

// Forget drops w from every direction it holds.
func (s *Source) Forget(w *assh.Waker) {
	s.mu.Lock()
	if s.rw == w {
		s.rw = nil
	}
	if s.ww == w {
		s.ww = nil
	}
	s.mu.Unlock()
}

// Close deregisters the socket and wakes any waiter. The connection passed
// to OpenConn is closed as well.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	rw, ww := s.rw, s.ww
	s.rw, s.ww = nil, nil
	s.r.remove(s.fd)
	s.mu.Unlock()
	wake(rw, ww)
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// probe reports whether the descriptor is ready for events without waiting.
// Error and hang-up conditions count as ready so the engine observes them.
func probe(fd int, events int16) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && fds[0].Revents&(events|unix.POLLERR|unix.POLLHUP) != 0, nil
	}
}

func pick(a, b *assh.Waker) *assh.Waker {
	if a != nil {
		return a
	}
	return b
}

func wake(rw, ww *assh.Waker) {
	if rw != nil {
		rw.Wake()
	}
	if ww != nil && ww != rw {
		ww.Wake()
	}
}
