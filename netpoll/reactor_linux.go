// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package netpoll

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"code.hybscloud.com/atomix"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Reactor multiplexes the readiness of many sockets over one epoll instance.
type Reactor struct {
	epfd    int
	evfd    int
	sources cmap.ConcurrentMap[int32, *Source]
	log     zerolog.Logger
	events  int
	closed  atomix.Uint32
	once    sync.Once
	running sync.WaitGroup
}

// NewReactor creates an epoll instance and its wakeup eventfd.
func NewReactor(opts ...Option) (*Reactor, error) {
	o := buildOptions(opts)
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("netpoll: epoll create: %w", err)
	}
	evfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("netpoll: eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(evfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, evfd, &ev); err != nil {
		unix.Close(evfd)
		unix.Close(epfd)
		return nil, fmt.Errorf("netpoll: epoll ctl add eventfd: %w", err)
	}
	return &Reactor{
		epfd: epfd,
		evfd: evfd,
		sources: cmap.NewWithCustomShardingFunction[int32, *Source](func(fd int32) uint32 {
			return uint32(fd)
		}),
		log:    o.log,
		events: o.maxEvents,
	}, nil
}

// Run waits for events and wakes the registered wakers until ctx is done or
// the reactor is closed. It returns nil after Close and ctx.Err() on
// cancellation.
func (r *Reactor) Run(ctx context.Context) error {
	if r.closed.Load() != 0 {
		return ErrClosed
	}
	r.running.Add(1)
	defer r.running.Done()
	stop := context.AfterFunc(ctx, r.wakeup)
	defer stop()

	events := make([]unix.EpollEvent, r.events)
	for {
		if r.closed.Load() != 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("netpoll: epoll wait: %w", err)
		}
		for i := range n {
			fd := events[i].Fd
			if fd == int32(r.evfd) {
				r.drainWakeup()
				continue
			}
			if s, ok := r.sources.Get(fd); ok {
				s.dispatch(events[i].Events)
			}
		}
	}
}

// Open registers fd, which must be a non-blocking stream socket. The
// descriptor stays owned by the caller.
func (r *Reactor) Open(fd int) (*Source, error) {
	return r.open(fd, nil)
}

// OpenConn registers the socket underlying c. Closing the source closes c
// when c implements io.Closer.
func (r *Reactor) OpenConn(c syscall.Conn) (*Source, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("netpoll: syscall conn: %w", err)
	}
	fd := -1
	if err := raw.Control(func(s uintptr) { fd = int(s) }); err != nil {
		return nil, fmt.Errorf("netpoll: control: %w", err)
	}
	closer, _ := c.(io.Closer)
	return r.open(fd, closer)
}

func (r *Reactor) open(fd int, closer io.Closer) (*Source, error) {
	if r.closed.Load() != 0 {
		return nil, ErrClosed
	}
	ev := unix.EpollEvent{Events: unix.EPOLLONESHOT, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return nil, fmt.Errorf("netpoll: epoll ctl add %d: %w", fd, err)
	}
	s := &Source{r: r, fd: fd, closer: closer}
	r.sources.Set(int32(fd), s)
	r.log.Debug().Int("fd", fd).Msg("source opened")
	return s, nil
}

func (r *Reactor) rearm(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: events | unix.EPOLLONESHOT, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("netpoll: epoll ctl mod %d: %w", fd, err)
	}
	return nil
}

func (r *Reactor) remove(fd int) {
	r.sources.Remove(int32(fd))
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		r.log.Debug().Int("fd", fd).Err(err).Msg("epoll ctl del")
	}
}

func (r *Reactor) wakeup() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(r.evfd, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		r.log.Error().Err(err).Msg("eventfd write")
	}
}

func (r *Reactor) drainWakeup() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.evfd, buf[:]); err != nil {
			return
		}
	}
}

// Len returns the number of open sources.
func (r *Reactor) Len() int {
	return r.sources.Count()
}

// Close stops Run, closes every open source and releases the epoll
// instance.
func (r *Reactor) Close() error {
	err := ErrClosed
	r.once.Do(func() {
		r.closed.Store(1)
		r.wakeup()
		r.running.Wait()
		for _, s := range r.sources.Items() {
			s.Close()
		}
		err = unix.Close(r.epfd)
		if cerr := unix.Close(r.evfd); err == nil {
			err = cerr
		}
	})
	return err
}
