// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"
	"io"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// Channel is an open SSH channel. The embedded Stream is substream 0, the
// data stream; Stderr and Substream give access to the others.
type Channel struct {
	*Stream
	a      *Adapter
	ch     EngineChannel
	stderr *Stream
}

func newChannel(a *Adapter, ch EngineChannel) *Channel {
	c := &Channel{a: a, ch: ch}
	c.Stream = c.substream(StreamData)
	c.stderr = c.substream(StreamStderr)
	return c
}

func (c *Channel) substream(id int) *Stream {
	name := "channel." + strconv.Itoa(id)
	return newStream(c.a, name,
		func(p []byte) (int, error) { return c.ch.Read(id, p) },
		func(p []byte) (int, error) { return c.ch.Write(id, p) },
		func() error { return c.ch.Flush(id) },
	)
}

// Stderr returns the stderr substream.
func (c *Channel) Stderr() *Stream { return c.stderr }

// Substream returns substream id. Ids 0 and 1 return the shared data and
// stderr streams.
func (c *Channel) Substream(id int) *Stream {
	switch id {
	case StreamData:
		return c.Stream
	case StreamStderr:
		return c.stderr
	}
	return c.substream(id)
}

func (c *Channel) Setenv(ctx context.Context, name, value string) error {
	return do(ctx, c.a, "setenv", func() error { return c.ch.Setenv(name, value) })
}

// RequestPTY requests a pseudo terminal. dims may be nil for the engine's default.
func (c *Channel) RequestPTY(ctx context.Context, term string, modes ssh.TerminalModes, dims *PtyDims) error {
	return do(ctx, c.a, "request_pty", func() error { return c.ch.RequestPTY(term, modes, dims) })
}

func (c *Channel) RequestPTYSize(ctx context.Context, width, height, widthPx, heightPx uint32) error {
	return do(ctx, c.a, "request_pty_size", func() error {
		return c.ch.RequestPTYSize(width, height, widthPx, heightPx)
	})
}

// Exec starts command on the remote side.
func (c *Channel) Exec(ctx context.Context, command string) error {
	return do(ctx, c.a, "exec", func() error { return c.ch.Exec(command) })
}

func (c *Channel) Shell(ctx context.Context) error {
	return do(ctx, c.a, "shell", c.ch.Shell)
}

func (c *Channel) Subsystem(ctx context.Context, name string) error {
	return do(ctx, c.a, "subsystem", func() error { return c.ch.Subsystem(name) })
}

func (c *Channel) ProcessStartup(ctx context.Context, request, message string) error {
	return do(ctx, c.a, "process_startup", func() error { return c.ch.ProcessStartup(request, message) })
}

func (c *Channel) HandleExtendedData(ctx context.Context, mode ExtendedData) error {
	return do(ctx, c.a, "handle_extended_data", func() error { return c.ch.HandleExtendedData(mode) })
}

// ExitStatus returns the remote exit code. It is meaningful after WaitClose.
func (c *Channel) ExitStatus() (int, error) { return c.ch.ExitStatus() }

// ExitSignal returns the signal that ended the remote process, if any.
func (c *Channel) ExitSignal() (ExitSignal, error) { return c.ch.ExitSignal() }

func (c *Channel) ReadWindow() ReadWindow { return c.ch.ReadWindow() }

func (c *Channel) WriteWindow() WriteWindow { return c.ch.WriteWindow() }

// AdjustReceiveWindow grows the receive window by adjust and returns the new size.
func (c *Channel) AdjustReceiveWindow(ctx context.Context, adjust uint64, force bool) (uint64, error) {
	return Await(ctx, c.a, "adjust_receive_window", func() (uint64, error) {
		return c.ch.AdjustReceiveWindow(adjust, force)
	})
}

// LimitRead caps how many bytes the channel will read in total.
func (c *Channel) LimitRead(limit uint64) { c.ch.LimitRead(limit) }

// EOF reports whether the remote end has sent EOF.
func (c *Channel) EOF() bool { return c.ch.EOF() }

// SendEOF tells the remote end no more data follows.
func (c *Channel) SendEOF(ctx context.Context) error {
	return do(ctx, c.a, "send_eof", c.ch.SendEOF)
}

// WaitEOF suspends until the remote end sends EOF.
func (c *Channel) WaitEOF(ctx context.Context) error {
	return do(ctx, c.a, "wait_eof", c.ch.WaitEOF)
}

// CloseWrite flushes the data stream and sends EOF.
func (c *Channel) CloseWrite(ctx context.Context) error {
	if err := c.Stream.FlushContext(ctx); err != nil {
		return err
	}
	return c.SendEOF(ctx)
}

// CloseContext sends SSH_MSG_CHANNEL_CLOSE.
func (c *Channel) CloseContext(ctx context.Context) error {
	c.Stream.Cancel()
	c.stderr.Cancel()
	return do(ctx, c.a, "channel_close", c.ch.Close)
}

// Close implements io.Closer.
func (c *Channel) Close() error {
	return c.CloseContext(context.Background())
}

// WaitClose suspends until the remote end acknowledges the close.
func (c *Channel) WaitClose(ctx context.Context) error {
	return do(ctx, c.a, "wait_close", c.ch.WaitClose)
}

var _ io.ReadWriteCloser = (*Channel)(nil)
