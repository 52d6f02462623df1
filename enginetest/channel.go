// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import (
	"io"
	"sync"

	"code.hybscloud.com/assh"
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"golang.org/x/crypto/ssh"
)

const (
	// pipeCapacity is the number of chunks in flight per substream and
	// direction. A full pipe is a full channel window.
	pipeCapacity = 4
	// packetSize caps the bytes one channel write accepts.
	packetSize = 32 * 1024
	windowSize = pipeCapacity * packetSize
	substreams = 2
)

// pipe is one direction of one substream. The producer and the consumer
// each run on a single goroutine.
type pipe struct {
	q       lfq.SPSC[[]byte]
	eof     atomix.Uint32
	pending []byte
}

func newPipe() *pipe {
	p := &pipe{}
	p.q.Init(pipeCapacity)
	return p
}

// send enqueues a copy of b. It returns iox.ErrWouldBlock when full.
func (p *pipe) send(b []byte) error {
	c := append([]byte(nil), b...)
	return p.q.Enqueue(&c)
}

// recv copies the next bytes into dst. It returns iox.ErrWouldBlock when
// empty and io.EOF once the producer has closed and everything is drained.
func (p *pipe) recv(dst []byte) (int, error) {
	if len(p.pending) == 0 {
		c, err := p.q.Dequeue()
		if err != nil {
			if p.eof.Load() == 0 {
				return 0, iox.ErrWouldBlock
			}
			// eof is stored after the last enqueue.
			if c, err = p.q.Dequeue(); err != nil {
				return 0, io.EOF
			}
		}
		p.pending = c
	}
	n := copy(dst, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *pipe) close() { p.eof.Store(1) }

func (p *pipe) closed() bool { return p.eof.Load() != 0 }

// Channel is the local end of a fake channel.
type Channel struct {
	e    *Engine
	in   [substreams]*pipe
	out  [substreams]*pipe
	peer *Peer

	mu         sync.Mutex
	req        *Request
	env        map[string]string
	term       string
	modes      ssh.TerminalModes
	dims       assh.PtyDims
	extended   assh.ExtendedData
	window     uint64
	limit      uint64
	read       uint64
	sentEOF    bool
	closing    bool
	exitSignal assh.ExitSignal

	exitStatus   atomix.Uint32
	remoteClosed atomix.Uint32
}

var _ assh.EngineChannel = (*Channel)(nil)

func newChannel(e *Engine) *Channel {
	c := &Channel{e: e, env: make(map[string]string), window: windowSize}
	for i := range substreams {
		c.in[i] = newPipe()
		c.out[i] = newPipe()
	}
	c.peer = &Peer{c: c}
	return c
}

// Peer returns the remote end of the channel.
func (c *Channel) Peer() *Peer { return c.peer }

// serve records req and starts the engine's handler for it.
func (c *Channel) serve(req Request) error {
	c.mu.Lock()
	if c.req != nil {
		c.mu.Unlock()
		return errorf(CodeChannelFailure, "%s: request already made", req.Type)
	}
	req.Env = make(map[string]string, len(c.env))
	for k, v := range c.env {
		req.Env[k] = v
	}
	c.req = &req
	c.mu.Unlock()

	c.e.mu.Lock()
	h := c.e.handler
	c.e.mu.Unlock()
	if h != nil {
		go h(req, c.peer)
	}
	return nil
}

func (c *Channel) request(op string, req Request) error {
	if err := c.e.enter(op); err != nil {
		return err
	}
	return c.serve(req)
}

func (c *Channel) Setenv(name, value string) error {
	if err := c.e.enter("setenv"); err != nil {
		return err
	}
	c.mu.Lock()
	c.env[name] = value
	c.mu.Unlock()
	return nil
}

func (c *Channel) RequestPTY(term string, modes ssh.TerminalModes, dims *assh.PtyDims) error {
	if err := c.e.enter("request_pty"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term, c.modes = term, modes
	if dims != nil {
		c.dims = *dims
	} else {
		c.dims = assh.PtyDims{Width: 80, Height: 24}
	}
	return nil
}

func (c *Channel) RequestPTYSize(width, height, widthPx, heightPx uint32) error {
	if err := c.e.enter("request_pty_size"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.term == "" {
		return errorf(CodeChannelFailure, "no pty")
	}
	c.dims = assh.PtyDims{Width: width, Height: height, WidthPx: widthPx, HeightPx: heightPx}
	return nil
}

// PTY returns the requested terminal type and size.
func (c *Channel) PTY() (string, assh.PtyDims) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.term, c.dims
}

func (c *Channel) Exec(command string) error {
	return c.request("exec", Request{Type: "exec", Command: command})
}

func (c *Channel) Shell() error {
	return c.request("shell", Request{Type: "shell"})
}

func (c *Channel) Subsystem(name string) error {
	return c.request("subsystem", Request{Type: "subsystem", Command: name})
}

func (c *Channel) ProcessStartup(request, message string) error {
	return c.request("process_startup", Request{Type: request, Command: message})
}

func (c *Channel) HandleExtendedData(mode assh.ExtendedData) error {
	if err := c.e.enter("handle_extended_data"); err != nil {
		return err
	}
	c.mu.Lock()
	c.extended = mode
	c.mu.Unlock()
	return nil
}

func (c *Channel) Read(stream int, p []byte) (int, error) {
	if err := c.e.enter("channel_read"); err != nil {
		return 0, err
	}
	if stream < 0 || stream >= substreams {
		return 0, errorf(CodeInval, "stream %d", stream)
	}
	c.mu.Lock()
	mode, limit, read := c.extended, c.limit, c.read
	c.mu.Unlock()
	if limit > 0 {
		if read >= limit {
			return 0, io.EOF
		}
		if rest := limit - read; uint64(len(p)) > rest {
			p = p[:rest]
		}
	}

	var n int
	var err error
	switch {
	case stream == assh.StreamStderr && mode != assh.ExtendedDataNormal:
		return 0, io.EOF
	case stream == assh.StreamData && mode == assh.ExtendedDataMerge:
		n, err = c.in[assh.StreamData].recv(p)
		if err != nil {
			n2, err2 := c.in[assh.StreamStderr].recv(p)
			switch {
			case err2 == nil:
				n, err = n2, nil
			case iox.IsWouldBlock(err2):
				n, err = 0, err2
			}
		}
	default:
		n, err = c.in[stream].recv(p)
	}
	if iox.IsWouldBlock(err) {
		return 0, c.e.block(assh.BlockInbound)
	}
	c.mu.Lock()
	c.read += uint64(n)
	c.mu.Unlock()
	return n, err
}

func (c *Channel) Write(stream int, p []byte) (int, error) {
	if err := c.e.enter("channel_write"); err != nil {
		return 0, err
	}
	if stream < 0 || stream >= substreams {
		return 0, errorf(CodeInval, "stream %d", stream)
	}
	c.mu.Lock()
	eof := c.sentEOF
	c.mu.Unlock()
	if eof {
		return 0, errorf(CodeChannelClosed, "write after eof")
	}
	if c.remoteClosed.Load() != 0 {
		return 0, errorf(CodeChannelClosed, "remote closed")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) > packetSize {
		p = p[:packetSize]
	}
	if err := c.out[stream].send(p); err != nil {
		if iox.IsWouldBlock(err) {
			return 0, c.e.block(assh.BlockOutbound)
		}
		return 0, err
	}
	return len(p), nil
}

// Flush drains nothing: writes are delivered as they are accepted.
func (c *Channel) Flush(stream int) error {
	return c.e.enter("channel_flush")
}

func (c *Channel) ExitStatus() (int, error) {
	return int(int32(c.exitStatus.Load())), nil
}

func (c *Channel) ExitSignal() (assh.ExitSignal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitSignal, nil
}

func (c *Channel) ReadWindow() assh.ReadWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return assh.ReadWindow{
		Remaining:         uint32(c.window),
		Available:         uint32(len(c.in[assh.StreamData].pending)),
		WindowSizeInitial: windowSize,
	}
}

func (c *Channel) WriteWindow() assh.WriteWindow {
	return assh.WriteWindow{Remaining: windowSize, WindowSizeInitial: windowSize}
}

func (c *Channel) AdjustReceiveWindow(adjust uint64, force bool) (uint64, error) {
	if err := c.e.enter("adjust_receive_window"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if adjust > 0 || force {
		c.window += adjust
	}
	return c.window, nil
}

func (c *Channel) LimitRead(limit uint64) {
	c.mu.Lock()
	c.limit = limit
	c.mu.Unlock()
}

func (c *Channel) EOF() bool {
	return c.in[assh.StreamData].closed()
}

func (c *Channel) SendEOF() error {
	if err := c.e.enter("send_eof"); err != nil {
		return err
	}
	c.sendEOF()
	return nil
}

func (c *Channel) sendEOF() {
	c.mu.Lock()
	c.sentEOF = true
	c.mu.Unlock()
	for _, p := range c.out {
		p.close()
	}
}

func (c *Channel) WaitEOF() error {
	if err := c.e.enter("wait_eof"); err != nil {
		return err
	}
	if !c.in[assh.StreamData].closed() {
		return c.e.block(assh.BlockInbound)
	}
	return nil
}

func (c *Channel) Close() error {
	if err := c.e.enter("channel_close"); err != nil {
		return err
	}
	c.sendEOF()
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	return nil
}

func (c *Channel) WaitClose() error {
	if err := c.e.enter("wait_close"); err != nil {
		return err
	}
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if !closing {
		return errorf(CodeInval, "wait_close before close")
	}
	if c.remoteClosed.Load() == 0 {
		return c.e.block(assh.BlockInbound)
	}
	return nil
}

// Peer is the remote end of a channel. Its methods block, backing off
// until the local side makes room or data.
type Peer struct {
	c *Channel
}

// Channel returns the local end.
func (p *Peer) Channel() *Channel { return p.c }

// Write sends b on the data substream.
func (p *Peer) Write(b []byte) (int, error) {
	return p.send(assh.StreamData, b)
}

// WriteStderr sends b on the stderr substream.
func (p *Peer) WriteStderr(b []byte) (int, error) {
	return p.send(assh.StreamStderr, b)
}

func (p *Peer) send(stream int, b []byte) (int, error) {
	in := p.c.in[stream]
	if in.closed() {
		return 0, errorf(CodeChannelClosed, "peer write after eof")
	}
	total := 0
	var bo iox.Backoff
	for total < len(b) {
		n := min(len(b)-total, packetSize)
		if err := in.send(b[total : total+n]); err != nil {
			bo.Wait()
			continue
		}
		bo.Reset()
		total += n
		p.c.e.src.Fire(assh.BlockInbound)
	}
	return total, nil
}

// Read receives what the local side wrote on the data substream. It
// returns io.EOF after the local side sent EOF.
func (p *Peer) Read(b []byte) (int, error) {
	return p.recv(assh.StreamData, b)
}

// ReadStderr receives what the local side wrote on the stderr substream.
func (p *Peer) ReadStderr(b []byte) (int, error) {
	return p.recv(assh.StreamStderr, b)
}

func (p *Peer) recv(stream int, b []byte) (int, error) {
	out := p.c.out[stream]
	var bo iox.Backoff
	for {
		n, err := out.recv(b)
		if !iox.IsWouldBlock(err) {
			if err == nil {
				p.c.e.src.Fire(assh.BlockOutbound)
			}
			return n, err
		}
		bo.Wait()
	}
}

// ReadAll receives the data substream until the local side sends EOF.
func (p *Peer) ReadAll() ([]byte, error) {
	var all []byte
	buf := make([]byte, packetSize)
	for {
		n, err := p.Read(buf)
		all = append(all, buf[:n]...)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return all, err
		}
	}
}

// CloseWrite sends EOF on both substreams.
func (p *Peer) CloseWrite() {
	for _, in := range p.c.in {
		in.close()
	}
	p.c.e.src.Fire(assh.BlockInbound)
}

// Exit reports status, sends EOF and closes the channel from the remote side.
func (p *Peer) Exit(status int) {
	p.c.exitStatus.Store(uint32(int32(status)))
	p.close()
}

// Kill reports sig as the cause of exit and closes the channel.
func (p *Peer) Kill(sig assh.ExitSignal) {
	p.c.mu.Lock()
	p.c.exitSignal = sig
	p.c.mu.Unlock()
	p.c.exitStatus.Store(^uint32(0))
	p.close()
}

func (p *Peer) close() {
	for _, in := range p.c.in {
		in.close()
	}
	p.c.remoteClosed.Store(1)
	p.c.e.src.Fire(assh.BlockInbound)
}

// Request returns the request that started the channel, or nil.
func (p *Peer) Request() *Request {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	return p.c.req
}
