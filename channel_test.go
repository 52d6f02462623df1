// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"code.hybscloud.com/assh"
	"code.hybscloud.com/assh/enginetest"
	"code.hybscloud.com/iox"
	"golang.org/x/crypto/ssh"
)

// echo serves "cat": everything written comes back on stdout.
func echo(req enginetest.Request, p *enginetest.Peer) {
	data, _ := p.ReadAll()
	p.Write(data)
	p.Exit(0)
}

func TestSessionOutput(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) {
		p.Write([]byte("hello " + req.Command))
		p.WriteStderr([]byte("warning"))
		p.Exit(3)
	})

	out, err := s.Output(testContext(t), "world")
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if string(out.Stdout) != "hello world" {
		t.Fatalf("stdout: %q", out.Stdout)
	}
	if string(out.Stderr) != "warning" {
		t.Fatalf("stderr: %q", out.Stderr)
	}
	if out.ExitStatus != 3 {
		t.Fatalf("exit status: %d", out.ExitStatus)
	}
}

func TestSessionOutputLargeStderrFirst(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	big := bytes.Repeat([]byte("e"), 512*1024)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) {
		// Far beyond one window: stderr must drain while stdout is idle.
		p.WriteStderr(big)
		p.Write([]byte("tail"))
		p.Exit(0)
	})

	out, err := s.Output(testContext(t), "noisy")
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if !bytes.Equal(out.Stderr, big) {
		t.Fatalf("stderr: got %d bytes, want %d", len(out.Stderr), len(big))
	}
	if string(out.Stdout) != "tail" {
		t.Fatalf("stdout: %q", out.Stdout)
	}
}

func TestSessionOutputChannelError(t *testing.T) {
	s, e, _ := loggedIn(t)
	e.FailNext("exec", &enginetest.Error{Code: enginetest.CodeChannelFailure})

	_, err := s.Output(testContext(t), "ls")
	if !errors.Is(err, &enginetest.Error{Code: enginetest.CodeChannelFailure}) {
		t.Fatalf("got %v, want channel failure", err)
	}
	if e.Calls("channel_read") != 0 {
		t.Fatal("script continued after the failed exec")
	}
}

func TestChannelRequiresAuth(t *testing.T) {
	s, _, _ := newSession(t)
	if err := s.Handshake(testContext(t)); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if _, err := s.ChannelSession(testContext(t)); err == nil {
		t.Fatal("channel opened before authentication")
	}
}

func TestChannelEcho(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	e.Handle(echo)
	ctx := testContext(t)

	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if err := ch.Exec(ctx, "cat"); err != nil {
		t.Fatalf("exec: %v", err)
	}

	// Large enough that writes suspend on the outbound window while the
	// peer drains it.
	payload := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)
	n, err := ch.WriteContext(ctx, payload)
	if err != nil || n != len(payload) {
		t.Fatalf("write: %d, %v", n, err)
	}
	if err := ch.CloseWrite(ctx); err != nil {
		t.Fatalf("close write: %v", err)
	}
	got, err := io.ReadAll(ch)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("echo: got %d bytes, want %d", len(got), len(payload))
	}
	if !ch.EOF() {
		t.Fatal("EOF not reported after the remote closed")
	}
	if err := ch.WaitEOF(ctx); err != nil {
		t.Fatalf("wait eof: %v", err)
	}
	if err := ch.CloseContext(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ch.WaitClose(ctx); err != nil {
		t.Fatalf("wait close: %v", err)
	}
	if status, _ := ch.ExitStatus(); status != 0 {
		t.Fatalf("exit status: %d", status)
	}
	if s.Adapter().Stats().Suspensions == 0 {
		t.Fatal("a window-sized transfer never suspended")
	}
}

func TestChannelWriteAfterEOF(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := testContext(t)
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if err := ch.SendEOF(ctx); err != nil {
		t.Fatalf("send eof: %v", err)
	}
	if _, err := ch.WriteContext(ctx, []byte("late")); err == nil {
		t.Fatal("write after EOF accepted")
	}
}

func TestChannelReadCancel(t *testing.T) {
	s, _, src := loggedIn(t)
	ctx, cancel := context.WithCancel(testContext(t))
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	go func() {
		<-src.Armed()
		cancel()
	}()
	buf := make([]byte, 16)
	if _, err := ch.ReadContext(ctx, buf); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if src.Waiting(assh.BlockBoth) {
		t.Fatal("cancelled read still registered")
	}
	if n, err := ch.ReadContext(ctx, nil); n != 0 || err != nil {
		t.Fatalf("empty read: %d, %v", n, err)
	}
}

func TestChannelTryRead(t *testing.T) {
	skipRace(t)
	s, e, src := loggedIn(t)
	ctx := testContext(t)
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	buf := make([]byte, 16)
	if _, err := ch.TryRead(buf); !iox.IsWouldBlock(err) {
		t.Fatalf("empty channel: got %v, want would-block", err)
	}
	if !src.Waiting(assh.BlockInbound) {
		t.Fatal("pending read holds no inbound registration")
	}

	peer := channelPeer(t, e, ch)
	peer.Write([]byte("ping"))
	<-ch.ReadReady()
	n, err := ch.TryRead(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("try read: %q, %v", buf[:n], err)
	}
}

func TestChannelReadWriteShareDirection(t *testing.T) {
	skipRace(t)
	s, e, src := loggedIn(t)
	ch, err := s.ChannelSession(testContext(t))
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	peer := channelPeer(t, e, ch)

	// The write waits inbound too, as a write stalled by a rekey does.
	e.Hold("channel_write", assh.BlockInbound)
	buf := make([]byte, 16)
	if _, err := ch.TryRead(buf); !iox.IsWouldBlock(err) {
		t.Fatalf("read: got %v, want would-block", err)
	}
	if _, err := ch.TryWrite([]byte("pong")); !iox.IsWouldBlock(err) {
		t.Fatalf("write: got %v, want would-block", err)
	}

	peer.Write([]byte("ping"))
	<-ch.WriteReady()
	select {
	case <-ch.ReadReady():
		t.Fatal("replaced read waiter was woken")
	default:
	}
	if src.Waiting(assh.BlockInbound) {
		t.Fatal("inbound slot still held after the wake")
	}

	n, err := ch.TryRead(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("retried read: %q, %v", buf[:n], err)
	}
	if n, err := ch.TryWrite([]byte("pong")); err != nil || n != 4 {
		t.Fatalf("retried write: %d, %v", n, err)
	}
}

// channelPeer opens the remote end of ch via a shell request.
func channelPeer(t *testing.T, e *enginetest.Engine, ch *assh.Channel) *enginetest.Peer {
	t.Helper()
	peers := make(chan *enginetest.Peer, 1)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) { peers <- p })
	if err := ch.Shell(testContext(t)); err != nil {
		t.Fatalf("shell: %v", err)
	}
	return <-peers
}

func TestChannelRequests(t *testing.T) {
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	reqs := make(chan enginetest.Request, 1)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) {
		reqs <- req
		p.Exit(0)
	})

	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if err := ch.Setenv(ctx, "LANG", "C"); err != nil {
		t.Fatalf("setenv: %v", err)
	}
	if err := ch.RequestPTYSize(ctx, 100, 40, 0, 0); err == nil {
		t.Fatal("pty resize without a pty accepted")
	}
	modes := ssh.TerminalModes{ssh.ECHO: 0, ssh.TTY_OP_ISPEED: 14400}
	if err := ch.RequestPTY(ctx, "xterm", modes, nil); err != nil {
		t.Fatalf("pty: %v", err)
	}
	if err := ch.RequestPTYSize(ctx, 120, 50, 0, 0); err != nil {
		t.Fatalf("pty size: %v", err)
	}
	if err := ch.Subsystem(ctx, "netconf"); err != nil {
		t.Fatalf("subsystem: %v", err)
	}
	req := <-reqs
	if req.Type != "subsystem" || req.Command != "netconf" || req.Env["LANG"] != "C" {
		t.Fatalf("request: %+v", req)
	}
	if err := ch.Exec(ctx, "ls"); err == nil {
		t.Fatal("second request on one channel accepted")
	}
}

func TestChannelProcessStartup(t *testing.T) {
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	reqs := make(chan enginetest.Request, 1)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) { reqs <- req })
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	e.Stall("process_startup", assh.BlockOutbound)
	if err := ch.ProcessStartup(ctx, "exec", "uptime"); err != nil {
		t.Fatalf("process startup: %v", err)
	}
	if req := <-reqs; req.Type != "exec" || req.Command != "uptime" {
		t.Fatalf("request: %+v", req)
	}
}

func TestChannelExtendedData(t *testing.T) {
	skipRace(t)
	tests := []struct {
		mode           assh.ExtendedData
		stdout, stderr string
	}{
		{assh.ExtendedDataNormal, "out", "err"},
		{assh.ExtendedDataIgnore, "out", ""},
		{assh.ExtendedDataMerge, "outerr", ""},
	}
	for _, tt := range tests {
		s, e, _ := loggedIn(t)
		ctx := testContext(t)
		e.Handle(func(req enginetest.Request, p *enginetest.Peer) {
			p.Write([]byte("out"))
			p.WriteStderr([]byte("err"))
			p.Exit(0)
		})
		ch, err := s.ChannelSession(ctx)
		if err != nil {
			t.Fatalf("channel: %v", err)
		}
		if err := ch.HandleExtendedData(ctx, tt.mode); err != nil {
			t.Fatalf("extended data: %v", err)
		}
		if err := ch.Exec(ctx, "both"); err != nil {
			t.Fatalf("exec: %v", err)
		}
		stdout, err := io.ReadAll(ch)
		if err != nil {
			t.Fatalf("mode %d: stdout: %v", tt.mode, err)
		}
		stderr, err := io.ReadAll(ch.Stderr())
		if err != nil {
			t.Fatalf("mode %d: stderr: %v", tt.mode, err)
		}
		if string(stdout) != tt.stdout || string(stderr) != tt.stderr {
			t.Errorf("mode %d: stdout %q stderr %q, want %q %q", tt.mode, stdout, stderr, tt.stdout, tt.stderr)
		}
	}
}

func TestChannelLimitRead(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) {
		p.Write([]byte("0123456789"))
		p.Exit(0)
	})
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	ch.LimitRead(4)
	if err := ch.Exec(ctx, "digits"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	got, err := io.ReadAll(ch)
	if err != nil || string(got) != "0123" {
		t.Fatalf("limited read: %q, %v", got, err)
	}
}

func TestChannelExitSignal(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) {
		p.Kill(assh.ExitSignal{Signal: "TERM", Message: "terminated"})
	})
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if err := ch.Exec(ctx, "sleep 100"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := ch.WaitEOF(ctx); err != nil {
		t.Fatalf("wait eof: %v", err)
	}
	sig, err := ch.ExitSignal()
	if err != nil || sig.Signal != "TERM" {
		t.Fatalf("exit signal: %+v, %v", sig, err)
	}
	if status, _ := ch.ExitStatus(); status != -1 {
		t.Fatalf("exit status: %d, want -1", status)
	}
}

func TestChannelWindows(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := testContext(t)
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	rw := ch.ReadWindow()
	if rw.WindowSizeInitial == 0 || rw.Remaining != rw.WindowSizeInitial {
		t.Fatalf("read window: %+v", rw)
	}
	if ww := ch.WriteWindow(); ww.WindowSizeInitial == 0 {
		t.Fatalf("write window: %+v", ww)
	}
	win, err := ch.AdjustReceiveWindow(ctx, 1024, false)
	if err != nil || win != uint64(rw.WindowSizeInitial)+1024 {
		t.Fatalf("adjust: %d, %v", win, err)
	}
	var c io.Closer = ch
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestChannelDirectTCPIP(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	reqs := make(chan enginetest.Request, 1)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) {
		reqs <- req
		echo(req, p)
	})

	ch, err := s.ChannelDirectTCPIP(ctx, "db.internal", 5432, &assh.Endpoint{Host: "127.0.0.1", Port: 50000})
	if err != nil {
		t.Fatalf("direct-tcpip: %v", err)
	}
	if req := <-reqs; req.Type != "direct-tcpip" || req.Host != "db.internal" || req.Port != 5432 {
		t.Fatalf("request: %+v", req)
	}
	if _, err := ch.Write([]byte("SELECT 1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ch.CloseWrite(ctx); err != nil {
		t.Fatalf("close write: %v", err)
	}
	got, err := io.ReadAll(ch)
	if err != nil || string(got) != "SELECT 1" {
		t.Fatalf("read: %q, %v", got, err)
	}
}

func TestChannelOpen(t *testing.T) {
	s, e, _ := loggedIn(t)
	reqs := make(chan enginetest.Request, 1)
	e.Handle(func(req enginetest.Request, p *enginetest.Peer) { reqs <- req })
	e.Stall("channel_open", assh.BlockInbound, assh.BlockOutbound)
	if _, err := s.ChannelOpen(testContext(t), "x11", 0, 0, "display"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if req := <-reqs; req.Type != "x11" {
		t.Fatalf("request: %+v", req)
	}
}

func TestListenerAccept(t *testing.T) {
	skipRace(t)
	s, e, src := loggedIn(t)
	ctx := testContext(t)

	l, port, err := s.ChannelForwardListen(ctx, 0, "localhost", 2)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if port == 0 {
		t.Fatal("no port bound")
	}
	if _, _, err := s.ChannelForwardListen(ctx, port, "localhost", 2); err == nil {
		t.Fatal("port bound twice")
	}

	type accepted struct {
		ch  *assh.Channel
		err error
	}
	done := make(chan accepted, 1)
	go func() {
		ch, err := l.Accept(ctx)
		done <- accepted{ch, err}
	}()
	eventually(t, "accept to suspend", func() bool { return src.Waiting(assh.BlockInbound) })

	peer, err := e.Dial(port)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	peer.Write([]byte("GET /"))
	peer.CloseWrite()

	a := <-done
	if a.err != nil {
		t.Fatalf("accept: %v", a.err)
	}
	got, err := io.ReadAll(a.ch)
	if err != nil || string(got) != "GET /" {
		t.Fatalf("read: %q, %v", got, err)
	}
	if req := peer.Request(); req == nil || req.Type != "forwarded-tcpip" || req.Port != port {
		t.Fatalf("request: %+v", req)
	}
}

func TestListenerBacklog(t *testing.T) {
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	l, port, err := s.ChannelForwardListen(ctx, 2222, "", 1)
	if err != nil || port != 2222 {
		t.Fatalf("listen: %d, %v", port, err)
	}
	if _, err := e.Dial(port); err != nil {
		t.Fatalf("first dial: %v", err)
	}
	if _, err := e.Dial(port); err == nil {
		t.Fatal("dial beyond the backlog accepted")
	}
	if _, err := l.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.Dial(port); err != nil {
		t.Fatalf("dial after accept: %v", err)
	}
}

func TestStreamSubstreams(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if ch.Substream(assh.StreamData) != ch.Stream || ch.Substream(assh.StreamStderr) != ch.Stderr() {
		t.Fatal("substream lookup does not return the channel's streams")
	}
	peer := channelPeer(t, e, ch)
	if _, err := ch.Stderr().WriteContext(ctx, []byte("diag")); err != nil {
		t.Fatalf("stderr write: %v", err)
	}
	if err := ch.Stderr().FlushContext(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	buf := make([]byte, 8)
	n, err := peer.ReadStderr(buf)
	if err != nil || string(buf[:n]) != "diag" {
		t.Fatalf("peer stderr: %q, %v", buf[:n], err)
	}
	if _, err := ch.Substream(7).TryRead(buf); err == nil || iox.IsWouldBlock(err) {
		t.Fatalf("unknown substream: %v", err)
	}
}

func TestStreamSequentialWrites(t *testing.T) {
	skipRace(t)
	s, e, _ := loggedIn(t)
	ctx := testContext(t)
	e.Handle(echo)
	ch, err := s.ChannelSession(ctx)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if err := ch.Exec(ctx, "cat"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	var want strings.Builder
	for i := range 50 {
		line := strings.Repeat(string(rune('a'+i%26)), 1000+i) + "\n"
		want.WriteString(line)
		if _, err := io.WriteString(ch, line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := ch.CloseWrite(ctx); err != nil {
		t.Fatalf("close write: %v", err)
	}
	got, err := io.ReadAll(ch)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != want.String() {
		t.Fatalf("got %d bytes, want %d in order", len(got), want.Len())
	}
}
