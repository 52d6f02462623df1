// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/assh"
	"code.hybscloud.com/assh/enginetest"
	"code.hybscloud.com/iox"
)

func TestReadinessTokens(t *testing.T) {
	r := enginetest.NewReadiness()
	w := assh.NewWaker()

	// An event with no waiter is kept for the next poll.
	r.Fire(assh.BlockInbound)
	if ready, err := r.PollReadable(w); err != nil || !ready {
		t.Fatalf("poll after fire: %v, %v", ready, err)
	}
	if ready, _ := r.PollReadable(w); ready {
		t.Fatal("token consumed twice")
	}
	if !r.Holds(w, assh.BlockInbound) || r.Holds(w, assh.BlockOutbound) {
		t.Fatal("registration in the wrong direction")
	}

	r.Fire(assh.BlockInbound)
	<-w.C()
	if r.Waiting(assh.BlockInbound) {
		t.Fatal("woken waker still registered")
	}
}

func TestReadinessReplaceAndForget(t *testing.T) {
	r := enginetest.NewReadiness()
	old, cur := assh.NewWaker(), assh.NewWaker()
	r.PollWritable(old)
	r.PollWritable(cur)
	r.Forget(old)
	if !r.Holds(cur, assh.BlockOutbound) {
		t.Fatal("forgetting a replaced waiter dropped the current one")
	}
	r.Forget(cur)
	if r.Waiting(assh.BlockBoth) {
		t.Fatal("forget left a registration")
	}
}

func TestReadinessFail(t *testing.T) {
	r := enginetest.NewReadiness()
	w := assh.NewWaker()
	r.PollReadable(w)
	boom := errors.New("boom")
	r.Fail(boom)
	<-w.C()
	if _, err := r.PollWritable(w); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestSequence(t *testing.T) {
	s := enginetest.NewSequence(
		enginetest.Block[string](assh.BlockOutbound),
		enginetest.Ok("x"),
	)
	var fired []assh.BlockDirection
	s.OnBlock(func(d assh.BlockDirection) { fired = append(fired, d) })

	if _, err := s.Call(); !iox.IsWouldBlock(err) {
		t.Fatalf("first: %v", err)
	}
	if s.BlockDirections() != assh.BlockOutbound || len(fired) != 1 {
		t.Fatalf("direction %v, fired %v", s.BlockDirections(), fired)
	}
	if v, err := s.Call(); err != nil || v != "x" {
		t.Fatalf("second: %q, %v", v, err)
	}
	if _, err := s.Call(); !errors.Is(err, enginetest.ErrExhausted) {
		t.Fatalf("exhausted: %v", err)
	}
	if s.Calls() != 3 || s.Remaining() != 0 || s.Overlaps() != 0 {
		t.Fatalf("calls %d, remaining %d, overlaps %d", s.Calls(), s.Remaining(), s.Overlaps())
	}
}

func TestEngineStall(t *testing.T) {
	src := enginetest.NewReadiness()
	e := enginetest.New(src)
	e.Stall("handshake", assh.BlockInbound, assh.BlockNone)

	if err := e.Handshake(); !iox.IsWouldBlock(err) {
		t.Fatalf("first: %v", err)
	}
	if e.BlockDirections() != assh.BlockInbound {
		t.Fatalf("direction: %v", e.BlockDirections())
	}
	if err := e.Handshake(); !iox.IsWouldBlock(err) || e.BlockDirections() != assh.BlockNone {
		t.Fatalf("second: %v, %v", err, e.BlockDirections())
	}
	if err := e.Handshake(); err != nil {
		t.Fatalf("third: %v", err)
	}
	if e.Calls("handshake") != 3 {
		t.Fatalf("calls: %d", e.Calls("handshake"))
	}
}

func TestEngineFailNext(t *testing.T) {
	e := enginetest.New(enginetest.NewReadiness())
	refused := &enginetest.Error{Code: enginetest.CodeSocketDisconnect}
	e.FailNext("handshake", refused)
	if err := e.Handshake(); !errors.Is(err, refused) {
		t.Fatalf("got %v", err)
	}
	if err := e.Handshake(); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestFS(t *testing.T) {
	fs := enginetest.NewFS()
	if err := fs.WriteFile("/srv/data/a.txt", []byte("abc"), 0o640); err != nil {
		t.Fatal(err)
	}
	if !fs.Exists("/srv") || !fs.Exists("/srv/data") {
		t.Fatal("parents not created")
	}
	data, mode, err := fs.ReadFile("/srv/data/a.txt")
	if err != nil || string(data) != "abc" || mode&0o777 != 0o640 {
		t.Fatalf("read: %q, %o, %v", data, mode, err)
	}
	if err := fs.WriteFile("/srv", nil, 0o644); err == nil {
		t.Fatal("overwrote a directory")
	}
	if _, _, err := fs.ReadFile("/none"); !errors.Is(err, &enginetest.Error{Code: enginetest.CodeSftpNoSuchFile}) {
		t.Fatalf("missing: %v", err)
	}
}

func TestChannelWouldBlockTransfersNothing(t *testing.T) {
	e := enginetest.New(enginetest.NewReadiness())
	e.AddUser("u", "p")
	if err := e.Handshake(); err != nil {
		t.Fatal(err)
	}
	if err := e.UserauthPassword("u", "p"); err != nil {
		t.Fatal(err)
	}
	ch, err := e.ChannelSession()
	if err != nil {
		t.Fatal(err)
	}

	n, err := ch.Read(assh.StreamData, make([]byte, 8))
	if !iox.IsWouldBlock(err) || n != 0 {
		t.Fatalf("empty read: %d, %v", n, err)
	}
	packet := make([]byte, 1024)
	for range 64 {
		n, err = ch.Write(assh.StreamData, packet)
		if err != nil {
			break
		}
		if n != len(packet) {
			t.Fatalf("short write: %d", n)
		}
	}
	if !iox.IsWouldBlock(err) || n != 0 {
		t.Fatalf("full window: %d, %v", n, err)
	}
	if e.BlockDirections() != assh.BlockOutbound {
		t.Fatalf("direction: %v", e.BlockDirections())
	}
}
