// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import (
	"sync"

	"code.hybscloud.com/assh"
	"github.com/eapache/queue"
)

// Listener is a fake remote port forward.
type Listener struct {
	e       *Engine
	port    uint16
	host    string
	limit   uint32
	mu      sync.Mutex
	backlog *queue.Queue
}

var _ assh.EngineListener = (*Listener)(nil)

func newListener(e *Engine, port uint16, host string, limit uint32) *Listener {
	return &Listener{e: e, port: port, host: host, limit: limit, backlog: queue.New()}
}

// Accept returns the oldest pending connection, or would-block for inbound
// data when none is queued.
func (l *Listener) Accept() (assh.EngineChannel, error) {
	if err := l.e.enter("accept"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.backlog.Length() == 0 {
		return nil, l.e.block(assh.BlockInbound)
	}
	return l.backlog.Remove().(*Channel), nil
}

// Dial simulates a client connecting to the forwarded port on the server.
// It returns the remote end of the forwarded channel once it is queued.
func (e *Engine) Dial(port uint16) (*Peer, error) {
	e.mu.Lock()
	l, ok := e.listeners[port]
	e.mu.Unlock()
	if !ok {
		return nil, errorf(CodeChannelFailure, "no listener on port %d", port)
	}
	l.mu.Lock()
	if l.limit > 0 && uint32(l.backlog.Length()) >= l.limit {
		l.mu.Unlock()
		return nil, errorf(CodeChannelFailure, "backlog of port %d full", port)
	}
	ch := newChannel(e)
	ch.req = &Request{Type: "forwarded-tcpip", Host: l.host, Port: port}
	l.backlog.Add(ch)
	l.mu.Unlock()
	e.src.Fire(assh.BlockInbound)
	return ch.peer, nil
}
