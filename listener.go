// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "context"

// Listener is a remote port forward opened by Session.ChannelForwardListen.
type Listener struct {
	a *Adapter
	l EngineListener
}

// Accept suspends until the server forwards a connection.
func (l *Listener) Accept(ctx context.Context) (*Channel, error) {
	ch, err := Await(ctx, l.a, "accept", l.l.Accept)
	if err != nil {
		return nil, err
	}
	return newChannel(l.a, ch), nil
}
