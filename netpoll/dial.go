// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netpoll

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"code.hybscloud.com/assh"
	"github.com/cenkalti/backoff/v4"
)

// Dial connects to cfg.Address with exponential backoff and registers the
// connection with r. Closing the returned source closes the connection.
func Dial(ctx context.Context, r *Reactor, cfg assh.DialConfig, opts ...Option) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Address == "" {
		return nil, errors.New("netpoll: dial: empty address")
	}
	o := buildOptions(opts)

	bo := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		bo.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		bo.MaxInterval = cfg.MaxInterval
	}
	bo.MaxElapsedTime = cfg.MaxElapsed

	var d net.Dialer
	var conn net.Conn
	op := func() error {
		c, err := d.DialContext(ctx, cfg.Network, cfg.Address)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		o.log.Debug().Str("address", cfg.Address).Err(err).Dur("retry_in", next).Msg("dial failed")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, fmt.Errorf("netpoll: dial %s: %w", cfg.Address, err)
	}

	sc, ok := conn.(syscall.Conn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("netpoll: dial %s: connection exposes no descriptor", cfg.Address)
	}
	src, err := r.OpenConn(sc)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return src, nil
}
