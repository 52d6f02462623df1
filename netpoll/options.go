// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netpoll

import "github.com/rs/zerolog"

// Option configures a Reactor.
type Option func(*options)

type options struct {
	log       zerolog.Logger
	maxEvents int
}

// WithLogger sets the reactor's logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMaxEvents sets how many events one epoll wait may return.
func WithMaxEvents(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop(), maxEvents: 128}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
