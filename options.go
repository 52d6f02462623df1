// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "github.com/rs/zerolog"

// Option configures an [Adapter] or a [Session].
type Option func(*options)

type options struct {
	log     zerolog.Logger
	metrics *Metrics
	cfg     Config
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics attaches prometheus collectors created by NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConfig applies cfg. A non-empty LogLevel overrides the logger's level.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop(), cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(o.cfg.LogLevel); err == nil {
			o.log = o.log.Level(lvl)
		}
	}
	return o
}
