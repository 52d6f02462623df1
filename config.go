// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config is the TOML-loadable configuration of a session.
//
//	op_timeout = "30s"
//	log_level  = "debug"
//
//	[keepalive]
//	want_reply = true
//	interval   = 15
//
//	[dial]
//	network          = "tcp"
//	address          = "example.net:22"
//	initial_interval = "100ms"
//	max_interval     = "2s"
//	max_elapsed      = "10s"
type Config struct {
	// OpTimeout bounds every awaited operation. Zero means no bound.
	OpTimeout time.Duration   `toml:"op_timeout"`
	LogLevel  string          `toml:"log_level"`
	Keepalive KeepaliveConfig `toml:"keepalive"`
	Dial      DialConfig      `toml:"dial"`
}

// KeepaliveConfig is handed to the engine's SetKeepalive. Interval is in
// seconds; zero leaves keepalives off.
type KeepaliveConfig struct {
	WantReply bool   `toml:"want_reply"`
	Interval  uint32 `toml:"interval"`
}

// DialConfig controls how netpoll.Dial reaches the server.
type DialConfig struct {
	Network         string        `toml:"network"`
	Address         string        `toml:"address"`
	InitialInterval time.Duration `toml:"initial_interval"`
	MaxInterval     time.Duration `toml:"max_interval"`
	MaxElapsed      time.Duration `toml:"max_elapsed"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Dial: DialConfig{
			Network:         "tcp",
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			MaxElapsed:      10 * time.Second,
		},
	}
}

// LoadConfig reads a TOML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("assh: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("assh: parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("assh: unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.OpTimeout < 0 {
		return errors.New("assh: op_timeout must not be negative")
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("assh: log_level: %w", err)
		}
	}
	return c.Dial.Validate()
}

// Validate reports the first invalid dial field.
func (d DialConfig) Validate() error {
	switch d.Network {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		return fmt.Errorf("assh: dial.network %q is not a stream network", d.Network)
	}
	if d.InitialInterval < 0 || d.MaxInterval < 0 || d.MaxElapsed < 0 {
		return errors.New("assh: dial intervals must not be negative")
	}
	if d.InitialInterval > 0 && d.MaxInterval > 0 && d.MaxInterval < d.InitialInterval {
		return errors.New("assh: dial.max_interval is below dial.initial_interval")
	}
	return nil
}
