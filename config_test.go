// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/assh"
)

const fullConfig = `
op_timeout = "30s"
log_level  = "debug"

[keepalive]
want_reply = true
interval   = 15

[dial]
network          = "tcp4"
address          = "example.net:22"
initial_interval = "50ms"
max_interval     = "1s"
max_elapsed      = "5s"
`

func TestParseConfig(t *testing.T) {
	cfg, err := assh.ParseConfig([]byte(fullConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := assh.Config{
		OpTimeout: 30 * time.Second,
		LogLevel:  "debug",
		Keepalive: assh.KeepaliveConfig{WantReply: true, Interval: 15},
		Dial: assh.DialConfig{
			Network:         "tcp4",
			Address:         "example.net:22",
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     time.Second,
			MaxElapsed:      5 * time.Second,
		},
	}
	if cfg != want {
		t.Fatalf("got %+v\nwant %+v", cfg, want)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := assh.ParseConfig([]byte(`log_level = "info"`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def := assh.DefaultConfig()
	if cfg.Dial != def.Dial || cfg.OpTimeout != 0 || cfg.Keepalive.Interval != 0 {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "op_timout = \"1s\"", "unknown config keys: op_timout"},
		{"unknown nested key", "[dial]\nport = 22", "dial.port"},
		{"syntax", "op_timeout = ", "parse config"},
		{"negative timeout", `op_timeout = "-1s"`, "op_timeout"},
		{"log level", `log_level = "loud"`, "log_level"},
		{"network", "[dial]\nnetwork = \"udp\"", "not a stream network"},
		{"negative interval", "[dial]\nmax_elapsed = \"-5s\"", "must not be negative"},
		{"interval order", "[dial]\ninitial_interval = \"2s\"\nmax_interval = \"1s\"", "below"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assh.ParseConfig([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assh.toml")
	if err := os.WriteFile(path, []byte(fullConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := assh.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpTimeout != 30*time.Second || cfg.Dial.Address != "example.net:22" {
		t.Fatalf("got %+v", cfg)
	}

	if _, err := assh.LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}
}
