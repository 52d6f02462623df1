// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Session owns an engine and the readiness source of its socket.
// Every handle it opens borrows the engine and shares the session's adapter;
// none of them outlives Close.
type Session struct {
	e   Engine
	a   *Adapter
	log zerolog.Logger
}

// NewSession wraps e, whose socket notifies readiness through src.
// Keepalive settings from the configuration are applied immediately.
func NewSession(e Engine, src Readiness, opts ...Option) *Session {
	o := buildOptions(opts)
	s := &Session{e: e, a: newAdapter(src, e, o), log: o.log}
	if k := o.cfg.Keepalive; k.Interval > 0 {
		e.SetKeepalive(k.WantReply, k.Interval)
	}
	return s
}

// Adapter returns the retry adapter shared by the session's handles.
func (s *Session) Adapter() *Adapter { return s.a }

// Serial returns the session's serial number.
func (s *Session) Serial() Serial { return s.a.serial }

// Close fails every later call with ErrClosed and releases the readiness
// source if it implements io.Closer. The engine itself is not torn down;
// call Disconnect first for an orderly shutdown.
func (s *Session) Close() error {
	s.a.close()
	s.log.Debug().Uint32("serial", s.a.serial).Msg("session closed")
	if c, ok := s.a.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SetBanner sets the banner sent before the protocol version exchange.
func (s *Session) SetBanner(ctx context.Context, banner string) error {
	return do(ctx, s.a, "set_banner", func() error { return s.e.SetBanner(banner) })
}

// Handshake runs the key exchange.
func (s *Session) Handshake(ctx context.Context) error {
	return do(ctx, s.a, "handshake", s.e.Handshake)
}

func (s *Session) UserauthPassword(ctx context.Context, username, password string) error {
	return do(ctx, s.a, "userauth_password", func() error {
		return s.e.UserauthPassword(username, password)
	})
}

// UserauthKeyboardInteractive authenticates by answering the server's
// challenges through prompter.
func (s *Session) UserauthKeyboardInteractive(ctx context.Context, username string, prompter KeyboardInteractivePrompt) error {
	return do(ctx, s.a, "userauth_keyboard_interactive", func() error {
		return s.e.UserauthKeyboardInteractive(username, prompter)
	})
}

// UserauthAgent authenticates with each identity of the running SSH agent in
// turn.
func (s *Session) UserauthAgent(ctx context.Context, username string) error {
	return do(ctx, s.a, "userauth_agent", func() error { return s.e.UserauthAgent(username) })
}

func (s *Session) UserauthPubkeyFile(ctx context.Context, username, pubkey, privatekey, passphrase string) error {
	return do(ctx, s.a, "userauth_pubkey_file", func() error {
		return s.e.UserauthPubkeyFile(username, pubkey, privatekey, passphrase)
	})
}

func (s *Session) UserauthPubkeyMemory(ctx context.Context, username, pubkeyData, privatekeyData, passphrase string) error {
	return do(ctx, s.a, "userauth_pubkey_memory", func() error {
		return s.e.UserauthPubkeyMemory(username, pubkeyData, privatekeyData, passphrase)
	})
}

func (s *Session) UserauthHostbasedFile(ctx context.Context, username, pubkey, privatekey, passphrase, hostname, localUsername string) error {
	return do(ctx, s.a, "userauth_hostbased_file", func() error {
		return s.e.UserauthHostbasedFile(username, pubkey, privatekey, passphrase, hostname, localUsername)
	})
}

// Authenticated reports whether authentication has completed.
func (s *Session) Authenticated() bool { return s.e.Authenticated() }

// AuthMethods returns the comma-separated methods the server accepts for username.
func (s *Session) AuthMethods(ctx context.Context, username string) (string, error) {
	return Await(ctx, s.a, "auth_methods", func() (string, error) { return s.e.AuthMethods(username) })
}

// MethodPref sets the preference list for one negotiation slot.
func (s *Session) MethodPref(method MethodType, prefs string) error {
	return s.e.MethodPref(method, prefs)
}

// Methods returns the negotiated algorithm of one slot.
func (s *Session) Methods(method MethodType) string { return s.e.Methods(method) }

func (s *Session) SupportedAlgs(method MethodType) ([]string, error) {
	return s.e.SupportedAlgs(method)
}

// Agent opens a connection handle to the local SSH agent.
func (s *Session) Agent(ctx context.Context) (*Agent, error) {
	ag, err := Await(ctx, s.a, "agent", s.e.Agent)
	if err != nil {
		return nil, err
	}
	return &Agent{a: s.a, ag: ag}, nil
}

// ChannelSession opens a session channel.
func (s *Session) ChannelSession(ctx context.Context) (*Channel, error) {
	ch, err := Await(ctx, s.a, "channel_session", s.e.ChannelSession)
	if err != nil {
		return nil, err
	}
	return newChannel(s.a, ch), nil
}

// ChannelDirectTCPIP opens a tunnel to host:port through the server. src is
// the originator reported to the server; nil reports 127.0.0.1:22.
func (s *Session) ChannelDirectTCPIP(ctx context.Context, host string, port uint16, src *Endpoint) (*Channel, error) {
	ch, err := Await(ctx, s.a, "channel_direct_tcpip", func() (EngineChannel, error) {
		return s.e.ChannelDirectTCPIP(host, port, src)
	})
	if err != nil {
		return nil, err
	}
	return newChannel(s.a, ch), nil
}

// ChannelForwardListen asks the server to listen on remotePort and returns
// the listener with the port actually bound.
func (s *Session) ChannelForwardListen(ctx context.Context, remotePort uint16, host string, queueMaxSize uint32) (*Listener, uint16, error) {
	type bound struct {
		l    EngineListener
		port uint16
	}
	b, err := Await(ctx, s.a, "channel_forward_listen", func() (bound, error) {
		l, port, err := s.e.ChannelForwardListen(remotePort, host, queueMaxSize)
		return bound{l, port}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return &Listener{a: s.a, l: b.l}, b.port, nil
}

// ChannelOpen opens a channel of an arbitrary type.
func (s *Session) ChannelOpen(ctx context.Context, channelType string, windowSize, packetSize uint32, message string) (*Channel, error) {
	ch, err := Await(ctx, s.a, "channel_open", func() (EngineChannel, error) {
		return s.e.ChannelOpen(channelType, windowSize, packetSize, message)
	})
	if err != nil {
		return nil, err
	}
	return newChannel(s.a, ch), nil
}

// SCPRecv requests path over SCP. The file content is read from the channel.
func (s *Session) SCPRecv(ctx context.Context, path string) (*Channel, ScpFileStat, error) {
	type recv struct {
		ch   EngineChannel
		stat ScpFileStat
	}
	r, err := Await(ctx, s.a, "scp_recv", func() (recv, error) {
		ch, stat, err := s.e.SCPRecv(path)
		return recv{ch, stat}, err
	})
	if err != nil {
		return nil, ScpFileStat{}, err
	}
	return newChannel(s.a, r.ch), r.stat, nil
}

// SCPSend starts an SCP upload of size bytes to path.
func (s *Session) SCPSend(ctx context.Context, path string, mode int, size uint64, times *ScpTimes) (*Channel, error) {
	ch, err := Await(ctx, s.a, "scp_send", func() (EngineChannel, error) {
		return s.e.SCPSend(path, mode, size, times)
	})
	if err != nil {
		return nil, err
	}
	return newChannel(s.a, ch), nil
}

// SFTP starts the SFTP subsystem.
func (s *Session) SFTP(ctx context.Context) (*Sftp, error) {
	sf, err := Await(ctx, s.a, "sftp", s.e.SFTP)
	if err != nil {
		return nil, err
	}
	return &Sftp{a: s.a, s: sf}, nil
}

// Banner returns the server's banner, if any.
func (s *Session) Banner() string { return s.e.Banner() }

// BannerBytes is Banner as bytes, nil when there is none.
func (s *Session) BannerBytes() []byte {
	if b := s.e.Banner(); b != "" {
		return []byte(b)
	}
	return nil
}

// SetCompress enables compression. It takes effect at the next handshake.
func (s *Session) SetCompress(compress bool) { s.e.SetCompress(compress) }

// SetAllowSigpipe lets the engine's socket writes raise SIGPIPE.
func (s *Session) SetAllowSigpipe(allow bool) { s.e.SetAllowSigpipe(allow) }

// HostKey returns the server's host key. It is nil before the handshake.
func (s *Session) HostKey() (ssh.PublicKey, HostKeyType, error) {
	blob, kind := s.e.HostKey()
	if len(blob) == 0 {
		return nil, HostKeyUnknown, nil
	}
	key, err := ssh.ParsePublicKey(blob)
	if err != nil {
		return nil, kind, err
	}
	return key, kind, nil
}

// HostKeyFingerprint returns the SHA256 fingerprint of the host key in
// OpenSSH format, or "" before the handshake.
func (s *Session) HostKeyFingerprint() (string, error) {
	key, _, err := s.HostKey()
	if err != nil || key == nil {
		return "", err
	}
	return ssh.FingerprintSHA256(key), nil
}

// SetKeepalive configures keepalive messages. interval is in seconds.
func (s *Session) SetKeepalive(wantReply bool, interval uint32) {
	s.e.SetKeepalive(wantReply, interval)
}

// KeepaliveSend sends a keepalive if one is due and returns the seconds
// until the next.
func (s *Session) KeepaliveSend(ctx context.Context) (uint32, error) {
	return Await(ctx, s.a, "keepalive_send", s.e.KeepaliveSend)
}

// Disconnect sends SSH_MSG_DISCONNECT.
func (s *Session) Disconnect(ctx context.Context, reason DisconnectCode, description, lang string) error {
	return do(ctx, s.a, "disconnect", func() error {
		return s.e.Disconnect(reason, description, lang)
	})
}
