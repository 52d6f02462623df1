// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import (
	"strings"
	"sync"

	"code.hybscloud.com/assh"
	"code.hybscloud.com/iox"
)

// Request describes what the local side asked a channel for. The handler
// registered with Engine.Handle receives it together with the remote Peer.
type Request struct {
	// Type is "exec", "shell", "subsystem", "direct-tcpip", or the request
	// or channel type passed to ProcessStartup or ChannelOpen.
	Type    string
	Command string
	Host    string
	Port    uint16
	Env     map[string]string
}

// Handler serves one channel request on the remote side. It runs on its
// own goroutine.
type Handler func(req Request, p *Peer)

var defaultAlgs = map[assh.MethodType][]string{
	assh.MethodKex:     {"curve25519-sha256", "ecdh-sha2-nistp256", "diffie-hellman-group14-sha256"},
	assh.MethodHostKey: {"ssh-ed25519", "ecdsa-sha2-nistp256", "rsa-sha2-256"},
	assh.MethodCryptCS: {"aes128-ctr", "aes256-ctr", "aes256-gcm@openssh.com"},
	assh.MethodCryptSC: {"aes128-ctr", "aes256-ctr", "aes256-gcm@openssh.com"},
	assh.MethodMacCS:   {"hmac-sha2-256", "hmac-sha2-512"},
	assh.MethodMacSC:   {"hmac-sha2-256", "hmac-sha2-512"},
	assh.MethodCompCS:  {"none", "zlib@openssh.com"},
	assh.MethodCompSC:  {"none", "zlib@openssh.com"},
}

// Engine is an in-memory [assh.Engine].
//
// Every operation first consults the stalls and failures injected for its
// name. Stall names match the assh handle operations: "handshake",
// "userauth_password", "channel_session", "channel_read", "channel_write",
// "sftp_open", and so on. Channel reads and writes also block for real when
// the peer has sent nothing or has not drained the send window.
type Engine struct {
	src *Readiness

	mu     sync.Mutex
	dir    assh.BlockDirection
	stalls map[string][]stall
	fails  map[string]error
	calls  map[string]int

	handshaken   bool
	authed       bool
	disconnected bool
	reason       assh.DisconnectCode

	users      map[string]string
	keys       map[string][]string
	identities []assh.PublicKey

	banner       string
	serverBanner string
	hostKey      []byte
	hostKeyType  assh.HostKeyType
	keepWant     bool
	keepInterval uint32
	compress     bool
	sigpipe      bool
	prefs        map[assh.MethodType]string

	handler   Handler
	listeners map[uint16]*Listener
	nextPort  uint16
	fs        *FS
}

var _ assh.Engine = (*Engine)(nil)

// New returns an engine whose socket readiness is modelled by src.
func New(src *Readiness) *Engine {
	return &Engine{
		src:       src,
		stalls:    make(map[string][]stall),
		fails:     make(map[string]error),
		calls:     make(map[string]int),
		users:     make(map[string]string),
		keys:      make(map[string][]string),
		prefs:     make(map[assh.MethodType]string),
		listeners: make(map[uint16]*Listener),
		nextPort:  40000,
		fs:        NewFS(),
	}
}

// Stall makes the next len(dirs) calls of op would-block, reporting one
// direction each. A stall that names a direction fires it, so the call
// resumes as soon as it waits.
func (e *Engine) Stall(op string, dirs ...assh.BlockDirection) {
	e.stall(op, true, dirs)
}

// Hold is Stall without the readiness event: the call stays pending until
// the test, or a peer, fires the direction.
func (e *Engine) Hold(op string, dirs ...assh.BlockDirection) {
	e.stall(op, false, dirs)
}

type stall struct {
	dir  assh.BlockDirection
	fire bool
}

func (e *Engine) stall(op string, fire bool, dirs []assh.BlockDirection) {
	e.mu.Lock()
	for _, d := range dirs {
		e.stalls[op] = append(e.stalls[op], stall{d, fire})
	}
	e.mu.Unlock()
}

// FailNext makes the next call of op return err.
func (e *Engine) FailNext(op string, err error) {
	e.mu.Lock()
	e.fails[op] = err
	e.mu.Unlock()
}

// Calls returns how many times op was invoked, would-blocks included.
func (e *Engine) Calls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[op]
}

// AddUser accepts password for username.
func (e *Engine) AddUser(username, password string) {
	e.mu.Lock()
	e.users[username] = password
	e.mu.Unlock()
}

// AuthorizeKey accepts key for username. key is matched against the public
// key file path, the in-memory public key data, or an agent identity blob.
func (e *Engine) AuthorizeKey(username, key string) {
	e.mu.Lock()
	e.keys[username] = append(e.keys[username], key)
	e.mu.Unlock()
}

// AddIdentity adds an identity to the fake SSH agent.
func (e *Engine) AddIdentity(k assh.PublicKey) {
	e.mu.Lock()
	e.identities = append(e.identities, k)
	e.mu.Unlock()
}

// SetHostKey sets the key reported after the handshake.
func (e *Engine) SetHostKey(blob []byte, kind assh.HostKeyType) {
	e.mu.Lock()
	e.hostKey, e.hostKeyType = blob, kind
	e.mu.Unlock()
}

// SetServerBanner sets the banner reported by Banner after the handshake.
func (e *Engine) SetServerBanner(banner string) {
	e.mu.Lock()
	e.serverBanner = banner
	e.mu.Unlock()
}

// Handle sets the remote handler for channel requests.
func (e *Engine) Handle(h Handler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// FS returns the filesystem served over SFTP and SCP.
func (e *Engine) FS() *FS { return e.fs }

// LocalBanner returns the banner set through SetBanner.
func (e *Engine) LocalBanner() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banner
}

// Keepalive returns the keepalive configuration.
func (e *Engine) Keepalive() (wantReply bool, interval uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.keepWant, e.keepInterval
}

// Disconnected returns the reason of the last Disconnect.
func (e *Engine) Disconnected() (assh.DisconnectCode, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason, e.disconnected
}

// enter accounts for one call of op and applies injected stalls and
// failures.
func (e *Engine) enter(op string) error {
	e.mu.Lock()
	e.calls[op]++
	if stalls := e.stalls[op]; len(stalls) > 0 {
		st := stalls[0]
		e.stalls[op] = stalls[1:]
		e.dir = st.dir
		e.mu.Unlock()
		if st.fire && st.dir != assh.BlockNone {
			e.src.Fire(st.dir)
		}
		return iox.ErrWouldBlock
	}
	if err, ok := e.fails[op]; ok {
		delete(e.fails, op)
		e.mu.Unlock()
		return err
	}
	disconnected := e.disconnected
	e.mu.Unlock()
	if disconnected {
		return errorf(CodeSocketDisconnect, "%s after disconnect", op)
	}
	return nil
}

// block records dir as the pending direction and reports would-block.
func (e *Engine) block(dir assh.BlockDirection) error {
	e.mu.Lock()
	e.dir = dir
	e.mu.Unlock()
	return iox.ErrWouldBlock
}

func (e *Engine) BlockDirections() assh.BlockDirection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir
}

func (e *Engine) requireHandshake() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.handshaken {
		return errorf(CodeProtocol, "handshake required")
	}
	return nil
}

func (e *Engine) requireAuth() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authed {
		return errorf(CodeProtocol, "not authenticated")
	}
	return nil
}

func (e *Engine) SetBanner(banner string) error {
	if err := e.enter("set_banner"); err != nil {
		return err
	}
	e.mu.Lock()
	e.banner = banner
	e.mu.Unlock()
	return nil
}

func (e *Engine) Handshake() error {
	if err := e.enter("handshake"); err != nil {
		return err
	}
	e.mu.Lock()
	e.handshaken = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) authenticate(op, username string, ok func() bool) error {
	if err := e.enter(op); err != nil {
		return err
	}
	if err := e.requireHandshake(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !ok() {
		return errorf(CodeAuthenticationFailed, "%s for %q", op, username)
	}
	e.authed = true
	return nil
}

// authorized reports whether key is accepted for username. e.mu must be held.
func (e *Engine) authorized(username, key string) bool {
	for _, k := range e.keys[username] {
		if k == key {
			return true
		}
	}
	return false
}

func (e *Engine) UserauthPassword(username, password string) error {
	return e.authenticate("userauth_password", username, func() bool {
		pw, ok := e.users[username]
		return ok && pw == password
	})
}

// UserauthKeyboardInteractive asks one non-echoed "Password: " prompt and
// checks the answer against the user's password.
func (e *Engine) UserauthKeyboardInteractive(username string, prompter assh.KeyboardInteractivePrompt) error {
	if err := e.enter("userauth_keyboard_interactive"); err != nil {
		return err
	}
	if err := e.requireHandshake(); err != nil {
		return err
	}
	answers := prompter.Prompt(username, "", []assh.Prompt{{Text: "Password: ", Echo: false}})
	e.mu.Lock()
	defer e.mu.Unlock()
	pw, ok := e.users[username]
	if !ok || len(answers) != 1 || answers[0] != pw {
		return errorf(CodeAuthenticationFailed, "keyboard-interactive for %q", username)
	}
	e.authed = true
	return nil
}

func (e *Engine) UserauthAgent(username string) error {
	return e.authenticate("userauth_agent", username, func() bool {
		for _, id := range e.identities {
			if e.authorized(username, string(id.Blob)) {
				return true
			}
		}
		return false
	})
}

func (e *Engine) UserauthPubkeyFile(username, pubkey, privatekey, passphrase string) error {
	return e.authenticate("userauth_pubkey_file", username, func() bool {
		return privatekey != "" && e.authorized(username, pubkey)
	})
}

func (e *Engine) UserauthPubkeyMemory(username, pubkeyData, privatekeyData, passphrase string) error {
	return e.authenticate("userauth_pubkey_memory", username, func() bool {
		return privatekeyData != "" && e.authorized(username, pubkeyData)
	})
}

func (e *Engine) UserauthHostbasedFile(username, pubkey, privatekey, passphrase, hostname, localUsername string) error {
	return e.authenticate("userauth_hostbased_file", username, func() bool {
		return hostname != "" && e.authorized(username, pubkey)
	})
}

func (e *Engine) Authenticated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.authed
}

// AuthMethods returns "" once authenticated.
func (e *Engine) AuthMethods(username string) (string, error) {
	if err := e.enter("auth_methods"); err != nil {
		return "", err
	}
	if err := e.requireHandshake(); err != nil {
		return "", err
	}
	if e.Authenticated() {
		return "", nil
	}
	return "publickey,password,keyboard-interactive", nil
}

func (e *Engine) MethodPref(method assh.MethodType, prefs string) error {
	algs, ok := defaultAlgs[method]
	if !ok {
		return errorf(CodeInval, "method %d", method)
	}
	for _, p := range strings.Split(prefs, ",") {
		if !contains(algs, p) {
			return errorf(CodeInval, "unsupported algorithm %q", p)
		}
	}
	e.mu.Lock()
	e.prefs[method] = prefs
	e.mu.Unlock()
	return nil
}

// Methods returns the first preferred algorithm, or the default, once the
// handshake is done.
func (e *Engine) Methods(method assh.MethodType) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.handshaken {
		return ""
	}
	if p, ok := e.prefs[method]; ok {
		first, _, _ := strings.Cut(p, ",")
		return first
	}
	if algs := defaultAlgs[method]; len(algs) > 0 {
		return algs[0]
	}
	return ""
}

func (e *Engine) SupportedAlgs(method assh.MethodType) ([]string, error) {
	algs, ok := defaultAlgs[method]
	if !ok {
		return nil, errorf(CodeInval, "method %d", method)
	}
	return append([]string(nil), algs...), nil
}

func (e *Engine) Agent() (assh.EngineAgent, error) {
	if err := e.enter("agent"); err != nil {
		return nil, err
	}
	return &Agent{e: e}, nil
}

// openChannel creates a channel and starts the handler for req, if any.
func (e *Engine) openChannel(op string, req *Request) (*Channel, error) {
	if err := e.enter(op); err != nil {
		return nil, err
	}
	if err := e.requireAuth(); err != nil {
		return nil, err
	}
	ch := newChannel(e)
	if req != nil {
		ch.serve(*req)
	}
	return ch, nil
}

func (e *Engine) ChannelSession() (assh.EngineChannel, error) {
	return e.openChannel("channel_session", nil)
}

func (e *Engine) ChannelDirectTCPIP(host string, port uint16, src *assh.Endpoint) (assh.EngineChannel, error) {
	return e.openChannel("channel_direct_tcpip", &Request{Type: "direct-tcpip", Host: host, Port: port})
}

func (e *Engine) ChannelOpen(channelType string, windowSize, packetSize uint32, message string) (assh.EngineChannel, error) {
	return e.openChannel("channel_open", &Request{Type: channelType, Command: message})
}

func (e *Engine) ChannelForwardListen(remotePort uint16, host string, queueMaxSize uint32) (assh.EngineListener, uint16, error) {
	if err := e.enter("channel_forward_listen"); err != nil {
		return nil, 0, err
	}
	if err := e.requireAuth(); err != nil {
		return nil, 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if remotePort == 0 {
		remotePort = e.nextPort
		e.nextPort++
	}
	if _, taken := e.listeners[remotePort]; taken {
		return nil, 0, errorf(CodeChannelFailure, "port %d in use", remotePort)
	}
	l := newListener(e, remotePort, host, queueMaxSize)
	e.listeners[remotePort] = l
	return l, remotePort, nil
}

// SCPRecv streams the file at path from the served filesystem.
func (e *Engine) SCPRecv(path string) (assh.EngineChannel, assh.ScpFileStat, error) {
	if err := e.enter("scp_recv"); err != nil {
		return nil, assh.ScpFileStat{}, err
	}
	if err := e.requireAuth(); err != nil {
		return nil, assh.ScpFileStat{}, err
	}
	data, perm, err := e.fs.ReadFile(path)
	if err != nil {
		return nil, assh.ScpFileStat{}, err
	}
	ch := newChannel(e)
	go func() {
		ch.peer.Write(data)
		ch.peer.Exit(0)
	}()
	return ch, assh.ScpFileStat{Size: uint64(len(data)), Mode: int(perm)}, nil
}

// SCPSend stores everything written to the channel at path once the local
// side sends EOF.
func (e *Engine) SCPSend(path string, mode int, size uint64, times *assh.ScpTimes) (assh.EngineChannel, error) {
	if err := e.enter("scp_send"); err != nil {
		return nil, err
	}
	if err := e.requireAuth(); err != nil {
		return nil, err
	}
	ch := newChannel(e)
	go func() {
		data, _ := ch.peer.ReadAll()
		status := 0
		if uint64(len(data)) != size {
			status = 1
		}
		if err := e.fs.WriteFile(path, data, uint32(mode)&0o777); err != nil {
			status = 1
		}
		ch.peer.Exit(status)
	}()
	return ch, nil
}

func (e *Engine) SFTP() (assh.EngineSftp, error) {
	if err := e.enter("sftp"); err != nil {
		return nil, err
	}
	if err := e.requireAuth(); err != nil {
		return nil, err
	}
	return &Sftp{e: e}, nil
}

func (e *Engine) Banner() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.handshaken {
		return ""
	}
	return e.serverBanner
}

func (e *Engine) HostKey() ([]byte, assh.HostKeyType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.handshaken {
		return nil, assh.HostKeyUnknown
	}
	return e.hostKey, e.hostKeyType
}

func (e *Engine) SetCompress(compress bool) {
	e.mu.Lock()
	e.compress = compress
	e.mu.Unlock()
}

func (e *Engine) SetAllowSigpipe(allow bool) {
	e.mu.Lock()
	e.sigpipe = allow
	e.mu.Unlock()
}

// Flags returns what SetCompress and SetAllowSigpipe last set.
func (e *Engine) Flags() (compress, allowSigpipe bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compress, e.sigpipe
}

func (e *Engine) SetKeepalive(wantReply bool, interval uint32) {
	e.mu.Lock()
	e.keepWant, e.keepInterval = wantReply, interval
	e.mu.Unlock()
}

// KeepaliveSend returns the configured interval as the seconds to wait.
func (e *Engine) KeepaliveSend() (uint32, error) {
	if err := e.enter("keepalive_send"); err != nil {
		return 0, err
	}
	if err := e.requireHandshake(); err != nil {
		return 0, err
	}
	_, interval := e.Keepalive()
	return interval, nil
}

func (e *Engine) Disconnect(reason assh.DisconnectCode, description, lang string) error {
	if err := e.enter("disconnect"); err != nil {
		return err
	}
	e.mu.Lock()
	e.disconnected, e.reason = true, reason
	e.mu.Unlock()
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
