// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "golang.org/x/crypto/ssh"

// Engine is the non-blocking SSH session collaborator.
//
// Every method that touches the socket either completes or returns
// iox.ErrWouldBlock, after which BlockDirections names what it waits on.
// Calls are repeatable: retrying after would-block resumes the same step.
// Implementations are not safe for concurrent use.
type Engine interface {
	DirectionResolver

	SetBanner(banner string) error
	Handshake() error

	UserauthPassword(username, password string) error
	UserauthKeyboardInteractive(username string, prompter KeyboardInteractivePrompt) error
	UserauthAgent(username string) error
	UserauthPubkeyFile(username, pubkey, privatekey, passphrase string) error
	UserauthPubkeyMemory(username, pubkeyData, privatekeyData, passphrase string) error
	UserauthHostbasedFile(username, pubkey, privatekey, passphrase, hostname, localUsername string) error
	Authenticated() bool
	AuthMethods(username string) (string, error)

	MethodPref(method MethodType, prefs string) error
	Methods(method MethodType) string
	SupportedAlgs(method MethodType) ([]string, error)

	Agent() (EngineAgent, error)
	ChannelSession() (EngineChannel, error)
	ChannelDirectTCPIP(host string, port uint16, src *Endpoint) (EngineChannel, error)
	ChannelForwardListen(remotePort uint16, host string, queueMaxSize uint32) (EngineListener, uint16, error)
	ChannelOpen(channelType string, windowSize, packetSize uint32, message string) (EngineChannel, error)
	SCPRecv(path string) (EngineChannel, ScpFileStat, error)
	SCPSend(path string, mode int, size uint64, times *ScpTimes) (EngineChannel, error)
	SFTP() (EngineSftp, error)

	Banner() string
	HostKey() ([]byte, HostKeyType)
	SetCompress(compress bool)
	SetAllowSigpipe(allow bool)
	SetKeepalive(wantReply bool, interval uint32)
	KeepaliveSend() (uint32, error)
	Disconnect(reason DisconnectCode, description, lang string) error
}

// EngineChannel is an engine channel. Read returns io.EOF once the remote
// end has sent EOF on that substream and its data is drained. A Read or
// Write that reports would-block has transferred nothing and returns n == 0.
type EngineChannel interface {
	Setenv(name, value string) error
	RequestPTY(term string, modes ssh.TerminalModes, dims *PtyDims) error
	RequestPTYSize(width, height, widthPx, heightPx uint32) error
	Exec(command string) error
	Shell() error
	Subsystem(name string) error
	ProcessStartup(request, message string) error
	HandleExtendedData(mode ExtendedData) error

	Read(stream int, p []byte) (int, error)
	Write(stream int, p []byte) (int, error)
	Flush(stream int) error

	ExitStatus() (int, error)
	ExitSignal() (ExitSignal, error)
	ReadWindow() ReadWindow
	WriteWindow() WriteWindow
	AdjustReceiveWindow(adjust uint64, force bool) (uint64, error)
	LimitRead(limit uint64)
	EOF() bool
	SendEOF() error
	WaitEOF() error
	Close() error
	WaitClose() error
}

// EngineListener is a remote port forward.
type EngineListener interface {
	Accept() (EngineChannel, error)
}

// EngineAgent is an engine-side SSH agent connection.
type EngineAgent interface {
	Connect() error
	Disconnect() error
	ListIdentities() error
	Identities() ([]PublicKey, error)
	Userauth(username string, identity PublicKey) error
}

// EngineSftp is an engine SFTP subsystem.
type EngineSftp interface {
	OpenMode(path string, flags OpenFlags, mode int, openType OpenType) (EngineFile, error)
	Mkdir(path string, mode int) error
	Rmdir(path string) error
	Stat(path string) (FileStat, error)
	Lstat(path string) (FileStat, error)
	Setstat(path string, stat FileStat) error
	Symlink(path, target string) error
	Readlink(path string) (string, error)
	Realpath(path string) (string, error)
	Rename(src, dst string, flags RenameFlags) error
	Unlink(path string) error
}

// EngineFile is an open SFTP file or directory handle. Readdir returns
// io.EOF after the last entry. Seek is local and never blocks. As with
// EngineChannel, a would-block Read or Write returns n == 0.
type EngineFile interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Stat() (FileStat, error)
	Setstat(stat FileStat) error
	Readdir() (string, FileStat, error)
	Fsync() error
	Statvfs() (Statvfs, error)
	Close() error
}
