// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"io/fs"

	"golang.org/x/crypto/ssh"
)

// MethodType selects an algorithm negotiation slot.
type MethodType int

const (
	MethodKex MethodType = iota
	MethodHostKey
	MethodCryptCS
	MethodCryptSC
	MethodMacCS
	MethodMacSC
	MethodCompCS
	MethodCompSC
	MethodLangCS
	MethodLangSC
	MethodSignAlgo
)

// HostKeyType is the algorithm family of the server's host key.
type HostKeyType int

const (
	HostKeyUnknown HostKeyType = iota
	HostKeyRSA
	HostKeyDSS
	HostKeyECDSA256
	HostKeyECDSA384
	HostKeyECDSA521
	HostKeyED25519
)

// HashType selects the digest of Session.HostKeyHash.
type HashType int

const (
	HashMD5 HashType = iota + 1
	HashSHA1
	HashSHA256
)

// HostKeyTypeOf maps an SSH public-key algorithm name to its HostKeyType.
func HostKeyTypeOf(algo string) HostKeyType {
	switch algo {
	case ssh.KeyAlgoRSA:
		return HostKeyRSA
	case ssh.KeyAlgoDSA:
		return HostKeyDSS
	case ssh.KeyAlgoECDSA256:
		return HostKeyECDSA256
	case ssh.KeyAlgoECDSA384:
		return HostKeyECDSA384
	case ssh.KeyAlgoECDSA521:
		return HostKeyECDSA521
	case ssh.KeyAlgoED25519:
		return HostKeyED25519
	}
	return HostKeyUnknown
}

// DisconnectCode is the SSH_MSG_DISCONNECT reason code (RFC 4253 §11.1).
type DisconnectCode int

const (
	DisconnectHostNotAllowedToConnect     DisconnectCode = 1
	DisconnectProtocolError               DisconnectCode = 2
	DisconnectKeyExchangeFailed           DisconnectCode = 3
	DisconnectReserved                    DisconnectCode = 4
	DisconnectMacError                    DisconnectCode = 5
	DisconnectCompressionError            DisconnectCode = 6
	DisconnectServiceNotAvailable         DisconnectCode = 7
	DisconnectProtocolVersionNotSupported DisconnectCode = 8
	DisconnectHostKeyNotVerifiable        DisconnectCode = 9
	DisconnectConnectionLost              DisconnectCode = 10
	DisconnectByApplication               DisconnectCode = 11
	DisconnectTooManyConnections          DisconnectCode = 12
	DisconnectAuthCancelledByUser         DisconnectCode = 13
	DisconnectNoMoreAuthMethodsAvailable  DisconnectCode = 14
	DisconnectIllegalUserName             DisconnectCode = 15
)

// ExtendedData selects how a channel treats extended data such as stderr.
type ExtendedData int

const (
	ExtendedDataNormal ExtendedData = iota
	ExtendedDataIgnore
	ExtendedDataMerge
)

// Channel substream identifiers.
const (
	StreamData   = 0
	StreamStderr = 1
)

// Flush targets accepted by Stream flushes besides a substream id.
const (
	FlushExtendedData = -1
	FlushAll          = -2
)

// PtyDims is the terminal size of a PTY request.
type PtyDims struct {
	Width, Height     uint32
	WidthPx, HeightPx uint32
}

// ExitSignal is the signal that terminated the remote process, if any.
type ExitSignal struct {
	Signal  string
	Message string
	Lang    string
}

// ReadWindow describes a channel's receive window.
type ReadWindow struct {
	Remaining         uint32
	Available         uint32
	WindowSizeInitial uint32
}

// WriteWindow describes a channel's send window.
type WriteWindow struct {
	Remaining         uint32
	WindowSizeInitial uint32
}

// Endpoint is a host and port pair.
type Endpoint struct {
	Host string
	Port uint16
}

// ScpFileStat is the metadata of a file received through SCP.
type ScpFileStat struct {
	Size uint64
	Mode int
}

// IsDir reports whether the SCP entry is a directory.
func (s ScpFileStat) IsDir() bool {
	return uint32(s.Mode)&sIFMT == sIFDIR
}

// IsFile reports whether the SCP entry is a regular file.
func (s ScpFileStat) IsFile() bool {
	return uint32(s.Mode)&sIFMT == sIFREG
}

// ScpTimes carries the modification and access times of an SCP upload.
type ScpTimes struct {
	Mtime, Atime uint64
}

// PublicKey is an identity held by an SSH agent.
type PublicKey struct {
	Blob    []byte
	Comment string
}

// Parse decodes the wire-format key blob.
func (k PublicKey) Parse() (ssh.PublicKey, error) {
	return ssh.ParsePublicKey(k.Blob)
}

// Prompt is one question of a keyboard-interactive exchange.
type Prompt struct {
	Text string
	Echo bool
}

// KeyboardInteractivePrompt answers keyboard-interactive challenges.
// It returns one response per prompt.
type KeyboardInteractivePrompt interface {
	Prompt(username, instructions string, prompts []Prompt) []string
}

// OpenFlags are the SFTP open flags.
type OpenFlags uint32

const (
	OpenRead OpenFlags = 1 << iota
	OpenWrite
	OpenAppend
	OpenCreate
	OpenTruncate
	OpenExclusive
)

// OpenType selects whether OpenMode opens a file or a directory.
type OpenType int

const (
	OpenTypeFile OpenType = iota
	OpenTypeDir
)

// RenameFlags are the SFTP rename flags. Zero means all of them.
type RenameFlags uint32

const (
	RenameOverwrite RenameFlags = 1 << iota
	RenameAtomic
	RenameNative
)

const (
	sIFMT  = 0o170000
	sIFDIR = 0o040000
	sIFREG = 0o100000
	sIFLNK = 0o120000
)

// FileStat is SFTP file metadata. Absent attributes are nil.
type FileStat struct {
	Size  *uint64
	UID   *uint32
	GID   *uint32
	Perm  *uint32
	Atime *uint64
	Mtime *uint64
}

// IsDir reports whether the permission bits mark a directory.
func (s FileStat) IsDir() bool {
	return s.Perm != nil && *s.Perm&sIFMT == sIFDIR
}

// IsFile reports whether the permission bits mark a regular file.
func (s FileStat) IsFile() bool {
	return s.Perm != nil && *s.Perm&sIFMT == sIFREG
}

// FileMode converts the permission bits to an fs.FileMode.
func (s FileStat) FileMode() fs.FileMode {
	if s.Perm == nil {
		return 0
	}
	perm := *s.Perm
	mode := fs.FileMode(perm & 0o777)
	switch perm & sIFMT {
	case sIFDIR:
		mode |= fs.ModeDir
	case sIFLNK:
		mode |= fs.ModeSymlink
	}
	return mode
}

// DirEntry is one directory listing entry.
type DirEntry struct {
	Path string
	Stat FileStat
}

// Statvfs is the file system information of an SFTP statvfs request.
type Statvfs struct {
	Bsize   uint64
	Frsize  uint64
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Favail  uint64
	Fsid    uint64
	Flag    uint64
	Namemax uint64
}
