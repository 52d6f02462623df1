// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"net"

	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyHash returns the raw digest of the host key blob, or nil before
// the handshake or for an unknown hash type.
func (s *Session) HostKeyHash(h HashType) []byte {
	blob, _ := s.e.HostKey()
	if len(blob) == 0 {
		return nil
	}
	switch h {
	case HashMD5:
		sum := md5.Sum(blob)
		return sum[:]
	case HashSHA1:
		sum := sha1.Sum(blob)
		return sum[:]
	case HashSHA256:
		sum := sha256.Sum256(blob)
		return sum[:]
	}
	return nil
}

// CheckKnownHosts verifies the host key against OpenSSH known_hosts files.
// address is the host:port the session dialed and remote its resolved
// address. An unknown or mismatched host yields a *knownhosts.KeyError;
// a revoked key yields a *knownhosts.RevokedError.
func (s *Session) CheckKnownHosts(address string, remote net.Addr, files ...string) error {
	key, _, err := s.HostKey()
	if err != nil {
		return err
	}
	if key == nil {
		return ErrNoHostKey
	}
	check, err := knownhosts.New(files...)
	if err != nil {
		return fmt.Errorf("assh: known hosts: %w", err)
	}
	return check(address, remote, key)
}
