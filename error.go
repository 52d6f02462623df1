// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDirection is the contract violation of an engine that reports
	// would-block while exposing no usable block direction.
	ErrNoDirection = errors.New("assh: engine would block with no direction")

	// ErrNoTransport is returned when the engine would block but the session
	// has no readiness source to wait on.
	ErrNoTransport = errors.New("assh: engine would block without a readiness source")

	// ErrClosed is returned by calls issued after Session.Close.
	ErrClosed = errors.New("assh: session closed")

	// ErrNoHostKey is returned by host key checks made before the handshake.
	ErrNoHostKey = errors.New("assh: no host key before handshake")
)

// ContractError reports that the engine broke the would-block contract during Op.
// It unwraps to ErrNoDirection.
type ContractError struct {
	Op string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("assh: %s: engine would block with no direction", e.Op)
}

func (e *ContractError) Unwrap() error {
	return ErrNoDirection
}

// TransportError reports a readiness or socket failure that aborted Op.
// Protocol failures are never wrapped in a TransportError.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("assh: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is, or wraps, a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsContract reports whether err is, or wraps, a *ContractError.
func IsContract(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
