// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

// BlockDirection is the I/O direction a would-block engine call waits on.
// It is recomputed after every attempt; a handshake step that needed to
// read may next need to write.
type BlockDirection uint8

const (
	// BlockNone means the engine exposes no direction.
	BlockNone BlockDirection = iota
	// BlockInbound means the engine waits for the socket to become readable.
	BlockInbound
	// BlockOutbound means the engine waits for the socket to become writable.
	BlockOutbound
	// BlockBoth means either readiness lets the engine make progress.
	BlockBoth
)

var blockDirectionNames = [...]string{"none", "inbound", "outbound", "both"}

func (d BlockDirection) String() string {
	if int(d) < len(blockDirectionNames) {
		return blockDirectionNames[d]
	}
	return "invalid"
}

// Inbound reports whether d includes readability.
func (d BlockDirection) Inbound() bool {
	return d == BlockInbound || d == BlockBoth
}

// Outbound reports whether d includes writability.
func (d BlockDirection) Outbound() bool {
	return d == BlockOutbound || d == BlockBoth
}

// DirectionResolver reports the direction the engine's last call blocked on.
// BlockDirections is only meaningful right after a would-block outcome.
// It must be O(1) and free of side effects.
type DirectionResolver interface {
	BlockDirections() BlockDirection
}
