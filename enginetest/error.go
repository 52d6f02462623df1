// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import "fmt"

// Code is a fake engine error code.
type Code int

const (
	CodeProtocol Code = iota + 1
	CodeAuthenticationFailed
	CodeChannelFailure
	CodeChannelClosed
	CodeSocketDisconnect
	CodeInval
	CodeSftpNoSuchFile
	CodeSftpPermissionDenied
	CodeSftpFailure
	CodeSftpFileAlreadyExists
	CodeSftpDirNotEmpty
)

var codeNames = map[Code]string{
	CodeProtocol:              "protocol",
	CodeAuthenticationFailed:  "authentication failed",
	CodeChannelFailure:        "channel failure",
	CodeChannelClosed:         "channel closed",
	CodeSocketDisconnect:      "socket disconnect",
	CodeInval:                 "invalid argument",
	CodeSftpNoSuchFile:        "no such file",
	CodeSftpPermissionDenied:  "permission denied",
	CodeSftpFailure:           "sftp failure",
	CodeSftpFileAlreadyExists: "file already exists",
	CodeSftpDirNotEmpty:       "directory not empty",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is an engine-side failure. It passes through the adapter verbatim.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return "enginetest: " + e.Code.String()
	}
	return fmt.Sprintf("enginetest: %s: %s", e.Code, e.Msg)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

func errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}
