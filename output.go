// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"
	"io"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Output is the collected result of a remote command.
type Output struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
}

// Output runs command on a new session channel and collects its output and
// exit status. Stdout and stderr are drained together, so neither can stall
// the other behind a full window.
func (s *Session) Output(ctx context.Context, command string) (Output, error) {
	return Exec(ctx, s.a, OutputScript(s.e, command))
}

// OutputScript is the script behind Session.Output. It can be run with Exec,
// stepped with Step and Advance, or composed with other scripts.
func OutputScript(e Engine, command string) kont.Eff[Output] {
	return CallBind("channel_session", e.ChannelSession, func(ch EngineChannel) kont.Eff[Output] {
		return CallThen("exec", func() error { return ch.Exec(command) },
			kont.Bind(collect(ch), func(out Output) kont.Eff[Output] {
				return CallThen("wait_eof", ch.WaitEOF,
					CallThen("channel_close", ch.Close,
						CallThen("wait_close", ch.WaitClose,
							CallBind("exit_status", ch.ExitStatus, func(code int) kont.Eff[Output] {
								out.ExitStatus = code
								return kont.Pure(out)
							}))))
			}))
	})
}

type collectState struct {
	stdout, stderr       []byte
	stdoutEOF, stderrEOF bool
}

// collect reads both substreams of ch until each reports io.EOF.
func collect(ch EngineChannel) kont.Eff[Output] {
	buf := make([]byte, 32*1024)
	return Loop(collectState{}, func(st collectState) kont.Eff[kont.Either[collectState, Output]] {
		if st.stdoutEOF && st.stderrEOF {
			return kont.Pure(kont.Right[collectState](Output{Stdout: st.stdout, Stderr: st.stderr}))
		}
		return CallBind("channel.collect", func() (collectState, error) {
			return readEither(ch, buf, st)
		}, func(next collectState) kont.Eff[kont.Either[collectState, Output]] {
			return kont.Pure(kont.Left[collectState, Output](next))
		})
	})
}

// readEither makes one read on whichever open substream has data. It reports
// would-block only when both are empty.
func readEither(ch EngineChannel, buf []byte, st collectState) (collectState, error) {
	if !st.stdoutEOF {
		n, err := ch.Read(StreamData, buf)
		st.stdout = append(st.stdout, buf[:n]...)
		switch {
		case err == io.EOF:
			st.stdoutEOF = true
			return st, nil
		case err == nil:
			return st, nil
		case !iox.IsWouldBlock(err):
			return st, err
		}
	}
	if !st.stderrEOF {
		n, err := ch.Read(StreamStderr, buf)
		st.stderr = append(st.stderr, buf[:n]...)
		switch {
		case err == io.EOF:
			st.stderrEOF = true
			return st, nil
		case err == nil:
			return st, nil
		case !iox.IsWouldBlock(err):
			return st, err
		}
	}
	return st, iox.ErrWouldBlock
}
