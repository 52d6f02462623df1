// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import (
	"code.hybscloud.com/assh"
)

// Agent is a fake SSH agent connection serving the engine's identities.
type Agent struct {
	e         *Engine
	connected bool
	listed    []assh.PublicKey
	fetched   bool
}

var _ assh.EngineAgent = (*Agent)(nil)

func (a *Agent) Connect() error {
	if err := a.e.enter("agent_connect"); err != nil {
		return err
	}
	a.connected = true
	return nil
}

func (a *Agent) Disconnect() error {
	if err := a.e.enter("agent_disconnect"); err != nil {
		return err
	}
	a.connected = false
	return nil
}

func (a *Agent) ListIdentities() error {
	if err := a.e.enter("agent_list_identities"); err != nil {
		return err
	}
	if !a.connected {
		return errorf(CodeInval, "agent not connected")
	}
	a.e.mu.Lock()
	a.listed = append([]assh.PublicKey(nil), a.e.identities...)
	a.e.mu.Unlock()
	a.fetched = true
	return nil
}

func (a *Agent) Identities() ([]assh.PublicKey, error) {
	if !a.fetched {
		return nil, errorf(CodeInval, "identities not listed")
	}
	return a.listed, nil
}

func (a *Agent) Userauth(username string, identity assh.PublicKey) error {
	if !a.connected {
		if err := a.e.enter("agent_userauth"); err != nil {
			return err
		}
		return errorf(CodeInval, "agent not connected")
	}
	return a.e.authenticate("agent_userauth", username, func() bool {
		return a.e.authorized(username, string(identity.Blob))
	})
}
