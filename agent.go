// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "context"

// Agent is a connection to the local SSH agent, borrowed from its session.
type Agent struct {
	a  *Adapter
	ag EngineAgent
}

func (g *Agent) Connect(ctx context.Context) error {
	return do(ctx, g.a, "agent_connect", g.ag.Connect)
}

func (g *Agent) Disconnect(ctx context.Context) error {
	return do(ctx, g.a, "agent_disconnect", g.ag.Disconnect)
}

// ListIdentities fetches the agent's identities. Read them with Identities.
func (g *Agent) ListIdentities(ctx context.Context) error {
	return do(ctx, g.a, "agent_list_identities", g.ag.ListIdentities)
}

// Identities returns the identities fetched by the last ListIdentities.
func (g *Agent) Identities() ([]PublicKey, error) {
	return g.ag.Identities()
}

// Userauth authenticates username with one agent identity.
func (g *Agent) Userauth(ctx context.Context, username string, identity PublicKey) error {
	return do(ctx, g.a, "agent_userauth", func() error {
		return g.ag.Userauth(username, identity)
	})
}
