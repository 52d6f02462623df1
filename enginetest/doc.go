// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package enginetest provides in-memory stand-ins for the collaborators of
// package assh: a scripted [Readiness], a scripted call [Sequence], and a
// fake SSH [Engine] whose channels are fed by a remote [Peer].
//
// Nothing here touches a socket. Readiness is modelled by tokens: firing a
// direction wakes the waker holding it, or leaves a token the next poll of
// that direction consumes. Engine stalls fire their own token, so every
// injected would-block suspends once and then resumes. Held calls fire
// nothing and wait for the test.
package enginetest
