// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"code.hybscloud.com/kont"
)

// CallThen runs an error-only engine call and then continues with next.
// Fuses PerformErr + Then.
func CallThen[B any](name string, fn func() error, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(PerformErr(name, fn), next)
}

// CallBind runs an engine call and passes its result to f.
// Fuses Perform + Bind.
func CallBind[T, B any](name string, fn func() (T, error), f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(Perform(name, fn), f)
}

// CallDone runs an error-only engine call and returns a.
// Fuses PerformErr + Then + Pure.
func CallDone[A any](name string, fn func() error, a A) kont.Eff[A] {
	return kont.Then(PerformErr(name, fn), kont.Pure(a))
}
