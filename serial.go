// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "code.hybscloud.com/atomix"

// Serial identifies one adapter, and so one session, in logs and metrics.
// Serials increase monotonically per process.
type Serial = uint32

var serials atomix.Uint32

func nextSerial() Serial {
	return serials.Add(1)
}
