// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package arch

import (
	"gvisor.dev/pios/pkg/hostarch"
)

// trapFrameSize is the size of a TrapFrame in user memory. Every field,
// including the 16-bit segment selectors, occupies one 32-bit word.
const trapFrameSize = 17 * 4

// SizeBytes returns the size of the user memory representation of tf.
func (tf *TrapFrame) SizeBytes() int {
	return trapFrameSize
}

// MarshalBytes serializes tf into dst.
func (tf *TrapFrame) MarshalBytes(dst []byte) {
	words := [17]uint32{
		tf.Regs.EDI, tf.Regs.ESI, tf.Regs.EBP, tf.Regs.OESP,
		tf.Regs.EBX, tf.Regs.EDX, tf.Regs.ECX, tf.Regs.EAX,
		uint32(tf.ES), uint32(tf.DS), tf.TrapNo, tf.Err,
		tf.EIP, uint32(tf.CS), tf.EFLAGS, tf.ESP, uint32(tf.SS),
	}
	for _, w := range words {
		hostarch.ByteOrder.PutUint32(dst[:4], w)
		dst = dst[4:]
	}
}

// UnmarshalBytes deserializes tf from src.
func (tf *TrapFrame) UnmarshalBytes(src []byte) {
	var words [17]uint32
	for i := range words {
		words[i] = hostarch.ByteOrder.Uint32(src[:4])
		src = src[4:]
	}
	tf.Regs = PushRegs{
		EDI: words[0], ESI: words[1], EBP: words[2], OESP: words[3],
		EBX: words[4], EDX: words[5], ECX: words[6], EAX: words[7],
	}
	tf.ES = uint16(words[8])
	tf.DS = uint16(words[9])
	tf.TrapNo = words[10]
	tf.Err = words[11]
	tf.EIP = words[12]
	tf.CS = uint16(words[13])
	tf.EFLAGS = words[14]
	tf.ESP = words[15]
	tf.SS = uint16(words[16])
}
