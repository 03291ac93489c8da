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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrapFrameBytes(t *testing.T) {
	want := TrapFrame{
		Regs:   PushRegs{EDI: 1, ESI: 2, EBP: 3, EBX: 5, EDX: 6, ECX: 7, EAX: 8},
		ES:     0x23,
		DS:     0x23,
		EIP:    0x800020,
		CS:     0x1b,
		EFLAGS: 0x202,
		ESP:    0xeebfe000,
		SS:     0x23,
	}
	buf := make([]byte, want.SizeBytes())
	want.MarshalBytes(buf)

	// EIP is the thirteenth word.
	if got := uint32(buf[48]) | uint32(buf[49])<<8 | uint32(buf[50])<<16 | uint32(buf[51])<<24; got != want.EIP {
		t.Errorf("EIP word = %#x, want %#x", got, want.EIP)
	}

	var got TrapFrame
	got.UnmarshalBytes(buf)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TrapFrame mismatch (-want +got):\n%s", diff)
	}
}

func TestSyscallArgs(t *testing.T) {
	var tf TrapFrame
	args := SyscallArguments{{Value: 1}, {Value: 2}, {Value: 3}, {Value: 4}, {Value: 5}}
	tf.SetSyscallArgs(9, args)
	if tf.Return() != 9 {
		t.Errorf("EAX = %d, want syscall number 9", tf.Return())
	}
	if diff := cmp.Diff(args, tf.SyscallArgs()); diff != "" {
		t.Errorf("SyscallArgs mismatch (-want +got):\n%s", diff)
	}
	tf.SetReturn(uintptr(0xffffffff))
	if got := tf.SyscallArgs()[0].Int(); got != 1 {
		t.Errorf("SetReturn clobbered arguments: arg0 = %d", got)
	}
}

func TestSyscallArgumentConversions(t *testing.T) {
	a := SyscallArgument{Value: uintptr(0xfffffffe)}
	if got := a.Int(); got != -2 {
		t.Errorf("Int() = %d, want -2", got)
	}
	if got := a.Uint(); got != 0xfffffffe {
		t.Errorf("Uint() = %#x", got)
	}
	if got := a.Pointer(); uint32(got) != 0xfffffffe {
		t.Errorf("Pointer() = %v", got)
	}
}
