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

// Package arch describes the register state of the simulated i386 machine as
// seen by the kernel: the trap frame saved on entry and the syscall argument
// words taken from it.
package arch

import (
	"fmt"

	"gvisor.dev/pios/pkg/hostarch"
)

// User segment selectors, with requested privilege level 3.
const (
	UserCS = 0x18 | 3
	UserDS = 0x20 | 3
)

// PushRegs holds the general purpose registers in pusha order.
type PushRegs struct {
	EDI  uint32
	ESI  uint32
	EBP  uint32
	OESP uint32 // Useless.
	EBX  uint32
	EDX  uint32
	ECX  uint32
	EAX  uint32
}

// TrapFrame is the register snapshot saved when an environment enters the
// kernel and restored when it is dispatched again.
type TrapFrame struct {
	Regs   PushRegs
	ES     uint16
	DS     uint16
	TrapNo uint32
	Err    uint32
	EIP    uint32
	CS     uint16
	EFLAGS uint32
	ESP    uint32
	SS     uint16
}

// Return returns the current syscall return value.
func (tf *TrapFrame) Return() uintptr {
	return uintptr(tf.Regs.EAX)
}

// SetReturn sets the syscall return value.
func (tf *TrapFrame) SetReturn(value uintptr) {
	tf.Regs.EAX = uint32(value)
}

// IP returns the current instruction pointer.
func (tf *TrapFrame) IP() hostarch.Addr {
	return hostarch.Addr(tf.EIP)
}

// Stack returns the current stack pointer.
func (tf *TrapFrame) Stack() hostarch.Addr {
	return hostarch.Addr(tf.ESP)
}

// SyscallArgs returns the syscall arguments in the trap frame, in the order
// the syscall stub loads them: EDX, ECX, EBX, EDI, ESI.
func (tf *TrapFrame) SyscallArgs() SyscallArguments {
	return SyscallArguments{
		SyscallArgument{Value: uintptr(tf.Regs.EDX)},
		SyscallArgument{Value: uintptr(tf.Regs.ECX)},
		SyscallArgument{Value: uintptr(tf.Regs.EBX)},
		SyscallArgument{Value: uintptr(tf.Regs.EDI)},
		SyscallArgument{Value: uintptr(tf.Regs.ESI)},
	}
}

// SetSyscallArgs loads sysno and args into the trap frame the way the user
// syscall stub does before trapping.
func (tf *TrapFrame) SetSyscallArgs(sysno uintptr, args SyscallArguments) {
	tf.Regs.EAX = uint32(sysno)
	tf.Regs.EDX = args[0].Uint()
	tf.Regs.ECX = args[1].Uint()
	tf.Regs.EBX = args[2].Uint()
	tf.Regs.EDI = args[3].Uint()
	tf.Regs.ESI = args[4].Uint()
}

// String implements fmt.Stringer.
func (tf *TrapFrame) String() string {
	return fmt.Sprintf("eip=%#08x esp=%#08x eax=%#08x eflags=%#08x cs=%#04x", tf.EIP, tf.ESP, tf.Regs.EAX, tf.EFLAGS, tf.CS)
}

// SyscallArgument is an argument supplied to a syscall implementation. The
// methods used to access the arguments are named after the ***C type name***
// and they convert to the closest Go type available. For example, Int()
// refers to a 32-bit signed integer argument represented in Go as an int32.
type SyscallArgument struct {
	// Prefer to use accessor methods instead of 'Value' directly.
	Value uintptr
}

// SyscallArguments represents the set of arguments passed to a syscall.
type SyscallArguments [5]SyscallArgument

// Pointer returns the hostarch.Addr representation of a pointer argument.
func (a SyscallArgument) Pointer() hostarch.Addr {
	return hostarch.AddrOf(a.Value)
}

// Int returns the int32 representation of a 32-bit signed integer argument.
func (a SyscallArgument) Int() int32 {
	return int32(a.Value)
}

// Uint returns the uint32 representation of a 32-bit unsigned integer argument.
func (a SyscallArgument) Uint() uint32 {
	return uint32(a.Value)
}
