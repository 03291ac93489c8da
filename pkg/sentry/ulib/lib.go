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

package ulib

import (
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// cputsChunk is the largest piece of a string Cputs passes to the kernel at
// once.
const cputsChunk = 256

// Cputs prints s. The string is staged on the user stack just below the
// stack pointer.
func Cputs(t *kernel.Task, s string) {
	sp := hostarch.Addr(t.Regs().ESP)
	for len(s) > 0 {
		n := min(len(s), cputsChunk)
		buf := append([]byte(s[:n]), 0)
		addr := (sp - hostarch.Addr(len(buf))) &^ 3
		t.WriteUser(addr, buf)
		SysCputs(t, addr)
		s = s[n:]
	}
}

// IPCSend sends value, and the page at srcva if srcva is not 0, to
// environment id, yielding and retrying until the target is receiving.
func IPCSend(t *kernel.Task, id kernel.EnvID, value uint32, srcva hostarch.Addr, perm uint32) error {
	for {
		err := IPCCanSend(t, id, value, srcva, perm)
		if err != kernerr.EIPCNOTRECV {
			return err
		}
		Yield(t)
	}
}

// Message is a received IPC message.
type Message struct {
	Value uint32
	From  kernel.EnvID

	// Perm holds the permissions of the page mapped at the receive
	// address, or 0 if no page was transferred.
	Perm uint32
}

// IPCRecv blocks until a message arrives. If dstva is not 0, a page sent with
// the message is mapped there.
func IPCRecv(t *kernel.Task, dstva hostarch.Addr) Message {
	value := SysIPCRecv(t, dstva)
	info := t.Info()
	return Message{Value: value, From: info.From, Perm: info.Perm}
}

// Fork creates a runnable child that starts executing the program at entry
// with a fresh stack page. The child's register set is the caller's, except
// for the entry point and stack pointer, and its syscall return register is
// 0.
func Fork(t *kernel.Task, entry hostarch.Addr) (kernel.EnvID, error) {
	child, err := EnvAlloc(t)
	if err != nil {
		return 0, err
	}
	if err := MemAlloc(t, child, pios.USTACKTOP-hostarch.PageSize, pios.PTE_P|pios.PTE_U|pios.PTE_W); err != nil {
		EnvDestroy(t, child)
		return 0, err
	}

	tf := t.Regs()
	tf.EIP = uint32(entry)
	tf.ESP = pios.USTACKTOP
	tf.SetReturn(0)
	buf := make([]byte, tf.SizeBytes())
	tf.MarshalBytes(buf)
	addr := (hostarch.Addr(t.Regs().ESP) - hostarch.Addr(len(buf))) &^ 3
	t.WriteUser(addr, buf)

	if err := SetTrapFrame(t, child, addr); err != nil {
		EnvDestroy(t, child)
		return 0, err
	}
	if err := SetStatus(t, child, pios.ENV_RUNNABLE); err != nil {
		EnvDestroy(t, child)
		return 0, err
	}
	return child, nil
}
