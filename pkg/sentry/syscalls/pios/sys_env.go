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

package pios

import (
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// Getenvid implements syscall getenvid.
func Getenvid(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return uintptr(t.EnvID()), nil, nil
}

// EnvDestroy implements syscall env_destroy.
func EnvDestroy(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())

	self, err := t.DestroyEnv(id)
	if err != nil {
		return 0, nil, err
	}
	if self {
		return 0, kernel.CtrlDestroySelf, nil
	}
	return 0, nil, nil
}

// Yield implements syscall yield.
func Yield(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, kernel.CtrlYield, nil
}

// EnvAlloc implements syscall env_alloc.
func EnvAlloc(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id, err := t.EnvAlloc()
	if err != nil {
		return 0, nil, err
	}
	return uintptr(id), nil, nil
}

// SetTrapFrame implements syscall set_trapframe. Interrupts are always
// enabled and the privilege level is always forced to user in the installed
// register set.
func SetTrapFrame(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	addr := args[1].Pointer()

	var tf arch.TrapFrame
	buf := make([]byte, tf.SizeBytes())
	t.TrustedAccess(func() {
		t.CopyInBytes(addr, buf)
	})
	tf.UnmarshalBytes(buf)
	tf.EFLAGS |= pios.FL_IF
	tf.CS |= 3

	return 0, nil, t.SetEnvTrapFrame(id, tf)
}

// SetStatus implements syscall set_status.
func SetStatus(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	status := pios.EnvStatus(args[1].Uint())

	return 0, nil, t.SetEnvStatus(id, status)
}

// SetPgfaultEntry implements syscall set_pgfault_entry. xstacktop points one
// byte past the exception stack.
func SetPgfaultEntry(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	entry := args[1].Pointer()
	xstackTop := args[2].Pointer()

	if entry >= pios.UTOP || xstackTop > pios.UTOP {
		return 0, nil, kernerr.EINVAL
	}
	return 0, nil, t.SetPgfaultEntry(id, entry, xstackTop)
}
