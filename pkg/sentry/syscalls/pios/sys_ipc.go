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
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// IPCCanSend implements syscall ipc_can_send.
func IPCCanSend(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	value := args[1].Uint()
	srcva := args[2].Pointer()
	perm := args[3].Uint()

	return 0, nil, t.IPCSend(id, value, srcva, perm)
}

// IPCRecv implements syscall ipc_recv. The caller blocks until a send
// completes; the syscall then returns the delivered value.
func IPCRecv(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	dstva := args[0].Pointer()

	t.IPCRecv(dstva)
	return 0, kernel.CtrlIPCRecv, nil
}
