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

// Package pios provides the PIOS syscall table and the implementations of
// its syscalls.
package pios

import (
	"fmt"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// Table is the PIOS syscall table. Numbers that are not in the table fail
// with E_INVAL.
var Table = &kernel.SyscallTable{
	Table: map[uintptr]kernel.Syscall{
		pios.SYS_CPUTS:             {Name: "cputs", Fn: Cputs},
		pios.SYS_CGETC:             {Name: "cgetc", Fn: Cgetc},
		pios.SYS_GETENVID:          {Name: "getenvid", Fn: Getenvid},
		pios.SYS_ENV_DESTROY:       {Name: "env_destroy", Fn: EnvDestroy},
		pios.SYS_YIELD:             {Name: "yield", Fn: Yield},
		pios.SYS_MEM_ALLOC:         {Name: "mem_alloc", Fn: MemAlloc},
		pios.SYS_MEM_MAP:           {Name: "mem_map", Fn: MemMap},
		pios.SYS_MEM_UNMAP:         {Name: "mem_unmap", Fn: MemUnmap},
		pios.SYS_ENV_ALLOC:         {Name: "env_alloc", Fn: EnvAlloc},
		pios.SYS_SET_TRAPFRAME:     {Name: "set_trapframe", Fn: SetTrapFrame},
		pios.SYS_SET_STATUS:        {Name: "set_status", Fn: SetStatus},
		pios.SYS_SET_PGFAULT_ENTRY: {Name: "set_pgfault_entry", Fn: SetPgfaultEntry},
		pios.SYS_IPC_CAN_SEND:      {Name: "ipc_can_send", Fn: IPCCanSend},
		pios.SYS_IPC_RECV:          {Name: "ipc_recv", Fn: IPCRecv},
	},
}

func init() {
	if err := Table.Init(); err != nil {
		panic(fmt.Sprintf("syscall table: %v", err))
	}
}
