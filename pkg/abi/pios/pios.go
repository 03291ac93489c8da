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

// Package pios contains the constants and types that make up the PIOS
// user/kernel ABI: syscall numbers, error numbers, page table entry bits,
// environment status values and the user address space limit.
package pios

// Syscall numbers, in table order.
const (
	SYS_CPUTS = iota
	SYS_CGETC
	SYS_GETENVID
	SYS_ENV_DESTROY
	SYS_YIELD
	SYS_MEM_ALLOC
	SYS_MEM_MAP
	SYS_MEM_UNMAP
	SYS_ENV_ALLOC
	SYS_SET_TRAPFRAME
	SYS_SET_STATUS
	SYS_SET_PGFAULT_ENTRY
	SYS_IPC_CAN_SEND
	SYS_IPC_RECV

	// NSYSCALLS is one past the highest syscall number.
	NSYSCALLS
)

// Page table entry permission bits.
const (
	PTE_P     = 0x001 // Present.
	PTE_W     = 0x002 // Writeable.
	PTE_U     = 0x004 // User.
	PTE_AVAIL = 0xe00 // Available for software use.

	// PTE_REQUIRED must be set in every user-supplied mapping permission.
	PTE_REQUIRED = PTE_P | PTE_U

	// PTE_USER is the set of bits a user environment may ask for.
	PTE_USER = PTE_P | PTE_U | PTE_W | PTE_AVAIL
)

// ValidPerm returns true if perm is acceptable as the permission of a user
// mapping: it includes PTE_P and PTE_U and nothing outside PTE_USER.
func ValidPerm(perm uint32) bool {
	return perm&PTE_REQUIRED == PTE_REQUIRED && perm&^PTE_USER == 0
}

// Memory layout.
const (
	// UTOP is the user/kernel boundary. No syscall may name, map or write a
	// user virtual address at or above it.
	UTOP = 0xeec00000

	// UXSTACKTOP is the top of the user exception stack.
	UXSTACKTOP = UTOP

	// USTACKTOP is the top of the normal user stack. One empty page
	// separates it from the exception stack.
	USTACKTOP = UTOP - 2*0x1000

	// UTEXT is where user programs are loaded.
	UTEXT = 0x00800000

	// MEM_IO is the start of the legacy I/O hole.
	MEM_IO = 0x0a0000

	// MEM_EXT is the start of extended memory.
	MEM_EXT = 0x100000
)

// Environment table geometry.
const (
	LOG2NENV = 10
	NENV     = 1 << LOG2NENV
)

// EnvStatus is the scheduling status of an environment.
type EnvStatus uint32

// Environment status values.
const (
	ENV_FREE EnvStatus = iota
	ENV_RUNNABLE
	ENV_NOT_RUNNABLE
	ENV_DYING
)

// String implements fmt.Stringer.
func (s EnvStatus) String() string {
	switch s {
	case ENV_FREE:
		return "free"
	case ENV_RUNNABLE:
		return "runnable"
	case ENV_NOT_RUNNABLE:
		return "not-runnable"
	case ENV_DYING:
		return "dying"
	default:
		return "unknown"
	}
}

// EFLAGS bits forced on by set_trapframe.
const (
	FL_IF = 0x00000200 // Interrupt enable.
)

// SyscallName returns a printable name for a syscall number.
func SyscallName(sysno uintptr) string {
	if sysno < uintptr(len(syscallNames)) {
		return syscallNames[sysno]
	}
	return "unknown"
}

var syscallNames = [NSYSCALLS]string{
	SYS_CPUTS:             "cputs",
	SYS_CGETC:             "cgetc",
	SYS_GETENVID:          "getenvid",
	SYS_ENV_DESTROY:       "env_destroy",
	SYS_YIELD:             "yield",
	SYS_MEM_ALLOC:         "mem_alloc",
	SYS_MEM_MAP:           "mem_map",
	SYS_MEM_UNMAP:         "mem_unmap",
	SYS_ENV_ALLOC:         "env_alloc",
	SYS_SET_TRAPFRAME:     "set_trapframe",
	SYS_SET_STATUS:        "set_status",
	SYS_SET_PGFAULT_ENTRY: "set_pgfault_entry",
	SYS_IPC_CAN_SEND:      "ipc_can_send",
	SYS_IPC_RECV:          "ipc_recv",
}
