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

// Package ulib is the user-level library: syscall stubs, the IPC send loop,
// fork, and the stock user programs.
//
// Everything here runs as user code on a task goroutine and reaches the
// kernel only through Task.Syscall and user-mode memory accesses.
package ulib

import (
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// errorFromReturn decodes a syscall return word.
func errorFromReturn(rv uintptr) error {
	if e, ok := pios.ErrnoFromReturn(rv); ok {
		return kernerr.ErrorFromErrno(e)
	}
	return nil
}

func syscall(t *kernel.Task, sysno uintptr, args ...uintptr) uintptr {
	var a [5]uintptr
	copy(a[:], args)
	return t.Syscall(sysno, a[0], a[1], a[2], a[3], a[4])
}

// SysCputs prints the NUL-terminated string at addr.
func SysCputs(t *kernel.Task, addr hostarch.Addr) {
	syscall(t, pios.SYS_CPUTS, uintptr(addr))
}

// Cgetc waits for a console character.
func Cgetc(t *kernel.Task) byte {
	return byte(syscall(t, pios.SYS_CGETC))
}

// Getenvid returns the calling environment's ID.
func Getenvid(t *kernel.Task) kernel.EnvID {
	return kernel.EnvID(syscall(t, pios.SYS_GETENVID))
}

// EnvDestroy destroys the environment id. If id is 0 or the caller's own ID,
// EnvDestroy does not return.
func EnvDestroy(t *kernel.Task, id kernel.EnvID) error {
	return errorFromReturn(syscall(t, pios.SYS_ENV_DESTROY, uintptr(uint32(id))))
}

// Exit destroys the calling environment.
func Exit(t *kernel.Task) {
	EnvDestroy(t, 0)
}

// Yield gives up the CPU.
func Yield(t *kernel.Task) {
	syscall(t, pios.SYS_YIELD)
}

// MemAlloc maps a zeroed page at va in environment id.
func MemAlloc(t *kernel.Task, id kernel.EnvID, va hostarch.Addr, perm uint32) error {
	return errorFromReturn(syscall(t, pios.SYS_MEM_ALLOC, uintptr(uint32(id)), uintptr(va), uintptr(perm)))
}

// MemMap maps the page at srcva in srcID at dstva in dstID.
func MemMap(t *kernel.Task, srcID kernel.EnvID, srcva hostarch.Addr, dstID kernel.EnvID, dstva hostarch.Addr, perm uint32) error {
	return errorFromReturn(syscall(t, pios.SYS_MEM_MAP, uintptr(uint32(srcID)), uintptr(srcva), uintptr(uint32(dstID)), uintptr(dstva), uintptr(perm)))
}

// MemUnmap unmaps the page at va in environment id.
func MemUnmap(t *kernel.Task, id kernel.EnvID, va hostarch.Addr) error {
	return errorFromReturn(syscall(t, pios.SYS_MEM_UNMAP, uintptr(uint32(id)), uintptr(va)))
}

// EnvAlloc creates a child environment. When the child runs, its register
// set shows 0 returned from this syscall.
func EnvAlloc(t *kernel.Task) (kernel.EnvID, error) {
	rv := syscall(t, pios.SYS_ENV_ALLOC)
	if err := errorFromReturn(rv); err != nil {
		return 0, err
	}
	return kernel.EnvID(rv), nil
}

// SetTrapFrame installs the register set stored at addr in environment id.
func SetTrapFrame(t *kernel.Task, id kernel.EnvID, addr hostarch.Addr) error {
	return errorFromReturn(syscall(t, pios.SYS_SET_TRAPFRAME, uintptr(uint32(id)), uintptr(addr)))
}

// SetStatus sets the status of environment id.
func SetStatus(t *kernel.Task, id kernel.EnvID, status pios.EnvStatus) error {
	return errorFromReturn(syscall(t, pios.SYS_SET_STATUS, uintptr(uint32(id)), uintptr(status)))
}

// SetPgfaultEntry registers a page fault handler for environment id.
func SetPgfaultEntry(t *kernel.Task, id kernel.EnvID, entry, xstackTop hostarch.Addr) error {
	return errorFromReturn(syscall(t, pios.SYS_SET_PGFAULT_ENTRY, uintptr(uint32(id)), uintptr(entry), uintptr(xstackTop)))
}

// IPCCanSend makes one attempt to send to environment id.
func IPCCanSend(t *kernel.Task, id kernel.EnvID, value uint32, srcva hostarch.Addr, perm uint32) error {
	return errorFromReturn(syscall(t, pios.SYS_IPC_CAN_SEND, uintptr(uint32(id)), uintptr(value), uintptr(srcva), uintptr(perm)))
}

// SysIPCRecv blocks until a message arrives and returns its value.
func SysIPCRecv(t *kernel.Task, dstva hostarch.Addr) uint32 {
	return uint32(syscall(t, pios.SYS_IPC_RECV, uintptr(dstva)))
}
