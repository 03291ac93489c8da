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

// Package strace implements the logic to print out the input and the return
// value of each traced syscall.
package strace

import (
	"bytes"
	"fmt"
	"strings"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// maxStringLen is the maximum number of bytes of a user string to print.
const maxStringLen = 64

// FormatSpecifier values describe how an individual syscall argument should be
// formatted.
type FormatSpecifier int

// Valid FormatSpecifiers.
const (
	// Hex is just a hexadecimal number.
	Hex FormatSpecifier = iota

	// EnvID is an environment ID. Zero means the caller.
	EnvID

	// Addr is a user virtual address.
	Addr

	// Perm is a set of page table entry permission bits.
	Perm

	// Status is an environment status.
	Status

	// String is a pointer to a NUL-terminated user string.
	String
)

// SyscallInfo captures the name and printing format of a syscall.
type SyscallInfo struct {
	// name is the name of the syscall.
	name string

	// format contains the format specifiers for each argument. Arguments
	// without a corresponding entry in format are not printed.
	format []FormatSpecifier
}

func makeSyscallInfo(name string, f ...FormatSpecifier) SyscallInfo {
	return SyscallInfo{name: name, format: f}
}

// SyscallMap maps syscalls into names and printing formats.
type SyscallMap map[uintptr]SyscallInfo

var _ kernel.Stracer = (SyscallMap)(nil)

// Syscalls describes every PIOS syscall.
var Syscalls = SyscallMap{
	pios.SYS_CPUTS:             makeSyscallInfo("cputs", String),
	pios.SYS_CGETC:             makeSyscallInfo("cgetc"),
	pios.SYS_GETENVID:          makeSyscallInfo("getenvid"),
	pios.SYS_ENV_DESTROY:       makeSyscallInfo("env_destroy", EnvID),
	pios.SYS_YIELD:             makeSyscallInfo("yield"),
	pios.SYS_MEM_ALLOC:         makeSyscallInfo("mem_alloc", EnvID, Addr, Perm),
	pios.SYS_MEM_MAP:           makeSyscallInfo("mem_map", EnvID, Addr, EnvID, Addr, Perm),
	pios.SYS_MEM_UNMAP:         makeSyscallInfo("mem_unmap", EnvID, Addr),
	pios.SYS_ENV_ALLOC:         makeSyscallInfo("env_alloc"),
	pios.SYS_SET_TRAPFRAME:     makeSyscallInfo("set_trapframe", EnvID, Addr),
	pios.SYS_SET_STATUS:        makeSyscallInfo("set_status", EnvID, Status),
	pios.SYS_SET_PGFAULT_ENTRY: makeSyscallInfo("set_pgfault_entry", EnvID, Addr, Addr),
	pios.SYS_IPC_CAN_SEND:      makeSyscallInfo("ipc_can_send", EnvID, Hex, Addr, Perm),
	pios.SYS_IPC_RECV:          makeSyscallInfo("ipc_recv", Addr),
}

// Enable turns on tracing for table.
//
// Preconditions: No kernel using table is running.
func Enable(table *kernel.SyscallTable) {
	table.Stracer = Syscalls
}

// Disable turns off tracing for table.
//
// Preconditions: No kernel using table is running.
func Disable(table *kernel.SyscallTable) {
	table.Stracer = nil
}

// SyscallEnter implements kernel.Stracer.SyscallEnter. It formats the
// arguments before the handler runs, since handlers may change the memory
// they point to.
func (s SyscallMap) SyscallEnter(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) any {
	info, ok := s[sysno]
	if !ok {
		info = SyscallInfo{
			name:   fmt.Sprintf("sys_%d", sysno),
			format: []FormatSpecifier{Hex, Hex, Hex, Hex, Hex},
		}
	}
	return info.pre(t, args)
}

// SyscallExit implements kernel.Stracer.SyscallExit.
func (s SyscallMap) SyscallExit(ctx any, t *kernel.Task, sysno, rval uintptr, err error) {
	if err != nil {
		log.Infof("[%v] %s = %d (%v)", t.EnvID(), ctx, int32(rval), err)
		return
	}
	log.Infof("[%v] %s = %#x", t.EnvID(), ctx, rval)
}

// pre formats the syscall name and arguments.
func (i SyscallInfo) pre(t *kernel.Task, args arch.SyscallArguments) string {
	output := make([]string, 0, len(i.format))
	for arg, f := range i.format {
		if arg >= len(args) {
			break
		}
		output = append(output, formatArg(t, f, args[arg].Value))
	}
	return fmt.Sprintf("%s(%s)", i.name, strings.Join(output, ", "))
}

func formatArg(t *kernel.Task, f FormatSpecifier, v uintptr) string {
	switch f {
	case EnvID:
		return kernel.EnvID(uint32(v)).String()
	case Addr:
		return hostarch.Addr(uint32(v)).String()
	case Perm:
		return perm(uint32(v))
	case Status:
		return pios.EnvStatus(uint32(v)).String()
	case String:
		return userString(t, hostarch.Addr(uint32(v)))
	default:
		return fmt.Sprintf("%#x", v)
	}
}

var permFlags = []struct {
	flag uint32
	name string
}{
	{pios.PTE_P, "P"},
	{pios.PTE_W, "W"},
	{pios.PTE_U, "U"},
}

// perm formats page permission bits, e.g. "P|W|U|0x200".
func perm(v uint32) string {
	var names []string
	for _, f := range permFlags {
		if v&f.flag != 0 {
			names = append(names, f.name)
			v &^= f.flag
		}
	}
	if v != 0 || len(names) == 0 {
		names = append(names, fmt.Sprintf("%#x", v))
	}
	return strings.Join(names, "|")
}

// userString reads a string from the caller's address space for display.
// Unlike Task.CopyInString, a fault only changes the output.
func userString(t *kernel.Task, addr hostarch.Addr) string {
	buf := make([]byte, maxStringLen)
	n, err := t.MemoryManager().CopyIn(addr, buf)
	buf = buf[:n]
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return fmt.Sprintf("%v %q", addr, buf[:i])
	}
	if err != nil && n == 0 {
		return fmt.Sprintf("%v (error decoding string: %v)", addr, err)
	}
	return fmt.Sprintf("%v %q...", addr, buf)
}
