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

package kernel

import (
	"fmt"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/sentry/arch"
)

// maxSyscallNum is the highest supported syscall number.
const maxSyscallNum = 255

// SyscallFn is a syscall implementation.
type SyscallFn func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error)

// SyscallControl is returned by syscalls to control the behavior of
// Task.Syscall after the handler returns.
type SyscallControl struct {
	next syscallAction
}

type syscallAction int

const (
	actionYield syscallAction = iota + 1
	actionIPCRecv
	actionDestroySelf
)

var (
	// CtrlYield gives up the CPU before returning to the caller.
	CtrlYield = &SyscallControl{next: actionYield}

	// CtrlIPCRecv parks the caller until a send completes. The syscall
	// then returns the delivered value.
	CtrlIPCRecv = &SyscallControl{next: actionIPCRecv}

	// CtrlDestroySelf destroys the caller. The syscall never returns.
	CtrlDestroySelf = &SyscallControl{next: actionDestroySelf}
)

// Syscall includes a syscall implementation and its name.
type Syscall struct {
	// Name is the syscall name.
	Name string

	// Fn is the implementation of the syscall.
	Fn SyscallFn
}

// Stracer traces syscall execution.
type Stracer interface {
	// SyscallEnter is called before a syscall handler runs. Its result is
	// passed to SyscallExit.
	SyscallEnter(t *Task, sysno uintptr, args arch.SyscallArguments) any

	// SyscallExit is called after the handler returns, with the 32-bit
	// result word and the handler's error.
	SyscallExit(ctx any, t *Task, sysno, rval uintptr, err error)
}

// SyscallTable is a lookup table of system calls.
type SyscallTable struct {
	// Table is the collection of functions.
	Table map[uintptr]Syscall

	// Stracer traces this table's syscalls, if not nil. It must only be
	// changed while no kernel using the table is running.
	Stracer Stracer

	// lookup is a fixed-size array that holds the syscalls (indexed by
	// their numbers). It is used for fast look ups.
	lookup []SyscallFn
}

// Init initializes the system call table. It must be called before the table
// is given to a kernel.
func (s *SyscallTable) Init() error {
	max := uintptr(0)
	for num := range s.Table {
		if num > maxSyscallNum {
			return fmt.Errorf("syscall number %d exceeds maximum %d", num, maxSyscallNum)
		}
		if num > max {
			max = num
		}
	}
	s.lookup = make([]SyscallFn, max+1)
	for num, sc := range s.Table {
		s.lookup[num] = sc.Fn
	}
	return nil
}

// Lookup returns the syscall implementation, if one exists.
func (s *SyscallTable) Lookup(sysno uintptr) SyscallFn {
	if sysno < uintptr(len(s.lookup)) {
		return s.lookup[sysno]
	}
	return nil
}

// LookupName looks up a syscall name.
func (s *SyscallTable) LookupName(sysno uintptr) string {
	if sc, ok := s.Table[sysno]; ok {
		return sc.Name
	}
	return pios.SyscallName(sysno)
}

// mapLookup is similar to Lookup, except that it only uses the syscall table,
// that is, it skips the fast look array. This is available for benchmarking.
func (s *SyscallTable) mapLookup(sysno uintptr) SyscallFn {
	if sc, ok := s.Table[sysno]; ok {
		return sc.Fn
	}
	return nil
}
