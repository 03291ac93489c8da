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
	"testing"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/sentry/arch"
)

const (
	maxTestSyscall = 200
)

func createSyscallTable(t testing.TB) *SyscallTable {
	m := make(map[uintptr]Syscall)
	for i := uintptr(0); i <= maxTestSyscall; i++ {
		j := i
		m[i] = Syscall{
			Fn: func(*Task, arch.SyscallArguments) (uintptr, *SyscallControl, error) {
				return j, nil, nil
			},
		}
	}

	s := &SyscallTable{
		Table: m,
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return s
}

func TestTable(t *testing.T) {
	table := createSyscallTable(t)

	// Go through all functions and check that they return the right value.
	for i := uintptr(0); i < maxTestSyscall; i++ {
		fn := table.Lookup(i)
		if fn == nil {
			t.Errorf("Syscall %v is set to nil", i)
			continue
		}

		v, _, _ := fn(nil, arch.SyscallArguments{})
		if v != i {
			t.Errorf("Wrong return value for syscall %v: expected %v, got %v", i, i, v)
		}
	}

	// Check that values outside the range return nil.
	for i := uintptr(maxTestSyscall + 1); i < maxTestSyscall+100; i++ {
		fn := table.Lookup(i)
		if fn != nil {
			t.Errorf("Syscall %v is not nil: %v", i, fn)
			continue
		}
	}
}

func TestTableSparse(t *testing.T) {
	s := &SyscallTable{
		Table: map[uintptr]Syscall{
			pios.SYS_YIELD: {Name: "my_yield", Fn: func(*Task, arch.SyscallArguments) (uintptr, *SyscallControl, error) {
				return 0, CtrlYield, nil
			}},
		},
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if s.Lookup(pios.SYS_YIELD) == nil {
		t.Errorf("Lookup(SYS_YIELD) = nil")
	}
	if s.Lookup(pios.SYS_CPUTS) != nil {
		t.Errorf("Lookup(SYS_CPUTS) != nil")
	}
	if got, want := s.LookupName(pios.SYS_YIELD), "my_yield"; got != want {
		t.Errorf("LookupName(SYS_YIELD) = %q, want %q", got, want)
	}
	if got, want := s.LookupName(pios.SYS_CPUTS), pios.SyscallName(pios.SYS_CPUTS); got != want {
		t.Errorf("LookupName(SYS_CPUTS) = %q, want %q", got, want)
	}
}

func TestTableTooLarge(t *testing.T) {
	s := &SyscallTable{
		Table: map[uintptr]Syscall{
			maxSyscallNum + 1: {Name: "huge"},
		},
	}
	if err := s.Init(); err == nil {
		t.Errorf("Init() succeeded with syscall %d", maxSyscallNum+1)
	}
}

func BenchmarkTableLookup(b *testing.B) {
	table := createSyscallTable(b)

	b.ResetTimer()

	j := uintptr(0)
	for i := 0; i < b.N; i++ {
		table.Lookup(j)
		j = (j + 1) % 310
	}
}

func BenchmarkTableMapLookup(b *testing.B) {
	table := createSyscallTable(b)

	b.ResetTimer()

	j := uintptr(0)
	for i := 0; i < b.N; i++ {
		table.mapLookup(j)
		j = (j + 1) % 310
	}
}
