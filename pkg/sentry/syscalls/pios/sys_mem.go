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

// MemAlloc implements syscall mem_alloc. It maps a zeroed page at va in the
// address space of the named environment, replacing any page already there.
func MemAlloc(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	va := args[1].Pointer()
	perm := args[2].Uint()

	as, err := t.AddressSpaceOf(id)
	if err != nil {
		return 0, nil, err
	}
	if !pios.ValidPerm(perm) || va >= pios.UTOP {
		return 0, nil, kernerr.EINVAL
	}

	alloc := t.Kernel().Allocator()
	f, err := alloc.Alloc()
	if err != nil {
		return 0, nil, err
	}
	alloc.Zero(f)
	if err := as.Insert(f, va, perm); err != nil {
		alloc.Free(f)
		return 0, nil, err
	}
	return 0, nil, nil
}

// MemMap implements syscall mem_map. It maps the page at srcva in the source
// environment at dstva in the destination environment. Write permission
// cannot be granted on a page that is read-only in the source.
func MemMap(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	srcID := kernel.EnvID(args[0].Int())
	srcva := args[1].Pointer()
	dstID := kernel.EnvID(args[2].Int())
	dstva := args[3].Pointer()
	perm := args[4].Uint()

	if srcva >= pios.UTOP || dstva >= pios.UTOP {
		return 0, nil, kernerr.EINVAL
	}
	src, err := t.AddressSpaceOf(srcID)
	if err != nil {
		return 0, nil, err
	}
	dst, err := t.AddressSpaceOf(dstID)
	if err != nil {
		return 0, nil, err
	}
	if !pios.ValidPerm(perm) {
		return 0, nil, kernerr.EINVAL
	}

	m, ok := src.Get(srcva)
	if !ok {
		return 0, nil, kernerr.EINVAL
	}
	defer t.Kernel().Allocator().DecRef(m.Frame)
	if perm&pios.PTE_W != 0 && !m.Writable() {
		return 0, nil, kernerr.EINVAL
	}
	if err := dst.Insert(m.Frame, dstva, perm); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// MemUnmap implements syscall mem_unmap. Unmapping an address with nothing
// mapped succeeds.
func MemUnmap(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	va := args[1].Pointer()

	as, err := t.AddressSpaceOf(id)
	if err != nil {
		return 0, nil, err
	}
	if va >= pios.UTOP {
		return 0, nil, kernerr.EINVAL
	}
	as.Remove(va)
	return 0, nil, nil
}
