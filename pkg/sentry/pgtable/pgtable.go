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

// Package pgtable implements the page-table primitives of a user address
// space: installing, removing and looking up single-page mappings of
// physical frames, and copying bytes through those mappings.
//
// Mappings are kept in a B-tree ordered by virtual address. Second-level
// page-table frames are allocated from the physical allocator on demand, one
// per 4M region, so that building an address space consumes physical memory
// the way a two-level x86 page table does.
package pgtable

import (
	"fmt"

	"github.com/google/btree"
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/sentry/pgalloc"
	"gvisor.dev/pios/pkg/sync"
)

// PDXShift is the binary log of the span of one second-level page table.
const PDXShift = 22

// btreeDegree is the degree of the mapping B-tree.
const btreeDegree = 16

// Mapping is a single page mapping.
type Mapping struct {
	// Frame is the mapped physical frame.
	Frame pgalloc.Frame

	// Perm holds the PTE permission bits of the mapping.
	Perm uint32
}

// Writable returns true if the mapping permits writes.
func (m Mapping) Writable() bool {
	return m.Perm&pios.PTE_W != 0
}

type entry struct {
	va hostarch.Addr
	m  Mapping
}

func entryLess(a, b entry) bool {
	return a.va < b.va
}

// FaultError is returned when an access through an address space touches a
// page that is not mapped, or writes a page that is mapped read-only.
type FaultError struct {
	// Addr is the faulting virtual address.
	Addr hostarch.Addr

	// Write is true if the access was a write.
	Write bool
}

// Error implements error.Error.
func (e *FaultError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return fmt.Sprintf("page fault: %s at %v", op, e.Addr)
}

// AddressSpace is the set of page mappings of one environment.
//
// Lock order: AddressSpace.mu is taken before the allocator's free-list
// lock.
type AddressSpace struct {
	alloc *pgalloc.Allocator

	// root is the page directory frame. It is immutable.
	root pgalloc.Frame

	mu sync.Mutex

	// mappings maps page-aligned virtual addresses to frames. mappings is
	// protected by mu.
	mappings *btree.BTreeG[entry]

	// tables maps page directory indices to second-level table frames.
	// tables is protected by mu.
	tables map[uint32]pgalloc.Frame

	// released is set by Release. released is protected by mu.
	released bool
}

// New returns an empty address space. The page directory frame is taken from
// alloc with a single reference held by the address space.
func New(alloc *pgalloc.Allocator) (*AddressSpace, error) {
	root, err := allocTable(alloc)
	if err != nil {
		return nil, err
	}
	return &AddressSpace{
		alloc:    alloc,
		root:     root,
		mappings: btree.NewG(btreeDegree, entryLess),
		tables:   make(map[uint32]pgalloc.Frame),
	}, nil
}

func allocTable(alloc *pgalloc.Allocator) (pgalloc.Frame, error) {
	f, err := alloc.Alloc()
	if err != nil {
		return pgalloc.NoFrame, err
	}
	alloc.Zero(f)
	alloc.IncRef(f)
	return f, nil
}

// Root returns the page directory frame.
func (as *AddressSpace) Root() pgalloc.Frame {
	return as.root
}

// Insert maps f at the page containing va with permissions perm, replacing
// any mapping already there. The reference on f is taken before the old
// mapping is dropped, so re-inserting the same frame at the same address is
// safe.
//
// Insert returns kernerr.ENOMEM if a page table frame is needed and none is
// free, and kernerr.EBADENV if the address space has been released.
func (as *AddressSpace) Insert(f pgalloc.Frame, va hostarch.Addr, perm uint32) error {
	va = va.RoundDown()

	as.mu.Lock()
	defer as.mu.Unlock()
	if as.released {
		return kernerr.EBADENV
	}
	pdx := uint32(va) >> PDXShift
	if _, ok := as.tables[pdx]; !ok {
		t, err := allocTable(as.alloc)
		if err != nil {
			return err
		}
		as.tables[pdx] = t
	}

	as.alloc.IncRef(f)
	old, replaced := as.mappings.ReplaceOrInsert(entry{va: va, m: Mapping{Frame: f, Perm: perm | pios.PTE_P}})
	if replaced {
		as.alloc.DecRef(old.m.Frame)
	}
	return nil
}

// Remove unmaps the page containing va. It is a no-op if nothing is mapped
// there.
func (as *AddressSpace) Remove(va hostarch.Addr) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if old, ok := as.mappings.Delete(entry{va: va.RoundDown()}); ok {
		as.alloc.DecRef(old.m.Frame)
	}
}

// Lookup returns the mapping of the page containing va.
func (as *AddressSpace) Lookup(va hostarch.Addr) (Mapping, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	e, ok := as.mappings.Get(entry{va: va.RoundDown()})
	return e.m, ok
}

// Get is like Lookup, but also takes a reference on the mapped frame so that
// the frame stays allocated if the mapping is concurrently removed. The
// caller must drop the reference with DecRef.
func (as *AddressSpace) Get(va hostarch.Addr) (Mapping, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	e, ok := as.mappings.Get(entry{va: va.RoundDown()})
	if ok {
		as.alloc.IncRef(e.m.Frame)
	}
	return e.m, ok
}

// Range calls fn on every mapping in ascending address order until fn
// returns false. fn must not call back into as.
func (as *AddressSpace) Range(fn func(va hostarch.Addr, m Mapping) bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.mappings.Ascend(func(e entry) bool {
		return fn(e.va, e.m)
	})
}

// Len returns the number of mapped pages.
func (as *AddressSpace) Len() int {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.mappings.Len()
}

// NumFrames returns the number of frames the address space holds for its
// own structure: the page directory and every second-level table.
func (as *AddressSpace) NumFrames() int {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.released {
		return 0
	}
	return 1 + len(as.tables)
}

// Release unmaps every page and returns the page directory and page table
// frames. Later calls to Insert fail; later calls to Release are no-ops.
func (as *AddressSpace) Release() {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.released {
		return
	}
	as.released = true
	as.mappings.Ascend(func(e entry) bool {
		as.alloc.DecRef(e.m.Frame)
		return true
	})
	as.mappings.Clear(false)
	for pdx, t := range as.tables {
		as.alloc.DecRef(t)
		delete(as.tables, pdx)
	}
	as.alloc.DecRef(as.root)
}

// CopyIn copies len(dst) bytes from the address space starting at va. It
// returns the number of bytes copied and a *FaultError if it stopped at a
// page that is not mapped.
func (as *AddressSpace) CopyIn(va hostarch.Addr, dst []byte) (int, error) {
	return as.copy(va, dst, false)
}

// CopyOut copies src into the address space starting at va. It returns the
// number of bytes copied and a *FaultError if it stopped at a page that is
// not mapped writable.
func (as *AddressSpace) CopyOut(va hostarch.Addr, src []byte) (int, error) {
	return as.copy(va, src, true)
}

func (as *AddressSpace) copy(va hostarch.Addr, buf []byte, write bool) (int, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	done := 0
	for done < len(buf) {
		addr, ok := va.AddLength(uint32(done))
		if !ok || addr >= pios.UTOP {
			return done, &FaultError{Addr: addr, Write: write}
		}
		e, ok := as.mappings.Get(entry{va: addr.RoundDown()})
		if !ok || e.m.Perm&pios.PTE_U == 0 || (write && !e.m.Writable()) {
			return done, &FaultError{Addr: addr, Write: write}
		}
		page := as.alloc.Bytes(e.m.Frame)[addr.PageOffset():]
		var n int
		if write {
			n = copy(page, buf[done:])
		} else {
			n = copy(buf[done:], page)
		}
		done += n
	}
	return done, nil
}
