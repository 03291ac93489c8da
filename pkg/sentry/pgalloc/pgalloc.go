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

// Package pgalloc owns every physical page frame of the machine. It hands
// out unreferenced frames from a free list, tracks per-frame reference
// counts, and returns frames to the free list when their last reference is
// dropped.
//
// Lock order: the free-list lock is a leaf lock. Reference counts are
// updated without it.
package pgalloc

import (
	"fmt"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/atomicbitops"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/metric"
	"gvisor.dev/pios/pkg/sync"
)

var (
	allocsMetric        = metric.MustCreateNewUint64Metric("/pgalloc/allocs", "Number of frames taken from the free list.")
	freesMetric         = metric.MustCreateNewUint64Metric("/pgalloc/frees", "Number of frames returned to the free list.")
	allocFailuresMetric = metric.MustCreateNewUint64Metric("/pgalloc/alloc_failures", "Number of allocations that found the free list empty.")
)

// Frame is the page number of a physical page frame. It indexes the
// allocator's descriptor array.
type Frame int32

// NoFrame is the "none" value for a Frame.
const NoFrame Frame = -1

// PhysAddr returns the physical address of the start of f.
func (f Frame) PhysAddr() hostarch.Addr {
	return hostarch.Addr(f) << hostarch.PageShift
}

// FrameOf returns the frame containing physical address pa.
func FrameOf(pa hostarch.Addr) Frame {
	return Frame(pa >> hostarch.PageShift)
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	if f == NoFrame {
		return "frame(none)"
	}
	return fmt.Sprintf("frame(%#x)", uint32(f.PhysAddr()))
}

// descSize is the number of bytes of physical memory reserved per frame
// descriptor: one link word and one reference count word.
const descSize = 8

// frameDesc describes one physical page frame.
type frameDesc struct {
	// refs is the number of references to the frame: one per address space
	// mapping plus any held by the kernel. refs is accessed using atomic
	// memory operations.
	refs atomicbitops.Int32

	// next is the next frame on the free list. It is meaningful only while
	// onFreeList is true. next is protected by Allocator.mu.
	next Frame

	// onFreeList is true iff the frame is linked into the free list.
	// onFreeList is protected by Allocator.mu.
	onFreeList bool
}

// fatalf reports a kernel bug.
func fatalf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	log.Warningf("%s", msg)
	panic(msg)
}

// BootMemory is the boot-time memory report: the sizes of base (below
// 640K) and extended (above 1M) memory as reported by the firmware.
type BootMemory struct {
	// BaseBytes is the amount of base memory.
	BaseBytes uint32

	// ExtendedBytes is the amount of extended memory.
	ExtendedBytes uint32
}

// MaxAddr returns the top of physical memory.
func (b BootMemory) MaxAddr() uint32 {
	return pios.MEM_EXT + uint32(hostarch.Addr(b.ExtendedBytes).RoundDown())
}

// Allocator is the physical page allocator.
type Allocator struct {
	// mu protects the free list.
	mu sync.Mutex

	// freeHead is the first frame of the free list. freeHead is protected
	// by mu.
	freeHead Frame

	// frames is the descriptor array, indexed by Frame. The slice itself
	// is immutable after New.
	frames []frameDesc

	// mem is the contents of physical memory.
	mem []byte

	// basePages is the number of pages of base memory.
	basePages int

	// descAddr is the physical address of the descriptor array.
	descAddr hostarch.Addr

	// freeMem is the first physical address past the descriptor array,
	// page aligned.
	freeMem hostarch.Addr
}

// New initializes an allocator over the memory described by boot. kernelEnd
// is the physical address just past the kernel image, which the boot loader
// placed at the start of extended memory.
//
// Page 0, the I/O hole, the kernel image and the descriptor array are in use;
// every other page starts out on the free list.
func New(boot BootMemory, kernelEnd hostarch.Addr) (*Allocator, error) {
	base := uint32(hostarch.Addr(boot.BaseBytes).RoundDown())
	if base > pios.MEM_IO {
		return nil, fmt.Errorf("base memory %dK overlaps the I/O hole at %dK", base/1024, pios.MEM_IO/1024)
	}
	maxAddr := boot.MaxAddr()
	npage := int(maxAddr / hostarch.PageSize)
	if kernelEnd < pios.MEM_EXT || uint32(kernelEnd) >= maxAddr {
		return nil, fmt.Errorf("kernel end %v outside extended memory [%#x, %#x)", kernelEnd, pios.MEM_EXT, maxAddr)
	}

	// Reserve the descriptor array just past the kernel image, naturally
	// aligned, and start free memory on the next page boundary.
	descAddr := hostarch.Addr(hostarch.RoundUpTo(uint32(kernelEnd), descSize))
	descEnd, ok := descAddr.AddLength(uint32(npage) * descSize)
	if !ok {
		return nil, fmt.Errorf("descriptor array for %d pages overflows", npage)
	}
	freeMem, ok := descEnd.RoundUp()
	if !ok || uint32(freeMem) > maxAddr {
		return nil, fmt.Errorf("no room for %d frame descriptors below %#x", npage, maxAddr)
	}

	log.Infof("Physical memory: %dK available, base = %dK, extended = %dK", maxAddr/1024, base/1024, (maxAddr-pios.MEM_EXT)/1024)

	a := &Allocator{
		freeHead:  NoFrame,
		frames:    make([]frameDesc, npage),
		mem:       make([]byte, maxAddr),
		basePages: int(base / hostarch.PageSize),
		descAddr:  descAddr,
		freeMem:   freeMem,
	}

	// Chain the free pages in ascending order by pushing from the top down.
	firstFree := int(freeMem / hostarch.PageSize)
	for i := npage - 1; i >= 0; i-- {
		d := &a.frames[i]
		d.next = NoFrame
		inUse := true
		if i != 0 && i < a.basePages {
			inUse = false
		}
		if i >= firstFree {
			inUse = false
		}
		if inUse {
			d.refs.RacyStore(1)
			continue
		}
		d.next = a.freeHead
		d.onFreeList = true
		a.freeHead = Frame(i)
	}
	return a, nil
}

// NumPages returns the total number of physical pages, including reserved
// ones.
func (a *Allocator) NumPages() int {
	return len(a.frames)
}

// FreeMem returns the first physical address available for allocation
// above the kernel image and the descriptor array.
func (a *Allocator) FreeMem() hostarch.Addr {
	return a.freeMem
}

// PhysAddr returns the physical address of f.
func (a *Allocator) PhysAddr(f Frame) hostarch.Addr {
	a.desc(f)
	return f.PhysAddr()
}

// Valid returns true if f names a physical page frame.
func (a *Allocator) Valid(f Frame) bool {
	return f >= 0 && int(f) < len(a.frames)
}

func (a *Allocator) desc(f Frame) *frameDesc {
	if !a.Valid(f) {
		fatalf("pgalloc: %v out of range [0, %d)", f, len(a.frames))
	}
	return &a.frames[f]
}

// Alloc removes a frame from the free list and returns it.
//
// The frame's contents are not zeroed and its reference count is not
// incremented: callers must zero frames that will hold user-visible data,
// and must take a reference when they install a mapping.
//
// Alloc returns kernerr.ENOMEM if no frame is free.
func (a *Allocator) Alloc() (Frame, error) {
	a.mu.Lock()
	f := a.freeHead
	if f == NoFrame {
		a.mu.Unlock()
		allocFailuresMetric.Increment()
		return NoFrame, kernerr.ENOMEM
	}
	d := &a.frames[f]
	a.freeHead = d.next
	d.next = NoFrame
	d.onFreeList = false
	a.mu.Unlock()

	allocsMetric.Increment()
	return f, nil
}

// Free returns f to the free list.
//
// Preconditions: f has no references and is not already free. Violating
// either is a kernel bug and panics.
func (a *Allocator) Free(f Frame) {
	d := a.desc(f)
	if refs := d.refs.Load(); refs != 0 {
		fatalf("pgalloc.Free: attempt to free in-use %v (refs %d)", f, refs)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if d.onFreeList {
		fatalf("pgalloc.Free: attempt to free already free %v", f)
	}
	d.next = a.freeHead
	d.onFreeList = true
	a.freeHead = f
	freesMetric.Increment()
}

// IncRef atomically increments the reference count on f.
func (a *Allocator) IncRef(f Frame) {
	a.desc(f).refs.Add(1)
}

// DecRef atomically decrements the reference count on f, returning it to
// the free list if that was the last reference.
//
// Precondition: f has at least one reference. Dropping a reference that does
// not exist is a kernel bug; DecRef panics and leaves the count unchanged.
func (a *Allocator) DecRef(f Frame) {
	d := a.desc(f)
	for {
		refs := d.refs.Load()
		if refs <= 0 {
			fatalf("pgalloc.DecRef: %v has no references (refs %d)", f, refs)
		}
		if d.refs.CompareAndSwap(refs, refs-1) {
			if refs == 1 {
				a.Free(f)
			}
			return
		}
	}
}

// Refs returns the current reference count of f.
func (a *Allocator) Refs(f Frame) int32 {
	return a.desc(f).refs.Load()
}

// IsFree returns true if f is currently on the free list.
func (a *Allocator) IsFree(f Frame) bool {
	d := a.desc(f)
	a.mu.Lock()
	defer a.mu.Unlock()
	return d.onFreeList
}

// FreeList returns the frames on the free list, head first.
func (a *Allocator) FreeList() []Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	var fl []Frame
	for f := a.freeHead; f != NoFrame; f = a.frames[f].next {
		fl = append(fl, f)
	}
	return fl
}

// NumFree returns the length of the free list.
func (a *Allocator) NumFree() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for f := a.freeHead; f != NoFrame; f = a.frames[f].next {
		n++
	}
	return n
}

// Bytes returns the contents of f. The returned slice aliases physical
// memory; the allocator does not arbitrate concurrent access to it.
func (a *Allocator) Bytes(f Frame) []byte {
	a.desc(f)
	start := int(f.PhysAddr())
	return a.mem[start : start+hostarch.PageSize : start+hostarch.PageSize]
}

// Zero fills f with zeroes.
func (a *Allocator) Zero(f Frame) {
	clear(a.Bytes(f))
}
