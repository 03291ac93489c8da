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

package pgalloc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
)

// newTestAllocator returns an allocator over 640K of base memory and 1M of
// extended memory, with a 64K kernel image.
func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := New(BootMemory{BaseBytes: 640 * 1024, ExtendedBytes: 1024 * 1024}, pios.MEM_EXT+64*1024)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestLayout(t *testing.T) {
	a := newTestAllocator(t)
	if got, want := a.NumPages(), (pios.MEM_EXT+1024*1024)/hostarch.PageSize; got != want {
		t.Errorf("NumPages() = %d, want %d", got, want)
	}
	// 512 descriptors of 8 bytes fit in one page past the kernel.
	if got, want := a.FreeMem(), hostarch.Addr(pios.MEM_EXT+64*1024+hostarch.PageSize); got != want {
		t.Errorf("FreeMem() = %v, want %v", got, want)
	}

	for _, tc := range []struct {
		name string
		pa   hostarch.Addr
		free bool
	}{
		{"page zero", 0, false},
		{"base memory", hostarch.PageSize, true},
		{"top of base memory", pios.MEM_IO - hostarch.PageSize, true},
		{"I/O hole", pios.MEM_IO, false},
		{"kernel image", pios.MEM_EXT, false},
		{"descriptors", a.FreeMem() - hostarch.PageSize, false},
		{"free memory", a.FreeMem(), true},
		{"top of memory", hostarch.Addr(a.NumPages()-1) << hostarch.PageShift, true},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := FrameOf(tc.pa)
			if got := a.IsFree(f); got != tc.free {
				t.Errorf("IsFree(%v) = %t, want %t", f, got, tc.free)
			}
			wantRefs := int32(1)
			if tc.free {
				wantRefs = 0
			}
			if got := a.Refs(f); got != wantRefs {
				t.Errorf("Refs(%v) = %d, want %d", f, got, wantRefs)
			}
		})
	}
}

func TestFreeListAscending(t *testing.T) {
	a := newTestAllocator(t)
	fl := a.FreeList()
	if len(fl) == 0 {
		t.Fatalf("empty free list")
	}
	for i := 1; i < len(fl); i++ {
		if fl[i] <= fl[i-1] {
			t.Fatalf("free list out of order at %d: %v after %v", i, fl[i], fl[i-1])
		}
	}
	if got := a.NumFree(); got != len(fl) {
		t.Errorf("NumFree() = %d, want %d", got, len(fl))
	}
}

func TestNewRejectsBadLayout(t *testing.T) {
	for _, tc := range []struct {
		name      string
		boot      BootMemory
		kernelEnd hostarch.Addr
	}{
		{"base overlaps I/O hole", BootMemory{BaseBytes: 1024 * 1024, ExtendedBytes: 1024 * 1024}, pios.MEM_EXT + hostarch.PageSize},
		{"kernel below extended memory", BootMemory{BaseBytes: 640 * 1024, ExtendedBytes: 1024 * 1024}, pios.MEM_IO},
		{"kernel past memory", BootMemory{BaseBytes: 640 * 1024, ExtendedBytes: 64 * 1024}, pios.MEM_EXT + 64*1024},
		{"no room for descriptors", BootMemory{BaseBytes: 640 * 1024, ExtendedBytes: 64 * 1024}, pios.MEM_EXT + 64*1024 - 16},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.boot, tc.kernelEnd); err == nil {
				t.Errorf("New(%+v, %v) succeeded, want error", tc.boot, tc.kernelEnd)
			}
		})
	}
}

func TestAllocDistinct(t *testing.T) {
	a := newTestAllocator(t)
	seen := make(map[Frame]bool)
	for i := 0; i < 3; i++ {
		f, err := a.Alloc()
		if err != nil {
			t.Fatalf("Alloc #%d failed: %v", i, err)
		}
		if seen[f] {
			t.Fatalf("Alloc #%d returned %v twice", i, f)
		}
		seen[f] = true
		if a.IsFree(f) {
			t.Errorf("%v still on the free list after Alloc", f)
		}
		if got := a.Refs(f); got != 0 {
			t.Errorf("Refs(%v) = %d after Alloc, want 0", f, got)
		}
	}
}

func TestExhaustion(t *testing.T) {
	a := newTestAllocator(t)
	n := a.NumFree()
	var frames []Frame
	for i := 0; i < n; i++ {
		f, err := a.Alloc()
		if err != nil {
			t.Fatalf("Alloc #%d of %d failed: %v", i, n, err)
		}
		frames = append(frames, f)
	}
	seen := make(map[Frame]bool, n)
	for _, f := range frames {
		if seen[f] {
			t.Fatalf("frame %v allocated twice", f)
		}
		seen[f] = true
	}
	before := allocFailuresMetric.Value()
	if f, err := a.Alloc(); !errors.Is(err, kernerr.ENOMEM) {
		t.Fatalf("Alloc on empty free list = (%v, %v), want ENOMEM", f, err)
	}
	if got := allocFailuresMetric.Value(); got != before+1 {
		t.Errorf("alloc_failures = %d, want %d", got, before+1)
	}

	// Exhaustion is not permanent.
	a.Free(frames[0])
	if f, err := a.Alloc(); err != nil || f != frames[0] {
		t.Errorf("Alloc after Free = (%v, %v), want (%v, nil)", f, err, frames[0])
	}
}

func TestRefCountRoundTrip(t *testing.T) {
	a := newTestAllocator(t)
	f, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	a.IncRef(f)
	a.IncRef(f)
	if got := a.Refs(f); got != 2 {
		t.Fatalf("Refs = %d, want 2", got)
	}
	a.DecRef(f)
	if a.IsFree(f) {
		t.Fatalf("%v freed with a reference outstanding", f)
	}
	a.DecRef(f)
	if !a.IsFree(f) {
		t.Fatalf("%v not freed after last DecRef", f)
	}
	mustPanic(t, "third DecRef", func() { a.DecRef(f) })
	if got := a.Refs(f); got != 0 {
		t.Errorf("Refs after failed DecRef = %d, want 0", got)
	}
}

func TestFreeBugs(t *testing.T) {
	a := newTestAllocator(t)
	f, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	a.IncRef(f)
	mustPanic(t, "Free of referenced frame", func() { a.Free(f) })
	a.DecRef(f)
	mustPanic(t, "double Free", func() { a.Free(f) })
	mustPanic(t, "Free out of range", func() { a.Free(Frame(a.NumPages())) })
	mustPanic(t, "IncRef of NoFrame", func() { a.IncRef(NoFrame) })
}

func TestZero(t *testing.T) {
	a := newTestAllocator(t)
	f, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	b := a.Bytes(f)
	if len(b) != hostarch.PageSize {
		t.Fatalf("len(Bytes) = %d, want %d", len(b), hostarch.PageSize)
	}
	for i := range b {
		b[i] = 0xff
	}
	a.Zero(f)
	if diff := cmp.Diff(make([]byte, hostarch.PageSize), a.Bytes(f)); diff != "" {
		t.Errorf("frame not zeroed (-want +got):\n%s", diff)
	}
}

func TestCheck(t *testing.T) {
	a := newTestAllocator(t)
	want := a.FreeList()
	if err := a.Check(); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if diff := cmp.Diff(want, a.FreeList()); diff != "" {
		t.Errorf("Check changed the free list (-want +got):\n%s", diff)
	}
	for _, f := range want {
		if got := a.Bytes(f)[poisonLen-1]; got != poison {
			t.Fatalf("%v byte %d = %#x, want poison %#x", f, poisonLen-1, got, poison)
		}
	}
}

func TestCheckTooFewFrames(t *testing.T) {
	a := newTestAllocator(t)
	for a.NumFree() > 2 {
		if _, err := a.Alloc(); err != nil {
			t.Fatalf("Alloc failed: %v", err)
		}
	}
	want := a.FreeList()
	if err := a.Check(); err == nil {
		t.Fatalf("Check succeeded with %d free frames", len(want))
	}
	if diff := cmp.Diff(want, a.FreeList()); diff != "" {
		t.Errorf("failed Check changed the free list (-want +got):\n%s", diff)
	}
}

func TestStealFreeListKeepsFreedFrames(t *testing.T) {
	a := newTestAllocator(t)
	want := a.FreeList()
	f, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	restore := a.stealFreeList()
	if got := a.NumFree(); got != 0 {
		t.Fatalf("NumFree() = %d after stealing the free list, want 0", got)
	}
	a.Free(f)
	restore()

	got := a.FreeList()
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(x, y Frame) bool { return x < y })); diff != "" {
		t.Errorf("free list after restore mismatch (-want +got):\n%s", diff)
	}
	for _, f := range got {
		if !a.IsFree(f) {
			t.Errorf("%v is on the free list but not marked free", f)
		}
	}
}

// TestConcurrent checks that frames are handed out exactly once when many
// CPUs allocate and release at the same time, and that afterwards every
// frame is either free or referenced.
func TestConcurrent(t *testing.T) {
	a := newTestAllocator(t)
	nfree := a.NumFree()
	const (
		workers = 8
		rounds  = 60
	)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			held := make(map[Frame]bool)
			for i := 0; i < rounds; i++ {
				f, err := a.Alloc()
				if err != nil {
					return fmt.Errorf("Alloc failed: %w", err)
				}
				if held[f] {
					return fmt.Errorf("%v allocated twice", f)
				}
				held[f] = true
				a.IncRef(f)
				a.IncRef(f)
				a.DecRef(f)
				if i%2 == 0 {
					a.DecRef(f)
					delete(held, f)
				}
			}
			for f := range held {
				a.DecRef(f)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := a.NumFree(); got != nfree {
		t.Errorf("NumFree() = %d after stress, want %d", got, nfree)
	}
	for i := 0; i < a.NumPages(); i++ {
		f := Frame(i)
		if free, refs := a.IsFree(f), a.Refs(f); free == (refs > 0) {
			t.Errorf("%v: free = %t with refs = %d", f, free, refs)
		}
	}
}
