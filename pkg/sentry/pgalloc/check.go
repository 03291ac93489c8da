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
	"fmt"

	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
)

// poison is written over the start of every free frame by Check so that a
// frame wrongly left on the free list eventually causes visible trouble.
const (
	poison    = 0x97
	poisonLen = 128
)

// Check exercises Alloc and Free against the live free list and returns an
// error describing the first property that does not hold. It runs once at
// boot, before any other CPU or environment can use the allocator, and
// leaves the free list exactly as it found it.
func (a *Allocator) Check() error {
	for _, f := range a.FreeList() {
		b := a.Bytes(f)
		for i := 0; i < poisonLen; i++ {
			b[i] = poison
		}
	}

	// Should be able to allocate three frames.
	pp, err := a.allocThree()
	if err != nil {
		return err
	}
	limit := uint32(a.NumPages()) << hostarch.PageShift
	for _, f := range pp {
		if uint32(f.PhysAddr()) >= limit {
			for _, g := range pp {
				a.Free(g)
			}
			return fmt.Errorf("allocated %v beyond the top of memory %#x", f, limit)
		}
	}

	// Temporarily steal the rest of the free frames.
	restore := a.stealFreeList()

	// Should be no free memory.
	if f, err := a.Alloc(); err == nil {
		restore()
		return fmt.Errorf("allocated %v from an empty free list", f)
	}

	// Free and re-allocate. The same three frames must come back.
	freed := make(map[Frame]bool, len(pp))
	for _, f := range pp {
		freed[f] = true
		a.Free(f)
	}
	pp, err = a.allocThree()
	if err != nil {
		restore()
		return fmt.Errorf("re-allocating freed frames: %w", err)
	}
	for _, f := range pp {
		if !freed[f] {
			restore()
			return fmt.Errorf("re-allocation returned %v, which was not freed", f)
		}
	}
	if f, err := a.Alloc(); err == nil {
		restore()
		return fmt.Errorf("allocated a fourth frame %v after freeing three", f)
	}

	// Give the free list back and free the frames we took.
	restore()
	for _, f := range pp {
		a.Free(f)
	}

	log.Infof("pgalloc: Check() succeeded")
	return nil
}

// allocThree allocates three frames and verifies that they are distinct.
func (a *Allocator) allocThree() ([3]Frame, error) {
	var pp [3]Frame
	for i := range pp {
		f, err := a.Alloc()
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				a.Free(pp[j])
			}
			return pp, fmt.Errorf("allocation %d of 3 failed: %w", i+1, err)
		}
		for _, g := range pp[:i] {
			if g == f {
				for j := i - 1; j >= 0; j-- {
					a.Free(pp[j])
				}
				return pp, fmt.Errorf("allocation %d of 3 returned %v twice", i+1, f)
			}
		}
		pp[i] = f
	}
	return pp, nil
}

// stealFreeList empties the free list. The returned function puts the stolen
// frames back behind any frames freed in the meantime.
func (a *Allocator) stealFreeList() (restore func()) {
	a.mu.Lock()
	stolen := a.freeHead
	a.freeHead = NoFrame
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.freeHead == NoFrame {
			a.freeHead = stolen
			return
		}
		tail := a.freeHead
		for a.frames[tail].next != NoFrame {
			tail = a.frames[tail].next
		}
		a.frames[tail].next = stolen
	}
}
