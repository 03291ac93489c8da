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
	"sort"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/sync"
)

// Program is the code of a user program. It runs on the task goroutine and
// may interact with the kernel only through t.Syscall and user-mode memory
// accesses. Returning from a program destroys its environment.
type Program func(t *Task)

// imageEntry is a program loaded in an Image.
type imageEntry struct {
	name string
	prog Program
}

// programAlign is the spacing between program entry points.
const programAlign = hostarch.PageSize

// Image is the set of user programs an environment can execute, keyed by
// entry point. It stands in for the text segment: an environment begins
// executing the program whose entry point is in its saved EIP.
type Image struct {
	mu sync.Mutex

	// entries maps entry points to programs. entries is protected by mu.
	entries map[hostarch.Addr]imageEntry

	// names maps program names to entry points. names is protected by mu.
	names map[string]hostarch.Addr

	// next is the entry point of the next program. next is protected by
	// mu.
	next hostarch.Addr
}

// NewImage returns an empty image.
func NewImage() *Image {
	return &Image{
		entries: make(map[hostarch.Addr]imageEntry),
		names:   make(map[string]hostarch.Addr),
		next:    pios.UTEXT + 0x20,
	}
}

// Register loads prog under name and returns its entry point. Registering a
// name twice panics.
func (im *Image) Register(name string, prog Program) hostarch.Addr {
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, ok := im.names[name]; ok {
		panic(fmt.Sprintf("program %q registered twice", name))
	}
	entry := im.next
	im.next += programAlign
	im.entries[entry] = imageEntry{name: name, prog: prog}
	im.names[name] = entry
	return entry
}

// Entry returns the entry point of the program called name.
func (im *Image) Entry(name string) (hostarch.Addr, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	entry, ok := im.names[name]
	return entry, ok
}

// Lookup returns the program whose entry point is entry.
func (im *Image) Lookup(entry hostarch.Addr) (Program, string, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	e, ok := im.entries[entry]
	return e.prog, e.name, ok
}

// Names returns the names of all programs, sorted.
func (im *Image) Names() []string {
	im.mu.Lock()
	defer im.mu.Unlock()
	names := make([]string, 0, len(im.names))
	for name := range im.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
