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
	"bytes"
	"errors"
	"fmt"

	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/sentry/pgtable"
)

// pageFault is the panic value used to unwind a faulting trusted access.
type pageFault struct {
	err *pgtable.FaultError
}

// TrustedAccess runs fn, which dereferences user-supplied pointers with the
// kernel's privilege. A page fault inside fn destroys the calling
// environment instead of crashing the kernel; in that case TrustedAccess
// does not return.
func (t *Task) TrustedAccess(fn func()) {
	t.faultMode = faultKill
	defer func() {
		t.faultMode = faultNone
		r := recover()
		if r == nil {
			return
		}
		pf, ok := r.(pageFault)
		if !ok {
			panic(r)
		}
		log.Infof("[%v] %v in trusted access, destroying environment", t.id, pf.err)
		t.exit()
	}()
	fn()
}

// kernelFault handles a fault taken by kernel code on a user address.
func (t *Task) kernelFault(err error) {
	var fe *pgtable.FaultError
	if !errors.As(err, &fe) {
		panic(fmt.Sprintf("[%v] unexpected user memory error: %v", t.id, err))
	}
	if t.faultMode != faultKill {
		panic(fmt.Sprintf("kernel %v on behalf of [%v]", fe, t.id))
	}
	panic(pageFault{fe})
}

// CopyInBytes copies len(dst) bytes from the user address addr.
//
// Preconditions: The caller must be in TrustedAccess.
func (t *Task) CopyInBytes(addr hostarch.Addr, dst []byte) {
	if _, err := t.MemoryManager().CopyIn(addr, dst); err != nil {
		t.kernelFault(err)
	}
}

// CopyOutBytes copies src to the user address addr.
//
// Preconditions: The caller must be in TrustedAccess.
func (t *Task) CopyOutBytes(addr hostarch.Addr, src []byte) {
	if _, err := t.MemoryManager().CopyOut(addr, src); err != nil {
		t.kernelFault(err)
	}
}

// CopyInString copies a NUL-terminated string of at most maxLen bytes from
// the user address addr. The string is truncated at maxLen if no NUL is
// found.
//
// Preconditions: The caller must be in TrustedAccess.
func (t *Task) CopyInString(addr hostarch.Addr, maxLen int) string {
	var buf []byte
	for len(buf) < maxLen {
		start, ok := addr.AddLength(uint32(len(buf)))
		if !ok {
			t.kernelFault(&pgtable.FaultError{Addr: addr})
		}
		n := hostarch.PageSize - int(start.PageOffset())
		if n > maxLen-len(buf) {
			n = maxLen - len(buf)
		}
		chunk := make([]byte, n)
		t.CopyInBytes(start, chunk)
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			return string(append(buf, chunk[:i]...))
		}
		buf = append(buf, chunk...)
	}
	return string(buf)
}

// ReadUser performs a user-mode read of len(dst) bytes at addr. A fault
// destroys the environment; ReadUser then does not return.
func (t *Task) ReadUser(addr hostarch.Addr, dst []byte) {
	if _, err := t.MemoryManager().CopyIn(addr, dst); err != nil {
		t.userFault(err)
	}
}

// WriteUser performs a user-mode write of src at addr. A fault destroys the
// environment; WriteUser then does not return.
func (t *Task) WriteUser(addr hostarch.Addr, src []byte) {
	if _, err := t.MemoryManager().CopyOut(addr, src); err != nil {
		t.userFault(err)
	}
}

// userFault handles a fault taken by the user program. There is no upcall to
// a user-level handler: the environment is destroyed.
func (t *Task) userFault(err error) {
	log.Infof("[%v] user fault: %v", t.id, err)
	t.exit()
}
