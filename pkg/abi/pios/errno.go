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

// Errno is a PIOS error number. Syscalls return it negated.
type Errno uint32

// Error numbers.
const (
	E_UNSPECIFIED  Errno = 1 // Unspecified or unknown problem.
	E_BAD_ENV      Errno = 2 // Environment doesn't exist or otherwise cannot be used.
	E_INVAL        Errno = 3 // Invalid parameter.
	E_NO_MEM       Errno = 4 // Request failed due to memory shortage.
	E_NO_FREE_ENV  Errno = 5 // Attempt to create a new environment beyond the maximum allowed.
	E_FAULT        Errno = 6 // Memory fault.
	E_IPC_NOT_RECV Errno = 7 // Attempt to send to env that is not recving.
)

// Return returns the 32-bit syscall return word that reports e.
func (e Errno) Return() uintptr {
	return uintptr(uint32(-int32(e)))
}

// ErrnoFromReturn decodes a syscall return word. ok is false for success
// values.
func ErrnoFromReturn(rv uintptr) (e Errno, ok bool) {
	if v := int32(uint32(rv)); v < 0 && v >= -int32(E_IPC_NOT_RECV) {
		return Errno(-v), true
	}
	return 0, false
}
