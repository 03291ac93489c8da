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

// Package errors defines the error type syscall handlers return. Each error
// carries the errno that is stored in the caller's return register.
package errors

import (
	"gvisor.dev/pios/pkg/abi/pios"
)

// Error is a syscall errno with a message for the kernel log.
type Error struct {
	errno   pios.Errno
	message string
}

// New creates a new *Error.
func New(err pios.Errno, message string) *Error {
	return &Error{
		errno:   err,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Errno returns the errno reported to the environment.
func (e *Error) Errno() pios.Errno { return e.errno }

// Is reports whether target is an *Error with the same errno, so that an
// error built with a more specific message still matches the shared value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t != nil && e != nil && t.errno == e.errno
}
