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

// Package kernerr contains the kernel's syscall error codes exported as
// error interface pointers. This allows for fast comparison and return
// operations.
package kernerr

import (
	stderrors "errors"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors"
)

// The syscall error taxonomy. All of these are recoverable and are returned
// to the calling environment.
var (
	noError *errors.Error = nil

	EUNSPECIFIED = errors.New(pios.E_UNSPECIFIED, "unspecified error")
	EBADENV      = errors.New(pios.E_BAD_ENV, "bad environment")
	EINVAL       = errors.New(pios.E_INVAL, "invalid parameter")
	ENOMEM       = errors.New(pios.E_NO_MEM, "out of memory")
	ENOFREEENV   = errors.New(pios.E_NO_FREE_ENV, "out of environments")
	EFAULT       = errors.New(pios.E_FAULT, "segmentation fault")
	EIPCNOTRECV  = errors.New(pios.E_IPC_NOT_RECV, "env is not recving")
)

var errnoMap = map[pios.Errno]*errors.Error{
	0:                   noError,
	pios.E_UNSPECIFIED:  EUNSPECIFIED,
	pios.E_BAD_ENV:      EBADENV,
	pios.E_INVAL:        EINVAL,
	pios.E_NO_MEM:       ENOMEM,
	pios.E_NO_FREE_ENV:  ENOFREEENV,
	pios.E_FAULT:        EFAULT,
	pios.E_IPC_NOT_RECV: EIPCNOTRECV,
}

// ErrorFromErrno returns the *errors.Error for errno e, or EUNSPECIFIED if e
// is not part of the taxonomy.
func ErrorFromErrno(e pios.Errno) *errors.Error {
	if err, ok := errnoMap[e]; ok {
		return err
	}
	return EUNSPECIFIED
}

// ToErrno translates err into an errno. Errors that are not part of the
// taxonomy translate to E_UNSPECIFIED.
func ToErrno(err error) pios.Errno {
	if err == nil {
		return 0
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Errno()
	}
	for _, unwrap := range errorUnwrappers {
		if e, ok := unwrap(err); ok {
			return e.Errno()
		}
	}
	return pios.E_UNSPECIFIED
}

// errorUnwrappers is an array of unwrap functions to extract typed errors.
var errorUnwrappers = []func(error) (*errors.Error, bool){}

// AddErrorUnwrapper registers an unwrap method that can extract a concrete
// error from a package's own error type.
func AddErrorUnwrapper(unwrap func(e error) (*errors.Error, bool)) {
	errorUnwrappers = append(errorUnwrappers, unwrap)
}

// Equals checks if a kernerr error is equal to another error, looking
// through wrapped errors.
func Equals(e *errors.Error, err error) bool {
	if err == nil {
		return e == noError
	}
	return ToErrno(err) == e.Errno()
}
