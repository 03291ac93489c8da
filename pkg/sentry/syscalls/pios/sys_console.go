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
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/console"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// MaxCputsLen is the longest string cputs prints.
const MaxCputsLen = 4096

var errNoInput = errors.New("no console input")

// Cputs implements syscall cputs.
func Cputs(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	var s string
	t.TrustedAccess(func() {
		s = t.CopyInString(addr, MaxCputsLen)
	})
	console.WriteString(t.Kernel().Console(), s)
	return 0, nil, nil
}

// Cgetc implements syscall cgetc. It waits until a character is available,
// unlike the console's own GetChar. If the kernel stops running first, it
// returns 0.
func Cgetc(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	cons := t.Kernel().Console()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 0

	var c byte
	op := func() error {
		if c = cons.GetChar(); c == 0 {
			return errNoInput
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, t.Kernel().Context())); err != nil {
		return 0, nil, nil
	}
	return uintptr(c), nil, nil
}
