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

package kernerr

import (
	stderrors "errors"
	"fmt"
	"testing"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors"
)

type wrapped struct{ inner *errors.Error }

func (w wrapped) Error() string { return "wrapped: " + w.inner.Error() }

func TestErrorFromErrno(t *testing.T) {
	for _, tc := range []struct {
		errno pios.Errno
		want  *errors.Error
	}{
		{pios.E_BAD_ENV, EBADENV},
		{pios.E_INVAL, EINVAL},
		{pios.E_NO_MEM, ENOMEM},
		{pios.E_NO_FREE_ENV, ENOFREEENV},
		{pios.E_IPC_NOT_RECV, EIPCNOTRECV},
		{99, EUNSPECIFIED},
	} {
		tc := tc
		t.Run(fmt.Sprintf("errno%d", tc.errno), func(t *testing.T) {
			if got := ErrorFromErrno(tc.errno); got != tc.want {
				t.Errorf("ErrorFromErrno(%d) = %v, want %v", tc.errno, got, tc.want)
			}
		})
	}
}

func TestToErrno(t *testing.T) {
	if got := ToErrno(nil); got != 0 {
		t.Errorf("ToErrno(nil) = %d, want 0", got)
	}
	if got := ToErrno(EIPCNOTRECV); got != pios.E_IPC_NOT_RECV {
		t.Errorf("ToErrno(EIPCNOTRECV) = %d, want %d", got, pios.E_IPC_NOT_RECV)
	}
	if got := ToErrno(fmt.Errorf("plain")); got != pios.E_UNSPECIFIED {
		t.Errorf("ToErrno(plain) = %d, want %d", got, pios.E_UNSPECIFIED)
	}

	AddErrorUnwrapper(func(e error) (*errors.Error, bool) {
		if w, ok := e.(wrapped); ok {
			return w.inner, true
		}
		return nil, false
	})
	if !Equals(ENOMEM, wrapped{ENOMEM}) {
		t.Errorf("Equals(ENOMEM, wrapped{ENOMEM}) = false, want true")
	}
}

func TestReturnRoundTrip(t *testing.T) {
	for e := pios.E_UNSPECIFIED; e <= pios.E_IPC_NOT_RECV; e++ {
		got, ok := pios.ErrnoFromReturn(e.Return())
		if !ok || got != e {
			t.Errorf("ErrnoFromReturn(%d.Return()) = %d, %t", e, got, ok)
		}
	}
	if _, ok := pios.ErrnoFromReturn(0x1000); ok {
		t.Errorf("ErrnoFromReturn(0x1000) reported an error")
	}
}

func TestIsMatchesErrno(t *testing.T) {
	specific := errors.New(pios.E_INVAL, "dstva not page aligned")
	if !stderrors.Is(fmt.Errorf("mem_map: %w", specific), EINVAL) {
		t.Errorf("wrapped %v does not match EINVAL", specific)
	}
	if stderrors.Is(specific, EBADENV) {
		t.Errorf("%v matches EBADENV", specific)
	}
	if stderrors.Is(fmt.Errorf("plain"), EINVAL) {
		t.Errorf("plain error matches EINVAL")
	}
}
