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

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
)

// IPCSend delivers value, and optionally the page mapped at srcva, to the
// environment named by id. Any environment may send to any other.
//
// IPCSend never blocks. It returns kernerr.EIPCNOTRECV if the target is not
// blocked in IPCRecv. A page is transferred only if srcva is not 0 and the
// receiver asked for one; otherwise just the value is delivered and the
// receiver sees a permission of 0. If the page transfer fails, nothing is
// delivered and the receiver keeps waiting.
func (t *Task) IPCSend(id EnvID, value uint32, srcva hostarch.Addr, perm uint32) error {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.lookupLocked(id, t.env, false)
	if err != nil {
		return err
	}
	if e.status == pios.ENV_DYING {
		return kernerr.EBADENV
	}
	if !e.ipc.receiving {
		return kernerr.EIPCNOTRECV
	}

	if srcva != 0 && e.ipc.dstva != 0 {
		if srcva >= pios.UTOP || !pios.ValidPerm(perm) {
			return kernerr.EINVAL
		}
		m, ok := t.env.as.Get(srcva)
		if !ok {
			t.k.ipcLog.Warningf("[%v] page lookup %v failed in ipc send", t.id, srcva)
			return kernerr.EINVAL
		}
		defer t.k.alloc.DecRef(m.Frame)
		if perm&pios.PTE_W != 0 && !m.Writable() {
			return kernerr.EINVAL
		}
		if err := e.as.Insert(m.Frame, e.ipc.dstva, perm); err != nil {
			return err
		}
		e.ipc.perm = perm
	} else {
		e.ipc.perm = 0
	}

	e.ipc.receiving = false
	e.ipc.from = t.env.id
	e.ipc.value = value
	ts.setStatusLocked(e, pios.ENV_RUNNABLE)
	return nil
}

// IPCRecv marks the task's environment as waiting for a message, to be
// delivered with a page mapped at dstva if dstva is not 0. Addresses at or
// above UTOP are treated as 0. The caller must then give up the CPU; see
// CtrlIPCRecv.
//
// An environment may have only one outstanding receive. A second one is a
// kernel invariant violation and panics. A dying environment is left as is
// and torn down when it yields.
func (t *Task) IPCRecv(dstva hostarch.Addr) {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e := t.env
	if e.ipc.receiving {
		msg := fmt.Sprintf("[%v] already receiving", t.id)
		log.Warningf("%s", msg)
		panic(msg)
	}
	if e.status == pios.ENV_DYING {
		return
	}
	if dstva >= pios.UTOP {
		dstva = 0
	}
	e.ipc.receiving = true
	e.ipc.dstva = dstva
	ts.setStatusLocked(e, pios.ENV_NOT_RUNNABLE)
}
