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
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/pgtable"
)

// LookupEnv resolves id on behalf of the task. See EnvTable.Lookup.
func (t *Task) LookupEnv(id EnvID, checkPerm bool) (*Env, error) {
	return t.k.envs.Lookup(id, t.env, checkPerm)
}

// AddressSpaceOf returns the address space of the environment named by id,
// which must be the task's own environment or a descendant.
//
// The address space outlives the environment: once the environment is
// destroyed, Insert on the returned address space fails with
// kernerr.EBADENV.
func (t *Task) AddressSpaceOf(id EnvID) (*pgtable.AddressSpace, error) {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.lookupLocked(id, t.env, true)
	if err != nil {
		return nil, err
	}
	return e.as, nil
}

// EnvAlloc creates a child of the task's environment. The child is
// NOT_RUNNABLE and, when it is eventually run, sees 0 returned from the
// syscall that created it.
func (t *Task) EnvAlloc() (EnvID, error) {
	e, err := t.k.EnvCreate(t.env)
	if err != nil {
		return 0, err
	}
	return e.id, nil
}

// DestroyEnv destroys the environment named by id, which must be the task's
// own environment or a descendant. It returns true if id named the task's own
// environment, in which case the caller must not return to user code.
func (t *Task) DestroyEnv(id EnvID) (bool, error) {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.lookupLocked(id, t.env, true)
	if err != nil {
		return false, err
	}
	if e == t.env {
		log.Infof("[%v] exiting gracefully", t.id)
		return true, nil
	}
	log.Infof("[%v] destroying %v", t.id, e.id)
	ts.destroyLocked(e, t.env)
	return false, nil
}

// SetEnvStatus sets the status of the environment named by id to RUNNABLE or
// NOT_RUNNABLE.
func (t *Task) SetEnvStatus(id EnvID, status pios.EnvStatus) error {
	if status != pios.ENV_RUNNABLE && status != pios.ENV_NOT_RUNNABLE {
		return kernerr.EINVAL
	}
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.lookupLocked(id, t.env, true)
	if err != nil {
		return err
	}
	if e.status == pios.ENV_DYING {
		return kernerr.EBADENV
	}
	ts.setStatusLocked(e, status)
	return nil
}

// SetEnvTrapFrame replaces the register snapshot of the environment named by
// id.
func (t *Task) SetEnvTrapFrame(id EnvID, tf arch.TrapFrame) error {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.lookupLocked(id, t.env, true)
	if err != nil {
		return err
	}
	e.tf = tf
	return nil
}

// SetPgfaultEntry records the user page fault handler and exception stack of
// the environment named by id.
func (t *Task) SetPgfaultEntry(id EnvID, entry, xstackTop hostarch.Addr) error {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.lookupLocked(id, t.env, true)
	if err != nil {
		return err
	}
	e.pgfaultEntry = entry
	e.xstackTop = xstackTop
	return nil
}
