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
	"context"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/pgalloc"
	"gvisor.dev/pios/pkg/sentry/pgtable"
	"gvisor.dev/pios/pkg/sync"
)

// EnvTable is the fixed-size table of environments.
//
// Lock order: EnvTable.mu is taken before pgtable.AddressSpace.mu.
type EnvTable struct {
	alloc *pgalloc.Allocator

	mu sync.Mutex

	// cond is broadcast whenever an environment may have become
	// dispatchable and whenever the number of live environments changes.
	// cond.L is &mu.
	cond *sync.Cond

	// envs is the table. Its length is immutable.
	envs []Env

	// live is the number of slots that are not free. live is protected by
	// mu.
	live int
}

func newEnvTable(alloc *pgalloc.Allocator, nenv int) *EnvTable {
	ts := &EnvTable{
		alloc: alloc,
		envs:  make([]Env, nenv),
	}
	ts.cond = sync.NewCond(&ts.mu)
	for i := range ts.envs {
		ts.envs[i].slot = i
	}
	return ts
}

// Len returns the number of slots.
func (ts *EnvTable) Len() int {
	return len(ts.envs)
}

// Live returns the number of environments that are not free.
func (ts *EnvTable) Live() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.live
}

// Info returns a snapshot of the environment named by id.
func (ts *EnvTable) Info(id EnvID) (EnvInfo, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.lookupLocked(id, nil, false)
	if err != nil {
		return EnvInfo{}, false
	}
	return e.infoLocked(), true
}

// Infos returns a snapshot of every live environment in slot order.
func (ts *EnvTable) Infos() []EnvInfo {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var infos []EnvInfo
	for i := range ts.envs {
		if e := &ts.envs[i]; e.status != pios.ENV_FREE {
			infos = append(infos, e.infoLocked())
		}
	}
	return infos
}

// Lookup resolves id on behalf of requester, which may be nil for requests
// made by the kernel itself. An id of 0 names the requester.
//
// Lookup returns kernerr.EBADENV if the slot is free, if id is stale, or if
// checkPerm is set and the environment is neither the requester nor one of
// its descendants.
func (ts *EnvTable) Lookup(id EnvID, requester *Env, checkPerm bool) (*Env, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lookupLocked(id, requester, checkPerm)
}

// Preconditions: ts.mu must be locked.
func (ts *EnvTable) lookupLocked(id EnvID, requester *Env, checkPerm bool) (*Env, error) {
	if id == 0 {
		if requester == nil {
			return nil, kernerr.EBADENV
		}
		return requester, nil
	}
	if !id.Valid() || id.Slot() >= len(ts.envs) {
		return nil, kernerr.EBADENV
	}
	e := &ts.envs[id.Slot()]
	if e.status == pios.ENV_FREE || e.id != id {
		return nil, kernerr.EBADENV
	}
	if checkPerm && e != requester && !ts.isDescendantLocked(e, requester) {
		return nil, kernerr.EBADENV
	}
	return e, nil
}

// isDescendantLocked returns true if anc appears on e's chain of live
// parents.
//
// Preconditions: ts.mu must be locked.
func (ts *EnvTable) isDescendantLocked(e, anc *Env) bool {
	if anc == nil {
		return false
	}
	p := e.parent
	// A chain longer than the table must contain a cycle.
	for i := 0; i < len(ts.envs) && p.Valid(); i++ {
		if p == anc.id {
			return true
		}
		if p.Slot() >= len(ts.envs) {
			return false
		}
		pe := &ts.envs[p.Slot()]
		if pe.status == pios.ENV_FREE || pe.id != p {
			return false
		}
		p = pe.parent
	}
	return false
}

// Alloc takes the lowest free slot for a new environment whose parent is
// parent (0 for environments created by the kernel). The new environment is
// NOT_RUNNABLE, has an empty address space and a zeroed register set.
//
// Alloc returns kernerr.ENOFREEENV if every slot is in use and
// kernerr.ENOMEM if no frame is free for the address space.
func (ts *EnvTable) Alloc(parent EnvID) (*Env, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.allocLocked(parent)
}

// Preconditions: ts.mu must be locked.
func (ts *EnvTable) allocLocked(parent EnvID) (*Env, error) {
	var e *Env
	for i := range ts.envs {
		if ts.envs[i].status == pios.ENV_FREE {
			e = &ts.envs[i]
			break
		}
	}
	if e == nil {
		return nil, kernerr.ENOFREEENV
	}
	as, err := pgtable.New(ts.alloc)
	if err != nil {
		return nil, err
	}

	e.id = nextEnvID(e.id, e.slot)
	e.parent = parent
	e.status = pios.ENV_NOT_RUNNABLE
	e.as = as
	e.tf = arch.TrapFrame{
		ES:     arch.UserDS,
		DS:     arch.UserDS,
		SS:     arch.UserDS,
		CS:     arch.UserCS,
		ESP:    pios.USTACKTOP,
		EFLAGS: pios.FL_IF,
	}
	e.ipc = ipcState{}
	e.pgfaultEntry = 0
	e.xstackTop = 0
	e.task = nil
	e.cpu = nil
	ts.live++
	return e, nil
}

// Destroy destroys e on behalf of cur, the environment making the request
// (nil for the kernel). If e is running on a CPU and is not cur, it is marked
// DYING and the teardown completes the next time it enters the kernel.
//
// It returns true if e was torn down immediately.
func (ts *EnvTable) Destroy(e *Env, cur *Env) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.destroyLocked(e, cur)
}

// Preconditions: ts.mu must be locked.
func (ts *EnvTable) destroyLocked(e *Env, cur *Env) bool {
	switch {
	case e.status == pios.ENV_FREE:
		return false
	case e.cpu != nil && e != cur:
		e.status = pios.ENV_DYING
		return false
	}
	t := e.task
	ts.freeLocked(e)
	if t != nil && e != cur {
		// The goroutine is parked in yield and resume is empty.
		t.resume <- nil
	}
	return true
}

// freeLocked releases e's address space and returns its slot to the table.
//
// Preconditions: ts.mu must be locked.
func (ts *EnvTable) freeLocked(e *Env) {
	e.status = pios.ENV_DYING
	e.as.Release()
	e.as = nil
	e.ipc = ipcState{}
	e.task = nil
	e.cpu = nil
	e.status = pios.ENV_FREE
	ts.live--
	ts.cond.Broadcast()
}

// setStatusLocked changes e's scheduling status. A dying environment stays
// dying until its task frees it.
//
// Preconditions: ts.mu must be locked.
func (ts *EnvTable) setStatusLocked(e *Env, status pios.EnvStatus) {
	if e.status == pios.ENV_DYING {
		return
	}
	e.status = status
	if status == pios.ENV_RUNNABLE {
		ts.cond.Broadcast()
	}
}

// pick blocks until some environment is dispatchable by c, claims it for c
// and returns it. Environments are chosen round-robin, starting after the
// slot c last dispatched. pick returns nil when ctx is done or when no live
// environment remains.
func (ts *EnvTable) pick(ctx context.Context, c *CPU) (*Env, *Task, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	n := len(ts.envs)
	for {
		if ctx.Err() != nil || ts.live == 0 {
			return nil, nil, false
		}
		for i := 1; i <= n; i++ {
			slot := (c.last + i) % n
			e := &ts.envs[slot]
			if e.status != pios.ENV_RUNNABLE || e.cpu != nil {
				continue
			}
			e.cpu = c
			c.last = slot
			started := e.task != nil
			if !started {
				e.task = newTask(c.k, e)
			}
			return e, e.task, started
		}
		ts.cond.Wait()
	}
}

// wake wakes every CPU waiting in pick.
func (ts *EnvTable) wake() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.cond.Broadcast()
}
