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
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/pgtable"
)

// EnvID identifies an environment. The low LOG2NENV bits hold the table slot
// and the remaining bits a generation number that changes each time the slot
// is reused, so a stale EnvID never names the slot's next occupant. The sign
// bit is always clear, and 0 is never a valid EnvID: syscalls use 0 to mean
// "the calling environment".
type EnvID int32

// Slot returns the table slot encoded in id.
func (id EnvID) Slot() int {
	return int(id) & (pios.NENV - 1)
}

// Valid returns true if id could name an environment.
func (id EnvID) Valid() bool {
	return id > 0
}

// String implements fmt.Stringer.
func (id EnvID) String() string {
	return fmt.Sprintf("%08x", uint32(id))
}

// nextEnvID returns the EnvID for the next occupant of slot, whose previous
// occupant was old.
func nextEnvID(old EnvID, slot int) EnvID {
	gen := (old + pios.NENV) &^ (pios.NENV - 1)
	if gen <= 0 {
		gen = pios.NENV
	}
	return gen | EnvID(slot)
}

// ipcState is the receive side of the IPC rendezvous.
type ipcState struct {
	// receiving is true while the environment is blocked in ipc_recv and
	// no send has completed.
	receiving bool

	// dstva is where the environment wants a transferred page mapped, or
	// 0 if it does not want one.
	dstva hostarch.Addr

	// from is the sender of the last delivered message.
	from EnvID

	// value is the scalar of the last delivered message.
	value uint32

	// perm holds the permissions of the page delivered with the last
	// message, or 0 if no page was transferred.
	perm uint32
}

// Env is an environment: an address space, a saved register set and IPC
// state.
//
// All fields are protected by EnvTable.mu.
type Env struct {
	// slot is the index of the Env in the table. It is immutable.
	slot int

	id     EnvID
	parent EnvID
	status pios.EnvStatus

	// as is the address space, owned exclusively by the environment and
	// released when it is destroyed.
	as *pgtable.AddressSpace

	// tf is the register snapshot.
	tf arch.TrapFrame

	ipc ipcState

	pgfaultEntry hostarch.Addr
	xstackTop    hostarch.Addr

	// task is the goroutine-side execution context. It is nil until the
	// environment is first dispatched.
	task *Task

	// cpu is the CPU running the environment, or nil if it is not
	// running.
	cpu *CPU
}

// ID returns e's EnvID.
//
// Preconditions: e's slot may not be freed or reallocated concurrently.
func (e *Env) ID() EnvID {
	return e.id
}

// EnvInfo is a snapshot of an environment's state.
type EnvInfo struct {
	ID           EnvID
	Parent       EnvID
	Status       pios.EnvStatus
	TrapFrame    arch.TrapFrame
	Receiving    bool
	DstVA        hostarch.Addr
	From         EnvID
	Value        uint32
	Perm         uint32
	PgfaultEntry hostarch.Addr
	XStackTop    hostarch.Addr
	Running      bool
	Mappings     int
}

// infoLocked returns a snapshot of e.
//
// Preconditions: EnvTable.mu must be locked.
func (e *Env) infoLocked() EnvInfo {
	info := EnvInfo{
		ID:           e.id,
		Parent:       e.parent,
		Status:       e.status,
		TrapFrame:    e.tf,
		Receiving:    e.ipc.receiving,
		DstVA:        e.ipc.dstva,
		From:         e.ipc.from,
		Value:        e.ipc.value,
		Perm:         e.ipc.perm,
		PgfaultEntry: e.pgfaultEntry,
		XStackTop:    e.xstackTop,
		Running:      e.cpu != nil,
	}
	if e.as != nil {
		info.Mappings = e.as.Len()
	}
	return info
}
