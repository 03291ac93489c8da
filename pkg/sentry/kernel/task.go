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
	"gvisor.dev/pios/pkg/sentry/arch"
	"gvisor.dev/pios/pkg/sentry/pgtable"
)

// faultMode says what happens when kernel code touching user memory on
// behalf of a task faults.
type faultMode int

const (
	// faultNone treats the fault as a kernel bug.
	faultNone faultMode = iota

	// faultKill destroys the faulting environment.
	faultKill
)

// Task is the execution context of one environment incarnation: the
// goroutine that runs its program and enters the kernel through Syscall.
//
// Unless noted otherwise, Task fields are owned by the task goroutine.
type Task struct {
	k *Kernel

	// env is the environment the task runs. It is immutable. Once the task
	// has exited the slot may be reused, so env must not be touched after
	// exit.
	env *Env

	// id is env's EnvID when the task was created. It is immutable.
	id EnvID

	// resume carries the CPU the task is next dispatched on, or nil if the
	// environment was destroyed while parked. It has a buffer of one so
	// that the sender never waits for the task to park.
	resume chan *CPU

	// cpu is the CPU the task is running on.
	cpu *CPU

	faultMode faultMode
}

func newTask(k *Kernel, e *Env) *Task {
	return &Task{
		k:      k,
		env:    e,
		id:     e.id,
		resume: make(chan *CPU, 1),
	}
}

// Kernel returns the kernel the task runs in.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// Env returns the task's environment.
func (t *Task) Env() *Env {
	return t.env
}

// EnvID returns the task's environment ID.
func (t *Task) EnvID() EnvID {
	return t.id
}

// CPU returns the CPU the task is running on.
func (t *Task) CPU() *CPU {
	return t.cpu
}

// Regs returns a copy of the task's register snapshot.
func (t *Task) Regs() arch.TrapFrame {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return t.env.tf
}

// Info returns a snapshot of the task's environment, as a user program
// would see it through the read-only environment array.
func (t *Task) Info() EnvInfo {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return t.env.infoLocked()
}

// MemoryManager returns the task's address space.
func (t *Task) MemoryManager() *pgtable.AddressSpace {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return t.env.as
}

// dying returns true if another environment has destroyed the task's
// environment while it was running.
func (t *Task) dying() bool {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return t.env.status == pios.ENV_DYING
}
