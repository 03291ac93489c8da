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
	"runtime"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
)

// run is the task goroutine. It starts on c.
func (t *Task) run(c *CPU) {
	t.cpu = c

	ts := t.k.envs
	ts.mu.Lock()
	entry := hostarch.Addr(t.env.tf.EIP)
	ts.mu.Unlock()

	prog, name, ok := t.k.image.Lookup(entry)
	if !ok {
		log.Warningf("[%v] no program at %v", t.id, entry)
		t.exit()
	}
	log.Debugf("[%v] CPU %d: starting %s", t.id, c.id, name)
	t.checkDying()
	prog(t)
	log.Infof("[%v] exiting gracefully", t.id)
	t.exit()
}

// yield gives the CPU back and parks the task until it is dispatched again.
// The caller must already have set the environment's status.
//
// If the environment is destroyed before or while parked, yield does not
// return.
func (t *Task) yield() {
	ts := t.k.envs
	ts.mu.Lock()
	if t.env.status == pios.ENV_DYING {
		ts.mu.Unlock()
		log.Debugf("[%v] destroyed before yielding", t.id)
		t.exit()
	}
	t.env.cpu = nil
	ts.cond.Broadcast()
	ts.mu.Unlock()

	t.cpu.yielded <- struct{}{}
	c := <-t.resume
	if c == nil {
		log.Debugf("[%v] destroyed while parked", t.id)
		runtime.Goexit()
	}
	t.cpu = c
	t.checkDying()
}

// checkDying completes the teardown of an environment destroyed by another
// CPU while it was running. If the environment is dying, checkDying does not
// return.
func (t *Task) checkDying() {
	if t.dying() {
		log.Debugf("[%v] finishing teardown", t.id)
		t.exit()
	}
}

// exit destroys the task's environment, gives the CPU back and terminates the
// task goroutine. exit does not return.
func (t *Task) exit() {
	ts := t.k.envs
	ts.mu.Lock()
	if t.env.task == t {
		ts.freeLocked(t.env)
	}
	ts.mu.Unlock()

	t.cpu.yielded <- struct{}{}
	runtime.Goexit()
}
