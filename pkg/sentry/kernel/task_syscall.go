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
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/metric"
	"gvisor.dev/pios/pkg/sentry/arch"
)

var syscallCounter = metric.MustCreateNewUint64Metric("/kernel/syscalls", "Number of syscalls executed, by syscall.", metric.NewField("syscall", syscallMetricValues()))

func syscallMetricValues() []string {
	vals := make([]string, 0, pios.NSYSCALLS+1)
	for i := uintptr(0); i < pios.NSYSCALLS; i++ {
		vals = append(vals, pios.SyscallName(i))
	}
	return append(vals, "unknown")
}

// Syscall is the single entry point from user programs into the kernel. It
// saves the syscall number and arguments in the register snapshot, runs the
// handler, and returns the 32-bit result word: a non-negative value on
// success or a negated pios.Errno.
//
// Syscall does not return if the environment is destroyed, including when it
// was destroyed by another CPU before or during the call.
func (t *Task) Syscall(sysno, a1, a2, a3, a4, a5 uintptr) uintptr {
	t.checkDying()

	args := arch.SyscallArguments{{Value: a1}, {Value: a2}, {Value: a3}, {Value: a4}, {Value: a5}}
	ts := t.k.envs
	ts.mu.Lock()
	t.env.tf.SetSyscallArgs(sysno, args)
	ts.mu.Unlock()

	rv, ctrl := t.executeSyscall(sysno, args)
	rv = uintptr(uint32(rv))
	t.setReturn(rv)

	if ctrl == nil {
		return rv
	}
	switch ctrl.next {
	case actionYield:
		t.yield()
	case actionIPCRecv:
		t.yield()
		ts.mu.Lock()
		rv = uintptr(t.env.ipc.value)
		t.env.tf.SetReturn(rv)
		ts.mu.Unlock()
	case actionDestroySelf:
		t.exit()
	}
	return rv
}

// executeSyscall runs the handler for sysno.
func (t *Task) executeSyscall(sysno uintptr, args arch.SyscallArguments) (uintptr, *SyscallControl) {
	fn := t.k.syscalls.Lookup(sysno)
	if fn == nil {
		syscallCounter.Increment("unknown")
		log.Debugf("[%v] unknown syscall %d", t.id, sysno)
		return pios.E_INVAL.Return(), nil
	}
	syscallCounter.Increment(pios.SyscallName(sysno))

	stracer := t.k.syscalls.Stracer
	var straceCtx any
	if stracer != nil {
		straceCtx = stracer.SyscallEnter(t, sysno, args)
	}
	rv, ctrl, err := fn(t, args)
	if err != nil {
		rv = kernerr.ToErrno(err).Return()
	}
	if stracer != nil {
		stracer.SyscallExit(straceCtx, t, sysno, uintptr(uint32(rv)), err)
	}
	return rv, ctrl
}

func (t *Task) setReturn(rv uintptr) {
	ts := t.k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t.env.tf.SetReturn(rv)
}
