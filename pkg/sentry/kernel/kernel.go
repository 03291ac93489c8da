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

// Package kernel implements the PIOS environment abstraction: the
// environment table, the CPUs that dispatch environments, the syscall entry
// point and the IPC rendezvous.
//
// Environments execute as goroutines. At most one goroutine per simulated CPU
// runs at a time: a CPU hands itself to an environment by resuming its
// goroutine and waits until the environment gives the CPU back by yielding,
// blocking in ipc_recv or exiting.
//
// Lock order (outermost locks must be taken first):
//
// EnvTable.mu
//   pgtable.AddressSpace.mu
//     pgalloc.Allocator.mu
package kernel

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/cleanup"
	"gvisor.dev/pios/pkg/errors/kernerr"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/sentry/console"
	"gvisor.dev/pios/pkg/sentry/pgalloc"
	"gvisor.dev/pios/pkg/sync"
)

// InitKernelArgs holds arguments to New.
type InitKernelArgs struct {
	// Allocator is the physical page allocator.
	Allocator *pgalloc.Allocator

	// NumCPUs is the number of simulated CPUs.
	NumCPUs int

	// NumEnvs is the number of environment table slots, at most
	// pios.NENV.
	NumEnvs int

	// Syscalls is the syscall table. It must have been initialized.
	Syscalls *SyscallTable

	// Image holds the user programs environments can run.
	Image *Image

	// Console is the console device.
	Console console.Console
}

// Kernel is a PIOS kernel instance.
type Kernel struct {
	// Unless otherwise specified, fields are immutable after New.

	alloc    *pgalloc.Allocator
	envs     *EnvTable
	syscalls *SyscallTable
	image    *Image
	console  console.Console
	cpus     []*CPU

	mu sync.Mutex

	// runCtx is the context passed to the active Run, or
	// context.Background if Run is not executing. runCtx is protected by
	// mu.
	runCtx context.Context

	// ipcLog reports failed page transfers without letting a looping
	// sender flood the log.
	ipcLog log.Logger
}

// New returns a kernel with an empty environment table.
func New(args InitKernelArgs) (*Kernel, error) {
	switch {
	case args.Allocator == nil:
		return nil, fmt.Errorf("no page allocator")
	case args.Syscalls == nil:
		return nil, fmt.Errorf("no syscall table")
	case args.Image == nil:
		return nil, fmt.Errorf("no program image")
	case args.Console == nil:
		return nil, fmt.Errorf("no console")
	case args.NumCPUs < 1:
		return nil, fmt.Errorf("invalid number of CPUs %d", args.NumCPUs)
	case args.NumEnvs < 1 || args.NumEnvs > pios.NENV:
		return nil, fmt.Errorf("invalid number of environments %d, must be in [1, %d]", args.NumEnvs, pios.NENV)
	}
	k := &Kernel{
		alloc:    args.Allocator,
		envs:     newEnvTable(args.Allocator, args.NumEnvs),
		syscalls: args.Syscalls,
		image:    args.Image,
		console:  args.Console,
		runCtx:   context.Background(),
		ipcLog:   log.BasicRateLimitedLogger(time.Second),
	}
	for i := 0; i < args.NumCPUs; i++ {
		k.cpus = append(k.cpus, newCPU(k, i))
	}
	return k, nil
}

// Allocator returns the physical page allocator.
func (k *Kernel) Allocator() *pgalloc.Allocator {
	return k.alloc
}

// Envs returns the environment table.
func (k *Kernel) Envs() *EnvTable {
	return k.envs
}

// Console returns the console device.
func (k *Kernel) Console() console.Console {
	return k.console
}

// Image returns the program image.
func (k *Kernel) Image() *Image {
	return k.image
}

// NumCPUs returns the number of simulated CPUs.
func (k *Kernel) NumCPUs() int {
	return len(k.cpus)
}

// Context returns the context of the active Run. Kernel code that waits on
// something outside the kernel should give up when it is done.
func (k *Kernel) Context() context.Context {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.runCtx
}

// CreateEnv creates a runnable environment with no parent that starts
// executing the program at entry, with a zeroed stack page mapped just below
// USTACKTOP.
func (k *Kernel) CreateEnv(entry hostarch.Addr) (*Env, error) {
	if _, _, ok := k.image.Lookup(entry); !ok {
		return nil, fmt.Errorf("no program at %v: %w", entry, kernerr.EINVAL)
	}

	ts := k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.allocLocked(0)
	if err != nil {
		return nil, err
	}
	cu := cleanup.Make(func() { ts.destroyLocked(e, nil) })
	defer cu.Clean()

	f, err := k.alloc.Alloc()
	if err != nil {
		return nil, err
	}
	k.alloc.Zero(f)
	if err := e.as.Insert(f, pios.USTACKTOP-hostarch.PageSize, pios.PTE_P|pios.PTE_U|pios.PTE_W); err != nil {
		k.alloc.Free(f)
		return nil, err
	}

	e.tf.EIP = uint32(entry)
	ts.setStatusLocked(e, pios.ENV_RUNNABLE)
	cu.Release()
	log.Debugf("[%v] created at %v", e.id, entry)
	return e, nil
}

// EnvCreate creates a NOT_RUNNABLE child of parent whose register set is a
// copy of the parent's, except that the syscall return register is 0.
func (k *Kernel) EnvCreate(parent *Env) (*Env, error) {
	ts := k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	e, err := ts.allocLocked(parent.id)
	if err != nil {
		return nil, err
	}
	e.tf = parent.tf
	e.tf.SetReturn(0)
	return e, nil
}

// Run runs environments on every CPU until ctx is done or no live
// environment remains. It returns with every CPU idle and every started
// environment parked.
func (k *Kernel) Run(ctx context.Context) error {
	log.Infof("Running %d environments on %d CPUs", k.envs.Live(), len(k.cpus))
	stop := context.AfterFunc(ctx, k.envs.wake)
	defer stop()
	k.mu.Lock()
	k.runCtx = ctx
	k.mu.Unlock()
	defer func() {
		k.mu.Lock()
		k.runCtx = context.Background()
		k.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range k.cpus {
		c := c
		g.Go(func() error {
			return c.run(gctx)
		})
	}
	return g.Wait()
}

// Shutdown destroys every remaining environment.
//
// Preconditions: Run is not executing.
func (k *Kernel) Shutdown() {
	ts := k.envs
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for i := range ts.envs {
		if e := &ts.envs[i]; e.status != pios.ENV_FREE {
			log.Debugf("[%v] destroyed at shutdown", e.id)
			ts.destroyLocked(e, nil)
		}
	}
}
