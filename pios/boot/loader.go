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

// Package boot loads a PIOS kernel: it sizes physical memory, checks the page
// allocator, installs the user programs and runs the initial environments.
package boot

import (
	"context"
	"fmt"
	"io"
	"os"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/cleanup"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/metric"
	"gvisor.dev/pios/pkg/sentry/console"
	"gvisor.dev/pios/pkg/sentry/kernel"
	"gvisor.dev/pios/pkg/sentry/pgalloc"
	"gvisor.dev/pios/pkg/sentry/strace"
	syscalls "gvisor.dev/pios/pkg/sentry/syscalls/pios"
	"gvisor.dev/pios/pkg/sentry/ulib"
	"gvisor.dev/pios/pios/config"
)

// Args are the arguments for New().
type Args struct {
	// Conf is the boot configuration.
	Conf *config.Config

	// Console, if not nil, is used instead of the console selected by
	// Conf.
	Console console.Console

	// Stdin and Stdout back the host console. They default to the
	// process's standard input and output.
	Stdin  *os.File
	Stdout io.Writer
}

// Loader keeps state needed to start the kernel.
type Loader struct {
	conf *config.Config
	k    *kernel.Kernel

	// closeConsole releases the console device.
	closeConsole func() error
}

// New initializes a new kernel loader configured by args.
func New(args Args) (*Loader, error) {
	conf := args.Conf
	alloc, err := NewAllocator(conf)
	if err != nil {
		return nil, err
	}

	l := &Loader{
		conf:         conf,
		closeConsole: func() error { return nil },
	}
	cons := args.Console
	if cons == nil {
		cons, err = l.openConsole(args)
		if err != nil {
			return nil, err
		}
	}
	cu := cleanup.Make(func() { l.closeConsole() })
	defer cu.Clean()

	im := kernel.NewImage()
	ulib.Install(im)
	k, err := kernel.New(kernel.InitKernelArgs{
		Allocator: alloc,
		NumCPUs:   conf.NumCPUs,
		NumEnvs:   conf.NumEnvs,
		Syscalls:  syscalls.Table,
		Image:     im,
		Console:   cons,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kernel: %w", err)
	}
	l.k = k
	if conf.Strace {
		strace.Enable(syscalls.Table)
	}

	cu.Release()
	return l, nil
}

// NewAllocator creates the page allocator for the memory sizes in conf and
// runs its self-check.
func NewAllocator(conf *config.Config) (*pgalloc.Allocator, error) {
	alloc, err := pgalloc.New(pgalloc.BootMemory{
		BaseBytes:     uint32(conf.BaseMemKB) * 1024,
		ExtendedBytes: uint32(conf.ExtMemKB) * 1024,
	}, hostarch.Addr(pios.MEM_EXT+conf.KernelSizeKB*1024))
	if err != nil {
		return nil, fmt.Errorf("initializing page allocator: %w", err)
	}
	if err := alloc.Check(); err != nil {
		return nil, fmt.Errorf("page allocator check: %w", err)
	}
	log.Infof("Page allocator check succeeded, %d pages free", alloc.NumFree())
	return alloc, nil
}

func (l *Loader) openConsole(args Args) (console.Console, error) {
	switch l.conf.Console {
	case config.ConsoleNone:
		return console.Null{}, nil
	case config.ConsoleHost:
		in, out := args.Stdin, args.Stdout
		if in == nil {
			in = os.Stdin
		}
		if out == nil {
			out = os.Stdout
		}
		h, err := console.NewHost(in, out)
		if err != nil {
			return nil, fmt.Errorf("opening host console: %w", err)
		}
		l.closeConsole = h.Close
		return h, nil
	}
	return nil, fmt.Errorf("unknown console type %v", l.conf.Console)
}

// Kernel returns the kernel.
func (l *Loader) Kernel() *kernel.Kernel {
	return l.k
}

// Start creates one environment for each program named in the
// configuration.
func (l *Loader) Start() error {
	names := l.conf.ProgramList()
	if len(names) == 0 {
		return fmt.Errorf("no programs to run")
	}
	for _, name := range names {
		entry, ok := l.k.Image().Entry(name)
		if !ok {
			return fmt.Errorf("unknown program %q, available programs: %v", name, l.k.Image().Names())
		}
		e, err := l.k.CreateEnv(entry)
		if err != nil {
			return fmt.Errorf("creating environment for %q: %w", name, err)
		}
		log.Infof("[%v] started %s", e.ID(), name)
	}
	return nil
}

// Run runs the kernel until ctx is done or every environment has exited,
// then destroys whatever is left and writes the metrics file, if one is
// configured.
func (l *Loader) Run(ctx context.Context) error {
	err := l.k.Run(ctx)
	if live := l.k.Envs().Live(); live > 0 {
		log.Infof("Stopping with %d live environments", live)
	}
	l.k.Shutdown()
	log.Infof("Kernel stopped, %d pages free", l.k.Allocator().NumFree())
	if err != nil {
		return err
	}
	return l.writeMetrics()
}

func (l *Loader) writeMetrics() error {
	if l.conf.MetricsFile == "" {
		return nil
	}
	f, err := os.Create(l.conf.MetricsFile)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	if err := metric.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Destroy turns off syscall tracing and releases the console.
func (l *Loader) Destroy() {
	if l.conf.Strace {
		strace.Disable(syscalls.Table)
	}
	if err := l.closeConsole(); err != nil {
		log.Warningf("Error closing console: %v", err)
	}
}
