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

package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/pios/pkg/sentry/ulib"
	"gvisor.dev/pios/pios/cmd/util"
	"gvisor.dev/pios/pios/config"
)

// Pingpong implements subcommands.Command for the "pingpong" command.
type Pingpong struct {
	timeout time.Duration
}

// Name implements subcommands.Command.Name.
func (*Pingpong) Name() string {
	return "pingpong"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Pingpong) Synopsis() string {
	return "run the IPC ping-pong demo"
}

// Usage implements subcommands.Command.Usage.
func (*Pingpong) Usage() string {
	return `pingpong [flags] - fork a child and bounce a counter between parent and child over IPC.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (p *Pingpong) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&p.timeout, "timeout", 30*time.Second, "stop the kernel after this long")
}

// Execute implements subcommands.Command.Execute.
func (p *Pingpong) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	conf.Programs = ulib.Pingpong
	if err := runKernel(ctx, conf, p.timeout); err != nil {
		return util.Errorf("pingpong failed: %v", err)
	}
	return subcommands.ExitSuccess
}
