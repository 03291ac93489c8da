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
	"strings"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/pios/pios/cmd/util"
	"gvisor.dev/pios/pios/config"
)

// Boot implements subcommands.Command for the "boot" command.
type Boot struct {
	// timeout bounds how long the kernel runs. Zero means no limit.
	timeout time.Duration
}

// Name implements subcommands.Command.Name.
func (*Boot) Name() string {
	return "boot"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Boot) Synopsis() string {
	return "boot the kernel and run user programs"
}

// Usage implements subcommands.Command.Usage.
func (*Boot) Usage() string {
	return `boot [flags] [program...] - boot the kernel and run one environment per program.

Programs default to the --programs flag. The kernel stops when every
environment has exited.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Boot) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&b.timeout, "timeout", 0, "stop the kernel after this long (0 means run until all environments exit)")
}

// Execute implements subcommands.Command.Execute.
func (b *Boot) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	if f.NArg() > 0 {
		conf.Programs = strings.Join(f.Args(), ",")
	}
	if err := runKernel(ctx, conf, b.timeout); err != nil {
		return util.Errorf("boot failed: %v", err)
	}
	return subcommands.ExitSuccess
}
