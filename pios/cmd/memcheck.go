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

	"github.com/google/subcommands"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pios/boot"
	"gvisor.dev/pios/pios/cmd/util"
	"gvisor.dev/pios/pios/config"
)

// MemCheck implements subcommands.Command for the "memcheck" command.
type MemCheck struct{}

// Name implements subcommands.Command.Name.
func (*MemCheck) Name() string {
	return "memcheck"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*MemCheck) Synopsis() string {
	return "initialize physical memory and run the page allocator self-check"
}

// Usage implements subcommands.Command.Usage.
func (*MemCheck) Usage() string {
	return `memcheck - size physical memory from the memory flags and check the page allocator.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*MemCheck) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*MemCheck) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	alloc, err := boot.NewAllocator(conf)
	if err != nil {
		return util.Errorf("%v", err)
	}
	util.Infof("Physical memory: %d pages, %d free (%dK), free memory starts at %v", alloc.NumPages(), alloc.NumFree(), alloc.NumFree()*hostarch.PageSize/1024, alloc.FreeMem())
	util.Infof("Page allocator check succeeded")
	return subcommands.ExitSuccess
}
