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

// Package cmd holds implementations of the pios commands.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"
	"gvisor.dev/pios/pios/boot"
	"gvisor.dev/pios/pios/config"
)

// runKernel boots a kernel for conf and runs it until every environment
// exits, the process is signaled, or timeout (if non-zero) expires.
func runKernel(ctx context.Context, conf *config.Config, timeout time.Duration) error {
	l, err := boot.New(boot.Args{Conf: conf})
	if err != nil {
		return err
	}
	defer l.Destroy()
	if err := l.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, unix.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return l.Run(ctx)
}
