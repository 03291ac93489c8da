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
	"context"

	"gvisor.dev/pios/pkg/log"
)

// CPU is a simulated processor. It runs one environment at a time.
type CPU struct {
	k  *Kernel
	id int

	// last is the table slot most recently dispatched. last is protected
	// by EnvTable.mu.
	last int

	// yielded receives a value each time the running environment gives
	// the CPU back.
	yielded chan struct{}
}

func newCPU(k *Kernel, id int) *CPU {
	return &CPU{
		k:       k,
		id:      id,
		last:    -1,
		yielded: make(chan struct{}),
	}
}

// ID returns the CPU number.
func (c *CPU) ID() int {
	return c.id
}

// run is the scheduler loop.
func (c *CPU) run(ctx context.Context) error {
	log.Debugf("CPU %d: starting", c.id)
	for {
		e, t, started := c.k.envs.pick(ctx, c)
		if e == nil {
			log.Debugf("CPU %d: halting", c.id)
			return nil
		}
		if started {
			t.resume <- c
		} else {
			go t.run(c)
		}
		<-c.yielded
	}
}
