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

package ulib

import (
	"bytes"
	"fmt"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/hostarch"
	"gvisor.dev/pios/pkg/sentry/kernel"
)

// SharedVA is where pingpong maps the page it passes to its child.
const SharedVA hostarch.Addr = 0x00a00000

// pingpongRounds is the counter value at which pingpong stops.
const pingpongRounds = 10

// Program names.
const (
	Idle          = "idle"
	Hello         = "hello"
	Pingpong      = "pingpong"
	PingpongChild = "pingpong.child"
)

// Install loads the stock programs into im.
func Install(im *kernel.Image) {
	im.Register(Idle, idle)
	im.Register(Hello, hello)
	child := im.Register(PingpongChild, pingpongChild)
	im.Register(Pingpong, func(t *kernel.Task) {
		pingpong(t, child)
	})
}

// idle yields forever.
func idle(t *kernel.Task) {
	for {
		Yield(t)
	}
}

func hello(t *kernel.Task) {
	Cputs(t, "hello, world\n")
	Cputs(t, fmt.Sprintf("i am environment %v\n", Getenvid(t)))
}

// pingpong forks a child running childEntry, hands it a page holding a
// greeting, and then bounces a counter with it until the counter reaches
// pingpongRounds.
func pingpong(t *kernel.Task, childEntry hostarch.Addr) {
	who, err := Fork(t, childEntry)
	if err != nil {
		Cputs(t, fmt.Sprintf("fork: %v\n", err))
		return
	}
	if err := MemAlloc(t, 0, SharedVA, pios.PTE_P|pios.PTE_U|pios.PTE_W); err != nil {
		Cputs(t, fmt.Sprintf("mem_alloc: %v\n", err))
		return
	}
	t.WriteUser(SharedVA, append([]byte(fmt.Sprintf("greetings from %v", Getenvid(t))), 0))

	Cputs(t, fmt.Sprintf("send 0 from %v to %v\n", Getenvid(t), who))
	if err := IPCSend(t, who, 0, SharedVA, pios.PTE_P|pios.PTE_U|pios.PTE_W); err != nil {
		Cputs(t, fmt.Sprintf("ipc_send: %v\n", err))
		return
	}
	bounce(t)
}

func pingpongChild(t *kernel.Task) {
	m := IPCRecv(t, SharedVA)
	if m.Perm == 0 {
		Cputs(t, fmt.Sprintf("%v got no page from %v\n", Getenvid(t), m.From))
		return
	}
	buf := make([]byte, 64)
	t.ReadUser(SharedVA, buf)
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	Cputs(t, fmt.Sprintf("%v got page %q from %v\n", Getenvid(t), buf, m.From))
	if !pass(t, m) {
		return
	}
	bounce(t)
}

// bounce receives the counter, prints it, and sends it back incremented,
// until either side reaches pingpongRounds.
func bounce(t *kernel.Task) {
	for {
		if !pass(t, IPCRecv(t, 0)) {
			return
		}
	}
}

// pass prints m and sends the incremented counter back to its sender. It
// returns false once the exchange is over.
func pass(t *kernel.Task, m Message) bool {
	Cputs(t, fmt.Sprintf("%v got %d from %v\n", Getenvid(t), m.Value, m.From))
	if m.Value == pingpongRounds {
		return false
	}
	v := m.Value + 1
	if err := IPCSend(t, m.From, v, 0, 0); err != nil {
		Cputs(t, fmt.Sprintf("ipc_send: %v\n", err))
		return false
	}
	return v != pingpongRounds
}
