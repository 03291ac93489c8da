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

//go:build linux
// +build linux

package console

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
	"gvisor.dev/pios/pkg/log"
	"gvisor.dev/pios/pkg/sync"
)

// Host is a Console backed by host file descriptors. Input is read without
// blocking; if the input is a terminal it is put in raw mode so that single
// keystrokes are delivered.
type Host struct {
	// in is retained so that fd stays open.
	in  *os.File
	fd  int
	out io.Writer

	mu sync.Mutex

	// state is the terminal state to restore on Close, or nil if the
	// input is not a terminal. state is protected by mu.
	state *term.State

	// wbuf holds the single output byte. wbuf is protected by mu.
	wbuf [1]byte
}

// NewHost returns a console reading from in and writing to out.
func NewHost(in *os.File, out io.Writer) (*Host, error) {
	fd := int(in.Fd())
	h := &Host{in: in, fd: fd, out: out}
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("setting console raw mode: %w", err)
		}
		h.state = state
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		h.Close()
		return nil, fmt.Errorf("setting console nonblocking: %w", err)
	}
	return h, nil
}

// PutChar implements Console.PutChar.
func (h *Host) PutChar(c byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wbuf[0] = c
	if _, err := h.out.Write(h.wbuf[:]); err != nil {
		log.Warningf("console write failed: %v", err)
	}
}

// GetChar implements Console.GetChar.
func (h *Host) GetChar() byte {
	var b [1]byte
	n, err := unix.Read(h.fd, b[:])
	if err != nil {
		if err != unix.EAGAIN && err != unix.EINTR {
			log.Debugf("console read failed: %v", err)
		}
		return 0
	}
	if n == 0 {
		return 0
	}
	return b[0]
}

// Close restores the terminal state.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return nil
	}
	err := term.Restore(h.fd, h.state)
	h.state = nil
	return err
}
