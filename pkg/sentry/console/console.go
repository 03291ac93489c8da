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

// Package console provides the byte-level console device used by the
// cputs and cgetc system calls.
package console

import (
	"bytes"

	"gvisor.dev/pios/pkg/sync"
)

// Console is a character device.
type Console interface {
	// PutChar writes c to the console.
	PutChar(c byte)

	// GetChar returns the next input character, or 0 if none is
	// available. It never blocks.
	GetChar() byte
}

// WriteString writes every byte of s to c.
func WriteString(c Console, s string) {
	for i := 0; i < len(s); i++ {
		c.PutChar(s[i])
	}
}

// Buffer is an in-memory Console. Output accumulates in the buffer and input
// is fed with Feed. The zero value is an empty console.
type Buffer struct {
	mu  sync.Mutex
	in  []byte
	out bytes.Buffer
}

// PutChar implements Console.PutChar.
func (b *Buffer) PutChar(c byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out.WriteByte(c)
}

// GetChar implements Console.GetChar.
func (b *Buffer) GetChar() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.in) == 0 {
		return 0
	}
	c := b.in[0]
	b.in = b.in[1:]
	return c
}

// Feed queues s as console input.
func (b *Buffer) Feed(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.in = append(b.in, s...)
}

// String returns everything written to the console so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out.String()
}

// Null is a Console that discards output and never has input.
type Null struct{}

// PutChar implements Console.PutChar.
func (Null) PutChar(byte) {}

// GetChar implements Console.GetChar.
func (Null) GetChar() byte {
	return 0
}
