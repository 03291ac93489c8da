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

package console

import "testing"

func TestBuffer(t *testing.T) {
	var b Buffer
	if c := b.GetChar(); c != 0 {
		t.Errorf("GetChar on empty buffer = %q, want 0", c)
	}
	b.Feed("hi")
	if c := b.GetChar(); c != 'h' {
		t.Errorf("GetChar = %q, want 'h'", c)
	}
	if c := b.GetChar(); c != 'i' {
		t.Errorf("GetChar = %q, want 'i'", c)
	}
	if c := b.GetChar(); c != 0 {
		t.Errorf("GetChar after draining = %q, want 0", c)
	}
	WriteString(&b, "hello\n")
	if got := b.String(); got != "hello\n" {
		t.Errorf("String() = %q, want %q", got, "hello\n")
	}
}

func TestNull(t *testing.T) {
	var c Console = Null{}
	WriteString(c, "dropped")
	if got := c.GetChar(); got != 0 {
		t.Errorf("GetChar = %q, want 0", got)
	}
}
