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
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/hostarch"
)

func TestImage(t *testing.T) {
	im := NewImage()
	var ran string
	b := im.Register("b", func(*Task) { ran = "b" })
	a := im.Register("a", func(*Task) { ran = "a" })

	if want := hostarch.Addr(pios.UTEXT + 0x20); b != want {
		t.Errorf("first entry = %v, want %v", b, want)
	}
	if a != b+hostarch.PageSize {
		t.Errorf("second entry = %v, want %v", a, b+hostarch.PageSize)
	}
	if got, ok := im.Entry("a"); !ok || got != a {
		t.Errorf("Entry(a) = (%v, %v), want %v", got, ok, a)
	}
	if _, ok := im.Entry("c"); ok {
		t.Errorf("Entry(c) found")
	}
	prog, name, ok := im.Lookup(a)
	if !ok || name != "a" {
		t.Fatalf("Lookup(%v) = (%q, %v), want a", a, name, ok)
	}
	prog(nil)
	if ran != "a" {
		t.Errorf("Lookup(%v) returned program %q", a, ran)
	}
	if _, _, ok := im.Lookup(a + 4); ok {
		t.Errorf("Lookup(%v) found a program", a+4)
	}
	if diff := cmp.Diff([]string{"a", "b"}, im.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	mustPanic(t, "duplicate Register", func() { im.Register("a", func(*Task) {}) })
}
