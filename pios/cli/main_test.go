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

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"gvisor.dev/pios/pkg/log"
)

func TestForEachCmd(t *testing.T) {
	names := map[string]string{}
	forEachCmd(func(c subcommands.Command, group string) {
		if _, ok := names[c.Name()]; ok {
			t.Errorf("command %q registered twice", c.Name())
		}
		names[c.Name()] = group
	})
	for _, want := range []string{"help", "flags", "commands", "boot", "pingpong", "memcheck", "syscalls"} {
		if _, ok := names[want]; !ok {
			t.Errorf("command %q not registered", want)
		}
	}
}

func TestNewEmitter(t *testing.T) {
	for _, tc := range []struct {
		format string
		want   string
	}{
		{format: "text", want: "I"},
		{format: "json", want: "{"},
	} {
		tc := tc
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			e := newEmitter(tc.format, &buf)
			l := &log.BasicLogger{Level: log.Info, Emitter: e}
			l.Infof("hello %d", 1)
			if !strings.HasPrefix(buf.String(), tc.want) || !strings.Contains(buf.String(), "hello 1") {
				t.Errorf("%s emitter wrote %q", tc.format, buf.String())
			}
		})
	}
}
