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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Tests that Level can marshal/unmarshal properly.
func TestLevelMarshal(t *testing.T) {
	lvs := []Level{Warning, Info, Debug}
	for _, lv := range lvs {
		bs, err := lv.MarshalJSON()
		if err != nil {
			t.Errorf("error marshaling %v: %v", lv, err)
		}
		var lv2 Level
		if err := lv2.UnmarshalJSON(bs); err != nil {
			t.Errorf("error unmarshaling %v: %v", bs, err)
		}
		if lv != lv2 {
			t.Errorf("marshal/unmarshal level got %v wanted %v", lv2, lv)
		}
	}
}

// Test that integers can be properly unmarshaled.
func TestUnmarshalFromInt(t *testing.T) {
	tcs := []struct {
		i    int
		want Level
	}{
		{0, Warning},
		{1, Info},
		{2, Debug},
	}

	for _, tc := range tcs {
		j, err := json.Marshal(tc.i)
		if err != nil {
			t.Errorf("error marshaling %v: %v", tc.i, err)
		}
		var lv Level
		if err := lv.UnmarshalJSON(j); err != nil {
			t.Errorf("error unmarshaling %v: %v", j, err)
		}
		if lv != tc.want {
			t.Errorf("marshal/unmarshal %v got %v want %v", tc.i, lv, tc.want)
		}
	}
}

func TestJSONEmitter(t *testing.T) {
	for _, tc := range []struct {
		format string
		args   []any
		want   jsonLog
	}{
		{
			format: "Running %d environments",
			args:   []any{2},
			want:   jsonLog{Level: Info, Msg: "Running 2 environments"},
		},
		{
			format: "[%08x] exiting gracefully\n",
			args:   []any{0x1001},
			want:   jsonLog{Level: Info, Env: "00001001", Msg: "exiting gracefully"},
		},
		{
			format: "[%08x] CPU %d: starting %s",
			args:   []any{0x400, 1, "hello"},
			want:   jsonLog{Level: Info, Env: "00000400", CPU: newInt(1), Msg: "starting hello"},
		},
		{
			format: "CPU %d: halting",
			args:   []any{0},
			want:   jsonLog{Level: Info, CPU: newInt(0), Msg: "halting"},
		},
		{
			format: "[not an env] kept",
			want:   jsonLog{Level: Info, Msg: "[not an env] kept"},
		},
	} {
		tw := &testWriter{}
		bl := &BasicLogger{
			Emitter: JSONEmitter{&Writer{Next: tw}},
			Level:   Info,
		}
		bl.Infof(tc.format, tc.args...)
		if len(tw.lines) != 1 {
			t.Fatalf("%q: got %d writes, want 1: %q", tc.format, len(tw.lines), tw.lines)
		}
		var got jsonLog
		if err := json.Unmarshal([]byte(tw.lines[0]), &got); err != nil {
			t.Fatalf("output %q is not json: %v", tw.lines[0], err)
		}
		if !strings.Contains(got.Source, ".go:") {
			t.Errorf("%q: Source = %q, want file:line", tc.format, got.Source)
		}
		got.Time, got.Source = time.Time{}, ""
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%q: mismatch (-want +got):\n%s", tc.format, diff)
		}
	}
}

func newInt(i int) *int {
	return &i
}
