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
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type testWriter struct {
	lines []string
	fail  bool
	limit int
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	if w.limit > 0 && len(w.lines) >= w.limit {
		return len(bytes), nil
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if len(tw.lines) != len(expected) {
		t.Fatalf("Writer should have logged %d lines, got: %v, expected: %v", len(expected), tw.lines, expected)
	}
	for i, l := range tw.lines {
		if l != expected[i] {
			t.Fatalf("line %d doesn't match, got: %v, expected: %v", i, l, expected[i])
		}
	}
}

func TestCaller(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{Writer: &Writer{Next: tw}}
	bl := &BasicLogger{
		Emitter: e,
		Level:   Debug,
	}
	bl.Debugf("testing...\n") // Just for file:line.
	bl.Infof("testing...\n")  // Just for file:line.
	bl.Warningf("testing...\n")
	for _, line := range tw.lines {
		if !strings.Contains(line, "log_test.go") {
			t.Errorf("expected log_test.go, got %q", line)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: &Writer{Next: tw},
		Level:   Info,
	}
	bl.Debugf("hidden\n")
	bl.Infof("shown\n")
	bl.Warningf("shown\n")
	if got := len(tw.lines); got != 2 {
		t.Errorf("got %d lines, want 2: %v", got, tw.lines)
	}
	bl.SetLevel(Debug)
	if !bl.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = false after SetLevel(Debug)")
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: &Writer{Next: tw},
		Level:   Info,
	}
	rl := RateLimitedLogger(bl, time.Hour)
	for i := 0; i < 10; i++ {
		rl.Warningf("repeated %d\n", i)
	}
	if got := len(tw.lines); got != 1 {
		t.Errorf("rate limited logger emitted %d lines, want 1: %v", got, tw.lines)
	}

	// Let the next message through; it reports the nine dropped ones.
	rl.(*suppressingLogger).limit = rate.NewLimiter(rate.Inf, 1)
	rl.Warningf("repeated %d\n", 10)
	if got := len(tw.lines); got != 2 {
		t.Fatalf("rate limited logger emitted %d lines, want 2: %v", got, tw.lines)
	}
	if want := "repeated 10 (9 similar messages suppressed)\n"; tw.lines[1] != want {
		t.Errorf("second line = %q, want %q", tw.lines[1], want)
	}

	// Messages below the logger's level are not counted as dropped.
	rl.Debugf("hidden\n")
	rl.Warningf("after\n")
	if want := "after\n"; tw.lines[len(tw.lines)-1] != want {
		t.Errorf("last line = %q, want %q", tw.lines[len(tw.lines)-1], want)
	}
}

func TestMultiEmitter(t *testing.T) {
	tw1, tw2 := &testWriter{}, &testWriter{}
	m := MultiEmitter{&Writer{Next: tw1}, &Writer{Next: tw2}}
	bl := &BasicLogger{Emitter: &m, Level: Info}
	bl.Infof("both\n")
	if len(tw1.lines) != 1 || len(tw2.lines) != 1 {
		t.Errorf("got %v and %v, want one line each", tw1.lines, tw2.lines)
	}
}
