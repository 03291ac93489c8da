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

package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
	"gvisor.dev/pios/pkg/abi/pios"
	syscalls "gvisor.dev/pios/pkg/sentry/syscalls/pios"
	"gvisor.dev/pios/pios/config"
)

func testConfig() *config.Config {
	return &config.Config{
		NumCPUs:      2,
		NumEnvs:      16,
		BaseMemKB:    640,
		ExtMemKB:     4096,
		KernelSizeKB: 256,
		LogFormat:    "text",
		Programs:     "hello",
		Console:      config.ConsoleNone,
	}
}

func execute(t *testing.T, c subcommands.Command, conf *config.Config, argv ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse(argv); err != nil {
		t.Fatalf("parsing %v: %v", argv, err)
	}
	return c.Execute(context.Background(), f, conf)
}

func TestBoot(t *testing.T) {
	for _, tc := range []struct {
		name string
		argv []string
		want subcommands.ExitStatus
	}{
		{name: "default", want: subcommands.ExitSuccess},
		{name: "args", argv: []string{"hello", "pingpong"}, want: subcommands.ExitSuccess},
		{name: "timeout", argv: []string{"--timeout=20ms", "idle"}, want: subcommands.ExitSuccess},
		{name: "unknown", argv: []string{"nosuchprogram"}, want: subcommands.ExitFailure},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := execute(t, new(Boot), testConfig(), tc.argv...); got != tc.want {
				t.Errorf("boot %v = %v, want %v", tc.argv, got, tc.want)
			}
		})
	}
}

func TestPingpong(t *testing.T) {
	conf := testConfig()
	if got := execute(t, new(Pingpong), conf); got != subcommands.ExitSuccess {
		t.Errorf("pingpong = %v, want %v", got, subcommands.ExitSuccess)
	}
	if got := execute(t, new(Pingpong), conf, "extra"); got != subcommands.ExitUsageError {
		t.Errorf("pingpong extra = %v, want %v", got, subcommands.ExitUsageError)
	}
}

func TestMemCheck(t *testing.T) {
	conf := testConfig()
	if got := execute(t, new(MemCheck), conf); got != subcommands.ExitSuccess {
		t.Errorf("memcheck = %v, want %v", got, subcommands.ExitSuccess)
	}

	conf.KernelSizeKB = conf.ExtMemKB
	if got := execute(t, new(MemCheck), conf); got != subcommands.ExitFailure {
		t.Errorf("memcheck with no free memory = %v, want %v", got, subcommands.ExitFailure)
	}
}

func TestSyscallDocs(t *testing.T) {
	docs := syscallDocs(syscalls.Table)
	if len(docs) != len(syscalls.Table.Table) {
		t.Fatalf("got %d docs, want %d", len(docs), len(syscalls.Table.Table))
	}
	for i, d := range docs {
		if i > 0 && docs[i-1].Num >= d.Num {
			t.Errorf("docs not sorted at %d: %v", i, docs)
		}
		if want := pios.SyscallName(d.Num); d.Name != want {
			t.Errorf("syscall %d name = %q, want %q", d.Num, d.Name, want)
		}
	}
}

func TestSyscallOutputs(t *testing.T) {
	docs := []SyscallDoc{{Num: 0, Name: "cputs"}, {Num: 13, Name: "ipc_recv"}}

	var buf bytes.Buffer
	if err := outputTable(&buf, docs); err != nil {
		t.Fatalf("outputTable: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wantLines := []string{"NUM  NAME", "0    cputs", "13   ipc_recv"}
	if diff := cmp.Diff(wantLines, lines); diff != "" {
		t.Errorf("table output mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := outputJSON(&buf, docs); err != nil {
		t.Fatalf("outputJSON: %v", err)
	}
	var gotDocs []SyscallDoc
	if err := json.Unmarshal(buf.Bytes(), &gotDocs); err != nil {
		t.Fatalf("json output %q: %v", buf.String(), err)
	}
	if diff := cmp.Diff(docs, gotDocs); diff != "" {
		t.Errorf("json output mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := outputCSV(&buf, docs); err != nil {
		t.Fatalf("outputCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv output: %v", err)
	}
	wantRecords := [][]string{{"Num", "Name"}, {"0", "cputs"}, {"13", "ipc_recv"}}
	if diff := cmp.Diff(wantRecords, records); diff != "" {
		t.Errorf("csv output mismatch (-want +got):\n%s", diff)
	}
}

func TestSyscallsBadFormat(t *testing.T) {
	if got := execute(t, new(Syscalls), testConfig(), "-o=yaml"); got != subcommands.ExitFailure {
		t.Errorf("syscalls -o=yaml = %v, want %v", got, subcommands.ExitFailure)
	}
}
