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

// Package config provides basic infrastructure to set configuration settings
// for pios. Each setting that can be changed from the command line must have
// a corresponding flag, and may also be set from a TOML file.
package config

import (
	"fmt"
	"strings"

	"gvisor.dev/pios/pkg/abi/pios"
	"gvisor.dev/pios/pkg/log"
)

// maxExtMemKB is the largest extended memory size the 16-bit NVRAM counter
// can report.
const maxExtMemKB = 0xffff

// Config holds the boot configuration.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name and a matching toml tag.
//  3. Register a new flag in flags.go, with same name and add a description.
//  4. Add any necessary validation into validate().
type Config struct {
	// ConfigFile is a TOML file with settings that apply before command line
	// flags.
	ConfigFile string `flag:"config" toml:"-"`

	// NumCPUs is the number of simulated CPUs.
	NumCPUs int `flag:"ncpu" toml:"ncpu"`

	// NumEnvs is the number of environment table slots.
	NumEnvs int `flag:"nenv" toml:"nenv"`

	// BaseMemKB is the size of base memory, below the I/O hole.
	BaseMemKB int `flag:"basemem" toml:"basemem"`

	// ExtMemKB is the size of extended memory, above 1MB.
	ExtMemKB int `flag:"extmem" toml:"extmem"`

	// KernelSizeKB is the size of the kernel image loaded at the start of
	// extended memory. Its pages are never allocated.
	KernelSizeKB int `flag:"kernel-size" toml:"kernel-size"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug"`

	// Strace indicates that syscalls should be traced to the log.
	Strace bool `flag:"strace" toml:"strace"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log" toml:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format" toml:"log-format"`

	// MetricsFile is where metrics are written when the kernel stops, if
	// not empty.
	MetricsFile string `flag:"metrics-file" toml:"metrics-file"`

	// Programs is a comma-separated list of the programs started at boot,
	// one environment each.
	Programs string `flag:"programs" toml:"programs"`

	// Console is the console device.
	Console ConsoleType `flag:"console" toml:"console"`
}

// ProgramList returns the programs to start at boot.
func (c *Config) ProgramList() []string {
	var names []string
	for _, name := range strings.Split(c.Programs, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (c *Config) validate() error {
	switch {
	case c.NumCPUs < 1:
		return fmt.Errorf("ncpu must be at least 1, got %d", c.NumCPUs)
	case c.NumEnvs < 1 || c.NumEnvs > pios.NENV:
		return fmt.Errorf("nenv must be in [1, %d], got %d", pios.NENV, c.NumEnvs)
	case c.BaseMemKB < 0 || c.BaseMemKB > pios.MEM_IO/1024:
		return fmt.Errorf("basemem must be in [0, %d], got %d", pios.MEM_IO/1024, c.BaseMemKB)
	case c.ExtMemKB < 0 || c.ExtMemKB > maxExtMemKB:
		return fmt.Errorf("extmem must be in [0, %d], got %d", maxExtMemKB, c.ExtMemKB)
	case c.KernelSizeKB < 0 || c.KernelSizeKB > c.ExtMemKB:
		return fmt.Errorf("kernel-size must be in [0, extmem=%d], got %d", c.ExtMemKB, c.KernelSizeKB)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", c.LogFormat)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config.CPUs: %d, Envs: %d", c.NumCPUs, c.NumEnvs)
	log.Infof("Config.Memory: base %dKB, extended %dKB, kernel %dKB", c.BaseMemKB, c.ExtMemKB, c.KernelSizeKB)
	log.Infof("Config.Programs: %v", c.ProgramList())
	log.Infof("Config.Console: %v", c.Console)
	log.Infof("Config.Debug: %t, Strace: %t", c.Debug, c.Strace)
	if c.ConfigFile != "" {
		log.Infof("Config.ConfigFile: %s", c.ConfigFile)
	}
}

// ConsoleType tells which console device to use.
type ConsoleType int

const (
	// ConsoleHost uses the process's standard input and output.
	ConsoleHost ConsoleType = iota

	// ConsoleNone discards output and never has input.
	ConsoleNone
)

func consoleTypePtr(v ConsoleType) *ConsoleType {
	return &v
}

// Set implements flag.Value.
func (c *ConsoleType) Set(v string) error {
	switch v {
	case "host":
		*c = ConsoleHost
	case "none":
		*c = ConsoleNone
	default:
		return fmt.Errorf("invalid console type %q", v)
	}
	return nil
}

// Get implements flag.Getter.
func (c *ConsoleType) Get() any {
	return *c
}

// String implements flag.Value.
func (c ConsoleType) String() string {
	switch c {
	case ConsoleHost:
		return "host"
	case ConsoleNone:
		return "none"
	}
	panic(fmt.Sprintf("Invalid console type %d", c))
}

// UnmarshalText implements encoding.TextUnmarshaler, for config files.
func (c *ConsoleType) UnmarshalText(text []byte) error {
	return c.Set(string(text))
}
