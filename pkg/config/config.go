// Copyright 2024 The tinykernel Authors.
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

// Package config loads boot-time configuration from a TOML file, the way
// the teacher's runsc/config loads an OCI bundle's flags, but trimmed to
// the handful of knobs a scheduling core actually has: table size, CPU
// count, the initial policy, and logging.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/tinykernel/procsched/pkg/sentry/kernel"
)

// Config is the boot-time configuration, unmarshaled directly from TOML
// field names (spec.md §1's NPROC/NCPU constants plus the initial Policy
// record from spec.md §3).
type Config struct {
	NPROC        int    `toml:"nproc"`
	NCPU         int    `toml:"ncpu"`
	Algorithm    string `toml:"algorithm"`     // "sjf" or "cfs"
	IsPreemptive bool   `toml:"is_preemptive"`
	A            int64  `toml:"a"`
	LogLevel     string `toml:"log_level"`
}

// Default returns the configuration a freshly booted teaching kernel uses
// when no file is supplied: 64 process slots, a single CPU, non-preemptive
// SJF with a 50% averaging factor, matching original_source/kernel/param.h's
// NPROC and proc.c's SCHED_POLICY_DEFAULT initializer.
func Default() Config {
	return Config{
		NPROC:        64,
		NCPU:         1,
		Algorithm:    "sjf",
		IsPreemptive: false,
		A:            50,
		LogLevel:     "info",
	}
}

// Load reads and validates a TOML configuration file at path.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.NPROC <= 0 {
		return fmt.Errorf("config: nproc must be positive, got %d", c.NPROC)
	}
	if c.NCPU <= 0 {
		return fmt.Errorf("config: ncpu must be positive, got %d", c.NCPU)
	}
	if _, err := c.algorithm(); err != nil {
		return err
	}
	return nil
}

func (c Config) algorithm() (kernel.Algorithm, error) {
	switch c.Algorithm {
	case "sjf", "":
		return kernel.SJF, nil
	case "cfs":
		return kernel.CFS, nil
	default:
		return 0, fmt.Errorf("config: unknown algorithm %q, want \"sjf\" or \"cfs\"", c.Algorithm)
	}
}

// KernelConfig translates the loaded configuration into a kernel.Config,
// wiring in the given collaborators (the host kernel's address space, trap
// frame, and context-switch implementations). A nil vm or trap falls back
// to the no-fail defaults kernel.NewKernel itself supplies; a nil switcher
// leaves the dispatcher without one until Dispatcher.SetSwitcher is called.
func (c Config) KernelConfig(vm kernel.VMAllocator, trap kernel.TrapFrameAllocator, switcher kernel.ContextSwitcher) kernel.Config {
	algo, _ := c.algorithm() // already validated by Load.
	return kernel.Config{
		NPROC:        c.NPROC,
		NCPU:         c.NCPU,
		Algorithm:    algo,
		IsPreemptive: c.IsPreemptive,
		A:            c.A,
		VM:           vm,
		Trap:         trap,
		Switcher:     switcher,
	}
}
