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

// Package cli is the main entrypoint for schedctl.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/tinykernel/procsched/internal/boot"
	"github.com/tinykernel/procsched/internal/cmd"
	"github.com/tinykernel/procsched/pkg/config"
	"github.com/tinykernel/procsched/pkg/log"
	"github.com/tinykernel/procsched/pkg/sentry/kernel/kerneltest"
)

var (
	configPath = flag.String("config", "", "path to a TOML configuration file; defaults built in if empty")
	logLevel   = flag.String("log-level", "", "overrides the configured log level: debug, info, warning, fatal")
)

// Main is schedctl's entrypoint: load configuration, boot a kernel, run its
// scheduler loops in the background, then dispatch to whichever subcommand
// the user asked for.
func Main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(new(cmd.Chsched), "")
	subcommands.Register(new(cmd.Psdump), "")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// boot.New needs a Kernel before a ContextSwitcher can exist (the
	// demo switcher in kerneltest.Switcher holds a *Kernel reference of
	// its own, so it can run Fork/Exit/Wait/Kill on a script's behalf).
	// It's wired in via SetSwitcher once the Kernel is up; a CLI
	// invocation has no real user programs to run, only the
	// administrative surface (chsched, psdump) spec.md §4.3 and §6
	// expose, so every forked process just runs to completion
	// immediately unless a caller scripts otherwise.
	b, err := boot.New(cfg, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	b.Kernel.Dispatcher.SetSwitcher(kerneltest.New(b.Kernel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()
	defer b.Stop()

	os.Exit(int(subcommands.Execute(ctx, b)))
}
