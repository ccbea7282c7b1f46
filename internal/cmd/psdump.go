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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/tinykernel/procsched/internal/boot"
)

// Psdump implements subcommands.Command for "psdump": the CLI-facing
// equivalent of the lock-free procdump() debug dump (spec.md §6).
type Psdump struct{}

func (*Psdump) Name() string             { return "psdump" }
func (*Psdump) Synopsis() string         { return "dump every live process's pid, state, and name" }
func (*Psdump) Usage() string            { return "psdump\n" }
func (*Psdump) SetFlags(*flag.FlagSet)   {}

// Execute implements subcommands.Command.Execute.
func (*Psdump) Execute(_ context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	b := args[0].(*boot.Boot)

	var sb strings.Builder
	b.Kernel.Procdump(&sb)
	if sb.Len() == 0 {
		fmt.Fprintln(os.Stdout, "(no live processes)")
		return subcommands.ExitSuccess
	}
	fmt.Fprint(os.Stdout, sb.String())
	return subcommands.ExitSuccess
}
