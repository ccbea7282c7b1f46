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

// Package cmd holds the subcommands/-based CLI commands exposed by
// cmd/schedctl, grounded on the teacher's runsc/cmd package: one type per
// subcommand, each implementing subcommands.Command.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"github.com/tinykernel/procsched/internal/boot"
	"github.com/tinykernel/procsched/pkg/sentry/syscalls"
	"github.com/tinykernel/procsched/pkg/sentry/syscalls/linux"
)

// Chsched implements subcommands.Command for "chsched": the CLI-facing
// equivalent of original_source/user/chsched.c, down to its argument
// order, output format, and exit(0)-always contract (spec.md §6).
type Chsched struct{}

func (*Chsched) Name() string     { return "chsched" }
func (*Chsched) Synopsis() string { return "change the active scheduling policy" }
func (*Chsched) Usage() string {
	return "chsched algo is_preemptive a\n"
}

// SetFlags implements subcommands.Command.SetFlags. chsched.c takes its
// three parameters positionally (argv[1..3]), not as flags.
func (*Chsched) SetFlags(*flag.FlagSet) {}

// atoi mirrors C's atoi: a non-numeric argument silently parses as 0
// rather than failing, exactly as chsched.c's unchecked atoi(argv[n])
// calls do.
func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// Execute implements subcommands.Command.Execute. It dispatches through
// linux.Table the same way a real syscall trap would, rather than
// calling kernel.Kernel methods directly.
func (*Chsched) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	b := args[0].(*boot.Boot)

	algo := atoi(f.Arg(0))
	isPreemptive := atoi(f.Arg(1))
	a := atoi(f.Arg(2))

	ret, _ := linux.Table["chsched"].Fn(b.Kernel, nil, nil, syscalls.Args{algo, isPreemptive, a})

	if ret == 0 {
		algoName := "SJF"
		if algo != 0 {
			algoName = "CFS"
		}
		fmt.Printf("algorithm: %s\n", algoName)
		if algo == 0 {
			fmt.Printf("is_preemptive: %d\n", isPreemptive)
			fmt.Printf("a: %d\n", a)
		}
	}
	fmt.Printf("return code: %d\n", ret)

	return subcommands.ExitSuccess
}
