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

// Package linux implements the syscall table's handlers, grounded on
// original_source/user/chsched.c and kernel/proc.c for the exact argument
// order and validation each call performs.
package linux

import (
	"github.com/tinykernel/procsched/pkg/kernerr"
	"github.com/tinykernel/procsched/pkg/sentry/kernel"
	"github.com/tinykernel/procsched/pkg/sentry/syscalls"
)

// Chsched implements the chsched(algorithm, is_preemptive, a) syscall
// (spec.md §4.3): reconfigures the active scheduling policy and rebuilds
// the ready heap under it. Returns 0 on success, or the negative code
// kernerr.Code maps the validation failure to.
func Chsched(k *kernel.Kernel, _ *kernel.CPU, _ *kernel.Process, args syscalls.Args) (int64, error) {
	algo := kernel.Algorithm(args[0])
	if algo == kernel.SJF || algo == kernel.CFS {
		if args[1] < 0 {
			return int64(kernerr.Code(kernerr.ErrInvalidPreemptiveFlag)), kernerr.ErrInvalidPreemptiveFlag
		}
	}
	isPreemptive := args[1] != 0
	a := args[2]

	if err := k.ChangePolicy(algo, isPreemptive, a); err != nil {
		return int64(kernerr.Code(err)), err
	}
	return 0, nil
}
