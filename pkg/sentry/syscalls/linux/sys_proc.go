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

package linux

import (
	"github.com/tinykernel/procsched/pkg/kernerr"
	"github.com/tinykernel/procsched/pkg/sentry/kernel"
	"github.com/tinykernel/procsched/pkg/sentry/syscalls"
)

// Fork implements fork() (spec.md §4.1): duplicates caller into a new
// RUNNABLE child. Returns the child's pid, or a negative code on failure.
func Fork(k *kernel.Kernel, _ *kernel.CPU, caller *kernel.Process, _ syscalls.Args) (int64, error) {
	pid, err := k.Fork(caller)
	if err != nil {
		return int64(kernerr.Code(err)), err
	}
	return int64(pid), nil
}

// Exit implements exit(status) (spec.md §4.1). It never returns to its
// caller in the ordinary sense: control unwinds back out through the
// dispatcher once caller is ZOMBIE.
func Exit(k *kernel.Kernel, cpu *kernel.CPU, caller *kernel.Process, args syscalls.Args) (int64, error) {
	k.Exit(cpu, caller, int32(args[0]))
	return 0, nil
}

// Wait implements wait(status_addr) (spec.md §4.1): blocks until a child
// exits, then reaps it. args[0], if non-zero, is the address the exit
// status is copied to through k.Copy — the CopyContext collaborator
// standing in for either_copyout (SPEC_FULL.md §3) — before the child's
// slot is freed.
func Wait(k *kernel.Kernel, cpu *kernel.CPU, caller *kernel.Process, args syscalls.Args) (int64, error) {
	pid, _, err := k.Wait(cpu, caller, uintptr(args[0]))
	if err != nil {
		return int64(kernerr.Code(err)), err
	}
	return int64(pid), nil
}

// Kill implements kill(pid) (spec.md §4.1).
func Kill(k *kernel.Kernel, _ *kernel.CPU, _ *kernel.Process, args syscalls.Args) (int64, error) {
	if err := k.Kill(int(args[0])); err != nil {
		return int64(kernerr.Code(err)), err
	}
	return 0, nil
}
