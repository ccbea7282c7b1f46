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

// Package syscalls is the interface between a process and the scheduling
// core: the handful of calls spec.md §4.1 and §4.3 expose to user code
// (fork, exit, wait, kill, chsched). The stubs here just make writing those
// handlers straightforward; the actual work lives in pkg/sentry/kernel.
package syscalls

import "github.com/tinykernel/procsched/pkg/sentry/kernel"

// Args is the fixed argument vector every handler receives, mirroring the
// register-passed syscall arguments of a real kernel closely enough to give
// chsched's three parameters and kill's one a concrete home without a
// separate struct per call.
type Args [4]int64

// Fn is a syscall's implementation. It runs on the CPU currently dispatched
// to caller, with caller's own process lock not held (see dispatcher.go's
// RunOnce doc comment) so it is free to call back into Fork/Exit/Wait/Kill.
type Fn func(k *kernel.Kernel, cpu *kernel.CPU, caller *kernel.Process, args Args) (int64, error)

// Syscall is one entry in a syscall table: a name for logging/tracing and
// the handler itself.
type Syscall struct {
	Name string
	Fn   Fn
}

// Supported returns a syscall that is fully implemented.
func Supported(name string, fn Fn) Syscall {
	return Syscall{Name: name, Fn: fn}
}

// Error returns a syscall handler that always fails with err, for calls
// spec.md explicitly scopes out (e.g. anything from the OCI/container
// surface the teacher's table carried that has no place in a process
// scheduler).
func Error(name string, err error) Syscall {
	return Syscall{
		Name: name,
		Fn: func(*kernel.Kernel, *kernel.CPU, *kernel.Process, Args) (int64, error) {
			return -1, err
		},
	}
}

// Table is a name-indexed syscall table, built once at boot and looked up
// by name at dispatch time.
type Table map[string]Syscall

// NewTable builds the table this kernel supports.
func NewTable(entries ...Syscall) Table {
	t := make(Table, len(entries))
	for _, e := range entries {
		t[e.Name] = e
	}
	return t
}
