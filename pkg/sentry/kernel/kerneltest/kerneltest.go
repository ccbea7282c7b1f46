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

// Package kerneltest supplies the fake collaborators spec.md §8 calls for:
// a scripted, synchronous ContextSwitcher standing in for real assembly so
// the scheduling core can be driven deterministically, one dispatch at a
// time, from a test or a demo CLI.
package kerneltest

import (
	"sync"

	"github.com/tinykernel/procsched/pkg/sentry/kernel"
)

// Body is one process's scripted behavior for a single dispatch: given the
// kernel and the CPU it's running on, it runs to whatever suspension point
// it chooses (Yield, Sleep, Exit) and returns.
type Body func(k *kernel.Kernel, cpu *kernel.CPU, p *kernel.Process)

// Switcher is a ContextSwitcher backed by per-pid scripted Bodies, letting
// tests and the demo CLI drive Fork/Wait/Kill/ChangePolicy through the real
// dispatcher loop without real assembly or goroutine-per-process coroutines
// (spec.md §8's "stubs the context-switch ... collaborators").
type Switcher struct {
	k *kernel.Kernel

	mu      sync.Mutex
	scripts map[int]Body
}

// New creates a Switcher bound to k. k is supplied up front (rather than
// threaded through Switch's signature, which the kernel.ContextSwitcher
// interface fixes) because a scripted body needs it to call Fork/Exit/Wait/
// Kill on its own behalf.
func New(k *kernel.Kernel) *Switcher {
	return &Switcher{k: k, scripts: make(map[int]Body)}
}

// Register installs body as the script run the next time pid is dispatched.
// Scripts are one-shot: after running, a pid falls back to the default
// (exit-immediately) behavior unless re-registered.
func (s *Switcher) Register(pid int, body Body) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[pid] = body
}

// Switch implements kernel.ContextSwitcher.
func (s *Switcher) Switch(cpu *kernel.CPU, p *kernel.Process) {
	s.mu.Lock()
	body, ok := s.scripts[p.PID()]
	if ok {
		delete(s.scripts, p.PID())
	}
	s.mu.Unlock()

	if !ok {
		s.k.Exit(cpu, p, 0)
		return
	}
	body(s.k, cpu, p)
}
