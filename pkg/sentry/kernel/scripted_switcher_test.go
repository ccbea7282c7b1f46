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

package kernel

import "sync"

// scriptedSwitcher is pkg/sentry/kernel/kerneltest.Switcher's shape,
// reimplemented in-package so these whitebox tests can register scripts
// without an import cycle (kerneltest imports kernel, not the reverse).
type scriptedSwitcher struct {
	k *Kernel

	mu      sync.Mutex
	scripts map[int]func(k *Kernel, cpu *CPU, p *Process)
}

func newScriptedSwitcher(k *Kernel) *scriptedSwitcher {
	return &scriptedSwitcher{k: k, scripts: make(map[int]func(k *Kernel, cpu *CPU, p *Process))}
}

func (s *scriptedSwitcher) register(pid int, body func(k *Kernel, cpu *CPU, p *Process)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[pid] = body
}

// exitWith registers a one-shot script that exits immediately with status.
func (s *scriptedSwitcher) exitWith(pid int, status int32) {
	s.register(pid, func(k *Kernel, cpu *CPU, p *Process) {
		k.Exit(cpu, p, status)
	})
}

func (s *scriptedSwitcher) Switch(cpu *CPU, p *Process) {
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
