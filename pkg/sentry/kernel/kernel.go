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

import (
	"github.com/tinykernel/procsched/pkg/auditlog"
	"github.com/tinykernel/procsched/pkg/log"
	ktime "github.com/tinykernel/procsched/pkg/sentry/time"
)

// Kernel wires the process table, the ready queue, and the dispatcher
// into the single owned object the rest of the host kernel talks to — the
// design notes in spec.md §9 call for exactly this: "a state object owned
// at kernel-init time and accessed through the scheduler lock, not...
// implicit process-wide state."
type Kernel struct {
	Table      *Table
	Ready      *ReadyQueue
	Dispatcher *Dispatcher
	Clock      *ktime.Clock
	CPUs       []*CPU
	Audit      *auditlog.Log
	Copy       CopyContext
}

// Config bundles the parameters NewKernel needs; see pkg/config for the
// TOML-backed loader that produces one of these at boot.
type Config struct {
	NPROC        int
	NCPU         int
	Algorithm    Algorithm
	IsPreemptive bool
	A            int64
	VM           VMAllocator
	Trap         TrapFrameAllocator
	Switcher     ContextSwitcher
	Copy         CopyContext
}

// NewKernel builds a Kernel from cfg. It does not yet boot initproc or
// start any CPU loops — see internal/boot for that, which is
// intentionally kept outside this package the way spec.md §1 keeps boot
// and trap plumbing external to the scheduling core.
func NewKernel(cfg Config) *Kernel {
	clock := &ktime.Clock{}
	table := NewTable(cfg.NPROC, cfg.VM, cfg.Trap)
	ready := NewReadyQueue(cfg.NPROC, clock, Policy{
		Algorithm:    cfg.Algorithm,
		IsPreemptive: cfg.IsPreemptive,
		A:            cfg.A,
	})
	disp := NewDispatcher(table, ready, cfg.Switcher)

	cpus := make([]*CPU, cfg.NCPU)
	for i := range cpus {
		cpus[i] = &CPU{ID: i}
	}

	cp := cfg.Copy
	if cp == nil {
		cp = bufCopyContext{}
	}

	return &Kernel{
		Table:      table,
		Ready:      ready,
		Dispatcher: disp,
		Clock:      clock,
		CPUs:       cpus,
		Audit:      auditlog.New(),
		Copy:       cp,
	}
}

func snapshot(p Policy) auditlog.PolicySnapshot {
	return auditlog.PolicySnapshot{Algorithm: p.Algorithm.String(), IsPreemptive: p.IsPreemptive, A: p.A}
}

// ChangePolicy validates and installs a new scheduling policy, rebuilds the
// ready heap under it (spec.md §4.3), and records the change in k.Audit. A
// failed validation never reaches the audit log: only policies that were
// actually installed are worth a trail entry.
func (k *Kernel) ChangePolicy(algo Algorithm, isPreemptive bool, a int64) error {
	before := snapshot(k.Ready.CurrentPolicy())
	if err := k.Ready.ChangePolicy(algo, isPreemptive, a); err != nil {
		return err
	}
	after := snapshot(k.Ready.CurrentPolicy())
	if err := k.Audit.Record(k.Clock.Ticks(), before, after); err != nil {
		log.Warningf("changepolicy: audit record failed: %v", err)
	}
	return nil
}

// Procdump writes one line per non-UNUSED process to w:
// "pid state-name process-name", matching procdump()'s format exactly.
// Per spec.md §6, it must not take any lock, so every field it reads is
// read without synchronization — safe for a diagnostic dump on a possibly
// wedged machine, not safe as a general-purpose snapshot API.
func (k *Kernel) Procdump(w interface{ WriteString(string) (int, error) }) {
	for _, p := range k.Table.Slots() {
		if p.state == StateUnused {
			continue
		}
		w.WriteString(dumpLine(p))
	}
}

func dumpLine(p *Process) string {
	return itoa(p.pid) + " " + p.state.String() + " " + p.name + "\n"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
