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
	"github.com/tinykernel/procsched/pkg/kernerr"
	"github.com/tinykernel/procsched/pkg/log"
)

// Table is the fixed-size process pool (spec.md §3's "NPROC fixed
// entries"), the global pid counter, and the wait-lock-guarded parent
// links, mirroring original_source/kernel/proc.c's `struct proc proc[NPROC]`,
// `nextpid`/`pid_lock`, and `wait_lock`.
type Table struct {
	procs []Process

	waitMu   waitMutex
	pidMu    pidMutex
	nextPID  int
	pidIndex *pidIndex

	vm    VMAllocator
	trap  TrapFrameAllocator

	initproc *Process
}

// NewTable allocates an NPROC-slot table, all UNUSED, matching
// procinit()'s role in the original (minus kernel-stack mapping, which is
// an external collaborator's concern, spec.md §1).
func NewTable(nproc int, vm VMAllocator, trap TrapFrameAllocator) *Table {
	if vm == nil {
		vm = defaultVMAllocator{}
	}
	if trap == nil {
		trap = defaultTrapFrameAllocator{}
	}
	t := &Table{
		procs:    make([]Process, nproc),
		nextPID:  1,
		pidIndex: newPIDIndex(),
		vm:       vm,
		trap:     trap,
	}
	for i := range t.procs {
		t.procs[i].index = i
		t.procs[i].state = StateUnused
		t.procs[i].files = nullFileTable{}
	}
	return t
}

// allocPID assigns the next pid. Globally serialized under pidMu (spec.md
// §3 invariant 6, §5 lock 4).
func (t *Table) allocPID() int {
	t.pidMu.Lock()
	defer t.pidMu.Unlock()
	pid := t.nextPID
	t.nextPID++
	return pid
}

// AllocProc scans the table for an UNUSED slot, claims it, assigns a
// fresh pid, zeroes its scheduling fields, and requests a trapframe and
// address space from the collaborators. On success it returns the slot
// with its lock held, for the caller (fork, boot) to finish initializing.
// On collaborator failure it rolls back via freeproc and returns
// ErrNoFreeProcess, matching allocproc()'s kalloc-failure path.
func (t *Table) AllocProc() (*Process, error) {
	for i := range t.procs {
		p := &t.procs[i]
		p.Lock()
		if p.state != StateUnused {
			p.Unlock()
			continue
		}

		p.pid = t.allocPID()
		p.state = StateUsed
		p.cpuBurst = 0
		p.cpuBurstAprox = 0
		p.exeTime = 0
		p.timeslice = 0
		p.putTimestamp = 0
		p.killed = false
		p.xstate = 0
		p.waitChan = 0

		trap, err := t.trap.NewTrapFrame()
		if err != nil {
			t.freeProcLocked(p)
			p.Unlock()
			return nil, kernerr.ErrNoFreeProcess
		}
		p.trap = trap

		addr, err := t.vm.NewAddressSpace()
		if err != nil {
			t.freeProcLocked(p)
			p.Unlock()
			return nil, kernerr.ErrNoFreeProcess
		}
		p.addr = addr

		t.pidMu.Lock()
		t.pidIndex.insert(p)
		t.pidMu.Unlock()
		log.Infof("allocproc: pid=%d slot=%d", p.pid, p.index)
		return p, nil
	}
	return nil, kernerr.ErrNoFreeProcess
}

// freeProcLocked reverses AllocProc/initialization and returns the slot to
// UNUSED (spec.md §4.1's freeproc). Caller holds p.mu.
func (t *Table) freeProcLocked(p *Process) {
	p.trap = nil
	p.addr = nil
	if p.files != nil {
		p.files.CloseAll()
	}
	p.files = nullFileTable{}
	p.cwd = ""
	p.name = ""
	if p.pid != 0 {
		t.pidMu.Lock()
		t.pidIndex.remove(p.pid)
		t.pidMu.Unlock()
	}
	p.pid = 0
	p.parent = nil
	p.waitChan = 0
	p.killed = false
	p.xstate = 0
	p.cpuBurst = 0
	p.cpuBurstAprox = 0
	p.exeTime = 0
	p.timeslice = 0
	p.putTimestamp = 0
	p.state = StateUnused
}

// FreeProc is freeProcLocked for external callers (e.g. wait(), after it
// finds a ZOMBIE child) that already hold p's lock.
func (t *Table) FreeProc(p *Process) { t.freeProcLocked(p) }

// LookupPID finds the slot with the given pid via the secondary pid index
// (pidindex.go) instead of the O(NPROC) scan original_source's kill()/wait()
// perform inline. wait()'s own child-reaping loop and Reparent still walk
// Slots() directly, since they need every child of a given parent rather
// than a single pid; this is the point lookups (kill, CLI/debug tooling)
// go through instead.
func (t *Table) LookupPID(pid int) *Process {
	t.pidMu.Lock()
	defer t.pidMu.Unlock()
	return t.pidIndex.lookup(pid)
}

// Slots returns every table slot, for iteration by wait/wakeup/procdump. Callers must take each slot's own lock before touching
// its guarded fields.
func (t *Table) Slots() []*Process {
	out := make([]*Process, len(t.procs))
	for i := range t.procs {
		out[i] = &t.procs[i]
	}
	return out
}

// SetInit records p as initproc, the adoption target for orphaned
// children (spec.md §4.1).
func (t *Table) SetInit(p *Process) { t.initproc = p }

// InitProc returns the current init process.
func (t *Table) InitProc() *Process { return t.initproc }

// Reparent repoints every slot whose parent is p to initproc and wakes
// initproc (spec.md §4.1's reparent). Caller holds t.waitMu.
func (t *Table) Reparent(p *Process, wake func(*Process)) {
	for i := range t.procs {
		pp := &t.procs[i]
		pp.mu.Lock()
		if pp.parent == p {
			pp.parent = t.initproc
		}
		pp.mu.Unlock()
	}
	wake(t.initproc)
}
