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

// Package kernel is the pluggable process scheduling core: the process
// table and lifecycle (allocproc/freeproc/fork/exit/wait/kill), the shared
// ready heap, the policy engine, and the per-CPU dispatcher. It is
// grounded on _examples/original_source/kernel/proc.c (xv6), restructured
// the way _examples/Talismancer-gvisor-ligolo/pkg/sentry/kernel lays out a
// Go kernel: one package, one lock-order-checked mutex per guarded
// resource, opaque collaborator interfaces at the boundary to the rest of
// the (unimplemented) host kernel.
package kernel

// ProcessState is one node of the state machine in spec.md §1:
// UNUSED → USED → RUNNABLE ⇄ RUNNING ⇄ SLEEPING → ZOMBIE → UNUSED.
type ProcessState int

const (
	StateUnused ProcessState = iota
	StateUsed
	StateRunnable
	StateRunning
	StateSleeping
	StateZombie
)

func (s ProcessState) String() string {
	switch s {
	case StateUnused:
		return "unused"
	case StateUsed:
		return "used"
	case StateRunnable:
		return "runble"
	case StateRunning:
		return "run"
	case StateSleeping:
		return "sleep"
	case StateZombie:
		return "zombie"
	default:
		return "???"
	}
}

// WaitChan is the opaque value sleep()/wakeup() match sleepers against.
// Only meaningful while State == StateSleeping.
type WaitChan uintptr

// Process is one slot in the fixed-size process table. Its identity is
// its index in Table.procs; pid is assigned once and never reused within
// a boot (spec.md §3, invariant 6).
//
// Fields are split into three groups exactly as spec.md §3 does: fields
// guarded by mu (the per-process lock), the parent link guarded by the
// table's wait lock, and scheduling fields that are additionally touched
// under the ready queue's lock during enqueue/dequeue while mu is held.
type Process struct {
	mu processMutex

	index int // slot index in the table; identity, never reassigned.
	pid   int
	state ProcessState

	// parent is a weak reference (an index lookup, never ownership) into
	// the same table. Guarded by Table.waitMu, not mu.
	parent *Process

	waitChan WaitChan
	killed   bool
	xstate   int32

	// Scheduling fields, spec.md §3.
	cpuBurst      int64
	cpuBurstAprox int64
	exeTime       int64
	timeslice     int64
	putTimestamp  int64

	// Opaque fields owned by external collaborators (spec.md §3's "Opaque
	// fields"). Modeled concretely enough to compile and to give fork's
	// deep-copy (SPEC_FULL.md §2) something real to duplicate, but never
	// interpreted by the scheduler itself.
	name    string
	addr    *AddressSpace
	trap    *TrapFrame
	files   FileTable
	cwd     string

	// inHeap records whether this slot currently has a heap-array
	// position: set on insert, cleared on dequeue.
	inHeap bool
}

// PID returns the process's pid. Safe to call without holding mu: pid is
// write-once at allocation and never mutated again until freeproc clears
// it (which requires mu already).
func (p *Process) PID() int { return p.pid }

// State returns the process's current state. Callers that need a
// consistent read across multiple fields should hold p.Lock() instead.
func (p *Process) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Name returns the process's debug name.
func (p *Process) Name() string { return p.name }

// Killed reports the sticky killed flag.
func (p *Process) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// SetDebugName sets the process's debug name. Intended for boot-time setup
// (initproc) and tests; ordinary processes inherit their name from their
// parent via Fork.
func (p *Process) SetDebugName(name string) { p.name = name }

// Lock acquires the process's own lock. Exported so dispatcher.go and
// syscalls/linux can sequence it against the table's wait lock per the
// order in spec.md §5 without exposing the mutex type itself.
func (p *Process) Lock()   { p.mu.Lock() }
func (p *Process) Unlock() { p.mu.Unlock() }
