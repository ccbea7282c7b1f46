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
	"github.com/tinykernel/procsched/pkg/sync/locking"
)

// CPU is one CPU's scheduler state: which process (if any) it is
// currently running, and whether interrupts are enabled. RunForever sets
// intena at the top of every iteration; Sched leaves it untouched, since
// no stack swap happens inside Sched in this synchronous model.
type CPU struct {
	ID      int
	Current *Process
	intena  bool
}

// ContextSwitcher is the context-switch assembly collaborator (spec.md
// §6): opaque here by design. Switch hands control to p and is expected
// to return only once p has called back into the kernel — via Yield,
// Sleep, Exit, or a timer-driven forced yield — exactly as swtch()
// returns once the process calls sched(). Production kernels supply a
// real implementation backed by a stack swap; tests supply a fake that
// runs a scripted process body synchronously (spec.md §8).
type ContextSwitcher interface {
	Switch(cpu *CPU, p *Process)
}

// Dispatcher runs the per-CPU scheduler loop and the suspension
// primitives (sched/yield/sleep/wakeup) shared by every CPU and process.
type Dispatcher struct {
	table   *Table
	ready   *ReadyQueue
	switcher ContextSwitcher
}

// NewDispatcher ties a process table and ready queue to a context-switch
// collaborator. switcher may be nil if the real collaborator isn't
// available yet (e.g. it needs the Kernel this Dispatcher is itself part
// of); see SetSwitcher.
func NewDispatcher(table *Table, ready *ReadyQueue, switcher ContextSwitcher) *Dispatcher {
	return &Dispatcher{table: table, ready: ready, switcher: switcher}
}

// SetSwitcher installs the context-switch collaborator. Exists because a
// collaborator constructed after the Kernel it drives (kerneltest.Switcher
// needs a *Kernel reference) can't be supplied to NewDispatcher at
// construction time.
func (d *Dispatcher) SetSwitcher(s ContextSwitcher) { d.switcher = s }

// RunOnce executes a single scheduler-loop iteration on cpu: dequeue,
// verify, dispatch. Exposed separately from an infinite RunForever loop
// so tests can drive exactly one dispatch per call (spec.md §8 scenario
// 1: "run scheduler once per child"). Returns the process that was
// dispatched, or nil if the heap was empty or the candidate was no longer
// runnable.
func (d *Dispatcher) RunOnce(cpu *CPU) *Process {
	p := d.ready.Dequeue()
	if p == nil {
		return nil
	}

	p.Lock()
	if p.state != StateRunnable {
		// Concurrently killed or otherwise state-changed between
		// dequeue and dispatch; drop it and let the next iteration
		// pick a fresh candidate.
		p.Unlock()
		return nil
	}
	p.state = StateRunning
	p.Unlock()

	// The process's own lock is deliberately not held across Switch:
	// original_source hands p->lock from the scheduler to the process
	// across a real context switch and back again, a handoff that only
	// makes sense between two separate stacks. Here Switch runs p's body
	// synchronously on this same goroutine, and that body calls back into
	// Yield/Sleep/Exit, each of which takes p's lock itself — holding it
	// here too would deadlock on Go's non-reentrant sync.Mutex.
	cpu.Current = p
	d.switcher.Switch(cpu, p)
	cpu.Current = nil

	// Control returns here only after p has called back into the kernel
	// via one of Yield/Sleep/Exit. Each of those fully owns p's state
	// transition and, for Yield, its own re-insertion into the ready
	// heap — there is nothing left for RunOnce to reconcile here.
	return p
}

// RunForever runs the scheduler loop on cpu until stop is closed. Matches
// original_source's scheduler(): enable interrupts at the top of every
// iteration to avoid deadlocking on an I/O-driven wakeup, and idle-back
// off (via idlePoll, dispatcher_backoff.go) rather than hot-spinning
// when the heap is empty.
func (d *Dispatcher) RunForever(cpu *CPU, stop <-chan struct{}) {
	poll := newIdlePoll()
	for {
		select {
		case <-stop:
			return
		default:
		}
		cpu.intena = true // "intr_on()": avoid deadlock waiting on I/O wakeups.

		if p := d.RunOnce(cpu); p != nil {
			poll.reset()
			continue
		}
		poll.wait()
	}
}

// Sched is the sole path from a process back to its CPU's scheduler
// context (spec.md §4.4). Preconditions, asserted exactly as
// original_source's sched() does: the caller holds exactly one lock (its
// own) and its state is not RUNNING (interrupt-disabled is notional here:
// this module has no real interrupt controller to query, so it is taken
// on faith the way the rest of the suspension path is).
//
// The actual stack swap back to the CPU's scheduler context is the
// ContextSwitcher collaborator's job, done once per dispatch by RunOnce's
// call to Switch — not here. Sched's contract is simply "control now
// returns to whoever dispatched p"; in this synchronous model that is
// nothing more than returning normally up through Yield/Sleep/Exit and
// back out of the process body the ContextSwitcher invoked, unwinding
// into RunOnce. Sched does not save or restore cpu.intena: no switch
// happens inside it, so the flag is left exactly as the caller had it.
func (d *Dispatcher) Sched(cpu *CPU, p *Process) {
	if locking.HeldCount() != 1 {
		Fatal("sched: expected exactly one lock held, got %d", locking.HeldCount())
	}
	if p.state == StateRunning {
		Fatal("sched: process %d still RUNNING", p.pid)
	}
	_ = cpu.intena // preserved by the caller's stack frame; nothing to do here.
}

// Yield gives up the CPU for one scheduling round (spec.md §4.4).
func (d *Dispatcher) Yield(cpu *CPU, p *Process) {
	p.Lock()
	d.ready.Enqueue(p)
	d.Sched(cpu, p)
	p.Unlock()
}

// Sleep atomically releases lk and blocks p on chan (spec.md §4.4). lk is
// any lock satisfying sync.Locker — in practice the table's wait lock, as
// in wait()'s call to sleep(p, &wait_lock).
func (d *Dispatcher) Sleep(cpu *CPU, p *Process, chanID WaitChan, lk interface{ Unlock() }) {
	p.Lock()
	lk.Unlock()

	p.waitChan = chanID
	p.state = StateSleeping

	d.Sched(cpu, p)

	p.waitChan = 0
	p.Unlock()
}

// Wakeup transitions every SLEEPING process (other than caller) waiting
// on chan back to RUNNABLE (spec.md §4.4). The caller must not hold any
// process lock: Wakeup acquires each candidate's lock itself before
// calling Enqueue, which is what makes P6 hold — the waker can't observe
// "about to sleep" without also being able to observe "already asleep".
func (d *Dispatcher) Wakeup(table *Table, caller *Process, chanID WaitChan) {
	for _, p := range table.Slots() {
		if p == caller {
			continue
		}
		p.Lock()
		if p.state == StateSleeping && p.waitChan == chanID {
			d.Enqueue(p)
		}
		p.Unlock()
	}
}

// Enqueue is a small convenience so dispatcher.go call sites don't need
// to reach through d.ready directly; caller holds p's lock.
func (d *Dispatcher) Enqueue(p *Process) { d.ready.Enqueue(p) }

// TimerRoutine is the timer-interrupt collaborator's per-tick callback on
// the currently running process (spec.md §4.4). It accounts one tick of
// burst, then yields if either the process's quantum has elapsed or the
// active policy is preemptive SJF.
func (d *Dispatcher) TimerRoutine(cpu *CPU, p *Process) {
	p.mu.Lock()
	p.cpuBurst++
	quantumElapsed := p.timeslice != 0 && p.cpuBurst == p.timeslice
	p.mu.Unlock()

	policy := d.ready.CurrentPolicy()
	preemptSJF := policy.Algorithm == SJF && policy.IsPreemptive

	if quantumElapsed || preemptSJF {
		d.Yield(cpu, p)
	}
}
