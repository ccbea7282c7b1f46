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
	"encoding/binary"
	"unsafe"

	"github.com/tinykernel/procsched/pkg/kernerr"
	"github.com/tinykernel/procsched/pkg/log"
)

// chanOf turns a process's stable identity into the WaitChan value other
// processes sleep/wake on, mirroring original_source's use of a proc's own
// address as its wait channel (fork's "wait for any of my children"
// rendezvous is keyed on the parent's address, not a separately allocated
// token).
func chanOf(p *Process) WaitChan { return WaitChan(uintptr(unsafe.Pointer(p))) }

// Fork creates a child of parent: a fresh table slot with a cloned address
// space, a copied trapframe (child's return value zeroed), duplicated open
// files, and the same working directory and name, then makes it RUNNABLE
// (spec.md §4.1's fork). Returns the child's pid, or an error if the table
// is full.
func (k *Kernel) Fork(parent *Process) (int, error) {
	np, err := k.Table.AllocProc()
	if err != nil {
		return 0, err
	}

	np.addr = parent.addr.Clone()
	np.trap.CopyFrom(parent.trap)
	np.trap.A0 = 0 // child sees a zero return from fork.
	np.files = parent.files.Dup()
	np.cwd = parent.cwd
	np.name = parent.name
	pid := np.pid
	np.Unlock()

	// Lock order (spec.md §5): wait before process, so np's own lock must
	// be released before taking waitMu and reacquired afterward, exactly
	// as original_source's fork() releases np->lock, takes wait_lock to
	// set np->parent, releases it, then retakes np->lock to go RUNNABLE.
	k.Table.waitMu.Lock()
	np.parent = parent
	k.Table.waitMu.Unlock()

	np.Lock()
	np.state = StateRunnable
	np.putTimestamp = k.Clock.Ticks()
	k.Ready.enqueueLocked2(np)
	np.Unlock()

	log.Infof("fork: parent=%d child=%d", parent.pid, pid)
	return pid, nil
}

// enqueueLocked2 takes the ready queue's own lock and inserts p, which is
// already RUNNABLE and whose process lock the caller holds. It exists
// because Fork sets p's scheduling fields directly (a brand-new child has
// no prior burst to average in) rather than going through Enqueue's
// "was I RUNNING?" accounting, which only makes sense for a process
// re-entering the heap after running or blocking.
func (q *ReadyQueue) enqueueLocked2(p *Process) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueueLocked(p)
}

// Exit tears p down: closes its files, reparents its children to initproc,
// wakes its parent, marks it ZOMBIE with the given exit status, and hands
// control back to the scheduler. It never returns to the caller in the C
// original's sense of "never again runs"; here that's simply the fact that
// nothing calls p's process body again once its slot is ZOMBIE.
func (k *Kernel) Exit(cpu *CPU, p *Process, status int32) {
	if p == k.Table.InitProc() {
		Fatal("exit: init process exiting")
	}

	if p.files != nil {
		p.files.CloseAll()
	}
	p.files = nullFileTable{}

	k.Table.waitMu.Lock()
	k.Table.Reparent(p, func(initproc *Process) {
		k.Dispatcher.Wakeup(k.Table, p, chanOf(initproc))
	})

	parent := p.parent
	k.Dispatcher.Wakeup(k.Table, p, chanOf(parent))

	p.Lock()
	p.xstate = status
	p.state = StateZombie
	k.Table.waitMu.Unlock()

	// original_source's exit() never returns from sched() here: the
	// scheduler simply never dispatches a ZOMBIE slot again. In this
	// synchronous model Sched returns normally (spec.md §4.4's dispatcher
	// contract), so Exit does too, unwinding back through the scripted
	// body into Switch and RunOnce exactly like Yield and Sleep do.
	k.Dispatcher.Sched(cpu, p)
	p.Unlock()
}

// Wait blocks parent until one of its children exits, then reaps it and
// returns its pid and exit status (spec.md §4.1's wait). If statusAddr is
// nonzero, the exit status is also copied out through k.Copy — the
// CopyContext collaborator standing in for either_copyout's user/kernel
// address switch (SPEC_FULL.md §3) — before the child's slot is freed,
// exactly as original_source's wait() orders copyout ahead of freeproc.
// A copy failure aborts the reap without freeing the child, matching
// that same ordering. Returns ErrNoChildren if parent has none, live or
// zombie, and ErrKilled if parent is marked killed.
func (k *Kernel) Wait(cpu *CPU, parent *Process, statusAddr uintptr) (int, int32, error) {
	k.Table.waitMu.Lock()
	for {
		haveKids := false
		for _, pp := range k.Table.Slots() {
			pp.Lock()
			if pp.parent != parent {
				pp.Unlock()
				continue
			}
			haveKids = true
			if pp.state == StateZombie {
				pid := pp.pid
				xstate := pp.xstate
				if statusAddr != 0 {
					var buf [4]byte
					binary.LittleEndian.PutUint32(buf[:], uint32(xstate))
					if err := k.Copy.CopyOut(parent, statusAddr, buf[:]); err != nil {
						pp.Unlock()
						k.Table.waitMu.Unlock()
						return 0, 0, err
					}
				}
				k.Table.FreeProc(pp)
				pp.Unlock()
				k.Table.waitMu.Unlock()
				return pid, xstate, nil
			}
			pp.Unlock()
		}

		if !haveKids {
			k.Table.waitMu.Unlock()
			return 0, 0, kernerr.ErrNoChildren
		}
		if parent.Killed() {
			k.Table.waitMu.Unlock()
			return 0, 0, kernerr.ErrKilled
		}

		k.Dispatcher.Sleep(cpu, parent, chanOf(parent), &k.Table.waitMu)
		k.Table.waitMu.Lock()
	}
}

// Kill marks the process with the given pid killed and, if it is currently
// SLEEPING, wakes it so it observes the kill promptly rather than waiting
// out whatever it was blocked on (spec.md §4.1's kill, and property P6:
// a kill racing a sleep must not leave the victim parked forever).
func (k *Kernel) Kill(pid int) error {
	p := k.Table.LookupPID(pid)
	if p == nil {
		return kernerr.ErrNoSuchProcess
	}

	p.Lock()
	p.killed = true
	if p.state == StateSleeping {
		k.Ready.Enqueue(p)
	}
	p.Unlock()
	return nil
}
