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

import ktime "github.com/tinykernel/procsched/pkg/sentry/time"

// Algorithm selects the active scheduling policy (spec.md §3, Policy
// record).
type Algorithm int

const (
	SJF Algorithm = 0
	CFS Algorithm = 1
)

func (a Algorithm) String() string {
	switch a {
	case SJF:
		return "sjf"
	case CFS:
		return "cfs"
	default:
		return "unknown"
	}
}

// Policy holds the three parameters the policy engine exposes for atomic
// reconfiguration: which algorithm is active, whether SJF preempts on
// every tick, and the exponential-averaging factor a.
type Policy struct {
	Algorithm    Algorithm
	IsPreemptive bool
	A            int64
}

// ReadyQueue is the single shared ready structure: a min-heap of RUNNABLE
// process slots ordered by the active policy's key, plus the policy
// record itself, both guarded by the same lock — mirroring
// original_source/kernel/proc.c's single `struct sched_policy proc_sched`,
// which embeds the heap array, heap_size, algorithm, is_preemptive, and a
// behind one spinlock. Split here into this file (heap mechanics) and
// policy.go (policy validation/reconfiguration) by concern, the way
// spec.md §2 tables them as separate components sharing one lock.
type ReadyQueue struct {
	mu     schedMutex
	heap   []*Process
	policy Policy
	clock  *ktime.Clock
}

// NewReadyQueue creates an empty ready queue under the given initial
// policy, with room preallocated for capacity slots (NPROC). The heap
// does not itself reject inserts beyond capacity.
func NewReadyQueue(capacity int, clock *ktime.Clock, initial Policy) *ReadyQueue {
	return &ReadyQueue{
		heap:   make([]*Process, 0, capacity),
		policy: initial,
		clock:  clock,
	}
}

// key computes a process's ordering key under the given algorithm
// (spec.md §4.2's key function). Kept as a package-level function, not a
// method, so heapify_up/heapify_down can resolve the Open Question in
// spec.md §9 by construction: always read the key off the process being
// compared, never off a stale global.
func key(algo Algorithm, p *Process) int64 {
	if algo == CFS {
		return p.exeTime
	}
	return p.cpuBurstAprox
}

func parentIdx(i int) int { return (i - 1) / 2 }
func leftIdx(i int) int   { return i*2 + 1 }
func rightIdx(i int) int  { return i*2 + 2 }

// siftUp restores the heap invariant after an append at the end of q.heap.
// Caller holds q.mu.
func (q *ReadyQueue) siftUp(i int) {
	algo := q.policy.Algorithm
	for i > 0 {
		p := parentIdx(i)
		if key(algo, q.heap[i]) >= key(algo, q.heap[p]) {
			break
		}
		q.heap[i], q.heap[p] = q.heap[p], q.heap[i]
		i = p
	}
}

// siftDown restores the heap invariant starting at index i, descending
// along whichever child has the smaller key. Resolves the second Open
// Question in spec.md §9: both the left and right child comparisons use
// key(algo, ...), so CFS's exe_time is consulted uniformly rather than
// the original's right-child comparison that reads cpu_burst_aprox
// regardless of algorithm. Caller holds q.mu.
func (q *ReadyQueue) siftDown(i int) {
	algo := q.policy.Algorithm
	n := len(q.heap)
	for {
		l, r := leftIdx(i), rightIdx(i)
		smallest := i
		if l < n && key(algo, q.heap[l]) < key(algo, q.heap[smallest]) {
			smallest = l
		}
		if r < n && key(algo, q.heap[r]) < key(algo, q.heap[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		q.heap[i], q.heap[smallest] = q.heap[smallest], q.heap[i]
		i = smallest
	}
}

// enqueueLocked inserts p into the heap. Caller holds q.mu and p.mu.
func (q *ReadyQueue) enqueueLocked(p *Process) {
	p.inHeap = true
	q.heap = append(q.heap, p)
	q.siftUp(len(q.heap) - 1)
}

// Enqueue makes p RUNNABLE and inserts it into the ready heap (spec.md
// §4.2's "put"). The caller must already hold p's process lock; this
// mirrors the C original's "acquire if not already held" contract but
// resolves it the idiomatic Go way (explicit locking contract on the
// exported entry point) rather than replicating a self-held-lock probe
// that Go's sync.Mutex has no way to perform safely. Callers that don't
// already hold p's lock should call EnqueueUnlocked instead.
func (q *ReadyQueue) Enqueue(p *Process) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Open Question (spec.md §9): the original's "was I RUNNING?" check
	// reads a stray global rather than p->state. We take the documented
	// preferred fix and test p.state directly.
	wasRunning := p.state == StateRunning

	if !wasRunning {
		a := q.policy.A
		p.cpuBurstAprox = (a*p.cpuBurst + (100-a)*p.cpuBurstAprox) / 100
		p.exeTime = 0
	} else {
		p.exeTime += p.cpuBurst
	}

	p.putTimestamp = q.clock.Ticks()
	p.state = StateRunnable

	q.enqueueLocked(p)
}

// EnqueueUnlocked is Enqueue for callers that do not already hold p's
// process lock.
func (q *ReadyQueue) EnqueueUnlocked(p *Process) {
	p.Lock()
	defer p.Unlock()
	q.Enqueue(p)
}

// Dequeue removes and returns the highest-priority RUNNABLE process, or
// nil if the heap is empty (spec.md §4.2's "get").
func (q *ReadyQueue) Dequeue() *Process {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil
	}
	ret := q.heap[0]
	ret.cpuBurst = 0
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap[last] = nil
	q.heap = q.heap[:last]
	ret.inHeap = false
	if len(q.heap) > 0 {
		q.siftDown(0)
	}

	if q.policy.Algorithm == CFS {
		ts := (q.clock.Ticks() - ret.putTimestamp) / int64(len(q.heap)+1)
		if ts < 1 {
			ts = 1
		}
		ret.timeslice = ts
	} else {
		ret.timeslice = 0
	}

	return ret
}

// Len reports the number of RUNNABLE processes currently in the heap.
func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// CurrentPolicy returns a copy of the active policy record.
func (q *ReadyQueue) CurrentPolicy() Policy {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.policy
}

// isMinHeap reports whether q.heap currently satisfies the min-heap
// invariant under the active policy's key. Provided for tests verifying
// P1; takes the lock itself so tests never need to reach into internals.
func (q *ReadyQueue) isMinHeap() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	algo := q.policy.Algorithm
	for i := 1; i < len(q.heap); i++ {
		if key(algo, q.heap[parentIdx(i)]) > key(algo, q.heap[i]) {
			return false
		}
	}
	return true
}
