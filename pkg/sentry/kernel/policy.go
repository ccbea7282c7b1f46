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

import "github.com/tinykernel/procsched/pkg/kernerr"

// ChangePolicy validates and installs a new policy record, then rebuilds
// the heap under it (spec.md §4.3's change_policy / the original's
// change_sched). Validation: algorithm must be SJF or CFS and — only when
// algorithm is SJF — a must fall in [0,100]. is_preemptive arrives as a
// bool; the chsched syscall stub rejects a negative value before calling
// here.
func (q *ReadyQueue) ChangePolicy(algo Algorithm, isPreemptive bool, a int64) error {
	if algo != SJF && algo != CFS {
		return kernerr.ErrInvalidAlgorithm
	}
	// is_preemptive arrives pre-coerced to bool by the caller (the
	// syscall stub), resolving the Open Question in spec.md §9: the
	// timer path only ever distinguishes 0 from 1, so this type treats
	// it as a boolean rather than carrying arbitrary non-negative ints.
	if algo == SJF && (a < 0 || a > 100) {
		return kernerr.ErrInvalidAFactor
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.policy.Algorithm = algo
	q.policy.IsPreemptive = isPreemptive
	q.policy.A = a

	q.rebuildLocked()
	return nil
}

// rebuildLocked re-heapifies q.heap under the (just-changed) active
// policy's key function: standard linear-time heapify, sifting down from
// the last non-leaf index toward the root (spec.md §4.3). The stored
// process references are untouched; only their relative order changes.
// Caller holds q.mu.
func (q *ReadyQueue) rebuildLocked() {
	n := len(q.heap)
	if n < 2 {
		return
	}
	for i := n/2 - 1; i >= 0; i-- {
		q.siftDown(i)
	}
}
