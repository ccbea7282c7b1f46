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

// Package time provides the kernel's coarse virtual clock: the monotonic
// tick counter spec.md §3 calls `ticks`, incremented by the timer
// interrupt collaborator and read wherever the scheduler needs a cheap
// notion of "now" (put_timestamp, the CFS quantum computation). It is
// deliberately not wall-clock time — tests drive it by calling Tick()
// directly, the same way original_source's timer_routine is the only
// writer of `ticks`.
package time

import "sync/atomic"

// Clock is a monotonic tick counter. The zero value starts at tick 0.
type Clock struct {
	ticks int64
}

// Tick advances the clock by one and returns the new value. Called from
// the timer-interrupt collaborator once per hardware tick.
func (c *Clock) Tick() int64 {
	return atomic.AddInt64(&c.ticks, 1)
}

// Ticks returns the current tick count.
func (c *Clock) Ticks() int64 {
	return atomic.LoadInt64(&c.ticks)
}
