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
	"time"

	"github.com/cenkalti/backoff"
)

// idlePoll paces a CPU's scheduler loop when the ready heap comes up
// empty, so an idle CPU backs off exponentially (capped) instead of
// hot-spinning on dequeue() between I/O-driven wakeups. Per SPEC_FULL.md
// §2's cenkalti/backoff wiring.
type idlePoll struct {
	b *backoff.ExponentialBackOff
}

func newIdlePoll() *idlePoll {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Microsecond
	b.MaxInterval = 2 * time.Millisecond
	b.MaxElapsedTime = 0 // never gives up; this is a steady-state idle loop.
	return &idlePoll{b: b}
}

// wait sleeps for the next backoff interval.
func (p *idlePoll) wait() {
	time.Sleep(p.b.NextBackOff())
}

// reset is called whenever a dispatch succeeds, so the next idle stretch
// starts from the shortest interval again.
func (p *idlePoll) reset() {
	p.b.Reset()
}
