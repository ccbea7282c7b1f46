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

package boot

import (
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tinykernel/procsched/pkg/kernerr"
)

// debugDumpLimiter caps how often Procdump actually walks the table,
// matching spec.md §6's "does not take any lock" dump: a misbehaving or
// scripted debug client hammering the RPC shouldn't be able to turn a
// lock-free read into a CPU-bound loop across every CPU's dispatcher.
var debugDumpLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 1)

// Debug exposes the kernel's diagnostic surface, grounded on the teacher's
// runsc/boot debug RPC (a tiny net/rpc-style object registered by the boot
// process, one method per diagnostic).
type Debug struct {
	boot *Boot
}

// NewDebug wraps b's diagnostic surface for RPC registration.
func NewDebug(b *Boot) *Debug { return &Debug{boot: b} }

// Procdump renders one line per non-UNUSED process: "pid state name",
// exactly procdump()'s format. Rate-limited per debugDumpLimiter; callers
// that exceed it get kernerr.ErrRateLimited rather than a partial dump.
func (d *Debug) Procdump(_ *struct{}, out *string) error {
	if !debugDumpLimiter.Allow() {
		return kernerr.ErrRateLimited
	}
	var sb strings.Builder
	d.boot.Kernel.Procdump(&sb)
	*out = sb.String()
	return nil
}
