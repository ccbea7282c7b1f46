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

import "github.com/google/btree"

// pidEntry is a btree.Item keyed by pid. Table.LookupPID, and through it
// kill() and the CLI/debug tooling, answers "does this pid exist, and which
// slot" from this secondary index in O(log NPROC), per SPEC_FULL.md §2's
// google/btree wiring. wait()'s child scan and reparent still walk the
// whole table, since they need every child of a parent, not one pid.
type pidEntry struct {
	pid  int
	proc *Process
}

func (a pidEntry) Less(than btree.Item) bool {
	return a.pid < than.(pidEntry).pid
}

// pidIndex is a thin, table-owned wrapper around a *btree.BTree. It is
// maintained alongside allocproc/freeproc under the table's existing
// locks; it has no lock of its own.
type pidIndex struct {
	tree *btree.BTree
}

func newPIDIndex() *pidIndex {
	return &pidIndex{tree: btree.New(8)}
}

func (x *pidIndex) insert(p *Process) {
	x.tree.ReplaceOrInsert(pidEntry{pid: p.pid, proc: p})
}

func (x *pidIndex) remove(pid int) {
	x.tree.Delete(pidEntry{pid: pid})
}

// lookup returns the slot for pid, or nil if none is indexed.
func (x *pidIndex) lookup(pid int) *Process {
	item := x.tree.Get(pidEntry{pid: pid})
	if item == nil {
		return nil
	}
	return item.(pidEntry).proc
}
