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
	"github.com/mohae/deepcopy"

	"github.com/tinykernel/procsched/pkg/kernerr"
)

// AddressSpace stands in for the user page table spec.md §6 names as an
// external collaborator (page-table construction/teardown is explicitly
// out of scope). It carries just enough shape — a size and a backing
// buffer, mirroring xv6's p->sz and the memory uvmcopy duplicates — for
// fork to have something concrete to copy.
type AddressSpace struct {
	Size uint64
	Data []byte
}

// Clone deep-copies the address space the way uvmcopy duplicates a
// parent's user memory into a freshly allocated child page table. Backed
// by mohae/deepcopy rather than a hand-rolled field walk, matching the
// domain-stack wiring in SPEC_FULL.md §2.
func (a *AddressSpace) Clone() *AddressSpace {
	if a == nil {
		return nil
	}
	return deepcopy.Copy(a).(*AddressSpace)
}

// TrapFrame stands in for the trapframe/trampoline mechanism (also out of
// scope per spec.md §1). CopyFrom mirrors "*(np->trapframe) = *(p->trapframe)"
// in fork, with A0 available so the caller can zero the child's return
// value register per spec.md §4.1.
type TrapFrame struct {
	A0  uint64
	PC  uint64
	SP  uint64
	Regs [31]uint64
}

func (t *TrapFrame) CopyFrom(src *TrapFrame) {
	if src == nil {
		*t = TrapFrame{}
		return
	}
	*t = *src
}

// FileTable stands in for the open-file-descriptor table. Dup mirrors the
// per-fd filedup() reference-count bump fork performs; CloseAll mirrors
// exit's fileclose loop.
type FileTable interface {
	Dup() FileTable
	CloseAll()
}

// nullFileTable is the zero-collaborator FileTable used when the host
// kernel hasn't wired in a real one (e.g. in unit tests that only exercise
// scheduling, not file descriptors).
type nullFileTable struct{}

func (nullFileTable) Dup() FileTable { return nullFileTable{} }
func (nullFileTable) CloseAll()      {}

// CopyContext stands in for either_copyin/either_copyout, the original's
// user/kernel-address copy helpers (SPEC_FULL.md §3): once real page
// tables exist, an implementation would switch on whether addr names a
// user or kernel address and copy accordingly. wait's exit-status
// copy-out is the one call site in this module that exercises it.
type CopyContext interface {
	// CopyOut copies src into whatever backs addr for dst. Returns an
	// error if addr does not name a valid destination (e.g. out of
	// range), mirroring either_copyout's -1 return on a bad address.
	CopyOut(dst *Process, addr uintptr, src []byte) error
}

// bufCopyContext is the real in-process CopyContext this module wires in
// by default: it treats addr as a byte offset into dst's own
// AddressSpace.Data, copying between plain Go byte slices in place of
// the trap handler's user/kernel address switch, exactly the "real
// in-process implementation... copies between Go byte slices" the
// expanded spec calls for.
type bufCopyContext struct{}

func (bufCopyContext) CopyOut(dst *Process, addr uintptr, src []byte) error {
	if addr == 0 {
		return nil
	}
	if dst.addr == nil {
		return kernerr.ErrCopyFault
	}
	off := int(addr)
	if off < 0 || off+len(src) > len(dst.addr.Data) {
		return kernerr.ErrCopyFault
	}
	copy(dst.addr.Data[off:], src)
	return nil
}

// VMAllocator and TrapFrameAllocator are the collaborators allocproc calls
// to build a fresh process's address space and trapframe (spec.md §4.1).
// On failure allocproc rolls back via freeproc, exactly as
// original_source/kernel/proc.c's allocproc does around kalloc() failures.
type VMAllocator interface {
	NewAddressSpace() (*AddressSpace, error)
}

type TrapFrameAllocator interface {
	NewTrapFrame() (*TrapFrame, error)
}

// defaultVMAllocator and defaultTrapFrameAllocator back a teaching kernel
// that never runs out of memory; a host kernel with real physical-page
// accounting would supply its own collaborator that can fail.
type defaultVMAllocator struct{}

func (defaultVMAllocator) NewAddressSpace() (*AddressSpace, error) {
	return &AddressSpace{}, nil
}

type defaultTrapFrameAllocator struct{}

func (defaultTrapFrameAllocator) NewTrapFrame() (*TrapFrame, error) {
	return &TrapFrame{}, nil
}
