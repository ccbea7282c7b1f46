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

// Package kernerr defines the sentinel errors returned across the
// scheduler/syscall boundary, the way pkg/errors/linuxerr does for the
// teacher's syscall table: a fixed set of named errors that syscall stubs
// translate into the negative return codes user space expects.
package kernerr

import "errors"

var (
	// ErrNoFreeProcess is returned by allocproc when the process table is
	// full.
	ErrNoFreeProcess = errors.New("kernerr: no free process slot")

	// ErrNoChildren is returned by wait when the caller has no children,
	// live or zombie.
	ErrNoChildren = errors.New("kernerr: no children")

	// ErrKilled is returned by wait when the caller itself is marked
	// killed.
	ErrKilled = errors.New("kernerr: caller killed")

	// ErrNoSuchProcess is returned by kill when no slot matches the pid.
	ErrNoSuchProcess = errors.New("kernerr: no such process")

	// ErrInvalidAlgorithm is returned by ChangePolicy for algorithm
	// values outside {SJF, CFS}.
	ErrInvalidAlgorithm = errors.New("kernerr: invalid scheduling algorithm")

	// ErrInvalidPreemptiveFlag is returned by the chsched syscall for a
	// negative is_preemptive value.
	ErrInvalidPreemptiveFlag = errors.New("kernerr: invalid preemptive flag")

	// ErrInvalidAFactor is returned by ChangePolicy when a is outside
	// [0, 100] under SJF.
	ErrInvalidAFactor = errors.New("kernerr: a factor out of [0,100]")

	// ErrRateLimited is returned by the debug dump RPC when a caller
	// exceeds its rate limit.
	ErrRateLimited = errors.New("kernerr: rate limited")

	// ErrCopyFault is returned by a CopyContext when the destination
	// address does not name a valid location to copy into, mirroring
	// either_copyout's -1 return on a bad user address.
	ErrCopyFault = errors.New("kernerr: copy fault")
)

// Code maps a sentinel error to the negative return code spec'd for the
// corresponding user-visible system call. Unrecognized errors map to -1,
// the generic failure code.
func Code(err error) int {
	switch err {
	case nil:
		return 0
	case ErrInvalidAlgorithm, ErrInvalidPreemptiveFlag:
		return -2
	case ErrInvalidAFactor:
		return -3
	default:
		return -1
	}
}
