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
	"fmt"

	"github.com/tinykernel/procsched/pkg/log"
)

// Fatal reports an internal invariant violation: sched() called with the
// wrong lock state, init exiting, double-RUNNING, an allocator with no
// recovery path. It logs at fatal level and panics, the equivalent of
// xv6's panic() call sites (spec.md §7's "invariant violation... treated
// as fatal, halts the kernel"). Unlike log.Fatalf, it never calls
// os.Exit: a panic lets a test harness recover() around a single
// triggered assertion instead of the whole test binary dying with it.
func Fatal(format string, args ...interface{}) {
	log.FatalLevelf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
