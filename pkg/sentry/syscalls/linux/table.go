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

package linux

import "github.com/tinykernel/procsched/pkg/sentry/syscalls"

// Table is the complete syscall table this kernel exposes.
var Table = syscalls.NewTable(
	syscalls.Supported("fork", Fork),
	syscalls.Supported("exit", Exit),
	syscalls.Supported("wait", Wait),
	syscalls.Supported("kill", Kill),
	syscalls.Supported("chsched", Chsched),
)
