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

// Package auditlog records every scheduling-policy change as a JSON patch
// against the previous policy, giving an operator a compact, replayable
// trail of "what changed" rather than a log line they have to diff by eye.
// Grounded on SPEC_FULL.md §2's mattbaird/jsonpatch wiring.
package auditlog

import (
	"encoding/json"
	"fmt"
	"sync"

	jsonpatch "github.com/mattbaird/jsonpatch"
)

// PolicySnapshot is the JSON-serializable shape of a scheduling policy at a
// point in time, decoupled from pkg/sentry/kernel.Policy so this package
// doesn't need to import the scheduling core.
type PolicySnapshot struct {
	Algorithm    string `json:"algorithm"`
	IsPreemptive bool   `json:"is_preemptive"`
	A            int64  `json:"a"`
}

// Entry is one recorded policy change.
type Entry struct {
	Tick   int64             `json:"tick"`
	Before PolicySnapshot    `json:"before"`
	After  PolicySnapshot    `json:"after"`
	Patch  []jsonpatch.JsonPatchOperation `json:"patch"`
}

// Log is an append-only, in-memory audit trail. Safe for concurrent use:
// ChangePolicy may be called from any CPU's dispatch context.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty audit log.
func New() *Log { return &Log{} }

// Record diffs before against after and appends the resulting JSON patch as
// a new entry, tagged with tick (the scheduler clock reading at the time of
// the change, for correlating against a procdump or test trace).
func (l *Log) Record(tick int64, before, after PolicySnapshot) error {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return fmt.Errorf("auditlog: marshaling before snapshot: %w", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return fmt.Errorf("auditlog: marshaling after snapshot: %w", err)
	}
	patch, err := jsonpatch.CreatePatch(beforeJSON, afterJSON)
	if err != nil {
		return fmt.Errorf("auditlog: computing patch: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Tick: tick, Before: before, After: after, Patch: patch})
	return nil
}

// Entries returns a copy of every recorded change, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
