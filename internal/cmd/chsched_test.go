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

package cmd

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"testing"

	"github.com/google/subcommands"

	"github.com/tinykernel/procsched/internal/boot"
	"github.com/tinykernel/procsched/pkg/config"
)

// runChsched runs the Chsched command with argv as its positional
// arguments and returns everything it printed to stdout.
func runChsched(t *testing.T, argv ...string) (string, subcommands.ExitStatus) {
	t.Helper()

	b, err := boot.New(config.Default(), nil)
	if err != nil {
		t.Fatalf("boot.New: %v", err)
	}

	f := flag.NewFlagSet("chsched", flag.ContinueOnError)
	if err := f.Parse(argv); err != nil {
		t.Fatalf("FlagSet.Parse: %v", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	status := (&Chsched{}).Execute(context.Background(), f, b)

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return string(out), status
}

func TestChschedSJFPrintsAlgorithmPreemptiveAndA(t *testing.T) {
	out, status := runChsched(t, "0", "1", "30")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, want ExitSuccess (spec.md §6 always exits 0)", status)
	}
	want := "algorithm: SJF\nis_preemptive: 1\na: 30\nreturn code: 0\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestChschedCFSOmitsPreemptiveAndA(t *testing.T) {
	out, status := runChsched(t, "1", "0", "0")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, want ExitSuccess", status)
	}
	want := "algorithm: CFS\nreturn code: 0\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestChschedInvalidAlgorithmPrintsNegativeTwo(t *testing.T) {
	out, status := runChsched(t, "7", "0", "0")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, want ExitSuccess even on a rejected policy change", status)
	}
	if !bytes.Contains([]byte(out), []byte("return code: -2\n")) {
		t.Fatalf("output = %q, want a \"return code: -2\" line", out)
	}
	if bytes.Contains([]byte(out), []byte("algorithm:")) {
		t.Fatalf("output = %q, should not print algorithm/is_preemptive/a on failure", out)
	}
}

func TestChschedAOutOfRangePrintsNegativeThree(t *testing.T) {
	out, _ := runChsched(t, "0", "0", "150")
	if !bytes.Contains([]byte(out), []byte("return code: -3\n")) {
		t.Fatalf("output = %q, want a \"return code: -3\" line", out)
	}
}
