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

// Package log is the leveled logger used throughout the kernel. Kernel
// diagnostics (allocproc, fork, boot, fatal assertions) go through here
// rather than fmt, so log verbosity can be dialed without touching call
// sites. freeproc, exit, kill and successful policy changes log nothing.
package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the minimum emitted level. name is one of "debug",
// "info", "warning", "fatal".
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	std.SetLevel(lvl)
	return nil
}

// Debugf logs at debug level. Used for per-tick scheduling noise that
// would otherwise drown out everything else.
func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Infof logs at info level: lifecycle transitions, policy changes.
func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warningf logs at warning level: recoverable anomalies (e.g. a dispatch
// racing a concurrent kill).
func Warningf(format string, args ...interface{}) {
	std.Warningf(format, args...)
}

// Fatalf logs at fatal level and halts the process via os.Exit. Reserved
// for one-shot CLI/boot failures with no caller able to recover (e.g. a
// malformed config file at startup).
func Fatalf(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}

// FatalLevelf logs format at fatal level without exiting the process. It
// is the primitive kernel.Fatal builds on: the same log line a CLI-level
// Fatalf would produce, but paired with a panic instead of os.Exit so a
// kernel-internal invariant violation stays recoverable by a test's
// recover() rather than killing the whole test binary.
func FatalLevelf(format string, args ...interface{}) {
	std.Log(logrus.FatalLevel, fmt.Sprintf(format, args...))
}
