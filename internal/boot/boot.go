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

// Package boot brings a Kernel up: allocates initproc, starts one
// scheduler loop per CPU, and exposes the debug RPC surface. It is kept
// outside pkg/sentry/kernel the same way the teacher keeps runsc/boot
// outside pkg/sentry: the scheduling core shouldn't need to know how it's
// started.
package boot

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tinykernel/procsched/pkg/config"
	"github.com/tinykernel/procsched/pkg/log"
	"github.com/tinykernel/procsched/pkg/sentry/kernel"
)

// Boot owns a running Kernel plus the errgroup supervising its per-CPU
// dispatcher loops.
type Boot struct {
	Kernel *kernel.Kernel

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New builds a Kernel from cfg and allocates initproc (spec.md §3's
// "userinit", original_source/kernel/proc.c's userinit()): the first
// process, parentless, RUNNABLE, with pid 1.
func New(cfg config.Config, switcher kernel.ContextSwitcher) (*Boot, error) {
	kcfg := cfg.KernelConfig(nil, nil, switcher)
	k := kernel.NewKernel(kcfg)

	init, err := k.Table.AllocProc()
	if err != nil {
		return nil, err
	}
	init.SetDebugName("initproc")
	k.Table.SetInit(init)
	// AllocProc returns its slot locked; Enqueue expects exactly that.
	k.Ready.Enqueue(init)
	init.Unlock()

	log.Infof("boot: kernel up, nproc=%d ncpu=%d initproc pid=%d", cfg.NPROC, cfg.NCPU, init.PID())
	return &Boot{Kernel: k}, nil
}

// Run starts one scheduler loop per CPU and blocks until ctx is canceled or
// a loop returns an error, mirroring the teacher's use of
// golang.org/x/sync/errgroup to supervise a fixed pool of long-running
// goroutines (runsc/boot's controller/loader goroutines) rather than
// hand-rolled sync.WaitGroup bookkeeping.
func (b *Boot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	b.group = g

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	for _, cpu := range b.Kernel.CPUs {
		cpu := cpu
		g.Go(func() error {
			log.Infof("boot: cpu %d scheduler loop starting", cpu.ID)
			b.Kernel.Dispatcher.RunForever(cpu, stop)
			log.Infof("boot: cpu %d scheduler loop stopped", cpu.ID)
			return nil
		})
	}

	return g.Wait()
}

// Stop cancels every scheduler loop started by Run. It returns without
// waiting for the loops to exit; Run returns once they have.
func (b *Boot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}
