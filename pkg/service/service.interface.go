// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package service

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"mideair/pkg/logger"
)

// Runnable is the common interface for all services.
type Runnable interface {
	Run(ctx context.Context)
}

// SignalContext returns a context canceled on SIGINT or SIGTERM, along
// with a cancel func for shutting down from inside the process.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			logger.New("SigHandler").Info("received signal: %s", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Start runs every service on its own goroutine. A panicking service
// cancels ctx so the others wind down, and the exit code becomes -1.
// The returned channel yields the exit code once all services returned.
func Start(ctx context.Context, cancel context.CancelFunc, services []Runnable) <-chan int {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		exitCode int
	)
	exitCh := make(chan int, 1)
	log := logger.New("Panic")

	for _, s := range services {
		wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("%v\n%s", r, debug.Stack())
					mu.Lock()
					exitCode = -1
					mu.Unlock()
					cancel()
				}
			}()
			s.Run(ctx)
		})
	}

	go func() {
		wg.Wait()
		mu.Lock()
		exitCh <- exitCode
		mu.Unlock()
	}()

	return exitCh
}
