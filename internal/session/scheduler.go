package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type schedulerState int

const (
	schedulerIdle schedulerState = iota
	schedulerRunning
	schedulerStopping
	schedulerStopped
)

// intervalScheduler drives the periodic drain-and-process cycle for one
// session. The process callback is only ever invoked from the scheduler's
// own goroutine or, for the final pass, from the goroutine calling stop after
// the periodic loop has fully exited — so processing ticks are strictly
// serialized and two oracle calls for the same meeting never overlap.
type intervalScheduler struct {
	interval time.Duration
	process  func(ctx context.Context)

	mu     sync.Mutex
	state  schedulerState
	cancel context.CancelFunc
	done   chan struct{}
}

func newIntervalScheduler(interval time.Duration, process func(ctx context.Context)) *intervalScheduler {
	return &intervalScheduler{interval: interval, process: process}
}

func (s *intervalScheduler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == schedulerRunning {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.state = schedulerRunning
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

func (s *intervalScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Processing runs inline: a slow cycle delays the next tick
			// instead of overlapping it. The process context is independent
			// of the loop context so that stop cannot abort a mid-flight
			// oracle call and lose its batch.
			s.process(context.Background())
		}
	}
}

// stop cancels the periodic wait immediately, waits for the loop to exit,
// then performs exactly one final processing pass over whatever remains.
func (s *intervalScheduler) stop() {
	s.mu.Lock()
	if s.state != schedulerRunning {
		s.mu.Unlock()
		return
	}
	s.state = schedulerStopping
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.process(context.Background())

	s.mu.Lock()
	s.state = schedulerStopped
	s.mu.Unlock()
	slog.Debug("interval scheduler stopped")
}
