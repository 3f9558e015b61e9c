package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"engage-quiz/internal/domain"
)

// Scheduler calls Tick on started sessions once per interval until they
// complete or are stopped.
type Scheduler struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]*tickLoop
	wg      sync.WaitGroup
}

type tickLoop struct {
	cancel context.CancelFunc
}

func NewScheduler(interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		logger:   logger,
		running:  make(map[string]*tickLoop),
	}
}

// Enabled reports whether the scheduler drives ticks at all. A zero interval
// leaves ticking to the caller.
func (sc *Scheduler) Enabled() bool {
	return sc != nil && sc.interval > 0
}

// Schedule starts the tick loop for a session, replacing any loop already
// running for the same attempt.
func (sc *Scheduler) Schedule(session *Session) {
	if !sc.Enabled() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	loop := &tickLoop{cancel: cancel}

	sc.mu.Lock()
	if prev, ok := sc.running[session.ID()]; ok {
		prev.cancel()
	}
	sc.running[session.ID()] = loop
	sc.mu.Unlock()

	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		defer sc.release(session.ID(), loop)
		sc.run(ctx, session)
	}()
}

// Stop cancels the tick loop of an attempt, if any.
func (sc *Scheduler) Stop(attemptID string) {
	if sc == nil {
		return
	}
	sc.mu.Lock()
	loop, ok := sc.running[attemptID]
	delete(sc.running, attemptID)
	sc.mu.Unlock()
	if ok {
		loop.cancel()
	}
}

// Close stops every loop and waits for them to exit.
func (sc *Scheduler) Close() {
	if sc == nil {
		return
	}
	sc.mu.Lock()
	for id, loop := range sc.running {
		loop.cancel()
		delete(sc.running, id)
	}
	sc.mu.Unlock()
	sc.wg.Wait()
}

func (sc *Scheduler) run(ctx context.Context, session *Session) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, _ := session.Tick()
			if snap.Status != domain.StatusInProgress {
				sc.logger.Debug("tick loop finished", "attempt", session.ID(), "status", snap.Status)
				return
			}
		}
	}
}

func (sc *Scheduler) release(attemptID string, loop *tickLoop) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.running[attemptID] == loop {
		delete(sc.running, attemptID)
	}
	loop.cancel()
}
