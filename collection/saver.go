package collection

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// saverState tracks where a coalesced save burst currently is.
type saverState int

const (
	saverIdle saverState = iota
	saverDebouncing
	saverWriting
	saverWritingRerun
)

// saver coalesces save requests for one blob. A request while idle starts a
// debounce window; requests during the window or the write collapse into it,
// except that a request arriving any time during the write flight sets a
// rerun flag which triggers exactly one follow-up cycle. This bounds write
// amplification to at most one extra save per burst.
//
// Save failures are logged and swallowed: the blob is a derived cache, not
// the source of truth, so a failed save must never fail the operation that
// requested it.
type saver struct {
	mu       sync.Mutex
	state    saverState
	debounce time.Duration
	write    func(ctx context.Context) error
	logger   *slog.Logger

	// idle is non-nil while a burst is running and closed when the saver
	// returns to idle. Wait blocks on it.
	idle chan struct{}
}

func newSaver(debounce time.Duration, write func(ctx context.Context) error, logger *slog.Logger) *saver {
	return &saver{
		debounce: debounce,
		write:    write,
		logger:   logger,
	}
}

// Schedule requests a save. It never blocks and never reports an error; the
// actual write happens after the debounce window on a background goroutine.
func (s *saver) Schedule(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case saverIdle:
		s.state = saverDebouncing
		s.idle = make(chan struct{})
		go s.run(ctx)
	case saverDebouncing:
		// Collapses into the pending window.
	case saverWriting:
		s.state = saverWritingRerun
	case saverWritingRerun:
		// One rerun is already promised.
	}
}

// run drives one burst: debounce, write, and at most one rerun cycle.
func (s *saver) run(ctx context.Context) {
	for {
		select {
		case <-time.After(s.debounce):
		case <-ctx.Done():
			s.finish()
			return
		}

		s.mu.Lock()
		s.state = saverWriting
		s.mu.Unlock()

		if err := s.write(ctx); err != nil {
			s.logger.Warn("background save failed", "error", err)
		}

		// The rerun check and the idle transition must share one critical
		// section: a Schedule between them would set the rerun flag and then
		// see it clobbered, dropping the request.
		s.mu.Lock()
		if s.state == saverWritingRerun {
			s.state = saverDebouncing
			s.mu.Unlock()
			continue
		}
		s.state = saverIdle
		idle := s.idle
		s.idle = nil
		s.mu.Unlock()
		close(idle)
		return
	}
}

// finish returns the saver to idle and releases waiters on the aborted
// burst.
func (s *saver) finish() {
	s.mu.Lock()
	s.state = saverIdle
	idle := s.idle
	s.idle = nil
	s.mu.Unlock()

	if idle != nil {
		close(idle)
	}
}

// Wait blocks until the current burst, if any, completes. Used by tests and
// by shutdown paths that want pending saves flushed.
func (s *saver) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
