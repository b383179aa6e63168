package history

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// persistScheduler is the write-behind loop: it periodically scans cached
// conversations and persists any whose remaining TTL says they are
// approaching eviction, so cache expiry never loses data.
type persistScheduler struct {
	manager  *Manager
	logger   *slog.Logger
	cacheTTL int
	// persistAt is the offset, in seconds from a cache write, at which an
	// entry becomes due for proactive persistence.
	persistAt int
	interval  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func newPersistScheduler(m *Manager) *persistScheduler {
	cacheTTL := m.cfg.Cache.TTL
	persistAt := ParseSchedule(m.cfg.Persistence.Schedule, cacheTTL)

	intervalSecs := min(60, persistAt/4)
	if intervalSecs < 1 {
		intervalSecs = 1
	}

	return &persistScheduler{
		manager:   m,
		logger:    slog.Default().With(slog.String("component", "history.scheduler")),
		cacheTTL:  cacheTTL,
		persistAt: persistAt,
		interval:  time.Duration(intervalSecs) * time.Second,
	}
}

// Start launches the scan loop. Idempotent while running.
func (s *persistScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(loopCtx)

	s.logger.Info("background persist started",
		slog.Int("persist_at", s.persistAt),
		slog.Duration("interval", s.interval),
	)
}

// Stop cancels the loop and waits for it to exit. Work in the interrupted
// cycle is abandoned; each per-conversation persist is independently atomic
// from the store's point of view. Idempotent.
func (s *persistScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// IsRunning reports whether the loop is active.
func (s *persistScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *persistScheduler) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		if s.done != nil {
			close(s.done)
		}
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("background persist stopping")
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// scan persists every cached conversation that is approaching eviction.
// Individual failures are logged and do not abort the rest of the cycle.
func (s *persistScheduler) scan(ctx context.Context) {
	cache := s.manager.cache
	if !cache.Enumerable() {
		return
	}

	for _, chatID := range cache.ListKeys(ctx, "*") {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ttl, ok := cache.TTL(ctx, chatID)
		if !ok || ttl > s.cacheTTL-s.persistAt {
			continue
		}

		s.logger.Info("auto-persisting before TTL expiry",
			slog.String("chat_id", chatID),
			slog.Int("ttl", ttl),
		)

		data, ok := cache.Get(ctx, chatID)
		if !ok {
			continue
		}
		if !s.manager.persistWithMerge(ctx, chatID, data) {
			s.logger.Warn("background persist failed", slog.String("chat_id", chatID))
		}
	}
}
