package client

import (
	"context"
	"log/slog"
	"time"
)

// defaultRefreshInterval is how often the background loop checks the access
// token when no interval is given.
const defaultRefreshInterval = time.Minute

// StartAutoRefresh begins checking the access token every interval and
// refreshing it when it nears expiry. Starting again replaces any previous
// loop; only one runs at a time. The loop stops when ctx is cancelled, when
// [Store.Logout] is called, or when a refresh fails (which itself logs out).
func (s *Store) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancelRefresh != nil {
		s.cancelRefresh()
	}
	s.cancelRefresh = cancel
	s.mu.Unlock()

	go s.refreshLoop(runCtx, interval)
}

// StopAutoRefresh stops the background loop without touching the stored
// tokens.
func (s *Store) StopAutoRefresh() {
	s.mu.Lock()
	if s.cancelRefresh != nil {
		s.cancelRefresh()
		s.cancelRefresh = nil
	}
	s.mu.Unlock()
}

func (s *Store) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.EnsureFresh(ctx); err != nil {
				s.log.Debug("auto refresh stopped", slog.String("error", err.Error()))
				return
			}
		}
	}
}
