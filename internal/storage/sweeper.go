package storage

// sweeper.go runs the periodic cleanup of abandoned conversion files.
//
// Files normally disappear as soon as their report is downloaded. Requests
// that die half-way (client disconnects, timeouts, crashes) leave files
// behind; the sweeper removes them once they are older than MaxAge. It is
// long-running and context-aware for graceful shutdown, and it only logs
// failures.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig holds the sweeper schedule.
type SweepConfig struct {
	Interval time.Duration // How often to sweep (default: 10m)
	MaxAge   time.Duration // Minimum age of files to delete (default: 1h)
}

// StartSweeper sweeps immediately, then every Interval until ctx is cancelled.
func (s *TempStore) StartSweeper(ctx context.Context, cfg SweepConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}

	slog.Info("temp file sweeper started",
		"dir", s.Dir,
		"interval", cfg.Interval,
		"max_age", cfg.MaxAge,
	)

	s.runSweep(cfg.MaxAge)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("temp file sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(cfg.MaxAge)
		}
	}
}

func (s *TempStore) runSweep(maxAge time.Duration) {
	start := time.Now()
	removed, err := s.Sweep(maxAge)
	if err != nil {
		slog.Error("temp file sweep failed", "error", err, "removed", removed)
		return
	}
	if removed > 0 {
		slog.Info("removed stale temp files",
			"files_removed", removed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
