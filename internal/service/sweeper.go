package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the periodic backstop for room cleanup. Rooms are deleted
// synchronously when their last member departs; the sweep only reclaims
// rooms whose deletion event was missed (lost events, process restarts).
type Sweeper struct {
	rooms *RoomService
	log   *slog.Logger

	interval  time.Duration
	retention time.Duration
}

func NewSweeper(rooms *RoomService, log *slog.Logger, interval, retention time.Duration) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		rooms:     rooms,
		log:       log,
		interval:  interval,
		retention: retention,
	}
}

// Run sweeps on a fixed interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			if n := s.rooms.SweepStale(ctx, s.retention); n > 0 {
				s.log.Info("sweep pass complete", slog.Int("reclaimed", n))
			}
		}
	}
}
