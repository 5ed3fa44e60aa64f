package server

import (
	"log/slog"
	"time"

	"github.com/linechat/linechat/pkg/protocol"
)

// startReaper launches the idle sweep loop. It runs on a fixed period
// independent of connection activity and stops with the server context.
func (s *Server) startReaper() {
	go func() {
		ticker := time.NewTicker(s.cfg.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-ticker.C:
				s.reapIdle(now)
			}
		}
	}()
}

// reapIdle evicts every authenticated session whose last activity predates
// now minus the idle timeout. The victim is told why, then its sink is
// closed; that unblocks the owning read loop, which runs the normal
// teardown including the departure broadcast. Sessions that never logged
// in are left alone.
func (s *Server) reapIdle(now time.Time) {
	deadline := now.Add(-s.cfg.IdleTimeout)
	for _, e := range s.registry.ExpireOlderThan(deadline) {
		slog.Info("evicting idle session", "user", e.Username, "session", e.ID)
		s.metrics.IdleEvictions.Add(1)
		e.Sink.WriteLine(protocol.Info("Disconnected due to inactivity"))
		e.Sink.Close()
	}
}
