package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StartMetricsHTTP starts a lightweight HTTP server exposing /metrics in
// Prometheus text exposition format plus a /healthz probe. It runs in the
// background and shuts down when the server context is cancelled. Disabled
// when no metrics address is configured.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}

// handleMetrics writes all counters in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to the ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	_, _ = fmt.Fprintf(w, "# HELP linechat_uptime_seconds Server uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE linechat_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "linechat_uptime_seconds %f\n", uptime)

	write("linechat_sessions_active", "Currently tracked sessions.", "gauge",
		m.ActiveConnections.Load())
	write("linechat_connections_total", "Lifetime connections accepted.", "counter",
		m.TotalConnections.Load())
	write("linechat_disconnects_total", "Total client disconnects.", "counter",
		m.TotalDisconnects.Load())

	write("linechat_logins_ok_total", "Successful LOGIN commands.", "counter",
		m.LoginsOK.Load())
	write("linechat_logins_failed_total", "Rejected LOGIN commands.", "counter",
		m.LoginsFailed.Load())

	write("linechat_broadcasts_total", "MSG broadcasts relayed.", "counter",
		m.MessagesBroadcast.Load())
	write("linechat_direct_messages_total", "Direct messages delivered.", "counter",
		m.DirectMessages.Load())
	write("linechat_unknown_commands_total", "Unrecognized verbs rejected.", "counter",
		m.UnknownCommands.Load())
	write("linechat_idle_evictions_total", "Sessions evicted for inactivity.", "counter",
		m.IdleEvictions.Load())
}
