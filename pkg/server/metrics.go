package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	TotalConnections  atomic.Int64 // lifetime connections accepted (TCP + websocket)
	ActiveConnections atomic.Int64 // currently tracked sessions
	TotalDisconnects  atomic.Int64 // total disconnects (clean + unclean + evicted)

	LoginsOK     atomic.Int64 // successful LOGIN commands
	LoginsFailed atomic.Int64 // rejected LOGIN commands

	MessagesBroadcast atomic.Int64 // MSG broadcasts relayed
	DirectMessages    atomic.Int64 // DMs delivered
	UnknownCommands   atomic.Int64 // unrecognized verbs answered with ERR
	IdleEvictions     atomic.Int64 // sessions force-closed by the reaper
}

// NewMetrics creates a Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// MetricsSnapshot is a point-in-time, serializable view of all counters.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	TotalDisconnects  int64 `json:"total_disconnects"`

	LoginsOK     int64 `json:"logins_ok"`
	LoginsFailed int64 `json:"logins_failed"`

	MessagesBroadcast int64 `json:"messages_broadcast"`
	DirectMessages    int64 `json:"direct_messages"`
	UnknownCommands   int64 `json:"unknown_commands"`
	IdleEvictions     int64 `json:"idle_evictions"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:            uptime.Truncate(time.Second).String(),
		UptimeSeconds:     int64(uptime.Seconds()),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		TotalDisconnects:  m.TotalDisconnects.Load(),
		LoginsOK:          m.LoginsOK.Load(),
		LoginsFailed:      m.LoginsFailed.Load(),
		MessagesBroadcast: m.MessagesBroadcast.Load(),
		DirectMessages:    m.DirectMessages.Load(),
		UnknownCommands:   m.UnknownCommands.Load(),
		IdleEvictions:     m.IdleEvictions.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"logins_ok", s.LoginsOK,
		"broadcasts", s.MessagesBroadcast,
		"dms", s.DirectMessages,
		"idle_evictions", s.IdleEvictions,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
