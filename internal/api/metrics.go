package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the JSON body of GET /api/v1/metrics.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Records       RecordMetrics   `json:"records"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics reports the broker connection. Enabled is false when no
// publisher is configured.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// RecordMetrics counts stored records.
type RecordMetrics struct {
	Machines      int `json:"machines"`
	Events        int `json:"events"`
	EnabledEvents int `json:"enabled_events"`
	Users         int `json:"users"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

const bytesPerMB = 1024 * 1024

// handleMetrics returns runtime, record and database statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT.Enabled = true
		if c, ok := s.mqtt.(interface{ IsConnected() bool }); ok {
			metrics.MQTT.Connected = c.IsConnected()
		}
	}

	records, err := s.recordMetrics(r)
	if err != nil {
		s.logger.Error("collecting record metrics failed", "error", err)
		writeInternalError(w, "failed to collect metrics")
		return
	}
	metrics.Records = records

	dbStats := s.db.Stats()
	metrics.Database = DatabaseMetrics{
		OpenConnections: dbStats.OpenConnections,
		InUse:           dbStats.InUse,
		Idle:            dbStats.Idle,
		WaitCount:       dbStats.WaitCount,
	}

	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) recordMetrics(r *http.Request) (RecordMetrics, error) {
	ctx := r.Context()
	var m RecordMetrics
	var err error

	if m.Machines, err = s.machines.Count(ctx); err != nil {
		return m, err
	}
	if m.Events, err = s.events.Count(ctx); err != nil {
		return m, err
	}
	enabled, err := s.events.ListEnabled(ctx)
	if err != nil {
		return m, err
	}
	m.EnabledEvents = len(enabled)
	if m.Users, err = s.users.Count(ctx); err != nil {
		return m, err
	}
	return m, nil
}
