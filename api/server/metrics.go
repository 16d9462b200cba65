package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
)

// NodeMetrics holds granular health metrics for the node.
type NodeMetrics struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	BlockHeight    int     `json:"block_height"`
	RecordCount    int     `json:"record_count"`
	PendingTxs     int     `json:"pending_txs"`
	DelegateCount  int     `json:"delegate_count"`
	CPULoadPercent float64 `json:"cpu_load_percent"`
	MemoryMB       float64 `json:"memory_mb"`
	DiskFreeMB     float64 `json:"disk_free_mb"`
	LastBlockTime  string  `json:"last_block_time"`
}

var startTime = time.Now()

// GetNodeMetrics samples current health metrics.
func (s *Server) GetNodeMetrics() NodeMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuLoad := 0.0
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		cpuLoad = percents[0]
	}

	diskFreeMB := 0.0
	if usage, err := disk.Usage("/"); err == nil {
		diskFreeMB = float64(usage.Free) / (1024 * 1024)
	}

	tip := s.ledger.Tip()
	return NodeMetrics{
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		BlockHeight:    s.ledger.Height(),
		RecordCount:    s.ledger.RecordCount(),
		PendingTxs:     s.pool.Len(),
		DelegateCount:  s.eng.ActiveCount(),
		CPULoadPercent: cpuLoad,
		MemoryMB:       float64(m.Alloc) / (1024 * 1024),
		DiskFreeMB:     diskFreeMB,
		LastBlockTime:  tip.Timestamp.UTC().Format(time.RFC3339),
	}
}

// HandleMetrics responds to /metrics with the full metrics sample.
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetNodeMetrics())
}
