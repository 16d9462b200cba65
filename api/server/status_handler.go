package server

import (
	"net/http"
)

// StatusResponse is the /status reply consumed by the CLI.
type StatusResponse struct {
	Status      string      `json:"status"`
	Uptime      int64       `json:"uptime"`
	BlockHeight int         `json:"blockHeight"`
	Delegates   int         `json:"delegates"`
	Version     string      `json:"version"`
	APIVersion  string      `json:"apiVersion"`
	LastBlock   string      `json:"lastBlock"`
	Metrics     NodeMetrics `json:"metrics"`
}

// HandleStatus responds to /status with node status derived from the
// current metrics sample.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()

	status := "healthy"
	if metrics.BlockHeight == 0 {
		status = "initializing"
	} else if metrics.DelegateCount == 0 {
		status = "unconfigured"
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      status,
		Uptime:      metrics.UptimeSeconds,
		BlockHeight: metrics.BlockHeight,
		Delegates:   metrics.DelegateCount,
		Version:     NodeVersion(),
		APIVersion:  APIVersion(),
		LastBlock:   metrics.LastBlockTime,
		Metrics:     metrics,
	})
}
