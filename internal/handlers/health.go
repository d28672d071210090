package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-catalog/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

var startTime = time.Now()

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Libraries int `json:"libraries"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	libs, err := h.db.Libraries(r.Context())
	if err != nil {
		response.Status = statusDegraded
	} else {
		response.Libraries = len(libs)
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != statusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, response)
}

// LivenessCheck always returns 200 while the process is serving.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the database is reachable.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.db.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_ready"})
		return
	}
	writeJSONStatus(w, "ready")
}
