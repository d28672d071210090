package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/scanner"
)

// TriggerScan starts a scan of one library. Mode is selected with
// ?mode=full or ?mode=incremental (the default). The scan runs inline;
// clients wanting fire-and-forget semantics poll the scheduler instead.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	opts := scanner.DefaultOptions()
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "incremental":
	case "full":
		opts.Incremental = false
	default:
		writeJSONError(w, "mode must be full or incremental", http.StatusBadRequest)
		return
	}

	result, err := h.orch.RunScan(r.Context(), id, opts)
	if err != nil {
		if errors.Is(err, database.ErrLibraryNotFound) {
			writeJSONError(w, "library not found", http.StatusNotFound)
			return
		}
		logging.Error("Scan failed for library %s: %v", id, err)
		writeJSONError(w, "scan failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Skipped {
		w.WriteHeader(http.StatusConflict)
	}
	writeJSON(w, result)
}

// scheduleRequest is the payload for configuring a library's scan schedule.
type scheduleRequest struct {
	Expression string `json:"expression"`
}

// UpdateSchedule installs, replaces, or (with autoScan off and no
// expression) removes the recurring scan for a library.
func (h *Handlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Expression != "" {
		if _, err := time.ParseDuration(req.Expression); err != nil {
			writeJSONError(w, "expression must be a duration like 30m or 6h", http.StatusBadRequest)
			return
		}
	}

	scheduled, err := h.scheduler.Configure(r.Context(), id, req.Expression)
	if err != nil {
		if errors.Is(err, database.ErrLibraryNotFound) {
			writeJSONError(w, "library not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to configure schedule for %s: %v", id, err)
		writeJSONError(w, "failed to configure schedule", http.StatusInternalServerError)
		return
	}

	if scheduled {
		writeJSONStatus(w, "scheduled")
	} else {
		writeJSONStatus(w, "unscheduled")
	}
}

// ListScheduledJobs returns every installed recurring job and its next
// run time.
func (h *Handlers) ListScheduledJobs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.scheduler.List())
}
