package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
)

// libraryRequest is the payload for creating or updating a library.
type libraryRequest struct {
	Name         string `json:"name"`
	RootPath     string `json:"rootPath"`
	AutoScan     bool   `json:"autoScan"`
	ScanInterval string `json:"scanInterval,omitempty"`
}

func (req *libraryRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.RootPath == "" {
		return "rootPath is required"
	}
	if !filepath.IsAbs(req.RootPath) {
		return "rootPath must be absolute"
	}
	if req.ScanInterval != "" {
		if _, err := time.ParseDuration(req.ScanInterval); err != nil {
			return "scanInterval must be a duration like 30m or 6h"
		}
	}
	info, err := os.Stat(req.RootPath)
	if err != nil {
		return "rootPath does not exist"
	}
	if !info.IsDir() {
		return "rootPath is not a directory"
	}
	return ""
}

// CreateLibrary registers a new library and schedules it when autoScan
// is set.
func (h *Handlers) CreateLibrary(w http.ResponseWriter, r *http.Request) {
	var req libraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSONError(w, msg, http.StatusBadRequest)
		return
	}

	lib := &database.Library{
		Name:         req.Name,
		RootPath:     filepath.Clean(req.RootPath),
		AutoScan:     req.AutoScan,
		ScanInterval: req.ScanInterval,
	}
	if err := h.db.CreateLibrary(r.Context(), lib); err != nil {
		logging.Error("Failed to create library %q: %v", req.Name, err)
		writeJSONError(w, "failed to create library", http.StatusInternalServerError)
		return
	}

	if lib.AutoScan {
		if _, err := h.scheduler.Configure(r.Context(), lib.ID, lib.ScanInterval); err != nil {
			logging.Warn("Failed to schedule library %s: %v", lib.ID, err)
		}
	}

	logging.Info("Library created: %s (%s)", lib.Name, lib.RootPath)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, lib)
}

// ListLibraries returns all registered libraries.
func (h *Handlers) ListLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := h.db.Libraries(r.Context())
	if err != nil {
		logging.Error("Failed to list libraries: %v", err)
		writeJSONError(w, "failed to list libraries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, libs)
}

// GetLibrary returns a single library by id.
func (h *Handlers) GetLibrary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	lib, err := h.db.LibraryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrLibraryNotFound) {
			writeJSONError(w, "library not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to get library %s: %v", id, err)
		writeJSONError(w, "failed to get library", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, lib)
}

// UpdateLibrary changes a library's name and scan settings. The root
// path cannot change; delete and recreate the library instead.
func (h *Handlers) UpdateLibrary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	lib, err := h.db.LibraryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrLibraryNotFound) {
			writeJSONError(w, "library not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to get library %s: %v", id, err)
		writeJSONError(w, "failed to get library", http.StatusInternalServerError)
		return
	}

	var req libraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.RootPath != "" && filepath.Clean(req.RootPath) != lib.RootPath {
		writeJSONError(w, "rootPath cannot be changed", http.StatusBadRequest)
		return
	}
	if req.ScanInterval != "" {
		if _, err := time.ParseDuration(req.ScanInterval); err != nil {
			writeJSONError(w, "scanInterval must be a duration like 30m or 6h", http.StatusBadRequest)
			return
		}
	}

	lib.Name = req.Name
	lib.AutoScan = req.AutoScan
	lib.ScanInterval = req.ScanInterval
	if err := h.db.SaveLibrary(r.Context(), lib); err != nil {
		logging.Error("Failed to update library %s: %v", id, err)
		writeJSONError(w, "failed to update library", http.StatusInternalServerError)
		return
	}

	// Reconcile the schedule with the new settings. No explicit expression
	// here: the stored auto-scan flag decides whether a trigger survives.
	// Expression overrides belong to UpdateSchedule.
	if _, err := h.scheduler.Configure(r.Context(), lib.ID, ""); err != nil {
		logging.Warn("Failed to reconfigure schedule for %s: %v", lib.ID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, lib)
}

// DeleteLibrary removes a library, its schedule, and (via cascade) all
// of its media records.
func (h *Handlers) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	h.scheduler.Unschedule(id)

	if err := h.db.DeleteLibrary(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrLibraryNotFound) {
			writeJSONError(w, "library not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to delete library %s: %v", id, err)
		writeJSONError(w, "failed to delete library", http.StatusInternalServerError)
		return
	}

	logging.Info("Library deleted: %s", id)
	writeJSONStatus(w, "deleted")
}

// ListLibraryMedia returns every media record in a library.
func (h *Handlers) ListLibraryMedia(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.db.LibraryByID(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrLibraryNotFound) {
			writeJSONError(w, "library not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to get library %s: %v", id, err)
		writeJSONError(w, "failed to get library", http.StatusInternalServerError)
		return
	}

	records, err := h.db.MediaByLibrary(r.Context(), id)
	if err != nil {
		logging.Error("Failed to list media for library %s: %v", id, err)
		writeJSONError(w, "failed to list media", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, records)
}
