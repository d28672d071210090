package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"media-catalog/internal/database"
	"media-catalog/internal/enrichment"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/scanner"
)

type fixture struct {
	db     *database.Database
	orch   *scanner.Orchestrator
	sched  *scanner.Scheduler
	router *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	retry := filesystem.DefaultRetryConfig()
	extractor := enrichment.NewExtractor(db, retry)
	thumbnailer := enrichment.NewThumbnailer(db, filepath.Join(t.TempDir(), "thumbs"), true)
	categorizer := enrichment.NewCategorizer(db)
	orch := scanner.NewOrchestrator(db, db, extractor, thumbnailer, categorizer, retry, 2)

	registry := scanner.NewIntervalRegistry()
	t.Cleanup(registry.Stop)
	sched := scanner.NewScheduler(db, orch, registry, "30m")

	h := New(db, orch, sched)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/libraries", h.CreateLibrary).Methods("POST")
	api.HandleFunc("/libraries", h.ListLibraries).Methods("GET")
	api.HandleFunc("/libraries/{id}", h.GetLibrary).Methods("GET")
	api.HandleFunc("/libraries/{id}", h.UpdateLibrary).Methods("PUT")
	api.HandleFunc("/libraries/{id}", h.DeleteLibrary).Methods("DELETE")
	api.HandleFunc("/libraries/{id}/media", h.ListLibraryMedia).Methods("GET")
	api.HandleFunc("/libraries/{id}/scan", h.TriggerScan).Methods("POST")
	api.HandleFunc("/libraries/{id}/schedule", h.UpdateSchedule).Methods("PUT")
	api.HandleFunc("/scheduler/jobs", h.ListScheduledJobs).Methods("GET")

	return &fixture{db: db, orch: orch, sched: sched, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createLibrary(t *testing.T, rootPath string) *database.Library {
	t.Helper()

	rec := f.do(t, "POST", "/api/libraries", map[string]any{
		"name":     "Test",
		"rootPath": rootPath,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var lib database.Library
	if err := json.Unmarshal(rec.Body.Bytes(), &lib); err != nil {
		t.Fatalf("Failed to decode library: %v", err)
	}
	return &lib
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		rec := f.do(t, "GET", path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200 for %s, got %d", path, rec.Code)
		}
	}
}

func TestVersionEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var info map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to decode version: %v", err)
	}
	if info["version"] == "" {
		t.Error("Expected version field")
	}
}

func TestCreateLibrary(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()

	lib := f.createLibrary(t, root)
	if lib.ID == "" {
		t.Error("Expected generated id")
	}
	if lib.RootPath != root {
		t.Errorf("Expected root %s, got %s", root, lib.RootPath)
	}
}

func TestCreateLibraryValidation(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"rootPath": root}},
		{"missing root", map[string]any{"name": "x"}},
		{"relative root", map[string]any{"name": "x", "rootPath": "relative/path"}},
		{"nonexistent root", map[string]any{"name": "x", "rootPath": filepath.Join(root, "nope")}},
		{"root is a file", map[string]any{"name": "x", "rootPath": file}},
		{"bad interval", map[string]any{"name": "x", "rootPath": root, "scanInterval": "often"}},
	}

	for _, tt := range tests {
		rec := f.do(t, "POST", "/api/libraries", tt.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.name, rec.Code)
		}
	}
}

func TestGetAndListLibraries(t *testing.T) {
	f := newFixture(t)
	lib := f.createLibrary(t, t.TempDir())

	rec := f.do(t, "GET", "/api/libraries/"+lib.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/libraries/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown library, got %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/libraries", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var libs []database.Library
	if err := json.Unmarshal(rec.Body.Bytes(), &libs); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(libs) != 1 {
		t.Errorf("Expected 1 library, got %d", len(libs))
	}
}

func TestUpdateLibrary(t *testing.T) {
	f := newFixture(t)
	lib := f.createLibrary(t, t.TempDir())

	rec := f.do(t, "PUT", "/api/libraries/"+lib.ID, map[string]any{
		"name":         "Renamed",
		"autoScan":     true,
		"scanInterval": "15m",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got database.Library
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode library: %v", err)
	}
	if got.Name != "Renamed" || !got.AutoScan || got.ScanInterval != "15m" {
		t.Errorf("Unexpected library after update: %+v", got)
	}

	// Enabling auto-scan also installs a schedule.
	jobs := f.sched.List()
	if len(jobs) != 1 {
		t.Errorf("Expected 1 scheduled job, got %v", jobs)
	}

	// Root path cannot change.
	rec = f.do(t, "PUT", "/api/libraries/"+lib.ID, map[string]any{
		"name":     "Renamed",
		"rootPath": "/somewhere/else",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for root path change, got %d", rec.Code)
	}
}

func TestUpdateLibraryDisableAutoScan(t *testing.T) {
	f := newFixture(t)
	lib := f.createLibrary(t, t.TempDir())

	rec := f.do(t, "PUT", "/api/libraries/"+lib.ID, map[string]any{
		"name":         "Test",
		"autoScan":     true,
		"scanInterval": "45m",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if jobs := f.sched.List(); len(jobs) != 1 {
		t.Fatalf("Expected 1 scheduled job, got %v", jobs)
	}

	// Turning auto-scan off tears the trigger down even though the
	// library keeps its scan interval.
	rec = f.do(t, "PUT", "/api/libraries/"+lib.ID, map[string]any{
		"name":         "Test",
		"autoScan":     false,
		"scanInterval": "45m",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if jobs := f.sched.List(); len(jobs) != 0 {
		t.Errorf("Expected no scheduled jobs with auto-scan off, got %v", jobs)
	}
}

func TestDeleteLibrary(t *testing.T) {
	f := newFixture(t)
	lib := f.createLibrary(t, t.TempDir())

	rec := f.do(t, "DELETE", "/api/libraries/"+lib.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = f.do(t, "DELETE", "/api/libraries/"+lib.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for second delete, got %d", rec.Code)
	}
}

func TestTriggerScan(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("Failed to write media file: %v", err)
	}
	lib := f.createLibrary(t, root)

	rec := f.do(t, "POST", "/api/libraries/"+lib.ID+"/scan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	f.orch.Drain()

	var res scanner.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if res.Mode != "incremental" {
		t.Errorf("Expected incremental default, got %s", res.Mode)
	}
	if res.Added != 1 {
		t.Errorf("Expected 1 added, got %+v", res)
	}

	rec = f.do(t, "GET", "/api/libraries/"+lib.ID+"/media", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var records []database.MediaRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("Failed to decode media: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}
}

func TestTriggerScanModes(t *testing.T) {
	f := newFixture(t)
	lib := f.createLibrary(t, t.TempDir())

	rec := f.do(t, "POST", "/api/libraries/"+lib.ID+"/scan?mode=full", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var res scanner.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if res.Mode != "full" {
		t.Errorf("Expected full mode, got %s", res.Mode)
	}

	rec = f.do(t, "POST", "/api/libraries/"+lib.ID+"/scan?mode=sideways", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad mode, got %d", rec.Code)
	}

	rec = f.do(t, "POST", "/api/libraries/nope/scan", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown library, got %d", rec.Code)
	}
}

func TestUpdateSchedule(t *testing.T) {
	f := newFixture(t)
	lib := f.createLibrary(t, t.TempDir())

	rec := f.do(t, "PUT", "/api/libraries/"+lib.ID+"/schedule", map[string]any{"expression": "10m"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, "GET", "/api/scheduler/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var jobs []scanner.ScheduledJob
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("Failed to decode jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Expression != "10m" {
		t.Errorf("Expected one 10m job, got %v", jobs)
	}

	// An empty expression on a non-auto-scan library unschedules.
	rec = f.do(t, "PUT", "/api/libraries/"+lib.ID+"/schedule", map[string]any{"expression": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if len(f.sched.List()) != 0 {
		t.Errorf("Expected no jobs after unschedule, got %v", f.sched.List())
	}

	rec = f.do(t, "PUT", "/api/libraries/"+lib.ID+"/schedule", map[string]any{"expression": "often"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad expression, got %d", rec.Code)
	}

	rec = f.do(t, "PUT", "/api/libraries/nope/schedule", map[string]any{"expression": "10m"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown library, got %d", rec.Code)
	}
}
