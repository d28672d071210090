package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"media-catalog/internal/logging"
)

const (
	scanTriggerPrefix  = "scan-"
	cleanupTriggerName = "thumbnail-cleanup"
)

// ScheduledJob describes one installed recurring trigger.
type ScheduledJob struct {
	LibraryID  string    `json:"libraryId,omitempty"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	NextRun    time.Time `json:"nextRun"`
}

// Scheduler maintains one recurring trigger per auto-scan library and
// exposes manual trigger and re-schedule operations. Double-firing is
// harmless: the orchestrator's overlap guard turns it into a skip.
type Scheduler struct {
	libraries LibraryStore
	orch      *Orchestrator
	registry  TriggerRegistry

	// defaultExpression is used when a library has auto-scan enabled but
	// no schedule of its own.
	defaultExpression string

	// Thumbnail-orphan cleanup: independent of library scans, installed
	// once at startup when configured.
	cleanupFn         func()
	cleanupExpression string

	mu   sync.Mutex
	jobs map[string]string // library id -> expression
}

// NewScheduler creates a scheduler over the given trigger registry.
func NewScheduler(libraries LibraryStore, orch *Orchestrator, registry TriggerRegistry, defaultExpression string) *Scheduler {
	return &Scheduler{
		libraries:         libraries,
		orch:              orch,
		registry:          registry,
		defaultExpression: defaultExpression,
		jobs:              make(map[string]string),
	}
}

// SetCleanupTask configures the recurring thumbnail-orphan cleanup task
// installed at Start. Must be called before Start.
func (s *Scheduler) SetCleanupTask(expression string, fn func()) {
	s.cleanupExpression = expression
	s.cleanupFn = fn
}

// Start installs triggers for every library currently flagged for
// auto-scan, plus the cleanup task if configured.
func (s *Scheduler) Start(ctx context.Context) error {
	libs, err := s.libraries.Libraries(ctx)
	if err != nil {
		return err
	}

	installed := 0
	for i := range libs {
		lib := &libs[i]
		if !lib.AutoScan {
			continue
		}
		ok, err := s.Configure(ctx, lib.ID, lib.ScanInterval)
		if err != nil {
			logging.Error("Failed to schedule library %s: %v", lib.ID, err)
			continue
		}
		if ok {
			installed++
		}
	}
	logging.Info("Scheduler started: %d of %d libraries on auto-scan", installed, len(libs))

	if s.cleanupFn != nil && s.cleanupExpression != "" {
		if err := s.registry.Install(cleanupTriggerName, s.cleanupExpression, s.cleanupFn); err != nil {
			logging.Warn("Failed to install thumbnail cleanup task: %v", err)
		}
	}

	return nil
}

// Configure installs (or replaces) the recurring scan trigger for a
// library. An existing trigger is always torn down first, so
// reconfiguration is idempotent. When the library's auto-scan flag is
// off and no explicit expression is supplied, no trigger is installed
// and Configure reports false.
func (s *Scheduler) Configure(ctx context.Context, libraryID, expression string) (bool, error) {
	lib, err := s.libraries.LibraryByID(ctx, libraryID)
	if err != nil {
		return false, err
	}

	name := scanTriggerPrefix + libraryID
	s.registry.Remove(name)
	s.mu.Lock()
	delete(s.jobs, libraryID)
	s.mu.Unlock()

	if !lib.AutoScan && expression == "" {
		logging.Debug("Library %s has auto-scan disabled, no trigger installed", libraryID)
		return false, nil
	}

	if expression == "" {
		expression = lib.ScanInterval
	}
	if expression == "" {
		expression = s.defaultExpression
	}

	id := libraryID // capture for the trigger closure
	if err := s.registry.Install(name, expression, func() { s.runScheduled(id) }); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.jobs[libraryID] = expression
	s.mu.Unlock()

	logging.Info("Scheduled library %s: incremental scan every %s", libraryID, expression)
	return true, nil
}

// Trigger runs an incremental scan for the library immediately, subject
// to the same overlap guard as any other invocation.
func (s *Scheduler) Trigger(ctx context.Context, libraryID string) (*Result, error) {
	return s.orch.RunScan(ctx, libraryID, DefaultOptions())
}

// Unschedule tears down a library's trigger, if any. Called when a
// library is deleted.
func (s *Scheduler) Unschedule(libraryID string) {
	s.registry.Remove(scanTriggerPrefix + libraryID)
	s.mu.Lock()
	delete(s.jobs, libraryID)
	s.mu.Unlock()
}

// List returns the currently installed jobs, sorted by library id.
func (s *Scheduler) List() []ScheduledJob {
	s.mu.Lock()
	jobs := make([]ScheduledJob, 0, len(s.jobs)+1)
	for libraryID, expression := range s.jobs {
		job := ScheduledJob{
			LibraryID:  libraryID,
			Name:       scanTriggerPrefix + libraryID,
			Expression: expression,
		}
		if next, ok := s.registry.NextRunTime(job.Name); ok {
			job.NextRun = next
		}
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	if next, ok := s.registry.NextRunTime(cleanupTriggerName); ok {
		jobs = append(jobs, ScheduledJob{
			Name:       cleanupTriggerName,
			Expression: s.cleanupExpression,
			NextRun:    next,
		})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// runScheduled is the trigger callback: an incremental scan with a
// background context, since the firing outlives any request.
func (s *Scheduler) runScheduled(libraryID string) {
	res, err := s.orch.RunScan(context.Background(), libraryID, DefaultOptions())
	if err != nil {
		logging.Error("Scheduled scan of library %s failed: %v", libraryID, err)
		return
	}
	if res.Skipped {
		logging.Debug("Scheduled scan of library %s skipped (already running)", libraryID)
	}
}
