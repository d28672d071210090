package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
)

// Options controls a single scan invocation.
type Options struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// MaxDepth limits descent; 0 means unlimited.
	MaxDepth int
	// Incremental reconciles additions, modifications, and deletions.
	// A full (non-incremental) scan is additive discovery only: it never
	// removes records, even for files deleted since the last pass.
	Incremental bool
}

// DefaultOptions returns the options used by scheduled triggers.
func DefaultOptions() Options {
	return Options{Recursive: true, Incremental: true}
}

func (o Options) mode() string {
	if o.Incremental {
		return "incremental"
	}
	return "full"
}

// Result reports the aggregate outcome of one scan. Per-file detail is
// available only through logs.
type Result struct {
	LibraryID string        `json:"libraryId"`
	Mode      string        `json:"mode"`
	Skipped   bool          `json:"skipped"`
	Added     int           `json:"added"`
	Modified  int           `json:"modified"`
	Deleted   int           `json:"deleted"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"-"`
}

// newMedia is a record created during the current scan, queued for the
// post-scan enrichment fan-out.
type newMedia struct {
	id        string
	mediaType mediatypes.MediaType
}

// Orchestrator runs full and incremental scans for libraries and fans out
// enrichment work for newly created and modified records. At most one
// scan runs per library at any instant.
type Orchestrator struct {
	media       MediaStore
	libraries   LibraryStore
	walker      *Walker
	detector    *Detector
	metadata    MetadataExtractor
	thumbs      ThumbnailGenerator
	categorizer Categorizer
	retry       filesystem.RetryConfig

	// enrichLimit bounds concurrent enrichment tasks in the fan-out.
	enrichLimit int

	active   activeSet
	enrichWG sync.WaitGroup
}

// NewOrchestrator wires the scan engine together. enrichLimit must be > 0.
func NewOrchestrator(
	media MediaStore,
	libraries LibraryStore,
	metadata MetadataExtractor,
	thumbs ThumbnailGenerator,
	categorizer Categorizer,
	retry filesystem.RetryConfig,
	enrichLimit int,
) *Orchestrator {
	walker := NewWalker(retry)
	return &Orchestrator{
		media:       media,
		libraries:   libraries,
		walker:      walker,
		detector:    NewDetector(media, walker, retry),
		metadata:    metadata,
		thumbs:      thumbs,
		categorizer: categorizer,
		retry:       retry,
		enrichLimit: enrichLimit,
		active:      activeSet{ids: make(map[string]struct{})},
	}
}

// RunScan executes one scan for the library. If a scan is already running
// for the same library the invocation is a deliberate no-op (backpressure
// against overlapping triggers) and the returned result has Skipped set.
func (o *Orchestrator) RunScan(ctx context.Context, libraryID string, opts Options) (*Result, error) {
	lib, err := o.libraries.LibraryByID(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	if !o.active.tryAdd(libraryID) {
		logging.Info("Scan already in progress for library %s (%s), skipping", lib.Name, libraryID)
		metrics.ScanOverlapSkipped.Inc()
		return &Result{LibraryID: libraryID, Mode: opts.mode(), Skipped: true}, nil
	}
	defer o.active.remove(libraryID)

	metrics.ScansActive.Inc()
	defer metrics.ScansActive.Dec()

	start := time.Now()
	logging.Info("Starting %s scan of library %s (%s)", opts.mode(), lib.Name, lib.RootPath)

	res := &Result{LibraryID: libraryID, Mode: opts.mode()}
	var created []newMedia

	if opts.Incremental {
		err = o.runIncremental(ctx, lib, opts, res, &created)
	} else {
		err = o.runFull(ctx, lib, opts, res, &created)
	}
	if err != nil {
		metrics.ScanErrors.Inc()
		return nil, fmt.Errorf("scan of library %s failed: %w", libraryID, err)
	}

	// The index is now consistent with the filesystem; enrichment of the
	// new records continues in the background.
	if err := o.libraries.TouchLibraryScanned(ctx, libraryID, time.Now()); err != nil {
		logging.Warn("Failed to update last-scanned time for library %s: %v", libraryID, err)
	}

	res.Duration = time.Since(start)
	metrics.ScanRunsTotal.WithLabelValues(res.Mode).Inc()
	metrics.ScanDuration.WithLabelValues(res.Mode).Observe(res.Duration.Seconds())

	logging.Info("Scan of library %s complete: %d added, %d modified, %d deleted, %d failed in %v",
		lib.Name, res.Added, res.Modified, res.Deleted, res.Failed, res.Duration)

	o.fanOutEnrichment(created)

	return res, nil
}

// IsScanning reports whether a scan is currently running for the library.
func (o *Orchestrator) IsScanning(libraryID string) bool {
	return o.active.contains(libraryID)
}

// Drain blocks until all in-flight enrichment fan-outs have finished.
// Used during shutdown.
func (o *Orchestrator) Drain() {
	o.enrichWG.Wait()
}

// runFull walks the library root and creates records for files the index
// does not know yet. Existing records are left untouched and deletions
// are not reconciled; only incremental scans remove records.
func (o *Orchestrator) runFull(ctx context.Context, lib *database.Library, opts Options, res *Result, created *[]newMedia) error {
	walkOpts := WalkOptions{Recursive: opts.Recursive, MaxDepth: opts.MaxDepth}

	return o.walker.Walk(lib.RootPath, walkOpts, func(path string, info os.FileInfo) error {
		if !mediatypes.IsMediaFile(strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		relPath, err := filepath.Rel(lib.RootPath, path)
		if err != nil {
			logging.Warn("Skipping %s: %v", path, err)
			return nil
		}

		_, err = o.media.MediaByRelativePath(ctx, lib.ID, relPath)
		if err == nil {
			return nil // already indexed
		}
		if !errors.Is(err, database.ErrMediaNotFound) {
			logging.Error("Index lookup failed for %s: %v", relPath, err)
			res.Failed++
			metrics.ItemFailures.Inc()
			return nil
		}

		if rec := o.createRecord(ctx, lib, path, relPath, info.Size(), res); rec != nil {
			*created = append(*created, newMedia{id: rec.ID, mediaType: rec.Type})
			res.Added++
		}
		return nil
	})
}

// runIncremental applies the three change classes computed by the
// detector.
func (o *Orchestrator) runIncremental(ctx context.Context, lib *database.Library, opts Options, res *Result, created *[]newMedia) error {
	walkOpts := WalkOptions{Recursive: opts.Recursive, MaxDepth: opts.MaxDepth}

	changes, err := o.detector.Detect(ctx, lib, walkOpts)
	if err != nil {
		return err
	}

	for _, path := range changes.Added {
		relPath, relErr := filepath.Rel(lib.RootPath, path)
		if relErr != nil {
			logging.Warn("Skipping %s: %v", path, relErr)
			continue
		}
		info, statErr := filesystem.StatWithRetry(path, o.retry)
		if statErr != nil {
			logging.Warn("File %s vanished before it could be indexed: %v", path, statErr)
			continue
		}
		if rec := o.createRecord(ctx, lib, path, relPath, info.Size(), res); rec != nil {
			*created = append(*created, newMedia{id: rec.ID, mediaType: rec.Type})
			res.Added++
		}
	}

	for _, path := range changes.Modified {
		if o.refreshRecord(ctx, lib, path, res) {
			res.Modified++
		}
	}

	for _, path := range changes.Deleted {
		if o.removeRecord(ctx, lib, path, res) {
			res.Deleted++
		}
	}

	// Records indexed in an earlier scan but never fully enriched recover
	// here. Paths touched by this scan already had their extraction run
	// (or their record removed) above.
	touched := make(map[string]struct{})
	for _, paths := range [][]string{changes.Added, changes.Modified, changes.Deleted} {
		for _, path := range paths {
			if relPath, relErr := filepath.Rel(lib.RootPath, path); relErr == nil {
				touched[relPath] = struct{}{}
			}
		}
	}
	o.reprobeUnprocessed(ctx, lib, touched, created)

	return nil
}

// reprobeUnprocessed re-runs metadata extraction for partial records
// (processed=false) and queues them for the enrichment fan-out, skipping
// relative paths the current scan already handled.
func (o *Orchestrator) reprobeUnprocessed(ctx context.Context, lib *database.Library, skip map[string]struct{}, created *[]newMedia) {
	stale, err := o.media.UnprocessedMedia(ctx, lib.ID)
	if err != nil {
		logging.Warn("Failed to list unenriched records for library %s: %v", lib.Name, err)
		return
	}

	healed := 0
	for i := range stale {
		rec := &stale[i]
		if _, ok := skip[rec.RelativePath]; ok {
			continue
		}
		id := rec.ID
		o.enrich("metadata", func() error { return o.metadata.Extract(ctx, id) })
		*created = append(*created, newMedia{id: id, mediaType: rec.Type})
		healed++
	}
	if healed > 0 {
		logging.Info("Re-enriching %d partial records in library %s", healed, lib.Name)
	}
}

// createRecord persists a record for a newly discovered file and runs
// metadata extraction and content hashing for it. Returns nil when
// persistence fails; enrichment failures leave a partial record behind
// (processed=false) that self-heals on the next scan.
func (o *Orchestrator) createRecord(ctx context.Context, lib *database.Library, path, relPath string, size int64, res *Result) *database.MediaRecord {
	rec := &database.MediaRecord{
		LibraryID:    lib.ID,
		Path:         path,
		RelativePath: relPath,
		Type:         mediatypes.GetMediaType(strings.ToLower(filepath.Ext(path))),
		Size:         size,
	}

	if err := o.media.CreateMedia(ctx, rec); err != nil {
		logging.Error("Failed to persist record for %s: %v", relPath, err)
		res.Failed++
		metrics.ItemFailures.Inc()
		return nil
	}

	// Hash before extraction: Extract loads the record, saves its own
	// fields, and must not be overwritten by this copy afterwards.
	if hash, err := HashFile(path, o.retry); err != nil {
		logging.Warn("Failed to hash %s: %v", path, err)
	} else {
		rec.FileHash = hash
		if err := o.media.SaveMedia(ctx, rec); err != nil {
			logging.Warn("Failed to store hash for %s: %v", relPath, err)
		}
	}

	o.enrich("metadata", func() error { return o.metadata.Extract(ctx, rec.ID) })

	return rec
}

// refreshRecord re-probes a modified file: metadata, hash, thumbnail (for
// videos), and categorization.
func (o *Orchestrator) refreshRecord(ctx context.Context, lib *database.Library, path string, res *Result) bool {
	relPath, err := filepath.Rel(lib.RootPath, path)
	if err != nil {
		logging.Warn("Skipping %s: %v", path, err)
		return false
	}

	rec, err := o.media.MediaByRelativePath(ctx, lib.ID, relPath)
	if err != nil {
		logging.Error("Modified file %s has no index record: %v", relPath, err)
		res.Failed++
		metrics.ItemFailures.Inc()
		return false
	}

	info, err := filesystem.StatWithRetry(path, o.retry)
	if err != nil {
		logging.Warn("File %s vanished during refresh: %v", path, err)
		return false
	}
	rec.Size = info.Size()

	if hash, hashErr := HashFile(path, o.retry); hashErr != nil {
		logging.Warn("Failed to rehash %s: %v", path, hashErr)
	} else {
		rec.FileHash = hash
	}

	if err := o.media.SaveMedia(ctx, rec); err != nil {
		logging.Error("Failed to save refreshed record for %s: %v", relPath, err)
		res.Failed++
		metrics.ItemFailures.Inc()
		return false
	}

	o.enrich("metadata", func() error { return o.metadata.Extract(ctx, rec.ID) })

	if rec.Type == mediatypes.TypeVideo {
		o.enrich("thumbnail", func() error {
			_, genErr := o.thumbs.Generate(ctx, rec.ID)
			return genErr
		})
	}

	o.enrich("categorize", func() error {
		_, catErr := o.categorizer.Categorize(ctx, rec.ID)
		return catErr
	})

	return true
}

// removeRecord deletes the index record for a vanished file and makes a
// best-effort attempt to remove its thumbnail.
func (o *Orchestrator) removeRecord(ctx context.Context, lib *database.Library, path string, res *Result) bool {
	relPath, err := filepath.Rel(lib.RootPath, path)
	if err != nil {
		logging.Warn("Skipping %s: %v", path, err)
		return false
	}

	rec, err := o.media.MediaByRelativePath(ctx, lib.ID, relPath)
	if err != nil {
		logging.Warn("Deleted file %s has no index record: %v", relPath, err)
		return false
	}

	if err := o.media.DeleteMedia(ctx, rec); err != nil {
		logging.Error("Failed to delete record for %s: %v", relPath, err)
		res.Failed++
		metrics.ItemFailures.Inc()
		return false
	}

	if thumbPath := o.thumbs.ThumbnailPath(rec.ID); thumbPath != "" {
		if err := o.thumbs.DeleteFile(thumbPath); err != nil {
			logging.Warn("Failed to delete thumbnail for %s: %v", relPath, err)
		}
	}

	return true
}

// fanOutEnrichment schedules thumbnail generation for newly created
// videos and categorization for all newly created records. The fan-out
// runs in the background with its own failure isolation; one item's
// failure never affects siblings or the scan's own success.
func (o *Orchestrator) fanOutEnrichment(created []newMedia) {
	if len(created) == 0 {
		return
	}

	o.enrichWG.Add(1)
	go func() {
		defer o.enrichWG.Done()

		// Scan-request contexts are short-lived; enrichment outlives them.
		ctx := context.Background()

		g := &errgroup.Group{}
		g.SetLimit(o.enrichLimit)

		for _, m := range created {
			m := m
			if m.mediaType == mediatypes.TypeVideo {
				g.Go(func() error {
					o.enrich("thumbnail", func() error {
						_, err := o.thumbs.Generate(ctx, m.id)
						return err
					})
					return nil
				})
			}
			g.Go(func() error {
				o.enrich("categorize", func() error {
					_, err := o.categorizer.Categorize(ctx, m.id)
					return err
				})
				return nil
			})
		}

		_ = g.Wait()
		logging.Debug("Enrichment fan-out complete for %d new records", len(created))
	}()
}

// enrich runs one enrichment step, recording outcome metrics. Failures
// are logged and swallowed.
func (o *Orchestrator) enrich(kind string, fn func() error) {
	start := time.Now()
	err := fn()
	metrics.EnrichmentDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EnrichmentsTotal.WithLabelValues(kind, "error").Inc()
		logging.Warn("Enrichment (%s) failed: %v", kind, err)
		return
	}
	metrics.EnrichmentsTotal.WithLabelValues(kind, "success").Inc()
}

// activeSet is the per-library mutual exclusion set. tryAdd has
// add-if-absent semantics so two concurrent triggers cannot both observe
// "not running" and proceed.
type activeSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (s *activeSet) tryAdd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *activeSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

func (s *activeSet) contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}
