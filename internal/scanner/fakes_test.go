package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-catalog/internal/database"
)

// fakeMediaStore is an in-memory MediaStore keyed by library id and
// relative path.
type fakeMediaStore struct {
	mu      sync.Mutex
	records map[string]*database.MediaRecord // libraryID + "\x00" + relPath
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{records: make(map[string]*database.MediaRecord)}
}

func storeKey(libraryID, relPath string) string {
	return libraryID + "\x00" + relPath
}

func (s *fakeMediaStore) MediaByLibrary(_ context.Context, libraryID string) ([]database.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []database.MediaRecord
	for _, rec := range s.records {
		if rec.LibraryID == libraryID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeMediaStore) UnprocessedMedia(_ context.Context, libraryID string) ([]database.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []database.MediaRecord
	for _, rec := range s.records {
		if rec.LibraryID == libraryID && !rec.Processed {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeMediaStore) MediaByRelativePath(_ context.Context, libraryID, relPath string) (*database.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[storeKey(libraryID, relPath)]
	if !ok {
		return nil, database.ErrMediaNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeMediaStore) CreateMedia(_ context.Context, rec *database.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(rec.LibraryID, rec.RelativePath)
	if _, ok := s.records[key]; ok {
		return fmt.Errorf("duplicate record for %s", rec.RelativePath)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	cp := *rec
	s.records[key] = &cp
	return nil
}

func (s *fakeMediaStore) SaveMedia(_ context.Context, rec *database.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(rec.LibraryID, rec.RelativePath)
	if _, ok := s.records[key]; !ok {
		return database.ErrMediaNotFound
	}
	rec.UpdatedAt = time.Now()

	cp := *rec
	s.records[key] = &cp
	return nil
}

func (s *fakeMediaStore) DeleteMedia(_ context.Context, rec *database.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(rec.LibraryID, rec.RelativePath)
	if _, ok := s.records[key]; !ok {
		return database.ErrMediaNotFound
	}
	delete(s.records, key)
	return nil
}

// setUpdatedAt rewinds or advances a stored record's refresh time, for
// mtime comparison tests.
func (s *fakeMediaStore) setUpdatedAt(libraryID, relPath string, when time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[storeKey(libraryID, relPath)]; ok {
		rec.UpdatedAt = when
	}
}

// markProcessed flips the stored record's processed flag the way the real
// extractor's save does.
func (s *fakeMediaStore) markProcessed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			rec.Processed = true
			rec.UpdatedAt = time.Now()
			return
		}
	}
}

func (s *fakeMediaStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// fakeLibraryStore serves a fixed set of libraries.
type fakeLibraryStore struct {
	mu   sync.Mutex
	libs map[string]*database.Library
}

func newFakeLibraryStore(libs ...*database.Library) *fakeLibraryStore {
	s := &fakeLibraryStore{libs: make(map[string]*database.Library)}
	for _, lib := range libs {
		s.libs[lib.ID] = lib
	}
	return s
}

func (s *fakeLibraryStore) Libraries(_ context.Context) ([]database.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []database.Library
	for _, lib := range s.libs {
		out = append(out, *lib)
	}
	return out, nil
}

func (s *fakeLibraryStore) LibraryByID(_ context.Context, id string) (*database.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, ok := s.libs[id]
	if !ok {
		return nil, database.ErrLibraryNotFound
	}
	cp := *lib
	return &cp, nil
}

func (s *fakeLibraryStore) TouchLibraryScanned(_ context.Context, id string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, ok := s.libs[id]
	if !ok {
		return database.ErrLibraryNotFound
	}
	lib.LastScannedAt = &when
	return nil
}

// fakeExtractor records which media ids were passed for extraction. When
// store is set, a successful Extract marks the record processed through
// the store, the way the real extractor saves its own results.
type fakeExtractor struct {
	mu    sync.Mutex
	ids   []string
	fail  bool
	store *fakeMediaStore
	block chan struct{} // when set, Extract waits until closed
}

func (e *fakeExtractor) Extract(_ context.Context, mediaID string) error {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	e.ids = append(e.ids, mediaID)
	fail := e.fail
	store := e.store
	e.mu.Unlock()
	if fail {
		return fmt.Errorf("extraction failed for %s", mediaID)
	}
	if store != nil {
		store.markProcessed(mediaID)
	}
	return nil
}

func (e *fakeExtractor) setFail(fail bool) {
	e.mu.Lock()
	e.fail = fail
	e.mu.Unlock()
}

func (e *fakeExtractor) extracted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ids...)
}

// fakeThumbs records generate and delete calls.
type fakeThumbs struct {
	mu        sync.Mutex
	generated []string
	deleted   []string
}

func (f *fakeThumbs) Generate(_ context.Context, mediaID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, mediaID)
	return "/thumbs/" + mediaID + ".jpg", nil
}

func (f *fakeThumbs) ThumbnailPath(mediaID string) string {
	return "/thumbs/" + mediaID + ".jpg"
}

func (f *fakeThumbs) DeleteFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeThumbs) deletedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// fakeCategorizer records categorize calls.
type fakeCategorizer struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeCategorizer) Categorize(_ context.Context, mediaID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, mediaID)
	return []string{"movie"}, nil
}
