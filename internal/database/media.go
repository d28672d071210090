package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-catalog/internal/mediatypes"
)

// ErrMediaNotFound is returned when a media record does not exist.
var ErrMediaNotFound = errors.New("media record not found")

const mediaColumns = `id, library_id, path, relative_path, type, size, file_hash, processed,
	duration_seconds, video_codec, audio_codec, width, height,
	title, artist, album, genres, created_at, updated_at`

// CreateMedia inserts a newly discovered media record. A missing ID is
// filled in.
func (d *Database) CreateMedia(ctx context.Context, rec *MediaRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_media", start, err) }()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO media_records (id, library_id, path, relative_path, type, size, file_hash, processed,
			duration_seconds, video_codec, audio_codec, width, height, title, artist, album, genres,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.LibraryID, rec.Path, rec.RelativePath, string(rec.Type), rec.Size,
		nullable(rec.FileHash), rec.Processed,
		rec.Duration, nullable(rec.VideoCodec), nullable(rec.AudioCodec), rec.Width, rec.Height,
		nullable(rec.Title), nullable(rec.Artist), nullable(rec.Album), nullable(joinGenres(rec.Genres)),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		err = fmt.Errorf("failed to create media record: %w", err)
	}
	return err
}

// SaveMedia persists changes to an existing record and bumps its
// updated_at timestamp. The detector relies on updated_at reflecting the
// last time the record's size/hash were known to match the file.
func (d *Database) SaveMedia(ctx context.Context, rec *MediaRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_media", start, err) }()

	rec.UpdatedAt = time.Now()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		UPDATE media_records SET path = ?, relative_path = ?, type = ?, size = ?, file_hash = ?,
			processed = ?, duration_seconds = ?, video_codec = ?, audio_codec = ?, width = ?, height = ?,
			title = ?, artist = ?, album = ?, genres = ?, updated_at = ?
		WHERE id = ?`,
		rec.Path, rec.RelativePath, string(rec.Type), rec.Size, nullable(rec.FileHash),
		rec.Processed, rec.Duration, nullable(rec.VideoCodec), nullable(rec.AudioCodec),
		rec.Width, rec.Height,
		nullable(rec.Title), nullable(rec.Artist), nullable(rec.Album), nullable(joinGenres(rec.Genres)),
		rec.UpdatedAt.Unix(), rec.ID,
	)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = ErrMediaNotFound
	}
	return err
}

// DeleteMedia removes a record from the index.
func (d *Database) DeleteMedia(ctx context.Context, rec *MediaRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_media", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `DELETE FROM media_records WHERE id = ?`, rec.ID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = ErrMediaNotFound
	}
	return err
}

// MediaByLibrary returns every record indexed for a library.
func (d *Database) MediaByLibrary(ctx context.Context, libraryID string) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("media_by_library", start, err) }()

	// No per-call timeout: large libraries can hold hundreds of thousands
	// of records and the caller's context already bounds the scan.
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media_records WHERE library_id = ?`, libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MediaRecord
	for rows.Next() {
		rec, scanErr := scanMedia(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		records = append(records, *rec)
	}
	err = rows.Err()
	return records, err
}

// UnprocessedMedia returns the records in a library whose enrichment
// never completed. Served by idx_media_processed.
func (d *Database) UnprocessedMedia(ctx context.Context, libraryID string) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("unprocessed_media", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media_records WHERE library_id = ? AND processed = 0`, libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MediaRecord
	for rows.Next() {
		rec, scanErr := scanMedia(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		records = append(records, *rec)
	}
	err = rows.Err()
	return records, err
}

// MediaByRelativePath returns the record identified by (library, relative
// path), or ErrMediaNotFound.
func (d *Database) MediaByRelativePath(ctx context.Context, libraryID, relPath string) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("media_by_relative_path", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media_records WHERE library_id = ? AND relative_path = ?`,
		libraryID, relPath)

	rec, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MediaByID returns one record, or ErrMediaNotFound.
func (d *Database) MediaByID(ctx context.Context, id string) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("media_by_id", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media_records WHERE id = ?`, id)

	rec, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MediaExists reports whether a record with the given id is still indexed.
// Used by the thumbnail orphan cleanup task.
func (d *Database) MediaExists(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("media_exists", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var one int
	err = d.db.QueryRowContext(ctx,
		`SELECT 1 FROM media_records WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return false, nil
	}
	return err == nil, err
}

func scanMedia(row rowScanner) (*MediaRecord, error) {
	var rec MediaRecord
	var mediaType string
	var processed int
	var fileHash, videoCodec, audioCodec, title, artist, album, genres sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(&rec.ID, &rec.LibraryID, &rec.Path, &rec.RelativePath, &mediaType,
		&rec.Size, &fileHash, &processed,
		&rec.Duration, &videoCodec, &audioCodec, &rec.Width, &rec.Height,
		&title, &artist, &album, &genres, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec.Type = mediatypes.MediaType(mediaType)
	rec.Processed = processed != 0
	rec.FileHash = fileHash.String
	rec.VideoCodec = videoCodec.String
	rec.AudioCodec = audioCodec.String
	rec.Title = title.String
	rec.Artist = artist.String
	rec.Album = album.String
	rec.Genres = splitGenres(genres.String)
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}
