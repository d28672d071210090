package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLibraryNotFound is returned when a library id does not exist.
var ErrLibraryNotFound = errors.New("library not found")

// CreateLibrary inserts a new library. A missing ID is filled in.
func (d *Database) CreateLibrary(ctx context.Context, lib *Library) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_library", start, err) }()

	if lib.ID == "" {
		lib.ID = uuid.NewString()
	}
	now := time.Now()
	lib.CreatedAt = now
	lib.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO libraries (id, name, root_path, auto_scan, scan_interval, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lib.ID, lib.Name, lib.RootPath, lib.AutoScan, nullable(lib.ScanInterval),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		err = fmt.Errorf("failed to create library: %w", err)
	}
	return err
}

// Libraries returns all configured libraries.
func (d *Database) Libraries(ctx context.Context) ([]Library, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_libraries", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, root_path, auto_scan, scan_interval, last_scanned_at, created_at, updated_at
		FROM libraries ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libs []Library
	for rows.Next() {
		lib, scanErr := scanLibrary(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		libs = append(libs, *lib)
	}
	err = rows.Err()
	return libs, err
}

// LibraryByID returns one library, or ErrLibraryNotFound.
func (d *Database) LibraryByID(ctx context.Context, id string) (*Library, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_library", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, root_path, auto_scan, scan_interval, last_scanned_at, created_at, updated_at
		FROM libraries WHERE id = ?`, id)

	lib, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrLibraryNotFound
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// SaveLibrary persists configuration edits to an existing library.
func (d *Database) SaveLibrary(ctx context.Context, lib *Library) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_library", start, err) }()

	lib.UpdatedAt = time.Now()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		UPDATE libraries SET name = ?, root_path = ?, auto_scan = ?, scan_interval = ?, updated_at = ?
		WHERE id = ?`,
		lib.Name, lib.RootPath, lib.AutoScan, nullable(lib.ScanInterval),
		lib.UpdatedAt.Unix(), lib.ID,
	)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = ErrLibraryNotFound
	}
	return err
}

// TouchLibraryScanned records a successful scan completion time.
func (d *Database) TouchLibraryScanned(ctx context.Context, id string, when time.Time) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("touch_library", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		`UPDATE libraries SET last_scanned_at = ? WHERE id = ?`, when.Unix(), id)
	return err
}

// DeleteLibrary removes a library; media records cascade via foreign key.
func (d *Database) DeleteLibrary(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_library", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `DELETE FROM libraries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = ErrLibraryNotFound
	}
	return err
}

// scanner abstracts sql.Row and sql.Rows for scanLibrary.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLibrary(row rowScanner) (*Library, error) {
	var lib Library
	var autoScan int
	var interval sql.NullString
	var lastScanned sql.NullInt64
	var createdAt, updatedAt int64

	if err := row.Scan(&lib.ID, &lib.Name, &lib.RootPath, &autoScan, &interval,
		&lastScanned, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	lib.AutoScan = autoScan != 0
	lib.ScanInterval = interval.String
	if lastScanned.Valid {
		t := time.Unix(lastScanned.Int64, 0)
		lib.LastScannedAt = &t
	}
	lib.CreatedAt = time.Unix(createdAt, 0)
	lib.UpdatedAt = time.Unix(updatedAt, 0)
	return &lib, nil
}

// nullable converts "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
