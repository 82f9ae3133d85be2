/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"detailpage/internal/domain"
	applog "detailpage/internal/log"
	"detailpage/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the asset database schema. Bump it and add a migration
// step when the schema changes.
const schemaVersion = 2

// accessLayout has fixed width so last_access sorts lexically.
const accessLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteStore keeps blobs in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
	// MaxBytes caps the total blob size; 0 disables eviction.
	MaxBytes int64
}

// OpenSQLite opens or creates the asset database at path, enables WAL mode and
// brings the schema up to date.
func OpenSQLite(path string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("asset database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("asset store ready")
	return &SQLiteStore{db: db, log: l}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS blobs (
			hash        TEXT PRIMARY KEY,
			mime        TEXT NOT NULL,
			size        INTEGER NOT NULL,
			data        BLOB NOT NULL,
			created_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh databases start at 1 and migrate forward like old ones
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// LRU tracking
			stmts = []string{
				`ALTER TABLE blobs ADD COLUMN last_access TEXT`,
				`CREATE INDEX IF NOT EXISTS idx_blobs_access ON blobs(last_access)`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func (s *SQLiteStore) Put(ctx context.Context, data []byte, mime string) (domain.ImageRef, error) {
	ref := RefFor(data)
	h, _ := hashOf(ref)
	now := time.Now().UTC().Format(accessLayout)
	_, err := s.db.ExecContext(ctx, `INSERT INTO blobs(hash, mime, size, data, created_at, last_access)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(hash) DO UPDATE SET last_access=excluded.last_access`,
		h, SniffMIME(data, mime), len(data), data, now, now)
	if err != nil {
		return "", fmt.Errorf("put asset: %w", err)
	}
	if s.MaxBytes > 0 {
		if err := s.EvictToFit(ctx, s.MaxBytes, h); err != nil {
			return "", err
		}
	}
	return ref, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ref domain.ImageRef) ([]byte, string, error) {
	h, err := hashOf(ref)
	if err != nil {
		return nil, "", err
	}
	var data []byte
	var mime string
	err = s.db.QueryRowContext(ctx, `SELECT data, mime FROM blobs WHERE hash=?`, h).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("get %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("get asset: %w", err)
	}
	// touch
	_, _ = s.db.ExecContext(ctx, `UPDATE blobs SET last_access=? WHERE hash=?`, time.Now().UTC().Format(accessLayout), h)
	return data, mime, nil
}

// TotalBytes sums the stored blob sizes.
func (s *SQLiteStore) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM blobs`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum blob size: %w", err)
	}
	return total, nil
}

// EvictToFit deletes least-recently-used blobs until the total is within capBytes.
// The blob keep is never evicted.
func (s *SQLiteStore) EvictToFit(ctx context.Context, capBytes int64, keep string) error {
	total, err := s.TotalBytes(ctx)
	if err != nil || total <= capBytes {
		return err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT hash, size FROM blobs WHERE hash <> ? ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`, keep)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > capBytes {
		var h string
		var sz int64
		if err := rows.Scan(&h, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, h)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// close the cursor before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM blobs WHERE hash IN (?` + strings.Repeat(",?", len(victims)-1) + ")"
	if _, err := s.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict blobs: %w", err)
	}
	s.log.Debug("assets evicted", slog.Int("count", len(victims)), slog.Int64("bytes", total-cur))
	return nil
}
