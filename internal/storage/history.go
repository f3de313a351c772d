/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

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

	"scanmark/internal/domain"
	applog "scanmark/internal/log"
	"scanmark/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the history schema. Bump it together with a migration step.
const schemaVersion = 2

// History is the SQLite audit trail of saves.
type History struct {
	db   *sql.DB
	path string
}

// Save is one recorded save of a document.
type Save struct {
	DocID   string
	TS      time.Time
	Status  domain.Status
	Pages   int
	Output  string
	Entry   []byte   // journal entry JSON
	Digests []string // per page, in page order
}

// DocumentRow is the latest known state of a document.
type DocumentRow struct {
	DocID     string
	Status    domain.Status
	Pages     int
	Output    string
	Saves     int
	UpdatedAt time.Time
}

// OpenHistory creates or opens the database at path, enables WAL mode and
// brings the schema up to date.
func OpenHistory(path string) (*History, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "history_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
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
	steps := []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureHistorySchema, runMigrations}
	for _, step := range steps {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			l.Error("history schema setup failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("history ready")
	return &History{db: db, path: path}, nil
}

// Close releases the database.
func (h *History) Close() error { return h.db.Close() }

// Path returns the database file.
func (h *History) Path() string { return h.path }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
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
		// fresh databases start at 1 and migrate forward
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

func ensureHistorySchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id      TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			pages       INTEGER NOT NULL,
			output      TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id      TEXT NOT NULL,
			ts          TEXT NOT NULL,
			status      TEXT NOT NULL,
			pages       INTEGER NOT NULL,
			output      TEXT NOT NULL,
			entry_json  BLOB,
			digests     TEXT NOT NULL DEFAULT ''
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create history table: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the schema number stored in the database.
func (h *History) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := h.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// runMigrations applies incremental schema migrations up to schemaVersion.
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
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_saves_doc_ts ON saves(doc_id, ts);`}
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

// language=SQL
// dialect=SQLite
const insertSaveSQL = `INSERT INTO saves(doc_id, ts, status, pages, output, entry_json, digests) VALUES (?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const upsertDocumentSQL = `INSERT INTO documents(doc_id, status, pages, output, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(doc_id) DO UPDATE SET status=excluded.status, pages=excluded.pages, output=excluded.output, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const listSavesSQL = `SELECT ts, status, pages, output, entry_json, digests FROM saves WHERE doc_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const listDocumentsSQL = `SELECT d.doc_id, d.status, d.pages, d.output, d.updated_at,
	(SELECT COUNT(*) FROM saves s WHERE s.doc_id = d.doc_id)
FROM documents d ORDER BY d.doc_id`

// language=SQL
// dialect=SQLite
const pruneSavesSQL = `DELETE FROM saves WHERE doc_id = ? AND id NOT IN (
	SELECT id FROM saves WHERE doc_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// RecordSave appends s and updates the document's latest state in one transaction.
func (h *History) RecordSave(ctx context.Context, s Save) error {
	if s.DocID == "" {
		return errors.New("save without document id")
	}
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	ts := s.TS.UTC().Format(time.RFC3339Nano)
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertSaveSQL, s.DocID, ts, string(s.Status), s.Pages, s.Output, s.Entry, strings.Join(s.Digests, ",")); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertDocumentSQL, s.DocID, string(s.Status), s.Pages, s.Output, ts); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert document: %w", err)
	}
	return tx.Commit()
}

// Saves returns up to limit most recent saves of docID, newest first.
func (h *History) Saves(ctx context.Context, docID string, limit int) ([]Save, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, listSavesSQL, docID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Save
	for rows.Next() {
		var (
			ts, status, output, digests string
			pages                       int
			entry                       []byte
		)
		if err := rows.Scan(&ts, &status, &pages, &output, &entry, &digests); err != nil {
			return nil, err
		}
		s := Save{DocID: docID, Status: domain.Status(status), Pages: pages, Output: output, Entry: entry}
		s.TS, _ = time.Parse(time.RFC3339Nano, ts)
		if digests != "" {
			s.Digests = strings.Split(digests, ",")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Documents lists every document that was saved at least once.
func (h *History) Documents(ctx context.Context) ([]DocumentRow, error) {
	rows, err := h.db.QueryContext(ctx, listDocumentsSQL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		var status, ts string
		if err := rows.Scan(&d.DocID, &status, &d.Pages, &d.Output, &ts, &d.Saves); err != nil {
			return nil, err
		}
		d.Status = domain.Status(status)
		d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Prune keeps at most keep saves of docID and returns how many were removed.
func (h *History) Prune(ctx context.Context, docID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := h.db.ExecContext(ctx, pruneSavesSQL, docID, docID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
