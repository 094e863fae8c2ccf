// Package history keeps a record of finished items in a local SQLite database.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/lastned/lastned/internal/engine/types"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("history entry not found")

var (
	mu     sync.Mutex
	dbPath string
	db     *sql.DB
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	dest_path    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	resolution   TEXT NOT NULL DEFAULT '',
	completed_at INTEGER NOT NULL DEFAULT 0,
	time_taken   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_downloads_completed_at ON downloads(completed_at);
`

// Configure sets the database file. An open connection to a different file is closed.
func Configure(path string) {
	mu.Lock()
	defer mu.Unlock()
	if path == dbPath {
		return
	}
	if db != nil {
		_ = db.Close()
		db = nil
	}
	dbPath = path
}

// GetDB returns the open database, opening it and applying the schema on first use.
func GetDB() (*sql.DB, error) {
	mu.Lock()
	defer mu.Unlock()
	if db != nil {
		return db, nil
	}
	if dbPath == "" {
		return nil, errors.New("history database not configured")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	db = conn
	return db, nil
}

// CloseDB closes the database if open.
func CloseDB() {
	mu.Lock()
	defer mu.Unlock()
	if db != nil {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close history database")
		}
		db = nil
	}
}

// AddEntry inserts or replaces an entry.
func AddEntry(e types.DownloadEntry) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`INSERT OR REPLACE INTO downloads
		(id, url, title, dest_path, status, reason, resolution, completed_at, time_taken)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.URL, e.Title, e.DestPath, e.Status, e.Reason, e.Resolution, e.CompletedAt, e.TimeTaken)
	if err != nil {
		return fmt.Errorf("add history entry: %w", err)
	}
	return nil
}

// GetEntry returns one entry by id.
func GetEntry(id string) (*types.DownloadEntry, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}
	row := conn.QueryRow(`SELECT id, url, title, dest_path, status, reason, resolution, completed_at, time_taken
		FROM downloads WHERE id = ?`, id)

	var e types.DownloadEntry
	if err := scanEntry(row, &e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListEntries returns entries newest first. limit <= 0 returns all of them.
func ListEntries(limit int) ([]types.DownloadEntry, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := conn.Query(`SELECT id, url, title, dest_path, status, reason, resolution, completed_at, time_taken
		FROM downloads ORDER BY completed_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []types.DownloadEntry{}
	for rows.Next() {
		var e types.DownloadEntry
		if err := scanEntry(rows, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RemoveEntry deletes one entry.
func RemoveEntry(id string) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	res, err := conn.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveCompleted deletes every completed entry and returns how many were removed.
func RemoveCompleted() (int64, error) {
	conn, err := GetDB()
	if err != nil {
		return 0, err
	}
	res, err := conn.Exec(`DELETE FROM downloads WHERE status = ?`, string(types.StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("remove completed entries: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner, e *types.DownloadEntry) error {
	return s.Scan(&e.ID, &e.URL, &e.Title, &e.DestPath, &e.Status, &e.Reason, &e.Resolution, &e.CompletedAt, &e.TimeTaken)
}
