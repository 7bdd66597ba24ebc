package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chmdznr/csync/pkg/models"
)

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB is the transfer journal. Sync decisions never read it.
type DB struct {
	*sql.DB
}

// New opens (and creates when needed) the journal at path.
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite has a single writer and ":memory:" is per connection.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.initialize(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize journal %s: %w", path, err)
	}

	return db, nil
}

// initialize creates the necessary tables if they don't exist
func (db *DB) initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transfers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			direction TEXT NOT NULL,
			name TEXT NOT NULL,
			remote_id TEXT,
			size INTEGER,
			status TEXT NOT NULL,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_transfers_time ON transfers(time);
		CREATE INDEX IF NOT EXISTS idx_transfers_direction ON transfers(direction, status);
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`)
	return err
}

// RecordTransfer appends one transfer to the journal
func (db *DB) RecordTransfer(t models.Transfer) error {
	if t.Time.IsZero() {
		t.Time = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO transfers (time, direction, name, remote_id, size, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		t.Time.UTC().Format(timeLayout),
		string(t.Direction),
		t.Name,
		t.RemoteID,
		t.Size,
		t.Status,
		t.Error,
	)
	if err != nil {
		return fmt.Errorf("record transfer of %s: %w", t.Name, err)
	}
	return nil
}

// RecentTransfers returns the latest entries, newest first
func (db *DB) RecentTransfers(limit int) ([]models.Transfer, error) {
	rows, err := db.Query(`
		SELECT time, direction, name, COALESCE(remote_id, ''), COALESCE(size, 0), status, COALESCE(error, '')
		FROM transfers
		ORDER BY time DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		var t models.Transfer
		var ts, direction string
		if err := rows.Scan(&ts, &direction, &t.Name, &t.RemoteID, &t.Size, &t.Status, &t.Error); err != nil {
			return nil, err
		}
		t.Direction = models.Direction(direction)
		if t.Time, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse journal time %q: %w", ts, err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// GetStats returns statistics about the journal
func (db *DB) GetStats() (*models.Stats, error) {
	var stats models.Stats
	var lastTransfer, lastBackup sql.NullString
	err := db.QueryRow(`
		SELECT
			COUNT(*) as total_transfers,
			COALESCE(SUM(size), 0) as total_size,
			COUNT(CASE WHEN direction = 'create' AND status = 'completed' THEN 1 END) as created,
			COUNT(CASE WHEN direction = 'update' AND status = 'completed' THEN 1 END) as updated,
			COUNT(CASE WHEN direction = 'download' AND status = 'completed' THEN 1 END) as downloaded,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed,
			COUNT(CASE WHEN direction = 'backup' AND status = 'completed' THEN 1 END) as backups,
			COALESCE(SUM(CASE WHEN direction = 'download' AND status = 'completed' THEN size ELSE 0 END), 0) as downloaded_size,
			COALESCE(SUM(CASE WHEN direction IN ('create', 'update') AND status = 'completed' THEN size ELSE 0 END), 0) as uploaded_size,
			MAX(time) as last_transfer,
			MAX(CASE WHEN direction = 'backup' AND status = 'completed' THEN time END) as last_backup
		FROM transfers
	`).Scan(
		&stats.TotalTransfers,
		&stats.TotalSize,
		&stats.Created,
		&stats.Updated,
		&stats.Downloaded,
		&stats.Failed,
		&stats.Backups,
		&stats.DownloadedSize,
		&stats.UploadedSize,
		&lastTransfer,
		&lastBackup,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if lastTransfer.Valid {
		if stats.LastTransfer, err = time.Parse(timeLayout, lastTransfer.String); err != nil {
			return nil, err
		}
	}
	if lastBackup.Valid {
		if stats.LastBackup, err = time.Parse(timeLayout, lastBackup.String); err != nil {
			return nil, err
		}
	}
	return &stats, nil
}
