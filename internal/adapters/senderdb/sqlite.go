package senderdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

// SQLiteStore keeps sender records in a local SQLite database. Unlike
// the file store it writes one row per upsert, which suits larger
// sender tables.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS senders (
			sender_key TEXT PRIMARY KEY,
			domain TEXT NOT NULL DEFAULT '',
			classification_count INTEGER NOT NULL DEFAULT 0,
			last_seen_category TEXT NOT NULL DEFAULT '',
			filter_created BOOLEAN NOT NULL DEFAULT 0,
			last_seen TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create senders table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Load reads every sender row into memory.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]*core.SenderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender_key, domain, classification_count, last_seen_category, filter_created, last_seen
		FROM senders
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query senders: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*core.SenderRecord)
	for rows.Next() {
		var key, domain, category, lastSeen string
		var count int
		var filterCreated bool
		if err := rows.Scan(&key, &domain, &count, &category, &filterCreated, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan sender row: %w", err)
		}

		rec := &core.SenderRecord{
			Key:                 key,
			Domain:              domain,
			ClassificationCount: count,
			LastSeenCategory:    core.Category(category),
			FilterCreated:       filterCreated,
		}
		if lastSeen != "" {
			if t, err := time.Parse(time.RFC3339, lastSeen); err == nil {
				rec.LastSeen = t
			} else {
				s.logger.Warn("Failed to parse last_seen timestamp",
					zap.String("sender", key),
					zap.Error(err))
			}
		}
		out[key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read senders: %w", err)
	}

	return out, nil
}

// Upsert writes one sender row.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *core.SenderRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("refusing to store record without a sender key")
	}

	lastSeen := ""
	if !rec.LastSeen.IsZero() {
		lastSeen = rec.LastSeen.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO senders (sender_key, domain, classification_count, last_seen_category, filter_created, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Key, rec.Domain, rec.ClassificationCount, string(rec.LastSeenCategory), rec.FilterCreated, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to upsert sender %q: %w", rec.Key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}

var _ core.SenderRepository = (*SQLiteStore)(nil)
