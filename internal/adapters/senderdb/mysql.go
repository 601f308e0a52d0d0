package senderdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

const mysqlTimeLayout = "2006-01-02 15:04:05"

// MySQLStore keeps sender records in MySQL, for setups that already
// run one and want the table visible to other tooling.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects using a DSN like
// user:password@tcp(localhost:3306)/mailsift and creates the senders
// table if it does not exist.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS senders (
			sender_key VARCHAR(320) PRIMARY KEY,
			domain VARCHAR(255) NOT NULL DEFAULT '',
			classification_count INT NOT NULL DEFAULT 0,
			last_seen_category VARCHAR(32) NOT NULL DEFAULT '',
			filter_created BOOLEAN NOT NULL DEFAULT FALSE,
			last_seen DATETIME NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create senders table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Load reads every sender row into memory.
func (s *MySQLStore) Load(ctx context.Context) (map[string]*core.SenderRecord, error) {
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
		var key, domain, category string
		var lastSeen sql.NullString
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
		if lastSeen.Valid && lastSeen.String != "" {
			if t, err := time.Parse(mysqlTimeLayout, lastSeen.String); err == nil {
				rec.LastSeen = t.UTC()
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
func (s *MySQLStore) Upsert(ctx context.Context, rec *core.SenderRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("refusing to store record without a sender key")
	}

	var lastSeen interface{}
	if !rec.LastSeen.IsZero() {
		lastSeen = rec.LastSeen.UTC().Format(mysqlTimeLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO senders (sender_key, domain, classification_count, last_seen_category, filter_created, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			domain = VALUES(domain),
			classification_count = VALUES(classification_count),
			last_seen_category = VALUES(last_seen_category),
			filter_created = VALUES(filter_created),
			last_seen = VALUES(last_seen)
	`, rec.Key, rec.Domain, rec.ClassificationCount, string(rec.LastSeenCategory), rec.FilterCreated, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to upsert sender %q: %w", rec.Key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL connection: %w", err)
	}
	return nil
}

var _ core.SenderRepository = (*MySQLStore)(nil)
