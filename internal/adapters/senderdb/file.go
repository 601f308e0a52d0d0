// Package senderdb provides the persistence backends for sender
// records: a JSON file (the default), SQLite, MySQL, and an in-memory
// table for tests and throwaway runs.
package senderdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

// fileRecord is the on-disk shape of one sender entry. The file is a
// single JSON object keyed by sender, so the key itself is not
// repeated inside the record.
type fileRecord struct {
	Domain              string `json:"domain"`
	ClassificationCount int    `json:"classification_count"`
	LastSeenCategory    string `json:"last_seen_category"`
	FilterCreated       bool   `json:"filter_created"`
	LastSeen            string `json:"last_seen,omitempty"`
}

// FileStore persists sender records as a pretty-printed JSON file.
// Every upsert rewrites the file atomically via a temp file rename,
// so a crash leaves either the old or the new table, never a torn one.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	records map[string]fileRecord
	loaded  bool
}

// NewFileStore creates a store backed by the JSON file at path. The
// file is read lazily on Load; a missing file means an empty table.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:    path,
		logger:  logger,
		records: make(map[string]fileRecord),
	}
}

// Load reads the whole sender table. A missing file yields an empty
// table; an unreadable or syntactically broken file is an error so
// the caller can refuse to run without its memory.
func (f *FileStore) Load(ctx context.Context) (map[string]*core.SenderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Info("No sender table yet, starting empty", zap.String("path", f.path))
			f.loaded = true
			return make(map[string]*core.SenderRecord), nil
		}
		return nil, fmt.Errorf("failed to read sender table: %w", err)
	}

	raw := make(map[string]fileRecord)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("sender table %s is corrupt: %w", f.path, err)
		}
	}

	out := make(map[string]*core.SenderRecord, len(raw))
	for key, r := range raw {
		rec := &core.SenderRecord{
			Key:                 key,
			Domain:              r.Domain,
			ClassificationCount: r.ClassificationCount,
			LastSeenCategory:    core.Category(r.LastSeenCategory),
			FilterCreated:       r.FilterCreated,
		}
		if r.LastSeen != "" {
			if t, err := time.Parse(time.RFC3339, r.LastSeen); err == nil {
				rec.LastSeen = t
			}
		}
		out[key] = rec
	}

	f.records = raw
	f.loaded = true
	f.logger.Debug("Loaded sender table from file",
		zap.String("path", f.path),
		zap.Int("senders", len(out)))
	return out, nil
}

// Upsert replaces one record and rewrites the file.
func (f *FileStore) Upsert(ctx context.Context, rec *core.SenderRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("refusing to store record without a sender key")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fr := fileRecord{
		Domain:              rec.Domain,
		ClassificationCount: rec.ClassificationCount,
		LastSeenCategory:    string(rec.LastSeenCategory),
		FilterCreated:       rec.FilterCreated,
	}
	if !rec.LastSeen.IsZero() {
		fr.LastSeen = rec.LastSeen.UTC().Format(time.RFC3339)
	}
	f.records[rec.Key] = fr

	return f.writeLocked()
}

func (f *FileStore) writeLocked() error {
	data, err := json.MarshalIndent(f.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sender table: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sender table directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".senders-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp sender table: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write sender table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close sender table: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace sender table: %w", err)
	}
	return nil
}

// Close is a no-op; every upsert already left a consistent file.
func (f *FileStore) Close() error {
	return nil
}

var _ core.SenderRepository = (*FileStore)(nil)
