package senderdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/mailsift/mailsift/internal/core"
)

// MemoryStore keeps sender records in process memory only. Nothing
// survives a restart, which is exactly right for tests and for mock
// runs that must not touch a real sender table.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*core.SenderRecord
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*core.SenderRecord),
	}
}

// Load returns a copy of the current table.
func (m *MemoryStore) Load(ctx context.Context) (map[string]*core.SenderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*core.SenderRecord, len(m.records))
	for key, rec := range m.records {
		out[key] = rec.Clone()
	}
	return out, nil
}

// Upsert stores a copy of the record.
func (m *MemoryStore) Upsert(ctx context.Context, rec *core.SenderRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("refusing to store record without a sender key")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = rec.Clone()
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

var _ core.SenderRepository = (*MemoryStore)(nil)
