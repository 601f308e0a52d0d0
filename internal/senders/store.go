// Package senders keeps the long-lived, per-sender memory that turns
// repeated classifications into filter creation. The store is the
// single writer for sender records; everything else sees copies.
package senders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

// State is the lifecycle position of one sender, derived from the
// persisted record rather than stored.
type State int

const (
	StateUnseen State = iota
	StateTracked
	StateFilterEligible
	StateFilterCreated
)

func (s State) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateTracked:
		return "tracked"
	case StateFilterEligible:
		return "filter-eligible"
	case StateFilterCreated:
		return "filter-created"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Store owns the in-memory sender table and writes every mutation
// through to a repository. All methods are safe for concurrent use,
// though the pipeline drives mutations from a single goroutine.
type Store struct {
	mu        sync.Mutex
	records   map[string]*core.SenderRecord
	repo      core.SenderRepository
	threshold int
	logger    *zap.Logger
}

// NewStore loads the sender table from the repository. A corrupt or
// unreadable table is a startup error: proceeding without memory
// would silently restart every sender's count from zero.
func NewStore(ctx context.Context, repo core.SenderRepository, threshold int, logger *zap.Logger) (*Store, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("sender store: threshold must be positive, got %d", threshold)
	}

	records, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender table: %w", err)
	}
	if records == nil {
		records = make(map[string]*core.SenderRecord)
	}

	logger.Info("Loaded sender table",
		zap.Int("senders", len(records)),
		zap.Int("filter_threshold", threshold))

	return &Store{
		records:   records,
		repo:      repo,
		threshold: threshold,
		logger:    logger,
	}, nil
}

// Get returns a copy of the record for a sender key.
func (s *Store) Get(key string) (*core.SenderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// State derives the sender's lifecycle state.
func (s *Store) State(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(key)
}

func (s *Store) stateLocked(key string) State {
	rec, ok := s.records[key]
	switch {
	case !ok:
		return StateUnseen
	case rec.FilterCreated:
		return StateFilterCreated
	case rec.ClassificationCount >= s.threshold:
		return StateFilterEligible
	default:
		return StateTracked
	}
}

// FilterEligible reports whether a filter should now be created for
// the sender: the count has crossed the threshold and no filter has
// been recorded yet.
func (s *Store) FilterEligible(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(key) == StateFilterEligible
}

// RecordClassification folds one verdict into the sender's record.
// Only actionable categories advance the count; the count never
// decreases. The update is applied in memory first and then
// persisted, so a persistence failure degrades durability but never
// the decision being made right now.
func (s *Store) RecordClassification(ctx context.Context, key string, category core.Category) (*core.SenderRecord, error) {
	if key == "" {
		return nil, fmt.Errorf("sender store: empty sender key")
	}

	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok {
		rec = &core.SenderRecord{
			Key:    key,
			Domain: domainOf(key),
		}
		s.records[key] = rec
	}
	if category.Actionable() {
		rec.ClassificationCount++
	}
	rec.LastSeenCategory = category
	rec.LastSeen = time.Now().UTC()
	clone := rec.Clone()
	s.mu.Unlock()

	if err := s.repo.Upsert(ctx, clone); err != nil {
		s.logger.Warn("Failed to persist sender record",
			zap.String("sender", key),
			zap.Error(err))
		return clone, fmt.Errorf("persist sender %q: %w", key, err)
	}

	s.logger.Debug("Recorded classification",
		zap.String("sender", key),
		zap.String("category", string(category)),
		zap.Int("count", clone.ClassificationCount))

	return clone, nil
}

// MarkFilterCreated flips the sender's filter flag. The flag flips at
// most once; a second attempt, or an attempt for an unknown sender,
// is an invalid state transition.
func (s *Store) MarkFilterCreated(ctx context.Context, key string) error {
	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: unknown sender %q", core.ErrInvalidState, key)
	}
	if rec.FilterCreated {
		s.mu.Unlock()
		return fmt.Errorf("%w: filter already recorded for %q", core.ErrInvalidState, key)
	}
	rec.FilterCreated = true
	clone := rec.Clone()
	s.mu.Unlock()

	if err := s.repo.Upsert(ctx, clone); err != nil {
		s.logger.Warn("Failed to persist filter flag",
			zap.String("sender", key),
			zap.Error(err))
		return fmt.Errorf("persist filter flag for %q: %w", key, err)
	}

	s.logger.Info("Sender filter recorded", zap.String("sender", key))
	return nil
}

// Len returns the number of tracked senders.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush rewrites every record through the repository. The store
// persists incrementally, so this is a safety net for the end of a
// run rather than the primary durability path.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	clones := make([]*core.SenderRecord, 0, len(s.records))
	for _, rec := range s.records {
		clones = append(clones, rec.Clone())
	}
	s.mu.Unlock()

	for _, rec := range clones {
		if err := s.repo.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("flush sender %q: %w", rec.Key, err)
		}
	}
	return nil
}

// domainOf extracts the domain portion of a sender key. Keys that are
// already bare domains pass through unchanged.
func domainOf(key string) string {
	if at := strings.LastIndex(key, "@"); at >= 0 {
		return strings.ToLower(key[at+1:])
	}
	return strings.ToLower(key)
}

var _ core.SenderMemory = (*Store)(nil)
