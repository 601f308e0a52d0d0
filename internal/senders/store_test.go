package senders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

// failingRepo wraps an in-memory repository with scriptable failures.
type failingRepo struct {
	records   map[string]*core.SenderRecord
	loadErr   error
	upsertErr error
	upserts   int
}

func newFailingRepo() *failingRepo {
	return &failingRepo{records: make(map[string]*core.SenderRecord)}
}

func (r *failingRepo) Load(ctx context.Context) (map[string]*core.SenderRecord, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make(map[string]*core.SenderRecord, len(r.records))
	for k, v := range r.records {
		out[k] = v.Clone()
	}
	return out, nil
}

func (r *failingRepo) Upsert(ctx context.Context, rec *core.SenderRecord) error {
	r.upserts++
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.records[rec.Key] = rec.Clone()
	return nil
}

func (r *failingRepo) Close() error { return nil }

func newTestStore(t *testing.T, repo core.SenderRepository) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), repo, 3, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewStoreRejectsBadThreshold(t *testing.T) {
	_, err := NewStore(context.Background(), newFailingRepo(), 0, zap.NewNop())
	require.Error(t, err)

	_, err = NewStore(context.Background(), newFailingRepo(), -1, zap.NewNop())
	require.Error(t, err)
}

func TestNewStoreFailsClosedOnCorruptTable(t *testing.T) {
	repo := newFailingRepo()
	repo.loadErr = errors.New("unexpected end of JSON input")

	_, err := NewStore(context.Background(), repo, 3, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load sender table")
}

func TestNewStoreLoadsExistingRecords(t *testing.T) {
	repo := newFailingRepo()
	repo.records["news@shop.com"] = &core.SenderRecord{
		Key:                 "news@shop.com",
		ClassificationCount: 2,
	}

	s := newTestStore(t, repo)

	rec, ok := s.Get("news@shop.com")
	require.True(t, ok)
	assert.Equal(t, 2, rec.ClassificationCount)
	assert.Equal(t, 1, s.Len())
}

func TestStateTransitions(t *testing.T) {
	repo := newFailingRepo()
	s := newTestStore(t, repo)
	ctx := context.Background()

	assert.Equal(t, StateUnseen, s.State("news@shop.com"))

	for i := 1; i <= 2; i++ {
		_, err := s.RecordClassification(ctx, "news@shop.com", core.CategoryMarketing)
		require.NoError(t, err)
		assert.Equal(t, StateTracked, s.State("news@shop.com"))
		assert.False(t, s.FilterEligible("news@shop.com"))
	}

	_, err := s.RecordClassification(ctx, "news@shop.com", core.CategoryMarketing)
	require.NoError(t, err)
	assert.Equal(t, StateFilterEligible, s.State("news@shop.com"))
	assert.True(t, s.FilterEligible("news@shop.com"))

	require.NoError(t, s.MarkFilterCreated(ctx, "news@shop.com"))
	assert.Equal(t, StateFilterCreated, s.State("news@shop.com"))
	assert.False(t, s.FilterEligible("news@shop.com"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unseen", StateUnseen.String())
	assert.Equal(t, "tracked", StateTracked.String())
	assert.Equal(t, "filter-eligible", StateFilterEligible.String())
	assert.Equal(t, "filter-created", StateFilterCreated.String())
}

func TestRecordClassification(t *testing.T) {
	t.Run("Actionable category advances count", func(t *testing.T) {
		repo := newFailingRepo()
		s := newTestStore(t, repo)

		rec, err := s.RecordClassification(context.Background(), "news@shop.com", core.CategoryNewsletter)
		require.NoError(t, err)

		assert.Equal(t, 1, rec.ClassificationCount)
		assert.Equal(t, core.CategoryNewsletter, rec.LastSeenCategory)
		assert.Equal(t, "shop.com", rec.Domain)
		assert.False(t, rec.LastSeen.IsZero())
	})

	t.Run("Other category does not advance count", func(t *testing.T) {
		repo := newFailingRepo()
		s := newTestStore(t, repo)
		ctx := context.Background()

		_, err := s.RecordClassification(ctx, "friend@home.com", core.CategoryOther)
		require.NoError(t, err)
		rec, err := s.RecordClassification(ctx, "friend@home.com", core.CategoryOther)
		require.NoError(t, err)

		assert.Equal(t, 0, rec.ClassificationCount)
		assert.Equal(t, core.CategoryOther, rec.LastSeenCategory)
	})

	t.Run("Empty key rejected", func(t *testing.T) {
		s := newTestStore(t, newFailingRepo())
		_, err := s.RecordClassification(context.Background(), "", core.CategoryMarketing)
		require.Error(t, err)
	})

	t.Run("Persistence failure keeps the in-memory update", func(t *testing.T) {
		repo := newFailingRepo()
		s := newTestStore(t, repo)
		repo.upsertErr = errors.New("disk full")

		rec, err := s.RecordClassification(context.Background(), "news@shop.com", core.CategoryMarketing)

		require.Error(t, err)
		require.NotNil(t, rec, "the updated record is returned even when persistence failed")
		assert.Equal(t, 1, rec.ClassificationCount)

		got, ok := s.Get("news@shop.com")
		require.True(t, ok)
		assert.Equal(t, 1, got.ClassificationCount)
	})

	t.Run("Record written through on success", func(t *testing.T) {
		repo := newFailingRepo()
		s := newTestStore(t, repo)

		_, err := s.RecordClassification(context.Background(), "news@shop.com", core.CategoryMarketing)
		require.NoError(t, err)

		stored, ok := repo.records["news@shop.com"]
		require.True(t, ok)
		assert.Equal(t, 1, stored.ClassificationCount)
	})
}

func TestMarkFilterCreated(t *testing.T) {
	t.Run("Flips once", func(t *testing.T) {
		repo := newFailingRepo()
		s := newTestStore(t, repo)
		ctx := context.Background()

		_, err := s.RecordClassification(ctx, "news@shop.com", core.CategoryMarketing)
		require.NoError(t, err)

		require.NoError(t, s.MarkFilterCreated(ctx, "news@shop.com"))

		err = s.MarkFilterCreated(ctx, "news@shop.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidState)
	})

	t.Run("Unknown sender rejected", func(t *testing.T) {
		s := newTestStore(t, newFailingRepo())
		err := s.MarkFilterCreated(context.Background(), "ghost@nowhere.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidState)
	})

	t.Run("Persistence failure keeps the flag", func(t *testing.T) {
		repo := newFailingRepo()
		s := newTestStore(t, repo)
		ctx := context.Background()

		_, err := s.RecordClassification(ctx, "news@shop.com", core.CategoryMarketing)
		require.NoError(t, err)

		repo.upsertErr = errors.New("disk full")
		err = s.MarkFilterCreated(ctx, "news@shop.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrInvalidState, "a persistence failure is not a state violation")

		assert.Equal(t, StateFilterCreated, s.State("news@shop.com"))
	})
}

func TestGetReturnsCopies(t *testing.T) {
	repo := newFailingRepo()
	s := newTestStore(t, repo)

	_, err := s.RecordClassification(context.Background(), "news@shop.com", core.CategoryMarketing)
	require.NoError(t, err)

	rec, ok := s.Get("news@shop.com")
	require.True(t, ok)
	rec.ClassificationCount = 99

	again, _ := s.Get("news@shop.com")
	assert.Equal(t, 1, again.ClassificationCount)
}

func TestFlush(t *testing.T) {
	repo := newFailingRepo()
	s := newTestStore(t, repo)
	ctx := context.Background()

	// Two senders land in memory even though persistence is down
	repo.upsertErr = errors.New("disk full")
	s.RecordClassification(ctx, "a@shop.com", core.CategoryMarketing)
	s.RecordClassification(ctx, "b@shop.com", core.CategoryNewsletter)
	assert.Empty(t, repo.records)

	// Recovery: flush writes everything back
	repo.upsertErr = nil
	require.NoError(t, s.Flush(ctx))
	assert.Len(t, repo.records, 2)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "shop.com", domainOf("news@shop.com"))
	assert.Equal(t, "shop.com", domainOf("Weird@Nested@Shop.COM"))
	assert.Equal(t, "shop.com", domainOf("shop.com"))
}
