package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// testMessage builds an inbox message with sender fields derived the
// way the adapters derive them.
func testMessage(id, addr string, labels ...string) *Message {
	domain := ""
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		domain = addr[at+1:]
	}
	if labels == nil {
		labels = []string{LabelInbox, "UNREAD"}
	}
	return &Message{
		ID:            id,
		ThreadID:      "thread-" + id,
		Sender:        addr,
		SenderAddress: addr,
		SenderDomain:  domain,
		Subject:       "Test message " + id,
		Snippet:       "snippet for " + id,
		Labels:        labels,
	}
}

// fakeProtected protects specific sender keys.
type fakeProtected struct {
	keys map[string]bool
}

func (f *fakeProtected) IsProtected(msg *Message) bool {
	if msg == nil {
		return false
	}
	return f.keys[msg.SenderKey()]
}

// fakeMemory is an in-memory SenderMemory with scriptable failures.
type fakeMemory struct {
	mu        sync.Mutex
	records   map[string]*SenderRecord
	threshold int

	recordErr error
	markErr   error

	recorded []string
	marked   []string
}

func newFakeMemory(threshold int) *fakeMemory {
	return &fakeMemory{
		records:   make(map[string]*SenderRecord),
		threshold: threshold,
	}
}

func (f *fakeMemory) Get(key string) (*SenderRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (f *fakeMemory) RecordClassification(ctx context.Context, key string, category Category) (*SenderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, key)
	rec, ok := f.records[key]
	if !ok {
		rec = &SenderRecord{Key: key}
		f.records[key] = rec
	}
	if category.Actionable() {
		rec.ClassificationCount++
	}
	rec.LastSeenCategory = category
	rec.LastSeen = time.Now()
	return rec.Clone(), f.recordErr
}

func (f *fakeMemory) FilterEligible(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	return ok && !rec.FilterCreated && rec.ClassificationCount >= f.threshold
}

func (f *fakeMemory) MarkFilterCreated(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, key)
	if f.markErr != nil {
		return f.markErr
	}
	rec, ok := f.records[key]
	if !ok || rec.FilterCreated {
		return ErrInvalidState
	}
	rec.FilterCreated = true
	return nil
}

// seed installs a record directly, bypassing the usual bookkeeping.
func (f *fakeMemory) seed(rec *SenderRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.Key] = rec
}

type labelCall struct {
	messageID string
	label     string
}

// fakeSource records every mailbox mutation and can be scripted to
// fail. addLabelFails and archiveFails burn down one transient failure
// per call before succeeding, which exercises the retry path.
type fakeSource struct {
	mu       sync.Mutex
	messages []*Message
	fetchErr error

	addLabelErr   error
	addLabelFails int
	archiveErr    error
	archiveFails  int
	filterErr     error

	added    []labelCall
	removed  []labelCall
	archived []string
	filters  []labelCall

	addLabelCalls int
	archiveCalls  int
	filterCalls   int
}

func transientTestErr(op string) error {
	return &ProviderError{Op: op, Transient: true, Err: errors.New("throttled")}
}

func (f *fakeSource) FetchBatch(ctx context.Context, query string, limit int) ([]*Message, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit > 0 && limit < len(f.messages) {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeSource) AddLabel(ctx context.Context, messageID, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLabelCalls++
	if f.addLabelFails > 0 {
		f.addLabelFails--
		return transientTestErr("add label")
	}
	if f.addLabelErr != nil {
		return f.addLabelErr
	}
	f.added = append(f.added, labelCall{messageID, label})
	return nil
}

func (f *fakeSource) RemoveLabel(ctx context.Context, messageID, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, labelCall{messageID, label})
	return nil
}

func (f *fakeSource) Archive(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archiveCalls++
	if f.archiveFails > 0 {
		f.archiveFails--
		return transientTestErr("archive")
	}
	if f.archiveErr != nil {
		return f.archiveErr
	}
	f.archived = append(f.archived, messageID)
	return nil
}

func (f *fakeSource) CreateFilter(ctx context.Context, sender, label string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterCalls++
	if f.filterErr != nil {
		return "", f.filterErr
	}
	f.filters = append(f.filters, labelCall{sender, label})
	return "filter-1", nil
}

// fakeInference serves verdicts and errors by message ID, with an
// optional per-message delay for ordering tests. Unknown IDs get a
// confident marketing verdict.
type fakeInference struct {
	mu       sync.Mutex
	verdicts map[string]*Verdict
	errs     map[string]error
	delays   map[string]time.Duration
	calls    []string
}

func (f *fakeInference) Classify(ctx context.Context, msg *Message) (*Verdict, error) {
	if d := f.delays[msg.ID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, msg.ID)
	f.mu.Unlock()
	if err := f.errs[msg.ID]; err != nil {
		return nil, err
	}
	if v := f.verdicts[msg.ID]; v != nil {
		return v, nil
	}
	return &Verdict{Category: CategoryMarketing, Confidence: 0.9, ModelUsed: "fake"}, nil
}

func (f *fakeInference) classified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
