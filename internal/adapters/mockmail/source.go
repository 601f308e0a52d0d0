// Package mockmail is an in-memory MailSource used for --mock runs
// and tests. It ships a small fixed inbox covering the interesting
// cases: a newsletter, an invoice, a promotion, a security alert, and
// a personal note.
package mockmail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

// Source implements core.MailSource over canned messages. Mutations
// update the in-memory copies and are recorded for inspection, so a
// mock run exercises the full pipeline without touching Gmail.
type Source struct {
	logger *zap.Logger

	mu         sync.Mutex
	messages   []*core.Message
	actions    []string
	nextFilter int
}

// NewSource creates a source preloaded with the canned inbox.
func NewSource(logger *zap.Logger) *Source {
	logger.Info("Initialized mock mail source")
	return &Source{
		logger:   logger,
		messages: cannedInbox(),
	}
}

func cannedInbox() []*core.Message {
	return []*core.Message{
		{
			ID:       "mock_msg_1",
			ThreadID: "mock_thread_1",
			Sender:   "Newsletter <news@marketing.com>",
			Subject:  "Weekly Newsletter",
			Snippet:  "Here are the top stories for this week...",
			Labels:   []string{core.LabelInbox, "UNREAD"},
		},
		{
			ID:       "mock_msg_2",
			ThreadID: "mock_thread_2",
			Sender:   "Billing <billing@service.com>",
			Subject:  "Your Invoice",
			Snippet:  "Please find attached your invoice for...",
			Labels:   []string{core.LabelInbox, "UNREAD"},
		},
		{
			ID:       "mock_msg_3",
			ThreadID: "mock_thread_3",
			Sender:   "Promo <promo@shop.com>",
			Subject:  "Limited Time Offer",
			Snippet:  "50% off everything this weekend only!",
			Labels:   []string{core.LabelInbox, "UNREAD"},
		},
		{
			ID:       "mock_msg_4",
			ThreadID: "mock_thread_4",
			Sender:   "Google <no-reply@accounts.google.com>",
			Subject:  "Security Alert",
			Snippet:  "New sign-in detected on your account.",
			Labels:   []string{core.LabelInbox, "UNREAD"},
		},
		{
			ID:       "mock_msg_5",
			ThreadID: "mock_thread_5",
			Sender:   "John Doe <john.doe@company.com>",
			Subject:  "Meeting Update",
			Snippet:  "Can we reschedule our sync to 3 PM?",
			Labels:   []string{core.LabelInbox, "UNREAD"},
		},
	}
}

// FetchBatch returns up to limit canned messages. The query is logged
// but not evaluated.
func (s *Source) FetchBatch(ctx context.Context, query string, limit int) ([]*core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Info("Mock: listing messages",
		zap.String("query", query),
		zap.Int("limit", limit))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.Message, 0, limit)
	for _, m := range s.messages {
		if len(out) >= limit {
			break
		}
		c := *m
		c.Labels = append([]string(nil), m.Labels...)
		fillSender(&c)
		out = append(out, &c)
	}
	return out, nil
}

func fillSender(m *core.Message) {
	raw := m.Sender
	if lt := strings.LastIndex(raw, "<"); lt >= 0 {
		if gt := strings.LastIndex(raw, ">"); gt > lt {
			raw = raw[lt+1 : gt]
		}
	}
	m.SenderAddress = strings.ToLower(strings.TrimSpace(raw))
	if at := strings.LastIndex(m.SenderAddress, "@"); at >= 0 {
		m.SenderDomain = m.SenderAddress[at+1:]
	}
}

// AddLabel records the label on the stored message.
func (s *Source) AddLabel(ctx context.Context, messageID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.find(messageID)
	if m == nil {
		return fmt.Errorf("mock: unknown message %q", messageID)
	}
	if !m.HasLabel(label) {
		m.Labels = append(m.Labels, label)
	}
	s.record("add_label %s %s", messageID, label)
	s.logger.Info("Mock: added label",
		zap.String("message_id", messageID),
		zap.String("label", label))
	return nil
}

// RemoveLabel removes the label from the stored message.
func (s *Source) RemoveLabel(ctx context.Context, messageID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.find(messageID)
	if m == nil {
		return fmt.Errorf("mock: unknown message %q", messageID)
	}
	kept := m.Labels[:0]
	for _, l := range m.Labels {
		if !strings.EqualFold(l, label) {
			kept = append(kept, l)
		}
	}
	m.Labels = kept
	s.record("remove_label %s %s", messageID, label)
	return nil
}

// Archive drops the inbox label from the stored message.
func (s *Source) Archive(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.find(messageID)
	if m == nil {
		return fmt.Errorf("mock: unknown message %q", messageID)
	}
	kept := m.Labels[:0]
	for _, l := range m.Labels {
		if !strings.EqualFold(l, core.LabelInbox) {
			kept = append(kept, l)
		}
	}
	m.Labels = kept
	s.record("archive %s", messageID)
	s.logger.Info("Mock: archived message", zap.String("message_id", messageID))
	return nil
}

// CreateFilter records the filter and returns a synthetic ID.
func (s *Source) CreateFilter(ctx context.Context, sender, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFilter++
	id := fmt.Sprintf("mock_filter_%d", s.nextFilter)
	s.record("create_filter %s %s", sender, label)
	s.logger.Info("Mock: created filter",
		zap.String("sender", sender),
		zap.String("label", label),
		zap.String("filter_id", id))
	return id, nil
}

// Actions returns everything mutated so far, for tests.
func (s *Source) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

func (s *Source) find(id string) *core.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Source) record(format string, args ...interface{}) {
	s.actions = append(s.actions, fmt.Sprintf(format, args...))
}

var _ core.MailSource = (*Source)(nil)
