package core

import (
	"context"
)

// InferenceClient defines the interface for classifying messages with
// a language model provider.
type InferenceClient interface {
	// Classify produces a verdict for one message.
	Classify(ctx context.Context, msg *Message) (*Verdict, error)
}

// MailSource defines the interface for reading and mutating a mailbox.
// Implementations translate label names into whatever identifiers the
// provider uses.
type MailSource interface {
	// FetchBatch returns up to limit messages matching the query.
	FetchBatch(ctx context.Context, query string, limit int) ([]*Message, error)

	// AddLabel applies a label to a message, creating it if needed.
	AddLabel(ctx context.Context, messageID, label string) error

	// RemoveLabel removes a label from a message.
	RemoveLabel(ctx context.Context, messageID, label string) error

	// Archive removes a message from the inbox without deleting it.
	Archive(ctx context.Context, messageID string) error

	// CreateFilter installs a server-side rule that labels and
	// archives future mail from the sender. It returns the provider's
	// filter identifier.
	CreateFilter(ctx context.Context, sender, label string) (string, error)
}

// SenderRepository defines the interface for persisting sender records.
type SenderRepository interface {
	// Load reads every stored record, keyed by sender.
	Load(ctx context.Context) (map[string]*SenderRecord, error)

	// Upsert writes one record, replacing any previous version.
	Upsert(ctx context.Context, rec *SenderRecord) error

	// Close releases the underlying storage.
	Close() error
}

// SenderMemory is the store surface the decision pipeline works
// against. It hides persistence behind simple keyed operations.
type SenderMemory interface {
	// Get returns a copy of the record for a sender key.
	Get(key string) (*SenderRecord, bool)

	// RecordClassification folds one verdict into the sender's record
	// and persists it. The returned record reflects the update even
	// when persistence failed.
	RecordClassification(ctx context.Context, key string, category Category) (*SenderRecord, error)

	// FilterEligible reports whether the sender has crossed the
	// trust threshold and has no filter yet.
	FilterEligible(key string) bool

	// MarkFilterCreated records that a filter now exists for the
	// sender. It fails with ErrInvalidState if one is already
	// recorded or the sender is unknown.
	MarkFilterCreated(ctx context.Context, key string) error
}

// ProtectedChecker reports whether a message is off limits for
// automated action.
type ProtectedChecker interface {
	IsProtected(msg *Message) bool
}
