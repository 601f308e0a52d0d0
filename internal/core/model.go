package core

import (
	"strings"
	"time"
)

// Category is a normalized classification bucket for an inbox message.
type Category string

const (
	CategoryMarketing  Category = "marketing"
	CategoryOutreach   Category = "outreach"
	CategoryNewsletter Category = "newsletter"
	CategoryOther      Category = "other"
)

// ParseCategory maps a raw model label onto the closed category set.
// Labels from older prompt revisions (PROMOTION, COURSE, IMPORTANT) are
// folded into the nearest current bucket, and anything unrecognized is
// treated as "other" so it can never trigger an automated action.
func ParseCategory(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "marketing", "promotion", "promo", "course":
		return CategoryMarketing
	case "outreach", "cold_outreach", "cold outreach":
		return CategoryOutreach
	case "newsletter", "newsletters", "digest":
		return CategoryNewsletter
	default:
		return CategoryOther
	}
}

// Actionable reports whether the category may be acted on automatically.
func (c Category) Actionable() bool {
	switch c {
	case CategoryMarketing, CategoryOutreach, CategoryNewsletter:
		return true
	}
	return false
}

// Title returns the capitalized form used when building label names.
func (c Category) Title() string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// LabelInbox is the provider-neutral name of the inbox system label.
const LabelInbox = "INBOX"

// Message represents a single inbox message as seen by the decision
// pipeline. Labels holds human-readable label names, not provider IDs.
type Message struct {
	ID            string
	ThreadID      string
	Sender        string
	SenderAddress string
	SenderDomain  string
	Subject       string
	Snippet       string
	Labels        []string
}

// SenderKey returns the identity the sender memory is keyed by: the
// lowercase address, falling back to the domain when no address could
// be parsed out of the From header.
func (m *Message) SenderKey() string {
	if m.SenderAddress != "" {
		return strings.ToLower(m.SenderAddress)
	}
	return strings.ToLower(m.SenderDomain)
}

// HasLabel reports whether the message already carries the named label.
func (m *Message) HasLabel(name string) bool {
	for _, l := range m.Labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

// InInbox reports whether the message is still in the inbox.
func (m *Message) InInbox() bool {
	return m.HasLabel(LabelInbox)
}

// Verdict represents the outcome of a single model inference.
type Verdict struct {
	Category    Category
	Confidence  float64
	Explanation string
	ModelUsed   string
}

// Malformed reports whether the verdict is unusable and must be routed
// as an inference failure rather than trusted.
func (v *Verdict) Malformed() bool {
	if v == nil {
		return true
	}
	if v.Category == "" {
		return true
	}
	return v.Confidence < 0 || v.Confidence > 1
}

// ConfidenceTier is the band a verdict's confidence falls into.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// Action is the terminal operation chosen for a message.
type Action string

const (
	ActionArchiveAndLabel Action = "ARCHIVE_AND_LABEL"
	ActionLabelForReview  Action = "LABEL_FOR_REVIEW"
	ActionSkip            Action = "SKIP"
)

// Decision reasons attached to every routed message.
const (
	ReasonProtected        = "protected"
	ReasonInferenceFailure = "inference failure"
	ReasonLowConfidence    = "low confidence"
	ReasonNotActionable    = "non-marketing category"
	ReasonHighConfidence   = "high confidence"
	ReasonMediumConfidence = "medium confidence"
)

// Decision represents the routed outcome for one message. Exactly one
// is produced per processed message, including failures.
type Decision struct {
	MessageID              string
	SenderKey              string
	Action                 Action
	Tier                   ConfidenceTier
	Category               Category
	Confidence             float64
	Reason                 string
	Label                  string
	FilterLabel            string
	TriggersFilterCreation bool
}

// Skipped reports whether the decision terminated without an action.
func (d *Decision) Skipped() bool {
	return d.Action == ActionSkip
}

// SenderRecord represents the long-lived memory for one sender.
type SenderRecord struct {
	Key                 string
	Domain              string
	ClassificationCount int
	LastSeenCategory    Category
	FilterCreated       bool
	LastSeen            time.Time
}

// Clone returns an independent copy so callers can never mutate the
// store's canonical record.
func (r *SenderRecord) Clone() *SenderRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// ExecutionResult represents what the executor actually did for one
// decision, including the degraded outcomes.
type ExecutionResult struct {
	MessageID     string
	Action        Action
	Applied       bool
	FilterCreated bool
	Failure       FailureKind
	Err           error
}

// FailureKind classifies an execution failure for run accounting.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureTransient    FailureKind = "transient_exhausted"
	FailurePermanent    FailureKind = "permanent"
	FailureInvalidState FailureKind = "invalid_state"
)

// RunSummary aggregates one full pass over the inbox.
type RunSummary struct {
	Fetched            int
	Processed          int
	Archived           int
	LabeledForReview   int
	Skipped            int
	ProtectedSkips     int
	LowConfidenceSkips int
	CategorySkips      int
	InferenceFailures  int
	ActionFailures     int
	FiltersCreated     int
	FilterFailures     int
	DryRun             bool
	Interrupted        bool
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Record folds one decision and its execution outcome into the summary.
func (s *RunSummary) Record(d *Decision, res *ExecutionResult) {
	s.Processed++
	switch d.Action {
	case ActionArchiveAndLabel:
		s.Archived++
	case ActionLabelForReview:
		s.LabeledForReview++
	case ActionSkip:
		s.Skipped++
		switch d.Reason {
		case ReasonProtected:
			s.ProtectedSkips++
		case ReasonInferenceFailure:
			s.InferenceFailures++
		case ReasonLowConfidence:
			s.LowConfidenceSkips++
		case ReasonNotActionable:
			s.CategorySkips++
		}
	}
	if res == nil {
		return
	}
	if res.Err != nil && d.Action != ActionSkip {
		s.ActionFailures++
	}
	if d.TriggersFilterCreation && !s.DryRun {
		if res.FilterCreated {
			s.FiltersCreated++
		} else {
			s.FilterFailures++
		}
	}
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
