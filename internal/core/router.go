package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// RouterConfig holds the thresholds and label names the router works
// with. ArchiveConfidence must be at least ReviewConfidence; both
// bounds are inclusive.
type RouterConfig struct {
	ArchiveConfidence float64
	ReviewConfidence  float64
	LabelPrefix       string
	ReviewLabel       string
}

// Router turns one message plus its verdict into exactly one decision.
// Gates run in a fixed order: safety, inference health, confidence,
// category. Only messages that pass every gate touch sender memory.
type Router struct {
	cfg       RouterConfig
	protected ProtectedChecker
	memory    SenderMemory
	logger    *zap.Logger
}

// NewRouter creates a new router.
func NewRouter(cfg RouterConfig, protected ProtectedChecker, memory SenderMemory, logger *zap.Logger) *Router {
	return &Router{
		cfg:       cfg,
		protected: protected,
		memory:    memory,
		logger:    logger,
	}
}

// Decide routes one message. inferenceErr carries the classification
// failure, if any; the router degrades it to a skip rather than
// propagating it, so a bad model answer can never stop a run.
func (r *Router) Decide(ctx context.Context, msg *Message, verdict *Verdict, inferenceErr error) *Decision {
	d := &Decision{
		MessageID: msg.ID,
		SenderKey: msg.SenderKey(),
	}

	// Safety gate. Protected senders and anything a human (or an
	// earlier run) already labeled are terminal skips, evaluated
	// before the verdict so model output cannot override them.
	if r.protected.IsProtected(msg) || r.hasAgentLabel(msg) {
		d.Action = ActionSkip
		d.Reason = ReasonProtected
		return d
	}

	if inferenceErr != nil || verdict.Malformed() {
		if inferenceErr != nil {
			r.logger.Warn("Classification failed, skipping message",
				zap.String("message_id", msg.ID),
				zap.Error(inferenceErr))
		}
		d.Action = ActionSkip
		d.Reason = ReasonInferenceFailure
		return d
	}

	d.Category = verdict.Category
	d.Confidence = verdict.Confidence

	switch {
	case verdict.Confidence >= r.cfg.ArchiveConfidence:
		d.Tier = TierHigh
		d.Action = ActionArchiveAndLabel
		d.Reason = ReasonHighConfidence
	case verdict.Confidence >= r.cfg.ReviewConfidence:
		d.Tier = TierMedium
		d.Action = ActionLabelForReview
		d.Reason = ReasonMediumConfidence
	default:
		d.Tier = TierLow
		d.Action = ActionSkip
		d.Reason = ReasonLowConfidence
		return d
	}

	// Category gate. Confident verdicts outside the actionable set
	// still skip; the tier is kept for the log line.
	if !verdict.Category.Actionable() {
		d.Action = ActionSkip
		d.Reason = ReasonNotActionable
		return d
	}

	switch d.Action {
	case ActionArchiveAndLabel:
		d.Label = r.categoryLabel(verdict.Category)
	case ActionLabelForReview:
		d.Label = r.cfg.ReviewLabel
	}

	// The sender's memory advances for every actionable decision,
	// review tier included. Persistence failures are logged by the
	// store and must not undo the decision.
	if _, err := r.memory.RecordClassification(ctx, d.SenderKey, verdict.Category); err != nil {
		r.logger.Warn("Sender memory update not persisted",
			zap.String("sender", d.SenderKey),
			zap.Error(err))
	}

	if r.memory.FilterEligible(d.SenderKey) {
		d.TriggersFilterCreation = true
		d.FilterLabel = r.categoryLabel(verdict.Category)
	}

	return d
}

// hasAgentLabel reports whether any label on the message carries the
// router's own prefix, meaning the message was already handled.
func (r *Router) hasAgentLabel(msg *Message) bool {
	prefix := r.cfg.LabelPrefix
	if prefix == "" {
		return false
	}
	for _, l := range msg.Labels {
		if len(l) >= len(prefix) && strings.EqualFold(l[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}

func (r *Router) categoryLabel(c Category) string {
	return r.cfg.LabelPrefix + c.Title()
}
