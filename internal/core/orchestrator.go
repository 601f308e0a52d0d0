package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Orchestrator drives one full pass: fetch a batch, classify, route,
// act, summarize. Decisions and actions stay strictly sequential in
// batch order; only model inference may run ahead, bounded by the
// prefetch depth.
type Orchestrator struct {
	source    MailSource
	inference InferenceClient
	protected ProtectedChecker
	router    *Router
	executor  *Executor
	logger    *zap.Logger
	query     string
	limit     int
	prefetch  int
}

// NewOrchestrator creates a new orchestrator. prefetch is clamped to
// at least 1.
func NewOrchestrator(
	source MailSource,
	inference InferenceClient,
	protected ProtectedChecker,
	router *Router,
	executor *Executor,
	logger *zap.Logger,
	query string,
	limit int,
	prefetch int,
) *Orchestrator {
	if prefetch < 1 {
		prefetch = 1
	}
	return &Orchestrator{
		source:    source,
		inference: inference,
		protected: protected,
		router:    router,
		executor:  executor,
		logger:    logger,
		query:     query,
		limit:     limit,
		prefetch:  prefetch,
	}
}

// Run processes one batch and returns its summary. Only the inability
// to fetch the batch is an error; anything that goes wrong for an
// individual message is absorbed into the summary. Cancellation stops
// the run between messages and still returns a summary.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	sum := &RunSummary{
		StartedAt: time.Now(),
		DryRun:    o.executor.DryRun(),
	}

	msgs, err := o.source.FetchBatch(ctx, o.query, o.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message batch: %w", err)
	}
	sum.Fetched = len(msgs)
	o.logger.Info("Fetched message batch",
		zap.Int("messages", len(msgs)),
		zap.String("query", o.query),
		zap.Bool("dry_run", sum.DryRun))

	verdicts := o.classifyAhead(ctx, msgs)

loop:
	for i, msg := range msgs {
		select {
		case <-ctx.Done():
			sum.Interrupted = true
			o.logger.Warn("Run interrupted",
				zap.Int("processed", sum.Processed),
				zap.Int("remaining", len(msgs)-i))
			break loop
		default:
		}

		iv := <-verdicts[i]
		d := o.router.Decide(ctx, msg, iv.verdict, iv.err)
		o.logDecision(msg, d)
		res := o.executor.Apply(ctx, msg, d)
		sum.Record(d, res)
	}

	sum.FinishedAt = time.Now()
	o.logSummary(sum)
	return sum, nil
}

type inferenceResult struct {
	verdict *Verdict
	err     error
}

// classifyAhead starts classification for the batch, at most prefetch
// messages in flight, delivering results in batch order through
// per-message buffered channels. Protected messages are never sent to
// the model; their slot carries an empty result the router ignores
// behind its safety gate.
func (o *Orchestrator) classifyAhead(ctx context.Context, msgs []*Message) []<-chan inferenceResult {
	chans := make([]chan inferenceResult, len(msgs))
	out := make([]<-chan inferenceResult, len(msgs))
	for i := range msgs {
		chans[i] = make(chan inferenceResult, 1)
		out[i] = chans[i]
	}

	sem := make(chan struct{}, o.prefetch)
	go func() {
		for i, msg := range msgs {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				chans[i] <- inferenceResult{err: ctx.Err()}
				continue
			}
			go func(i int, msg *Message) {
				defer func() { <-sem }()
				var r inferenceResult
				if !o.protected.IsProtected(msg) {
					r.verdict, r.err = o.inference.Classify(ctx, msg)
				}
				chans[i] <- r
			}(i, msg)
		}
	}()

	return out
}

func (o *Orchestrator) logDecision(msg *Message, d *Decision) {
	o.logger.Info("Routed message",
		zap.String("message_id", msg.ID),
		zap.String("sender", d.SenderKey),
		zap.String("subject", msg.Subject),
		zap.String("action", string(d.Action)),
		zap.String("tier", string(d.Tier)),
		zap.String("category", string(d.Category)),
		zap.Float64("confidence", d.Confidence),
		zap.String("reason", d.Reason),
		zap.Bool("creates_filter", d.TriggersFilterCreation))
}

func (o *Orchestrator) logSummary(s *RunSummary) {
	o.logger.Info("Run complete",
		zap.Int("fetched", s.Fetched),
		zap.Int("processed", s.Processed),
		zap.Int("archived", s.Archived),
		zap.Int("labeled_for_review", s.LabeledForReview),
		zap.Int("skipped", s.Skipped),
		zap.Int("protected", s.ProtectedSkips),
		zap.Int("low_confidence", s.LowConfidenceSkips),
		zap.Int("non_marketing", s.CategorySkips),
		zap.Int("inference_failures", s.InferenceFailures),
		zap.Int("action_failures", s.ActionFailures),
		zap.Int("filters_created", s.FiltersCreated),
		zap.Int("filter_failures", s.FilterFailures),
		zap.Bool("dry_run", s.DryRun),
		zap.Bool("interrupted", s.Interrupted),
		zap.Duration("duration", s.Duration()))
}
