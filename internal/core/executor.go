package core

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/retry"
)

// Executor applies routed decisions to the mailbox. Mutations are
// idempotent against the message's known label state, transient
// provider failures are retried under the policy, and a permanent
// failure is scoped to its message so the run continues.
type Executor struct {
	source    MailSource
	memory    SenderMemory
	protected ProtectedChecker
	policy    retry.Policy
	dryRun    bool
	logger    *zap.Logger
}

// NewExecutor creates a new executor.
func NewExecutor(
	source MailSource,
	memory SenderMemory,
	protected ProtectedChecker,
	policy retry.Policy,
	dryRun bool,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		source:    source,
		memory:    memory,
		protected: protected,
		policy:    policy,
		dryRun:    dryRun,
		logger:    logger,
	}
}

// DryRun reports whether the executor suppresses mailbox mutations.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Apply carries out one decision. It never returns an error; failures
// are recorded on the result so the caller can account for them and
// move on.
func (e *Executor) Apply(ctx context.Context, msg *Message, d *Decision) *ExecutionResult {
	res := &ExecutionResult{
		MessageID: d.MessageID,
		Action:    d.Action,
	}

	if d.Skipped() {
		return res
	}

	if e.dryRun {
		e.logDryRun(msg, d)
		return res
	}

	switch d.Action {
	case ActionArchiveAndLabel:
		if err := e.addLabel(ctx, msg, d.Label); err != nil {
			e.fail(res, msg, "add label", err)
			return res
		}
		if msg.InInbox() {
			err := e.policy.Do(ctx, func() error {
				return e.source.Archive(ctx, msg.ID)
			})
			if err != nil {
				e.fail(res, msg, "archive", err)
				return res
			}
		}
	case ActionLabelForReview:
		if err := e.addLabel(ctx, msg, d.Label); err != nil {
			e.fail(res, msg, "add label", err)
			return res
		}
	}

	res.Applied = true
	e.logger.Info("Applied action",
		zap.String("message_id", msg.ID),
		zap.String("action", string(d.Action)),
		zap.String("label", d.Label))

	if d.TriggersFilterCreation {
		e.createFilter(ctx, msg, d, res)
	}

	return res
}

// addLabel applies the label unless the message already carries it.
func (e *Executor) addLabel(ctx context.Context, msg *Message, label string) error {
	if label == "" || msg.HasLabel(label) {
		return nil
	}
	return e.policy.Do(ctx, func() error {
		return e.source.AddLabel(ctx, msg.ID, label)
	})
}

// createFilter installs the sender filter and records it. Failure here
// never undoes the message action that already succeeded.
func (e *Executor) createFilter(ctx context.Context, msg *Message, d *Decision, res *ExecutionResult) {
	// Last line of defense: a filter outlives the run, so re-check
	// protection even though the router already did.
	if e.protected.IsProtected(msg) {
		e.logger.Warn("Refusing to create filter for protected sender",
			zap.String("sender", d.SenderKey))
		return
	}

	var filterID string
	err := e.policy.Do(ctx, func() error {
		var ferr error
		filterID, ferr = e.source.CreateFilter(ctx, d.SenderKey, d.FilterLabel)
		return ferr
	})
	if err != nil {
		e.logger.Error("Failed to create sender filter",
			zap.String("sender", d.SenderKey),
			zap.String("label", d.FilterLabel),
			zap.Error(err))
		return
	}

	res.FilterCreated = true
	e.logger.Info("Created sender filter",
		zap.String("sender", d.SenderKey),
		zap.String("label", d.FilterLabel),
		zap.String("filter_id", filterID))

	if err := e.memory.MarkFilterCreated(ctx, d.SenderKey); err != nil {
		if errors.Is(err, ErrInvalidState) {
			e.logger.Error("Filter bookkeeping rejected",
				zap.String("sender", d.SenderKey),
				zap.Error(err))
		} else {
			e.logger.Warn("Filter flag not persisted",
				zap.String("sender", d.SenderKey),
				zap.Error(err))
		}
	}
}

// fail records a terminal failure for this message.
func (e *Executor) fail(res *ExecutionResult, msg *Message, op string, err error) {
	if IsTransient(err) {
		res.Failure = FailureTransient
	} else {
		res.Failure = FailurePermanent
	}
	res.Err = err
	e.logger.Error("Action failed",
		zap.String("message_id", msg.ID),
		zap.String("op", op),
		zap.String("failure", string(res.Failure)),
		zap.Error(err))
}

func (e *Executor) logDryRun(msg *Message, d *Decision) {
	switch d.Action {
	case ActionArchiveAndLabel:
		e.logger.Info("Dry run: would archive and label",
			zap.String("message_id", msg.ID),
			zap.String("sender", d.SenderKey),
			zap.String("label", d.Label))
	case ActionLabelForReview:
		e.logger.Info("Dry run: would label for review",
			zap.String("message_id", msg.ID),
			zap.String("sender", d.SenderKey),
			zap.String("label", d.Label))
	}
	if d.TriggersFilterCreation {
		e.logger.Info("Dry run: would create sender filter",
			zap.String("sender", d.SenderKey),
			zap.String("label", d.FilterLabel))
	}
}
