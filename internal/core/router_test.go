package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRouterConfig() RouterConfig {
	return RouterConfig{
		ArchiveConfidence: 0.80,
		ReviewConfidence:  0.55,
		LabelPrefix:       "AUTO/",
		ReviewLabel:       "AUTO/Review",
	}
}

func newTestRouter(t *testing.T, protected *fakeProtected, memory *fakeMemory) *Router {
	t.Helper()
	if protected == nil {
		protected = &fakeProtected{}
	}
	if memory == nil {
		memory = newFakeMemory(3)
	}
	return NewRouter(testRouterConfig(), protected, memory, zap.NewNop())
}

func TestRouterProtectedSender(t *testing.T) {
	protected := &fakeProtected{keys: map[string]bool{"billing@bank.com": true}}
	memory := newFakeMemory(3)
	r := newTestRouter(t, protected, memory)

	msg := testMessage("m1", "billing@bank.com")
	verdict := &Verdict{Category: CategoryMarketing, Confidence: 0.99}

	d := r.Decide(context.Background(), msg, verdict, nil)

	assert.Equal(t, ActionSkip, d.Action)
	assert.Equal(t, ReasonProtected, d.Reason)
	assert.Empty(t, memory.recorded, "protected messages must not touch sender memory")
}

func TestRouterAlreadyLabeled(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		skip   bool
	}{
		{"Agent label present", []string{"INBOX", "AUTO/Marketing"}, true},
		{"Agent label different case", []string{"INBOX", "auto/review"}, true},
		{"No agent label", []string{"INBOX", "UNREAD"}, false},
		{"Prefix inside label name", []string{"INBOX", "MYAUTO/Thing"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, nil, nil)
			msg := testMessage("m1", "news@shop.com", tt.labels...)
			verdict := &Verdict{Category: CategoryMarketing, Confidence: 0.99}

			d := r.Decide(context.Background(), msg, verdict, nil)

			if tt.skip {
				assert.Equal(t, ActionSkip, d.Action)
				assert.Equal(t, ReasonProtected, d.Reason)
			} else {
				assert.Equal(t, ActionArchiveAndLabel, d.Action)
			}
		})
	}
}

func TestRouterInferenceFailure(t *testing.T) {
	r := newTestRouter(t, nil, nil)
	msg := testMessage("m1", "news@shop.com")

	d := r.Decide(context.Background(), msg, nil, errors.New("model unreachable"))

	assert.Equal(t, ActionSkip, d.Action)
	assert.Equal(t, ReasonInferenceFailure, d.Reason)
}

func TestRouterMalformedVerdict(t *testing.T) {
	r := newTestRouter(t, nil, nil)
	msg := testMessage("m1", "news@shop.com")

	tests := []struct {
		name    string
		verdict *Verdict
	}{
		{"Nil verdict", nil},
		{"Missing category", &Verdict{Confidence: 0.9}},
		{"Confidence above one", &Verdict{Category: CategoryMarketing, Confidence: 1.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Decide(context.Background(), msg, tt.verdict, nil)

			assert.Equal(t, ActionSkip, d.Action)
			assert.Equal(t, ReasonInferenceFailure, d.Reason)
		})
	}
}

func TestRouterConfidenceTiers(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		action     Action
		tier       ConfidenceTier
		reason     string
	}{
		{"Well above archive threshold", 0.95, ActionArchiveAndLabel, TierHigh, ReasonHighConfidence},
		{"Exactly archive threshold", 0.80, ActionArchiveAndLabel, TierHigh, ReasonHighConfidence},
		{"Between thresholds", 0.70, ActionLabelForReview, TierMedium, ReasonMediumConfidence},
		{"Exactly review threshold", 0.55, ActionLabelForReview, TierMedium, ReasonMediumConfidence},
		{"Just below review threshold", 0.549999, ActionSkip, TierLow, ReasonLowConfidence},
		{"Zero confidence", 0.0, ActionSkip, TierLow, ReasonLowConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, nil, nil)
			msg := testMessage("m1", "news@shop.com")
			verdict := &Verdict{Category: CategoryMarketing, Confidence: tt.confidence}

			d := r.Decide(context.Background(), msg, verdict, nil)

			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.tier, d.Tier)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestRouterCategoryGate(t *testing.T) {
	t.Run("Confident non-actionable skips with tier kept", func(t *testing.T) {
		memory := newFakeMemory(3)
		r := newTestRouter(t, nil, memory)
		msg := testMessage("m1", "friend@personal.com")
		verdict := &Verdict{Category: CategoryOther, Confidence: 0.9}

		d := r.Decide(context.Background(), msg, verdict, nil)

		assert.Equal(t, ActionSkip, d.Action)
		assert.Equal(t, ReasonNotActionable, d.Reason)
		assert.Equal(t, TierHigh, d.Tier)
		assert.Empty(t, memory.recorded, "non-actionable categories must not advance sender memory")
	})

	t.Run("Unconfident non-actionable reports low confidence", func(t *testing.T) {
		r := newTestRouter(t, nil, nil)
		msg := testMessage("m1", "friend@personal.com")
		verdict := &Verdict{Category: CategoryOther, Confidence: 0.3}

		d := r.Decide(context.Background(), msg, verdict, nil)

		assert.Equal(t, ActionSkip, d.Action)
		assert.Equal(t, ReasonLowConfidence, d.Reason)
	})
}

func TestRouterLabels(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	t.Run("Archive gets category label", func(t *testing.T) {
		d := r.Decide(context.Background(), testMessage("m1", "a@shop.com"),
			&Verdict{Category: CategoryNewsletter, Confidence: 0.9}, nil)
		assert.Equal(t, "AUTO/Newsletter", d.Label)
	})

	t.Run("Review gets review label", func(t *testing.T) {
		d := r.Decide(context.Background(), testMessage("m2", "b@shop.com"),
			&Verdict{Category: CategoryNewsletter, Confidence: 0.6}, nil)
		assert.Equal(t, "AUTO/Review", d.Label)
	})
}

func TestRouterSenderMemory(t *testing.T) {
	t.Run("Actionable decisions recorded, review tier included", func(t *testing.T) {
		memory := newFakeMemory(3)
		r := newTestRouter(t, nil, memory)

		r.Decide(context.Background(), testMessage("m1", "news@shop.com"),
			&Verdict{Category: CategoryMarketing, Confidence: 0.9}, nil)
		r.Decide(context.Background(), testMessage("m2", "news@shop.com"),
			&Verdict{Category: CategoryMarketing, Confidence: 0.6}, nil)

		assert.Equal(t, []string{"news@shop.com", "news@shop.com"}, memory.recorded)
	})

	t.Run("Memory persistence failure does not change the decision", func(t *testing.T) {
		memory := newFakeMemory(3)
		memory.recordErr = errors.New("disk full")
		r := newTestRouter(t, nil, memory)

		d := r.Decide(context.Background(), testMessage("m1", "news@shop.com"),
			&Verdict{Category: CategoryMarketing, Confidence: 0.9}, nil)

		assert.Equal(t, ActionArchiveAndLabel, d.Action)
	})
}

func TestRouterFilterEligibility(t *testing.T) {
	memory := newFakeMemory(3)
	memory.seed(&SenderRecord{Key: "news@shop.com", ClassificationCount: 2})
	r := newTestRouter(t, nil, memory)

	// Third actionable classification crosses the threshold
	d := r.Decide(context.Background(), testMessage("m1", "news@shop.com"),
		&Verdict{Category: CategoryMarketing, Confidence: 0.9}, nil)

	require.True(t, d.TriggersFilterCreation)
	assert.Equal(t, "AUTO/Marketing", d.FilterLabel)

	t.Run("Existing filter suppresses the trigger", func(t *testing.T) {
		memory := newFakeMemory(3)
		memory.seed(&SenderRecord{Key: "news@shop.com", ClassificationCount: 5, FilterCreated: true})
		r := newTestRouter(t, nil, memory)

		d := r.Decide(context.Background(), testMessage("m2", "news@shop.com"),
			&Verdict{Category: CategoryMarketing, Confidence: 0.9}, nil)

		assert.False(t, d.TriggersFilterCreation)
	})
}
