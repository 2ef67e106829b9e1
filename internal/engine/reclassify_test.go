package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/model"
)

func TestFixAllExistingTagAssignments(t *testing.T) {
	c, registry, _ := newTestClassifier(t)
	ctx := context.Background()

	require.NoError(t, registry.AddMapping(ctx, "expense", "supermarket", "Groceries"))

	txns := []*model.Transaction{
		{
			ID:          "t1",
			Description: "Weekly shop",
			Category:    "expense",
			Subcategory: "supermarket",
			Tag:         "Misc",
			Amount:      -4500,
		},
		{
			ID:          "t2",
			Description: "Monthly fee from Degiro",
			Tag:         model.TagInvestments,
			Amount:      -500,
		},
		{
			ID:          "t3",
			Description: "Already right",
			Category:    "expense",
			Subcategory: "supermarket",
			Tag:         "Groceries",
			Amount:      -3000,
		},
	}

	r := NewReclassifier(c, nil)
	report, err := r.FixAllExistingTagAssignments(ctx, txns, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Fixed)
	assert.Equal(t, 0, report.Skipped)

	assert.Equal(t, "Groceries", txns[0].Tag)
	assert.Equal(t, model.TagOther, txns[1].Tag)
	assert.Equal(t, "Groceries", txns[2].Tag, "unchanged tag stays")

	assert.Equal(t, 1, report.Transitions["Misc -> Groceries"])
	assert.Equal(t, 1, report.Transitions["Investments -> Other"])

	// Every applied change leaves an audit entry.
	require.Len(t, txns[0].FixHistory, 1)
	assert.Equal(t, "Misc", txns[0].FixHistory[0].OldTag)
	assert.Equal(t, "Groceries", txns[0].FixHistory[0].NewTag)
	assert.Empty(t, txns[2].FixHistory)
}

func TestFixAllExistingTagAssignments_PinnedSkipped(t *testing.T) {
	c, _, _ := newTestClassifier(t)
	ctx := context.Background()

	pinned := &model.Transaction{
		ID:          "t1",
		Description: "Monthly fee from Degiro",
		Tag:         model.TagInvestments,
		Amount:      -500,
		OverrideHistory: []model.OverrideEntry{
			{Timestamp: time.Now(), OldTag: "Other", NewTag: model.TagInvestments},
		},
	}

	r := NewReclassifier(c, nil)
	report, err := r.FixAllExistingTagAssignments(ctx, []*model.Transaction{pinned}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Fixed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, model.TagInvestments, pinned.Tag, "pinned tag untouched")
	assert.Empty(t, pinned.FixHistory)
}

func TestFixAllExistingTagAssignments_Idempotent(t *testing.T) {
	c, registry, _ := newTestClassifier(t)
	ctx := context.Background()

	require.NoError(t, registry.AddMapping(ctx, "expense", "supermarket", "Groceries"))

	txns := []*model.Transaction{
		{ID: "t1", Description: "Weekly shop", Category: "expense", Subcategory: "supermarket", Tag: "Misc", Amount: -4500},
		{ID: "t2", Description: "Monthly fee from Degiro", Amount: -500},
	}

	r := NewReclassifier(c, nil)
	_, err := r.FixAllExistingTagAssignments(ctx, txns, nil)
	require.NoError(t, err)

	second, err := r.FixAllExistingTagAssignments(ctx, txns, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Fixed, "second run changes nothing")
}

func TestFixAllExistingTagAssignments_Progress(t *testing.T) {
	c, _, _ := newTestClassifier(t)
	ctx := context.Background()

	txns := []*model.Transaction{
		{ID: "t1", Description: "a", Amount: -100},
		{ID: "t2", Description: "b", Amount: -100},
		{ID: "t3", Description: "c", Amount: -100},
	}

	var calls []int
	r := NewReclassifier(c, nil)
	_, err := r.FixAllExistingTagAssignments(ctx, txns, func(done, total int) {
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestFixAllExistingTagAssignments_ContextCancelled(t *testing.T) {
	c, _, _ := newTestClassifier(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txns := []*model.Transaction{
		{ID: "t1", Description: "a", Tag: "Misc", Amount: -100},
	}

	r := NewReclassifier(c, nil)
	report, err := r.FixAllExistingTagAssignments(ctx, txns, nil)
	require.Error(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, "Misc", txns[0].Tag)
}

func TestTransitionKey(t *testing.T) {
	assert.Equal(t, "Misc -> Groceries", TransitionKey("Misc", "Groceries"))
	assert.Equal(t, "(untagged) -> Other", TransitionKey("", "Other"))
}
