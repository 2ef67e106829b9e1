package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

func TestRegistry_AddAndLookup(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	require.NoError(t, r.AddMapping(ctx, "Expense", "Supermarket", "Groceries"))

	tag, source, ok := r.LookupTag("expense", "supermarket")
	assert.True(t, ok)
	assert.Equal(t, "Groceries", tag)
	assert.Equal(t, model.SourceUser, source)

	// Lookup is case-insensitive on keys.
	tag, _, ok = r.LookupTag("EXPENSE", "Supermarket")
	assert.True(t, ok)
	assert.Equal(t, "Groceries", tag)

	_, _, ok = r.LookupTag("expense", "rent")
	assert.False(t, ok)
}

func TestRegistry_AddMapping_RejectsEmptyFields(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	tests := []struct {
		name        string
		category    string
		subcategory string
		tag         string
	}{
		{"empty category", "", "supermarket", "Groceries"},
		{"empty subcategory", "expense", "", "Groceries"},
		{"empty tag", "expense", "supermarket", ""},
		{"whitespace only", "  ", "supermarket", "Groceries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.AddMapping(ctx, tt.category, tt.subcategory, tt.tag)
			assert.ErrorIs(t, err, common.ErrInvalidMapping)
		})
	}
}

func TestRegistry_RemoveMapping(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	require.NoError(t, r.AddMapping(ctx, "expense", "supermarket", "Groceries"))
	require.NoError(t, r.RemoveMapping(ctx, "expense", "supermarket"))

	_, _, ok := r.LookupTag("expense", "supermarket")
	assert.False(t, ok)

	err := r.RemoveMapping(ctx, "expense", "supermarket")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRegistry_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewRegistry(nil)

	require.NoError(t, src.AddMapping(ctx, "expense", "supermarket", "Groceries"))
	require.NoError(t, src.AddMapping(ctx, "expense", "rent", "Housing"))
	require.NoError(t, src.AddMapping(ctx, "income", "salary", "Income"))

	exported := src.ExportMapping()

	dst := NewRegistry(nil)
	require.NoError(t, dst.ImportMapping(ctx, exported, false))

	assert.Equal(t, exported, dst.ExportMapping())
}

func TestRegistry_ImportMapping_RejectsMalformedPayload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		payload any
		name    string
	}{
		{name: "not an object", payload: "just a string"},
		{name: "array payload", payload: []any{"a", "b"}},
		{name: "category not an object", payload: map[string]any{"expense": "Groceries"}},
		{name: "tag not a string", payload: map[string]any{
			"expense": map[string]any{"supermarket": 42},
		}},
		{name: "empty subcategory key", payload: map[string]any{
			"expense": map[string]any{"": "Groceries"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			require.NoError(t, r.AddMapping(ctx, "income", "salary", "Income"))

			err := r.ImportMapping(ctx, tt.payload, false)
			assert.ErrorIs(t, err, common.ErrInvalidPayload)

			// Rejection leaves existing state untouched.
			tag, _, ok := r.LookupTag("income", "salary")
			assert.True(t, ok)
			assert.Equal(t, "Income", tag)
			assert.Len(t, r.ExportMapping(), 1)
		})
	}
}

func TestRegistry_ImportMapping_MergeAndReset(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	require.NoError(t, r.AddMapping(ctx, "expense", "supermarket", "Groceries"))

	payload := map[string]any{
		"expense": map[string]any{"supermarket": "Food"},
		"income":  map[string]any{"salary": "Income"},
	}

	// Merge: collision overwrites, other entries survive.
	require.NoError(t, r.ImportMapping(ctx, payload, false))
	tag, _, _ := r.LookupTag("expense", "supermarket")
	assert.Equal(t, "Food", tag)

	// Reset: previous user entries are cleared first.
	require.NoError(t, r.AddMapping(ctx, "expense", "rent", "Housing"))
	require.NoError(t, r.ImportMapping(ctx, payload, true))
	_, _, ok := r.LookupTag("expense", "rent")
	assert.False(t, ok)
	tag, _, _ = r.LookupTag("income", "salary")
	assert.Equal(t, "Income", tag)
}

func TestRegistry_ExtractAndMergeAllRules(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	// A user mapping colliding with a system rule must survive extraction.
	require.NoError(t, r.AddMapping(ctx, "expense", "supermarket", "Food"))

	added, err := r.ExtractAndMergeAllRules(ctx)
	require.NoError(t, err)
	assert.Positive(t, added)

	tag, source, ok := r.LookupTag("expense", "supermarket")
	require.True(t, ok)
	assert.Equal(t, "Food", tag, "user mapping wins over extracted system rule")
	assert.Equal(t, model.SourceUser, source)

	// System mappings without user collision are extracted.
	tag, source, ok = r.LookupTag("expense", "rent")
	require.True(t, ok)
	assert.Equal(t, "Housing", tag)
	assert.Equal(t, model.SourceSystem, source)

	// Keyword rules become keyword entries.
	entries := r.KeywordEntries()
	require.NotEmpty(t, entries)
	keywords := make(map[string]string)
	for _, e := range entries {
		keywords[e.Keyword] = e.Tag
	}
	assert.Equal(t, "Subscriptions", keywords["netflix"])
	assert.Equal(t, "Subscriptions", keywords["spotify"])
}

func TestRegistry_ResetToDefaults(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	require.NoError(t, r.AddMapping(ctx, "expense", "supermarket", "Groceries"))
	require.NoError(t, r.SetLearnedRule(ctx, model.LearnedRule{ID: "1", Tag: "Subscriptions"}))

	_, err := r.ExtractAndMergeAllRules(ctx)
	require.NoError(t, err)

	require.NoError(t, r.ResetToDefaults(ctx))

	_, _, ok := r.LookupTag("expense", "supermarket")
	assert.False(t, ok, "user mapping cleared")
	assert.Empty(t, r.LearnedRules(), "learned rules cleared")

	// Extracted system entries survive a reset.
	tag, _, ok := r.LookupTag("expense", "rent")
	assert.True(t, ok)
	assert.Equal(t, "Housing", tag)
}

func TestRegistry_LearnedRules(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	require.NoError(t, r.SetLearnedRule(ctx, model.LearnedRule{ID: "b", Tag: "Subscriptions"}))
	require.NoError(t, r.SetLearnedRule(ctx, model.LearnedRule{ID: "a", Tag: "Groceries"}))

	rules := r.LearnedRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "Groceries", rules[0].Tag, "deterministic tag order")
	assert.Equal(t, "Subscriptions", rules[1].Tag)

	// Replacement, not accumulation.
	require.NoError(t, r.SetLearnedRule(ctx, model.LearnedRule{ID: "c", Tag: "Groceries"}))
	rules = r.LearnedRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "c", rules[0].ID)
}

func TestRegistry_RecordLearnedUse(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	require.NoError(t, r.SetLearnedRule(ctx, model.LearnedRule{ID: "a", Tag: "Groceries"}))

	r.RecordLearnedUse(ctx, "Groceries")
	r.RecordLearnedUse(ctx, "Groceries")
	r.RecordLearnedUse(ctx, "missing") // no-op

	rules := r.LearnedRules()
	require.Len(t, rules, 1)
	assert.Equal(t, 2, rules[0].UseCount)
	assert.False(t, rules[0].LastUsed.IsZero())
}

func TestRegistry_KeywordEntries_LongestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	_, err := r.ExtractAndMergeAllRules(ctx)
	require.NoError(t, err)

	entries := r.KeywordEntries()
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, len(entries[i-1].Keyword), len(entries[i].Keyword))
	}
}
