package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	// Running migrations again must be a no-op.
	require.NoError(t, store.Migrate(ctx))

	var version int
	err := store.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMappings_CRUD(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	entry := model.MappingEntry{
		Category:    "expense",
		Subcategory: "supermarket",
		Tag:         "Groceries",
		Source:      model.SourceUser,
	}
	require.NoError(t, store.SaveMapping(ctx, entry))

	// Upsert on the same key.
	entry.Tag = "Food"
	require.NoError(t, store.SaveMapping(ctx, entry))

	listed, err := store.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Food", listed[0].Tag)
	assert.Equal(t, model.SourceUser, listed[0].Source)

	require.NoError(t, store.DeleteMapping(ctx, "expense", "supermarket"))

	listed, err = store.ListMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	err = store.DeleteMapping(ctx, "expense", "supermarket")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMappings_DeleteBySource(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, model.MappingEntry{
		Category: "expense", Subcategory: "supermarket", Tag: "Groceries", Source: model.SourceUser,
	}))
	require.NoError(t, store.SaveMapping(ctx, model.MappingEntry{
		Category: "expense", Subcategory: "rent", Tag: "Housing", Source: model.SourceSystem,
	}))

	require.NoError(t, store.DeleteMappingsBySource(ctx, model.SourceUser))

	listed, err := store.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, model.SourceSystem, listed[0].Source)
}

func TestLearnedRules_SaveListIncrement(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rule := &model.LearnedRule{
		ID:        "rule-1",
		Tag:       "Subscriptions",
		CreatedAt: time.Now(),
		Conditions: []model.LearnedCondition{
			{Type: model.PatternToken, Pattern: "netflix", Confidence: 0.7, Frequency: 1.0},
			{Type: model.PatternToken, Pattern: "payment", Confidence: 0.7, Frequency: 0.5},
		},
		Confidence:       0.7,
		AssignmentsCount: 2,
	}
	require.NoError(t, store.SaveLearnedRule(ctx, rule))

	// Saving again for the same tag replaces.
	rule.ID = "rule-2"
	rule.AssignmentsCount = 3
	require.NoError(t, store.SaveLearnedRule(ctx, rule))

	rules, err := store.ListLearnedRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "rule-2", rules[0].ID)
	assert.Equal(t, 3, rules[0].AssignmentsCount)
	assert.Len(t, rules[0].Conditions, 2)
	assert.True(t, rules[0].LastUsed.IsZero())

	require.NoError(t, store.IncrementLearnedRuleUse(ctx, "rule-2"))

	loaded, err := store.GetLearnedRuleByTag(ctx, "Subscriptions")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.UseCount)
	assert.False(t, loaded.LastUsed.IsZero())

	err = store.IncrementLearnedRuleUse(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.DeleteLearnedRules(ctx))
	rules, err = store.ListLearnedRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestListLearnedRules_SkipsCorruptRows(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLearnedRule(ctx, &model.LearnedRule{
		ID: "good", Tag: "Groceries", CreatedAt: time.Now(),
		Conditions: []model.LearnedCondition{{Type: model.PatternToken, Pattern: "jumbo", Confidence: 0.7, Frequency: 1}},
	}))

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO learned_rules (id, tag, conditions) VALUES ('bad', 'Broken', 'not json')`)
	require.NoError(t, err)

	rules, err := store.ListLearnedRules(ctx)
	require.NoError(t, err, "corrupt rows are skipped, not fatal")
	require.Len(t, rules, 1)
	assert.Equal(t, "good", rules[0].ID)
}

func TestManualAssignments(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, desc := range []string{"Netflix monthly payment", "Netflix payment 4521"} {
		require.NoError(t, store.SaveManualAssignment(ctx, &model.ManualAssignment{
			ID:          string(rune('a' + i)),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			Tag:         "Subscriptions",
			Description: desc,
			Amount:      -1099,
			Patterns: []model.Pattern{
				{Type: model.PatternToken, Value: "netflix", Confidence: 0.7},
			},
		}))
	}

	assignments, err := store.ListManualAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "a", assignments[0].ID, "oldest first")
	assert.Equal(t, "Netflix monthly payment", assignments[0].Description)
	require.Len(t, assignments[0].Patterns, 1)
	assert.Equal(t, model.PatternToken, assignments[0].Patterns[0].Type)
}

func TestTransactions_SaveGetUpdate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{
			ID:          "t1",
			Date:        base,
			Description: "Weekly shop",
			Category:    "expense",
			Subcategory: "supermarket",
			Tag:         "Groceries",
			Confidence:  0.9,
			Amount:      -4500,
		},
		{
			ID:          "t2",
			Date:        base.Add(24 * time.Hour),
			Description: "Stock purchase AAPL via Degiro",
			Amount:      -15000,
		},
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	loaded, err := store.GetTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "t1", loaded[0].ID, "date order")
	assert.Equal(t, int64(-4500), loaded[0].Amount)

	one, err := store.GetTransactionByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Stock purchase AAPL via Degiro", one.Description)

	_, err = store.GetTransactionByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Update classification fields plus histories.
	one.Tag = "Investments"
	one.Confidence = 0.7
	one.FixHistory = []model.FixEntry{
		{Timestamp: base, OldTag: "", NewTag: "Investments", Reason: "purchase keyword match"},
	}
	require.NoError(t, store.UpdateTransactionTag(ctx, one))

	reloaded, err := store.GetTransactionByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Investments", reloaded.Tag)
	require.Len(t, reloaded.FixHistory, 1)
	assert.Equal(t, "Investments", reloaded.FixHistory[0].NewTag)

	err = store.UpdateTransactionTag(ctx, &model.Transaction{ID: "missing"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveTransactions_EmptyBatch(t *testing.T) {
	store := createTestStorage(t)

	err := store.SaveTransactions(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoTransactions)
}

func TestSaveTransactions_DuplicateHashUpserts(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txn := model.Transaction{
		ID:          "t1",
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "Weekly shop",
		Amount:      -4500,
	}
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	// Same content, different ID: the hash collision updates in place.
	txn.ID = "t1-reimport"
	txn.Tag = "Groceries"
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	loaded, err := store.GetTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "t1", loaded[0].ID, "original row kept")
	assert.Equal(t, "Groceries", loaded[0].Tag, "classification updated")
}

func TestValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	err := store.SaveMapping(ctx, model.MappingEntry{Subcategory: "x", Tag: "y"})
	assert.Error(t, err, "empty category rejected")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.ListMappings(cancelled)
	assert.Error(t, err, "dead context rejected")
}
