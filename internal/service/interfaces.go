// Package service defines the persistence contract consumed by the
// classification engine and the CLI.
package service

import (
	"context"

	"github.com/tagwise/tagwise/internal/model"
)

// Storage is the full persistence contract. The engine packages each
// depend on the narrow subset they need; the SQLite implementation
// satisfies all of them.
type Storage interface {
	// Category mapping operations.
	SaveMapping(ctx context.Context, entry model.MappingEntry) error
	DeleteMapping(ctx context.Context, category, subcategory string) error
	ListMappings(ctx context.Context) ([]model.MappingEntry, error)
	DeleteMappingsBySource(ctx context.Context, source model.RuleSource) error

	// Learned rule operations.
	SaveLearnedRule(ctx context.Context, rule *model.LearnedRule) error
	ListLearnedRules(ctx context.Context) ([]model.LearnedRule, error)
	DeleteLearnedRules(ctx context.Context) error
	IncrementLearnedRuleUse(ctx context.Context, id string) error

	// Manual assignment operations.
	SaveManualAssignment(ctx context.Context, assignment *model.ManualAssignment) error
	ListManualAssignments(ctx context.Context) ([]model.ManualAssignment, error)

	// Transaction operations.
	SaveTransactions(ctx context.Context, txns []model.Transaction) error
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionTag(ctx context.Context, txn *model.Transaction) error

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}
