package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

// SaveLearnedRule inserts or replaces the learned rule for its tag. The tag
// column is unique: re-analysis overwrites rather than accumulates.
func (s *SQLiteStorage) SaveLearnedRule(ctx context.Context, rule *model.LearnedRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := validateString(rule.ID, "rule.ID"); err != nil {
		return err
	}
	if err := validateString(rule.Tag, "rule.Tag"); err != nil {
		return err
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	var lastUsed any
	if !rule.LastUsed.IsZero() {
		lastUsed = rule.LastUsed
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learned_rules (id, tag, conditions, confidence, assignments_count, use_count, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tag) DO UPDATE SET
			id = excluded.id,
			conditions = excluded.conditions,
			confidence = excluded.confidence,
			assignments_count = excluded.assignments_count,
			use_count = excluded.use_count,
			created_at = excluded.created_at,
			last_used = excluded.last_used`,
		rule.ID, rule.Tag, string(conditions), rule.Confidence,
		rule.AssignmentsCount, rule.UseCount, rule.CreatedAt, lastUsed)
	if err != nil {
		return fmt.Errorf("failed to save learned rule: %w", err)
	}
	return nil
}

// ListLearnedRules loads all learned rules. Rows whose conditions fail to
// decode are skipped with a warning rather than poisoning the whole load.
func (s *SQLiteStorage) ListLearnedRules(ctx context.Context) ([]model.LearnedRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tag, conditions, confidence, assignments_count, use_count, created_at, last_used
		FROM learned_rules ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("failed to list learned rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.LearnedRule
	for rows.Next() {
		var rule model.LearnedRule
		var conditions string
		var lastUsed sql.NullTime
		if err := rows.Scan(&rule.ID, &rule.Tag, &conditions, &rule.Confidence,
			&rule.AssignmentsCount, &rule.UseCount, &rule.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan learned rule: %w", err)
		}
		if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
			common.LogError(err, "skipping corrupt learned rule", common.Fields{
				"id":  rule.ID,
				"tag": rule.Tag,
			})
			continue
		}
		if lastUsed.Valid {
			rule.LastUsed = lastUsed.Time
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate learned rules: %w", err)
	}
	return rules, nil
}

// DeleteLearnedRules removes every learned rule. Used by reset.
func (s *SQLiteStorage) DeleteLearnedRules(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM learned_rules`); err != nil {
		return fmt.Errorf("failed to delete learned rules: %w", err)
	}
	return nil
}

// IncrementLearnedRuleUse bumps the usage counter and last-used timestamp of
// one learned rule.
func (s *SQLiteStorage) IncrementLearnedRuleUse(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE learned_rules SET use_count = use_count + 1, last_used = ? WHERE id = ?`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment rule use: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("learned rule %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// SaveManualAssignment appends one user correction to the assignment log.
// Assignments are insert-only.
func (s *SQLiteStorage) SaveManualAssignment(ctx context.Context, assignment *model.ManualAssignment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if assignment == nil {
		return fmt.Errorf("assignment cannot be nil")
	}
	if err := validateString(assignment.ID, "assignment.ID"); err != nil {
		return err
	}
	if err := validateString(assignment.Tag, "assignment.Tag"); err != nil {
		return err
	}
	if err := validateString(assignment.Description, "assignment.Description"); err != nil {
		return err
	}

	patterns, err := json.Marshal(assignment.Patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal patterns: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO manual_assignments (id, tag, description, category, subcategory, counterparty, amount, patterns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assignment.ID, assignment.Tag, assignment.Description, assignment.Category,
		assignment.Subcategory, assignment.Counterparty, assignment.Amount,
		string(patterns), assignment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save manual assignment: %w", err)
	}
	return nil
}

// ListManualAssignments returns all recorded assignments, oldest first.
// Corrupt pattern payloads are skipped with a warning.
func (s *SQLiteStorage) ListManualAssignments(ctx context.Context) ([]model.ManualAssignment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tag, description, category, subcategory, counterparty, amount, patterns, created_at
		FROM manual_assignments ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assignments []model.ManualAssignment
	for rows.Next() {
		var a model.ManualAssignment
		var patterns string
		if err := rows.Scan(&a.ID, &a.Tag, &a.Description, &a.Category, &a.Subcategory,
			&a.Counterparty, &a.Amount, &patterns, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan manual assignment: %w", err)
		}
		if err := json.Unmarshal([]byte(patterns), &a.Patterns); err != nil {
			common.LogError(err, "skipping corrupt manual assignment", common.Fields{
				"id":  a.ID,
				"tag": a.Tag,
			})
			continue
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate manual assignments: %w", err)
	}
	return assignments, nil
}

// GetLearnedRuleByTag returns the learned rule for one tag, or ErrNotFound.
func (s *SQLiteStorage) GetLearnedRuleByTag(ctx context.Context, tag string) (*model.LearnedRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tag, "tag"); err != nil {
		return nil, err
	}

	var rule model.LearnedRule
	var conditions string
	var lastUsed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tag, conditions, confidence, assignments_count, use_count, created_at, last_used
		FROM learned_rules WHERE tag = ?`, tag).
		Scan(&rule.ID, &rule.Tag, &conditions, &rule.Confidence,
			&rule.AssignmentsCount, &rule.UseCount, &rule.CreatedAt, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("learned rule for tag %s: %w", tag, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learned rule: %w", err)
	}
	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("learned rule for tag %s: %w", tag, common.ErrDatabaseCorrupted)
	}
	if lastUsed.Valid {
		rule.LastUsed = lastUsed.Time
	}
	return &rule, nil
}
