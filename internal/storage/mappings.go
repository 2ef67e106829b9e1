package storage

import (
	"context"
	"fmt"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

// SaveMapping inserts or replaces a (category, subcategory) -> tag leaf.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, entry model.MappingEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(entry.Category, "category"); err != nil {
		return err
	}
	if err := validateString(entry.Subcategory, "subcategory"); err != nil {
		return err
	}
	if err := validateString(entry.Tag, "tag"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mappings (category, subcategory, tag, source, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category, subcategory) DO UPDATE SET
			tag = excluded.tag,
			source = excluded.source,
			updated_at = CURRENT_TIMESTAMP`,
		entry.Category, entry.Subcategory, entry.Tag, string(entry.Source))
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// DeleteMapping removes a single mapping leaf.
func (s *SQLiteStorage) DeleteMapping(ctx context.Context, category, subcategory string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if err := validateString(subcategory, "subcategory"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM mappings WHERE category = ? AND subcategory = ?`,
		category, subcategory)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mapping %s/%s: %w", category, subcategory, common.ErrNotFound)
	}
	return nil
}

// ListMappings returns all persisted mapping leaves in deterministic order.
func (s *SQLiteStorage) ListMappings(ctx context.Context) ([]model.MappingEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, subcategory, tag, source FROM mappings ORDER BY category, subcategory`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.MappingEntry
	for rows.Next() {
		var entry model.MappingEntry
		var source string
		if err := rows.Scan(&entry.Category, &entry.Subcategory, &entry.Tag, &source); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		entry.Source = model.RuleSource(source)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mappings: %w", err)
	}
	return entries, nil
}

// DeleteMappingsBySource removes all mappings with the given source. Used by
// reset to clear user entries while keeping system ones.
func (s *SQLiteStorage) DeleteMappingsBySource(ctx context.Context, source model.RuleSource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM mappings WHERE source = ?`, string(source))
	if err != nil {
		return fmt.Errorf("failed to delete mappings by source: %w", err)
	}
	return nil
}
