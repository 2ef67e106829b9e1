package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

// SaveTransactions stores a batch of transactions in a single database
// transaction. Duplicates (by content hash) are replaced, which keeps
// re-imports idempotent without touching classification fields of other rows.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(txns) == 0 {
		return common.ErrNoTransactions
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, hash, date, description, counterparty, category, subcategory,
			tag, reason, confidence, amount, override_history, fix_history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			category = excluded.category,
			subcategory = excluded.subcategory,
			tag = excluded.tag,
			reason = excluded.reason,
			confidence = excluded.confidence`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range txns {
		txn := &txns[i]
		if err := validateString(txn.ID, "transaction.ID"); err != nil {
			return err
		}

		overrides, err := json.Marshal(txn.OverrideHistory)
		if err != nil {
			return fmt.Errorf("failed to marshal override history: %w", err)
		}
		fixes, err := json.Marshal(txn.FixHistory)
		if err != nil {
			return fmt.Errorf("failed to marshal fix history: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.GenerateHash(), txn.Date, txn.Description, txn.Counterparty,
			txn.Category, txn.Subcategory, txn.Tag, txn.Reason, txn.Confidence,
			txn.Amount, string(overrides), string(fixes)); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

// GetTransactions returns all transactions ordered by date, then ID.
func (s *SQLiteStorage) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, description, counterparty, category, subcategory,
			tag, reason, confidence, amount, override_history, fix_history
		FROM transactions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

// GetTransactionByID returns one transaction, or ErrNotFound.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, description, counterparty, category, subcategory,
			tag, reason, confidence, amount, override_history, fix_history
		FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// UpdateTransactionTag persists the classification fields and both history
// logs of an already stored transaction.
func (s *SQLiteStorage) UpdateTransactionTag(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("transaction cannot be nil")
	}
	if err := validateString(txn.ID, "transaction.ID"); err != nil {
		return err
	}

	overrides, err := json.Marshal(txn.OverrideHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal override history: %w", err)
	}
	fixes, err := json.Marshal(txn.FixHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal fix history: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			category = ?, subcategory = ?, tag = ?, reason = ?, confidence = ?,
			override_history = ?, fix_history = ?
		WHERE id = ?`,
		txn.Category, txn.Subcategory, txn.Tag, txn.Reason, txn.Confidence,
		string(overrides), string(fixes), txn.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

// scanTransaction decodes one transactions row. The scan argument abstracts
// over sql.Row and sql.Rows.
func scanTransaction(scan func(dest ...any) error) (*model.Transaction, error) {
	var txn model.Transaction
	var overrides, fixes string
	if err := scan(&txn.ID, &txn.Date, &txn.Description, &txn.Counterparty,
		&txn.Category, &txn.Subcategory, &txn.Tag, &txn.Reason,
		&txn.Confidence, &txn.Amount, &overrides, &fixes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if err := json.Unmarshal([]byte(overrides), &txn.OverrideHistory); err != nil {
		return nil, fmt.Errorf("transaction %s override history: %w", txn.ID, common.ErrDatabaseCorrupted)
	}
	if err := json.Unmarshal([]byte(fixes), &txn.FixHistory); err != nil {
		return nil, fmt.Errorf("transaction %s fix history: %w", txn.ID, common.ErrDatabaseCorrupted)
	}
	return &txn, nil
}
