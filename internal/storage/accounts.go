package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetAccount returns the stored account or common.ErrNotFound.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getAccount(ctx, s.db, id)
}

// UpsertAccount merges update into the account inside one transaction,
// creating it if absent. The record is committed before the method returns.
func (s *SQLiteStorage) UpsertAccount(ctx context.Context, id string, update model.AccountUpdate) (*model.Account, error) {
	return s.mergeAccount(ctx, id, update, true)
}

// UpdateAccount merges update into an existing account. It returns
// common.ErrNotFound, and creates nothing, when the account is absent.
func (s *SQLiteStorage) UpdateAccount(ctx context.Context, id string, update model.AccountUpdate) (*model.Account, error) {
	return s.mergeAccount(ctx, id, update, false)
}

func (s *SQLiteStorage) mergeAccount(ctx context.Context, id string, update model.AccountUpdate, create bool) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	account, err := getAccount(ctx, tx, id)
	switch {
	case errors.Is(err, common.ErrNotFound) && create:
		account = &model.Account{ID: id, CreatedAt: now}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, credential, category, created_at, updated_at) VALUES (?, NULL, '', ?, ?)`,
			id, now, now,
		); err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
	case err != nil:
		return nil, err
	}

	update.Apply(account)
	account.UpdatedAt = now

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET credential = ?, category = ?, updated_at = ? WHERE id = ?`,
		nullString(account.Credential), string(account.Category), now, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if update.ResetMapping {
		if _, err := tx.ExecContext(ctx, `DELETE FROM account_fields WHERE account_id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to reset field mapping: %w", err)
		}
	}

	for key, fieldID := range update.FieldMapping {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO account_fields (account_id, field_key, field_id, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(account_id, field_key) DO UPDATE SET field_id = excluded.field_id`,
			id, string(key), fieldID, now,
		); err != nil {
			return nil, fmt.Errorf("failed to save field %s: %w", key, err)
		}
	}

	stored, err := getAccount(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account: %w", err)
	}

	return stored, nil
}

// ListAccounts returns every stored account ordered by id.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, credential, category, created_at, updated_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	_ = rows.Close()

	for i := range accounts {
		mapping, err := getFieldMapping(ctx, s.db, accounts[i].ID)
		if err != nil {
			return nil, err
		}
		accounts[i].FieldMapping = mapping
	}

	return accounts, nil
}

// DeleteAccount removes an account and its field mapping.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM account_fields WHERE account_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete field mapping: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}

	return tx.Commit()
}

func getAccount(ctx context.Context, q queryer, id string) (*model.Account, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, credential, category, created_at, updated_at FROM accounts WHERE id = ?`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	mapping, err := getFieldMapping(ctx, q, id)
	if err != nil {
		return nil, err
	}
	account.FieldMapping = mapping

	return account, nil
}

func getFieldMapping(ctx context.Context, q queryer, accountID string) (map[model.FieldKey]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT field_key, field_id FROM account_fields WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query field mapping: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mapping map[model.FieldKey]string
	for rows.Next() {
		var key, fieldID string
		if err := rows.Scan(&key, &fieldID); err != nil {
			return nil, fmt.Errorf("failed to scan field mapping: %w", err)
		}
		if mapping == nil {
			mapping = make(map[model.FieldKey]string)
		}
		mapping[model.FieldKey(key)] = fieldID
	}

	return mapping, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*model.Account, error) {
	var (
		account    model.Account
		credential sql.NullString
		category   string
	)
	if err := row.Scan(&account.ID, &credential, &category, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	account.Credential = credential.String
	account.Category = model.Category(category)
	return &account, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
