// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/identity/local"
)

// ResetRepository implements local.ResetRepository using PostgreSQL.
type ResetRepository struct {
	db DB
}

// NewResetRepository creates a new ResetRepository.
func NewResetRepository(db DB) *ResetRepository {
	return &ResetRepository{db: db}
}

var _ local.ResetRepository = (*ResetRepository)(nil)

// Create stores a new password reset.
func (r *ResetRepository) Create(ctx context.Context, reset *local.PasswordReset) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_resets (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, reset.ID.String(), reset.AccountID.String(), reset.TokenHash, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert password reset").
			With("account_id", reset.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a reset by its token hash.
func (r *ResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*local.PasswordReset, error) {
	var (
		idStr, accountIDStr string
		reset               local.PasswordReset
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, account_id, token_hash, expires_at, created_at
		FROM password_resets
		WHERE token_hash = $1
	`, tokenHash).Scan(&idStr, &accountIDStr, &reset.TokenHash, &reset.ExpiresAt, &reset.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(local.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_FAILED").With("operation", "get reset by token hash").Wrap(err)
	}

	if reset.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if reset.AccountID, err = ulid.Parse(accountIDStr); err != nil {
		return nil, oops.Code("RESET_INVALID_ACCOUNT_ID").With("account_id", accountIDStr).Wrap(err)
	}
	return &reset, nil
}

// DeleteByAccount removes every reset for an account.
func (r *ResetRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM password_resets WHERE account_id = $1`, accountID.String()); err != nil {
		return oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete resets by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes resets that expired before now.
func (r *ResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM password_resets WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return result.RowsAffected(), nil
}
