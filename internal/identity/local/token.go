// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token configuration.
const (
	TokenBytes       = 32 // 64 hex chars
	ResetTokenExpiry = time.Hour
	SessionExpiry    = 24 * time.Hour
)

// PasswordReset is a pending password reset. Only the token hash is stored.
type PasswordReset struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the reset is no longer usable at now.
func (r *PasswordReset) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// GenerateToken creates a random hex token and its SHA-256 hash.
// The plaintext goes to the user; only the hash is kept.
func GenerateToken() (token, hash string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("LOCAL_TOKEN_GENERATE_FAILED").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken computes the hex SHA-256 of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyToken checks a plaintext token against a stored hash in constant time.
func VerifyToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}

// ResetRepository manages password reset persistence.
type ResetRepository interface {
	// Create stores a new reset request.
	Create(ctx context.Context, reset *PasswordReset) error

	// GetByTokenHash retrieves a reset by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordReset, error)

	// DeleteByAccount removes every reset for an account.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) error

	// DeleteExpired removes resets that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
