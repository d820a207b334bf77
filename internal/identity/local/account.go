// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package local

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an account already uses the email.
var ErrDuplicateEmail = errors.New("email already registered")

// Lockout configuration.
const (
	// LockoutThreshold is the number of consecutive failures that locks an account.
	LockoutThreshold = 7

	// LockoutDuration is how long a locked account refuses sign-in.
	LockoutDuration = 15 * time.Minute
)

// Account is a self-hosted user account.
type Account struct {
	ID             ulid.ULID
	Email          string
	DisplayName    string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeEmail returns the form accounts are keyed by.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether the account refuses sign-in at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// RecordFailure increments the failure counter and locks the account once
// the threshold is reached.
func (a *Account) RecordFailure(now time.Time) {
	a.FailedAttempts++
	if a.FailedAttempts >= LockoutThreshold {
		until := now.Add(LockoutDuration)
		a.LockedUntil = &until
	}
	a.UpdatedAt = now
}

// RecordSuccess clears the failure counter and any lockout.
func (a *Account) RecordSuccess(now time.Time) {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateEmail if the
	// normalized email is taken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Update persists failure counters, lockout and profile fields.
	Update(ctx context.Context, account *Account) error

	// UpdatePassword replaces the password hash and clears any lockout.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
