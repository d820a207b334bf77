// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package local

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MemoryAccounts is an in-memory AccountRepository.
type MemoryAccounts struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*Account
	byEmail map[string]ulid.ULID
}

// NewMemoryAccounts creates an empty MemoryAccounts.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		byID:    make(map[ulid.ULID]*Account),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create stores a copy of account.
func (r *MemoryAccounts) Create(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := NormalizeEmail(account.Email)
	if _, ok := r.byEmail[key]; ok {
		return oops.Code("ACCOUNT_DUPLICATE_EMAIL").With("email", key).Wrap(ErrDuplicateEmail)
	}
	stored := *account
	r.byID[account.ID] = &stored
	r.byEmail[key] = account.ID
	return nil
}

// GetByID returns a copy of the account.
func (r *MemoryAccounts) GetByID(_ context.Context, id ulid.ULID) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	out := *a
	return &out, nil
}

// GetByEmail returns a copy of the account with the email.
func (r *MemoryAccounts) GetByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(ErrNotFound)
	}
	out := *r.byID[id]
	return &out, nil
}

// Update replaces the stored account. The email is immutable.
func (r *MemoryAccounts) Update(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[account.ID]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", account.ID.String()).Wrap(ErrNotFound)
	}
	stored := *account
	stored.Email = existing.Email
	r.byID[account.ID] = &stored
	return nil
}

// UpdatePassword replaces the password hash and clears any lockout.
func (r *MemoryAccounts) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	a.PasswordHash = passwordHash
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = time.Now()
	return nil
}

// MemoryResets is an in-memory ResetRepository.
type MemoryResets struct {
	mu     sync.Mutex
	byHash map[string]*PasswordReset
}

// NewMemoryResets creates an empty MemoryResets.
func NewMemoryResets() *MemoryResets {
	return &MemoryResets{byHash: make(map[string]*PasswordReset)}
}

// Create stores a copy of reset.
func (r *MemoryResets) Create(_ context.Context, reset *PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *reset
	r.byHash[reset.TokenHash] = &stored
	return nil
}

// GetByTokenHash returns a copy of the reset with the hash.
func (r *MemoryResets) GetByTokenHash(_ context.Context, tokenHash string) (*PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reset, ok := r.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(ErrNotFound)
	}
	out := *reset
	return &out, nil
}

// DeleteByAccount removes every reset for the account.
func (r *MemoryResets) DeleteByAccount(_ context.Context, accountID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, reset := range r.byHash {
		if reset.AccountID == accountID {
			delete(r.byHash, hash)
		}
	}
	return nil
}

// DeleteExpired removes resets that expired before now.
func (r *MemoryResets) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, reset := range r.byHash {
		if reset.IsExpired(now) {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}
