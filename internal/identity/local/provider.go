// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package local is a self-hosted identity provider. Accounts live in an
// AccountRepository (memory or PostgreSQL), passwords are argon2id hashed,
// and repeated failures lock an account for LockoutDuration.
//
// Sign-ins are held in process memory and expire after the session TTL;
// expiry is reported through OnSessionChanged.
package local

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/credentials"
	"github.com/plaide/plaide/internal/identity"
)

// MinPasswordLength is the shortest password the provider accepts.
// Client-side policy is stricter; this is the server's own floor.
const MinPasswordLength = 6

// dummyPasswordHash is verified against when no account matches, so lookups
// for unknown emails cost the same as for known ones.
//
//nolint:gosec // G101: intentionally fake hash, never matches any password.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

var errClosed = identity.NewError(identity.CodeInternal, "provider is closed")

// Provider implements identity.Provider on local storage.
type Provider struct {
	accounts   AccountRepository
	resets     ResetRepository
	hasher     PasswordHasher
	mailer     Mailer
	logger     *slog.Logger
	now        func() time.Time
	sessionTTL time.Duration

	// commit orders sign-in changes with expiry notifications, so a stale
	// expiry is never delivered after a newer sign-in. Lock order: commit,
	// then mu.
	commit sync.Mutex

	mu        sync.Mutex
	current   *signIn
	listeners map[uint64]identity.SessionListener
	nextID    uint64
	closed    bool
}

type signIn struct {
	id    ulid.ULID
	user  identity.User
	timer *time.Timer
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithHasher replaces the default argon2id hasher.
func WithHasher(h PasswordHasher) Option {
	return func(p *Provider) { p.hasher = h }
}

// WithMailer sets how reset tokens are delivered. Defaults to a LogMailer.
func WithMailer(m Mailer) Option {
	return func(p *Provider) { p.mailer = m }
}

// WithClock overrides the time source used for lockouts and reset expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithSessionTTL sets how long a sign-in lasts before it expires.
func WithSessionTTL(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.sessionTTL = d
		}
	}
}

// New creates a Provider over the given repositories.
func New(accounts AccountRepository, resets ResetRepository, opts ...Option) (*Provider, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if resets == nil {
		return nil, oops.Errorf("reset repository is required")
	}
	p := &Provider{
		accounts:   accounts,
		resets:     resets,
		hasher:     NewArgon2idHasher(),
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		sessionTTL: SessionExpiry,
		listeners:  make(map[uint64]identity.SessionListener),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.mailer == nil {
		p.mailer = NewLogMailer(p.logger)
	}
	return p, nil
}

// NewMemory creates a Provider backed by in-memory repositories.
func NewMemory(opts ...Option) *Provider {
	p, _ := New(NewMemoryAccounts(), NewMemoryResets(), opts...) //nolint:errcheck // repositories are non-nil
	return p
}

// SignIn authenticates with email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.User, error) {
	email = NormalizeEmail(email)
	if !credentials.IsValidEmail(email) {
		return nil, identity.NewError(identity.CodeInvalidEmail, "malformed email address")
	}

	account, lookupErr := p.accounts.GetByEmail(ctx, email)
	target := dummyPasswordHash
	exists := false
	switch {
	case lookupErr == nil:
		target = account.PasswordHash
		exists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, internalError("sign in", lookupErr)
	}

	// Always verify so unknown emails take as long as known ones.
	valid, verifyErr := p.hasher.Verify(password, target)
	if !exists {
		return nil, identity.NewError(identity.CodeUserNotFound, "no account for this email")
	}
	if verifyErr != nil {
		return nil, internalError("sign in", verifyErr)
	}

	now := p.now()
	if account.IsLocked(now) {
		return nil, identity.NewError(identity.CodeTooManyRequests, "account temporarily locked")
	}

	if !valid {
		account.RecordFailure(now)
		p.saveBestEffort(ctx, account)
		if account.IsLocked(now) {
			return nil, identity.NewError(identity.CodeTooManyRequests, "account temporarily locked")
		}
		return nil, identity.NewError(identity.CodeWrongPassword, "password does not match")
	}

	if account.FailedAttempts > 0 {
		account.RecordSuccess(now)
		p.saveBestEffort(ctx, account)
	}
	return p.startSession(account)
}

// CreateAccount registers a new account and signs it in.
func (p *Provider) CreateAccount(ctx context.Context, email, password, displayName string) (*identity.User, error) {
	email = NormalizeEmail(email)
	if !credentials.IsValidEmail(email) {
		return nil, identity.NewError(identity.CodeInvalidEmail, "malformed email address")
	}
	if len(password) < MinPasswordLength {
		return nil, identity.NewError(identity.CodeWeakPassword, "password should be at least 6 characters")
	}

	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, internalError("create account", err)
	}

	now := p.now()
	account := &Account{
		ID:           ulid.Make(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, identity.NewError(identity.CodeEmailAlreadyInUse, "email already registered")
		}
		return nil, internalError("create account", err)
	}

	p.logger.InfoContext(ctx, "account created", "account_id", account.ID.String())
	return p.startSession(account)
}

// SignOut ends the current sign-in. Signing out when nobody is signed in
// succeeds.
func (p *Provider) SignOut(_ context.Context) error {
	p.commit.Lock()
	defer p.commit.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	p.clearLocked()
	return nil
}

// SendPasswordReset stores a reset token for the account and hands the
// plaintext to the mailer.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if !credentials.IsValidEmail(email) {
		return identity.NewError(identity.CodeInvalidEmail, "malformed email address")
	}

	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return identity.NewError(identity.CodeUserNotFound, "no account for this email")
		}
		return internalError("send password reset", err)
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return internalError("send password reset", err)
	}
	now := p.now()
	reset := &PasswordReset{
		ID:        ulid.Make(),
		AccountID: account.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(ResetTokenExpiry),
		CreatedAt: now,
	}
	if err := p.resets.Create(ctx, reset); err != nil {
		return internalError("send password reset", err)
	}
	if err := p.mailer.SendPasswordReset(ctx, account.Email, token); err != nil {
		return internalError("send password reset", oops.Code("LOCAL_MAIL_FAILED").Wrap(err))
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a token issued by
// SendPasswordReset. All outstanding tokens for the account are discarded.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return oops.Code("RESET_TOKEN_EMPTY").Errorf("reset token cannot be empty")
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code("RESET_PASSWORD_WEAK").
			With("min_length", MinPasswordLength).
			Errorf("password should be at least %d characters", MinPasswordLength)
	}

	reset, err := p.resets.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Errorf("reset token not found")
		}
		return oops.Code("RESET_CONFIRM_FAILED").With("operation", "get reset").Wrap(err)
	}
	if reset.IsExpired(p.now()) {
		return oops.Code("RESET_TOKEN_EXPIRED").Errorf("reset token has expired")
	}

	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_CONFIRM_FAILED").With("operation", "hash").Wrap(err)
	}
	if err := p.accounts.UpdatePassword(ctx, reset.AccountID, hash); err != nil {
		return oops.Code("RESET_CONFIRM_FAILED").With("operation", "update password").Wrap(err)
	}

	// The password is already changed; a failed cleanup leaves tokens that
	// will expire on their own.
	if err := p.resets.DeleteByAccount(ctx, reset.AccountID); err != nil {
		p.logger.WarnContext(ctx, "failed to delete used reset tokens",
			"account_id", reset.AccountID.String(), "error", err)
	}
	return nil
}

// PurgeExpiredResets deletes reset tokens past their expiry.
func (p *Provider) PurgeExpiredResets(ctx context.Context) (int64, error) {
	n, err := p.resets.DeleteExpired(ctx, p.now())
	if err != nil {
		return 0, oops.Code("RESET_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

// OnSessionChanged registers fn for sign-in expiry. Sign-in changes wait for
// listeners to return, so they must not call back into the Provider.
func (p *Provider) OnSessionChanged(fn identity.SessionListener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Close stops the expiry timer and drops listeners. Calls after Close fail.
func (p *Provider) Close() error {
	p.commit.Lock()
	defer p.commit.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.clearLocked()
	clear(p.listeners)
	return nil
}

func (p *Provider) startSession(account *Account) (*identity.User, error) {
	token, _, err := GenerateToken()
	if err != nil {
		return nil, internalError("start session", err)
	}
	s := &signIn{
		id: ulid.Make(),
		user: identity.User{
			UID:         account.ID.String(),
			Email:       account.Email,
			DisplayName: account.DisplayName,
			Token:       token,
		},
	}

	p.commit.Lock()
	defer p.commit.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errClosed
	}
	p.clearLocked()
	s.timer = time.AfterFunc(p.sessionTTL, func() { p.expire(s.id) })
	p.current = s

	user := s.user
	return &user, nil
}

func (p *Provider) expire(id ulid.ULID) {
	p.commit.Lock()
	defer p.commit.Unlock()

	p.mu.Lock()
	if p.current == nil || p.current.id != id {
		p.mu.Unlock()
		return
	}
	uid := p.current.user.UID
	p.current = nil
	listeners := make([]identity.SessionListener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	p.logger.Info("session expired", "uid", uid)
	for _, fn := range listeners {
		fn(nil)
	}
}

func (p *Provider) clearLocked() {
	if p.current != nil {
		p.current.timer.Stop()
		p.current = nil
	}
}

func (p *Provider) saveBestEffort(ctx context.Context, account *Account) {
	if err := p.accounts.Update(ctx, account); err != nil {
		p.logger.WarnContext(ctx, "failed to record sign-in attempt",
			"account_id", account.ID.String(), "error", err)
	}
}

func internalError(op string, err error) *identity.Error {
	return &identity.Error{Code: identity.CodeInternal, Message: op + " failed", Err: err}
}
