// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package firebase is an identity.Provider backed by the Firebase
// Authentication REST APIs (Identity Toolkit and Secure Token).
//
// The refresh token of the current sign-in is cached on disk so a later run
// can restore it. ID tokens are refreshed shortly before they expire; a
// refresh the provider rejects signs the user out and is reported through
// OnSessionChanged.
package firebase

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/plaide/plaide/internal/identity"
)

// refreshLead is how long before ID token expiry the provider refreshes it.
const refreshLead = 5 * time.Minute

// networkRetryDelay is how long a failed background refresh waits before
// trying again.
const networkRetryDelay = time.Minute

// Config configures the provider.
type Config struct {
	// APIKey is the web API key of the Firebase project.
	APIKey string
	// IdentityEndpoint overrides DefaultIdentityEndpoint, e.g. for the emulator.
	IdentityEndpoint string
	// TokenEndpoint overrides DefaultTokenEndpoint.
	TokenEndpoint string
	// CachePath is where the refresh token is persisted. Empty disables it.
	CachePath string
}

// Provider implements identity.Provider over the Firebase REST APIs.
type Provider struct {
	apiKey           string
	identityEndpoint string
	tokenEndpoint    string
	cachePath        string
	http             *http.Client
	logger           *slog.Logger
	restoreBackoff   func() retry.Backoff

	// commit serializes changes of the current sign-in together with the
	// cache file and listener delivery. Lock order: commit, then mu.
	commit sync.Mutex

	mu      sync.Mutex
	current *signIn
	// generation counts sign-in changes. A restore applies its result only
	// if nothing changed since it started.
	generation uint64
	listeners  map[uint64]identity.SessionListener
	nextID     uint64
	closed     bool
}

type signIn struct {
	user         identity.User
	refreshToken string
	timer        *time.Timer
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

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.http = c
		}
	}
}

// WithRestoreBackoff sets the backoff used when restoring a cached sign-in
// hits network errors.
func WithRestoreBackoff(fn func() retry.Backoff) Option {
	return func(p *Provider) { p.restoreBackoff = fn }
}

func defaultRestoreBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
}

// New creates a Provider.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, oops.Code("FIREBASE_CONFIG_INVALID").Errorf("firebase api key is required")
	}
	p := &Provider{
		apiKey:           cfg.APIKey,
		identityEndpoint: strings.TrimSuffix(orDefault(cfg.IdentityEndpoint, DefaultIdentityEndpoint), "/"),
		tokenEndpoint:    strings.TrimSuffix(orDefault(cfg.TokenEndpoint, DefaultTokenEndpoint), "/"),
		cachePath:        cfg.CachePath,
		http:             &http.Client{Timeout: 30 * time.Second},
		logger:           slog.New(slog.DiscardHandler),
		restoreBackoff:   defaultRestoreBackoff,
		listeners:        make(map[uint64]identity.SessionListener),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// SignIn authenticates with email and password. A restore still in flight
// is abandoned.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.User, error) {
	p.supersede()
	var resp authResponse
	err := p.postJSON(ctx, "signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, resp)
}

// CreateAccount registers an account, sets its display name and signs it
// in. A failure to set the display name does not fail the sign-up; the
// account exists and is signed in without one.
func (p *Provider) CreateAccount(ctx context.Context, email, password, displayName string) (*identity.User, error) {
	p.supersede()
	var resp authResponse
	err := p.postJSON(ctx, "signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if displayName != "" {
		var updated authResponse
		err := p.postJSON(ctx, "update", map[string]any{
			"idToken":           resp.IDToken,
			"displayName":       displayName,
			"returnSecureToken": true,
		}, &updated)
		switch {
		case err != nil:
			p.logger.WarnContext(ctx, "failed to set display name", "uid", resp.LocalID, "error", err)
		default:
			resp.DisplayName = displayName
			if updated.IDToken != "" {
				resp.IDToken = updated.IDToken
				resp.RefreshToken = updated.RefreshToken
				resp.ExpiresIn = updated.ExpiresIn
			}
		}
	}
	return p.establish(ctx, resp)
}

// SignOut forgets the current sign-in locally. Firebase sign-out involves
// no request, so it only fails if the provider is closed.
func (p *Provider) SignOut(ctx context.Context) error {
	p.commit.Lock()
	defer p.commit.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errClosed()
	}
	p.generation++
	p.clearLocked()
	p.mu.Unlock()

	if err := removeCache(p.cachePath); err != nil {
		p.logger.WarnContext(ctx, "failed to remove cached sign-in", "error", err)
	}
	return nil
}

// SendPasswordReset asks Firebase to email a password reset link.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	return p.postJSON(ctx, "sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// OnSessionChanged registers fn for restores, token refreshes and
// revocation. Listeners run while sign-in changes are held off, so they must
// not call back into the Provider.
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

// Restore signs back in with the cached refresh token, if any. Network
// errors are retried with backoff; a token the provider rejects is
// discarded. Listeners are told about a successful restore.
//
// A restore that finishes after SignIn, CreateAccount or SignOut has been
// called is discarded without touching the cache or the listeners.
func (p *Provider) Restore(ctx context.Context) error {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()

	cached, err := loadCache(p.cachePath)
	if err != nil {
		p.logger.WarnContext(ctx, "ignoring unreadable sign-in cache", "error", err)
		_ = removeCache(p.cachePath) //nolint:errcheck // best effort
		return nil
	}
	if cached == nil {
		return nil
	}

	var resp tokenResponse
	err = retry.Do(ctx, p.restoreBackoff(), func(ctx context.Context) error {
		err := p.refresh(ctx, cached.RefreshToken, &resp)
		if isNetwork(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	p.commit.Lock()
	defer p.commit.Unlock()

	p.mu.Lock()
	if p.closed || p.generation != gen {
		p.mu.Unlock()
		p.logger.InfoContext(ctx, "discarding restore superseded by a newer sign-in change")
		return nil
	}
	if isNetwork(err) {
		p.mu.Unlock()
		return err
	}
	if err != nil {
		p.mu.Unlock()
		p.logger.InfoContext(ctx, "cached sign-in rejected", "code", string(identity.CodeOf(err)))
		_ = removeCache(p.cachePath) //nolint:errcheck // best effort
		return nil
	}
	s := p.installLocked(authResponse{
		LocalID:      orDefault(resp.UserID, cached.UID),
		Email:        cached.Email,
		DisplayName:  cached.DisplayName,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	})
	listeners := p.listenersLocked()
	p.mu.Unlock()

	p.save(ctx, s)
	p.logger.InfoContext(ctx, "sign-in restored", "uid", s.user.UID)
	user := s.user
	deliver(listeners, &user)
	return nil
}

// Close stops background refreshes and drops listeners. No listener is
// called once Close returns.
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

func (p *Provider) refresh(ctx context.Context, refreshToken string, out *tokenResponse) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return p.postForm(ctx, form, out)
}

func errClosed() error {
	return identity.NewError(identity.CodeInternal, "provider is closed")
}

// supersede marks the start of an explicit sign-in change.
func (p *Provider) supersede() {
	p.mu.Lock()
	p.generation++
	p.mu.Unlock()
}

// establish makes resp the current sign-in of an explicit SignIn or
// CreateAccount, caches it and schedules the next ID token refresh.
func (p *Provider) establish(ctx context.Context, resp authResponse) (*identity.User, error) {
	p.commit.Lock()
	defer p.commit.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errClosed()
	}
	s := p.installLocked(resp)
	p.mu.Unlock()

	p.save(ctx, s)
	user := s.user
	return &user, nil
}

// installLocked replaces the current sign-in with resp and schedules its
// refresh.
func (p *Provider) installLocked(resp authResponse) *signIn {
	s := &signIn{
		user: identity.User{
			UID:         resp.LocalID,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
			Token:       resp.IDToken,
		},
		refreshToken: resp.RefreshToken,
	}
	p.generation++
	p.clearLocked()
	p.current = s
	p.scheduleLocked(s, refreshDelay(lifetime(resp.ExpiresIn)))
	return s
}

// save caches s. Callers hold commit so a later SignOut removes the file
// after it was written, never before.
func (p *Provider) save(ctx context.Context, s *signIn) {
	if err := saveCache(p.cachePath, cachedSignIn{
		UID:          s.user.UID,
		Email:        s.user.Email,
		DisplayName:  s.user.DisplayName,
		RefreshToken: s.refreshToken,
	}); err != nil {
		p.logger.WarnContext(ctx, "failed to cache sign-in", "error", err)
	}
}

func refreshDelay(life time.Duration) time.Duration {
	if life <= 2*refreshLead {
		return life / 2
	}
	return life - refreshLead
}

func (p *Provider) scheduleLocked(s *signIn, delay time.Duration) {
	s.timer = time.AfterFunc(delay, func() { p.backgroundRefresh(s) })
}

// backgroundRefresh renews the ID token of s. Rejection signs out; network
// failures are retried later.
func (p *Provider) backgroundRefresh(s *signIn) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp tokenResponse
	err := p.refresh(ctx, s.refreshToken, &resp)

	p.commit.Lock()
	defer p.commit.Unlock()

	p.mu.Lock()
	if p.closed || p.current != s {
		p.mu.Unlock()
		return
	}
	if err != nil {
		if isNetwork(err) {
			p.scheduleLocked(s, networkRetryDelay)
			p.mu.Unlock()
			p.logger.Warn("token refresh failed, will retry", "error", err)
			return
		}
		p.generation++
		p.current = nil
		listeners := p.listenersLocked()
		p.mu.Unlock()
		p.logger.Info("sign-in revoked by provider", "uid", s.user.UID, "code", string(identity.CodeOf(err)))
		_ = removeCache(p.cachePath) //nolint:errcheck // best effort
		deliver(listeners, nil)
		return
	}

	next := &signIn{
		user:         s.user,
		refreshToken: orDefault(resp.RefreshToken, s.refreshToken),
	}
	next.user.Token = resp.IDToken
	p.generation++
	p.current = next
	p.scheduleLocked(next, refreshDelay(lifetime(resp.ExpiresIn)))
	listeners := p.listenersLocked()
	p.mu.Unlock()

	p.save(ctx, next)
	user := next.user
	deliver(listeners, &user)
}

func (p *Provider) listenersLocked() []identity.SessionListener {
	listeners := make([]identity.SessionListener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func deliver(listeners []identity.SessionListener, user *identity.User) {
	for _, fn := range listeners {
		fn(user)
	}
}

func (p *Provider) clearLocked() {
	if p.current != nil {
		if p.current.timer != nil {
			p.current.timer.Stop()
		}
		p.current = nil
	}
}
