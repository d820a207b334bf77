// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package screen holds the controllers behind the client's four screens:
// welcome, login, signup and home.
//
// Each form screen is a small state machine over Phase. Submitting runs the
// local credential checks first; only input that passes reaches the auth
// gateway. A second submit while one is in flight is ignored, not queued.
//
// Controllers know nothing about rendering. The router mounts them and
// consults their guards; a front end reads their View and forwards input.
package screen

import (
	"context"
	"log/slog"
	"time"

	"github.com/plaide/plaide/internal/session"
)

// Paths of the four screens.
const (
	PathWelcome = "/"
	PathLogin   = "/login"
	PathSignup  = "/signup"
	PathHome    = "/home"
)

// NoticeDuration is how long one-shot notices stay visible.
const NoticeDuration = 5 * time.Second

// User-facing notices owned by the screens.
const (
	MsgAccountCreated    = "Account created successfully! Please sign in."
	MsgPasswordResetSent = "Password reset email sent! Check your inbox."
)

// Phase is the submit state of a form screen.
type Phase int

// Form phases.
const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseError
	PhaseSuccess
)

var phaseNames = [...]string{"idle", "validating", "submitting", "error", "success"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Outcome is the result of a submit attempt.
type Outcome int

// Submit outcomes.
const (
	// OutcomeIgnored means a submit was already in flight.
	OutcomeIgnored Outcome = iota
	// OutcomeInvalid means local validation failed; nothing was sent.
	OutcomeInvalid
	// OutcomeFailed means the gateway reported an error.
	OutcomeFailed
	// OutcomeSucceeded means the operation completed.
	OutcomeSucceeded
)

var outcomeNames = [...]string{"ignored", "invalid", "failed", "succeeded"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Auth is the gateway surface the screens use.
type Auth interface {
	Login(ctx context.Context, email, password string) (session.Identity, error)
	Signup(ctx context.Context, email, password, displayName string) (session.Identity, error)
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
}

// Navigator moves to another screen. flash is an optional one-shot notice
// for the destination.
type Navigator interface {
	Navigate(path, flash string)
}

// Screen is what the router mounts.
type Screen interface {
	// Path is the route the screen is mounted at.
	Path() string
	// Guard returns the path to redirect to for s, or "" to stay.
	Guard(s session.Session) string
	// Mount is called once before the screen becomes current.
	Mount(flash string)
	// Unmount is called when the screen stops being current.
	Unmount()
}

// Deps are the collaborators shared by all screens.
type Deps struct {
	Auth    Auth
	Session *session.Store
	Nav     Navigator
	Logger  *slog.Logger
	// Now is the clock used for notice expiry. Defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// notice is a message visible until a deadline.
type notice struct {
	text  string
	until time.Time
}

func (n notice) visible(now time.Time) string {
	if n.text == "" || !now.Before(n.until) {
		return ""
	}
	return n.text
}
