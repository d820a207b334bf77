// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package screen

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/plaide/plaide/internal/credentials"
	"github.com/plaide/plaide/internal/gateway"
	"github.com/plaide/plaide/internal/session"
)

// LoginView is what the login screen shows.
type LoginView struct {
	Form         FormView
	ShowPassword bool
	// Flash is the one-shot notice carried by the navigation, if still visible.
	Flash string
	// ResetSent is the reset confirmation, if still visible.
	ResetSent string
}

// Login is the sign-in screen.
type Login struct {
	deps      Deps
	form      *form
	resetting atomic.Bool

	mu           sync.Mutex
	showPassword bool
	flash        notice
	resetSent    notice
}

// NewLogin creates a Login controller.
func NewLogin(deps Deps) *Login {
	return &Login{deps: deps.withDefaults(), form: newForm()}
}

// Path implements Screen.
func (c *Login) Path() string { return PathLogin }

// Guard implements Screen. The login screen is reachable in any state.
func (c *Login) Guard(session.Session) string { return "" }

// Mount shows flash for NoticeDuration.
func (c *Login) Mount(flash string) {
	if flash == "" {
		return
	}
	c.mu.Lock()
	c.flash = notice{text: flash, until: c.deps.Now().Add(NoticeDuration)}
	c.mu.Unlock()
}

// Unmount implements Screen.
func (c *Login) Unmount() {}

// SetEmail updates the email field.
func (c *Login) SetEmail(v string) { c.form.set(credentials.FieldEmail, v) }

// SetPassword updates the password field.
func (c *Login) SetPassword(v string) { c.form.set(credentials.FieldPassword, v) }

// TogglePassword flips whether the password is shown in clear.
func (c *Login) TogglePassword() {
	c.mu.Lock()
	c.showPassword = !c.showPassword
	c.mu.Unlock()
}

// Submit validates the form and signs in. On success it navigates home.
func (c *Login) Submit(ctx context.Context) Outcome {
	out := c.form.submit(ctx, gateway.OpLogin,
		func(v map[string]string) credentials.FieldErrors {
			return credentials.ValidateLogin(v[credentials.FieldEmail], v[credentials.FieldPassword])
		},
		func(ctx context.Context, v map[string]string) error {
			_, err := c.deps.Auth.Login(ctx, v[credentials.FieldEmail], v[credentials.FieldPassword])
			return err
		},
	)
	if out == OutcomeSucceeded {
		c.deps.Nav.Navigate(PathHome, "")
	}
	return out
}

// ForgotPassword requests a reset email for the entered address.
func (c *Login) ForgotPassword(ctx context.Context) Outcome {
	if !c.resetting.CompareAndSwap(false, true) {
		return OutcomeIgnored
	}
	defer c.resetting.Store(false)

	email := c.form.value(credentials.FieldEmail)
	if errs := credentials.ValidateResetEmail(email); !errs.OK() {
		c.form.reject(errs)
		return OutcomeInvalid
	}
	if err := c.deps.Auth.ResetPassword(ctx, email); err != nil {
		c.form.fail(gateway.Message(gateway.OpResetPassword, err))
		return OutcomeFailed
	}

	c.mu.Lock()
	c.resetSent = notice{text: MsgPasswordResetSent, until: c.deps.Now().Add(NoticeDuration)}
	c.mu.Unlock()
	return OutcomeSucceeded
}

// Back returns to the welcome screen.
func (c *Login) Back() { c.deps.Nav.Navigate(PathWelcome, "") }

// GoToSignup switches to the signup screen.
func (c *Login) GoToSignup() { c.deps.Nav.Navigate(PathSignup, "") }

// View returns the current view.
func (c *Login) View() LoginView {
	now := c.deps.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return LoginView{
		Form:         c.form.view(),
		ShowPassword: c.showPassword,
		Flash:        c.flash.visible(now),
		ResetSent:    c.resetSent.visible(now),
	}
}
