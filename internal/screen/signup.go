// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package screen

import (
	"context"
	"sync"

	"github.com/plaide/plaide/internal/credentials"
	"github.com/plaide/plaide/internal/gateway"
	"github.com/plaide/plaide/internal/session"
)

// SignupView is what the signup screen shows.
type SignupView struct {
	Form         FormView
	Requirements []credentials.Requirement
	ShowPassword bool
	ShowConfirm  bool
}

// Signup is the account creation screen.
type Signup struct {
	deps Deps
	form *form

	mu           sync.Mutex
	showPassword bool
	showConfirm  bool
}

// NewSignup creates a Signup controller.
func NewSignup(deps Deps) *Signup {
	return &Signup{deps: deps.withDefaults(), form: newForm()}
}

// Path implements Screen.
func (c *Signup) Path() string { return PathSignup }

// Guard implements Screen. The signup screen is reachable in any state.
func (c *Signup) Guard(session.Session) string { return "" }

// Mount implements Screen.
func (c *Signup) Mount(string) {}

// Unmount implements Screen.
func (c *Signup) Unmount() {}

// SetEmail updates the email field.
func (c *Signup) SetEmail(v string) { c.form.set(credentials.FieldEmail, v) }

// SetPassword updates the password field.
func (c *Signup) SetPassword(v string) { c.form.set(credentials.FieldPassword, v) }

// SetConfirm updates the confirmation field.
func (c *Signup) SetConfirm(v string) { c.form.set(credentials.FieldConfirmPassword, v) }

// TogglePassword flips whether the password is shown in clear.
func (c *Signup) TogglePassword() {
	c.mu.Lock()
	c.showPassword = !c.showPassword
	c.mu.Unlock()
}

// ToggleConfirm flips whether the confirmation is shown in clear.
func (c *Signup) ToggleConfirm() {
	c.mu.Lock()
	c.showConfirm = !c.showConfirm
	c.mu.Unlock()
}

// Requirements evaluates the policy against the current password.
func (c *Signup) Requirements() []credentials.Requirement {
	return credentials.EvaluatePasswordRequirements(c.form.value(credentials.FieldPassword)).Checklist()
}

// Submit validates the form and creates the account, named after the
// email's local part. On success it navigates to login with a notice.
func (c *Signup) Submit(ctx context.Context) Outcome {
	out := c.form.submit(ctx, gateway.OpSignup,
		func(v map[string]string) credentials.FieldErrors {
			return credentials.ValidateSignup(
				v[credentials.FieldEmail],
				v[credentials.FieldPassword],
				v[credentials.FieldConfirmPassword],
			)
		},
		func(ctx context.Context, v map[string]string) error {
			email := v[credentials.FieldEmail]
			_, err := c.deps.Auth.Signup(ctx, email, v[credentials.FieldPassword], credentials.DisplayNameFromEmail(email))
			return err
		},
	)
	if out == OutcomeSucceeded {
		c.deps.Nav.Navigate(PathLogin, MsgAccountCreated)
	}
	return out
}

// Back returns to the welcome screen.
func (c *Signup) Back() { c.deps.Nav.Navigate(PathWelcome, "") }

// GoToLogin switches to the login screen.
func (c *Signup) GoToLogin() { c.deps.Nav.Navigate(PathLogin, "") }

// View returns the current view.
func (c *Signup) View() SignupView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SignupView{
		Form:         c.form.view(),
		Requirements: c.Requirements(),
		ShowPassword: c.showPassword,
		ShowConfirm:  c.showConfirm,
	}
}
