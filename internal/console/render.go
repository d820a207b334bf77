// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package console

import (
	"strings"

	"github.com/plaide/plaide/internal/credentials"
	"github.com/plaide/plaide/internal/screen"
)

func (c *Console) render() {
	_, cur := c.router.Current()
	switch s := cur.(type) {
	case *screen.Welcome:
		c.renderWelcome(s.View())
	case *screen.Login:
		c.renderLogin(s.View())
	case *screen.Signup:
		c.renderSignup(s.View())
	case *screen.Home:
		c.renderHome(s.View())
	default:
		c.send("(nothing to show)")
	}
}

func (c *Console) notice(text string) {
	if text != "" {
		c.send("* %s", text)
	}
}

func (c *Console) renderWelcome(v screen.WelcomeView) {
	c.send("== Welcome to plaide ==")
	c.notice(v.Flash)
	c.send("Discover personalized recipes tailored to your taste, time, and dietary needs.")
	for _, f := range v.Features {
		c.send("  - %s", f)
	}
	c.send("[signup] Create Account   [login] I Already Have an Account")
}

func (c *Console) renderLogin(v screen.LoginView) {
	c.send("== Sign in ==")
	c.notice(v.Flash)
	c.notice(v.ResetSent)
	c.field("Email", v.Form, credentials.FieldEmail, true)
	c.field("Password", v.Form, credentials.FieldPassword, v.ShowPassword)
	c.status(v.Form)
}

func (c *Console) renderSignup(v screen.SignupView) {
	c.send("== Create account ==")
	c.field("Email", v.Form, credentials.FieldEmail, true)
	c.field("Password", v.Form, credentials.FieldPassword, v.ShowPassword)
	for _, r := range v.Requirements {
		mark := " "
		if r.Met {
			mark = "x"
		}
		c.send("    [%s] %s", mark, r.Label)
	}
	c.field("Confirm", v.Form, credentials.FieldConfirmPassword, v.ShowConfirm)
	c.status(v.Form)
}

func (c *Console) renderHome(v screen.HomeView) {
	c.send("== Home ==")
	c.send("Welcome, %s!", v.DisplayName)
	c.send("Signed in as %s", v.Email)
	c.send("[logout] Sign out")
}

func (c *Console) field(label string, f screen.FormView, name string, visible bool) {
	value := f.Value(name)
	if !visible {
		value = strings.Repeat("*", len([]rune(value)))
	}
	c.send("%-9s %s", label+":", value)
	if msg := f.Errors.Get(name); msg != "" {
		c.send("  ! %s", msg)
	}
}

func (c *Console) status(f screen.FormView) {
	if f.General != "" {
		c.send("! %s", f.General)
	}
	if f.Submitting {
		c.send("(working...)")
	}
}
