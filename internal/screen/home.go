// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package screen

import (
	"context"
	"sync/atomic"

	"github.com/plaide/plaide/internal/gateway"
	"github.com/plaide/plaide/internal/session"
)

// DefaultDisplayName is shown when the identity has no display name.
const DefaultDisplayName = "User"

// HomeView is what the home screen shows.
type HomeView struct {
	DisplayName string
	Email       string
}

// Home is the signed-in screen. Unauthenticated sessions are sent to login.
type Home struct {
	deps       Deps
	loggingOut atomic.Bool
}

// NewHome creates a Home controller.
func NewHome(deps Deps) *Home {
	return &Home{deps: deps.withDefaults()}
}

// Path implements Screen.
func (h *Home) Path() string { return PathHome }

// Guard redirects unauthenticated sessions to login. While a logout issued
// from this screen is in flight the screen navigates itself.
func (h *Home) Guard(s session.Session) string {
	if h.loggingOut.Load() {
		return ""
	}
	if !s.IsAuthenticated() {
		return PathLogin
	}
	return ""
}

// Mount implements Screen.
func (h *Home) Mount(string) {}

// Unmount implements Screen.
func (h *Home) Unmount() {}

// Logout signs out and returns to the welcome screen whether or not the
// provider could be reached. A failure is passed on as the welcome notice.
func (h *Home) Logout(ctx context.Context) Outcome {
	if !h.loggingOut.CompareAndSwap(false, true) {
		return OutcomeIgnored
	}

	if err := h.deps.Auth.Logout(ctx); err != nil {
		h.deps.Logger.WarnContext(ctx, "logout incomplete", "error", err)
		h.deps.Nav.Navigate(PathWelcome, gateway.Message(gateway.OpLogout, err))
		return OutcomeFailed
	}
	h.deps.Nav.Navigate(PathWelcome, "")
	return OutcomeSucceeded
}

// View returns the current view.
func (h *Home) View() HomeView {
	id, ok := h.deps.Session.Current().Identity()
	if !ok {
		return HomeView{}
	}
	name := id.DisplayName
	if name == "" {
		name = DefaultDisplayName
	}
	return HomeView{DisplayName: name, Email: id.Email}
}
