// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package screen

import (
	"sync"

	"github.com/plaide/plaide/internal/session"
)

// Features listed on the welcome screen.
var Features = []string{"Quick Recipes", "Any Serving Size", "Save Favorites", "AI Powered"}

// WelcomeView is what the welcome screen shows.
type WelcomeView struct {
	Features []string
	Flash    string
}

// Welcome is the landing screen. Signed-in users are sent home.
type Welcome struct {
	deps Deps

	mu    sync.Mutex
	flash notice
}

// NewWelcome creates a Welcome controller.
func NewWelcome(deps Deps) *Welcome {
	return &Welcome{deps: deps.withDefaults()}
}

// Path implements Screen.
func (w *Welcome) Path() string { return PathWelcome }

// Guard redirects authenticated sessions to the home screen.
func (w *Welcome) Guard(s session.Session) string {
	if s.IsAuthenticated() {
		return PathHome
	}
	return ""
}

// Mount implements Screen.
func (w *Welcome) Mount(flash string) {
	if flash == "" {
		return
	}
	w.mu.Lock()
	w.flash = notice{text: flash, until: w.deps.Now().Add(NoticeDuration)}
	w.mu.Unlock()
}

// Unmount implements Screen.
func (w *Welcome) Unmount() {}

// CreateAccount goes to the signup screen.
func (w *Welcome) CreateAccount() { w.deps.Nav.Navigate(PathSignup, "") }

// SignIn goes to the login screen.
func (w *Welcome) SignIn() { w.deps.Nav.Navigate(PathLogin, "") }

// View returns the current view.
func (w *Welcome) View() WelcomeView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WelcomeView{
		Features: Features,
		Flash:    w.flash.visible(w.deps.Now()),
	}
}
