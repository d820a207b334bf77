// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package router

import "github.com/plaide/plaide/internal/screen"

// HandleScreens registers the welcome, login, signup and home screens.
// Screens navigate through r regardless of deps.Nav.
func (r *Router) HandleScreens(deps screen.Deps) error {
	deps.Nav = r
	routes := []struct {
		pattern string
		factory Factory
	}{
		{screen.PathWelcome, func() screen.Screen { return screen.NewWelcome(deps) }},
		{screen.PathLogin, func() screen.Screen { return screen.NewLogin(deps) }},
		{screen.PathSignup, func() screen.Screen { return screen.NewSignup(deps) }},
		{screen.PathHome, func() screen.Screen { return screen.NewHome(deps) }},
	}
	for _, rt := range routes {
		if err := r.Handle(rt.pattern, rt.factory); err != nil {
			return err
		}
	}
	return nil
}
