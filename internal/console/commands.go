// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package console

import (
	"context"
	"strings"

	"github.com/plaide/plaide/internal/screen"
)

// parseCommand splits a line into a lowercase command and its argument.
// The argument is everything after the first space following the command,
// kept verbatim so passwords may start or end with spaces.
func parseCommand(line string) (cmd, arg string) {
	line = strings.TrimLeft(line, " \t")
	if strings.TrimSpace(line) == "" {
		return "", ""
	}
	cmd, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(strings.TrimSpace(cmd)), arg
}

func (c *Console) processLine(ctx context.Context, line string) {
	cmd, arg := parseCommand(line)
	if cmd == "" {
		return
	}

	switch cmd {
	case "quit", "exit":
		c.quitting = true
		c.send("Goodbye.")
		return
	case "help":
		c.help()
		return
	case "go":
		path := strings.TrimSpace(arg)
		if path == "" {
			c.send("Usage: go <path>")
			return
		}
		c.router.Navigate(path, "")
		return
	}

	_, cur := c.router.Current()
	handled := false
	switch s := cur.(type) {
	case *screen.Welcome:
		handled = c.welcome(s, cmd)
	case *screen.Login:
		handled = c.login(ctx, s, cmd, arg)
	case *screen.Signup:
		handled = c.signup(ctx, s, cmd, arg)
	case *screen.Home:
		handled = c.home(ctx, s, cmd)
	}
	if !handled {
		c.send("Unknown command: %s (type help)", cmd)
	}
}

func (c *Console) welcome(s *screen.Welcome, cmd string) bool {
	switch cmd {
	case "signup":
		s.CreateAccount()
	case "login":
		s.SignIn()
	default:
		return false
	}
	return true
}

func (c *Console) login(ctx context.Context, s *screen.Login, cmd, arg string) bool {
	switch cmd {
	case "email":
		s.SetEmail(strings.TrimSpace(arg))
	case "password":
		s.SetPassword(arg)
	case "show":
		s.TogglePassword()
	case "submit":
		c.report(s.Submit(ctx))
	case "forgot":
		c.report(s.ForgotPassword(ctx))
	case "signup":
		s.GoToSignup()
	case "back":
		s.Back()
	default:
		return false
	}
	return true
}

func (c *Console) signup(ctx context.Context, s *screen.Signup, cmd, arg string) bool {
	switch cmd {
	case "email":
		s.SetEmail(strings.TrimSpace(arg))
	case "password":
		s.SetPassword(arg)
	case "confirm":
		s.SetConfirm(arg)
	case "show":
		if strings.TrimSpace(arg) == "confirm" {
			s.ToggleConfirm()
		} else {
			s.TogglePassword()
		}
	case "submit":
		c.report(s.Submit(ctx))
	case "login":
		s.GoToLogin()
	case "back":
		s.Back()
	default:
		return false
	}
	return true
}

func (c *Console) home(ctx context.Context, s *screen.Home, cmd string) bool {
	if cmd != "logout" {
		return false
	}
	c.report(s.Logout(ctx))
	return true
}

// report only mentions outcomes the rendered screen does not show.
func (c *Console) report(o screen.Outcome) {
	if o == screen.OutcomeIgnored {
		c.send("Already in progress.")
	}
}

var screenHelp = map[string][]string{
	screen.PathWelcome: {"signup            create an account", "login             sign in"},
	screen.PathLogin: {
		"email <address>   set the email", "password <value>  set the password",
		"show              show or hide the password", "submit            sign in",
		"forgot            send a password reset email", "signup            create an account instead",
		"back              return to the welcome screen",
	},
	screen.PathSignup: {
		"email <address>   set the email", "password <value>  set the password",
		"confirm <value>   repeat the password", "show [confirm]    show or hide a password",
		"submit            create the account", "login             sign in instead",
		"back              return to the welcome screen",
	},
	screen.PathHome: {"logout            sign out"},
}

func (c *Console) help() {
	p, cur := c.router.Current()
	if cur != nil {
		p = cur.Path()
	}
	for _, line := range screenHelp[p] {
		c.send("  %s", line)
	}
	c.send("  go <path>         open a screen by path")
	c.send("  help              show this list")
	c.send("  quit              leave")
}
