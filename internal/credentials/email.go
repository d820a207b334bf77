// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package credentials

import (
	"regexp"
	"strings"
)

// emailRegex is a structural check only:
// - one or more characters that are neither whitespace nor '@'
// - a literal '@'
// - one or more such characters, a literal '.', one or more such characters
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s looks like an email address.
// It is not an RFC 5322 parser.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// DisplayNameFromEmail returns the local part of an email address, used as
// the default display name for new accounts.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
