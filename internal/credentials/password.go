// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package credentials

import (
	"regexp"
	"unicode/utf16"
)

// MinPasswordLength is the minimum number of characters in a password.
// Characters are counted in UTF-16 code units, as browsers count them, so a
// character outside the Basic Multilingual Plane counts twice.
const MinPasswordLength = 8

// PasswordSymbols is the fixed set of punctuation that satisfies the
// symbol requirement.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

var (
	digitRegex  = regexp.MustCompile(`\d`)
	upperRegex  = regexp.MustCompile(`[A-Z]`)
	lowerRegex  = regexp.MustCompile(`[a-z]`)
	symbolRegex = regexp.MustCompile(`[` + regexp.QuoteMeta(PasswordSymbols) + `]`)
)

// PasswordRequirements holds the five independent password predicates.
type PasswordRequirements struct {
	MinLength    bool
	HasNumber    bool
	HasUpperCase bool
	HasLowerCase bool
	HasSymbol    bool
}

// All reports whether every requirement holds.
func (r PasswordRequirements) All() bool {
	return r.MinLength && r.HasNumber && r.HasUpperCase && r.HasLowerCase && r.HasSymbol
}

// Requirement is one labelled entry of a PasswordRequirements checklist.
type Requirement struct {
	Label string
	Met   bool
}

// Checklist returns the requirements in display order.
func (r PasswordRequirements) Checklist() []Requirement {
	return []Requirement{
		{Label: "At least 8 characters", Met: r.MinLength},
		{Label: "One number", Met: r.HasNumber},
		{Label: "One uppercase letter", Met: r.HasUpperCase},
		{Label: "One lowercase letter", Met: r.HasLowerCase},
		{Label: "One special character", Met: r.HasSymbol},
	}
}

// EvaluatePasswordRequirements computes every requirement for s.
// Each predicate is evaluated independently; none short-circuits another.
func EvaluatePasswordRequirements(s string) PasswordRequirements {
	return PasswordRequirements{
		MinLength:    passwordLength(s) >= MinPasswordLength,
		HasNumber:    digitRegex.MatchString(s),
		HasUpperCase: upperRegex.MatchString(s),
		HasLowerCase: lowerRegex.MatchString(s),
		HasSymbol:    symbolRegex.MatchString(s),
	}
}

// PasswordMeetsPolicy reports whether s satisfies all five requirements.
func PasswordMeetsPolicy(s string) bool {
	return EvaluatePasswordRequirements(s).All()
}

func passwordLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
