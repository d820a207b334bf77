// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package credentials

// Form field names.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

// Validation messages shown next to the offending field.
const (
	MsgEmailRequired       = "Email is required"
	MsgEmailInvalid        = "Please enter a valid email"
	MsgPasswordRequired    = "Password is required"
	MsgPasswordPolicy      = "Password does not meet all requirements"
	MsgConfirmRequired     = "Please confirm your password"
	MsgPasswordsMismatch   = "Passwords do not match"
	MsgResetEmailRequired  = "Please enter your email address"
	MsgResetEmailMalformed = "Please enter a valid email address"
)

// FieldErrors maps a field name to its validation message.
// An empty map means the input is valid.
type FieldErrors map[string]string

// OK reports whether there are no errors.
func (e FieldErrors) OK() bool {
	return len(e) == 0
}

// Get returns the message for field, or "" if the field is valid.
func (e FieldErrors) Get(field string) string {
	return e[field]
}

func validateEmail(errs FieldErrors, email string) {
	switch {
	case email == "":
		errs[FieldEmail] = MsgEmailRequired
	case !IsValidEmail(email):
		errs[FieldEmail] = MsgEmailInvalid
	}
}

// ValidateLogin checks a login form. The password is only checked for
// presence; strength rules apply to new passwords.
func ValidateLogin(email, password string) FieldErrors {
	errs := FieldErrors{}
	validateEmail(errs, email)
	if password == "" {
		errs[FieldPassword] = MsgPasswordRequired
	}
	return errs
}

// ValidateSignup checks a signup form, including the password policy and
// the confirmation field.
func ValidateSignup(email, password, confirm string) FieldErrors {
	errs := FieldErrors{}
	validateEmail(errs, email)

	switch {
	case password == "":
		errs[FieldPassword] = MsgPasswordRequired
	case !PasswordMeetsPolicy(password):
		errs[FieldPassword] = MsgPasswordPolicy
	}

	switch {
	case confirm == "":
		errs[FieldConfirmPassword] = MsgConfirmRequired
	case password != confirm:
		errs[FieldConfirmPassword] = MsgPasswordsMismatch
	}
	return errs
}

// ValidateResetEmail checks the email used for a password reset request.
func ValidateResetEmail(email string) FieldErrors {
	errs := FieldErrors{}
	switch {
	case email == "":
		errs[FieldEmail] = MsgResetEmailRequired
	case !IsValidEmail(email):
		errs[FieldEmail] = MsgResetEmailMalformed
	}
	return errs
}
