// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package gateway

import (
	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/identity"
)

// Kind is the closed set of failures the gateway reports.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindUserNotFound
	KindTooManyAttempts
	KindEmailAlreadyInUse
	KindWeakPassword
	KindInvalidEmail
	KindTransport
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindInvalidCredentials: "invalid_credentials",
	KindUserNotFound:       "user_not_found",
	KindTooManyAttempts:    "too_many_attempts",
	KindEmailAlreadyInUse:  "email_already_in_use",
	KindWeakPassword:       "weak_password",
	KindInvalidEmail:       "invalid_email",
	KindTransport:          "transport",
}

var kindCodes = map[Kind]string{
	KindUnknown:            "AUTH_UNKNOWN",
	KindInvalidCredentials: "AUTH_INVALID_CREDENTIALS",
	KindUserNotFound:       "AUTH_USER_NOT_FOUND",
	KindTooManyAttempts:    "AUTH_TOO_MANY_ATTEMPTS",
	KindEmailAlreadyInUse:  "AUTH_EMAIL_IN_USE",
	KindWeakPassword:       "AUTH_WEAK_PASSWORD",
	KindInvalidEmail:       "AUTH_INVALID_EMAIL",
	KindTransport:          "AUTH_TRANSPORT",
}

// String returns the snake_case name used in logs and metrics.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Code returns the error code carried by gateway errors of this kind.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[KindUnknown]
}

// Operation names a gateway operation.
type Operation string

// Gateway operations.
const (
	OpLogin         Operation = "login"
	OpSignup        Operation = "signup"
	OpLogout        Operation = "logout"
	OpResetPassword Operation = "reset_password"
)

// classify maps a provider code to a kind allowed for op. Codes outside an
// operation's vocabulary fall back to KindUnknown.
func classify(op Operation, code identity.Code) Kind {
	if code == identity.CodeNetworkRequestFailed {
		return KindTransport
	}

	switch op {
	case OpLogin:
		switch code {
		case identity.CodeWrongPassword:
			return KindInvalidCredentials
		case identity.CodeUserNotFound:
			return KindUserNotFound
		case identity.CodeTooManyRequests:
			return KindTooManyAttempts
		}
	case OpSignup:
		switch code {
		case identity.CodeEmailAlreadyInUse:
			return KindEmailAlreadyInUse
		case identity.CodeWeakPassword:
			return KindWeakPassword
		case identity.CodeInvalidEmail:
			return KindInvalidEmail
		}
	}
	return KindUnknown
}

// wrap turns a provider failure into a gateway error.
func wrap(op Operation, err error) (Kind, error) {
	code := identity.CodeOf(err)
	kind := classify(op, code)
	return kind, oops.Code(kind.Code()).
		In("gateway").
		With("operation", string(op)).
		With("kind", kind.String()).
		With("provider_code", string(code)).
		Wrapf(err, "%s failed", op)
}

// KindOf returns the kind of a gateway error. Errors not produced by the
// gateway are KindUnknown.
func KindOf(err error) Kind {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindUnknown
	}
	code, _ := oopsErr.Code().(string)
	for kind, c := range kindCodes {
		if c == code {
			return kind
		}
	}
	return KindUnknown
}
