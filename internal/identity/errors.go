// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package identity

import (
	"errors"
	"fmt"
)

// Code is a provider error code.
type Code string

// Provider error vocabulary. Providers may report other codes; callers
// must treat unknown codes as a generic failure.
const (
	CodeUserNotFound         Code = "user-not-found"
	CodeWrongPassword        Code = "wrong-password"
	CodeInvalidCredential    Code = "invalid-credential"
	CodeTooManyRequests      Code = "too-many-requests"
	CodeEmailAlreadyInUse    Code = "email-already-in-use"
	CodeWeakPassword         Code = "weak-password"
	CodeInvalidEmail         Code = "invalid-email"
	CodeNetworkRequestFailed Code = "network-request-failed"
	CodeInternal             Code = "internal-error"
)

// Error is a failure reported by a provider.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// NewError creates an Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NetworkError wraps a failure to reach the provider.
func NetworkError(err error) *Error {
	return &Error{Code: CodeNetworkRequestFailed, Message: "provider unreachable", Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("identity: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the provider code carried by err, or "" if err is not a
// provider error.
func CodeOf(err error) Code {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
