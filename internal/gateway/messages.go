// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package gateway

// User-facing messages. Raw provider codes never reach the user.
const (
	MsgLoginFailed         = "Invalid email or password. Please try again."
	MsgUserNotFound        = "No account found with this email."
	MsgWrongPassword       = "Incorrect password. Please try again."
	MsgTooManyAttempts     = "Too many failed attempts. Please try again later."
	MsgSignupFailed        = "Failed to create account. Please try again."
	MsgEmailAlreadyInUse   = "This email is already registered. Please sign in instead."
	MsgWeakPassword        = "Password is too weak. Please use a stronger password."
	MsgInvalidEmail        = "Invalid email address."
	MsgResetFailed         = "Failed to send reset email. Please try again."
	MsgLogoutUnreachable   = "Could not reach the sign-in service. You have been signed out on this device."
	MsgTransport           = "Unable to reach the sign-in service. Please check your connection and try again."
	MsgUnknown             = "Something went wrong. Please try again."
	MsgLogoutFailedGeneric = "Sign-out did not complete. You have been signed out on this device."
)

// Message returns the sentence to show the user for a failed operation.
func Message(op Operation, err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)

	switch op {
	case OpLogin:
		switch kind {
		case KindInvalidCredentials:
			return MsgWrongPassword
		case KindUserNotFound:
			return MsgUserNotFound
		case KindTooManyAttempts:
			return MsgTooManyAttempts
		case KindTransport:
			return MsgTransport
		}
		return MsgLoginFailed
	case OpSignup:
		switch kind {
		case KindEmailAlreadyInUse:
			return MsgEmailAlreadyInUse
		case KindWeakPassword:
			return MsgWeakPassword
		case KindInvalidEmail:
			return MsgInvalidEmail
		case KindTransport:
			return MsgTransport
		}
		return MsgSignupFailed
	case OpResetPassword:
		if kind == KindTransport {
			return MsgTransport
		}
		return MsgResetFailed
	case OpLogout:
		if kind == KindTransport {
			return MsgLogoutUnreachable
		}
		return MsgLogoutFailedGeneric
	}
	return MsgUnknown
}
