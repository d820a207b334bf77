// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package identity defines the boundary to the identity provider that owns
// accounts, passwords and tokens.
//
// # Providers
//
// Two implementations live in subpackages:
//   - firebase - the hosted Firebase Authentication REST API
//   - local - a self-hosted provider backed by memory or PostgreSQL
//
// Providers report failures as *Error values carrying a Code from a small
// fixed vocabulary. Callers translate codes; they never show them to users.
package identity

import (
	"context"
)

// User is the provider's view of a signed-in account.
type User struct {
	UID         string
	Email       string
	DisplayName string
	// Token is the provider-issued credential for this sign-in.
	// Clients treat it as opaque.
	Token string
}

// SessionListener receives provider-initiated session changes.
// A nil user means the provider no longer considers anyone signed in.
type SessionListener func(user *User)

// Provider is the set of operations the client consumes.
type Provider interface {
	// SignIn authenticates with email and password.
	SignIn(ctx context.Context, email, password string) (*User, error)

	// CreateAccount registers a new account and signs it in.
	CreateAccount(ctx context.Context, email, password, displayName string) (*User, error)

	// SignOut ends the current sign-in.
	SignOut(ctx context.Context) error

	// SendPasswordReset asks the provider to send a reset message to email.
	SendPasswordReset(ctx context.Context, email string) error

	// OnSessionChanged registers fn for changes the provider initiates on its
	// own: restoring a persisted sign-in, token expiry, remote revocation.
	// Changes that are the direct result of SignIn, CreateAccount or SignOut
	// are reported through those calls' return values instead.
	OnSessionChanged(fn SessionListener) (unsubscribe func())
}
