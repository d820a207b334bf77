// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package session holds the current authentication state of the client.
//
// A Session is an immutable value: either Unauthenticated or
// Authenticated with an Identity. The Store owns the current value and
// fans transitions out to subscribers; only the holder of the matching
// Writer can replace it. The auth gateway is the only component that
// receives a Writer.
package session

// Identity is the read-only projection of the provider's user.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	token       string
}

// NewIdentity creates an Identity. The token is opaque to the client; it is
// only used to tell two sign-ins of the same account apart.
func NewIdentity(uid, email, displayName, token string) Identity {
	return Identity{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		token:       token,
	}
}

// Session is the authentication state.
// The zero value is Unauthenticated.
type Session struct {
	identity *Identity
}

// Unauthenticated returns the signed-out session.
func Unauthenticated() Session {
	return Session{}
}

// Authenticated returns a signed-in session for id.
func Authenticated(id Identity) Session {
	return Session{identity: &id}
}

// IsAuthenticated reports whether the session carries an identity.
func (s Session) IsAuthenticated() bool {
	return s.identity != nil
}

// Identity returns the signed-in identity and true, or the zero Identity
// and false when unauthenticated.
func (s Session) Identity() (Identity, bool) {
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Equal reports whether s and other describe the same state.
func (s Session) Equal(other Session) bool {
	if s.identity == nil || other.identity == nil {
		return s.identity == nil && other.identity == nil
	}
	return *s.identity == *other.identity
}

// String returns "unauthenticated" or "authenticated".
func (s Session) String() string {
	if s.IsAuthenticated() {
		return "authenticated"
	}
	return "unauthenticated"
}
