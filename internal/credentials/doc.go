// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package credentials checks the shape of email addresses and the strength
// of passwords before anything is sent to the identity provider.
//
// Every function here is pure: no I/O, no logging, no errors beyond the
// returned FieldErrors. Screen controllers call these first and only reach
// the auth gateway when the input passes.
package credentials
