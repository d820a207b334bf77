// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails tb unless err is a coded error carrying want.
func AssertErrorCode(tb testing.TB, err error, want string) {
	tb.Helper()
	require.Error(tb, err)
	_, ok := oops.AsOops(err)
	require.Truef(tb, ok, "%v (%T) carries no code", err, err)
	assert.Equalf(tb, want, Code(err), "code of %v", err)
}

// AssertErrorContext fails tb unless err was built with key set to want.
func AssertErrorContext(tb testing.TB, err error, key string, want any) {
	tb.Helper()
	require.Error(tb, err)
	ctx := Context(err)
	require.Containsf(tb, ctx, key, "%v has no %q in its context", err, key)
	assert.Equal(tb, want, ctx[key])
}
