// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package local

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaide/plaide/pkg/errutil"
)

func TestArgon2idHasher_HashAndVerify(t *testing.T) {
	h := NewArgon2idHasherWithParams(Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})

	hash, err := h.Hash("Secret1!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := h.Verify("Secret1!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("secret1!", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := h.Hash("Secret1!")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts differ")
}

func TestArgon2idHasher_EmptyPassword(t *testing.T) {
	_, err := NewArgon2idHasher().Hash("")
	errutil.AssertErrorCode(t, err, "LOCAL_EMPTY_PASSWORD")
}

func TestArgon2idHasher_InvalidHash(t *testing.T) {
	h := NewArgon2idHasher()
	tests := []struct {
		name string
		hash string
	}{
		{"too few parts", "$argon2id$v=19"},
		{"wrong algorithm", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$AAAA$AAAA"},
		{"zero threads", "$argon2id$v=19$m=1024,t=1,p=0$AAAA$AAAA"},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!!$AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Verify("pw", tt.hash)
			errutil.AssertErrorCode(t, err, "LOCAL_INVALID_HASH")
		})
	}
}

func TestDummyHash_NeverMatches(t *testing.T) {
	ok, err := NewArgon2idHasher().Verify("", dummyPasswordHash)
	require.NoError(t, err)
	assert.False(t, ok)
}
