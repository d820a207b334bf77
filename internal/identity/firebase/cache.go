// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package firebase

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/xdg"
)

// cachedSignIn is what survives a restart: enough to show the identity and
// to exchange the refresh token for a fresh ID token.
type cachedSignIn struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	RefreshToken string `json:"refresh_token"`
}

// loadCache reads the cache file. A missing file yields (nil, nil).
func loadCache(path string) (*cachedSignIn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("FIREBASE_CACHE_READ_FAILED").With("path", path).Wrap(err)
	}
	var c cachedSignIn
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, oops.Code("FIREBASE_CACHE_CORRUPT").With("path", path).Wrap(err)
	}
	if c.RefreshToken == "" {
		return nil, nil
	}
	return &c, nil
}

// saveCache writes the cache file with owner-only permissions.
func saveCache(path string, c cachedSignIn) error {
	if path == "" {
		return nil
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return oops.Code("FIREBASE_CACHE_WRITE_FAILED").Wrap(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return oops.Code("FIREBASE_CACHE_WRITE_FAILED").With("path", tmp).Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return oops.Code("FIREBASE_CACHE_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// removeCache deletes the cache file. A missing file is not an error.
func removeCache(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("FIREBASE_CACHE_REMOVE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
