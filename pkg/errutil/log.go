// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package errutil logs and inspects coded errors built with samber/oops.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops code carried by err, or "" if there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// Context returns the key/value context attached to err with oops.With, or
// nil for errors without one.
func Context(err error) map[string]any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

// attrs returns the structured attributes describing err.
// For oops errors this includes the code, domain and context map.
func attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}

	out := []any{"error", oopsErr.Error()}
	if code := Code(err); code != "" {
		out = append(out, "code", code)
	}
	if domain := oopsErr.Domain(); domain != "" {
		out = append(out, "domain", domain)
	}
	if ctx := Context(err); len(ctx) > 0 {
		out = append(out, "context", ctx)
	}
	return out
}

// LogError logs err at error level with its structured context.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorLevel(context.Background(), logger, slog.LevelError, msg, err)
}

// LogErrorLevel logs err at the given level with its structured context.
func LogErrorLevel(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error) {
	logger.Log(ctx, level, msg, attrs(err)...)
}
