// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package local

import (
	"context"
	"log/slog"
)

// Mailer delivers password reset tokens to account holders.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset tokens to a logger instead of sending mail.
// It is meant for development, where the operator reads the token from the
// log and runs `plaide account reset-password`.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// SendPasswordReset logs the reset token.
func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.InfoContext(ctx, "password reset requested",
		"email", email,
		"token", token,
		"expires_in", ResetTokenExpiry.String())
	return nil
}
