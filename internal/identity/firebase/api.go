// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/identity"
)

// Default REST endpoints.
const (
	DefaultIdentityEndpoint = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenEndpoint    = "https://securetoken.googleapis.com/v1"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// providerCodes maps Identity Toolkit error messages to provider codes.
var providerCodes = map[string]identity.Code{
	"EMAIL_NOT_FOUND":             identity.CodeUserNotFound,
	"INVALID_PASSWORD":            identity.CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   identity.CodeInvalidCredential,
	"TOO_MANY_ATTEMPTS_TRY_LATER": identity.CodeTooManyRequests,
	"EMAIL_EXISTS":                identity.CodeEmailAlreadyInUse,
	"WEAK_PASSWORD":               identity.CodeWeakPassword,
	"INVALID_EMAIL":               identity.CodeInvalidEmail,
	"MISSING_PASSWORD":            "missing-password",
	"USER_DISABLED":               "user-disabled",
	"TOKEN_EXPIRED":               "user-token-expired",
	"INVALID_REFRESH_TOKEN":       "invalid-refresh-token",
	"USER_NOT_FOUND":              identity.CodeUserNotFound,
}

// apiError is the error envelope returned by both REST APIs.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// authResponse is the common shape of signInWithPassword and signUp.
type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// tokenResponse is the securetoken refresh response.
type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// lifetime parses an expiresIn value in seconds.
func lifetime(expiresIn string) time.Duration {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

// codeFor extracts the provider code from an error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func codeFor(message string) identity.Code {
	key, _, _ := strings.Cut(message, " ")
	if code, ok := providerCodes[key]; ok {
		return code
	}
	return identity.Code(strings.ToLower(strings.ReplaceAll(key, "_", "-")))
}

// postJSON sends body to the Identity Toolkit method and decodes the reply.
func (p *Provider) postJSON(ctx context.Context, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return identity.NewError(identity.CodeInternal, "encode request")
	}
	endpoint := p.identityEndpoint + "/accounts:" + method + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &identity.Error{Code: identity.CodeInternal, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, method, out)
}

// postForm sends a form-encoded request to the securetoken API.
func (p *Provider) postForm(ctx context.Context, form url.Values, out any) error {
	endpoint := p.tokenEndpoint + "/token?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &identity.Error{Code: identity.CodeInternal, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req, "token", out)
}

func (p *Provider) do(req *http.Request, method string, out any) error {
	resp, err := p.http.Do(req)
	if err != nil {
		return identity.NetworkError(oops.Code("FIREBASE_REQUEST_FAILED").With("method", method).Wrap(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return identity.NetworkError(oops.Code("FIREBASE_READ_FAILED").With("method", method).Wrap(err))
	}

	if resp.StatusCode >= 500 {
		return &identity.Error{
			Code:    identity.CodeInternal,
			Message: "provider error",
			Err:     oops.Code("FIREBASE_SERVER_ERROR").With("method", method).With("status", resp.StatusCode).Errorf("%s", resp.Status),
		}
	}
	if resp.StatusCode >= 400 {
		var envelope apiError
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
			return &identity.Error{
				Code:    identity.CodeInternal,
				Message: "unreadable error response",
				Err:     oops.Code("FIREBASE_BAD_RESPONSE").With("method", method).With("status", resp.StatusCode).Errorf("%s", resp.Status),
			}
		}
		return identity.NewError(codeFor(envelope.Error.Message), envelope.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &identity.Error{
			Code:    identity.CodeInternal,
			Message: "decode response",
			Err:     oops.Code("FIREBASE_BAD_RESPONSE").With("method", method).Wrap(err),
		}
	}
	return nil
}

// isNetwork reports whether err is a transport failure worth retrying.
func isNetwork(err error) bool {
	var ie *identity.Error
	return errors.As(err, &ie) && ie.Code == identity.CodeNetworkRequestFailed
}
