// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plaide/plaide/internal/gateway"
	"github.com/plaide/plaide/internal/identity"
	"github.com/plaide/plaide/internal/identity/identitytest"
	"github.com/plaide/plaide/internal/observability"
	"github.com/plaide/plaide/internal/session"
	"github.com/plaide/plaide/pkg/errutil"
)

type fixture struct {
	provider *identitytest.MockProvider
	store    *session.Store
	gw       *gateway.Gateway
	metrics  *observability.Metrics
	notified []session.Session
}

func newFixture(t *testing.T, opts ...gateway.Option) *fixture {
	t.Helper()
	f := &fixture{provider: identitytest.NewMockProvider(t)}

	var writer *session.Writer
	f.store, writer = session.NewStore()
	f.store.Subscribe(func(s session.Session) { f.notified = append(f.notified, s) })

	f.metrics = observability.NewMetrics(observability.NewRegistry())
	opts = append([]gateway.Option{gateway.WithMetrics(f.metrics)}, opts...)

	gw, err := gateway.New(f.provider, writer, opts...)
	require.NoError(t, err)
	t.Cleanup(gw.Close)
	f.gw = gw
	return f
}

func TestNew_NilDependencies(t *testing.T) {
	_, writer := session.NewStore()

	gw, err := gateway.New(nil, writer)
	require.Error(t, err)
	assert.Nil(t, gw)
	assert.Contains(t, err.Error(), "identity provider is required")

	gw, err = gateway.New(identitytest.NewMockProvider(t), nil)
	require.Error(t, err)
	assert.Nil(t, gw)
	assert.Contains(t, err.Error(), "session writer is required")
}

func TestGateway_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success authenticates exactly once", func(t *testing.T) {
		f := newFixture(t)
		f.provider.On("SignIn", mock.Anything, "alice@example.com", "Secret1!x").
			Return(identitytest.User("alice@example.com", "alice"), nil).Once()

		id, err := f.gw.Login(ctx, "alice@example.com", "Secret1!x")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", id.Email)
		assert.Equal(t, "alice", id.DisplayName)

		require.Len(t, f.notified, 1)
		assert.True(t, f.notified[0].IsAuthenticated())
		assert.True(t, f.store.Current().IsAuthenticated())
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AuthOperations.WithLabelValues("login", "ok")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SessionTransitions.WithLabelValues("authenticated")), 0)
	})

	failures := []struct {
		name    string
		err     error
		kind    gateway.Kind
		code    string
		message string
	}{
		{
			name:    "wrong password",
			err:     identity.NewError(identity.CodeWrongPassword, "bad"),
			kind:    gateway.KindInvalidCredentials,
			code:    "AUTH_INVALID_CREDENTIALS",
			message: gateway.MsgWrongPassword,
		},
		{
			name:    "user not found",
			err:     identity.NewError(identity.CodeUserNotFound, "nobody"),
			kind:    gateway.KindUserNotFound,
			code:    "AUTH_USER_NOT_FOUND",
			message: gateway.MsgUserNotFound,
		},
		{
			name:    "too many requests",
			err:     identity.NewError(identity.CodeTooManyRequests, "slow down"),
			kind:    gateway.KindTooManyAttempts,
			code:    "AUTH_TOO_MANY_ATTEMPTS",
			message: gateway.MsgTooManyAttempts,
		},
		{
			name:    "network failure",
			err:     identity.NetworkError(errors.New("connection refused")),
			kind:    gateway.KindTransport,
			code:    "AUTH_TRANSPORT",
			message: gateway.MsgTransport,
		},
		{
			name:    "unrecognized provider code falls back",
			err:     identity.NewError(identity.CodeInvalidCredential, "nope"),
			kind:    gateway.KindUnknown,
			code:    "AUTH_UNKNOWN",
			message: gateway.MsgLoginFailed,
		},
		{
			name:    "signup-only code is unknown for login",
			err:     identity.NewError(identity.CodeEmailAlreadyInUse, "taken"),
			kind:    gateway.KindUnknown,
			code:    "AUTH_UNKNOWN",
			message: gateway.MsgLoginFailed,
		},
		{
			name:    "non provider error",
			err:     errors.New("boom"),
			kind:    gateway.KindUnknown,
			code:    "AUTH_UNKNOWN",
			message: gateway.MsgLoginFailed,
		},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.provider.On("SignIn", mock.Anything, "alice@example.com", "pw").Return(nil, tt.err).Once()

			_, err := f.gw.Login(ctx, "alice@example.com", "pw")
			require.Error(t, err)
			assert.Equal(t, tt.kind, gateway.KindOf(err))
			errutil.AssertErrorCode(t, err, tt.code)
			errutil.AssertErrorContext(t, err, "operation", "login")
			assert.Equal(t, tt.message, gateway.Message(gateway.OpLogin, err))

			assert.Empty(t, f.notified, "session left unchanged")
			assert.False(t, f.store.Current().IsAuthenticated())
			assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AuthOperations.WithLabelValues("login", tt.kind.String())), 0)
		})
	}
}

func TestGateway_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("success uses requested display name when provider omits it", func(t *testing.T) {
		f := newFixture(t)
		user := identitytest.User("bob@example.com", "")
		f.provider.On("CreateAccount", mock.Anything, "bob@example.com", "Secret1!x", "bob").Return(user, nil).Once()

		id, err := f.gw.Signup(ctx, "bob@example.com", "Secret1!x", "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", id.DisplayName)
		require.Len(t, f.notified, 1)
		assert.True(t, f.store.Current().IsAuthenticated())
	})

	failures := []struct {
		name    string
		code    identity.Code
		kind    gateway.Kind
		message string
	}{
		{"email in use", identity.CodeEmailAlreadyInUse, gateway.KindEmailAlreadyInUse, gateway.MsgEmailAlreadyInUse},
		{"weak password", identity.CodeWeakPassword, gateway.KindWeakPassword, gateway.MsgWeakPassword},
		{"invalid email", identity.CodeInvalidEmail, gateway.KindInvalidEmail, gateway.MsgInvalidEmail},
		{"network", identity.CodeNetworkRequestFailed, gateway.KindTransport, gateway.MsgTransport},
		{"login-only code", identity.CodeWrongPassword, gateway.KindUnknown, gateway.MsgSignupFailed},
		{"provider internal", identity.CodeInternal, gateway.KindUnknown, gateway.MsgSignupFailed},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.provider.On("CreateAccount", mock.Anything, "bob@example.com", "Secret1!x", "bob").
				Return(nil, identity.NewError(tt.code, "failed")).Once()

			_, err := f.gw.Signup(ctx, "bob@example.com", "Secret1!x", "bob")
			require.Error(t, err)
			assert.Equal(t, tt.kind, gateway.KindOf(err))
			assert.Equal(t, tt.message, gateway.Message(gateway.OpSignup, err))
			assert.Empty(t, f.notified)
		})
	}
}

func TestGateway_Logout(t *testing.T) {
	ctx := context.Background()

	signIn := func(t *testing.T, f *fixture) {
		t.Helper()
		f.provider.On("SignIn", mock.Anything, "alice@example.com", "pw").
			Return(identitytest.User("alice@example.com", "alice"), nil).Once()
		_, err := f.gw.Login(ctx, "alice@example.com", "pw")
		require.NoError(t, err)
	}

	t.Run("success clears the session", func(t *testing.T) {
		f := newFixture(t)
		signIn(t, f)
		f.provider.On("SignOut", mock.Anything).Return(nil).Once()

		require.NoError(t, f.gw.Logout(ctx))
		assert.False(t, f.store.Current().IsAuthenticated())
		require.Len(t, f.notified, 2)
		assert.False(t, f.notified[1].IsAuthenticated())
	})

	t.Run("unreachable provider still clears the local session", func(t *testing.T) {
		f := newFixture(t)
		signIn(t, f)
		f.provider.On("SignOut", mock.Anything).Return(identity.NetworkError(errors.New("timeout"))).Once()

		err := f.gw.Logout(ctx)
		require.Error(t, err)
		assert.Equal(t, gateway.KindTransport, gateway.KindOf(err))
		assert.Equal(t, gateway.MsgLogoutUnreachable, gateway.Message(gateway.OpLogout, err))
		assert.False(t, f.store.Current().IsAuthenticated())
	})

	t.Run("logout while signed out is not a transition", func(t *testing.T) {
		f := newFixture(t)
		f.provider.On("SignOut", mock.Anything).Return(nil).Once()

		require.NoError(t, f.gw.Logout(ctx))
		assert.Empty(t, f.notified)
	})
}

func TestGateway_ResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.provider.On("SendPasswordReset", mock.Anything, "alice@example.com").Return(nil).Once()
		require.NoError(t, f.gw.ResetPassword(ctx, "alice@example.com"))
		assert.Empty(t, f.notified)
	})

	t.Run("failure leaves session alone", func(t *testing.T) {
		f := newFixture(t)
		f.provider.On("SendPasswordReset", mock.Anything, "alice@example.com").
			Return(identity.NewError(identity.CodeUserNotFound, "nobody")).Once()

		err := f.gw.ResetPassword(ctx, "alice@example.com")
		require.Error(t, err)
		assert.Equal(t, gateway.MsgResetFailed, gateway.Message(gateway.OpResetPassword, err))
		assert.Empty(t, f.notified)
	})
}

func TestGateway_ProviderInitiatedChanges(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 1, f.provider.Listeners())

	f.provider.Emit(identitytest.User("carol@example.com", "carol"))
	require.True(t, f.store.Current().IsAuthenticated())

	f.provider.Emit(identitytest.User("carol@example.com", "carol"))
	assert.Len(t, f.notified, 1, "repeated restore is not a transition")

	f.provider.Emit(nil)
	assert.False(t, f.store.Current().IsAuthenticated())
	assert.Len(t, f.notified, 2)

	f.gw.Close()
	assert.Equal(t, 0, f.provider.Listeners())
}

func TestGateway_LogsFailuresWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	f := newFixture(t, gateway.WithLogger(logger))

	f.provider.On("SignIn", mock.Anything, "alice@example.com", "hunter2").
		Return(nil, identity.NewError(identity.CodeWrongPassword, "bad")).Once()

	_, err := f.gw.Login(context.Background(), "alice@example.com", "hunter2")
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "auth operation failed", entry["msg"])
	assert.Equal(t, "AUTH_INVALID_CREDENTIALS", entry["code"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestMessage_NilError(t *testing.T) {
	assert.Empty(t, gateway.Message(gateway.OpLogin, nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "invalid_credentials", gateway.KindInvalidCredentials.String())
	assert.Equal(t, "unknown", gateway.Kind(99).String())
	assert.Equal(t, "AUTH_UNKNOWN", gateway.Kind(99).Code())
}
