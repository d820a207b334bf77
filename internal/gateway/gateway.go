// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package gateway wraps the identity provider's operations for the rest of
// the client.
//
// The Gateway is the only writer of the session store. It translates provider
// error codes into a closed Kind enumeration, logs and counts every failure,
// and never retries on its own.
package gateway

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plaide/plaide/internal/identity"
	"github.com/plaide/plaide/internal/observability"
	"github.com/plaide/plaide/internal/session"
	"github.com/plaide/plaide/pkg/errutil"
)

const tracerName = "github.com/plaide/plaide/internal/gateway"

// Gateway performs authentication operations against an identity provider.
type Gateway struct {
	provider    identity.Provider
	writer      *session.Writer
	logger      *slog.Logger
	metrics     *observability.Metrics
	tracer      trace.Tracer
	unsubscribe func()
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gateway) {
		if tp != nil {
			g.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a Gateway that owns writer and follows the provider's own
// session changes. Call Close to stop following them.
func New(provider identity.Provider, writer *session.Writer, opts ...Option) (*Gateway, error) {
	if provider == nil {
		return nil, oops.Errorf("identity provider is required")
	}
	if writer == nil {
		return nil, oops.Errorf("session writer is required")
	}

	g := &Gateway{
		provider: provider,
		writer:   writer,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.unsubscribe = provider.OnSessionChanged(g.handleProviderChange)
	return g, nil
}

// Close stops following provider-initiated session changes.
func (g *Gateway) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

// Login signs in with email and password. On success the session becomes
// Authenticated; on failure it is left unchanged.
func (g *Gateway) Login(ctx context.Context, email, password string) (session.Identity, error) {
	ctx, span := g.start(ctx, OpLogin)
	defer span.End()

	user, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return session.Identity{}, g.fail(ctx, span, OpLogin, err)
	}

	id := project(user, "")
	g.transition(ctx, OpLogin, session.Authenticated(id))
	g.succeed(ctx, span, OpLogin)
	return id, nil
}

// Signup creates an account and signs it in.
func (g *Gateway) Signup(ctx context.Context, email, password, displayName string) (session.Identity, error) {
	ctx, span := g.start(ctx, OpSignup)
	defer span.End()

	user, err := g.provider.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		return session.Identity{}, g.fail(ctx, span, OpSignup, err)
	}

	id := project(user, displayName)
	g.transition(ctx, OpSignup, session.Authenticated(id))
	g.succeed(ctx, span, OpSignup)
	return id, nil
}

// Logout ends the session. The local session is cleared even when the
// provider cannot be reached; the returned error then reports why.
func (g *Gateway) Logout(ctx context.Context) error {
	ctx, span := g.start(ctx, OpLogout)
	defer span.End()

	err := g.provider.SignOut(ctx)
	g.transition(ctx, OpLogout, session.Unauthenticated())
	if err != nil {
		return g.fail(ctx, span, OpLogout, err)
	}

	g.succeed(ctx, span, OpLogout)
	return nil
}

// ResetPassword asks the provider to send a reset message to email.
// The session is never affected.
func (g *Gateway) ResetPassword(ctx context.Context, email string) error {
	ctx, span := g.start(ctx, OpResetPassword)
	defer span.End()

	if err := g.provider.SendPasswordReset(ctx, email); err != nil {
		return g.fail(ctx, span, OpResetPassword, err)
	}

	g.succeed(ctx, span, OpResetPassword)
	return nil
}

func (g *Gateway) handleProviderChange(user *identity.User) {
	next := session.Unauthenticated()
	if user != nil {
		next = session.Authenticated(project(user, ""))
	}
	g.transition(context.Background(), "provider", next)
}

func (g *Gateway) transition(ctx context.Context, cause Operation, next session.Session) {
	if !g.writer.Set(next) {
		return
	}
	g.metrics.RecordTransition(next.String())
	g.logger.InfoContext(ctx, "session changed",
		"event", "session_transition",
		"cause", string(cause),
		"state", next.String(),
	)
}

func (g *Gateway) start(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "gateway."+string(op),
		trace.WithAttributes(attribute.String("auth.operation", string(op))),
	)
}

func (g *Gateway) succeed(ctx context.Context, span trace.Span, op Operation) {
	span.SetStatus(codes.Ok, "")
	g.metrics.RecordAuth(string(op), observability.OutcomeOK)
	g.logger.DebugContext(ctx, "auth operation succeeded", "operation", string(op))
}

func (g *Gateway) fail(ctx context.Context, span trace.Span, op Operation, err error) error {
	kind, wrapped := wrap(op, err)

	span.RecordError(err)
	span.SetAttributes(attribute.String("auth.failure", kind.String()))
	span.SetStatus(codes.Error, kind.String())
	g.metrics.RecordAuth(string(op), kind.String())

	level := slog.LevelWarn
	if kind == KindUnknown || kind == KindTransport {
		level = slog.LevelError
	}
	errutil.LogErrorLevel(ctx, g.logger, level, "auth operation failed", wrapped)
	return wrapped
}

// project converts a provider user into the session's identity.
// fallbackName fills in a display name the provider did not echo back.
func project(user *identity.User, fallbackName string) session.Identity {
	if user == nil {
		return session.NewIdentity("", "", fallbackName, "")
	}
	name := user.DisplayName
	if name == "" {
		name = fallbackName
	}
	return session.NewIdentity(user.UID, user.Email, name, user.Token)
}
