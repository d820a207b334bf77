// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaide/plaide/internal/identity"
)

// fakeFirebase serves both REST APIs from one test server.
type fakeFirebase struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	bodies   map[string][]byte
}

func newFake(t *testing.T) *fakeFirebase {
	t.Helper()
	f := &fakeFirebase{
		t:        t,
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]int{},
		bodies:   map[string][]byte{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFirebase) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/identity/accounts:")
	method = strings.TrimPrefix(method, "/token/")
	assert.Equal(f.t, "test-key", r.URL.Query().Get("key"))

	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls[method]++
	f.bodies[method] = body
	h := f.handlers[method]
	f.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeFirebase) on(method string, h http.HandlerFunc) {
	f.mu.Lock()
	f.handlers[method] = h
	f.mu.Unlock()
}

func (f *fakeFirebase) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeFirebase) body(method string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var m map[string]any
	_ = json.Unmarshal(f.bodies[method], &m)
	return m
}

func replyJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func replyError(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, status, message)
	}
}

// dropConnection simulates an unreachable provider.
func dropConnection(w http.ResponseWriter, _ *http.Request) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("hijack unsupported")
	}
	conn, _, _ := hj.Hijack()
	_ = conn.Close()
}

func authReply(uid, email, name, token, expires string) map[string]any {
	return map[string]any{
		"localId":      uid,
		"email":        email,
		"displayName":  name,
		"idToken":      token,
		"refreshToken": "refresh-" + token,
		"expiresIn":    expires,
	}
}

func newTestProvider(t *testing.T, f *fakeFirebase, cachePath string) *Provider {
	t.Helper()
	p, err := New(Config{
		APIKey:           "test-key",
		IdentityEndpoint: f.srv.URL + "/identity",
		TokenEndpoint:    f.srv.URL + "/token",
		CachePath:        cachePath,
	},
		WithHTTPClient(f.srv.Client()),
		WithRestoreBackoff(func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSignIn(t *testing.T) {
	f := newFake(t)
	f.on("signInWithPassword", replyJSON(authReply("u1", "a@b.com", "ada", "tok1", "3600")))
	cache := filepath.Join(t.TempDir(), "state", "firebase-session.json")
	p := newTestProvider(t, f, cache)

	user, err := p.SignIn(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, identity.User{UID: "u1", Email: "a@b.com", DisplayName: "ada", Token: "tok1"}, *user)

	body := f.body("signInWithPassword")
	assert.Equal(t, "a@b.com", body["email"])
	assert.Equal(t, true, body["returnSecureToken"])

	cached, err := loadCache(cache)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "refresh-tok1", cached.RefreshToken)

	info, err := os.Stat(cache)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		message string
		want    identity.Code
	}{
		{"EMAIL_NOT_FOUND", identity.CodeUserNotFound},
		{"INVALID_PASSWORD", identity.CodeWrongPassword},
		{"INVALID_LOGIN_CREDENTIALS", identity.CodeInvalidCredential},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled", identity.CodeTooManyRequests},
		{"EMAIL_EXISTS", identity.CodeEmailAlreadyInUse},
		{"WEAK_PASSWORD : Password should be at least 6 characters", identity.CodeWeakPassword},
		{"INVALID_EMAIL", identity.CodeInvalidEmail},
		{"OPERATION_NOT_ALLOWED", "operation-not-allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			f := newFake(t)
			f.on("signInWithPassword", replyError(http.StatusBadRequest, tt.message))
			p := newTestProvider(t, f, "")

			_, err := p.SignIn(context.Background(), "a@b.com", "pw")
			assert.Equal(t, tt.want, identity.CodeOf(err))
		})
	}
}

func TestTransportErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", dropConnection)
		p := newTestProvider(t, f, "")

		_, err := p.SignIn(context.Background(), "a@b.com", "pw")
		assert.Equal(t, identity.CodeNetworkRequestFailed, identity.CodeOf(err))
	})

	t.Run("server error", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		p := newTestProvider(t, f, "")

		_, err := p.SignIn(context.Background(), "a@b.com", "pw")
		assert.Equal(t, identity.CodeInternal, identity.CodeOf(err))
	})

	t.Run("garbage error body", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("<html>"))
		})
		p := newTestProvider(t, f, "")

		_, err := p.SignIn(context.Background(), "a@b.com", "pw")
		assert.Equal(t, identity.CodeInternal, identity.CodeOf(err))
	})
}

func TestCreateAccount(t *testing.T) {
	t.Run("sets display name", func(t *testing.T) {
		f := newFake(t)
		f.on("signUp", replyJSON(authReply("u2", "n@b.com", "", "tok2", "3600")))
		f.on("update", replyJSON(authReply("u2", "n@b.com", "neo", "tok3", "3600")))
		p := newTestProvider(t, f, "")

		user, err := p.CreateAccount(context.Background(), "n@b.com", "Secret1!", "neo")
		require.NoError(t, err)
		assert.Equal(t, "neo", user.DisplayName)
		assert.Equal(t, "tok3", user.Token)
		assert.Equal(t, "neo", f.body("update")["displayName"])
		assert.Equal(t, "tok2", f.body("update")["idToken"])
	})

	t.Run("display name failure keeps the account", func(t *testing.T) {
		f := newFake(t)
		f.on("signUp", replyJSON(authReply("u2", "n@b.com", "", "tok2", "3600")))
		f.on("update", replyError(http.StatusBadRequest, "INVALID_ID_TOKEN"))
		p := newTestProvider(t, f, "")

		user, err := p.CreateAccount(context.Background(), "n@b.com", "Secret1!", "neo")
		require.NoError(t, err)
		assert.Empty(t, user.DisplayName)
	})

	t.Run("no display name skips update", func(t *testing.T) {
		f := newFake(t)
		f.on("signUp", replyJSON(authReply("u2", "n@b.com", "", "tok2", "3600")))
		p := newTestProvider(t, f, "")

		_, err := p.CreateAccount(context.Background(), "n@b.com", "Secret1!", "")
		require.NoError(t, err)
		assert.Zero(t, f.callCount("update"))
	})

	t.Run("email exists", func(t *testing.T) {
		f := newFake(t)
		f.on("signUp", replyError(http.StatusBadRequest, "EMAIL_EXISTS"))
		p := newTestProvider(t, f, "")

		_, err := p.CreateAccount(context.Background(), "n@b.com", "Secret1!", "neo")
		assert.Equal(t, identity.CodeEmailAlreadyInUse, identity.CodeOf(err))
	})
}

func TestSendPasswordReset(t *testing.T) {
	f := newFake(t)
	f.on("sendOobCode", replyJSON(map[string]any{"email": "a@b.com"}))
	p := newTestProvider(t, f, "")

	require.NoError(t, p.SendPasswordReset(context.Background(), "a@b.com"))
	body := f.body("sendOobCode")
	assert.Equal(t, "PASSWORD_RESET", body["requestType"])
	assert.Equal(t, "a@b.com", body["email"])
}

func TestSignOut_RemovesCache(t *testing.T) {
	f := newFake(t)
	f.on("signInWithPassword", replyJSON(authReply("u1", "a@b.com", "", "tok1", "3600")))
	cache := filepath.Join(t.TempDir(), "session.json")
	p := newTestProvider(t, f, cache)

	_, err := p.SignIn(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	require.FileExists(t, cache)

	require.NoError(t, p.SignOut(context.Background()))
	assert.NoFileExists(t, cache)
}

func writeCache(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, saveCache(path, cachedSignIn{
		UID: "u1", Email: "a@b.com", DisplayName: "ada", RefreshToken: "stored-refresh",
	}))
}

func TestRestore(t *testing.T) {
	t.Run("restores and notifies", func(t *testing.T) {
		f := newFake(t)
		f.on("token", replyJSON(map[string]any{
			"id_token": "fresh", "refresh_token": "r2", "expires_in": "3600", "user_id": "u1",
		}))
		cache := filepath.Join(t.TempDir(), "session.json")
		writeCache(t, cache)
		p := newTestProvider(t, f, cache)

		var got []*identity.User
		p.OnSessionChanged(func(u *identity.User) { got = append(got, u) })

		require.NoError(t, p.Restore(context.Background()))
		require.Len(t, got, 1)
		assert.Equal(t, identity.User{UID: "u1", Email: "a@b.com", DisplayName: "ada", Token: "fresh"}, *got[0])

		cached, err := loadCache(cache)
		require.NoError(t, err)
		assert.Equal(t, "r2", cached.RefreshToken)
	})

	t.Run("nothing cached", func(t *testing.T) {
		f := newFake(t)
		p := newTestProvider(t, f, filepath.Join(t.TempDir(), "missing.json"))

		require.NoError(t, p.Restore(context.Background()))
		assert.Zero(t, f.callCount("token"))
	})

	t.Run("rejected token is discarded", func(t *testing.T) {
		f := newFake(t)
		f.on("token", replyError(http.StatusBadRequest, "TOKEN_EXPIRED"))
		cache := filepath.Join(t.TempDir(), "session.json")
		writeCache(t, cache)
		p := newTestProvider(t, f, cache)

		called := false
		p.OnSessionChanged(func(*identity.User) { called = true })

		require.NoError(t, p.Restore(context.Background()))
		assert.False(t, called)
		assert.NoFileExists(t, cache)
	})

	t.Run("network errors are retried", func(t *testing.T) {
		f := newFake(t)
		var attempts atomic.Int32
		f.on("token", func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 3 {
				dropConnection(w, r)
				return
			}
			replyJSON(map[string]any{"id_token": "fresh", "refresh_token": "r2", "expires_in": "3600"})(w, r)
		})
		cache := filepath.Join(t.TempDir(), "session.json")
		writeCache(t, cache)
		p := newTestProvider(t, f, cache)

		require.NoError(t, p.Restore(context.Background()))
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		f := newFake(t)
		f.on("token", dropConnection)
		cache := filepath.Join(t.TempDir(), "session.json")
		writeCache(t, cache)
		p := newTestProvider(t, f, cache)

		err := p.Restore(context.Background())
		assert.Equal(t, identity.CodeNetworkRequestFailed, identity.CodeOf(err))
		assert.FileExists(t, cache, "a transient failure keeps the cached sign-in")
	})
}

// gate holds requests until it is opened.
type gate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// newGate must be called after newTestProvider so it opens before the
// provider is closed.
func newGate(t *testing.T) *gate {
	t.Helper()
	g := &gate{arrived: make(chan struct{}, 1), release: make(chan struct{})}
	t.Cleanup(g.open)
	return g
}

func (g *gate) hold(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case g.arrived <- struct{}{}:
		default:
		}
		<-g.release
		next(w, r)
	}
}

func (g *gate) waitArrived(t *testing.T) {
	t.Helper()
	select {
	case <-g.arrived:
	case <-time.After(3 * time.Second):
		t.Fatal("request never reached the server")
	}
}

func (g *gate) open() { g.once.Do(func() { close(g.release) }) }

func currentUser(p *Provider) *identity.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	u := p.current.user
	return &u
}

type recorder struct {
	mu    sync.Mutex
	users []*identity.User
}

func (r *recorder) record(u *identity.User) {
	r.mu.Lock()
	r.users = append(r.users, u)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func TestRestore_SupersededByExplicitChange(t *testing.T) {
	restoredReply := replyJSON(map[string]any{
		"id_token": "stale", "refresh_token": "stale-refresh", "expires_in": "3600", "user_id": "u1",
	})

	t.Run("sign in wins", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", replyJSON(authReply("u2", "b@c.com", "", "tok2", "3600")))
		cache := filepath.Join(t.TempDir(), "session.json")
		writeCache(t, cache)
		p := newTestProvider(t, f, cache)
		g := newGate(t)
		f.on("token", g.hold(restoredReply))

		var rec recorder
		p.OnSessionChanged(rec.record)

		done := make(chan error, 1)
		go func() { done <- p.Restore(context.Background()) }()
		g.waitArrived(t)

		user, err := p.SignIn(context.Background(), "b@c.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "u2", user.UID)

		g.open()
		require.NoError(t, <-done)

		assert.Zero(t, rec.count(), "a superseded restore must not be announced")
		current := currentUser(p)
		require.NotNil(t, current)
		assert.Equal(t, "u2", current.UID)

		cached, err := loadCache(cache)
		require.NoError(t, err)
		assert.Equal(t, "u2", cached.UID)
		assert.Equal(t, "refresh-tok2", cached.RefreshToken)
	})

	t.Run("sign out wins", func(t *testing.T) {
		f := newFake(t)
		cache := filepath.Join(t.TempDir(), "session.json")
		writeCache(t, cache)
		p := newTestProvider(t, f, cache)
		g := newGate(t)
		f.on("token", g.hold(restoredReply))

		var rec recorder
		p.OnSessionChanged(rec.record)

		done := make(chan error, 1)
		go func() { done <- p.Restore(context.Background()) }()
		g.waitArrived(t)

		require.NoError(t, p.SignOut(context.Background()))
		g.open()
		require.NoError(t, <-done)

		assert.Zero(t, rec.count())
		assert.Nil(t, currentUser(p))
		assert.NoFileExists(t, cache)
	})

	t.Run("rejection after sign in keeps the new cache", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", replyJSON(authReply("u2", "b@c.com", "", "tok2", "3600")))
		cache := filepath.Join(t.TempDir(), "session.json")
		writeCache(t, cache)
		p := newTestProvider(t, f, cache)
		g := newGate(t)
		f.on("token", g.hold(replyError(http.StatusBadRequest, "TOKEN_EXPIRED")))

		done := make(chan error, 1)
		go func() { done <- p.Restore(context.Background()) }()
		g.waitArrived(t)

		_, err := p.SignIn(context.Background(), "b@c.com", "pw")
		require.NoError(t, err)
		g.open()
		require.NoError(t, <-done)

		cached, err := loadCache(cache)
		require.NoError(t, err)
		assert.Equal(t, "u2", cached.UID)
	})
}

func TestBackgroundRefresh(t *testing.T) {
	t.Run("renews the token", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", replyJSON(authReply("u1", "a@b.com", "", "tok1", "1")))
		f.on("token", replyJSON(map[string]any{"id_token": "tok2", "refresh_token": "r2", "expires_in": "3600"}))
		p := newTestProvider(t, f, "")

		changes := make(chan *identity.User, 4)
		p.OnSessionChanged(func(u *identity.User) { changes <- u })

		_, err := p.SignIn(context.Background(), "a@b.com", "pw")
		require.NoError(t, err)

		select {
		case u := <-changes:
			require.NotNil(t, u)
			assert.Equal(t, "tok2", u.Token)
		case <-time.After(3 * time.Second):
			t.Fatal("expected refresh")
		}
	})

	t.Run("revocation signs out", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", replyJSON(authReply("u1", "a@b.com", "", "tok1", "1")))
		f.on("token", replyError(http.StatusBadRequest, "USER_DISABLED"))
		p := newTestProvider(t, f, "")

		changes := make(chan *identity.User, 4)
		p.OnSessionChanged(func(u *identity.User) { changes <- u })

		_, err := p.SignIn(context.Background(), "a@b.com", "pw")
		require.NoError(t, err)

		select {
		case u := <-changes:
			assert.Nil(t, u)
		case <-time.After(3 * time.Second):
			t.Fatal("expected sign-out notification")
		}
	})
	t.Run("refresh of a replaced sign-in is dropped", func(t *testing.T) {
		f := newFake(t)
		f.on("signInWithPassword", replyJSON(authReply("u1", "a@b.com", "", "tok1", "1")))
		p := newTestProvider(t, f, "")
		g := newGate(t)
		f.on("token", g.hold(replyJSON(map[string]any{"id_token": "late", "expires_in": "3600"})))

		var rec recorder
		p.OnSessionChanged(rec.record)

		_, err := p.SignIn(context.Background(), "a@b.com", "pw")
		require.NoError(t, err)
		g.waitArrived(t)

		f.on("signInWithPassword", replyJSON(authReply("u2", "b@c.com", "", "tok2", "3600")))
		_, err = p.SignIn(context.Background(), "b@c.com", "pw")
		require.NoError(t, err)
		g.open()

		assert.Never(t, func() bool { return rec.count() > 0 }, 300*time.Millisecond, 10*time.Millisecond)
		current := currentUser(p)
		require.NotNil(t, current)
		assert.Equal(t, "tok2", current.Token)
	})
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, identity.CodeWeakPassword, codeFor("WEAK_PASSWORD : too short"))
	assert.Equal(t, identity.Code("quota-exceeded"), codeFor("QUOTA_EXCEEDED"))
}

func TestRefreshDelay(t *testing.T) {
	assert.Equal(t, 55*time.Minute, refreshDelay(time.Hour))
	assert.Equal(t, 500*time.Millisecond, refreshDelay(time.Second))
}
