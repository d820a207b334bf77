// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package identitytest provides test doubles for identity providers.
package identitytest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/plaide/plaide/internal/identity"
)

// MockProvider is a testify mock of identity.Provider.
// OnSessionChanged is not mocked: listeners are recorded and fired with Emit.
type MockProvider struct {
	mock.Mock

	mu        sync.Mutex
	listeners map[int]identity.SessionListener
	nextID    int
}

// NewMockProvider creates a MockProvider whose expectations are asserted
// when the test ends.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockProvider {
	m := &MockProvider{listeners: make(map[int]identity.SessionListener)}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SignIn implements identity.Provider.
func (m *MockProvider) SignIn(ctx context.Context, email, password string) (*identity.User, error) {
	ret := m.Called(ctx, email, password)
	var user *identity.User
	if u, ok := ret.Get(0).(*identity.User); ok {
		user = u
	}
	return user, ret.Error(1)
}

// CreateAccount implements identity.Provider.
func (m *MockProvider) CreateAccount(ctx context.Context, email, password, displayName string) (*identity.User, error) {
	ret := m.Called(ctx, email, password, displayName)
	var user *identity.User
	if u, ok := ret.Get(0).(*identity.User); ok {
		user = u
	}
	return user, ret.Error(1)
}

// SignOut implements identity.Provider.
func (m *MockProvider) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// SendPasswordReset implements identity.Provider.
func (m *MockProvider) SendPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

// OnSessionChanged implements identity.Provider.
func (m *MockProvider) OnSessionChanged(fn identity.SessionListener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Emit delivers a provider-initiated session change to every listener.
func (m *MockProvider) Emit(user *identity.User) {
	m.mu.Lock()
	fns := make([]identity.SessionListener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// Listeners returns the number of registered session listeners.
func (m *MockProvider) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// User returns a provider user for email with a fixed token.
func User(email, displayName string) *identity.User {
	return &identity.User{
		UID:         "uid-" + email,
		Email:       email,
		DisplayName: displayName,
		Token:       "token-" + email,
	}
}
