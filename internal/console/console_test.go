// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package console_test

import (
	"bytes"
	"context"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/plaide/plaide/internal/console"
	"github.com/plaide/plaide/internal/credentials"
	"github.com/plaide/plaide/internal/gateway"
	"github.com/plaide/plaide/internal/identity/local"
	"github.com/plaide/plaide/internal/router"
	"github.com/plaide/plaide/internal/screen"
	"github.com/plaide/plaide/internal/session"
)

var fastHash = local.Argon2Params{Time: 1, Memory: 64, Threads: 1, SaltLen: 16, KeyLen: 32}

// captureMailer keeps the last reset token per address.
type captureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[email] = token
	return nil
}

func (m *captureMailer) token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type harness struct {
	provider *local.Provider
	mailer   *captureMailer
	store    *session.Store
	gateway  *gateway.Gateway
	router   *router.Router
}

func newHarness() *harness {
	h := &harness{mailer: &captureMailer{tokens: map[string]string{}}}
	h.provider = local.NewMemory(
		local.WithHasher(local.NewArgon2idHasherWithParams(fastHash)),
		local.WithMailer(h.mailer),
	)

	store, writer := session.NewStore()
	h.store = store

	var err error
	h.gateway, err = gateway.New(h.provider, writer)
	Expect(err).NotTo(HaveOccurred())
	h.router, err = router.New(store)
	Expect(err).NotTo(HaveOccurred())
	Expect(h.router.HandleScreens(screen.Deps{Auth: h.gateway, Session: store})).To(Succeed())

	DeferCleanup(func() {
		h.router.Close()
		h.gateway.Close()
		Expect(h.provider.Close()).To(Succeed())
	})
	return h
}

// run feeds lines to a fresh console and returns everything it printed.
func (h *harness) run(lines ...string) string {
	var out bytes.Buffer
	c, err := console.New(h.router, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	Expect(err).NotTo(HaveOccurred())
	Expect(c.Run(context.Background())).To(Succeed())
	return out.String()
}

func (h *harness) seedAccount(email, password string) {
	ctx := context.Background()
	_, err := h.provider.CreateAccount(ctx, email, password, credentials.DisplayNameFromEmail(email))
	Expect(err).NotTo(HaveOccurred())
	Expect(h.provider.SignOut(ctx)).To(Succeed())
}

func (h *harness) path() string {
	p, _ := h.router.Current()
	return p
}

var _ = Describe("Console", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	It("rejects construction without a router", func() {
		_, err := console.New(nil, strings.NewReader(""), &bytes.Buffer{})
		Expect(err).To(HaveOccurred())
	})

	It("starts on the welcome screen", func() {
		out := h.run("quit")
		Expect(out).To(ContainSubstring("Welcome to plaide"))
		Expect(out).To(ContainSubstring("Quick Recipes"))
		Expect(out).To(ContainSubstring("Goodbye."))
	})

	Describe("signing up and in", func() {
		It("walks from signup through home and back out", func() {
			out := h.run(
				"signup",
				"email new@example.com",
				"password Secret1!",
				"confirm Secret1!",
				"submit",
			)
			Expect(out).To(ContainSubstring("[x] One special character"))
			Expect(out).To(ContainSubstring(screen.MsgAccountCreated))
			Expect(h.path()).To(Equal(screen.PathLogin))

			out = h.run(
				"email new@example.com",
				"password Secret1!",
				"submit",
			)
			Expect(out).To(ContainSubstring("Welcome, new!"))
			Expect(out).To(ContainSubstring("Signed in as new@example.com"))
			Expect(h.path()).To(Equal(screen.PathHome))

			out = h.run("logout")
			Expect(out).To(ContainSubstring("Welcome to plaide"))
			Expect(h.path()).To(Equal(screen.PathWelcome))
			Expect(h.store.Current().IsAuthenticated()).To(BeFalse())
		})

		It("masks passwords until shown", func() {
			out := h.run("login", "password Secret1!")
			Expect(out).To(ContainSubstring("********"))
			Expect(out).NotTo(ContainSubstring("Secret1!"))

			out = h.run("show")
			Expect(out).To(ContainSubstring("Secret1!"))
		})

		It("enforces the password policy before contacting the provider", func() {
			out := h.run(
				"signup",
				"email new@example.com",
				"password abc12345",
				"confirm abc12345",
				"submit",
			)
			Expect(out).To(ContainSubstring(credentials.MsgPasswordPolicy))
			Expect(h.path()).To(Equal(screen.PathSignup))

			_, err := h.provider.SignIn(context.Background(), "new@example.com", "abc12345")
			Expect(err).To(HaveOccurred(), "no account was created")
		})

		It("reports a taken email", func() {
			h.seedAccount("taken@example.com", "Secret1!")
			out := h.run(
				"signup",
				"email taken@example.com",
				"password Secret1!",
				"confirm Secret1!",
				"submit",
			)
			Expect(out).To(ContainSubstring(gateway.MsgEmailAlreadyInUse))
		})
	})

	Describe("login failures", func() {
		BeforeEach(func() {
			h.seedAccount("ada@example.com", "Secret1!")
		})

		It("requires a password", func() {
			out := h.run("login", "email ada@example.com", "submit")
			Expect(out).To(ContainSubstring(credentials.MsgPasswordRequired))
		})

		It("maps a wrong password to a friendly message", func() {
			out := h.run("login", "email ada@example.com", "password nope", "submit")
			Expect(out).To(ContainSubstring(gateway.MsgWrongPassword))
			Expect(out).NotTo(ContainSubstring("wrong-password"))
			Expect(h.store.Current().IsAuthenticated()).To(BeFalse())
		})

		It("maps an unknown account", func() {
			out := h.run("login", "email ghost@example.com", "password Secret1!", "submit")
			Expect(out).To(ContainSubstring(gateway.MsgUserNotFound))
		})

		It("keeps spaces around a password", func() {
			h.seedAccount("pad@example.com", " Secret1! ")

			out := h.run("login", "email pad@example.com", "password Secret1!", "submit")
			Expect(out).To(ContainSubstring(gateway.MsgWrongPassword))

			h.run("login", "  email   pad@example.com ", "password  Secret1! \r", "submit")
			Expect(h.path()).To(Equal(screen.PathHome))
		})
	})

	Describe("password reset", func() {
		It("sends a reset email and accepts the new password", func() {
			h.seedAccount("ada@example.com", "Secret1!")

			out := h.run("login", "email ada@example.com", "forgot")
			Expect(out).To(ContainSubstring(screen.MsgPasswordResetSent))

			token := h.mailer.token("ada@example.com")
			Expect(token).NotTo(BeEmpty())
			Expect(h.provider.ConfirmPasswordReset(context.Background(), token, "Fresh2@pass")).To(Succeed())

			out = h.run("password Fresh2@pass", "submit")
			Expect(out).To(ContainSubstring("Welcome, ada!"))
		})

		It("requires an email first", func() {
			out := h.run("login", "forgot")
			Expect(out).To(ContainSubstring(credentials.MsgResetEmailRequired))
		})
	})

	Describe("guards", func() {
		It("sends unauthenticated visitors of home to login", func() {
			h.run("go /home")
			Expect(h.path()).To(Equal(screen.PathLogin))
		})

		It("sends unknown paths to welcome", func() {
			h.run("login", "go /nowhere")
			Expect(h.path()).To(Equal(screen.PathWelcome))
		})

		It("leaves home when the session ends elsewhere", func() {
			h.seedAccount("ada@example.com", "Secret1!")
			h.run("login", "email ada@example.com", "password Secret1!", "submit")
			Expect(h.path()).To(Equal(screen.PathHome))

			Expect(h.gateway.Logout(context.Background())).To(Succeed())
			Expect(h.path()).To(Equal(screen.PathLogin))
		})
	})

	It("explains unknown commands and lists help per screen", func() {
		out := h.run("dance", "help")
		Expect(out).To(ContainSubstring("Unknown command: dance"))
		Expect(out).To(ContainSubstring("create an account"))
		Expect(out).To(ContainSubstring("quit"))
	})
})
