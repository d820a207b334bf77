// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package console is the line-oriented terminal front end. It reads one
// command per line, applies it to the mounted screen and renders the result.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/router"
	"github.com/plaide/plaide/internal/screen"
)

// Console drives a router from text input.
type Console struct {
	router *router.Router
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	changed  chan struct{}
	quitting bool
}

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Console reading commands from in and writing to out.
func New(r *router.Router, in io.Reader, out io.Writer, opts ...Option) (*Console, error) {
	if r == nil {
		return nil, oops.Errorf("router is required")
	}
	if in == nil || out == nil {
		return nil, oops.Errorf("input and output are required")
	}
	c := &Console{
		router:  r,
		in:      in,
		out:     out,
		logger:  slog.New(slog.DiscardHandler),
		changed: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run processes input until quit, end of input or ctx is cancelled.
// Screens changed by session transitions outside a command are re-rendered
// as they happen.
func (c *Console) Run(ctx context.Context) error {
	unsubscribe := c.router.OnChange(func(string, screen.Screen) {
		select {
		case c.changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if _, cur := c.router.Current(); cur == nil {
		c.router.Navigate(screen.PathWelcome, "")
	}
	c.drainChanged()
	c.render()

	done := make(chan struct{})
	defer close(done)
	lineCh := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(c.in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lineCh <- strings.TrimRight(line, "\r\n"):
				case <-done:
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errCh:
			if !errors.Is(err, io.EOF) {
				return oops.Code("CONSOLE_READ_FAILED").Wrap(err)
			}
			return nil

		case line := <-lineCh:
			c.processLine(ctx, line)
			if c.quitting {
				return nil
			}
			c.drainChanged()
			c.render()

		case <-c.changed:
			c.render()
		}
	}
}

func (c *Console) drainChanged() {
	select {
	case <-c.changed:
	default:
	}
}

func (c *Console) send(format string, args ...any) {
	if _, err := fmt.Fprintf(c.out, format+"\n", args...); err != nil {
		c.logger.Debug("console write failed", "error", err)
	}
}
