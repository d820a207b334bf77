// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package screen

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/plaide/plaide/internal/credentials"
	"github.com/plaide/plaide/internal/gateway"
)

// FormView is a snapshot of a form for rendering.
type FormView struct {
	Values     map[string]string
	Errors     credentials.FieldErrors
	General    string
	Phase      Phase
	Submitting bool
}

// Value returns the value of field.
func (v FormView) Value(field string) string {
	return v.Values[field]
}

// form is the per-mount state of a form screen.
type form struct {
	submitting atomic.Bool

	mu      sync.Mutex
	values  map[string]string
	errors  credentials.FieldErrors
	general string
	phase   Phase
}

func newForm() *form {
	return &form{
		values: make(map[string]string),
		errors: credentials.FieldErrors{},
	}
}

// set stores a field value. Editing after an error returns to Idle.
func (f *form) set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[field] = value
	if f.phase == PhaseError {
		f.phase = PhaseIdle
	}
}

func (f *form) value(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

func (f *form) snapshotValues() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.values)
}

func (f *form) setPhase(p Phase) {
	f.mu.Lock()
	f.phase = p
	f.mu.Unlock()
}

// reject records local validation errors.
func (f *form) reject(errs credentials.FieldErrors) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = errs
	f.general = ""
	f.phase = PhaseError
}

// fail records a gateway failure as a banner.
func (f *form) fail(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = credentials.FieldErrors{}
	f.general = message
	f.phase = PhaseError
}

func (f *form) view() FormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormView{
		Values:     maps.Clone(f.values),
		Errors:     maps.Clone(f.errors),
		General:    f.general,
		Phase:      f.phase,
		Submitting: f.submitting.Load(),
	}
}

// submit runs one attempt: validate locally, then call the gateway.
// Field errors and the banner are cleared once validation passes.
func (f *form) submit(
	ctx context.Context,
	op gateway.Operation,
	validate func(values map[string]string) credentials.FieldErrors,
	call func(ctx context.Context, values map[string]string) error,
) Outcome {
	if !f.submitting.CompareAndSwap(false, true) {
		return OutcomeIgnored
	}
	defer f.submitting.Store(false)

	f.setPhase(PhaseValidating)
	values := f.snapshotValues()
	if errs := validate(values); !errs.OK() {
		f.reject(errs)
		return OutcomeInvalid
	}

	f.mu.Lock()
	f.errors = credentials.FieldErrors{}
	f.general = ""
	f.phase = PhaseSubmitting
	f.mu.Unlock()

	if err := call(ctx, values); err != nil {
		f.fail(gateway.Message(op, err))
		return OutcomeFailed
	}
	f.setPhase(PhaseSuccess)
	return OutcomeSucceeded
}
