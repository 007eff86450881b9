// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package crusherr defines the stable error kinds surfaced by every
// public operation in this module and a breadcrumb-carrying wrapper so
// callers can match on kind with errors.Is while still getting a
// human-readable trail of where in the input the failure occurred.
package crusherr

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Kind sentinels. Wrap one of these with Wrap/Wrapf; callers match with
// errors.Is(err, crusherr.InvalidInput) etc.
var (
	// InvalidInput covers malformed records, wrong value types, unknown
	// keys, and negative counts.
	InvalidInput = errors.New("invalid input")
	// NotFound covers an unresolved rule, device, bucket, or type name.
	NotFound = errors.New("not found")
	// InvariantViolation covers duplicate ids, weight mismatches, and
	// unmet finalization prerequisites.
	InvariantViolation = errors.New("invariant violation")
	// NotAllowed covers a construct that requires backward_compatibility.
	NotAllowed = errors.New("not allowed")
	// Unmappable covers a map() call that could not place any device.
	Unmappable = errors.New("unmappable")
	// Corrupt covers binary decode failure, truncation, and bad feature bits.
	Corrupt = errors.New("corrupt")
)

// trailed wraps a sentinel kind with a breadcrumb trail and an optional
// underlying cause.
type trailed struct {
	kind  error
	trail []string
	cause error
}

func (e *trailed) Error() string {
	var sb strings.Builder
	sb.WriteString(e.kind.Error())
	if len(e.trail) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.trail, "."))
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *trailed) Unwrap() error { return e.kind }

// Wrap attaches a breadcrumb trail segment to kind, producing an error
// that still satisfies errors.Is(err, kind).
func Wrap(kind error, trail ...string) error {
	return &trailed{kind: kind, trail: trail}
}

// Wrapf is Wrap with a formatted final breadcrumb segment appended.
func Wrapf(kind error, format string, args ...interface{}) error {
	return &trailed{kind: kind, trail: []string{fmt.Sprintf(format, args...)}}
}

// WrapCause attaches kind and a breadcrumb trail to an underlying error,
// e.g. a json.Unmarshal failure surfaced as InvalidInput.
func WrapCause(kind error, cause error, trail ...string) error {
	return &trailed{kind: kind, trail: trail, cause: cause}
}

// Prepend returns a copy of err with an additional leading breadcrumb
// segment, used as parse functions unwind back up the input tree.
func Prepend(err error, segment string) error {
	var t *trailed
	if errors.As(err, &t) {
		trail := append([]string{segment}, t.trail...)
		return &trailed{kind: t.kind, trail: trail, cause: t.cause}
	}
	return Wrap(InvalidInput, segment).(*trailed).withCause(err)
}

func (e *trailed) withCause(cause error) *trailed {
	e.cause = cause
	return e
}

// Errs accumulates multiple errors during a validation pass (Map.Validate)
// so the caller can report everything wrong with a map at once, rather
// than stopping at the first validation failure.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

// Add records err, ignoring nil.
func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Errored reports whether any error has been recorded.
func (e *Errs) Errored() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs) > 0
}

// Len returns the number of recorded errors.
func (e *Errs) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

// Err collapses the accumulated errors into one, or nil if none were
// recorded.
func (e *Errs) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d errors occurred:", len(e.errs))
		for _, err := range e.errs {
			sb.WriteString("\n\t* ")
			sb.WriteString(err.Error())
		}
		return &trailed{kind: InvalidInput, trail: []string{sb.String()}}
	}
}
