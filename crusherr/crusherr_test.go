// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crusherr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapMatchesKind(t *testing.T) {
	err := Wrap(NotFound, "rule", "replicated")
	require.ErrorIs(t, err, NotFound)
	require.NotErrorIs(t, err, InvalidInput)
	require.Contains(t, err.Error(), "not found")
	require.Contains(t, err.Error(), "rule.replicated")
}

func TestWrapfFormats(t *testing.T) {
	err := Wrapf(InvariantViolation, "bucket %d: weight mismatch", -3)
	require.ErrorIs(t, err, InvariantViolation)
	require.Contains(t, err.Error(), "bucket -3: weight mismatch")
}

func TestWrapCauseChainsUnderlying(t *testing.T) {
	cause := errors.New("unexpected token")
	err := WrapCause(Corrupt, cause, "header")
	require.ErrorIs(t, err, Corrupt)
	require.Contains(t, err.Error(), "unexpected token")
}

func TestPrependAccumulatesBreadcrumbsInOrder(t *testing.T) {
	err := Wrapf(InvalidInput, "child 2")
	err = Prepend(err, "bucket 'rack1'")
	err = Prepend(err, "trees")

	require.ErrorIs(t, err, InvalidInput)
	require.Contains(t, err.Error(), "trees.bucket 'rack1'.child 2")
}

func TestPrependOnForeignErrorWrapsAsInvalidInput(t *testing.T) {
	foreign := errors.New("boom")
	err := Prepend(foreign, "types[0]")
	require.ErrorIs(t, err, InvalidInput)
	require.Contains(t, err.Error(), "boom")
}

func TestErrsCollapsesMultiple(t *testing.T) {
	var e Errs
	require.False(t, e.Errored())
	require.NoError(t, e.Err())

	e.Add(nil)
	require.False(t, e.Errored())

	e.Add(Wrap(InvalidInput, "a"))
	require.True(t, e.Errored())
	require.Equal(t, 1, e.Len())
	require.ErrorIs(t, e.Err(), InvalidInput)

	e.Add(Wrap(NotFound, "b"))
	require.Equal(t, 2, e.Len())
	require.Contains(t, e.Err().Error(), "2 errors occurred")
}
