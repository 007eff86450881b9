// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdd64(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		err  error
	}{
		{name: "normal addition", a: 10, b: 20, want: 30},
		{name: "zero addition", a: 0, b: 0, want: 0},
		{name: "max value", a: math.MaxUint64 - 1, b: 1, want: math.MaxUint64},
		{name: "overflow", a: math.MaxUint64, b: 1, err: ErrOverflow},
		{name: "overflow both large", a: math.MaxUint64 - 10, b: 20, err: ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add64(tt.a, tt.b)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSub64(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		err  error
	}{
		{name: "normal subtraction", a: 30, b: 20, want: 10},
		{name: "zero subtraction", a: 10, b: 0, want: 10},
		{name: "equal values", a: 100, b: 100, want: 0},
		{name: "underflow", a: 10, b: 20, err: ErrUnderflow},
		{name: "underflow from zero", a: 0, b: 1, err: ErrUnderflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sub64(tt.a, tt.b)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMul64(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		err  error
	}{
		{name: "normal multiplication", a: 10, b: 20, want: 200},
		{name: "multiply by zero", a: 100, b: 0, want: 0},
		{name: "multiply by one", a: 100, b: 1, want: 100},
		{name: "max safe multiplication", a: math.MaxUint64 / 2, b: 2, want: math.MaxUint64 - 1},
		{name: "overflow", a: math.MaxUint64, b: 2, err: ErrOverflow},
		{name: "overflow large values", a: math.MaxUint64 / 2, b: 3, err: ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Mul64(tt.a, tt.b)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
		})
	}
}
