// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	require.Equal(t, H1(42), H1(42))
	require.Equal(t, H2(1, 2), H2(1, 2))
	require.Equal(t, H3(1, 2, 3), H3(1, 2, 3))
	require.Equal(t, H4(1, 2, 3, 4), H4(1, 2, 3, 4))
	require.Equal(t, H5(1, 2, 3, 4, 5), H5(1, 2, 3, 4, 5))
}

func TestArgumentOrderMatters(t *testing.T) {
	require.NotEqual(t, H2(1, 2), H2(2, 1))
	require.NotEqual(t, H3(1, 2, 3), H3(3, 2, 1))
	require.NotEqual(t, H4(1, 2, 3, 4), H4(4, 3, 2, 1))
}

func TestDistinctInputsUsuallyDiffer(t *testing.T) {
	seen := make(map[uint32]bool, 1000)
	collisions := 0
	for i := uint32(0); i < 1000; i++ {
		v := H1(i)
		if seen[v] {
			collisions++
		}
		seen[v] = true
	}
	require.Less(t, collisions, 5, "H1 should rarely collide over a small dense input range")
}

func TestH5FifthArgumentMovesOutput(t *testing.T) {
	// H5 is documented as a straightforward extension of H4; changing
	// the fifth argument alone should still move the output.
	a := H5(1, 2, 3, 4, 5)
	b := H5(1, 2, 3, 4, 6)
	require.NotEqual(t, a, b)
}
