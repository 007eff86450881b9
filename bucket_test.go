// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newChildBucket(t *testing.T, alg Algorithm, weights ...uint32) *Bucket {
	t.Helper()
	b, err := NewBucket(-1, "b", 1, alg, HashRJenkins1)
	require.NoError(t, err)
	for i, w := range weights {
		b.AddChild(int32(i), w)
	}
	require.NoError(t, b.Rebuild(1))
	return b
}

func TestChooseZeroWeightChildNeverWins(t *testing.T) {
	for _, alg := range []Algorithm{AlgUniform, AlgList, AlgStraw, AlgStraw2} {
		t.Run(alg.String(), func(t *testing.T) {
			weights := []uint32{1 << 16, 0, 1 << 16}
			if alg == AlgUniform {
				// uniform requires equal weights, so a mixed zero and
				// non-zero weight vector does not apply to it.
				return
			}
			b := newChildBucket(t, alg, weights...)
			for x := int32(0); x < 200; x++ {
				got := b.Choose(x, 0, nil)
				require.NotEqual(t, int32(1), got)
			}
		})
	}
}

func TestChooseEmptyBucketReturnsItemNone(t *testing.T) {
	for _, alg := range []Algorithm{AlgUniform, AlgList, AlgStraw, AlgStraw2} {
		b := newChildBucket(t, alg)
		require.Equal(t, ItemNone, b.Choose(1, 0, nil))
	}
}

func TestChooseIsDeterministicAcrossAlgorithms(t *testing.T) {
	for _, alg := range []Algorithm{AlgUniform, AlgList, AlgStraw, AlgStraw2} {
		b := newChildBucket(t, alg, 1<<16, 1<<16, 1<<16)
		first := b.Choose(99, 3, nil)
		second := b.Choose(99, 3, nil)
		require.Equal(t, first, second)
	}
}

func TestChooseStraw2WeightProportionality(t *testing.T) {
	b := newChildBucket(t, AlgStraw2, 1<<16, 9<<16) // child 1 should win roughly 9x as often
	counts := map[int32]int{}
	const n = 4000
	for x := int32(0); x < n; x++ {
		counts[b.Choose(x, 0, nil)]++
	}
	require.Greater(t, counts[1], counts[0])
	ratio := float64(counts[1]) / float64(counts[0])
	require.InDelta(t, 9.0, ratio, 3.0)
}

func TestChooseUniformVisitsEveryChildAsRSweeps(t *testing.T) {
	b := newChildBucket(t, AlgUniform, 1<<16, 1<<16, 1<<16, 1<<16)
	seen := map[int32]bool{}
	for r := 0; r < 4; r++ {
		seen[b.Choose(7, r, nil)] = true
	}
	require.Len(t, seen, 4)
}

func TestChooseArgWeightOverrideChangesSelection(t *testing.T) {
	b := newChildBucket(t, AlgStraw2, 1<<16, 1<<16)
	ov := &ChooseArg{WeightSet: [][]uint32{{0, 1 << 16}}}
	for x := int32(0); x < 50; x++ {
		got := b.Choose(x, 0, ov)
		require.NotEqual(t, int32(0), got, "child 0 was zero-weighted by the override")
	}
}

func TestReweightToZeroExcludesChild(t *testing.T) {
	b := newChildBucket(t, AlgStraw2, 1<<16, 1<<16)
	require.NoError(t, b.Reweight(0, 0, 1))
	for x := int32(0); x < 50; x++ {
		require.NotEqual(t, int32(0), b.Choose(x, 0, nil))
	}
}
