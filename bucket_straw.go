// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import (
	"math"

	"github.com/ceph/go-crush/hash"
)

// computeStraws derives the straw scalar for every entry in weights.
// calcVersion 1 (the default) is the more accurate scaler: sorting
// children by weight ascending and folding each one's weight into a
// running multiplicative factor so that, in aggregate, each child's
// probability of producing the largest draw converges to its weight
// share. calcVersion 0 is the legacy, less accurate variant — straw
// proportional to raw weight with no cross-child correction — and is
// only reachable through the loader when backward_compatibility is set.
func computeStraws(weights []uint32, calcVersion int) []uint32 {
	n := len(weights)
	straws := make([]uint32, n)
	if n == 0 {
		return straws
	}
	if calcVersion == 0 {
		copy(straws, weights)
		return straws
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Sort ascending by weight; stable so equal weights keep input order,
	// which keeps Reweight's output change minimal for unrelated children.
	for i := 1; i < n; i++ {
		for j := i; j > 0 && weights[order[j-1]] > weights[order[j]]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}

	scale := 1.0
	for rank, idx := range order {
		w := weights[idx]
		if w == 0 {
			straws[idx] = 0
			continue
		}
		remaining := n - rank
		straws[idx] = uint32(scale * float64(w))
		if remaining > 1 {
			if next := nextNonZeroWeight(weights, order, rank); next > 0 {
				scale *= math.Pow(float64(w)/float64(next), 1.0/float64(remaining-1))
			}
		}
	}
	return straws
}

func nextNonZeroWeight(weights []uint32, order []int, fromRank int) uint32 {
	for i := fromRank + 1; i < len(order); i++ {
		if w := weights[order[i]]; w != 0 {
			return w
		}
	}
	return 0
}

// rebuildStraw populates the bucket's own straw table from its base
// weights.
func (b *Bucket) rebuildStraw(calcVersion int) error {
	b.straws = computeStraws(b.ChildWeights, calcVersion)
	return nil
}

// chooseStraw picks argmax_i( hash3(x, childHashID[i], r) * straws[i] ),
// breaking ties by the smaller child index. Zero-weight (and so
// zero-straw) children never win since their draw is forced to 0.
// When ov carries a weight override for this
// position, the straw table is recomputed on the fly from the
// effective weights rather than consulting the bucket's own table,
// since straw values are not a simple per-child function of weight —
// the whole sorted order can shift.
func (b *Bucket) chooseStraw(x int32, r int, ov *ChooseArg) int32 {
	straws := b.straws
	if ov != nil && ov.hasWeightOverride() {
		effective := make([]uint32, len(b.Children))
		for i := range b.Children {
			effective[i] = b.ChildWeight(i, r, ov)
		}
		straws = computeStraws(effective, 1)
	}

	var bestDraw uint64
	bestIdx := -1
	for i := range b.Children {
		straw := uint64(straws[i])
		if straw == 0 {
			continue
		}
		childHashID := uint32(b.ChildHashID(i, ov))
		draw := uint64(hash.H3(uint32(x), childHashID, uint32(r))) * straw
		if bestIdx == -1 || draw > bestDraw {
			bestDraw = draw
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return ItemNone
	}
	return b.Children[bestIdx]
}
