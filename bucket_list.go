// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import "github.com/ceph/go-crush/hash"

// rebuildList computes the exclusive prefix sum cumWeights[i] = sum of
// ChildWeights[j] for j < i, so that cumWeights[i]+ChildWeights[i] is
// the total weight of children [0, i] inclusive — the modulus
// chooseList reduces against when it considers position i.
func (b *Bucket) rebuildList() {
	b.cumWeights = make([]uint32, len(b.ChildWeights))
	var running uint64
	for i, w := range b.ChildWeights {
		b.cumWeights[i] = uint32(running)
		running += uint64(w)
	}
}

// chooseList walks children from last to first. At each position it
// draws against the total weight of everything from 0..i inclusive; a
// draw landing inside child i's own slice returns it, otherwise the
// draw is re-tried one position further down (child i is effectively
// excluded from the pool for the rest of this walk). This is a
// sequential weighted elimination, not a single cumulative-sum lookup,
// which is what makes adding a new item at the head of the list perturb
// only that item's own selection share.
func (b *Bucket) chooseList(x int32, r int, ov *ChooseArg) int32 {
	for i := len(b.Children) - 1; i >= 0; i-- {
		w := b.ChildWeight(i, r, ov)
		if w == 0 {
			continue
		}
		total := uint64(b.cumWeights[i]) + uint64(w)
		if total == 0 {
			continue
		}
		childHashID := uint32(b.ChildHashID(i, ov))
		draw := hash.H4(uint32(x), childHashID, uint32(r), uint32(b.ID))
		if uint64(draw)%total < uint64(w) {
			return b.Children[i]
		}
	}
	// Reference fall-through: if every position was skipped without a
	// hit, return the first child rather than ItemNone.
	if len(b.Children) > 0 {
		return b.Children[0]
	}
	return ItemNone
}
