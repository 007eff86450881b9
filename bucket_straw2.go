// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import (
	"math"
	"sync"

	"github.com/ceph/go-crush/hash"
)

// straw2 needs no precomputed per-bucket table: every draw is derived
// from a fresh 16-bit hash and a fixed-point natural-log lookup, so
// adding or removing a sibling never perturbs another child's draw.
// The log table itself is shared process-wide and built once.

const straw2LogScale = 1 << 32

var (
	straw2LogTableOnce sync.Once
	straw2LogTable     [1 << 16]int64
)

// buildStraw2LogTable fills in ln(u/65536) for u in [1, 65535], scaled
// by 2^32 and rounded to the nearest integer, using Go's math.Log. Go's
// math package is a pure, platform-independent implementation (unlike
// libm, which can differ by ulps across C runtimes), so computing this
// table once, on first use, keeps straw2's choose-time arithmetic
// entirely integer while still being reproducible across builds and
// platforms.
func buildStraw2LogTable() {
	for u := 1; u < 1<<16; u++ {
		v := math.Log(float64(u) / 65536.0)
		straw2LogTable[u] = int64(math.Round(v * straw2LogScale))
	}
	// u=0 never occurs (chooseStraw2 forces the low bit on) but is left
	// zeroed rather than -Inf so an accidental lookup can't panic math.
}

func straw2Ln(u uint16) int64 {
	straw2LogTableOnce.Do(buildStraw2LogTable)
	return straw2LogTable[u]
}

// chooseStraw2 picks argmax_i( ln(u_i/65536) / weight[i] ), where u_i is
// a 16-bit hash with its low bit forced on (so never zero). The
// logarithm is negative and the weight positive, so a larger (less negative)
// ratio means a larger share of the available draw went to a heavier
// child; ties fall to the smaller child index. Zero-weight children are
// skipped outright.
func (b *Bucket) chooseStraw2(x int32, r int, ov *ChooseArg) int32 {
	var bestDraw int64
	bestIdx := -1
	for i := range b.Children {
		w := b.ChildWeight(i, r, ov)
		if w == 0 {
			continue
		}
		childHashID := uint32(b.ChildHashID(i, ov))
		raw := hash.H3(uint32(x), childHashID, uint32(r))
		u := uint16(raw&0xFFFF) | 1
		ln := straw2Ln(u)
		draw := ln / int64(w)
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
