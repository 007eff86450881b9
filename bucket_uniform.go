// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import "github.com/ceph/go-crush/hash"

// rebuildUniform records the (shared) per-child weight and picks a
// fixed odd "step" prime, coprime with the child count, so that
// (offset + r*step) mod n sweeps every child exactly once as r ranges
// over [0, n). Uniform requires equal weights (enforced by the loader),
// so the weight itself carries no information about which child a
// given r should land on — only the fixed per-bucket step does.
func (b *Bucket) rebuildUniform() {
	if len(b.ChildWeights) > 0 {
		b.itemWeight = b.ChildWeights[0]
	}
	b.primeStep = coprimeStep(uint32(len(b.Children)))
}

// coprimeStep returns the largest odd prime below n that is coprime
// with n, falling back to 1: multiplying a running index by this step
// and reducing mod n visits every residue exactly once.
func coprimeStep(n uint32) uint32 {
	if n < 3 {
		return 1
	}
	for p := n - 1; p > 0; p-- {
		if p%2 == 0 {
			continue
		}
		composite := false
		for d := uint32(3); d*d <= p; d += 2 {
			if p%d == 0 {
				composite = true
				break
			}
		}
		if composite {
			continue
		}
		if gcd(p, n) == 1 {
			return p
		}
	}
	return 1
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (b *Bucket) chooseUniform(x int32, r int) int32 {
	if b.itemWeight == 0 {
		return ItemNone
	}
	n := uint32(len(b.Children))
	offset := hash.H2(uint32(x), uint32(b.ID))
	idx := (uint64(offset) + uint64(r)*uint64(b.primeStep)) % uint64(n)
	return b.Children[idx]
}
