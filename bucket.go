// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import (
	"fmt"

	xmath "github.com/ceph/go-crush/utils/math"
)

// Bucket is an internal tree node: a weighted, ordered set of children
// (each a device id >= 0 or a bucket id < 0) plus one of four selection
// algorithms. The four algorithms are modeled as a tagged variant: every
// Bucket carries the same envelope fields, and Alg selects which
// algorithm-specific table (straws, cumWeights, ...) is populated and
// which choose implementation runs.
type Bucket struct {
	ID   int32
	Name string
	Type int32
	Alg  Algorithm
	Hash HashAlgorithm

	Children     []int32  // device id (>=0) or bucket id (<0), parallel to ChildWeights
	ChildWeights []uint32 // 16.16 fixed-point, parallel to Children

	Weight          uint32 // sum of ChildWeights unless HasBucketWeight
	HasBucketWeight bool

	// uniform
	itemWeight uint32
	primeStep  uint32

	// list: cumWeights[i] = sum of ChildWeights[j] for j < i (exclusive
	// prefix sum); the choose-time modulus is cumWeights[i]+ChildWeights[i].
	cumWeights []uint32

	// straw
	straws []uint32
}

// NewBucket constructs an empty bucket. id must be negative; children
// are attached with AddChild before the bucket (or its owning Map) is
// finalized.
func NewBucket(id int32, name string, typ int32, alg Algorithm, hashAlg HashAlgorithm) (*Bucket, error) {
	if id >= 0 {
		return nil, fmt.Errorf("bucket id %d must be negative", id)
	}
	return &Bucket{
		ID:   id,
		Name: name,
		Type: typ,
		Alg:  alg,
		Hash: hashAlg,
	}, nil
}

// AddChild appends a child with the given 16.16 fixed-point weight.
// child is a device id (>=0) or another bucket's id (<0).
func (b *Bucket) AddChild(child int32, weight uint32) {
	b.Children = append(b.Children, child)
	b.ChildWeights = append(b.ChildWeights, weight)
}

// Size returns the number of direct children.
func (b *Bucket) Size() int {
	return len(b.Children)
}

// ChildWeight returns the effective 16.16 weight of the i'th child for
// replica position r, honoring an override if ov is non-nil and
// supplies one for (r, i).
func (b *Bucket) ChildWeight(i, r int, ov *ChooseArg) uint32 {
	if ov != nil {
		if w, ok := ov.weightAtPos(r, i); ok {
			return w
		}
	}
	return b.ChildWeights[i]
}

// ChildHashID returns the id fed into the per-child hash for position
// i: the real child id, unless ov supplies an alternate positional id.
func (b *Bucket) ChildHashID(i int, ov *ChooseArg) int32 {
	if ov != nil {
		if id, ok := ov.id(i); ok {
			return id
		}
	}
	return b.Children[i]
}

// Rebuild (re)computes the algorithm-specific auxiliary tables from
// ChildWeights and Weight. It must be called after any change to a
// bucket's children or weights, including the finalization pass and
// Reweight. calcVersion selects the straw1 table-building formula
// (tunables.StrawCalcVersion); it is ignored by the other algorithms.
func (b *Bucket) Rebuild(calcVersion int) error {
	if !b.HasBucketWeight {
		var sum uint64
		for _, w := range b.ChildWeights {
			var err error
			sum, err = xmath.Add64(sum, uint64(w))
			if err != nil {
				return fmt.Errorf("bucket %d: weight sum overflow: %w", b.ID, err)
			}
		}
		if sum > 0xFFFFFFFF {
			return fmt.Errorf("bucket %d: weight sum %d exceeds 32 bits", b.ID, sum)
		}
		b.Weight = uint32(sum)
	}

	switch b.Alg {
	case AlgUniform:
		b.rebuildUniform()
	case AlgList:
		b.rebuildList()
	case AlgStraw:
		return b.rebuildStraw(calcVersion)
	case AlgStraw2:
		// straw2 needs no precomputed table beyond the shared weight
		// array; draws are derived purely from the per-child hash and
		// the fixed-point log table (bucket_straw2.go).
	default:
		return fmt.Errorf("bucket %d: unknown algorithm %d", b.ID, b.Alg)
	}
	return nil
}

// Reweight updates the weight of the child at position i and rebuilds
// the bucket's tables, without touching any other child or the bucket's
// own HasBucketWeight override.
func (b *Bucket) Reweight(i int, weight uint32, calcVersion int) error {
	if i < 0 || i >= len(b.ChildWeights) {
		return fmt.Errorf("bucket %d: child index %d out of range", b.ID, i)
	}
	b.ChildWeights[i] = weight
	return b.Rebuild(calcVersion)
}

// Choose runs this bucket's selection algorithm for input x and replica
// position r, returning the chosen child's real id. An empty bucket
// returns ItemNone, as do uniform, straw and straw2 buckets with no
// non-zero-weight child; a list bucket in that case falls through to its
// first child. ov, if non-nil, substitutes alternate weights and/or
// positional hash ids for this bucket without mutating it; uniform
// buckets ignore ov.
func (b *Bucket) Choose(x int32, r int, ov *ChooseArg) int32 {
	if len(b.Children) == 0 {
		return ItemNone
	}
	switch b.Alg {
	case AlgUniform:
		return b.chooseUniform(x, r)
	case AlgList:
		return b.chooseList(x, r, ov)
	case AlgStraw:
		return b.chooseStraw(x, r, ov)
	case AlgStraw2:
		return b.chooseStraw2(x, r, ov)
	default:
		return ItemNone
	}
}
