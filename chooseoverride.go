// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

// ChooseArg is the low-level, per-bucket override consulted by
// Bucket.Choose: an optional vector of alternate positional ids (fed
// into the per-child hash instead of the real child id) and an optional
// set of alternate weight vectors, one per replica position. This is
// the mechanism half of the choose-args layer; the chooseargs package
// builds, validates and looks these up by bucket id.
type ChooseArg struct {
	// IDs[i], if non-nil, replaces the child id at position i for
	// hashing purposes only; the id actually returned by Choose is
	// always the bucket's real child id.
	IDs []int32

	// WeightSet[pos][i] is the effective weight of child i for replica
	// position pos. If WeightSet has exactly one row, that row is used
	// for every position.
	WeightSet [][]uint32
}

func (a *ChooseArg) id(i int) (int32, bool) {
	if a == nil || i >= len(a.IDs) {
		return 0, false
	}
	return a.IDs[i], true
}

func (a *ChooseArg) weightRow(pos int) []uint32 {
	if len(a.WeightSet) == 0 {
		return nil
	}
	if pos >= len(a.WeightSet) {
		pos = 0
	}
	return a.WeightSet[pos]
}

func (a *ChooseArg) weightAtPos(pos, i int) (uint32, bool) {
	row := a.weightRow(pos)
	if row == nil || i >= len(row) {
		return 0, false
	}
	return row[i], true
}

// hasWeightOverride reports whether a carries any weight_set at all.
func (a *ChooseArg) hasWeightOverride() bool {
	return a != nil && len(a.WeightSet) > 0
}
