// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine executes a rule's bytecode against a finalized Map: a
// small, synchronous, allocation-light virtual machine that walks the
// working stack through TAKE/CHOOSE/CHOOSELEAF/EMIT steps, retrying
// under the map's tunables until every replica position is filled or
// the retry budget for that position is exhausted.
package engine

import (
	"go.uber.org/zap"

	"github.com/ceph/go-crush"
	"github.com/ceph/go-crush/crusherr"
	"github.com/ceph/go-crush/utils/set"
)

// deviceType is the bucket-type value reserved for leaves. No bucket
// may declare this type; the loader enforces it.
const deviceType int32 = 0

// maxDescendDepth bounds a single CHOOSE's recursive walk so a
// malformed (cyclic) map cannot spin forever; the map model has no
// legitimate tree deeper than this.
const maxDescendDepth = 64

// Map executes rule by name against m for input x, filling
// replicaCount positions. deviceWeights, if non-nil, gives the
// effective weight of device d at deviceWeights[d]; a zero entry
// simulates that device being out of service without editing the
// tree. chooseArgs, if non-nil, overrides a bucket's weights and/or
// positional hash ids, keyed by bucket id, without mutating m.
//
// The returned slice never contains fewer than one real placement: an
// entirely unmappable request returns crusherr.Unmappable. Individual
// "none" entries (possible only after a CHOOSE_INDEP/CHOOSELEAF_INDEP
// step) are a successful, partial result, not an error.
func Map(m *crush.Map, ruleName string, x int32, replicaCount int, deviceWeights []uint32, chooseArgs map[int32]*crush.ChooseArg) ([]int32, error) {
	if !m.Finalized() {
		return nil, crusherr.Wrap(crusherr.InvariantViolation, "map is not finalized")
	}
	if replicaCount <= 0 {
		return nil, crusherr.Wrapf(crusherr.InvalidInput, "replica_count %d must be positive", replicaCount)
	}
	rule, ok := m.RuleByName(ruleName)
	if !ok {
		return nil, crusherr.Wrapf(crusherr.NotFound, "rule %q", ruleName)
	}

	s := &run{
		m:             m,
		tun:           m.Tunables,
		x:             x,
		deviceWeights: deviceWeights,
		chooseArgs:    chooseArgs,
		mergedArgs:    make(map[int32]*crush.ChooseArg),
	}

	var in, result []int32
	for i, step := range rule.Steps {
		switch step.Op {
		case crush.OpTake:
			if _, ok := m.Buckets[step.Root]; !ok {
				return nil, crusherr.Wrapf(crusherr.NotFound, "rule %q: step %d: TAKE root %d", ruleName, i, step.Root)
			}
			in = []int32{step.Root}
		case crush.OpChooseFirstN, crush.OpChooseIndep:
			in = s.runChoose(step, in, replicaCount, false)
		case crush.OpChooseLeafFirstN, crush.OpChooseLeafIndep:
			in = s.runChoose(step, in, replicaCount, true)
		case crush.OpEmit:
			result = append(result, in...)
			in = nil
		case crush.OpSetChooseTries:
			s.tun.ChooseTotalTries = step.Arg
		case crush.OpSetChooseLeafTries:
			s.tun.ChooseLocalTries = step.Arg
		case crush.OpSetChooseLocalTries:
			s.tun.ChooseLocalTries = step.Arg
		case crush.OpSetChooseLocalFallbackTries:
			s.tun.ChooseLocalFallbackTries = step.Arg
		case crush.OpSetChooseLeafVaryR:
			s.tun.ChooseleafVaryR = step.Arg
		case crush.OpSetChooseLeafStable:
			s.tun.ChooseleafStable = step.Arg
		default:
			return nil, crusherr.Wrapf(crusherr.InvariantViolation, "rule %q: step %d: unknown opcode", ruleName, i)
		}
	}

	if len(result) == 0 || countNone(result) == len(result) {
		m.Options.Logger.Warn("map: unmappable",
			zap.String("rule", ruleName), zap.Int32("x", x), zap.Int("replica_count", replicaCount))
		return nil, crusherr.Wrapf(crusherr.Unmappable, "rule %q produced no placements for x=%d", ruleName, x)
	}
	if none := countNone(result); none > 0 {
		m.Options.Logger.Warn("map: retry budget exhausted for some positions",
			zap.String("rule", ruleName), zap.Int32("x", x), zap.Int("none_count", none))
	}
	return result, nil
}

func countNone(result []int32) int {
	n := 0
	for _, id := range result {
		if id == crush.ItemNone {
			n++
		}
	}
	return n
}

// run holds the per-call mutable engine state: the effective tunables
// (a copy — SET_* steps never touch the map's own Tunables) and the
// merged choose-arg cache.
type run struct {
	m             *crush.Map
	tun           crush.Tunables
	x             int32
	deviceWeights []uint32
	chooseArgs    map[int32]*crush.ChooseArg
	mergedArgs    map[int32]*crush.ChooseArg
}

// runChoose executes one CHOOSE_FIRSTN/INDEP or CHOOSELEAF_FIRSTN/INDEP
// step. When len(in) is 0 or 1, the step fills `want` positions
// (num<=0 means replicaCount+num) directly under the sole root. When
// in already holds several items (the typical "choose hosts, then
// chooseleaf one device per host" shape), want is interpreted per
// existing item, and the final position of item j under existing
// entry i is i*want+j, keeping replica indices continuous across
// steps.
func (s *run) runChoose(step crush.Step, in []int32, replicaCount int, leaf bool) []int32 {
	firstn := step.Op == crush.OpChooseFirstN || step.Op == crush.OpChooseLeafFirstN
	want := int(step.Num)
	if want <= 0 {
		want = replicaCount + want
	}
	if want < 0 {
		want = 0
	}

	used := set.NewSet[int32](0)
	type slot struct {
		item int32
		ok   bool
	}
	var slots []slot

	pick := func(root *crush.Bucket, p int, targetType int32) (int32, bool) {
		if root == nil {
			return crush.ItemNone, false
		}
		if leaf {
			return s.chooseLeaf(root, p, targetType, used)
		}
		return s.choose(root, p, targetType, used)
	}

	if len(in) <= 1 {
		var root *crush.Bucket
		if len(in) == 1 {
			root = s.m.Buckets[in[0]]
		}
		for p := 0; p < want; p++ {
			item, ok := pick(root, p, step.Type)
			if ok {
				used.Add(item)
			}
			slots = append(slots, slot{item, ok})
		}
	} else {
		for i, rootID := range in {
			root := s.m.Buckets[rootID]
			for j := 0; j < want; j++ {
				p := i*want + j
				item, ok := pick(root, p, step.Type)
				if ok {
					used.Add(item)
				}
				slots = append(slots, slot{item, ok})
			}
		}
	}

	out := make([]int32, 0, len(slots))
	for _, sl := range slots {
		switch {
		case sl.ok:
			out = append(out, sl.item)
		case !firstn:
			out = append(out, crush.ItemNone)
		}
	}
	return out
}

// choose fills one position with a descendant of targetType under
// root, retrying with a bumped r up to choose_total_tries times.
func (s *run) choose(root *crush.Bucket, p int, targetType int32, used set.Set[int32]) (int32, bool) {
	for tries := 0; tries < s.tun.ChooseTotalTries; tries++ {
		r := p + tries
		if item, ok := s.descend(root, r, targetType, used); ok {
			return item, true
		}
	}
	return crush.ItemNone, false
}

// chooseLeaf fills one position with a leaf under a descendant of
// targetType: first pick the intermediate bucket (as choose does),
// then descend again from it to a device. chooseleaf_descend_once
// bounds leaf-level retries without re-picking the intermediate
// bucket; chooseleaf_vary_r controls whether those retries vary r.
func (s *run) chooseLeaf(root *crush.Bucket, p int, targetType int32, used set.Set[int32]) (int32, bool) {
	for tries := 0; tries < s.tun.ChooseTotalTries; tries++ {
		r := p + tries
		mid, ok := s.descend(root, r, targetType, used)
		if !ok {
			continue
		}
		used.Add(mid)

		midBucket := s.m.Buckets[mid]
		if midBucket == nil {
			// targetType was already the leaf level.
			if s.deviceUsable(mid) {
				return mid, true
			}
			if s.tun.ChooseleafDescendOnce != 0 {
				return crush.ItemNone, false
			}
			continue
		}

		maxLeafTries := s.tun.ChooseTotalTries
		if s.tun.ChooseleafDescendOnce != 0 {
			maxLeafTries = s.tun.ChooseLocalTries + 1
			if maxLeafTries < 1 {
				maxLeafTries = 1
			}
		}
		for leafTries := 0; leafTries < maxLeafTries; leafTries++ {
			leafR := p
			if s.tun.ChooseleafVaryR != 0 {
				leafR = p + leafTries
			}
			if leaf, ok := s.descend(midBucket, leafR, deviceType, used); ok {
				return leaf, true
			}
		}
		if s.tun.ChooseleafDescendOnce != 0 {
			return crush.ItemNone, false
		}
	}
	return crush.ItemNone, false
}

// descend walks from cur down to a single item of targetType by
// repeatedly calling Bucket.Choose, recursing into whatever
// intermediate bucket comes back until a bucket (or device, for
// targetType==deviceType) of the wanted type is reached. Each return
// site below is one outcome of that walk: OK on a match, OUT on a
// zero-weight device, EMPTY when a bucket yields no child or an
// intermediate bucket has zero weight, TYPE_MISMATCH when a device is
// hit before the wanted bucket type, COLLISION when the candidate is
// already in used.
func (s *run) descend(cur *crush.Bucket, r int, targetType int32, used set.Set[int32]) (int32, bool) {
	for depth := 0; depth < maxDescendDepth; depth++ {
		child := cur.Choose(s.x, r, s.argFor(cur))
		if child == crush.ItemNone {
			return crush.ItemNone, false // EMPTY
		}
		if child >= 0 {
			if targetType != deviceType {
				return crush.ItemNone, false // TYPE_MISMATCH
			}
			if !s.deviceUsable(child) {
				return crush.ItemNone, false // OUT
			}
			if used.Contains(child) {
				return crush.ItemNone, false // COLLISION
			}
			return child, true
		}
		childBucket := s.m.Buckets[child]
		if childBucket == nil {
			return crush.ItemNone, false
		}
		if childBucket.Type == targetType {
			if used.Contains(child) {
				return crush.ItemNone, false // COLLISION
			}
			return child, true
		}
		if childBucket.Weight == 0 {
			return crush.ItemNone, false // EMPTY
		}
		cur = childBucket
	}
	return crush.ItemNone, false
}

func (s *run) deviceUsable(id int32) bool {
	if s.deviceWeights == nil {
		return true
	}
	if int(id) >= len(s.deviceWeights) {
		return true
	}
	return s.deviceWeights[id] != 0
}

// argFor merges the caller's per-bucket choose-arg override with the
// call-level device weight overrides into a single crush.ChooseArg, so
// a bucket whose children include a simulated-out-of-service device
// sees that device as zero-weight even though its own ChildWeights are
// untouched. The merge is computed once per bucket per call.
func (s *run) argFor(b *crush.Bucket) *crush.ChooseArg {
	if merged, ok := s.mergedArgs[b.ID]; ok {
		return merged
	}
	base := s.chooseArgs[b.ID]

	needsOverride := false
	if s.deviceWeights != nil {
		for _, c := range b.Children {
			if c >= 0 && int(c) < len(s.deviceWeights) {
				needsOverride = true
				break
			}
		}
	}

	var merged *crush.ChooseArg
	switch {
	case !needsOverride:
		merged = base
	case base == nil:
		row := append([]uint32(nil), b.ChildWeights...)
		s.applyDeviceOverride(b, row)
		merged = &crush.ChooseArg{WeightSet: [][]uint32{row}}
	default:
		rows := base.WeightSet
		if len(rows) == 0 {
			rows = [][]uint32{b.ChildWeights}
		}
		merged2 := make([][]uint32, len(rows))
		for i, row := range rows {
			cp := append([]uint32(nil), row...)
			s.applyDeviceOverride(b, cp)
			merged2[i] = cp
		}
		merged = &crush.ChooseArg{IDs: base.IDs, WeightSet: merged2}
	}

	s.mergedArgs[b.ID] = merged
	return merged
}

func (s *run) applyDeviceOverride(b *crush.Bucket, row []uint32) {
	for i, c := range b.Children {
		if i >= len(row) {
			break
		}
		if c >= 0 && int(c) < len(s.deviceWeights) {
			row[i] = s.deviceWeights[c]
		}
	}
}

// WorkSize reports the scratch-buffer size a mapping call over m would
// need for replicaCount replicas. Callers in a systems language would
// preallocate a scratch buffer of this size; Go callers don't need to,
// since run's state is a handful of small maps freed at the end of Map,
// but the function is kept so callers can size their own buffers when
// batching many calls.
func WorkSize(m *crush.Map, replicaCount int) int {
	return len(m.Buckets)*2 + replicaCount*4 + 16
}
