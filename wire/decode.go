// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"go.uber.org/zap"

	"github.com/ceph/go-crush"
	"github.com/ceph/go-crush/chooseargs"
	"github.com/ceph/go-crush/crusherr"
	"github.com/ceph/go-crush/utils/wrappers"
)

// Decode parses data into a finalized Map plus any embedded
// choose-args library, rejecting anything truncated, oversized, or
// whose feature bits disagree with the algorithms the bucket table
// actually uses.
func Decode(data []byte, opts crush.Options) (*crush.Map, *chooseargs.Library, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	u := wrappers.NewUnpacker(data)

	magic := u.UnpackUint32()
	if magic != Magic {
		log.Warn("decode rejected: bad magic", zap.Uint32("got", magic))
		return nil, nil, crusherr.Wrap(crusherr.Corrupt, "bad magic")
	}
	version := u.UnpackUint16()
	if version != Version {
		log.Warn("decode rejected: unsupported version", zap.Uint16("version", version))
		return nil, nil, crusherr.Wrapf(crusherr.Corrupt, "unsupported version %d", version)
	}
	features := u.UnpackUint64()
	if features&^knownFeatures != 0 {
		log.Warn("decode rejected: unknown feature bit", zap.Uint64("features", features))
		return nil, nil, crusherr.Wrap(crusherr.Corrupt, "unknown feature bit set")
	}

	m := crush.New(opts)

	sawStraw2 := false
	bucketCount := u.UnpackUint32()
	type bucketShell struct {
		id              int32
		typ             int32
		alg             crush.Algorithm
		hash            crush.HashAlgorithm
		weight          uint32
		hasBucketWeight bool
		children        []int32
		childWeights    []uint32
	}
	shells := make([]bucketShell, 0, bucketCount)
	for i := uint32(0); i < bucketCount; i++ {
		var sh bucketShell
		sh.id = u.UnpackInt32()
		sh.typ = u.UnpackInt32()
		sh.alg = crush.Algorithm(u.UnpackByte())
		sh.hash = crush.HashAlgorithm(u.UnpackByte())
		sh.weight = u.UnpackUint32()
		sh.hasBucketWeight = u.UnpackByte() != 0
		n := u.UnpackUint32()
		sh.children = make([]int32, n)
		sh.childWeights = make([]uint32, n)
		for j := uint32(0); j < n; j++ {
			sh.children[j] = u.UnpackInt32()
			sh.childWeights[j] = u.UnpackUint32()
		}
		if sh.alg == crush.AlgStraw2 {
			sawStraw2 = true
		}
		if u.Err != nil {
			return nil, nil, crusherr.WrapCause(crusherr.Corrupt, u.Err, "bucket table")
		}
		shells = append(shells, sh)
	}
	if sawStraw2 && features&FeatureStraw2 == 0 {
		log.Warn("decode rejected: straw2 bucket present but feature bit clear")
		return nil, nil, crusherr.Wrap(crusherr.Corrupt, "straw2 bucket present but feature bit clear")
	}

	ruleCount := u.UnpackUint32()
	type ruleShell struct {
		id    int32
		mask  crush.Mask
		steps []crush.Step
	}
	ruleShells := make([]ruleShell, 0, ruleCount)
	for i := uint32(0); i < ruleCount; i++ {
		var rs ruleShell
		rs.id = u.UnpackInt32()
		rs.mask.Ruleset = u.UnpackInt32()
		rs.mask.Type = u.UnpackInt32()
		rs.mask.MinSize = u.UnpackInt32()
		rs.mask.MaxSize = u.UnpackInt32()
		n := u.UnpackUint32()
		rs.steps = make([]crush.Step, n)
		for j := uint32(0); j < n; j++ {
			rs.steps[j] = crush.Step{
				Op:   crush.Opcode(u.UnpackByte()),
				Root: u.UnpackInt32(),
				Num:  u.UnpackInt32(),
				Type: u.UnpackInt32(),
				Arg:  int(u.UnpackInt32()),
			}
		}
		if u.Err != nil {
			return nil, nil, crusherr.WrapCause(crusherr.Corrupt, u.Err, "rule table")
		}
		ruleShells = append(ruleShells, rs)
	}

	typeCount := u.UnpackUint32()
	for i := uint32(0); i < typeCount; i++ {
		id := u.UnpackInt32()
		name := u.UnpackString()
		m.AddType(id, name)
	}

	bucketNameCount := u.UnpackUint32()
	bucketNames := make(map[int32]string, bucketNameCount)
	for i := uint32(0); i < bucketNameCount; i++ {
		id := u.UnpackInt32()
		bucketNames[id] = u.UnpackString()
	}

	ruleNameCount := u.UnpackUint32()
	ruleNames := make(map[int32]string, ruleNameCount)
	for i := uint32(0); i < ruleNameCount; i++ {
		id := u.UnpackInt32()
		ruleNames[id] = u.UnpackString()
	}

	deviceCount := u.UnpackUint32()
	for i := uint32(0); i < deviceCount; i++ {
		id := u.UnpackInt32()
		name := u.UnpackString()
		if err := m.AddDevice(id, name); err != nil {
			return nil, nil, crusherr.WrapCause(crusherr.Corrupt, err, "device table")
		}
	}
	if u.Err != nil {
		return nil, nil, crusherr.WrapCause(crusherr.Corrupt, u.Err, "name tables")
	}

	for _, sh := range shells {
		name := bucketNames[sh.id]
		b, err := crush.NewBucket(sh.id, name, sh.typ, sh.alg, sh.hash)
		if err != nil {
			return nil, nil, crusherr.WrapCause(crusherr.Corrupt, err, "bucket table")
		}
		b.Weight = sh.weight
		b.HasBucketWeight = sh.hasBucketWeight
		for i, child := range sh.children {
			b.AddChild(child, sh.childWeights[i])
		}
		if err := m.AddBucket(b); err != nil {
			return nil, nil, crusherr.WrapCause(crusherr.Corrupt, err, "bucket table")
		}
	}

	for _, rs := range ruleShells {
		r := &crush.Rule{ID: rs.id, Name: ruleNames[rs.id], Mask: rs.mask, Steps: rs.steps}
		if err := m.AddRule(r); err != nil {
			return nil, nil, crusherr.WrapCause(crusherr.Corrupt, err, "rule table")
		}
	}

	t := crush.DefaultTunables()
	t.ChooseTotalTries = int(u.UnpackInt32())
	t.ChooseLocalTries = int(u.UnpackInt32())
	t.ChooseLocalFallbackTries = int(u.UnpackInt32())
	t.ChooseleafDescendOnce = int(u.UnpackInt32())
	t.StrawCalcVersion = int(u.UnpackInt32())
	t.AllowedBucketAlgs = u.UnpackUint32()
	if features&FeatureChooseLeafVaryR != 0 {
		t.ChooseleafVaryR = int(u.UnpackInt32())
	}
	if features&FeatureChooseLeafStable != 0 {
		t.ChooseleafStable = int(u.UnpackInt32())
	}
	if u.Err != nil {
		return nil, nil, crusherr.WrapCause(crusherr.Corrupt, u.Err, "tunables")
	}
	m.Tunables = t

	var lib *chooseargs.Library
	if features&FeatureChooseArgs != 0 {
		lib = chooseargs.NewLibrary()
		setCount := u.UnpackUint32()
		for i := uint32(0); i < setCount; i++ {
			name := u.UnpackString()
			s := chooseargs.NewSet(name)
			entryCount := u.UnpackUint32()
			for j := uint32(0); j < entryCount; j++ {
				var e chooseargs.Entry
				e.BucketID = u.UnpackInt32()
				if u.UnpackByte() != 0 {
					n := u.UnpackUint32()
					e.IDs = make([]int32, n)
					for k := uint32(0); k < n; k++ {
						e.IDs[k] = u.UnpackInt32()
					}
				}
				rowCount := u.UnpackUint32()
				e.WeightSet = make([][]uint32, rowCount)
				for r := uint32(0); r < rowCount; r++ {
					wc := u.UnpackUint32()
					row := make([]uint32, wc)
					for k := uint32(0); k < wc; k++ {
						row[k] = u.UnpackUint32()
					}
					e.WeightSet[r] = row
				}
				if err := s.Add(m, e); err != nil {
					return nil, nil, crusherr.WrapCause(crusherr.Corrupt, err, "choose_args")
				}
			}
			lib.Attach(s)
		}
		if u.Err != nil {
			return nil, nil, crusherr.WrapCause(crusherr.Corrupt, u.Err, "choose_args")
		}
	}

	if !u.Done() {
		log.Warn("decode rejected: trailing bytes", zap.Int("offset", u.Offset), zap.Int("total", len(data)))
		return nil, nil, crusherr.Wrap(crusherr.Corrupt, "trailing bytes after decode")
	}

	if err := m.Finalize(); err != nil {
		return nil, nil, crusherr.WrapCause(crusherr.Corrupt, err, "finalize")
	}
	log.Info("map decoded", zap.Int("bytes", len(data)), zap.Uint64("features", features))
	return m, lib, nil
}
