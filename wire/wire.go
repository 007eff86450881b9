// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire implements the binary on-wire codec: a deterministic
// little-endian format with a magic, a version, and a
// feature bitmask gating optional fields. Encoder output is
// byte-identical for two equal maps; the decoder rejects anything
// whose declared sizes don't match the payload or whose feature bits
// don't match the bucket algorithms actually present.
package wire

import (
	"sort"

	"github.com/ceph/go-crush"
	"github.com/ceph/go-crush/chooseargs"
	"github.com/ceph/go-crush/crusherr"
	"github.com/ceph/go-crush/utils/wrappers"
)

// Magic identifies a go-crush binary map.
const Magic uint32 = 0x43525348 // "CRSH"

// Version is the only wire format version this package writes or
// accepts.
const Version uint16 = 1

// Feature bits gate optional fields: straw2, chooseleaf_stable,
// chooseleaf_vary_r, and an embedded choose-args library.
const (
	FeatureStraw2 uint64 = 1 << iota
	FeatureChooseLeafStable
	FeatureChooseLeafVaryR
	FeatureChooseArgs
)

const knownFeatures = FeatureStraw2 | FeatureChooseLeafStable | FeatureChooseLeafVaryR | FeatureChooseArgs

// Encode serializes m under the given feature set. args, if non-nil
// and features carries FeatureChooseArgs, is encoded alongside it.
// Encode validates m first: an inconsistent map is never serialized.
func Encode(m *crush.Map, features uint64, args *chooseargs.Library) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, crusherr.WrapCause(crusherr.InvariantViolation, err, "encode")
	}

	p := wrappers.NewPacker(4096)
	p.PackUint32(Magic)
	p.PackUint16(Version)
	p.PackUint64(features)

	encodeBuckets(p, m)
	encodeRules(p, m)
	encodeNames(p, m)
	encodeTunables(p, m.Tunables, features)

	if features&FeatureChooseArgs != 0 {
		encodeChooseArgs(p, args)
	}

	if p.Err != nil {
		return nil, crusherr.WrapCause(crusherr.InvalidInput, p.Err, "encode")
	}
	return p.Bytes, nil
}

func sortedBucketIDs(m *crush.Map) []int32 {
	ids := make([]int32, 0, len(m.Buckets))
	for id := range m.Buckets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}

func sortedDeviceIDs(m *crush.Map) []int32 {
	ids := make([]int32, 0, len(m.Devices))
	for id := range m.Devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedRuleNames(m *crush.Map) []string {
	names := make([]string, 0, len(m.Rules))
	for name := range m.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func encodeBuckets(p *wrappers.Packer, m *crush.Map) {
	ids := sortedBucketIDs(m)
	p.PackUint32(uint32(len(ids)))
	for _, id := range ids {
		b := m.Buckets[id]
		p.PackInt32(b.ID)
		p.PackInt32(b.Type)
		p.PackByte(byte(b.Alg))
		p.PackByte(byte(b.Hash))
		p.PackUint32(b.Weight)
		if b.HasBucketWeight {
			p.PackByte(1)
		} else {
			p.PackByte(0)
		}
		p.PackUint32(uint32(b.Size()))
		for i, child := range b.Children {
			p.PackInt32(child)
			p.PackUint32(b.ChildWeights[i])
		}
	}
}

func encodeRules(p *wrappers.Packer, m *crush.Map) {
	names := sortedRuleNames(m)
	p.PackUint32(uint32(len(names)))
	for _, name := range names {
		r := m.Rules[name]
		p.PackInt32(r.ID)
		p.PackInt32(r.Mask.Ruleset)
		p.PackInt32(r.Mask.Type)
		p.PackInt32(r.Mask.MinSize)
		p.PackInt32(r.Mask.MaxSize)
		p.PackUint32(uint32(len(r.Steps)))
		for _, st := range r.Steps {
			p.PackByte(byte(st.Op))
			p.PackInt32(st.Root)
			p.PackInt32(st.Num)
			p.PackInt32(st.Type)
			p.PackInt32(int32(st.Arg))
		}
	}
}

func encodeNames(p *wrappers.Packer, m *crush.Map) {
	types := m.SortedTypeNames()
	p.PackUint32(uint32(len(types)))
	for _, t := range types {
		p.PackInt32(t.ID)
		p.PackString(t.Name)
	}

	ids := sortedBucketIDs(m)
	p.PackUint32(uint32(len(ids)))
	for _, id := range ids {
		p.PackInt32(id)
		p.PackString(m.Buckets[id].Name)
	}

	names := sortedRuleNames(m)
	p.PackUint32(uint32(len(names)))
	for _, name := range names {
		p.PackInt32(m.Rules[name].ID)
		p.PackString(name)
	}

	devIDs := sortedDeviceIDs(m)
	p.PackUint32(uint32(len(devIDs)))
	for _, id := range devIDs {
		p.PackInt32(id)
		p.PackString(m.Devices[id].Name)
	}
}

func encodeTunables(p *wrappers.Packer, t crush.Tunables, features uint64) {
	p.PackInt32(int32(t.ChooseTotalTries))
	p.PackInt32(int32(t.ChooseLocalTries))
	p.PackInt32(int32(t.ChooseLocalFallbackTries))
	p.PackInt32(int32(t.ChooseleafDescendOnce))
	p.PackInt32(int32(t.StrawCalcVersion))
	p.PackUint32(t.AllowedBucketAlgs)
	if features&FeatureChooseLeafVaryR != 0 {
		p.PackInt32(int32(t.ChooseleafVaryR))
	}
	if features&FeatureChooseLeafStable != 0 {
		p.PackInt32(int32(t.ChooseleafStable))
	}
}

func encodeChooseArgs(p *wrappers.Packer, lib *chooseargs.Library) {
	if lib == nil {
		p.PackUint32(0)
		return
	}
	names := lib.Names()
	p.PackUint32(uint32(len(names)))
	for _, name := range names {
		set, _ := lib.ByName(name)
		p.PackString(name)
		ids := make([]int32, 0, len(set.Entries))
		for id := range set.Entries {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
		p.PackUint32(uint32(len(ids)))
		for _, bid := range ids {
			e := set.Entries[bid]
			p.PackInt32(e.BucketID)
			if e.IDs != nil {
				p.PackByte(1)
				p.PackUint32(uint32(len(e.IDs)))
				for _, v := range e.IDs {
					p.PackInt32(v)
				}
			} else {
				p.PackByte(0)
			}
			p.PackUint32(uint32(len(e.WeightSet)))
			for _, row := range e.WeightSet {
				p.PackUint32(uint32(len(row)))
				for _, w := range row {
					p.PackUint32(w)
				}
			}
		}
	}
}
