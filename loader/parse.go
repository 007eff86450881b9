// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package loader

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ceph/go-crush"
	"github.com/ceph/go-crush/chooseargs"
	"github.com/ceph/go-crush/crusherr"
	"github.com/ceph/go-crush/utils/set"
)

// deviceTypeID is the type id reserved for leaves; no declared type
// may claim it (engine.deviceType mirrors this constant).
const deviceTypeID = 0

var topLevelKeys = map[string]bool{
	"types": true, "trees": true, "rules": true, "tunables": true, "choose_args": true,
}

var opcodesByName = map[string]crush.Opcode{
	"take":                          crush.OpTake,
	"choose_firstn":                 crush.OpChooseFirstN,
	"choose_indep":                  crush.OpChooseIndep,
	"chooseleaf_firstn":             crush.OpChooseLeafFirstN,
	"chooseleaf_indep":              crush.OpChooseLeafIndep,
	"emit":                          crush.OpEmit,
	"set_choose_tries":              crush.OpSetChooseTries,
	"set_chooseleaf_tries":          crush.OpSetChooseLeafTries,
	"set_choose_local_tries":        crush.OpSetChooseLocalTries,
	"set_choose_local_fallback_tries": crush.OpSetChooseLocalFallbackTries,
	"set_chooseleaf_vary_r":         crush.OpSetChooseLeafVaryR,
	"set_chooseleaf_stable":         crush.OpSetChooseLeafStable,
}

// Parse replaces m's contents with the tree described by record and
// finalizes it. lib, if non-nil, receives any named choose-args sets
// the record defines; pass nil if the caller has no use for them (the
// record is still validated either way).
//
// Parsing happens against a scratch map, and lib's sets are collected
// into a scratch library; m and lib are only mutated once every field
// has parsed and Finalize has succeeded, so a mid-parse error (a bad
// rule after several valid buckets, say) leaves both exactly as they
// were, ready for another Parse call with corrected input.
func Parse(m *crush.Map, record Value, lib *chooseargs.Library) error {
	fields, err := record.AsMap()
	if err != nil {
		return crusherr.Prepend(err, "root")
	}
	for k := range fields {
		if !topLevelKeys[k] {
			return crusherr.Wrapf(crusherr.InvalidInput, "unknown top-level key %q", k)
		}
	}
	m.Options.Logger.Info("parsing map record", zap.Int("top_level_keys", len(fields)))

	scratch := crush.New(m.Options)

	if typesV, ok := fields["types"]; ok {
		if err := parseTypes(scratch, typesV); err != nil {
			return crusherr.Prepend(err, "types")
		}
	}

	seenBucketIDs := set.NewSet[int32](0)
	seenDeviceIDs := set.NewSet[int32](0)
	if treesV, ok := fields["trees"]; ok {
		list, err := treesV.AsList()
		if err != nil {
			return crusherr.Prepend(err, "trees")
		}
		for i, t := range list {
			if _, _, err := parseNode(scratch, t, seenBucketIDs, seenDeviceIDs); err != nil {
				return crusherr.Prepend(err, fmt.Sprintf("trees[%d]", i))
			}
		}
	}

	if rulesV, ok := fields["rules"]; ok {
		if err := parseRules(scratch, rulesV); err != nil {
			return crusherr.Prepend(err, "rules")
		}
	}

	if tunV, ok := fields["tunables"]; ok {
		if err := parseTunables(scratch, tunV); err != nil {
			return crusherr.Prepend(err, "tunables")
		}
	}

	scratchLib := chooseargs.NewLibrary()
	if caV, ok := fields["choose_args"]; ok {
		if err := parseChooseArgs(scratch, caV, scratchLib); err != nil {
			return crusherr.Prepend(err, "choose_args")
		}
	}

	if err := scratch.Finalize(); err != nil {
		return err
	}

	*m = *scratch
	if lib != nil {
		for _, name := range scratchLib.Names() {
			s, _ := scratchLib.ByName(name)
			lib.Attach(s)
		}
	}
	return nil
}

func parseTypes(m *crush.Map, v Value) error {
	list, err := v.AsList()
	if err != nil {
		return err
	}
	for i, tv := range list {
		fields, err := tv.AsMap()
		if err != nil {
			return crusherr.Prepend(err, fmt.Sprintf("[%d]", i))
		}
		idV, ok := fields["type_id"]
		if !ok {
			return crusherr.Wrapf(crusherr.InvalidInput, "[%d]: missing type_id", i)
		}
		idRaw, err := idV.AsInt()
		if err != nil {
			return crusherr.Prepend(err, fmt.Sprintf("[%d].type_id", i))
		}
		nameV, ok := fields["name"]
		if !ok {
			return crusherr.Wrapf(crusherr.InvalidInput, "[%d]: missing name", i)
		}
		name, err := nameV.AsString()
		if err != nil {
			return crusherr.Prepend(err, fmt.Sprintf("[%d].name", i))
		}
		for k := range fields {
			if k != "type_id" && k != "name" {
				return crusherr.Wrapf(crusherr.InvalidInput, "[%d]: unknown key %q", i, k)
			}
		}
		if idRaw == deviceTypeID {
			return crusherr.Wrapf(crusherr.InvalidInput, "[%d]: type id 0 is reserved for devices", i)
		}
		m.AddType(int32(idRaw), name)
	}
	return nil
}

// parseNode dispatches a tree child to a bucket, device, or reference
// parser and returns (child id, weight contributed to its parent).
func parseNode(m *crush.Map, v Value, seenBucketIDs, seenDeviceIDs set.Set[int32]) (int32, uint32, error) {
	fields, err := v.AsMap()
	if err != nil {
		return 0, 0, err
	}
	if _, ok := fields["reference_id"]; ok {
		return parseReferenceNode(m, fields)
	}
	if _, ok := fields["type"]; ok {
		return parseBucketNode(m, fields, seenBucketIDs, seenDeviceIDs)
	}
	return parseDeviceNode(m, fields, seenDeviceIDs)
}

func parseReferenceNode(m *crush.Map, fields map[string]Value) (int32, uint32, error) {
	refV, ok := fields["reference_id"]
	if !ok {
		return 0, 0, crusherr.Wrap(crusherr.InvalidInput, "missing reference_id")
	}
	refRaw, err := refV.AsInt()
	if err != nil {
		return 0, 0, crusherr.Prepend(err, "reference_id")
	}
	id := int32(refRaw)
	var defaultWeight uint32
	if id < 0 {
		b, ok := m.Buckets[id]
		if !ok {
			return 0, 0, crusherr.Wrapf(crusherr.NotFound, "reference to unknown bucket %d", id)
		}
		defaultWeight = b.Weight
	} else {
		if _, ok := m.Devices[id]; !ok {
			return 0, 0, crusherr.Wrapf(crusherr.NotFound, "reference to unknown device %d", id)
		}
		defaultWeight = fixedScale
	}
	weight := defaultWeight
	if weightV, ok := fields["weight"]; ok {
		f, err := weightV.AsFloat()
		if err != nil {
			return 0, 0, crusherr.Prepend(err, "weight")
		}
		weight = floatToFixed(f)
	}
	return id, weight, nil
}

func parseDeviceNode(m *crush.Map, fields map[string]Value, seenDeviceIDs set.Set[int32]) (int32, uint32, error) {
	nameV, ok := fields["name"]
	if !ok {
		return 0, 0, crusherr.Wrap(crusherr.InvalidInput, "device missing name")
	}
	name, err := nameV.AsString()
	if err != nil {
		return 0, 0, crusherr.Prepend(err, "name")
	}
	idV, ok := fields["id"]
	if !ok {
		return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "device %q missing id", name)
	}
	idRaw, err := idV.AsInt()
	if err != nil {
		return 0, 0, crusherr.Prepend(err, "id")
	}
	id := int32(idRaw)
	if id < 0 {
		return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "device %q: id %d must be non-negative", name, id)
	}
	for k := range fields {
		if k != "name" && k != "id" && k != "weight" {
			return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "device %q: unknown key %q", name, k)
		}
	}
	if err := m.AddDevice(id, name); err != nil {
		return 0, 0, err
	}
	seenDeviceIDs.Add(id)

	weight := uint32(fixedScale)
	if weightV, ok := fields["weight"]; ok {
		f, err := weightV.AsFloat()
		if err != nil {
			return 0, 0, crusherr.Prepend(err, "weight")
		}
		weight = floatToFixed(f)
	}
	return id, weight, nil
}

func parseBucketNode(m *crush.Map, fields map[string]Value, seenBucketIDs, seenDeviceIDs set.Set[int32]) (int32, uint32, error) {
	nameV, ok := fields["name"]
	if !ok {
		return 0, 0, crusherr.Wrap(crusherr.InvalidInput, "bucket missing name")
	}
	name, err := nameV.AsString()
	if err != nil {
		return 0, 0, crusherr.Prepend(err, "name")
	}

	typeV := fields["type"]
	typeName, err := typeV.AsString()
	if err != nil {
		return 0, 0, crusherr.Prepend(err, "type")
	}
	typeID, ok := m.TypeID(typeName)
	if !ok {
		return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "bucket %q: unknown type %q", name, typeName)
	}

	alg := crush.AlgStraw2
	if algV, ok := fields["algorithm"]; ok {
		algName, err := algV.AsString()
		if err != nil {
			return 0, 0, crusherr.Prepend(err, "algorithm")
		}
		a, ok := crush.ParseAlgorithm(algName)
		if !ok {
			return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "bucket %q: unknown algorithm %q", name, algName)
		}
		alg = a
	}
	if alg == crush.AlgStraw && !m.Options.BackwardCompatibility {
		return 0, 0, crusherr.Wrapf(crusherr.NotAllowed, "bucket %q: algorithm %q requires backward_compatibility", name, alg)
	}

	var id int32
	if idV, ok := fields["id"]; ok {
		idRaw, err := idV.AsInt()
		if err != nil {
			return 0, 0, crusherr.Prepend(err, "id")
		}
		id = int32(idRaw)
		if id >= 0 {
			return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "bucket %q: id %d must be negative", name, id)
		}
		if seenBucketIDs.Contains(id) {
			return 0, 0, crusherr.Wrapf(crusherr.InvariantViolation, "duplicate bucket id %d", id)
		}
	} else {
		id = m.NextBucketID()
	}

	b, err := crush.NewBucket(id, name, typeID, alg, crush.HashRJenkins1)
	if err != nil {
		return 0, 0, crusherr.WrapCause(crusherr.InvalidInput, err, name)
	}

	var sum uint64
	if childrenV, ok := fields["children"]; ok {
		children, err := childrenV.AsList()
		if err != nil {
			return 0, 0, crusherr.Prepend(err, "children")
		}
		for i, c := range children {
			childID, childWeight, err := parseNode(m, c, seenBucketIDs, seenDeviceIDs)
			if err != nil {
				return 0, 0, crusherr.Prepend(err, fmt.Sprintf("children[%d]", i))
			}
			b.AddChild(childID, childWeight)
			sum += uint64(childWeight)
		}
	}
	if alg == crush.AlgUniform {
		for i := 1; i < len(b.ChildWeights); i++ {
			if b.ChildWeights[i] != b.ChildWeights[0] {
				return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "bucket %q: uniform children must have equal weights", name)
			}
		}
	}

	weight := uint32(sum)
	if weightV, ok := fields["weight"]; ok {
		f, err := weightV.AsFloat()
		if err != nil {
			return 0, 0, crusherr.Prepend(err, "weight")
		}
		weight = floatToFixed(f)
		b.Weight = weight
		b.HasBucketWeight = true
	}

	for k := range fields {
		switch k {
		case "id", "name", "type", "algorithm", "weight", "children":
		default:
			return 0, 0, crusherr.Wrapf(crusherr.InvalidInput, "bucket %q: unknown key %q", name, k)
		}
	}

	if err := m.AddBucket(b); err != nil {
		return 0, 0, err
	}
	seenBucketIDs.Add(id)
	return id, weight, nil
}

func parseRules(m *crush.Map, v Value) error {
	fields, err := v.AsMap()
	if err != nil {
		return err
	}
	// Names are assigned ids in sorted order rather than by ranging the
	// map directly: Go's map iteration order is randomized per-process,
	// and rule ids are part of the encoded wire format, so an
	// order-dependent assignment would make two loads of the same
	// record encode to different bytes.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var id int32
	for _, name := range names {
		stepsV := fields[name]
		steps, err := stepsV.AsList()
		if err != nil {
			return crusherr.Prepend(err, name)
		}
		r := &crush.Rule{ID: id, Name: name}
		id++
		for i, sv := range steps {
			step, err := parseStep(m, sv)
			if err != nil {
				return crusherr.Prepend(err, fmt.Sprintf("%s[%d]", name, i))
			}
			r.Steps = append(r.Steps, step)
		}
		if err := m.AddRule(r); err != nil {
			return err
		}
	}
	return nil
}

func parseStep(m *crush.Map, v Value) (crush.Step, error) {
	fields, err := v.AsMap()
	if err != nil {
		return crush.Step{}, err
	}
	opV, ok := fields["op"]
	if !ok {
		return crush.Step{}, crusherr.Wrap(crusherr.InvalidInput, "missing op")
	}
	opName, err := opV.AsString()
	if err != nil {
		return crush.Step{}, crusherr.Prepend(err, "op")
	}
	op, ok := opcodesByName[opName]
	if !ok {
		return crush.Step{}, crusherr.Wrapf(crusherr.InvalidInput, "unknown op %q", opName)
	}
	if op.compatOnly() && !m.Options.BackwardCompatibility {
		return crush.Step{}, crusherr.Wrapf(crusherr.NotAllowed, "op %q requires backward_compatibility", opName)
	}

	switch op {
	case crush.OpTake:
		rootV, err := v.MustField("root")
		if err != nil {
			return crush.Step{}, err
		}
		root, err := rootV.AsInt()
		if err != nil {
			return crush.Step{}, crusherr.Prepend(err, "root")
		}
		return crush.Step{Op: op, Root: int32(root)}, nil

	case crush.OpChooseFirstN, crush.OpChooseIndep, crush.OpChooseLeafFirstN, crush.OpChooseLeafIndep:
		numV, err := v.MustField("num")
		if err != nil {
			return crush.Step{}, err
		}
		num, err := numV.AsInt()
		if err != nil {
			return crush.Step{}, crusherr.Prepend(err, "num")
		}
		typeV, err := v.MustField("type")
		if err != nil {
			return crush.Step{}, err
		}
		typeName, err := typeV.AsString()
		if err != nil {
			return crush.Step{}, crusherr.Prepend(err, "type")
		}
		typeID, ok := m.TypeID(typeName)
		if !ok {
			return crush.Step{}, crusherr.Wrapf(crusherr.InvalidInput, "unknown type %q", typeName)
		}
		return crush.Step{Op: op, Num: int32(num), Type: typeID}, nil

	case crush.OpEmit:
		return crush.Step{Op: op}, nil

	default: // SET_* family
		argV, err := v.MustField("arg")
		if err != nil {
			return crush.Step{}, err
		}
		arg, err := argV.AsInt()
		if err != nil {
			return crush.Step{}, crusherr.Prepend(err, "arg")
		}
		return crush.Step{Op: op, Arg: int(arg)}, nil
	}
}

func parseTunables(m *crush.Map, v Value) error {
	fields, err := v.AsMap()
	if err != nil {
		return err
	}
	t := m.Tunables
	compatOnly := map[string]bool{
		"choose_local_tries": true, "choose_local_fallback_tries": true,
		"chooseleaf_vary_r": true, "chooseleaf_stable": true,
	}
	slots := map[string]*int{
		"choose_total_tries":          &t.ChooseTotalTries,
		"choose_local_tries":          &t.ChooseLocalTries,
		"choose_local_fallback_tries": &t.ChooseLocalFallbackTries,
		"chooseleaf_descend_once":     &t.ChooseleafDescendOnce,
		"chooseleaf_vary_r":           &t.ChooseleafVaryR,
		"chooseleaf_stable":           &t.ChooseleafStable,
		"straw_calc_version":          &t.StrawCalcVersion,
	}
	for k, fv := range fields {
		if k == "allowed_bucket_algs" {
			n, err := fv.AsInt()
			if err != nil {
				return crusherr.Prepend(err, k)
			}
			t.AllowedBucketAlgs = uint32(n)
			continue
		}
		ptr, ok := slots[k]
		if !ok {
			return crusherr.Wrapf(crusherr.InvalidInput, "unknown tunable %q", k)
		}
		if compatOnly[k] && !m.Options.BackwardCompatibility {
			return crusherr.Wrapf(crusherr.NotAllowed, "tunable %q requires backward_compatibility", k)
		}
		n, err := fv.AsInt()
		if err != nil {
			return crusherr.Prepend(err, k)
		}
		if k == "straw_calc_version" && n == 0 && !m.Options.BackwardCompatibility {
			return crusherr.Wrapf(crusherr.NotAllowed, "tunable %q = 0 requires backward_compatibility", k)
		}
		*ptr = int(n)
	}
	m.Tunables = t
	return nil
}

func parseChooseArgs(m *crush.Map, v Value, lib *chooseargs.Library) error {
	fields, err := v.AsMap()
	if err != nil {
		return err
	}
	for name, entriesV := range fields {
		entries, err := entriesV.AsList()
		if err != nil {
			return crusherr.Prepend(err, name)
		}
		s := chooseargs.NewSet(name)
		for i, ev := range entries {
			entry, err := parseChooseArgEntry(m, ev)
			if err != nil {
				return crusherr.Prepend(err, fmt.Sprintf("%s[%d]", name, i))
			}
			if err := s.Add(m, entry); err != nil {
				return err
			}
		}
		lib.Attach(s)
	}
	return nil
}

func parseChooseArgEntry(m *crush.Map, v Value) (chooseargs.Entry, error) {
	fields, err := v.AsMap()
	if err != nil {
		return chooseargs.Entry{}, err
	}

	var bucketID int32
	if idV, ok := fields["bucket_id"]; ok {
		n, err := idV.AsInt()
		if err != nil {
			return chooseargs.Entry{}, crusherr.Prepend(err, "bucket_id")
		}
		bucketID = int32(n)
	} else if nameV, ok := fields["bucket_name"]; ok {
		name, err := nameV.AsString()
		if err != nil {
			return chooseargs.Entry{}, crusherr.Prepend(err, "bucket_name")
		}
		b, ok := m.BucketByName(name)
		if !ok {
			return chooseargs.Entry{}, crusherr.Wrapf(crusherr.NotFound, "bucket %q", name)
		}
		bucketID = b.ID
	} else {
		return chooseargs.Entry{}, crusherr.Wrap(crusherr.InvalidInput, "missing bucket_id or bucket_name")
	}

	entry := chooseargs.Entry{BucketID: bucketID}

	if idsV, ok := fields["ids"]; ok {
		list, err := idsV.AsList()
		if err != nil {
			return entry, crusherr.Prepend(err, "ids")
		}
		ids := make([]int32, len(list))
		for i, iv := range list {
			n, err := iv.AsInt()
			if err != nil {
				return entry, crusherr.Prepend(err, fmt.Sprintf("ids[%d]", i))
			}
			ids[i] = int32(n)
		}
		entry.IDs = ids
	}

	if wsV, ok := fields["weight_set"]; ok {
		rows, err := wsV.AsList()
		if err != nil {
			return entry, crusherr.Prepend(err, "weight_set")
		}
		ws := make([][]uint32, len(rows))
		for pos, rowV := range rows {
			rowList, err := rowV.AsList()
			if err != nil {
				return entry, crusherr.Prepend(err, fmt.Sprintf("weight_set[%d]", pos))
			}
			row := make([]uint32, len(rowList))
			for i, wv := range rowList {
				f, err := wv.AsFloat()
				if err != nil {
					return entry, crusherr.Prepend(err, fmt.Sprintf("weight_set[%d][%d]", pos, i))
				}
				row[i] = floatToFixed(f)
			}
			ws[pos] = row
		}
		entry.WeightSet = ws
	}

	return entry, nil
}
