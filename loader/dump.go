// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package loader

import "github.com/ceph/go-crush"

var opNames = map[crush.Opcode]string{
	crush.OpTake:                          "take",
	crush.OpChooseFirstN:                  "choose_firstn",
	crush.OpChooseIndep:                   "choose_indep",
	crush.OpChooseLeafFirstN:              "chooseleaf_firstn",
	crush.OpChooseLeafIndep:               "chooseleaf_indep",
	crush.OpEmit:                          "emit",
	crush.OpSetChooseTries:                "set_choose_tries",
	crush.OpSetChooseLeafTries:            "set_chooseleaf_tries",
	crush.OpSetChooseLocalTries:           "set_choose_local_tries",
	crush.OpSetChooseLocalFallbackTries:   "set_choose_local_fallback_tries",
	crush.OpSetChooseLeafVaryR:            "set_chooseleaf_vary_r",
	crush.OpSetChooseLeafStable:           "set_chooseleaf_stable",
}

// DumpJSON renders m back into the same record shape Parse consumes,
// up to key ordering and defaulted fields.
func DumpJSON(m *crush.Map) Value {
	fields := make(map[string]Value, 4)

	var types []Value
	for _, t := range m.SortedTypeNames() {
		types = append(types, Map(map[string]Value{
			"type_id": Int(int64(t.ID)),
			"name":    Str(t.Name),
		}))
	}
	fields["types"] = List(types...)

	var trees []Value
	for _, id := range m.Roots() {
		trees = append(trees, dumpNode(m, id))
	}
	fields["trees"] = List(trees...)

	rules := make(map[string]Value, len(m.Rules))
	for name, r := range m.Rules {
		steps := make([]Value, 0, len(r.Steps))
		for _, st := range r.Steps {
			steps = append(steps, dumpStep(m, st))
		}
		rules[name] = List(steps...)
	}
	fields["rules"] = Map(rules)

	fields["tunables"] = dumpTunables(m.Tunables)

	return Map(fields)
}

func dumpNode(m *crush.Map, id int32) Value {
	if id >= 0 {
		d := m.Devices[id]
		return Map(map[string]Value{
			"id":   Int(int64(id)),
			"name": Str(d.Name),
		})
	}

	b := m.Buckets[id]
	typeName, _ := m.TypeName(b.Type)
	fields := map[string]Value{
		"id":        Int(int64(id)),
		"name":      Str(b.Name),
		"type":      Str(typeName),
		"algorithm": Str(b.Alg.String()),
	}
	if b.HasBucketWeight {
		fields["weight"] = Float(fixedToFloat(b.Weight))
	}

	children := make([]Value, len(b.Children))
	for i, c := range b.Children {
		childFields, _ := dumpNode(m, c).AsMap()
		cf := make(map[string]Value, len(childFields)+1)
		for k, v := range childFields {
			cf[k] = v
		}
		cf["weight"] = Float(fixedToFloat(b.ChildWeights[i]))
		children[i] = Map(cf)
	}
	fields["children"] = List(children...)

	return Map(fields)
}

func dumpStep(m *crush.Map, st crush.Step) Value {
	fields := map[string]Value{"op": Str(opNames[st.Op])}
	switch st.Op {
	case crush.OpTake:
		fields["root"] = Int(int64(st.Root))
	case crush.OpChooseFirstN, crush.OpChooseIndep, crush.OpChooseLeafFirstN, crush.OpChooseLeafIndep:
		fields["num"] = Int(int64(st.Num))
		typeName, _ := m.TypeName(st.Type)
		fields["type"] = Str(typeName)
	case crush.OpEmit:
	default:
		fields["arg"] = Int(int64(st.Arg))
	}
	return Map(fields)
}

func dumpTunables(t crush.Tunables) Value {
	return Map(map[string]Value{
		"choose_total_tries":          Int(int64(t.ChooseTotalTries)),
		"choose_local_tries":          Int(int64(t.ChooseLocalTries)),
		"choose_local_fallback_tries": Int(int64(t.ChooseLocalFallbackTries)),
		"chooseleaf_descend_once":     Int(int64(t.ChooseleafDescendOnce)),
		"chooseleaf_vary_r":           Int(int64(t.ChooseleafVaryR)),
		"chooseleaf_stable":           Int(int64(t.ChooseleafStable)),
		"straw_calc_version":          Int(int64(t.StrawCalcVersion)),
		"allowed_bucket_algs":         Int(int64(t.AllowedBucketAlgs)),
	})
}
