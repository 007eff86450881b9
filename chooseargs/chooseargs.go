// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chooseargs manages named collections of per-bucket placement
// overrides ("choose-args"): alternate weight vectors and alternate
// positional hash ids, attached to a Map without mutating it. The
// low-level mechanism (crush.ChooseArg, consulted directly by
// Bucket.Choose) lives in the root package to avoid a cycle; this
// package owns building, validating, and naming collections of them.
package chooseargs

import (
	"fmt"
	"sort"

	"github.com/ceph/go-crush"
	"github.com/ceph/go-crush/crusherr"
)

// Entry is one bucket's override, keyed by the bucket it applies to.
type Entry struct {
	BucketID  int32
	IDs       []int32
	WeightSet [][]uint32
}

// Set is a named collection of per-bucket overrides, resolvable to the
// map-indexed form Bucket.Choose consumes.
type Set struct {
	Name    string
	Entries map[int32]Entry
}

// NewSet returns an empty, named choose-arg set.
func NewSet(name string) *Set {
	return &Set{Name: name, Entries: make(map[int32]Entry)}
}

// Add validates entry against m (weight_set row length and ids length
// must equal the bucket's child count) and installs it.
func (s *Set) Add(m *crush.Map, entry Entry) error {
	b, ok := m.Buckets[entry.BucketID]
	if !ok {
		return crusherr.Wrapf(crusherr.NotFound, "choose_args %q: bucket %d", s.Name, entry.BucketID)
	}
	n := b.Size()
	if entry.IDs != nil && len(entry.IDs) != n {
		return crusherr.Wrapf(crusherr.InvariantViolation,
			"choose_args %q: bucket %d: ids length %d != child count %d", s.Name, entry.BucketID, len(entry.IDs), n)
	}
	for pos, row := range entry.WeightSet {
		if len(row) != n {
			return crusherr.Wrapf(crusherr.InvariantViolation,
				"choose_args %q: bucket %d: weight_set[%d] length %d != child count %d", s.Name, entry.BucketID, pos, len(row), n)
		}
	}
	s.Entries[entry.BucketID] = entry
	return nil
}

// Resolve builds the map[bucket id]*crush.ChooseArg the engine package
// consumes directly.
func (s *Set) Resolve() map[int32]*crush.ChooseArg {
	out := make(map[int32]*crush.ChooseArg, len(s.Entries))
	for id, e := range s.Entries {
		out[id] = &crush.ChooseArg{IDs: e.IDs, WeightSet: e.WeightSet}
	}
	return out
}

// Neutral reports whether s has no effect on m: every entry's
// weight_set (if any) matches the bucket's own child weights and every
// ids vector (if any) is the identity.
func (s *Set) Neutral(m *crush.Map) bool {
	for id, e := range s.Entries {
		b, ok := m.Buckets[id]
		if !ok {
			return false
		}
		for i, realID := range e.IDs {
			if realID != b.Children[i] {
				return false
			}
		}
		for _, row := range e.WeightSet {
			for i, w := range row {
				if w != b.ChildWeights[i] {
					return false
				}
			}
		}
	}
	return true
}

// Library keeps named Sets, mirroring the loader's choose_args table:
// a map from user key to a list of per-bucket entries.
type Library struct {
	sets map[string]*Set
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{sets: make(map[string]*Set)}
}

// Attach installs s, replacing any existing set under the same name.
func (l *Library) Attach(s *Set) {
	l.sets[s.Name] = s
}

// Detach removes the named set, if any.
func (l *Library) Detach(name string) {
	delete(l.sets, name)
}

// Names returns every set name in the library, sorted, for
// deterministic iteration (the wire codec's choose-args block).
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.sets))
	for name := range l.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName resolves a choose-args name to its set.
func (l *Library) ByName(name string) (*Set, error) {
	s, ok := l.sets[name]
	if !ok {
		return nil, crusherr.Wrapf(crusherr.NotFound, "choose_args %q", name)
	}
	return s, nil
}

// String renders the library's set names, for diagnostics.
func (l *Library) String() string {
	return fmt.Sprintf("chooseargs.Library{%d sets}", len(l.sets))
}
