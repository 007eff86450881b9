// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ceph/go-crush/crusherr"
)

// TypeDef names one level of the bucket hierarchy (row/rack/host/...).
type TypeDef struct {
	ID   int32
	Name string
}

// parentLink records where a child sits in one of its parents: Roots
// uses it to find parentless buckets, and it lets a "what breaks if I
// remove this device" query walk upward. Stored as an arena indexed
// by child id rather than as pointers, because a bucket or device
// attached via a loader reference can have more than one parent.
type parentLink struct {
	ParentID int32
	Position int
}

// Options configure a new Map.
type Options struct {
	Verbose               bool
	BackwardCompatibility bool
	Logger                *zap.Logger
}

// Map is the in-memory placement model: typed buckets, devices, rules,
// and tunables, plus the derived tables finalization builds. A Map is
// constructed append-only by a loader, then finalized; after
// finalization it is read-only through the mapping interface.
type Map struct {
	Options Options

	Types   []TypeDef
	typeIDs map[string]int32

	Buckets map[int32]*Bucket
	Devices map[int32]*Device

	Rules   map[string]*Rule
	ruleIDs map[int32]*Rule

	Tunables Tunables

	parents    map[int32][]parentLink
	finalized  bool
	maxBucket  int32 // most negative bucket id in use so far (0 when none); NextBucketID allocates below it
	maxDevice  int32
}

// New returns an empty Map ready for a loader to populate.
func New(opts Options) *Map {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Map{
		Options:  opts,
		typeIDs:  make(map[string]int32),
		Buckets:  make(map[int32]*Bucket),
		Devices:  make(map[int32]*Device),
		Rules:    make(map[string]*Rule),
		ruleIDs:  make(map[int32]*Rule),
		Tunables: DefaultTunables(),
		parents:  make(map[int32][]parentLink),
		maxBucket: 0,
		maxDevice: -1,
	}
}

// AddType registers (or looks up) a named hierarchy level.
func (m *Map) AddType(id int32, name string) {
	if existing, ok := m.typeIDs[name]; ok && existing == id {
		return
	}
	m.typeIDs[name] = id
	m.Types = append(m.Types, TypeDef{ID: id, Name: name})
}

// TypeID resolves a type name to its id.
func (m *Map) TypeID(name string) (int32, bool) {
	id, ok := m.typeIDs[name]
	return id, ok
}

// NextBucketID allocates the next free (most negative) bucket id.
func (m *Map) NextBucketID() int32 {
	m.maxBucket--
	for m.Buckets[m.maxBucket] != nil {
		m.maxBucket--
	}
	return m.maxBucket
}

// AddBucket registers b, indexed by b.ID. Children are attached to b
// before or after this call; b is not usable for placement until the
// Map is finalized.
func (m *Map) AddBucket(b *Bucket) error {
	if b.ID >= 0 {
		return crusherr.Wrapf(crusherr.InvalidInput, "bucket %q: id %d must be negative", b.Name, b.ID)
	}
	if _, exists := m.Buckets[b.ID]; exists {
		return crusherr.Wrapf(crusherr.InvariantViolation, "duplicate bucket id %d", b.ID)
	}
	if !m.Tunables.AlgAllowed(b.Alg) {
		return crusherr.Wrapf(crusherr.NotAllowed, "bucket %q: algorithm %s disabled by allowed_bucket_algs", b.Name, b.Alg)
	}
	m.Buckets[b.ID] = b
	if b.ID < m.maxBucket {
		m.maxBucket = b.ID
	}
	m.finalized = false
	return nil
}

// AddDevice registers a leaf device. id must be non-negative and
// unique across all devices in the map.
func (m *Map) AddDevice(id int32, name string) error {
	if id < 0 {
		return crusherr.Wrapf(crusherr.InvalidInput, "device %q: id %d must be non-negative", name, id)
	}
	if _, exists := m.Devices[id]; exists {
		return crusherr.Wrapf(crusherr.InvariantViolation, "duplicate device id %d", id)
	}
	m.Devices[id] = &Device{ID: id, Name: name}
	if id > m.maxDevice {
		m.maxDevice = id
	}
	m.finalized = false
	return nil
}

// DeviceByName resolves a device name to its record.
func (m *Map) DeviceByName(name string) (*Device, bool) {
	for _, d := range m.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// BucketByName resolves a bucket name to its record.
func (m *Map) BucketByName(name string) (*Bucket, bool) {
	for _, b := range m.Buckets {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// AddRule registers r under r.Name. Step ordering (TAKE precedes
// CHOOSE* precedes a terminating EMIT) is checked by Validate,
// not here, so a loader can build a rule's steps incrementally.
func (m *Map) AddRule(r *Rule) error {
	if _, exists := m.Rules[r.Name]; exists {
		return crusherr.Wrapf(crusherr.InvariantViolation, "duplicate rule name %q", r.Name)
	}
	m.Rules[r.Name] = r
	m.ruleIDs[r.ID] = r
	return nil
}

// RuleByName resolves a rule name to its record.
func (m *Map) RuleByName(name string) (*Rule, bool) {
	r, ok := m.Rules[name]
	return r, ok
}

// MaxDeviceID returns the highest device id registered, or -1 if none.
func (m *Map) MaxDeviceID() int32 {
	return m.maxDevice
}

// HighestDeviceID is an alias for MaxDeviceID: engine.Map's weights
// slice must have length >= HighestDeviceID()+1.
func (m *Map) HighestDeviceID() int32 { return m.MaxDeviceID() }

// Finalize builds the derived tables: every bucket's algorithm-specific
// tables (straws, cumulative sums, uniform step) and the child->parent
// arena. It must run (and succeed) before Map is used for placement.
func (m *Map) Finalize() error {
	m.parents = make(map[int32][]parentLink)
	for id := range m.Buckets {
		b := m.Buckets[id]
		if err := b.Rebuild(m.Tunables.StrawCalcVersion); err != nil {
			m.Options.Logger.Warn("bucket table rebuild failed",
				zap.String("bucket", b.Name), zap.Error(err))
			return crusherr.WrapCause(crusherr.InvariantViolation, err, fmt.Sprintf("bucket %q", b.Name))
		}
	}
	for id := range m.Buckets {
		b := m.Buckets[id]
		for pos, child := range b.Children {
			m.parents[child] = append(m.parents[child], parentLink{ParentID: b.ID, Position: pos})
		}
	}
	if err := m.Validate(); err != nil {
		m.Options.Logger.Warn("finalize: validation failed", zap.Error(err))
		return err
	}
	m.finalized = true
	m.Options.Logger.Info("map finalized",
		zap.Int("buckets", len(m.Buckets)), zap.Int("devices", len(m.Devices)), zap.Int("rules", len(m.Rules)))
	return nil
}

// Finalized reports whether Finalize has succeeded since the last
// structural change.
func (m *Map) Finalized() bool { return m.finalized }

// Validate checks the map's structural invariants: every child exists,
// every child bucket has a type id lower than its parent's, no child
// weight exceeds a summed bucket weight, (for list buckets) the
// cumulative sum table is monotonically non-decreasing, and every rule's
// steps are in order. A child bucket's type only has to be lower than
// its parent's; it is not required to be the next level down. Id signs
// are not checked here (AddBucket and AddDevice reject wrong signs).
// It is run automatically at the end of Finalize and by the
// wire encoder before writing a map, so an inconsistent map is never
// serialized.
func (m *Map) Validate() error {
	var errs crusherr.Errs

	typeOf := func(child int32) (int32, bool) {
		if child >= 0 {
			if d, ok := m.Devices[child]; ok {
				_ = d
				return -1, true // devices have no declared type level; any parent type is fine above a leaf
			}
			return 0, false
		}
		if b, ok := m.Buckets[child]; ok {
			return b.Type, true
		}
		return 0, false
	}

	for _, b := range m.Buckets {
		for i, child := range b.Children {
			childType, known := typeOf(child)
			if !known {
				errs.Add(crusherr.Wrapf(crusherr.InvariantViolation,
					"bucket %q: child %d at position %d does not exist", b.Name, child, i))
				continue
			}
			if child < 0 && childType >= b.Type {
				errs.Add(crusherr.Wrapf(crusherr.InvariantViolation,
					"bucket %q (type %d): child bucket %d has type %d, not below parent",
					b.Name, b.Type, child, childType))
			}
			if w := b.ChildWeights[i]; w > b.Weight && !b.HasBucketWeight {
				// unreachable given Rebuild sums weights itself, kept as a
				// belt-and-suspenders structural check for loader-built data.
				errs.Add(crusherr.Wrapf(crusherr.InvariantViolation,
					"bucket %q: child weight %d exceeds bucket weight %d", b.Name, w, b.Weight))
			}
		}
		if b.Alg == AlgList {
			for i := 1; i < len(b.cumWeights); i++ {
				if b.cumWeights[i] < b.cumWeights[i-1] {
					errs.Add(crusherr.Wrapf(crusherr.InvariantViolation,
						"bucket %q: list sum_weights not monotonic at %d", b.Name, i))
					break
				}
			}
		}
	}

	for _, r := range m.Rules {
		if err := validateRuleSteps(r); err != nil {
			errs.Add(err)
		}
	}

	return errs.Err()
}

func validateRuleSteps(r *Rule) error {
	tookRoot := false
	emitted := false
	for i, s := range r.Steps {
		switch s.Op {
		case OpTake:
			tookRoot = true
		case OpChooseFirstN, OpChooseIndep, OpChooseLeafFirstN, OpChooseLeafIndep:
			if !tookRoot {
				return crusherr.Wrapf(crusherr.InvariantViolation,
					"rule %q: step %d (%s) before any TAKE", r.Name, i, opName(s.Op))
			}
		case OpEmit:
			if !tookRoot {
				return crusherr.Wrapf(crusherr.InvariantViolation, "rule %q: EMIT before any TAKE", r.Name)
			}
			emitted = true
			tookRoot = false
		case OpSetChooseTries, OpSetChooseLeafTries,
			OpSetChooseLocalTries, OpSetChooseLocalFallbackTries,
			OpSetChooseLeafVaryR, OpSetChooseLeafStable:
			// no ordering constraint
		default:
			return crusherr.Wrapf(crusherr.InvariantViolation, "rule %q: unknown opcode at step %d", r.Name, i)
		}
	}
	if len(r.Steps) > 0 && (!emitted || tookRoot) {
		return crusherr.Wrapf(crusherr.InvariantViolation, "rule %q: missing terminating EMIT", r.Name)
	}
	return nil
}

func opName(op Opcode) string {
	switch op {
	case OpTake:
		return "TAKE"
	case OpChooseFirstN:
		return "CHOOSE_FIRSTN"
	case OpChooseIndep:
		return "CHOOSE_INDEP"
	case OpChooseLeafFirstN:
		return "CHOOSELEAF_FIRSTN"
	case OpChooseLeafIndep:
		return "CHOOSELEAF_INDEP"
	case OpEmit:
		return "EMIT"
	default:
		return "SET_*"
	}
}

// SortedTypeNames returns hierarchy level names ordered by id, for dump
// output stability.
func (m *Map) SortedTypeNames() []TypeDef {
	out := append([]TypeDef(nil), m.Types...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Roots returns the ids of buckets with no recorded parent: the entry
// points a dumper walks to reconstruct the loader's "trees" list.
func (m *Map) Roots() []int32 {
	var roots []int32
	for id := range m.Buckets {
		if len(m.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] > roots[j] })
	return roots
}

// TypeName resolves a type id back to its name, for dump output.
func (m *Map) TypeName(id int32) (string, bool) {
	for _, t := range m.Types {
		if t.ID == id {
			return t.Name, true
		}
	}
	return "", false
}
