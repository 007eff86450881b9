// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package chooseargs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceph/go-crush"
)

func twoChildBucket(t *testing.T) *crush.Map {
	m := crush.New(crush.Options{})
	m.AddType(1, "host")
	b, err := crush.NewBucket(-1, "h", 1, crush.AlgStraw2, crush.HashRJenkins1)
	require.NoError(t, err)
	b.AddChild(0, 1<<16)
	b.AddChild(1, 1<<16)
	require.NoError(t, m.AddDevice(0, "osd.0"))
	require.NoError(t, m.AddDevice(1, "osd.1"))
	require.NoError(t, m.AddBucket(b))
	require.NoError(t, m.Finalize())
	return m
}

func TestAddRejectsWrongWeightSetLength(t *testing.T) {
	m := twoChildBucket(t)
	s := NewSet("x")
	err := s.Add(m, Entry{BucketID: -1, WeightSet: [][]uint32{{1 << 16}}})
	require.Error(t, err)
}

func TestAddRejectsWrongIDsLength(t *testing.T) {
	m := twoChildBucket(t)
	s := NewSet("x")
	err := s.Add(m, Entry{BucketID: -1, IDs: []int32{5}})
	require.Error(t, err)
}

func TestAddRejectsUnknownBucket(t *testing.T) {
	m := twoChildBucket(t)
	s := NewSet("x")
	err := s.Add(m, Entry{BucketID: -99})
	require.Error(t, err)
}

func TestNeutralDetectsIdentityOverride(t *testing.T) {
	m := twoChildBucket(t)
	s := NewSet("x")
	require.NoError(t, s.Add(m, Entry{
		BucketID:  -1,
		IDs:       []int32{0, 1},
		WeightSet: [][]uint32{{1 << 16, 1 << 16}},
	}))
	require.True(t, s.Neutral(m))
}

func TestNeutralDetectsRealOverride(t *testing.T) {
	m := twoChildBucket(t)
	s := NewSet("x")
	require.NoError(t, s.Add(m, Entry{
		BucketID:  -1,
		WeightSet: [][]uint32{{1 << 16, 0}},
	}))
	require.False(t, s.Neutral(m))
}

func TestResolveBuildsEngineFacingMap(t *testing.T) {
	m := twoChildBucket(t)
	s := NewSet("x")
	require.NoError(t, s.Add(m, Entry{BucketID: -1, WeightSet: [][]uint32{{1 << 16, 0}}}))
	resolved := s.Resolve()
	require.Contains(t, resolved, int32(-1))
	require.Equal(t, [][]uint32{{1 << 16, 0}}, resolved[-1].WeightSet)
}

func TestLibraryAttachDetachNamesByName(t *testing.T) {
	lib := NewLibrary()
	require.Empty(t, lib.Names())

	lib.Attach(NewSet("b"))
	lib.Attach(NewSet("a"))
	require.Equal(t, []string{"a", "b"}, lib.Names())

	s, err := lib.ByName("a")
	require.NoError(t, err)
	require.Equal(t, "a", s.Name)

	_, err = lib.ByName("missing")
	require.Error(t, err)

	lib.Detach("a")
	require.Equal(t, []string{"b"}, lib.Names())
}
