// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSimpleMap(t *testing.T) *Map {
	t.Helper()
	m := New(Options{})
	m.AddType(1, "host")

	b, err := NewBucket(-1, "host1", 1, AlgStraw2, HashRJenkins1)
	require.NoError(t, err)
	b.AddChild(0, 1<<16)
	b.AddChild(1, 2<<16)

	require.NoError(t, m.AddDevice(0, "osd.0"))
	require.NoError(t, m.AddDevice(1, "osd.1"))
	require.NoError(t, m.AddBucket(b))
	return m
}

func TestFinalizeComputesBucketWeightAndTables(t *testing.T) {
	m := buildSimpleMap(t)
	require.NoError(t, m.Finalize())
	require.True(t, m.Finalized())

	b := m.Buckets[-1]
	require.Equal(t, uint32(3<<16), b.Weight)
}

func TestAddBucketRejectsNonNegativeID(t *testing.T) {
	m := New(Options{})
	_, err := NewBucket(0, "bad", 1, AlgStraw2, HashRJenkins1)
	require.Error(t, err)
	require.Error(t, m.AddBucket(&Bucket{ID: 0, Name: "bad", Type: 1, Alg: AlgStraw2}))
}

func TestAddBucketRejectsDuplicateID(t *testing.T) {
	m := buildSimpleMap(t)
	dup, err := NewBucket(-1, "dup", 1, AlgStraw2, HashRJenkins1)
	require.NoError(t, err)
	require.Error(t, m.AddBucket(dup))
}

func TestAddBucketRejectsDisallowedAlgorithm(t *testing.T) {
	m := New(Options{})
	m.Tunables.AllowedBucketAlgs = 0
	m.AddType(1, "host")
	b, err := NewBucket(-1, "host1", 1, AlgStraw2, HashRJenkins1)
	require.NoError(t, err)
	require.Error(t, m.AddBucket(b))
}

func TestAddDeviceRejectsNegativeOrDuplicate(t *testing.T) {
	m := New(Options{})
	require.Error(t, m.AddDevice(-1, "bad"))
	require.NoError(t, m.AddDevice(0, "osd.0"))
	require.Error(t, m.AddDevice(0, "osd.0-again"))
}

func TestValidateCatchesChildTypeOrderingViolation(t *testing.T) {
	m := New(Options{})
	m.AddType(1, "host")
	m.AddType(2, "rack")

	host, err := NewBucket(-1, "host1", 1, AlgStraw2, HashRJenkins1)
	require.NoError(t, err)
	rack, err := NewBucket(-2, "rack1", 2, AlgStraw2, HashRJenkins1)
	require.NoError(t, err)
	// rack (type 2) wrongly placed under host (type 1): not below parent.
	host.AddChild(-2, 1<<16)
	rack.AddChild(0, 1<<16)

	require.NoError(t, m.AddDevice(0, "osd.0"))
	require.NoError(t, m.AddBucket(rack))
	require.NoError(t, m.AddBucket(host))

	err = m.Finalize()
	require.Error(t, err)
}

func TestRootsReturnsOnlyParentlessBuckets(t *testing.T) {
	m := New(Options{})
	m.AddType(1, "host")
	m.AddType(2, "root")

	host, err := NewBucket(-1, "host1", 1, AlgStraw2, HashRJenkins1)
	require.NoError(t, err)
	host.AddChild(0, 1<<16)
	root, err := NewBucket(-2, "root", 2, AlgStraw2, HashRJenkins1)
	require.NoError(t, err)
	root.AddChild(-1, 1<<16)

	require.NoError(t, m.AddDevice(0, "osd.0"))
	require.NoError(t, m.AddBucket(host))
	require.NoError(t, m.AddBucket(root))
	require.NoError(t, m.Finalize())

	require.Equal(t, []int32{-2}, m.Roots())
}

func TestReweightUpdatesBucketTables(t *testing.T) {
	m := buildSimpleMap(t)
	require.NoError(t, m.Finalize())
	b := m.Buckets[-1]
	require.NoError(t, b.Reweight(0, 5<<16, m.Tunables.StrawCalcVersion))
	require.Equal(t, uint32(5<<16), b.ChildWeights[0])
	require.Equal(t, uint32(7<<16), b.Weight)
}
