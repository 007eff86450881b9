// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceph/go-crush"
)

// buildTwoHostMap builds: root(-1, straw2) -> host1(-2), host2(-3),
// each host holding two equally weighted devices. Rule "replicated"
// takes root, chooses 2 hosts, then chooseleafs 1 device per host.
func buildTwoHostMap(t *testing.T) *crush.Map {
	t.Helper()
	m := crush.New(crush.Options{})
	m.AddType(1, "host")
	m.AddType(2, "root")

	host1, err := crush.NewBucket(-2, "host1", 1, crush.AlgStraw2, crush.HashRJenkins1)
	require.NoError(t, err)
	host1.AddChild(0, 1<<16)
	host1.AddChild(1, 1<<16)

	host2, err := crush.NewBucket(-3, "host2", 1, crush.AlgStraw2, crush.HashRJenkins1)
	require.NoError(t, err)
	host2.AddChild(2, 1<<16)
	host2.AddChild(3, 1<<16)

	root, err := crush.NewBucket(-1, "root", 2, crush.AlgStraw2, crush.HashRJenkins1)
	require.NoError(t, err)
	root.AddChild(-2, 2<<16)
	root.AddChild(-3, 2<<16)

	for i, name := range []string{"osd.0", "osd.1", "osd.2", "osd.3"} {
		require.NoError(t, m.AddDevice(int32(i), name))
	}
	require.NoError(t, m.AddBucket(host1))
	require.NoError(t, m.AddBucket(host2))
	require.NoError(t, m.AddBucket(root))

	rule := &crush.Rule{Name: "replicated", Steps: []crush.Step{
		{Op: crush.OpTake, Root: -1},
		{Op: crush.OpChooseFirstN, Num: 0, Type: 1},
		{Op: crush.OpChooseLeafFirstN, Num: 1, Type: 0},
		{Op: crush.OpEmit},
	}}
	require.NoError(t, m.AddRule(rule))
	require.NoError(t, m.Finalize())
	return m
}

func TestMapPlacesOneDevicePerHost(t *testing.T) {
	m := buildTwoHostMap(t)
	result, err := engineMap(t, m, "replicated", 42, 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.NotEqual(t, result[0], result[1])
	// one result from {0,1} (host1), one from {2,3} (host2)
	inHost1 := result[0] == 0 || result[0] == 1
	inHost2 := result[1] == 2 || result[1] == 3
	require.True(t, inHost1)
	require.True(t, inHost2)
}

func TestMapIsDeterministic(t *testing.T) {
	m := buildTwoHostMap(t)
	a, err := engineMap(t, m, "replicated", 7, 2)
	require.NoError(t, err)
	b, err := engineMap(t, m, "replicated", 7, 2)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestMapRejectsUnfinalizedMap(t *testing.T) {
	m := crush.New(crush.Options{})
	_, err := Map(m, "replicated", 1, 1, nil, nil)
	require.Error(t, err)
}

func TestMapRejectsUnknownRule(t *testing.T) {
	m := buildTwoHostMap(t)
	_, err := Map(m, "bogus", 1, 1, nil, nil)
	require.Error(t, err)
}

func TestMapRejectsNonPositiveReplicaCount(t *testing.T) {
	m := buildTwoHostMap(t)
	_, err := Map(m, "replicated", 1, 0, nil, nil)
	require.Error(t, err)
}

func TestDeviceWeightOverrideExcludesDevice(t *testing.T) {
	m := buildTwoHostMap(t)
	weights := []uint32{1 << 16, 0, 1 << 16, 1 << 16}
	result, err := Map(m, "replicated", 42, 2, weights, nil)
	require.NoError(t, err)
	for _, id := range result {
		require.NotEqual(t, int32(1), id, "device 1 was zero-weighted and must not be placed")
	}
}

func TestWorkSizeScalesWithReplicaCountAndBuckets(t *testing.T) {
	m := buildTwoHostMap(t)
	small := WorkSize(m, 1)
	large := WorkSize(m, 10)
	require.Less(t, small, large)
}

func engineMap(t *testing.T, m *crush.Map, rule string, x int32, replicas int) ([]int32, error) {
	t.Helper()
	return Map(m, rule, x, replicas, nil, nil)
}
