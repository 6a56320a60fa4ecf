// File: topology/topology_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology_test

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/fake"
	"github.com/momentics/zus-go/topology"
)

func capture(t *testing.T, cpusPerNode ...[]int) *topology.Service {
	t.Helper()
	r := fake.NewRelay()
	r.SetTopology(cpusPerNode...)

	conn, err := r.Open()
	require.NoError(t, err)
	defer conn.Close()

	topo := topology.New(hclog.NewNullLogger())
	require.NoError(t, topo.Init(conn))
	return topo
}

func TestEveryOnlineCPUHasExactlyOneNode(t *testing.T) {
	topo := capture(t, []int{0, 1}, []int{2, 3})

	for cpu := 0; cpu < topo.PossibleCPUs(); cpu++ {
		if !topo.IsOnline(cpu) {
			continue
		}
		owners := 0
		for node := 0; node < topo.PossibleNodes(); node++ {
			mask, ok := topo.NodeMask(node)
			require.True(t, ok)
			if mask.IsSet(cpu) {
				owners++
			}
		}
		assert.Equal(t, 1, owners, "cpu %d", cpu)
	}
}

func TestCPUToNode(t *testing.T) {
	topo := capture(t, []int{0, 1}, []int{2, 3})

	assert.Equal(t, 0, topo.CPUToNode(0))
	assert.Equal(t, 0, topo.CPUToNode(1))
	assert.Equal(t, 1, topo.CPUToNode(2))
	assert.Equal(t, 1, topo.CPUToNode(3))

	// Misprogrammed callers degrade to node 0, they do not crash.
	assert.Equal(t, 0, topo.CPUToNode(-1))
	assert.Equal(t, 0, topo.CPUToNode(99))
}

func TestOfflineHole(t *testing.T) {
	// CPU 1 is possible (index below possible_cpus) but in no node mask.
	topo := capture(t, []int{0}, []int{2, 3})

	assert.True(t, topo.IsOnline(0))
	assert.False(t, topo.IsOnline(1))
	assert.True(t, topo.IsOnline(2))
	assert.Equal(t, 4, topo.PossibleCPUs())
	assert.Equal(t, 3, topo.OnlineCPUs())
	assert.Equal(t, 0, topo.CPUToNode(1)) // offline: yell, answer 0
}

func TestIterationOrder(t *testing.T) {
	topo := capture(t, []int{0, 3}, []int{1, 2})

	var seen []int
	topo.ForEachOnline(func(cpu int) { seen = append(seen, cpu) })
	assert.Equal(t, []int{0, 1, 2, 3}, seen)

	mask := topo.OnlineMask()
	assert.Equal(t, 0, topo.NextOnline(-1, &mask))
	assert.Equal(t, 3, topo.NextOnline(2, &mask))
	assert.Equal(t, -1, topo.NextOnline(3, &mask))
}

func TestReinitRejected(t *testing.T) {
	r := fake.NewRelay()
	r.SetTopology([]int{0, 1})

	conn, err := r.Open()
	require.NoError(t, err)
	defer conn.Close()

	topo := topology.New(hclog.NewNullLogger())
	require.NoError(t, topo.Init(conn))
	assert.ErrorIs(t, topo.Init(conn), api.ErrTopologyReinit)
}
