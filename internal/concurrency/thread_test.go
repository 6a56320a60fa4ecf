// File: internal/concurrency/thread_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency_test

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/fake"
	"github.com/momentics/zus-go/internal/concurrency"
	"github.com/momentics/zus-go/topology"
)

// twoNodeTopo captures a 2-node / 4-CPU snapshot off the fake relay.
func twoNodeTopo(t *testing.T) *topology.Service {
	t.Helper()
	r := fake.NewRelay()
	r.SetTopology([]int{0, 1}, []int{2, 3})

	conn, err := r.Open()
	require.NoError(t, err)
	defer conn.Close()

	topo := topology.New(hclog.NewNullLogger())
	require.NoError(t, topo.Init(conn))
	return topo
}

func TestCreatePinnedThread(t *testing.T) {
	topo := twoNodeTopo(t)
	pinner := fake.NewPinner()

	owner := struct{ tag string }{"owner"}

	p := concurrency.DefaultParams()
	p.Name = "ZT(2.0)"
	p.OneCPU = 2
	p.Owner = &owner
	p.Pinner = pinner

	var (
		insideRec *concurrency.Thread
		insideCPU int
		insideNid int
		insideID  uint64
	)
	thr, err := concurrency.Create(p, topo, func() {
		insideRec = concurrency.Current()
		insideCPU = concurrency.CurrentCPU(topo)
		insideNid = concurrency.CurrentNid(topo)
		insideID = concurrency.SelfID()
	})
	require.NoError(t, err)
	thr.Join()

	assert.Same(t, thr, insideRec)
	assert.Equal(t, 2, insideCPU)
	assert.Equal(t, 1, insideNid) // cpu 2 lives on node 1
	assert.Equal(t, thr.ID(), insideID)
	assert.Equal(t, 2, thr.OneCPU())
	assert.Equal(t, 1, thr.Nid())
	assert.Same(t, &owner, thr.Owner())

	assert.Equal(t, []int{2}, pinner.PinnedCPUs())
	assert.Equal(t, []string{"ZT(2.0)"}, pinner.Names())
}

func TestCreateRejectsDoublePlacement(t *testing.T) {
	topo := twoNodeTopo(t)

	p := concurrency.DefaultParams()
	p.OneCPU = 1
	p.Nid = 1
	p.Pinner = fake.NewPinner()

	_, err := concurrency.Create(p, topo, func() {})
	require.Error(t, err)
}

func TestCreateReportsPinFailureSynchronously(t *testing.T) {
	topo := twoNodeTopo(t)
	pinner := fake.NewPinner()
	pinner.FailOnCPU(3)

	p := concurrency.DefaultParams()
	p.OneCPU = 3
	p.Pinner = pinner

	ran := false
	_, err := concurrency.Create(p, topo, func() { ran = true })
	require.Error(t, err)
	assert.False(t, ran, "body must not run after a setup failure")
}

func TestNodePinnedThread(t *testing.T) {
	topo := twoNodeTopo(t)

	p := concurrency.DefaultParams()
	p.Nid = 1
	p.Pinner = fake.NewPinner()

	var nid int
	thr, err := concurrency.Create(p, topo, func() {
		nid = concurrency.CurrentNid(topo)
	})
	require.NoError(t, err)
	thr.Join()

	assert.Equal(t, 1, nid)
	assert.Equal(t, concurrency.CPUAll, thr.OneCPU())
}

func TestAdoptReleaseRoundTrip(t *testing.T) {
	topo := twoNodeTopo(t)

	done := make(chan error, 1)
	go func() {
		first, err := concurrency.Adopt(topo)
		if err != nil {
			done <- err
			return
		}

		// Idempotence guard: a second adopt on the same thread fails.
		if _, err := concurrency.Adopt(topo); err != api.ErrAlreadyAdopted {
			done <- err
			return
		}
		if concurrency.Current() != first {
			done <- assert.AnError
			return
		}

		concurrency.Release()

		// adopt(); release(); adopt() succeeds.
		if _, err := concurrency.Adopt(topo); err != nil {
			done <- err
			return
		}
		concurrency.Release()
		done <- nil
	}()
	require.NoError(t, <-done)
}

func TestForeignThreadQueries(t *testing.T) {
	topo := twoNodeTopo(t)

	assert.Nil(t, concurrency.Current())
	assert.Zero(t, concurrency.SelfID())
	assert.Nil(t, concurrency.Private())
	concurrency.SetPrivate("dropped") // no record, no-op
	assert.Nil(t, concurrency.Private())

	// Foreign queries degrade to scheduler answers, never crash.
	assert.GreaterOrEqual(t, concurrency.CurrentCPUSilent(topo), 0)
	assert.GreaterOrEqual(t, concurrency.CurrentNid(topo), 0)
}

func TestThreadPrivateSlot(t *testing.T) {
	topo := twoNodeTopo(t)

	p := concurrency.DefaultParams()
	p.Pinner = fake.NewPinner()

	var got any
	thr, err := concurrency.Create(p, topo, func() {
		concurrency.SetPrivate(42)
		got = concurrency.Private()
	})
	require.NoError(t, err)
	thr.Join()
	assert.Equal(t, 42, got)
}
