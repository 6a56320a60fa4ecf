// File: core/runtime_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lifecycle scenarios against the fake relay: start/stop, affinity,
// routing through live workers, and bounded shutdown.

package core

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/fake"
	"github.com/momentics/zus-go/zuf"
)

type harness struct {
	rt      *Runtime
	relay   *fake.Relay
	backend *fake.Backend
	pinner  *fake.Pinner

	notified bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		relay:   fake.NewRelay(),
		backend: fake.NewBackend("testfs"),
		pinner:  fake.NewPinner(),
	}
	h.relay.SetTopology([]int{0, 1}, []int{2, 3})

	rt, err := New(Options{
		Relay:       h.relay,
		Logger:      hclog.NewNullLogger(),
		Filesystems: []*api.FSInfo{h.backend.FS},
		Pinner:      h.pinner,
		Notify:      func() { h.notified = true },
	})
	require.NoError(t, err)
	h.rt = rt
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.rt.Start())
	require.Eventually(t, func() bool {
		return h.relay.FSToken("testfs") != 0
	}, time.Second, time.Millisecond, "filesystem never registered")
}

// mount pushes a MOUNT event and waits for the reply.
func (h *harness) mount(t *testing.T, channels uint32) *zuf.Mount {
	t.Helper()

	buf := zuf.AlignedBuf(zuf.MaxOpSize)
	m := zuf.MountOf(buf)
	*m = zuf.Mount{
		FSToken:     h.relay.FSToken("testfs"),
		SBID:        1,
		PmemKernID:  1,
		NumChannels: channels,
	}
	m.Hdr.Operation = zuf.MMount

	op := h.relay.PushMount(buf)
	select {
	case <-op.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("mount event never completed")
	}
	return m
}

// exec pushes one op at a worker and waits for the round trip.
func (h *harness) exec(t *testing.T, channel, cpu uint32, buf []byte) {
	t.Helper()
	op, ok := h.relay.PushOp(channel, cpu, buf)
	require.True(t, ok, "no worker at (%d.%d)", channel, cpu)
	select {
	case <-op.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("op never completed")
	}
}

func TestStartStopOneChannel(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	m := h.mount(t, 1)
	require.Equal(t, int32(0), m.Hdr.Err)
	require.NotZero(t, m.SBToken)
	assert.True(t, h.notified)

	// One READY worker per online CPU.
	assert.Equal(t, uint32(1), h.rt.Channels())
	for _, cpu := range []uint32{0, 1, 2, 3} {
		assert.True(t, h.relay.WorkerRegistered(0, cpu), "cpu %d", cpu)
	}

	done := make(chan struct{})
	go func() {
		h.rt.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() exceeded its bound with blocked workers")
	}

	// No worker thread survives and the pool is fully reset.
	assert.Equal(t, uint32(0), h.rt.Channels())
	for _, cpu := range []uint32{0, 1, 2, 3} {
		assert.False(t, h.relay.WorkerRegistered(0, cpu), "cpu %d", cpu)
	}
}

func TestAffinityPlacement(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	m := h.mount(t, 2)
	require.Equal(t, int32(0), m.Hdr.Err)

	// Every worker carries the identity of its slot.
	for c := uint32(0); c < 2; c++ {
		for _, cpu := range []int{0, 1, 2, 3} {
			w := h.rt.ztp.chans[c][cpu]
			require.NotNil(t, w, "worker %d.%d", cpu, c)
			assert.Equal(t, cpu, w.thr.OneCPU())
			assert.Equal(t, h.rt.topo.CPUToNode(cpu), w.thr.Nid())
		}
	}

	// The pinner saw each CPU once per channel, ascending within each.
	pins := h.pinner.PinnedCPUs()
	require.Len(t, pins, 8)
	assert.Equal(t, []int{0, 1, 2, 3}, pins[:4])
	assert.Equal(t, []int{0, 1, 2, 3}, pins[4:])

	names := h.pinner.Names()
	assert.Contains(t, names, "zus_mounter")
	assert.Contains(t, names, "ZT(0.0)")
	assert.Contains(t, names, "ZT(3.1)")

	h.rt.Stop()
}

func TestOperationRoutingThroughWorker(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	m := h.mount(t, 1)
	require.Equal(t, int32(0), m.Hdr.Err)
	defer h.rt.Stop()

	// NEW_INODE under the mounted root.
	buf := zuf.AlignedBuf(zuf.MaxOpSize)
	ni := zuf.NewInodeOf(buf)
	*ni = zuf.NewInode{DirToken: m.RootToken}
	ni.Hdr.Operation = zuf.OpNewInode
	ni.Name.Set("f")
	h.exec(t, 0, 0, buf)
	require.Equal(t, int32(0), ni.Hdr.Err)
	fileTok := ni.NewToken
	require.NotZero(t, fileTok)

	io := zuf.IOOf(buf)
	*io = zuf.IO{Token: fileTok}
	io.Hdr.Operation = zuf.OpWrite
	h.exec(t, 0, 1, buf)
	require.Equal(t, int32(0), io.Hdr.Err)

	*io = zuf.IO{Token: fileTok}
	io.Hdr.Operation = zuf.OpRead
	h.exec(t, 0, 2, buf)
	require.Equal(t, int32(0), io.Hdr.Err)

	ev := zuf.EvictOf(buf)
	*ev = zuf.EvictInode{Token: fileTok}
	ev.Hdr.Operation = zuf.OpEvictInode
	h.exec(t, 0, 3, buf)
	require.Equal(t, int32(0), ev.Hdr.Err)

	// BREAK is absorbed; the worker keeps serving.
	*zuf.HdrOf(buf) = zuf.Hdr{Operation: zuf.OpBreak}
	h.exec(t, 0, 0, buf)
	require.Equal(t, int32(0), zuf.HdrOf(buf).Err)

	*zuf.HdrOf(buf) = zuf.Hdr{Operation: zuf.OpNull}
	h.exec(t, 0, 0, buf)
	require.Equal(t, int32(0), zuf.HdrOf(buf).Err)

	assert.Equal(t, 1, h.backend.Counters.Get("new_inode"))
	assert.Equal(t, 1, h.backend.Counters.Get("write"))
	assert.Equal(t, 1, h.backend.Counters.Get("read"))
	assert.Equal(t, 1, h.backend.Counters.Get("evict"))
}

func TestPoolRestart(t *testing.T) {
	h := newHarness(t)

	conn, err := h.relay.Open()
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, h.rt.topo.Init(conn))

	require.NoError(t, h.rt.startAllWorkers(1))
	assert.Equal(t, uint32(1), h.rt.Channels())
	h.rt.stopAllWorkers()
	assert.Equal(t, uint32(0), h.rt.Channels())

	// stop() clears pool state fully; a wider restart works.
	require.NoError(t, h.rt.startAllWorkers(2))
	assert.Equal(t, uint32(2), h.rt.Channels())

	// Second start while running is refused.
	assert.ErrorIs(t, h.rt.startAllWorkers(1), api.ErrPoolRunning)

	h.rt.stopAllWorkers()
}

func TestWorkerInitFailureAbortsStart(t *testing.T) {
	h := newHarness(t)

	conn, err := h.relay.Open()
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, h.rt.topo.Init(conn))

	h.pinner.FailOnCPU(2)
	err = h.rt.startAllWorkers(1)
	require.Error(t, err)

	// The failed start left nothing behind.
	assert.Equal(t, uint32(0), h.rt.Channels())
	for _, cpu := range []uint32{0, 1, 2, 3} {
		assert.False(t, h.relay.WorkerRegistered(0, cpu))
	}
}

func TestUmountAndDdbg(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	m := h.mount(t, 1)
	require.Equal(t, int32(0), m.Hdr.Err)
	defer h.rt.Stop()

	// DDBG write then read round trip.
	buf := zuf.AlignedBuf(zuf.MaxOpSize)
	d := zuf.MountOf(buf)
	*d = zuf.Mount{}
	d.Hdr.Operation = zuf.MDdbgWrite
	n := copy(d.Ddbg.Buf[:], "mask=0x3")
	d.Ddbg.Len = uint64(n)

	op := h.relay.PushMount(buf)
	<-op.Done()
	require.Equal(t, int32(0), d.Hdr.Err)

	*d = zuf.Mount{}
	d.Hdr.Operation = zuf.MDdbgRead
	op = h.relay.PushMount(buf)
	<-op.Done()
	require.Equal(t, int32(0), d.Hdr.Err)
	assert.Contains(t, string(d.Ddbg.Buf[:d.Ddbg.Len]), "mask=0x3")

	// UMOUNT releases the superblock binding.
	um := zuf.MountOf(buf)
	*um = zuf.Mount{SBToken: m.SBToken}
	um.Hdr.Operation = zuf.MUmount
	op = h.relay.PushMount(buf)
	<-op.Done()
	require.Equal(t, int32(0), um.Hdr.Err)
	assert.Equal(t, 1, h.backend.Counters.Get("sbi_fini"))
}
