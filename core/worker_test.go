// File: core/worker_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/zuf"
)

func TestSignalPendingInsideWorker(t *testing.T) {
	h := newHarness(t)

	// The read hook asks "did the kernel flag my current op?".
	var observed []bool
	h.backend.IOps.Read = func(app []byte, req *zuf.IO, ii *api.Inode) error {
		observed = append(observed, SignalPending())
		return nil
	}

	h.start(t)
	m := h.mount(t, 1)
	require.Equal(t, int32(0), m.Hdr.Err)
	defer h.rt.Stop()

	buf := zuf.AlignedBuf(zuf.MaxOpSize)
	io := zuf.IOOf(buf)
	*io = zuf.IO{Token: m.RootToken}
	io.Hdr.Operation = zuf.OpRead
	h.exec(t, 0, 0, buf)

	*io = zuf.IO{Token: m.RootToken}
	io.Hdr.Operation = zuf.OpRead
	io.Hdr.Flags = zuf.HdrIntr
	h.exec(t, 0, 0, buf)

	require.Equal(t, []bool{false, true}, observed)
}

func TestSignalPendingOnForeignThread(t *testing.T) {
	// A programmer error, answered with false rather than a crash.
	assert.False(t, SignalPending())
}

func TestWorkerSurvivesWaitErrors(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	m := h.mount(t, 1)
	require.Equal(t, int32(0), m.Hdr.Err)
	defer h.rt.Stop()

	// Break the channel without setting stop: every wait starts failing,
	// but the workers must keep serving until stop says otherwise.
	w := h.rt.ztp.chans[0][0]
	require.NotNil(t, w)
	require.NoError(t, w.getConn().BreakAll())

	time.Sleep(10 * time.Millisecond)

	buf := zuf.AlignedBuf(zuf.MaxOpSize)
	*zuf.HdrOf(buf) = zuf.Hdr{Operation: zuf.OpNull}
	h.exec(t, 0, 0, buf)
	assert.Equal(t, int32(0), zuf.HdrOf(buf).Err)
}
