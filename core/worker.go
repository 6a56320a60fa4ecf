// File: core/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One ZT: the dispatcher thread serving a single (cpu, channel) slot. It
// owns its relay handle and both mapped windows exclusively and runs
// operations strictly serially in kernel delivery order.

package core

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/momentics/zus-go/dispatch"
	"github.com/momentics/zus-go/internal/concurrency"
	"github.com/momentics/zus-go/zuf"

	"github.com/momentics/zus-go/api"
)

type ztWorker struct {
	rt      *Runtime
	thr     *concurrency.Thread
	cpu     uint32
	channel uint32

	mu    sync.Mutex // guards conn against the stop path
	conn  api.Conn

	app   []byte
	opBuf []byte
	hdr   *zuf.Hdr // current op header, in place in opBuf

	stop atomic.Bool
}

func (w *ztWorker) setConn(c api.Conn) {
	w.mu.Lock()
	w.conn = c
	w.mu.Unlock()
}

func (w *ztWorker) getConn() api.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

// run is the worker thread body: OPENING → REGISTERED → MAPPED → READY →
// loop → DRAINING. Any failure before READY lands in thr.Err and still
// releases the startup barrier so the pool can collect it.
func (w *ztWorker) run() {
	rt := w.rt
	log := rt.log.Named("zt")

	fail := func(err error) {
		w.thr.Err = err
		log.Error("ZT create failed",
			"cpu", w.cpu, "chan", w.channel, "error", err)
		rt.ztp.wtz.Release()
	}

	conn, err := rt.relay.Open()
	if err != nil {
		fail(err)
		return
	}
	w.setConn(conn)

	if err := conn.RegisterZT(w.cpu, w.channel, zuf.MaxOpSize); err != nil {
		fail(err)
		return
	}

	if w.app, err = conn.Mmap(0, zuf.AppRegionSize); err != nil {
		fail(err)
		return
	}
	if w.opBuf, err = conn.Mmap(zuf.AppRegionSize, zuf.MaxOpSize); err != nil {
		fail(err)
		return
	}
	w.hdr = zuf.HdrOf(w.opBuf)

	log.Debug("ZT init", "cpu", w.cpu, "chan", w.channel)

	rt.ztp.wtz.Release()

	for !w.stop.Load() {
		if err := conn.WaitOp(w.opBuf); err != nil {
			// Do not break; only stop exits the loop. A signal killing an
			// app must not take the channel down with it.
			log.Debug("wait_for_op", "cpu", w.cpu, "chan", w.channel, "error", err)
		}
		ret := dispatch.Do(rt, w.appSlice(), w.opBuf)
		w.hdr.Err = zuf.ErrnoToKernel(ret)
	}

	conn.Munmap(w.opBuf)
	conn.Munmap(w.app)
	conn.Close()
	log.Debug("ZT exit", "cpu", w.cpu, "chan", w.channel)
}

// appSlice returns the payload window of the current op: the app region
// offset by the header, nil when the kernel hands an offset outside the
// mapping.
func (w *ztWorker) appSlice() []byte {
	off := int(w.hdr.Offset)
	if off < 0 || off >= len(w.app) {
		return nil
	}
	return w.app[off:]
}

// SignalPending reports whether the kernel asked to interrupt the op the
// calling worker is currently serving. Only workers may ask; a foreign
// caller is a programmer error and gets false.
func SignalPending() bool {
	t := concurrency.Current()
	if t == nil {
		hclog.L().Warn("signal_pending on a foreign thread")
		return false
	}
	w, ok := t.Owner().(*ztWorker)
	if !ok {
		hclog.L().Warn("signal_pending outside a ZT")
		return false
	}
	return w.hdr.Flags&zuf.HdrIntr != 0
}
