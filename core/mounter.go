// File: core/mounter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The mount controller: a single thread that captures topology, registers
// the filesystems, reports readiness, and then serves mount-channel
// events. The first MOUNT sizes and starts the worker grid.

package core

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/control"
	"github.com/momentics/zus-go/dispatch"
	"github.com/momentics/zus-go/internal/concurrency"
	"github.com/momentics/zus-go/pool"
	"github.com/momentics/zus-go/zuf"
)

type mounter struct {
	thr  *concurrency.Thread
	stop atomic.Bool

	mu   sync.Mutex
	conn api.Conn

	err error
}

func (m *mounter) setConn(c api.Conn) {
	m.mu.Lock()
	m.conn = c
	m.mu.Unlock()
}

func (m *mounter) getConn() api.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// mountLoop is the mount controller body.
func (rt *Runtime) mountLoop() {
	m := &rt.mnt

	buf, err := pool.AllocAligned(zuf.MaxOpSize)
	if err != nil {
		m.err = err
		rt.log.Error("mount scratch buffer", "error", err)
		return
	}
	defer pool.FreeAligned(buf)

	conn, err := rt.relay.Open()
	if err != nil {
		m.err = err
		rt.log.Error("mount relay open", "error", err)
		return
	}
	m.setConn(conn)
	defer func() {
		m.setConn(nil)
		conn.Close()
	}()

	rt.log.Info("mount thread running", "root", rt.cfg.RootPath)

	if err := rt.topo.Init(conn); err != nil {
		m.err = err
		rt.log.Error("numa map init", "error", err)
		return
	}

	if err := rt.registerAll(conn); err != nil {
		m.err = err
		rt.log.Error("filesystem registration", "error", err)
		return
	}

	rt.notify()

	for !m.stop.Load() {
		if err := conn.ReceiveMount(buf); err != nil || m.stop.Load() {
			if err != nil && !m.stop.Load() {
				m.err = err
				rt.log.Error("receive_mount", "error", err)
			}
			break
		}

		zim := zuf.MountOf(buf)
		op := zim.Hdr.Operation

		if op == zuf.MMount && rt.ztp.channels == 0 {
			if err := rt.startAllWorkers(zim.NumChannels); err != nil {
				rt.log.Error("worker grid start",
					"channels", zim.NumChannels, "error", err)
				zim.Hdr.Err = zuf.ErrnoToKernel(dispatch.Errno(err))
				continue
			}
		}

		var ret int32
		switch op {
		case zuf.MMount:
			ret = dispatch.Mount(rt, zim)
		case zuf.MUmount:
			ret = dispatch.Umount(rt, zim)
		case zuf.MRemount:
			ret = dispatch.Remount(rt, zim)
		case zuf.MDdbgRead:
			ret = dispatch.Errno(control.DdbgRead(&zim.Ddbg))
		case zuf.MDdbgWrite:
			ret = dispatch.Errno(control.DdbgWrite(&zim.Ddbg))
		default:
			rt.log.Error("unknown mount operation", "op", op)
			ret = int32(unix.EINVAL)
		}
		zim.Hdr.Err = zuf.ErrnoToKernel(ret)
	}

	rt.log.Info("mount thread exit")
}

// registerAll announces every configured filesystem to the kernel under a
// freshly issued token.
func (rt *Runtime) registerAll(conn api.Conn) error {
	for _, fs := range rt.fs {
		fs.Token = rt.handles.Put(fs)
		if err := conn.RegisterFS(fs.Name, fs.Token); err != nil {
			return err
		}
		rt.log.Info("registered fs", "name", fs.Name)
	}
	return nil
}

func (rt *Runtime) unregisterAll() {
	for _, fs := range rt.fs {
		if fs.Token != 0 {
			rt.handles.Del(fs.Token)
			fs.Token = 0
		}
	}
}
