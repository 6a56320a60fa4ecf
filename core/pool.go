// File: core/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The worker grid: channels × possible CPUs, with live workers only on
// online CPUs. Startup is barrier-synchronized; shutdown is stop flags
// plus one break-all per channel.

package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/internal/concurrency"
	"github.com/momentics/zus-go/zuf"
)

type ztPool struct {
	wtz      concurrency.WaitTilZero
	chans    [][]*ztWorker // [channel][cpu]; offline slots stay nil
	numZts   int           // possible CPUs, the per-channel array size
	channels uint32        // zero until first mount
}

// startAllWorkers brings up the full grid for numChans channels and waits
// until every worker is READY or has reported its init failure.
func (rt *Runtime) startAllWorkers(numChans uint32) error {
	if numChans == 0 || numChans > zuf.MaxZTChannels {
		return errors.Errorf("core: bad channel count %d", numChans)
	}
	if rt.ztp.channels != 0 {
		return api.ErrPoolRunning
	}

	rt.ztp = ztPool{
		numZts:   rt.topo.PossibleCPUs(),
		channels: numChans,
		chans:    make([][]*ztWorker, numChans),
	}

	for c := uint32(0); c < numChans; c++ {
		if err := rt.startChanWorkers(c); err != nil {
			rt.stopAllWorkers()
			return err
		}
	}

	rt.ztp.wtz.Wait()

	// Verify that every ZT came up.
	for _, workers := range rt.ztp.chans {
		for _, w := range workers {
			if w != nil && w.thr != nil && w.thr.Err != nil {
				err := w.thr.Err
				rt.stopAllWorkers()
				return err
			}
		}
	}

	rt.log.Info("ZT threads ready",
		"cpus", rt.topo.OnlineCPUs(), "channels", numChans)
	return nil
}

func (rt *Runtime) startChanWorkers(channel uint32) error {
	workers := make([]*ztWorker, rt.ztp.numZts)
	rt.ztp.chans[channel] = workers

	var err error
	rt.topo.ForEachOnline(func(cpu int) {
		if err != nil {
			return
		}

		w := &ztWorker{rt: rt, cpu: uint32(cpu), channel: channel}
		p := rt.ztParams
		p.OneCPU = cpu
		p.Name = fmt.Sprintf("ZT(%d.%d)", cpu, channel)
		p.Owner = w
		p.Pinner = rt.pinner

		// One barrier token per actually-created worker; a create error
		// aborts the channel without stranding the waiter.
		rt.ztp.wtz.Arm(1)
		thr, cerr := concurrency.Create(p, rt.topo, w.run)
		if cerr != nil {
			rt.ztp.wtz.Release()
			err = cerr
			return
		}
		w.thr = thr
		workers[cpu] = w
	})
	return err
}

// stopAllWorkers drains every channel and resets the pool so a later
// start finds a clean struct.
func (rt *Runtime) stopAllWorkers() {
	for c := range rt.ztp.chans {
		rt.stopChanWorkers(c)
	}
	rt.ztp = ztPool{}
}

func (rt *Runtime) stopChanWorkers(channel int) {
	workers := rt.ztp.chans[channel]
	if workers == nil {
		return
	}

	for _, w := range workers {
		if w != nil {
			w.stop.Store(true)
		}
	}

	// One break-all wakes every kernel-blocked waiter on the channel.
	for _, w := range workers {
		if w == nil {
			continue
		}
		if conn := w.getConn(); conn != nil {
			conn.BreakAll()
			break
		}
	}

	for _, w := range workers {
		if w != nil && w.thr != nil {
			w.thr.Join()
			w.thr = nil
		}
	}
	rt.ztp.chans[channel] = nil
}

// Channels reports the grid width, zero before the first mount.
func (rt *Runtime) Channels() uint32 { return rt.ztp.channels }
