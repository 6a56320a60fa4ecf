// File: core/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The process-wide runtime handle. Everything that used to be a global in
// older dispatch servers — topology snapshot, worker pool, mount record —
// hangs off one Runtime so tests can build as many as they like.

package core

import (
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/control"
	"github.com/momentics/zus-go/internal/concurrency"
	"github.com/momentics/zus-go/topology"
)

// Options configures a Runtime.
type Options struct {
	Relay  api.Relay
	Config *control.Config
	Logger hclog.Logger

	// Filesystems are the back-end implementations to register.
	Filesystems []*api.FSInfo

	// Notify is the service-manager readiness hook, called once after
	// filesystem registration. Nil means no notification.
	Notify func()

	// Pinner overrides the platform thread pinner (tests).
	Pinner concurrency.Pinner
}

// Runtime is the lazily-assembled core: mount controller, worker grid,
// topology and the token table.
type Runtime struct {
	log     hclog.Logger
	cfg     *control.Config
	relay   api.Relay
	topo    *topology.Service
	handles *handleTable
	fs      []*api.FSInfo
	notify  func()
	pinner  concurrency.Pinner

	ztParams concurrency.Params

	ztp ztPool
	mnt mounter
}

var _ api.Runtime = (*Runtime)(nil)

// New assembles a Runtime. Nothing runs until Start.
func New(opts Options) (*Runtime, error) {
	if opts.Relay == nil {
		return nil, errors.New("core: no relay")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = control.Default()
	}

	log := opts.Logger
	if log == nil {
		log = hclog.New(&hclog.LoggerOptions{
			Name:  "zus",
			Level: hclog.LevelFromString(cfg.LogLevel),
		})
	}

	control.SetDebugMask(cfg.DebugMask)

	ztp := concurrency.DefaultParams()
	if cfg.RealTime {
		ztp.Policy = concurrency.SchedRR
		ztp.RRPriority = cfg.RRPriority
	}

	notify := opts.Notify
	if notify == nil {
		notify = func() {}
	}

	return &Runtime{
		log:      log,
		cfg:      cfg,
		relay:    opts.Relay,
		topo:     topology.New(log),
		handles:  newHandleTable(),
		fs:       opts.Filesystems,
		notify:   notify,
		pinner:   opts.Pinner,
		ztParams: ztp,
	}, nil
}

// api.Runtime for the dispatch layer.

func (rt *Runtime) Log() hclog.Logger          { return rt.log }
func (rt *Runtime) Handles() api.HandleStore   { return rt.handles }
func (rt *Runtime) Relay() api.Relay           { return rt.relay }
func (rt *Runtime) TraceOps() bool             { return control.DebugEnabled(control.DbgOps) }

func (rt *Runtime) FSByToken(token uint64) *api.FSInfo {
	fs, _ := rt.handles.Get(token).(*api.FSInfo)
	return fs
}

// Topology exposes the snapshot to back-ends placing per-node objects.
func (rt *Runtime) Topology() *topology.Service { return rt.topo }

// Start brings up the mount controller thread. The worker grid follows on
// the first MOUNT event, sized by the kernel's channel count.
func (rt *Runtime) Start() error {
	p := concurrency.DefaultParams()
	p.Name = "zus_mounter"
	p.Pinner = rt.pinner

	thr, err := concurrency.Create(p, rt.topo, rt.mountLoop)
	if err != nil {
		return errors.Wrap(err, "core: mount thread")
	}
	rt.mnt.thr = thr

	// Per-CPU back-end objects are all created on this thread before any
	// worker runs, so it presents itself as cpu 0 / node 0.
	thr.SetIdentity(0, 0)
	return nil
}

// Stop tears the runtime down: workers first, then the mount thread, then
// the registrations.
func (rt *Runtime) Stop() {
	rt.stopAllWorkers()

	rt.mnt.stop.Store(true)
	if conn := rt.mnt.getConn(); conn != nil {
		conn.BreakAll()
	}
	if rt.mnt.thr != nil {
		rt.mnt.thr.Join()
		rt.mnt.thr = nil
	}

	rt.unregisterAll()
}

// Join blocks until the mount controller exits.
func (rt *Runtime) Join() {
	if rt.mnt.thr != nil {
		rt.mnt.thr.Join()
	}
}
