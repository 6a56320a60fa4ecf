// File: internal/concurrency/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The pinned-thread primitive. Create spawns a goroutine, locks it to its
// OS thread, applies affinity/policy/name, publishes the thread record,
// and only then runs the body. Setup failures are reported synchronously
// to the creator and the thread never starts.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/topology"
)

// Sentinels for "no explicit placement".
const (
	CPUAll = -1
	NoNode = -1
)

// Params mirrors the thread creation knobs: scheduling policy, an optional
// single-CPU pin or an optional NUMA pin (at most one of the two), and a
// thread name for ps/top.
type Params struct {
	Name       string
	Policy     int
	RRPriority int
	OneCPU     int
	Nid        int

	// Owner is an opaque back-reference to the embedding record; worker
	// code downcasts it for worker-only queries.
	Owner any

	// Pinner overrides the platform pinner. Nil selects the OS one.
	Pinner Pinner
}

// DefaultParams returns a plain unpinned thread with default scheduling.
func DefaultParams() Params {
	return Params{Policy: SchedOther, OneCPU: CPUAll, Nid: NoNode}
}

// Thread is the record behind every managed thread. Err carries a
// worker-init failure across the startup barrier; it is written only by
// the owning thread before the barrier release.
type Thread struct {
	name   string
	oneCPU int
	nid    int
	owner  any
	priv   any
	id     uint64

	Err error

	tid  int
	done chan struct{}
}

func (t *Thread) Name() string { return t.name }
func (t *Thread) OneCPU() int  { return t.oneCPU }
func (t *Thread) Nid() int     { return t.nid }
func (t *Thread) Owner() any   { return t.owner }
func (t *Thread) ID() uint64   { return t.id }

// SetIdentity overrides the recorded placement. The mount controller uses
// it to present itself as (cpu 0, node 0) during setup.
func (t *Thread) SetIdentity(cpu, nid int) {
	t.oneCPU = cpu
	t.nid = nid
}

// Join blocks until the thread body returns.
func (t *Thread) Join() { <-t.done }

var (
	registryMu sync.RWMutex
	registry   = make(map[int]*Thread)

	nextID atomic.Uint64

	log = hclog.L().Named("thread")

	foreignCPUWarn sync.Once
	foreignNidWarn sync.Once
)

// SetLogger rebinds the package logger; called once from daemon setup.
func SetLogger(l hclog.Logger) { log = l.Named("thread") }

func register(t *Thread) {
	registryMu.Lock()
	registry[t.tid] = t
	registryMu.Unlock()
}

func unregister(t *Thread) {
	registryMu.Lock()
	delete(registry, t.tid)
	registryMu.Unlock()
}

// Current returns the record of the calling thread, nil for threads not
// created (or adopted) by this package.
func Current() *Thread {
	registryMu.RLock()
	t := registry[curTID()]
	registryMu.RUnlock()
	return t
}

// Create starts a managed thread running fn. Affinity, policy, priority
// and name are all applied before fn runs; any setup failure is returned
// here and fn is never entered.
func Create(p Params, topo *topology.Service, fn func()) (*Thread, error) {
	if p.OneCPU != CPUAll && p.Nid != NoNode {
		return nil, errors.New("thread: both one_cpu and nid requested")
	}

	t := &Thread{
		name:   p.Name,
		oneCPU: CPUAll,
		nid:    NoNode,
		owner:  p.Owner,
		id:     nextID.Add(1),
		done:   make(chan struct{}),
	}

	pinner := p.Pinner
	if pinner == nil {
		pinner = platformPinner()
	}

	ready := make(chan error)
	go func() {
		runtime.LockOSThread()
		// Without an explicit unlock a returning goroutine takes its OS
		// thread down with it, which is exactly what a failed setup wants.
		if err := setupThread(t, &p, pinner, topo); err != nil {
			ready <- err
			return
		}
		t.tid = curTID()
		register(t)
		ready <- nil

		fn()

		unregister(t)
		close(t.done)
	}()

	if err := <-ready; err != nil {
		return nil, err
	}
	return t, nil
}

func setupThread(t *Thread, p *Params, pinner Pinner, topo *topology.Service) error {
	switch {
	case p.OneCPU != CPUAll:
		if err := pinner.PinCPU(p.OneCPU); err != nil {
			return err
		}
		t.oneCPU = p.OneCPU
		t.nid = topo.CPUToNode(p.OneCPU)
	case p.Nid != NoNode:
		mask, ok := topo.NodeMask(p.Nid)
		if !ok {
			return errors.Errorf("thread: bad nid=%d", p.Nid)
		}
		if err := pinner.PinNode(&mask); err != nil {
			return err
		}
		t.nid = p.Nid
	}

	if p.Policy != SchedOther {
		if err := pinner.SetScheduler(p.Policy, p.RRPriority); err != nil {
			return err
		}
	}

	if p.Name != "" {
		if err := pinner.SetName(p.Name); err != nil {
			// Naming is cosmetic; report and keep going.
			log.Warn("thread name not set", "name", p.Name, "error", err)
		}
	}
	return nil
}

// Adopt populates a thread record for a foreign thread, typically the
// process main thread. The caller stays on its OS thread until Release.
func Adopt(topo *topology.Service) (*Thread, error) {
	if Current() != nil {
		return nil, api.ErrAlreadyAdopted
	}
	runtime.LockOSThread()

	cpu, err := platformPinner().GetCPU()
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}

	t := &Thread{
		name:   "adopted",
		oneCPU: cpu,
		nid:    topo.CPUToNode(cpu),
		id:     nextID.Add(1),
		tid:    curTID(),
		done:   make(chan struct{}),
	}
	register(t)
	return t, nil
}

// Release tears down an adopted record. A release from a thread with no
// record is a programmer error and logged.
func Release() {
	t := Current()
	if t == nil {
		log.Warn("release from a thread with no record")
		return
	}
	unregister(t)
	runtime.UnlockOSThread()
}

// CurrentCPU returns the CPU identity of the calling thread: the pinned
// CPU for managed threads, the scheduler's answer (with a one-time
// warning) for foreign or unpinned ones.
func CurrentCPU(topo *topology.Service) int {
	return currentCPU(topo, true)
}

// CurrentCPUSilent is CurrentCPU without the foreign-thread warning.
func CurrentCPUSilent(topo *topology.Service) int {
	return currentCPU(topo, false)
}

func currentCPU(topo *topology.Service, warn bool) int {
	t := Current()
	if t == nil || t.oneCPU == CPUAll {
		if warn {
			foreignCPUWarn.Do(func() {
				log.Warn("current_cpu on a foreign or unpinned thread")
			})
		}
		cpu, _ := platformPinner().GetCPU()
		return cpu
	}
	return t.oneCPU
}

// CurrentNid returns the NUMA identity of the calling thread, falling
// back to the scheduler for foreign or unplaced threads.
func CurrentNid(topo *topology.Service) int {
	t := Current()
	if t == nil || t.nid == NoNode {
		foreignNidWarn.Do(func() {
			log.Warn("current_nid on a foreign or unplaced thread")
		})
		cpu, _ := platformPinner().GetCPU()
		return topo.CPUToNode(cpu)
	}
	return t.nid
}

// SelfID returns a stable non-zero id for managed threads, 0 otherwise.
func SelfID() uint64 {
	if t := Current(); t != nil {
		return t.id
	}
	return 0
}

// Private returns the caller-owned scratch pointer of the calling thread.
func Private() any {
	if t := Current(); t != nil {
		return t.priv
	}
	return nil
}

// SetPrivate stores the caller-owned scratch pointer. A no-op on foreign
// threads, matching the lookup-returns-null contract.
func SetPrivate(p any) {
	if t := Current(); t != nil {
		t.priv = p
	}
}
