// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory relay with kernel-like semantics: per-worker registration,
// blocking waits, break-all per channel, and a mount channel. Tests push
// encoded op buffers at a (channel, cpu) slot and read the result back
// from the same buffer once the worker loops around, exactly like the
// kernel ring-of-one.

package fake

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/zuf"
)

// Op is one injected operation. Done is closed when the result has been
// copied back into the buffer the pusher supplied.
type Op struct {
	buf  []byte
	done chan struct{}
}

// Done reports completion of the round trip.
func (o *Op) Done() <-chan struct{} { return o.done }

type slot struct {
	channel uint32
	cpu     uint32
}

// Relay is the in-memory api.Relay.
type Relay struct {
	mu        sync.Mutex
	mountCond *sync.Cond

	cpusPerNode [][]int

	pmem    map[uint32]uint64
	regFS   map[string]uint64
	workers map[slot]*Conn

	mountConn *Conn
}

// NewRelay builds a relay with a single-node two-CPU topology; tests that
// care call SetTopology first.
func NewRelay() *Relay {
	r := &Relay{
		cpusPerNode: [][]int{{0, 1}},
		pmem:        make(map[uint32]uint64),
		regFS:       make(map[string]uint64),
		workers:     make(map[slot]*Conn),
	}
	r.mountCond = sync.NewCond(&r.mu)
	return r
}

// SetTopology installs the CPU list of every NUMA node. Call before the
// runtime captures the snapshot.
func (r *Relay) SetTopology(cpusPerNode ...[]int) {
	r.mu.Lock()
	r.cpusPerNode = cpusPerNode
	r.mu.Unlock()
}

// SetPmemSize sizes the pmem region id; unknown ids default to 1 MiB.
func (r *Relay) SetPmemSize(id uint32, bytes uint64) {
	r.mu.Lock()
	r.pmem[id] = bytes
	r.mu.Unlock()
}

// Open implements api.Relay.
func (r *Relay) Open() (api.Conn, error) {
	c := &Conn{r: r, pending: queue.New(), mountQ: queue.New()}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

// WorkerRegistered reports whether a worker holds the (channel, cpu) slot.
func (r *Relay) WorkerRegistered(channel, cpu uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workers[slot{channel, cpu}] != nil
}

// FSToken returns the token a filesystem registered under, 0 if none.
func (r *Relay) FSToken(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regFS[name]
}

// PushOp queues buf at the worker serving (channel, cpu). The result is
// copied back into buf; Done closes when it lands.
func (r *Relay) PushOp(channel, cpu uint32, buf []byte) (*Op, bool) {
	r.mu.Lock()
	c := r.workers[slot{channel, cpu}]
	r.mu.Unlock()
	if c == nil {
		return nil, false
	}

	op := &Op{buf: buf, done: make(chan struct{})}
	c.mu.Lock()
	c.pending.Add(op)
	c.cond.Broadcast()
	c.mu.Unlock()
	return op, true
}

// PushMount queues a mount event, blocking until a mount waiter exists.
func (r *Relay) PushMount(buf []byte) *Op {
	r.mu.Lock()
	for r.mountConn == nil {
		r.mountCond.Wait()
	}
	c := r.mountConn
	r.mu.Unlock()

	op := &Op{buf: buf, done: make(chan struct{})}
	c.mu.Lock()
	c.mountQ.Add(op)
	c.cond.Broadcast()
	c.mu.Unlock()
	return op
}

// Conn is one fake relay handle.
type Conn struct {
	r *Relay

	mu   sync.Mutex
	cond *sync.Cond

	pending *queue.Queue // *Op
	mountQ  *queue.Queue // *Op

	inFlight      *Op
	mountInFlight *Op

	broken bool
	closed bool

	registered bool
	channel    uint32
	cpu        uint32

	allocBytes uint32
}

func (c *Conn) RegisterZT(cpu, channel uint32, maxOpSize uint32) error {
	c.mu.Lock()
	c.cpu, c.channel, c.registered = cpu, channel, true
	c.mu.Unlock()

	c.r.mu.Lock()
	c.r.workers[slot{channel, cpu}] = c
	c.r.mu.Unlock()
	return nil
}

func (c *Conn) RegisterFS(name string, token uint64) error {
	c.r.mu.Lock()
	c.r.regFS[name] = token
	c.r.mu.Unlock()
	return nil
}

func (c *Conn) NumaMap(out *zuf.NumaMap) error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	*out = zuf.NumaMap{}
	maxCPU := -1
	for node, cpus := range c.r.cpusPerNode {
		for _, cpu := range cpus {
			out.CPUSetPerNode[node].Set(cpu)
			if cpu > maxCPU {
				maxCPU = cpu
			}
		}
	}
	out.PossibleCPUs = uint32(maxCPU + 1)
	out.PossibleNodes = uint32(len(c.r.cpusPerNode))
	return nil
}

func (c *Conn) GrabPmem(pmemKernID uint32, out *zuf.PmemInfo) error {
	c.r.mu.Lock()
	bytes, ok := c.r.pmem[pmemKernID]
	c.r.mu.Unlock()
	if !ok {
		bytes = 1 << 20
	}
	out.PmemKernID = pmemKernID
	out.Bytes = bytes
	return nil
}

func (c *Conn) AllocBuffer(initSize, maxSize uint32) error {
	c.mu.Lock()
	c.allocBytes = maxSize
	c.mu.Unlock()
	return nil
}

func (c *Conn) Mmap(offset int64, length int) ([]byte, error) {
	return zuf.AlignedBuf(length), nil
}

func (c *Conn) Munmap([]byte) error { return nil }

// WaitOp completes the previous round trip, then blocks for the next op.
// A break returns ErrBrokenWait with a BREAK header in place, the way the
// kernel leaves a poison pill behind.
func (c *Conn) WaitOp(opBuf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight != nil {
		copy(c.inFlight.buf, opBuf[:min(len(opBuf), len(c.inFlight.buf))])
		close(c.inFlight.done)
		c.inFlight = nil
	}

	for c.pending.Length() == 0 && !c.broken && !c.closed {
		c.cond.Wait()
	}

	if c.closed {
		return api.ErrRelayClosed
	}
	if c.pending.Length() > 0 {
		op := c.pending.Remove().(*Op)
		copy(opBuf, op.buf)
		c.inFlight = op
		return nil
	}

	*zuf.HdrOf(opBuf) = zuf.Hdr{Operation: zuf.OpBreak}
	return api.ErrBrokenWait
}

// ReceiveMount is WaitOp for the mount channel.
func (c *Conn) ReceiveMount(buf []byte) error {
	c.r.mu.Lock()
	if c.r.mountConn == nil {
		c.r.mountConn = c
		c.r.mountCond.Broadcast()
	}
	c.r.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mountInFlight != nil {
		copy(c.mountInFlight.buf, buf[:min(len(buf), len(c.mountInFlight.buf))])
		close(c.mountInFlight.done)
		c.mountInFlight = nil
	}

	for c.mountQ.Length() == 0 && !c.broken && !c.closed {
		c.cond.Wait()
	}

	if c.closed {
		return api.ErrRelayClosed
	}
	if c.mountQ.Length() > 0 {
		op := c.mountQ.Remove().(*Op)
		copy(buf, op.buf)
		c.mountInFlight = op
		return nil
	}
	return api.ErrBrokenWait
}

// BreakAll wakes every waiter on this handle's channel, and always this
// handle itself so unregistered (mount) waiters unblock too.
func (c *Conn) BreakAll() error {
	c.mu.Lock()
	registered, channel := c.registered, c.channel
	c.broken = true
	c.cond.Broadcast()
	c.mu.Unlock()

	if !registered {
		return nil
	}

	c.r.mu.Lock()
	peers := make([]*Conn, 0, len(c.r.workers))
	for s, peer := range c.r.workers {
		if s.channel == channel && peer != c {
			peers = append(peers, peer)
		}
	}
	c.r.mu.Unlock()

	for _, peer := range peers {
		peer.mu.Lock()
		peer.broken = true
		peer.cond.Broadcast()
		peer.mu.Unlock()
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrRelayClosed
	}
	c.closed = true
	if c.inFlight != nil {
		close(c.inFlight.done)
		c.inFlight = nil
	}
	if c.mountInFlight != nil {
		close(c.mountInFlight.done)
		c.mountInFlight = nil
	}
	c.cond.Broadcast()
	registered, channel, cpu := c.registered, c.channel, c.cpu
	c.mu.Unlock()

	c.r.mu.Lock()
	if registered && c.r.workers[slot{channel, cpu}] == c {
		delete(c.r.workers, slot{channel, cpu})
	}
	if c.r.mountConn == c {
		c.r.mountConn = nil
	}
	c.r.mu.Unlock()
	return nil
}
