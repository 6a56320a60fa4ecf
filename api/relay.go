// Package api
// Author: momentics <momentics@gmail.com>
//
// Relay is the abstraction over the zuf control device. Every consumer of
// kernel services — workers, the mount controller, pmem grabbing, buffer
// allocation — opens its own Conn; a Conn is owned by exactly one user and
// is not safe for concurrent calls, with the single exception of BreakAll,
// which by contract may be issued from another thread to wake a blocked
// waiter.

package api

import "github.com/momentics/zus-go/zuf"

// Relay creates connections to the kernel control device.
type Relay interface {
	// Open creates a fresh anonymous handle on the zuf root.
	Open() (Conn, error)
}

// Conn is one anonymous handle on the control device.
type Conn interface {
	// RegisterZT binds this handle as the carrier for worker (cpu, channel)
	// with the given op buffer size.
	RegisterZT(cpu, channel uint32, maxOpSize uint32) error

	// RegisterFS announces a filesystem implementation under token.
	RegisterFS(name string, token uint64) error

	// NumaMap fills out with the kernel's CPU/NUMA topology snapshot.
	NumaMap(out *zuf.NumaMap) error

	// GrabPmem binds pmem region pmemKernID to this handle and describes it.
	GrabPmem(pmemKernID uint32, out *zuf.PmemInfo) error

	// AllocBuffer carves a kernel-shared buffer out of this handle,
	// mappable afterwards at offset 0.
	AllocBuffer(initSize, maxSize uint32) error

	// Mmap maps length bytes of this handle at offset, shared-writable
	// and excluded from core dumps.
	Mmap(offset int64, length int) ([]byte, error)

	// Munmap releases a window obtained from Mmap.
	Munmap(b []byte) error

	// WaitOp blocks until the kernel delivers the next operation into the
	// op buffer. A non-nil error does not invalidate the handle.
	WaitOp(opBuf []byte) error

	// ReceiveMount blocks until the next mount-channel event.
	ReceiveMount(buf []byte) error

	// BreakAll wakes every waiter currently blocked on this handle's
	// channel.
	BreakAll() error

	Close() error
}
