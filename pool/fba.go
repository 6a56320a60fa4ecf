// File: pool/fba.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// File-backed allocation: a kernel-shared buffer bound to its own relay
// handle, mapped at offset 0. Back-ends use these for exec buffers the
// kernel must be able to see.

package pool

import (
	"github.com/pkg/errors"

	"github.com/momentics/zus-go/api"
)

// FBA is one kernel-shared buffer. Mem stays valid until Free.
type FBA struct {
	conn api.Conn
	Mem  []byte
}

// AllocExec opens a fresh relay handle, asks the kernel to carve out
// maxBytes, and maps the result.
func AllocExec(relay api.Relay, maxBytes int) (*FBA, error) {
	conn, err := relay.Open()
	if err != nil {
		return nil, errors.Wrap(err, "fba: open relay")
	}

	if err := conn.AllocBuffer(uint32(maxBytes), uint32(maxBytes)); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "fba: alloc buffer")
	}

	mem, err := conn.Mmap(0, maxBytes)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "fba: map buffer")
	}

	return &FBA{conn: conn, Mem: mem}, nil
}

// Free unmaps the buffer and closes its handle. The kernel side is
// released by the close.
func (f *FBA) Free() {
	if f == nil || f.conn == nil {
		return
	}
	if f.Mem != nil {
		f.conn.Munmap(f.Mem)
		f.Mem = nil
	}
	f.conn.Close()
	f.conn = nil
}
