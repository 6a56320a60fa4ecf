//go:build linux

// File: pool/alloc_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Anonymous page-aligned scratch buffers via mmap, excluded from core
// dumps like every other window the runtime holds.

package pool

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// AllocAligned returns a page-aligned anonymous buffer of n bytes.
func AllocAligned(n int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap anon %d bytes", n)
	}
	// Best effort; the mapping works either way.
	_ = unix.Madvise(b, unix.MADV_DONTDUMP)
	return b, nil
}

// FreeAligned releases a buffer from AllocAligned.
func FreeAligned(b []byte) {
	if b != nil {
		unix.Munmap(b)
	}
}
