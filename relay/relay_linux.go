//go:build linux

// File: relay/relay_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package relay

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/zuf"
)

type zufRelay struct {
	root string
}

// New returns the relay rooted at the zuf control directory.
func New(root string) api.Relay {
	return &zufRelay{root: root}
}

func (r *zufRelay) Open() (api.Conn, error) {
	// RDWR also covers the mappings.
	fd, err := unix.Open(r.root, unix.O_RDWR|unix.O_TMPFILE|unix.O_EXCL, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", r.root)
	}
	return &conn{fd: fd}, nil
}

type conn struct {
	fd int
}

// ioctl issues one exchange and folds the header error back to an errno,
// undoing the kernel sign convention.
func (c *conn) ioctl(req uintptr, hdr *zuf.Hdr, arg unsafe.Pointer) error {
	if c.fd < 0 {
		return api.ErrRelayClosed
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(c.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	if hdr != nil && hdr.Err != 0 {
		return unix.Errno(-hdr.Err)
	}
	return nil
}

func (c *conn) RegisterZT(cpu, channel uint32, maxOpSize uint32) error {
	zi := zuf.ZtInit{CPU: cpu, Channel: channel, MaxCommandSize: maxOpSize}
	return c.ioctl(zuf.IocZtInit, &zi.Hdr, unsafe.Pointer(&zi))
}

func (c *conn) RegisterFS(name string, token uint64) error {
	rfs := zuf.RegisterFS{Token: token}
	copy(rfs.Name[:len(rfs.Name)-1], name)
	return c.ioctl(zuf.IocRegisterFS, &rfs.Hdr, unsafe.Pointer(&rfs))
}

func (c *conn) NumaMap(out *zuf.NumaMap) error {
	return c.ioctl(zuf.IocNumaMap, &out.Hdr, unsafe.Pointer(out))
}

func (c *conn) GrabPmem(pmemKernID uint32, out *zuf.PmemInfo) error {
	gp := zuf.GrabPmem{Info: zuf.PmemInfo{PmemKernID: pmemKernID}}
	if err := c.ioctl(zuf.IocGrabPmem, &gp.Hdr, unsafe.Pointer(&gp)); err != nil {
		return err
	}
	*out = gp.Info
	return nil
}

func (c *conn) AllocBuffer(initSize, maxSize uint32) error {
	ab := zuf.AllocBuffer{InitSize: initSize, MaxSize: maxSize}
	return c.ioctl(zuf.IocAllocBuf, &ab.Hdr, unsafe.Pointer(&ab))
}

func (c *conn) Mmap(offset int64, length int) ([]byte, error) {
	b, err := unix.Mmap(c.fd, offset, length,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap fd=%d off=%d len=%d",
			c.fd, offset, length)
	}
	// Shared windows carry kernel state; keep them out of dumps.
	_ = unix.Madvise(b, unix.MADV_DONTDUMP)
	return b, nil
}

func (c *conn) Munmap(b []byte) error {
	return unix.Munmap(b)
}

func (c *conn) WaitOp(opBuf []byte) error {
	return c.ioctl(zuf.IocWaitOp, nil, unsafe.Pointer(&opBuf[0]))
}

func (c *conn) ReceiveMount(buf []byte) error {
	return c.ioctl(zuf.IocRecvMount, nil, unsafe.Pointer(&buf[0]))
}

func (c *conn) BreakAll() error {
	return c.ioctl(zuf.IocBreakAll, nil, nil)
}

func (c *conn) Close() error {
	if c.fd < 0 {
		return api.ErrRelayClosed
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}
