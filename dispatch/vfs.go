// File: dispatch/vfs.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mount-channel glue: superblock binding lifetime, pmem grab/ungrab and
// the iget helper. These run on the mount controller thread, before any
// worker touches the superblock's objects.

package dispatch

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/zuf"
)

// Iget resolves ino to a fresh inode binding of sb, wiring the superblock
// back-reference.
func Iget(sb *api.Super, ino uint64) (*api.Inode, error) {
	zii, err := sb.Ops.Iget(sb, ino)
	if err != nil {
		return nil, err
	}
	zii.Super = sb
	return zii, nil
}

// Mount services one MOUNT event: allocate the binding, grab and map the
// pmem region, initialize the back-end, and publish the tokens the kernel
// will use from now on.
func Mount(rt api.Runtime, m *zuf.Mount) int32 {
	fs := rt.FSByToken(m.FSToken)
	if fs == nil {
		rt.Log().Error("mount for unregistered fs", "token", m.FSToken)
		return int32(unix.EINVAL)
	}

	sb, err := fs.Ops.SbiAlloc(fs)
	if err != nil || sb == nil {
		return int32(unix.ENOMEM)
	}
	sb.FS = fs
	sb.KernSBID = m.SBID

	if err := grabPmem(rt, sb, m.PmemKernID); err != nil {
		rt.Log().Error("pmem grab failed",
			"pmem_kern_id", m.PmemKernID, "error", err)
		return mountFail(rt, sb, err)
	}

	if err := fs.Ops.SbiInit(sb, m); err != nil {
		return mountFail(rt, sb, err)
	}
	if sb.Root == nil {
		rt.Log().Error("back-end mounted without a root inode", "fs", fs.Name)
		return mountFail(rt, sb, unix.EINVAL)
	}

	sb.Token = rt.Handles().Put(sb)
	root := sb.Root
	root.Super = sb
	root.Token = rt.Handles().Put(root)

	m.SBToken = sb.Token
	m.RootToken = root.Token
	m.RootZi = root.ZiOffset

	rt.Log().Info("mounted", "fs", fs.Name,
		"sb_id", m.SBID, "root_ino", root.Ino)
	return 0
}

func mountFail(rt api.Runtime, sb *api.Super, err error) int32 {
	sb.Err = true
	sbiFini(rt, sb)
	return Errno(err)
}

// Umount services one UMOUNT event.
func Umount(rt api.Runtime, m *zuf.Mount) int32 {
	sb := superOf(rt, m.SBToken)
	if sb == nil {
		rt.Log().Error("umount of unknown superblock", "token", m.SBToken)
		return int32(unix.EINVAL)
	}
	sbiFini(rt, sb)
	return 0
}

// Remount forwards to the back-end when it cares, 0 otherwise.
func Remount(rt api.Runtime, m *zuf.Mount) int32 {
	sb := superOf(rt, m.SBToken)
	if sb == nil {
		return int32(unix.EINVAL)
	}
	if sb.FS.Ops.SbiRemount == nil {
		return 0
	}
	return Errno(sb.FS.Ops.SbiRemount(sb, m))
}

func sbiFini(rt api.Runtime, sb *api.Super) {
	if sb.FS.Ops.SbiFini != nil {
		sb.FS.Ops.SbiFini(sb)
	}
	ungrabPmem(sb)

	if sb.Root != nil && sb.Root.Token != 0 {
		rt.Handles().Del(sb.Root.Token)
	}
	if sb.Token != 0 {
		rt.Handles().Del(sb.Token)
	}
	sb.FS.Ops.SbiFree(sb)
}

func grabPmem(rt api.Runtime, sb *api.Super, pmemKernID uint32) error {
	conn, err := rt.Relay().Open()
	if err != nil {
		return err
	}

	var info zuf.PmemInfo
	if err := conn.GrabPmem(pmemKernID, &info); err != nil {
		conn.Close()
		return err
	}

	base, err := conn.Mmap(0, int(info.Bytes))
	if err != nil {
		conn.Close()
		return err
	}

	sb.Pmem = api.PmemRegion{
		KernID: pmemKernID,
		Bytes:  info.Bytes,
		Base:   base,
		Conn:   conn,
	}
	return nil
}

// ungrabPmem releases the mapping and its handle; the kernel side follows
// the close.
func ungrabPmem(sb *api.Super) {
	p := &sb.Pmem
	if p.Conn == nil {
		return
	}
	if p.Base != nil {
		p.Conn.Munmap(p.Base)
		p.Base = nil
	}
	p.Conn.Close()
	p.Conn = nil
}
