// File: dispatch/demux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The dense op-code table. Every code the kernel may send maps to exactly
// one handler; anything outside the table is logged as UNKNOWN and
// answered with 0 so a misbehaving kernel cannot wedge a worker.

package dispatch

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/zuf"
)

// handlerFn executes one operation in place on the op buffer and returns
// an errno-style result; the worker folds it into the header with the
// kernel sign convention.
type handlerFn func(rt api.Runtime, app []byte, buf []byte) int32

var table = [zuf.OpMax]handlerFn{
	zuf.OpNull:         opNull,
	zuf.OpStatfs:       opStatfs,
	zuf.OpNewInode:     opNewInode,
	zuf.OpFreeInode:    opEvict,
	zuf.OpEvictInode:   opEvict,
	zuf.OpLookup:       opLookup,
	zuf.OpAddDentry:    opDentry,
	zuf.OpRemoveDentry: opDentry,
	zuf.OpRename:       opRename,
	zuf.OpReaddir:      opReaddir,
	zuf.OpClone:        opClone,
	zuf.OpCopy:         opClone,
	zuf.OpRead:         opRead,
	zuf.OpPreRead:      opPreRead,
	zuf.OpWrite:        opWrite,
	zuf.OpGetBlock:     opGetPutBlock,
	zuf.OpPutBlock:     opGetPutBlock,
	zuf.OpMmapClose:    opMmapClose,
	zuf.OpGetSymlink:   opGetSymlink,
	zuf.OpSetattr:      opSetattr,
	zuf.OpSync:         opSync,
	zuf.OpFallocate:    opFallocate,
	zuf.OpLLSeek:       opSeek,
	zuf.OpIoctl:        opIoctl,
	zuf.OpXattrGet:     opXattr,
	zuf.OpXattrSet:     opXattr,
	zuf.OpXattrList:    opXattr,
	zuf.OpBreak:        opBreak,
}

// Do executes the operation in buf against the runtime's bindings. app is
// the worker's mapped payload window, already offset by Hdr.Offset.
func Do(rt api.Runtime, app []byte, buf []byte) int32 {
	hdr := zuf.HdrOf(buf)
	op := hdr.Operation

	if rt.TraceOps() {
		rt.Log().Debug("op",
			"name", zuf.OpName(op), "code", op,
			"offset", hdr.Offset, "len", hdr.Len)
	}

	if op >= zuf.OpMax || table[op] == nil {
		rt.Log().Error("unknown operation", "op", op)
		return 0
	}
	return table[op](rt, app, buf)
}

// Errno flattens a back-end error to an errno value. Back-ends return
// unix.Errno (possibly wrapped); anything else degrades to EIO.
func Errno(err error) int32 {
	if err == nil {
		return 0
	}
	var e unix.Errno
	if errors.As(err, &e) {
		return int32(e)
	}
	return int32(unix.EIO)
}

func inodeOf(rt api.Runtime, token uint64) *api.Inode {
	ii, _ := rt.Handles().Get(token).(*api.Inode)
	return ii
}

func superOf(rt api.Runtime, token uint64) *api.Super {
	sb, _ := rt.Handles().Get(token).(*api.Super)
	return sb
}

func opNull(api.Runtime, []byte, []byte) int32  { return 0 }

// opBreak is the poison pill break_all leaves behind; the stop flag, not
// the op, decides whether the worker exits.
func opBreak(api.Runtime, []byte, []byte) int32 { return 0 }

func opStatfs(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.StatfsOf(buf)
	sb := superOf(rt, req.SBToken)
	if sb == nil {
		rt.Log().Error("statfs on unknown superblock", "token", req.SBToken)
		return int32(unix.EINVAL)
	}
	if sb.Ops.Statfs == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(sb.Ops.Statfs(sb, req))
}

func opNewInode(rt api.Runtime, app []byte, buf []byte) int32 {
	req := zuf.NewInodeOf(buf)
	dir := inodeOf(rt, req.DirToken)
	if dir == nil {
		rt.Log().Error("new_inode under unknown dir", "token", req.DirToken)
		return int32(unix.EINVAL)
	}
	sb := dir.Super

	zii, err := sb.Ops.ZiiAlloc(sb)
	if err != nil || zii == nil {
		return int32(unix.ENOMEM)
	}
	zii.Super = sb

	// The protocol starts inodes at zero links; AddDentry establishes the
	// first one (the kernel holds a 1 itself, except for O_TMPFILE).
	req.Nlink = 0

	if err := sb.Ops.NewInode(sb, zii, app, req); err != nil {
		sb.Ops.ZiiFree(zii)
		return Errno(err)
	}

	req.ZiOffset = zii.ZiOffset
	zii.Token = rt.Handles().Put(zii)
	req.NewToken = zii.Token

	if req.Flags&zuf.ZiTmpFile != 0 {
		return 0
	}

	if err := sb.Ops.AddDentry(dir, zii, req.Name.String()); err != nil {
		if sb.Ops.FreeInode != nil {
			sb.Ops.FreeInode(zii)
		}
		rt.Handles().Del(zii.Token)
		sb.Ops.ZiiFree(zii)
		return Errno(err)
	}
	return 0
}

func opEvict(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.EvictOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		rt.Log().Error("evict of unknown inode", "token", req.Token)
		return 0
	}

	if req.Hdr.Operation == zuf.OpFreeInode {
		if zii.Super.Ops.FreeInode != nil {
			zii.Super.Ops.FreeInode(zii)
		}
	} else if zii.Ops.Evict != nil && req.Flags&zuf.ZiLookupRace == 0 {
		// A binding that lost a parallel lookup race is released without
		// the evict hook: the winner's binding owns the cached inode, so
		// the FS may see two Igets but only one Evict.
		zii.Ops.Evict(zii)
	}

	rt.Handles().Del(req.Token)
	zii.Super.Ops.ZiiFree(zii)
	return 0
}

func opLookup(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.LookupOf(buf)
	name := req.Name.String()
	if name == "" {
		rt.Log().Error("lookup of empty name")
		return 0
	}

	dir := inodeOf(rt, req.DirToken)
	if dir == nil {
		rt.Log().Error("lookup under unknown dir", "token", req.DirToken)
		return int32(unix.EINVAL)
	}

	var ino uint64
	switch name {
	case ".":
		ino = dir.Ino
	case "..":
		ino = dir.ParentIno
	default:
		ino = dir.Super.Ops.Lookup(dir, name)
	}

	if ino == 0 {
		if rt.TraceOps() {
			rt.Log().Debug("lookup miss", "name", name)
		}
		return int32(unix.ENOENT)
	}

	zii, err := Iget(dir.Super, ino)
	if err != nil || zii == nil {
		return int32(unix.ENOENT)
	}

	req.ZiOffset = zii.ZiOffset
	zii.Token = rt.Handles().Put(zii)
	req.Token = zii.Token
	return 0
}

func opDentry(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.DentryOf(buf)
	dir := inodeOf(rt, req.DirToken)
	zii := inodeOf(rt, req.Token)
	if dir == nil || zii == nil {
		rt.Log().Error("dentry op with unknown binding",
			"dir", req.DirToken, "inode", req.Token)
		return int32(unix.EINVAL)
	}

	name := req.Name.String()
	if req.Hdr.Operation == zuf.OpRemoveDentry {
		return Errno(dir.Super.Ops.RemoveDentry(dir, zii, name))
	}
	return Errno(dir.Super.Ops.AddDentry(dir, zii, name))
}

func opRename(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.RenameOf(buf)
	oldDir := inodeOf(rt, req.OldDirToken)
	newDir := inodeOf(rt, req.NewDirToken)
	if oldDir == nil || newDir == nil {
		return int32(unix.EINVAL)
	}
	if oldDir.Super.Ops.Rename == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(oldDir.Super.Ops.Rename(req, oldDir, newDir))
}

func opReaddir(rt api.Runtime, app []byte, buf []byte) int32 {
	req := zuf.ReaddirOf(buf)
	dir := inodeOf(rt, req.DirToken)
	if dir == nil {
		return int32(unix.EINVAL)
	}
	if dir.Super.Ops.Readdir == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(dir.Super.Ops.Readdir(app, req, dir))
}

func opClone(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.CloneOf(buf)
	src := inodeOf(rt, req.SrcToken)
	dst := inodeOf(rt, req.DstToken)
	if src == nil || dst == nil {
		return int32(unix.EINVAL)
	}
	if src.Super.Ops.Clone == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(src.Super.Ops.Clone(req, src, dst))
}

func opRead(rt api.Runtime, app []byte, buf []byte) int32 {
	req := zuf.IOOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.Read == nil {
		rt.Log().Error("no read operation set", "fs", zii.Super.FS.Name)
		return int32(unix.EIO)
	}
	return Errno(zii.Ops.Read(app, req, zii))
}

func opPreRead(rt api.Runtime, app []byte, buf []byte) int32 {
	req := zuf.IOOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.PreRead == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(zii.Ops.PreRead(app, req, zii))
}

func opWrite(rt api.Runtime, app []byte, buf []byte) int32 {
	req := zuf.IOOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.Write == nil {
		rt.Log().Error("no write operation set", "fs", zii.Super.FS.Name)
		return int32(unix.EIO)
	}
	return Errno(zii.Ops.Write(app, req, zii))
}

func opGetPutBlock(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.IOOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}

	if req.Hdr.Operation == zuf.OpPutBlock {
		if zii.Ops.PutBlock == nil {
			return 0
		}
		return Errno(zii.Ops.PutBlock(zii, req))
	}

	if zii.Ops.GetBlock == nil {
		rt.Log().Error("no get_block operation set", "fs", zii.Super.FS.Name)
		return int32(unix.EIO)
	}
	return Errno(zii.Ops.GetBlock(zii, req))
}

func opMmapClose(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.MmapCloseOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.MmapClose == nil {
		return 0
	}
	return Errno(zii.Ops.MmapClose(zii, req))
}

func opGetSymlink(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.GetLinkOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.GetSymlink == nil {
		rt.Log().Error("no get_symlink operation set", "fs", zii.Super.FS.Name)
		return int32(unix.EIO)
	}
	off, err := zii.Ops.GetSymlink(zii)
	if err != nil {
		return Errno(err)
	}
	req.LinkZi = off
	return 0
}

func opSetattr(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.AttrOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.Setattr == nil {
		return 0 // nothing to flush
	}
	return Errno(zii.Ops.Setattr(zii, req.Mask, req.TruncateSize))
}

func opSync(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.RangeOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.Sync == nil {
		return 0 // nothing to sync
	}
	return Errno(zii.Ops.Sync(zii, req))
}

func opFallocate(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.RangeOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.Fallocate == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(zii.Ops.Fallocate(zii, req))
}

func opSeek(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.SeekOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.Seek == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(zii.Ops.Seek(zii, req))
}

func opIoctl(rt api.Runtime, _ []byte, buf []byte) int32 {
	req := zuf.IoctlOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}
	if zii.Ops.Ioctl == nil {
		return int32(unix.ENOTTY)
	}
	return Errno(zii.Ops.Ioctl(zii, req))
}

func opXattr(rt api.Runtime, app []byte, buf []byte) int32 {
	req := zuf.XattrOf(buf)
	zii := inodeOf(rt, req.Token)
	if zii == nil {
		return int32(unix.EINVAL)
	}

	var fn func(*api.Inode, []byte, *zuf.Xattr) error
	switch req.Hdr.Operation {
	case zuf.OpXattrGet:
		fn = zii.Ops.GetXattr
	case zuf.OpXattrSet:
		fn = zii.Ops.SetXattr
	case zuf.OpXattrList:
		fn = zii.Ops.ListXattr
	}
	if fn == nil {
		return int32(unix.ENOTSUP)
	}
	return Errno(fn(zii, app, req))
}
