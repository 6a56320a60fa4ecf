// Package api
// Author: momentics <momentics@gmail.com>
//
// Back-end vtables and the bindings the core stores per mounted
// superblock and per live inode. A vtable member left nil means the
// back-end does not implement the operation; the demultiplexer applies
// the per-operation default policy (ENOTSUP, ENOTTY, 0 or EIO) in that case.

package api

import "github.com/momentics/zus-go/zuf"

// FSInfo describes one registered filesystem implementation.
type FSInfo struct {
	Name string
	Ops  *FSOperations

	// Token is issued by the runtime at registration.
	Token uint64
}

// FSOperations manages superblock binding lifetime.
type FSOperations struct {
	// SbiAlloc allocates the back-end superblock binding.
	SbiAlloc func(fs *FSInfo) (*Super, error)
	// SbiFree releases it. Always called last.
	SbiFree func(sb *Super)
	// SbiInit mounts the medium. The back-end must set sb.Root.
	SbiInit func(sb *Super, m *zuf.Mount) error
	// SbiFini unmounts. Optional.
	SbiFini func(sb *Super) error
	// SbiRemount applies new mount options. Optional.
	SbiRemount func(sb *Super, m *zuf.Mount) error
}

// SuperOperations is the per-superblock vtable.
type SuperOperations struct {
	ZiiAlloc func(sb *Super) (*Inode, error)
	ZiiFree  func(ii *Inode)

	// Iget resolves an inode number to a fresh binding.
	Iget func(sb *Super, ino uint64) (*Inode, error)

	// NewInode allocates an on-medium inode. The binding comes with zero
	// links; AddDentry establishes the first one.
	NewInode func(sb *Super, ii *Inode, app []byte, req *zuf.NewInode) error

	// FreeInode releases the on-medium inode. Optional.
	FreeInode func(ii *Inode)

	// Lookup returns the inode number of name under dir, or 0.
	Lookup func(dir *Inode, name string) uint64

	AddDentry    func(dir, ii *Inode, name string) error
	RemoveDentry func(dir, ii *Inode, name string) error

	Statfs  func(sb *Super, out *zuf.Statfs) error          // optional
	Rename  func(req *zuf.Rename, oldDir, newDir *Inode) error // optional
	Readdir func(app []byte, req *zuf.Readdir, dir *Inode) error // optional
	Clone   func(req *zuf.Clone, src, dst *Inode) error     // optional
}

// InodeOperations is the per-inode vtable.
type InodeOperations struct {
	// Evict is called when the kernel drops a cached inode. Optional.
	Evict func(ii *Inode)

	Read    func(app []byte, req *zuf.IO, ii *Inode) error
	PreRead func(app []byte, req *zuf.IO, ii *Inode) error // optional
	Write   func(app []byte, req *zuf.IO, ii *Inode) error

	// GetBlock is required for mmap support; its absence is an EIO.
	GetBlock func(ii *Inode, req *zuf.IO) error
	PutBlock func(ii *Inode, req *zuf.IO) error // optional

	MmapClose func(ii *Inode, req *zuf.MmapClose) error // optional

	// GetSymlink returns the on-medium offset of the target string.
	GetSymlink func(ii *Inode) (uint64, error)

	Setattr   func(ii *Inode, mask uint32, truncateSize uint64) error // optional
	Sync      func(ii *Inode, rg *zuf.Range) error                   // optional
	Fallocate func(ii *Inode, rg *zuf.Range) error                   // optional
	Seek      func(ii *Inode, req *zuf.Seek) error                   // optional
	Ioctl     func(ii *Inode, req *zuf.IoctlOp) error                // optional

	GetXattr  func(ii *Inode, app []byte, req *zuf.Xattr) error // optional
	SetXattr  func(ii *Inode, app []byte, req *zuf.Xattr) error // optional
	ListXattr func(ii *Inode, app []byte, req *zuf.Xattr) error // optional
}

// PmemRegion is the persistent-memory range bound to a superblock. Base is
// nil until the mount controller maps it. On-medium pointers returned to
// the kernel are offsets into this region.
type PmemRegion struct {
	KernID uint32
	Bytes  uint64
	Base   []byte
	Conn   Conn // owning relay handle, closed on ungrab
}

// Super is the per-superblock binding.
type Super struct {
	FS   *FSInfo
	Ops  *SuperOperations
	Priv any // back-end owned

	Pmem     PmemRegion
	KernSBID uint64
	Token    uint64 // issued at mount
	Root     *Inode

	// Err flags a failed mount. It is set before teardown runs; teardown
	// still calls SbiFini (when present) and SbiFree, which can read it.
	Err bool
}

// Inode is the per-inode binding. Ino and ParentIno mirror the on-medium
// inode so the core can answer "." and ".." lookups without touching the
// medium.
type Inode struct {
	Super *Super
	Ops   *InodeOperations
	Priv  any

	Ino       uint64
	ParentIno uint64
	ZiOffset  uint64 // on-medium inode, offset into the pmem region
	Token     uint64 // issued on NEW_INODE / LOOKUP / mount
}
