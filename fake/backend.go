// Package fake
// Author: momentics <momentics@gmail.com>
//
// Counting stub back-end. Every vtable entry bumps a named counter and
// succeeds; tests nil out entries to exercise the demultiplexer's default
// policies, and provision inodes/dentries to steer lookups.

package fake

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/zuf"
)

// Counters counts vtable invocations by name.
type Counters struct {
	mu sync.Mutex
	m  map[string]int
}

func (c *Counters) bump(name string) {
	c.mu.Lock()
	c.m[name]++
	c.mu.Unlock()
}

// Get returns the count for name.
func (c *Counters) Get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[name]
}

// Backend is a stub filesystem implementation.
type Backend struct {
	FS       *api.FSInfo
	SOps     *api.SuperOperations
	IOps     *api.InodeOperations
	Counters *Counters

	RootIno uint64

	mu      sync.Mutex
	parents map[uint64]uint64 // ino → parent ino
	names   map[string]uint64 // dentry name → ino
	nextIno atomic.Uint64
}

// NewBackend builds a stub filesystem called name with every vtable entry
// populated.
func NewBackend(name string) *Backend {
	b := &Backend{
		Counters: &Counters{m: make(map[string]int)},
		RootIno:  1,
		parents:  make(map[uint64]uint64),
		names:    make(map[string]uint64),
	}
	b.nextIno.Store(100)

	b.SOps = &api.SuperOperations{
		ZiiAlloc: func(sb *api.Super) (*api.Inode, error) {
			b.Counters.bump("zii_alloc")
			return &api.Inode{Ops: b.IOps}, nil
		},
		ZiiFree: func(ii *api.Inode) { b.Counters.bump("zii_free") },
		Iget: func(sb *api.Super, ino uint64) (*api.Inode, error) {
			b.Counters.bump("iget")
			return b.newInodeBinding(ino), nil
		},
		NewInode: func(sb *api.Super, ii *api.Inode, app []byte, req *zuf.NewInode) error {
			b.Counters.bump("new_inode")
			ino := b.nextIno.Add(1)
			ii.Ino = ino
			ii.ZiOffset = ino * zuf.PageSize
			return nil
		},
		FreeInode: func(ii *api.Inode) { b.Counters.bump("free_inode") },
		Lookup: func(dir *api.Inode, name string) uint64 {
			b.Counters.bump("lookup")
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.names[name]
		},
		AddDentry: func(dir, ii *api.Inode, name string) error {
			b.Counters.bump("add_dentry")
			b.mu.Lock()
			b.names[name] = ii.Ino
			b.parents[ii.Ino] = dir.Ino
			b.mu.Unlock()
			return nil
		},
		RemoveDentry: func(dir, ii *api.Inode, name string) error {
			b.Counters.bump("remove_dentry")
			b.mu.Lock()
			delete(b.names, name)
			b.mu.Unlock()
			return nil
		},
		Statfs: func(sb *api.Super, out *zuf.Statfs) error {
			b.Counters.bump("statfs")
			out.Bsize = zuf.PageSize
			out.Blocks = sb.Pmem.Bytes / zuf.PageSize
			return nil
		},
		Rename: func(req *zuf.Rename, oldDir, newDir *api.Inode) error {
			b.Counters.bump("rename")
			return nil
		},
		Readdir: func(app []byte, req *zuf.Readdir, dir *api.Inode) error {
			b.Counters.bump("readdir")
			return nil
		},
		Clone: func(req *zuf.Clone, src, dst *api.Inode) error {
			b.Counters.bump("clone")
			return nil
		},
	}

	b.IOps = &api.InodeOperations{
		Evict: func(ii *api.Inode) { b.Counters.bump("evict") },
		Read: func(app []byte, req *zuf.IO, ii *api.Inode) error {
			b.Counters.bump("read")
			return nil
		},
		PreRead: func(app []byte, req *zuf.IO, ii *api.Inode) error {
			b.Counters.bump("pre_read")
			return nil
		},
		Write: func(app []byte, req *zuf.IO, ii *api.Inode) error {
			b.Counters.bump("write")
			return nil
		},
		GetBlock: func(ii *api.Inode, req *zuf.IO) error {
			b.Counters.bump("get_block")
			req.PmemBN = req.Filepos / zuf.PageSize
			return nil
		},
		PutBlock: func(ii *api.Inode, req *zuf.IO) error {
			b.Counters.bump("put_block")
			return nil
		},
		MmapClose: func(ii *api.Inode, req *zuf.MmapClose) error {
			b.Counters.bump("mmap_close")
			return nil
		},
		GetSymlink: func(ii *api.Inode) (uint64, error) {
			b.Counters.bump("get_symlink")
			return ii.ZiOffset + 64, nil
		},
		Setattr: func(ii *api.Inode, mask uint32, truncateSize uint64) error {
			b.Counters.bump("setattr")
			return nil
		},
		Sync: func(ii *api.Inode, rg *zuf.Range) error {
			b.Counters.bump("sync")
			return nil
		},
		Fallocate: func(ii *api.Inode, rg *zuf.Range) error {
			b.Counters.bump("fallocate")
			return nil
		},
		Seek: func(ii *api.Inode, req *zuf.Seek) error {
			b.Counters.bump("seek")
			req.OffsetOut = req.OffsetIn
			return nil
		},
		Ioctl: func(ii *api.Inode, req *zuf.IoctlOp) error {
			b.Counters.bump("ioctl")
			return nil
		},
		GetXattr: func(ii *api.Inode, app []byte, req *zuf.Xattr) error {
			b.Counters.bump("getxattr")
			return nil
		},
		SetXattr: func(ii *api.Inode, app []byte, req *zuf.Xattr) error {
			b.Counters.bump("setxattr")
			return nil
		},
		ListXattr: func(ii *api.Inode, app []byte, req *zuf.Xattr) error {
			b.Counters.bump("listxattr")
			return nil
		},
	}

	fsOps := &api.FSOperations{
		SbiAlloc: func(fs *api.FSInfo) (*api.Super, error) {
			b.Counters.bump("sbi_alloc")
			return &api.Super{Ops: b.SOps, Priv: b}, nil
		},
		SbiFree: func(sb *api.Super) { b.Counters.bump("sbi_free") },
		SbiInit: func(sb *api.Super, m *zuf.Mount) error {
			b.Counters.bump("sbi_init")
			sb.Root = b.newInodeBinding(b.RootIno)
			return nil
		},
		SbiFini: func(sb *api.Super) error {
			b.Counters.bump("sbi_fini")
			return nil
		},
	}

	b.FS = &api.FSInfo{Name: name, Ops: fsOps}
	return b
}

func (b *Backend) newInodeBinding(ino uint64) *api.Inode {
	b.mu.Lock()
	parent := b.parents[ino]
	b.mu.Unlock()
	return &api.Inode{
		Ops:       b.IOps,
		Ino:       ino,
		ParentIno: parent,
		ZiOffset:  ino * zuf.PageSize,
	}
}

// AddInode provisions an inode with a parent, for lookup scenarios.
func (b *Backend) AddInode(ino, parent uint64) {
	b.mu.Lock()
	b.parents[ino] = parent
	b.mu.Unlock()
}

// SetLookup provisions a dentry name resolving to ino (0 removes it).
func (b *Backend) SetLookup(name string, ino uint64) {
	b.mu.Lock()
	if ino == 0 {
		delete(b.names, name)
	} else {
		b.names[name] = ino
	}
	b.mu.Unlock()
}
