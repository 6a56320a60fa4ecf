// File: zuf/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Request structures exchanged through the relay. Each operation request
// begins with Hdr; the remainder is selected by Hdr.Operation. All fields
// are fixed width with explicit padding so the layout is identical on both
// sides of the kernel boundary. Tokens are pointer-sized opaque values the
// runtime issues for filesystems, superblocks and inodes; the kernel echoes
// them back verbatim.

package zuf

// Hdr is the common prefix of every request in the op buffer. Workers fold
// the handler result into Err using the kernel sign convention.
type Hdr struct {
	Err       int32
	InLen     uint32
	OutLen    uint32
	Operation uint16
	Flags     uint16
	Offset    uint32 // app-region offset of the payload, if any
	Len       uint32 // payload length
	_         uint32
}

// Str is a dentry name carried inline in a request.
type Str struct {
	Len  uint8
	Name [NameMax + 1]byte
}

func (s *Str) String() string { return string(s.Name[:s.Len]) }

// Set copies name into the inline buffer, truncating at NameMax.
func (s *Str) Set(name string) {
	n := copy(s.Name[:NameMax], name)
	s.Len = uint8(n)
	s.Name[n] = 0
}

// CPUSet is a CPU bitmask with the same width as the OS cpu-set type.
type CPUSet struct {
	Bits [CPUSetWords]uint64
}

// IsSet reports whether cpu is present in the set.
func (c *CPUSet) IsSet(cpu int) bool {
	if cpu < 0 || cpu >= CPUSetBits {
		return false
	}
	return c.Bits[cpu/64]&(1<<(uint(cpu)%64)) != 0
}

// Set adds cpu to the set.
func (c *CPUSet) Set(cpu int) {
	if cpu < 0 || cpu >= CPUSetBits {
		return
	}
	c.Bits[cpu/64] |= 1 << (uint(cpu) % 64)
}

// Count returns the number of CPUs present in the set.
func (c *CPUSet) Count() int {
	n := 0
	for _, w := range c.Bits {
		for ; w != 0; w &= w - 1 {
			n++
		}
	}
	return n
}

// NumaMap is the one-shot topology snapshot returned by the numa-map
// exchange. It must fit a single page together with its header.
type NumaMap struct {
	Hdr            Hdr
	PossibleCPUs   uint32
	PossibleNodes  uint32
	CPUSetPerNode  [MaxNumaNodes]CPUSet
}

// ZtInit registers a relay handle as the carrier for worker (CPU, Channel).
type ZtInit struct {
	Hdr            Hdr
	CPU            uint32
	Channel        uint32
	MaxCommandSize uint32
	_              uint32
}

// PmemInfo describes a persistent-memory region bound to a relay handle.
type PmemInfo struct {
	PmemKernID uint32
	_          uint32
	Bytes      uint64 // total mappable size
}

// GrabPmem binds the pmem region PmemKernID to the issuing handle.
type GrabPmem struct {
	Hdr  Hdr
	Info PmemInfo
}

// AllocBuffer carves a kernel-shared buffer out of the issuing handle,
// mappable at offset 0.
type AllocBuffer struct {
	Hdr      Hdr
	InitSize uint32
	MaxSize  uint32
}

// RegisterFS announces a filesystem implementation to the kernel under a
// runtime-issued token.
type RegisterFS struct {
	Hdr   Hdr
	Token uint64
	Name  [32]byte
}

// Ddbg is a driver-debug exchange carried over mount events.
type Ddbg struct {
	Len uint64
	Buf [DdbgBufSize]byte
}

// Mount is the request for mount-channel events (MOUNT, UMOUNT, REMOUNT
// and the DDBG pair). On MOUNT the runtime fills SBToken, RootToken and
// RootZi; on UMOUNT/REMOUNT the kernel passes SBToken back.
type Mount struct {
	Hdr         Hdr
	FSToken     uint64 // registration token of the target filesystem
	SBToken     uint64 // out on mount, in on umount/remount
	RootToken   uint64 // out: root inode binding
	RootZi      uint64 // out: on-medium offset of the root inode
	SBID        uint64 // kernel superblock id
	PmemKernID  uint32
	NumChannels uint32
	MountFlags  uint64
	Ddbg        Ddbg // valid for DDBG_READ / DDBG_WRITE only
}

// Statfs is filled by the back-end for OpStatfs.
type Statfs struct {
	Hdr      Hdr
	SBToken  uint64
	Blocks   uint64
	Bfree    uint64
	Bavail   uint64
	Files    uint64
	Ffree    uint64
	Bsize    uint32
	NameLen  uint32
	FragSize uint32
	_        uint32
	Fsid     [2]uint64
}

// NewInode creates an inode under DirToken. The runtime zeroes the link
// count before calling the back-end; AddDentry establishes the first link
// unless ZiTmpFile is set.
type NewInode struct {
	Hdr      Hdr
	DirToken uint64
	Flags    uint32
	Mode     uint32
	Rdev     uint32
	Uid      uint32
	Gid      uint32
	Nlink    uint32 // zeroed by the runtime; AddDentry makes the first link
	Size     uint64
	ZiOffset uint64 // out: on-medium offset of the new inode
	NewToken uint64 // out: binding token of the new inode
	Name     Str
}

// EvictInode releases an inode binding, for both OpFreeInode and
// OpEvictInode.
type EvictInode struct {
	Hdr   Hdr
	Token uint64
	Flags uint32
	_     uint32
}

// Lookup resolves Name under DirToken.
type Lookup struct {
	Hdr      Hdr
	DirToken uint64
	ZiOffset uint64 // out
	Token    uint64 // out
	Name     Str
}

// Dentry adds or removes a link of Token under DirToken.
type Dentry struct {
	Hdr      Hdr
	DirToken uint64
	Token    uint64
	Name     Str
}

// Rename moves OldName in OldDirToken to NewName in NewDirToken.
type Rename struct {
	Hdr         Hdr
	OldDirToken uint64
	NewDirToken uint64
	Token       uint64
	Flags       uint32
	_           uint32
	Time        uint64
	OldName     Str
	NewName     Str
}

// Readdir iterates directory entries into the app region page addressed
// by Hdr.Offset. Pos is the resume cookie, in and out.
type Readdir struct {
	Hdr      Hdr
	DirToken uint64
	Pos      uint64
	FillLen  uint32 // out: bytes written into the app page
	More     uint32 // out: non-zero when entries remain
}

// Clone shares or copies a byte range from SrcToken to DstToken, for both
// OpClone and OpCopy.
type Clone struct {
	Hdr      Hdr
	SrcToken uint64
	DstToken uint64
	PosIn    uint64
	PosOut   uint64
	Len      uint64
}

// IO is the descriptor for OpRead, OpPreRead, OpWrite, OpGetBlock and
// OpPutBlock. Data travels through the app region; block answers return
// through PmemBN/BlockFlags.
type IO struct {
	Hdr        Hdr
	Token      uint64
	Filepos    uint64
	LastPos    uint64 // out: position after the handled range
	Rw         uint32
	_          uint32
	Priv       uint64 // back-end cookie, echoed on OpPutBlock
	PmemBN     uint64 // out on OpGetBlock: physical block number
	BlockFlags uint64 // out on OpGetBlock
}

// MmapClose notifies the last munmap of an mmapped file.
type MmapClose struct {
	Hdr     Hdr
	Token   uint64
	Rw      uint32
	_       uint32
}

// GetLink resolves a symlink to the on-medium offset of its target string.
type GetLink struct {
	Hdr    Hdr
	Token  uint64
	LinkZi uint64 // out
}

// Attr carries a setattr mask and an optional truncate size.
type Attr struct {
	Hdr          Hdr
	Token        uint64
	Mask         uint32
	_            uint32
	TruncateSize uint64
}

// Range is the request for OpSync and OpFallocate.
type Range struct {
	Hdr      Hdr
	Token    uint64
	Offset   uint64
	Length   uint64
	OpFlags  uint32 // fallocate mode
	_        uint32
}

// Seek implements OpLLSeek for SEEK_DATA/SEEK_HOLE.
type Seek struct {
	Hdr       Hdr
	Token     uint64
	OffsetIn  uint64
	Whence    uint32
	_         uint32
	OffsetOut uint64 // out
}

// IoctlOp forwards a file ioctl to the back-end. Larger argument payloads
// travel through the app region.
type IoctlOp struct {
	Hdr   Hdr
	Token uint64
	Cmd   uint32
	_     uint32
	Arg   uint64
}

// Xattr is the request for the three xattr operations. The attribute name
// is inline; values travel through the app region.
type Xattr struct {
	Hdr     Hdr
	Token   uint64
	Flags   uint32
	BufSize uint32 // in: user buffer capacity; out: value length
	Name    Str
}
