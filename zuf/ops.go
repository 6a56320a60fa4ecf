// File: zuf/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The fixed set of filesystem operation codes the kernel relays to user
// space, and their symbolic names for trace logging.

package zuf

// OpCode selects the request structure overlaid on the op buffer.
type OpCode = uint16

const (
	OpNull OpCode = iota
	OpStatfs
	OpNewInode
	OpFreeInode
	OpEvictInode
	OpLookup
	OpAddDentry
	OpRemoveDentry
	OpRename
	OpReaddir
	OpClone
	OpCopy
	OpRead
	OpPreRead
	OpWrite
	OpGetBlock
	OpPutBlock
	OpMmapClose
	OpGetSymlink
	OpSetattr
	OpSync
	OpFallocate
	OpLLSeek
	OpIoctl
	OpXattrGet
	OpXattrSet
	OpXattrList
	OpBreak
	OpMax
)

var opNames = [OpMax]string{
	OpNull:         "NULL",
	OpStatfs:       "STATFS",
	OpNewInode:     "NEW_INODE",
	OpFreeInode:    "FREE_INODE",
	OpEvictInode:   "EVICT_INODE",
	OpLookup:       "LOOKUP",
	OpAddDentry:    "ADD_DENTRY",
	OpRemoveDentry: "REMOVE_DENTRY",
	OpRename:       "RENAME",
	OpReaddir:      "READDIR",
	OpClone:        "CLONE",
	OpCopy:         "COPY",
	OpRead:         "READ",
	OpPreRead:      "PRE_READ",
	OpWrite:        "WRITE",
	OpGetBlock:     "GET_BLOCK",
	OpPutBlock:     "PUT_BLOCK",
	OpMmapClose:    "MMAP_CLOSE",
	OpGetSymlink:   "GET_SYMLINK",
	OpSetattr:      "SETATTR",
	OpSync:         "SYNC",
	OpFallocate:    "FALLOCATE",
	OpLLSeek:       "LLSEEK",
	OpIoctl:        "IOCTL",
	OpXattrGet:     "XATTR_GET",
	OpXattrSet:     "XATTR_SET",
	OpXattrList:    "XATTR_LIST",
	OpBreak:        "BREAK",
}

// OpName returns the symbolic name of op, or "UNKNOWN".
func OpName(op OpCode) string {
	if op < OpMax && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}
