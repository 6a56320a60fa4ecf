// Package api
// Author: momentics <momentics@gmail.com>
//
// Public contracts of the zus runtime: the relay abstraction over the
// kernel control device, the back-end vtables a filesystem implementation
// plugs in, the superblock/inode bindings the core stores for the kernel,
// and the sentinel errors shared across packages.
package api
