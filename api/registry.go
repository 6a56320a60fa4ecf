// Package api
// Author: momentics <momentics@gmail.com>
//
// Link-time filesystem registry. Back-end packages register their FSInfo
// from an init function; the daemon hands the collected set to the
// runtime, which announces each one to the kernel.

package api

import "sync"

var (
	registryMu  sync.Mutex
	registryFSs []*FSInfo
)

// RegisterFilesystem adds a back-end implementation to the process
// registry. Typically called from the back-end package's init.
func RegisterFilesystem(fs *FSInfo) {
	registryMu.Lock()
	registryFSs = append(registryFSs, fs)
	registryMu.Unlock()
}

// Filesystems returns the registered implementations in registration
// order.
func Filesystems() []*FSInfo {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*FSInfo, len(registryFSs))
	copy(out, registryFSs)
	return out
}
