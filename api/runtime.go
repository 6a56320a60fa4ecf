// Package api
// Author: momentics <momentics@gmail.com>
//
// Runtime is the narrow view of the core runtime the demultiplexer and
// the mount glue operate on. Keeping it an interface lets tests drive the
// dispatch path with a minimal stand-in and keeps the dependency arrow
// pointing at api only.

package api

import "github.com/hashicorp/go-hclog"

// HandleStore issues the pointer-sized opaque tokens the kernel holds for
// filesystems, superblocks and inodes. Tokens are unique and stable from
// issue until Del.
type HandleStore interface {
	Put(v any) uint64
	Get(token uint64) any
	Del(token uint64)
}

// Runtime is implemented by core.Runtime.
type Runtime interface {
	Log() hclog.Logger
	Handles() HandleStore

	// FSByToken resolves a registration token, nil if unknown.
	FSByToken(token uint64) *FSInfo

	// Relay gives mount glue access to fresh handles for pmem grabbing.
	Relay() Relay

	// TraceOps reports whether per-operation trace logging is enabled.
	TraceOps() bool
}
