//go:build !linux

// File: pool/alloc_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "github.com/momentics/zus-go/zuf"

// AllocAligned falls back to a heap buffer off Linux; alignment is still
// 8 bytes, enough for the op-buffer overlays.
func AllocAligned(n int) ([]byte, error) { return zuf.AlignedBuf(n), nil }

func FreeAligned([]byte) {}
