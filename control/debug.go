// File: control/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Debug-mask channels and the driver-debug (ddbg) exchange the kernel
// carries over mount events. The mask is process-wide; reads snapshot it,
// writes replace it.

package control

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/momentics/zus-go/zuf"
)

// Debug channels.
const (
	DbgOps uint64 = 1 << iota
	DbgThreads
	DbgMount
	DbgPmem
)

var debugMask atomic.Uint64

// SetDebugMask installs the process debug mask. Called once at startup
// and afterwards only through ddbg writes.
func SetDebugMask(mask uint64) { debugMask.Store(mask) }

// DebugMask returns the current mask.
func DebugMask() uint64 { return debugMask.Load() }

// DebugEnabled reports whether any of the given channels are on.
func DebugEnabled(ch uint64) bool { return debugMask.Load()&ch != 0 }

// DdbgRead fills d with the printable debug state.
func DdbgRead(d *zuf.Ddbg) error {
	s := fmt.Sprintf("mask=0x%x\n", DebugMask())
	n := copy(d.Buf[:], s)
	d.Len = uint64(n)
	return nil
}

// DdbgWrite parses a "mask=<value>" command and applies it.
func DdbgWrite(d *zuf.Ddbg) error {
	if d.Len > uint64(len(d.Buf)) {
		return errors.New("ddbg: oversized write")
	}
	cmd := strings.TrimSpace(string(d.Buf[:d.Len]))

	val, ok := strings.CutPrefix(cmd, "mask=")
	if !ok {
		return errors.Errorf("ddbg: unknown command %q", cmd)
	}
	mask, err := strconv.ParseUint(val, 0, 64)
	if err != nil {
		return errors.Wrapf(err, "ddbg: bad mask %q", val)
	}
	SetDebugMask(mask)
	return nil
}
