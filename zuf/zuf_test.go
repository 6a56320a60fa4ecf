// File: zuf/zuf_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package zuf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/zus-go/zuf"
)

func TestErrnoToKernel(t *testing.T) {
	assert.Equal(t, int32(0), zuf.ErrnoToKernel(0))
	assert.Equal(t, int32(-5), zuf.ErrnoToKernel(5))
	assert.Equal(t, int32(-5), zuf.ErrnoToKernel(-5))

	// Idempotence over the full taxonomy.
	for _, e := range []int32{0, 1, 17, 95, -1, -95} {
		once := zuf.ErrnoToKernel(e)
		assert.Equal(t, once, zuf.ErrnoToKernel(once), "e=%d", e)
		assert.LessOrEqual(t, once, int32(0))
	}
}

func TestStrRoundTrip(t *testing.T) {
	var s zuf.Str
	s.Set("hello")
	assert.Equal(t, "hello", s.String())

	long := make([]byte, 2*zuf.NameMax)
	for i := range long {
		long[i] = 'x'
	}
	s.Set(string(long))
	assert.Len(t, s.String(), zuf.NameMax)
}

func TestCPUSet(t *testing.T) {
	var set zuf.CPUSet
	assert.Equal(t, 0, set.Count())

	set.Set(0)
	set.Set(63)
	set.Set(64)
	set.Set(1023)
	assert.Equal(t, 4, set.Count())
	assert.True(t, set.IsSet(63))
	assert.True(t, set.IsSet(64))
	assert.False(t, set.IsSet(1))

	// Out-of-range bits are ignored, not wrapped.
	set.Set(-1)
	set.Set(zuf.CPUSetBits)
	assert.Equal(t, 4, set.Count())
}

func TestOverlayInPlace(t *testing.T) {
	buf := zuf.AlignedBuf(zuf.MaxOpSize)

	hdr := zuf.HdrOf(buf)
	hdr.Operation = zuf.OpLookup

	lk := zuf.LookupOf(buf)
	lk.DirToken = 7
	lk.Name.Set("dir")

	// The overlays alias the same memory.
	require.Equal(t, zuf.OpLookup, zuf.HdrOf(buf).Operation)
	require.Equal(t, uint64(7), zuf.LookupOf(buf).DirToken)
	require.Equal(t, "dir", zuf.LookupOf(buf).Name.String())
}

func TestOpNames(t *testing.T) {
	assert.Equal(t, "LOOKUP", zuf.OpName(zuf.OpLookup))
	assert.Equal(t, "BREAK", zuf.OpName(zuf.OpBreak))
	assert.Equal(t, "UNKNOWN", zuf.OpName(zuf.OpMax))
	assert.Equal(t, "UNKNOWN", zuf.OpName(0xffff))

	// Every defined code has a name; trace logs never print blanks.
	for op := zuf.OpCode(0); op < zuf.OpMax; op++ {
		assert.NotEqual(t, "UNKNOWN", zuf.OpName(op), "op=%d", op)
	}
}
