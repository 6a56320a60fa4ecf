// File: control/control_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/zus-go/control"
	"github.com/momentics/zus-go/zuf"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"root_path: /sys/fs/zuf-test\n"+
			"debug_mask: 5\n"+
			"mlock: all\n"+
			"log_level: debug\n"+
			"real_time: true\n"+
			"rr_priority: 40\n"), 0o644))

	cfg, err := control.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/sys/fs/zuf-test", cfg.RootPath)
	assert.Equal(t, uint64(5), cfg.DebugMask)
	assert.Equal(t, control.MlockAll, cfg.Mlock)
	assert.True(t, cfg.RealTime)
	assert.Equal(t, 40, cfg.RRPriority)
}

func TestConfigDefaults(t *testing.T) {
	cfg := control.Default()
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, control.DefaultRootPath, cfg.RootPath)
	assert.Equal(t, control.MlockCurrent, cfg.Mlock)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfigRejectsBadValues(t *testing.T) {
	cfg := control.Default()
	cfg.Mlock = "sometimes"
	assert.Error(t, cfg.Normalize())

	cfg = control.Default()
	cfg.RRPriority = 1000
	assert.Error(t, cfg.Normalize())
}

func TestDdbgRoundTrip(t *testing.T) {
	control.SetDebugMask(0)

	var d zuf.Ddbg
	n := copy(d.Buf[:], "mask=0x6")
	d.Len = uint64(n)
	require.NoError(t, control.DdbgWrite(&d))
	assert.Equal(t, uint64(6), control.DebugMask())
	assert.True(t, control.DebugEnabled(control.DbgThreads))
	assert.False(t, control.DebugEnabled(control.DbgOps))

	var out zuf.Ddbg
	require.NoError(t, control.DdbgRead(&out))
	assert.Contains(t, string(out.Buf[:out.Len]), "mask=0x6")

	assert.Error(t, control.DdbgWrite(&zuf.Ddbg{Len: 3}))
	control.SetDebugMask(0)
}
