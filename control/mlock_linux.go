//go:build linux

// File: control/mlock_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ApplyMlock locks process memory per the configured mode. Pmem windows
// are the hot path; faulting them out mid-operation costs more than the
// lock does.
func ApplyMlock(cfg *Config) error {
	var flags int
	switch cfg.Mlock {
	case MlockNone:
		return nil
	case MlockCurrent:
		flags = unix.MCL_CURRENT
	case MlockAll:
		flags = unix.MCL_CURRENT | unix.MCL_FUTURE
	}
	if err := unix.Mlockall(flags); err != nil {
		return errors.Wrapf(err, "mlockall(%s)", cfg.Mlock)
	}
	return nil
}
