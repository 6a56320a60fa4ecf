//go:build linux

// File: internal/concurrency/pinner_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux pinning via sched_setaffinity / sched_setscheduler / prctl on the
// calling thread. Callers must hold runtime.LockOSThread.

package concurrency

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/zus-go/zuf"
)

// The wire cpu-set width must match the OS cpu-set type.
var _ [unsafe.Sizeof(unix.CPUSet{}) - unsafe.Sizeof(zuf.CPUSet{})]byte
var _ [unsafe.Sizeof(zuf.CPUSet{}) - unsafe.Sizeof(unix.CPUSet{})]byte

type sysPinner struct{}

func platformPinner() Pinner { return sysPinner{} }

func (sysPinner) PinCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "sched_setaffinity cpu=%d", cpu)
	}
	return nil
}

func (sysPinner) PinNode(mask *zuf.CPUSet) error {
	set := (*unix.CPUSet)(unsafe.Pointer(mask))
	if err := unix.SchedSetaffinity(0, set); err != nil {
		return errors.Wrap(err, "sched_setaffinity node mask")
	}
	return nil
}

func (sysPinner) SetScheduler(policy, priority int) error {
	param := struct{ priority int32 }{int32(priority)}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER,
		0, uintptr(policy), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errors.Wrapf(errno, "sched_setscheduler policy=%d", policy)
	}
	return nil
}

func (sysPinner) SetName(name string) error {
	b := make([]byte, 16)
	copy(b[:15], name)
	_, _, errno := unix.Syscall(unix.SYS_PRCTL, unix.PR_SET_NAME,
		uintptr(unsafe.Pointer(&b[0])), 0)
	if errno != 0 {
		return errors.Wrapf(errno, "prctl(PR_SET_NAME, %q)", name)
	}
	return nil
}

func (sysPinner) GetCPU() (int, error) {
	var cpu, node uint32
	_, _, errno := unix.Syscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return 0, errors.Wrap(errno, "getcpu")
	}
	return int(cpu), nil
}

func curTID() int { return unix.Gettid() }
