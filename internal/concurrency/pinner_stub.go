//go:build !linux

// File: internal/concurrency/pinner_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-Linux fallback. The zuf shim is Linux-only; this keeps the package
// compiling for tooling on other hosts. Pinning is a no-op, and every
// thread reports thread id 0, so the record registry cannot tell threads
// apart.

package concurrency

import "github.com/momentics/zus-go/zuf"

type stubPinner struct{}

func platformPinner() Pinner { return stubPinner{} }

func (stubPinner) PinCPU(int) error                { return nil }
func (stubPinner) PinNode(*zuf.CPUSet) error       { return nil }
func (stubPinner) SetScheduler(int, int) error     { return nil }
func (stubPinner) SetName(string) error            { return nil }
func (stubPinner) GetCPU() (int, error)            { return 0, nil }

func curTID() int { return 0 }
