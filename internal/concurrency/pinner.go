// File: internal/concurrency/pinner.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform pinning dispatcher. The platform implementation applies
// affinity, scheduling and naming to the calling OS thread; tests swap in
// a recording fake so topology scenarios do not depend on the host CPUs.

package concurrency

import "github.com/momentics/zus-go/zuf"

// Scheduling policies accepted by Params.Policy.
const (
	SchedOther = 0
	SchedRR    = 2
)

// Pinner applies thread attributes to the calling OS thread.
type Pinner interface {
	// PinCPU restricts the calling thread to a single CPU.
	PinCPU(cpu int) error
	// PinNode restricts the calling thread to the CPUs in mask.
	PinNode(mask *zuf.CPUSet) error
	// SetScheduler sets policy and, for real-time policies, priority.
	SetScheduler(policy, priority int) error
	// SetName names the calling thread for ps/top.
	SetName(name string) error
	// GetCPU returns the CPU the calling thread runs on right now.
	GetCPU() (int, error)
}

// PlatformPinner returns the OS implementation for this build.
func PlatformPinner() Pinner { return platformPinner() }
