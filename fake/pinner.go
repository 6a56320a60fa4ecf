// Package fake
// Author: momentics <momentics@gmail.com>
//
// Recording pinner. Thread creation records the affinity it would have
// applied instead of touching the host scheduler, so topology scenarios
// run on any machine.

package fake

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/momentics/zus-go/zuf"
)

// Pinner implements concurrency.Pinner.
type Pinner struct {
	mu sync.Mutex

	pinCPUs  []int
	nodePins int
	policies []int
	names    []string

	failCPU int
}

// NewPinner returns a pinner that records and never fails.
func NewPinner() *Pinner { return &Pinner{failCPU: -1} }

// FailOnCPU makes PinCPU fail for one CPU, to exercise init-error paths.
func (p *Pinner) FailOnCPU(cpu int) {
	p.mu.Lock()
	p.failCPU = cpu
	p.mu.Unlock()
}

func (p *Pinner) PinCPU(cpu int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cpu == p.failCPU {
		return errors.Errorf("fake pinner: refusing cpu %d", cpu)
	}
	p.pinCPUs = append(p.pinCPUs, cpu)
	return nil
}

func (p *Pinner) PinNode(*zuf.CPUSet) error {
	p.mu.Lock()
	p.nodePins++
	p.mu.Unlock()
	return nil
}

func (p *Pinner) SetScheduler(policy, priority int) error {
	p.mu.Lock()
	p.policies = append(p.policies, policy)
	p.mu.Unlock()
	return nil
}

func (p *Pinner) SetName(name string) error {
	p.mu.Lock()
	p.names = append(p.names, name)
	p.mu.Unlock()
	return nil
}

func (p *Pinner) GetCPU() (int, error) { return 0, nil }

// PinnedCPUs returns every CPU pin recorded so far.
func (p *Pinner) PinnedCPUs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.pinCPUs))
	copy(out, p.pinCPUs)
	return out
}

// Names returns every thread name recorded so far.
func (p *Pinner) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}
