// File: topology/topology.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU/NUMA topology snapshot, captured once over the relay and immutable
// afterwards. Affinity decisions and per-node object placement both fan
// out over this map; caching it whole is trivial next to an ioctl per
// lookup.

package topology

import (
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/zuf"
)

// Service holds the topology snapshot. All query methods are read-only
// after Init and need no synchronization.
type Service struct {
	log hclog.Logger

	initialized bool
	numaMap     zuf.NumaMap // copied out of the relay exchange, page sized
	nrCPUIDs    uint32

	possible zuf.CPUSet
	online   zuf.CPUSet

	warnOnce sync.Once
}

func New(log hclog.Logger) *Service {
	return &Service{log: log.Named("topology")}
}

// Init performs the one-shot numa-map exchange on conn and derives the
// possible and online masks. A second call is a programmer error.
func (s *Service) Init(conn api.Conn) error {
	if s.initialized {
		return api.ErrTopologyReinit
	}

	if err := conn.NumaMap(&s.numaMap); err != nil {
		return errors.Wrap(err, "numa map exchange")
	}

	m := &s.numaMap
	if m.PossibleCPUs == 0 || m.PossibleCPUs > zuf.CPUSetBits ||
		m.PossibleNodes == 0 || m.PossibleNodes > zuf.MaxNumaNodes {
		return errors.Errorf("implausible topology: cpus=%d nodes=%d",
			m.PossibleCPUs, m.PossibleNodes)
	}

	for cpu := 0; cpu < int(m.PossibleCPUs); cpu++ {
		s.possible.Set(cpu)
		for node := 0; node < int(m.PossibleNodes); node++ {
			if m.CPUSetPerNode[node].IsSet(cpu) {
				s.online.Set(cpu)
			}
		}
	}

	s.nrCPUIDs = m.PossibleCPUs
	s.initialized = true

	s.log.Info("topology captured",
		"possible_cpus", m.PossibleCPUs,
		"possible_nodes", m.PossibleNodes,
		"online_cpus", s.online.Count())
	return nil
}

func (s *Service) PossibleCPUs() int  { return int(s.numaMap.PossibleCPUs) }
func (s *Service) PossibleNodes() int { return int(s.numaMap.PossibleNodes) }
func (s *Service) OnlineCPUs() int    { return s.online.Count() }
func (s *Service) NrCPUIDs() uint32   { return s.nrCPUIDs }

// PossibleMask and OnlineMask return copies; the snapshot stays immutable.
func (s *Service) PossibleMask() zuf.CPUSet { return s.possible }
func (s *Service) OnlineMask() zuf.CPUSet   { return s.online }

// IsOnline reports whether cpu is within range and online.
func (s *Service) IsOnline(cpu int) bool {
	return cpu >= 0 && uint32(cpu) < s.nrCPUIDs && s.online.IsSet(cpu)
}

// badCPU yells on a misprogrammed handler but never aborts; a bad index
// degrades to node 0 rather than crashing a worker.
func (s *Service) badCPU(cpu int) bool {
	if cpu < 0 || uint32(cpu) >= s.nrCPUIDs {
		s.log.Warn("cpu out of range", "cpu", cpu, "nr_cpu_ids", s.nrCPUIDs)
		return true
	}
	if !s.online.IsSet(cpu) {
		s.log.Warn("offline cpu", "cpu", cpu)
		return true
	}
	return false
}

// CPUToNode returns the NUMA node owning cpu. Out-of-range or offline
// CPUs are reported and mapped to node 0.
func (s *Service) CPUToNode(cpu int) int {
	if s.badCPU(cpu) {
		return 0
	}
	for node := 0; node < int(s.numaMap.PossibleNodes); node++ {
		if s.numaMap.CPUSetPerNode[node].IsSet(cpu) {
			return node
		}
	}
	s.warnOnce.Do(func() {
		s.log.Warn("online cpu missing from every node mask", "cpu", cpu)
	})
	return 0
}

// NodeMask returns the CPU mask of node, or an empty mask for a bad node.
func (s *Service) NodeMask(node int) (zuf.CPUSet, bool) {
	if node < 0 || node >= int(s.numaMap.PossibleNodes) {
		return zuf.CPUSet{}, false
	}
	return s.numaMap.CPUSetPerNode[node], true
}

// NextOnline returns the next CPU after cpu present in mask, or -1.
// Start from -1 to iterate from the first CPU.
func (s *Service) NextOnline(cpu int, mask *zuf.CPUSet) int {
	for c := cpu + 1; uint32(c) < s.nrCPUIDs; c++ {
		if mask.IsSet(c) {
			return c
		}
	}
	return -1
}

// ForEachOnline calls fn for every online CPU in ascending index order.
func (s *Service) ForEachOnline(fn func(cpu int)) {
	for c := s.NextOnline(-1, &s.online); c >= 0; c = s.NextOnline(c, &s.online) {
		fn(c)
	}
}
