// Package perf opens per-CPU hardware performance counters and exposes
// delta-since-last-consume reads to the control loop, using the same
// elastic/go-perf library and enabled/running multiplexing correction as
// a cgroup-scoped perf collector, generalized to a per-CPU, per-counter
// read addressed by the caller's CPU index.
package perf

import (
	"fmt"
	"runtime"
	"sync"

	"bigsched/internal/logging"

	goperf "github.com/elastic/go-perf"
)

// Sample is an immutable record of the five hardware counters accumulated
// on one CPU since the previous consume (or since Init, for the first
// consume on that CPU).
type Sample struct {
	Cycles             uint64
	Instructions       uint64
	CacheMisses        uint64
	BranchInstructions uint64
	BranchMisses       uint64
}

type counterKind int

const (
	kindCycles counterKind = iota
	kindInstructions
	kindCacheMisses
	kindBranchInstructions
	kindBranchMisses
	numKinds
)

type eventState struct {
	value   uint64
	enabled uint64
	running uint64
}

// Sampler owns one perf event per CPU per hardware counter kind.
type Sampler struct {
	mu        sync.Mutex
	events    [][numKinds]*goperf.Event // indexed by cpu, then kind
	lastState [][numKinds]eventState
	nprocs    int
}

// Init opens a cycles/instructions/cache-misses/branch-instructions/
// branch-misses counter on every online CPU, for all threads on that CPU
// (perf.AllThreads), and enables them immediately. Failure to open any
// counter is fatal: everything opened so far is closed before returning.
func Init() (*Sampler, error) {
	logger := logging.GetLogger()
	nprocs := runtime.NumCPU()

	s := &Sampler{
		nprocs:    nprocs,
		events:    make([][numKinds]*goperf.Event, nprocs),
		lastState: make([][numKinds]eventState, nprocs),
	}

	counters := [numKinds]goperf.HardwareCounter{
		kindCycles:             goperf.CPUCycles,
		kindInstructions:       goperf.Instructions,
		kindCacheMisses:        goperf.CacheMisses,
		kindBranchInstructions: goperf.BranchInstructions,
		kindBranchMisses:       goperf.BranchMisses,
	}

	for cpu := 0; cpu < nprocs; cpu++ {
		for kind := counterKind(0); kind < numKinds; kind++ {
			attr := &goperf.Attr{}
			counters[kind].Configure(attr)
			attr.CountFormat.Enabled = true
			attr.CountFormat.Running = true

			event, err := goperf.Open(attr, goperf.AllThreads, cpu, nil)
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"cpu":   cpu,
					"kind":  kind,
					"error": err,
				}).Error("Failed to open hardware counter")
				s.Shutdown()
				return nil, fmt.Errorf("perf: failed to open counter on cpu %d: %w", cpu, err)
			}
			if err := event.Enable(); err != nil {
				event.Close()
				s.Shutdown()
				return nil, fmt.Errorf("perf: failed to enable counter on cpu %d: %w", cpu, err)
			}
			s.events[cpu][kind] = event
		}
	}

	return s, nil
}

// NProcs returns the number of CPUs the sampler is monitoring.
func (s *Sampler) NProcs() int {
	return s.nprocs
}

// ConsumeHW returns the counter deltas for cpu since the previous call (or
// since Init), correcting for PMU multiplexing using the kernel's
// enabled/running time pair.
func (s *Sampler) ConsumeHW(cpu int) (Sample, error) {
	if cpu < 0 || cpu >= s.nprocs {
		return Sample{}, fmt.Errorf("perf: cpu %d out of range [0,%d)", cpu, s.nprocs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sample Sample
	for kind := counterKind(0); kind < numKinds; kind++ {
		event := s.events[cpu][kind]
		if event == nil {
			continue
		}
		count, err := event.ReadCount()
		if err != nil {
			return Sample{}, fmt.Errorf("perf: read count cpu %d kind %d: %w", cpu, kind, err)
		}

		cur := eventState{
			value:   uint64(count.Value),
			enabled: uint64(count.Enabled),
			running: uint64(count.Running),
		}
		last := s.lastState[cpu][kind]

		scaled := correctedDelta(cur, last)
		s.lastState[cpu][kind] = cur

		switch kind {
		case kindCycles:
			sample.Cycles = scaled
		case kindInstructions:
			sample.Instructions = scaled
		case kindCacheMisses:
			sample.CacheMisses = scaled
		case kindBranchInstructions:
			sample.BranchInstructions = scaled
		case kindBranchMisses:
			sample.BranchMisses = scaled
		}
	}

	return sample, nil
}

// correctedDelta computes the raw counter delta between two reads and
// scales it by the enabled/running ratio when the kernel multiplexed this
// counter against others sharing the same physical PMU slot.
func correctedDelta(cur, last eventState) uint64 {
	deltaValue := cur.value - last.value
	deltaEnabled := cur.enabled - last.enabled
	deltaRunning := cur.running - last.running

	if deltaRunning > 0 && deltaEnabled > 0 && deltaRunning != deltaEnabled {
		return uint64(float64(deltaValue) * (float64(deltaEnabled) / float64(deltaRunning)))
	}
	return deltaValue
}

// Shutdown closes every open counter. Idempotent: already-closed or
// never-opened slots are skipped.
func (s *Sampler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cpu := range s.events {
		for kind := counterKind(0); kind < numKinds; kind++ {
			event := s.events[cpu][kind]
			if event != nil {
				event.Close()
				s.events[cpu][kind] = nil
			}
		}
	}
}
