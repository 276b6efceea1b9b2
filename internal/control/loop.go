// Package control drives the fixed-period tick that ties the perf
// sampler, process supervisor, policy adapter, effector, and telemetry
// sink together. Grounded on the original scheduler's update_scheduler
// and its surrounding usleep(20000) loop in main() (original_source/
// scheduler), reworked around small injected interfaces so it can be
// tested without real hardware counters or a real workload process.
package control

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"bigsched/internal/clock"
	"bigsched/internal/effector"
	"bigsched/internal/logging"
	"bigsched/internal/perf"
	"bigsched/internal/policy"
)

// PerfSource is the subset of the perf sampler the loop needs: summed
// deltas across every CPU for one tick. A real *perf.Sampler satisfies
// this directly; tests substitute a fake that never touches hardware
// counters.
type PerfSource interface {
	NProcs() int
	ConsumeHW(cpu int) (perf.Sample, error)
}

// WorkloadProbe is the subset of the process supervisor the loop needs to
// observe and steer the workload child.
type WorkloadProbe interface {
	WorkloadExited() bool
	WorkloadPID() int
	WorkloadStart() time.Time
	WorkloadCPUUsage() float64
}

// TelemetrySink is the subset of telemetry.Sink the loop needs.
type TelemetrySink interface {
	WriteTick(metrics policy.TickMetrics, committed policy.ClusterState) error
}

// Loop owns the running cluster state and drives ticks until the workload
// exits.
type Loop struct {
	perf          PerfSource
	workload      WorkloadProbe
	adapter       policy.Adapter
	effect        *effector.Effector
	sink          TelemetrySink
	clock         clock.Clock
	period        time.Duration
	current       policy.ClusterState
	supervisorPID int
}

// New constructs a Loop. The initial cluster state is BOTH, so the first
// tick never narrows affinity before a policy decision has been made.
func New(perf PerfSource, workload WorkloadProbe, adapter policy.Adapter, effect *effector.Effector, sink TelemetrySink, clk clock.Clock, period time.Duration) *Loop {
	return &Loop{
		perf:     perf,
		workload: workload,
		adapter:  adapter,
		effect:   effect,
		sink:     sink,
		clock:    clk,
		period:   period,
		current:  policy.Both,
	}
}

// Run executes ticks until the workload exits, then writes the
// scheduler_<pid>.time file and returns. It is the caller's
// responsibility to invoke cleanup (policy/workload termination,
// adapter/sink Close) afterward; Run itself only writes the time file,
// per the committed exit sequence.
func (l *Loop) Run() error {
	logger := logging.GetLogger()

	for {
		time.Sleep(l.period)

		exited := l.workload.WorkloadExited()
		cpuPercent := l.workload.WorkloadCPUUsage()

		var summed perf.Sample
		for cpu := 0; cpu < l.perf.NProcs(); cpu++ {
			s, err := l.perf.ConsumeHW(cpu)
			if err != nil {
				logger.WithError(err).WithField("cpu", cpu).Warn("Failed to consume perf counters for cpu, skipping")
				continue
			}
			summed.Cycles += s.Cycles
			summed.Instructions += s.Instructions
			summed.CacheMisses += s.CacheMisses
			summed.BranchInstructions += s.BranchInstructions
			summed.BranchMisses += s.BranchMisses
		}

		elapsed := l.clock.ToMillis(l.clock.Now().Sub(l.workload.WorkloadStart()))
		metrics := computeMetrics(summed, cpuPercent, elapsed)

		next, err := l.adapter.Decide(metrics, l.current)
		if err != nil {
			return fmt.Errorf("control: policy adapter failed: %w", err)
		}

		if l.sink != nil {
			if err := l.sink.WriteTick(metrics, l.current); err != nil {
				logger.WithError(err).Debug("Telemetry sink write failed for this tick")
			}
		}

		if !exited && next != l.current && l.effect != nil {
			l.effect.Apply(l.workload.WorkloadPID(), next)
		}
		l.current = next

		if exited {
			return l.writeTimeFile(elapsed)
		}
	}
}

// computeMetrics derives the tick's scalar ratios from summed counter
// deltas, guarding every division against a zero denominator and summing
// across CPUs before dividing rather than averaging per-CPU ratios.
func computeMetrics(s perf.Sample, cpuPercent float64, elapsedMS uint64) policy.TickMetrics {
	metrics := policy.TickMetrics{
		CPUPercent:         cpuPercent,
		ElapsedMS:          elapsedMS,
		Cycles:             s.Cycles,
		Instructions:       s.Instructions,
		CacheMisses:        s.CacheMisses,
		BranchInstructions: s.BranchInstructions,
		BranchMisses:       s.BranchMisses,
	}
	if s.Instructions > 0 {
		metrics.MKPI = float64(s.CacheMisses) * 1000 / float64(s.Instructions)
	}
	if s.BranchInstructions > 0 {
		metrics.BMissRate = float64(s.BranchMisses) / float64(s.BranchInstructions)
	}
	if s.Cycles > 0 {
		metrics.IPC = float64(s.Instructions) / float64(s.Cycles)
	}
	return metrics
}

// writeTimeFile writes scheduler_<pid>.time with the workload's total
// elapsed milliseconds.
func (l *Loop) writeTimeFile(elapsedMS uint64) error {
	name := fmt.Sprintf("scheduler_%d.time", l.supervisorPID)
	if err := os.WriteFile(name, []byte(strconv.FormatUint(elapsedMS, 10)), 0o644); err != nil {
		return fmt.Errorf("control: failed to write time file %s: %w", name, err)
	}
	return nil
}

// SetSupervisorPID records the PID used to name the time file. The
// supervisor's own PID (not the workload's) matches the original
// scheduler's use of its own PID in output file names.
func (l *Loop) SetSupervisorPID(pid int) {
	l.supervisorPID = pid
}
