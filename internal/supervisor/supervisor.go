// Package supervisor orchestrates startup, the control loop, and
// idempotent teardown, grounded on the original scheduler's main() and
// cleanup() (original_source/scheduler) and reworked around a single
// owning aggregate that releases resources in reverse acquisition order.
package supervisor

import (
	"fmt"
	"os"
	"sync"

	"bigsched/internal/clock"
	"bigsched/internal/config"
	"bigsched/internal/control"
	"bigsched/internal/effector"
	"bigsched/internal/logging"
	"bigsched/internal/perf"
	"bigsched/internal/policy"
	"bigsched/internal/process"
	"bigsched/internal/telemetry"
)

// Options selects the workload to run and the configuration file, if any.
// Mode is not part of Options: it is policy.ActiveMode, a build-time
// constant.
type Options struct {
	WorkloadArgv []string
	ConfigPath   string
}

// Supervisor owns every resource acquired across startup and is
// responsible for releasing all of them, in reverse order, on any exit
// path.
type Supervisor struct {
	proc    *process.Supervisor
	sampler *perf.Sampler
	adapter policy.Adapter
	sink    telemetry.Sink
	loop    *control.Loop

	mu          sync.Mutex
	cleanedUp   bool
}

// New resolves configuration, spawns the workload (and, for
// predictor/agent modes, the policy process), and opens the perf sampler.
// On any failure it rolls back everything acquired so far (via Cleanup)
// before returning the error.
func New(opts Options) (*Supervisor, error) {
	logger := logging.GetLogger()
	cfg := config.Load(opts.ConfigPath)

	s := &Supervisor{proc: process.New()}

	adapter, err := s.initAdapter(cfg)
	if err != nil {
		s.Cleanup()
		return nil, err
	}
	s.adapter = adapter

	if err := s.proc.SpawnWorkload(opts.WorkloadArgv); err != nil {
		s.Cleanup()
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	logger.WithField("pid", s.proc.WorkloadPID()).Info("Workload spawned")

	sampler, err := perf.Init()
	if err != nil {
		s.Cleanup()
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	s.sampler = sampler

	s.sink = telemetry.NewSink()

	eff := effector.New(cfg.ClusterMasks)
	s.loop = control.New(s.sampler, s.proc, s.adapter, eff, s.sink, clock.New(), cfg.TickPeriod())
	s.loop.SetSupervisorPID(os.Getpid())

	return s, nil
}

// Run drives the control loop to completion. The caller is responsible
// for calling Cleanup afterward (directly, or via a signal handler that
// races a normal Run return); Run itself never cleans up, so an external
// SIGINT/SIGTERM can call Cleanup concurrently to force the workload to
// exit and unblock Run.
func (s *Supervisor) Run() error {
	if err := s.loop.Run(); err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

// initAdapter opens the mode-specific policy adapter, spawning the policy
// process first when the mode requires one.
func (s *Supervisor) initAdapter(cfg *config.Config) (policy.Adapter, error) {
	switch policy.ActiveMode {
	case policy.ModeCollect:
		adapter, err := policy.NewCollectorAdapter(os.Getpid())
		if err != nil {
			return nil, fmt.Errorf("supervisor: %w", err)
		}
		return adapter, nil

	case policy.ModePredictor:
		if err := s.proc.SpawnPolicy(cfg.PredictorCommand); err != nil {
			return nil, fmt.Errorf("supervisor: %w", err)
		}
		return policy.NewPredictorAdapter(s.proc.PolicyPipe()), nil

	case policy.ModeAgent:
		if err := s.proc.SpawnPolicy(cfg.AgentCommand); err != nil {
			return nil, fmt.Errorf("supervisor: %w", err)
		}
		return policy.NewAgentAdapter(s.proc.PolicyPipe()), nil

	default:
		return nil, fmt.Errorf("supervisor: unknown policy mode %d", policy.ActiveMode)
	}
}

// Cleanup releases every owned resource in reverse acquisition order:
// telemetry sink, perf sampler, policy and workload children (via the
// process supervisor's own idempotent TerminateAll), and finally the
// policy adapter (closes the collector log file, or is a no-op for
// predictor/agent since their pipes died with the policy child above).
// Idempotent and safe to call from a signal handler.
func (s *Supervisor) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleanedUp {
		return
	}
	s.cleanedUp = true

	logger := logging.GetLogger()

	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			logger.WithError(err).Debug("Telemetry sink close failed")
		}
	}

	if s.sampler != nil {
		s.sampler.Shutdown()
	}

	if s.proc != nil {
		s.proc.TerminateAll()
	}

	if s.adapter != nil {
		if err := s.adapter.Close(); err != nil {
			logger.WithError(err).Debug("Policy adapter close failed")
		}
	}

	logger.Info("Supervisor cleanup complete")
}
