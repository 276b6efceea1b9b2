// Package policy bridges the control loop to the active scheduling policy:
// pure telemetry collection, a model-based predictor, or a learned agent.
// Each mode is a distinct Adapter grounded on the original scheduler's
// update_scheduler (original_source/scheduler), built around a small pipe
// interface so the wire protocol can be tested without a real policy
// process.
package policy

// ClusterState is which subset of clusters the workload may currently run
// on.
type ClusterState int

const (
	Little ClusterState = iota
	Big
	Both
)

func (c ClusterState) String() string {
	switch c {
	case Little:
		return "LITTLE"
	case Big:
		return "BIG"
	case Both:
		return "BOTH"
	default:
		return "UNKNOWN"
	}
}

// Mode selects which policy adapter is compiled into the running binary.
// This is deliberately a build-time constant, not a flag or environment
// variable. Changing it means editing this file and rebuilding.
type Mode int

const (
	ModeCollect Mode = iota
	ModePredictor
	ModeAgent
)

// ActiveMode is the compiled-in policy mode. Exactly one binary's worth of
// behavior is ever active; there is no runtime override.
const ActiveMode Mode = ModeCollect

// TickMetrics is the set of derived scalars the control loop hands to the
// policy adapter once per tick.
type TickMetrics struct {
	MKPI       float64
	BMissRate  float64
	IPC        float64
	CPUPercent float64
	ElapsedMS  uint64

	Cycles             uint64
	Instructions       uint64
	CacheMisses        uint64
	BranchInstructions uint64
	BranchMisses       uint64
}

// Adapter is implemented by each policy mode. Decide is called once per
// tick and returns the cluster state the effector should move to; Close
// releases anything the adapter opened (a log file or a policy process).
type Adapter interface {
	Decide(metrics TickMetrics, current ClusterState) (ClusterState, error)
	Close() error
}
