// Package effector applies a committed cluster decision by rewriting the
// workload's CPU affinity mask, shelling out to taskset the same way the
// original scheduler's update_affinity did (original_source/scheduler).
package effector

import (
	"fmt"
	"os/exec"
	"strconv"

	"bigsched/internal/config"
	"bigsched/internal/logging"
	"bigsched/internal/policy"
)

// AffinitySetter is the single syscall-adjacent operation the effector
// needs. Injecting it, rather than calling exec.Command directly, lets
// tests substitute a fake instead of a real taskset invocation.
type AffinitySetter interface {
	SetAffinity(pid int, mask string) error
}

// taskset shells out to the OS affinity utility, matching the original
// scheduler's use of a shell-invoked tool instead of a direct
// sched_setaffinity syscall.
type taskset struct{}

func (taskset) SetAffinity(pid int, mask string) error {
	cmd := exec.Command("taskset", "-pac", mask, strconv.Itoa(pid))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("taskset failed: %w (output: %s)", err, out)
	}
	return nil
}

// Effector owns the mapping from cluster state to affinity mask and
// applies it to the workload's PID.
type Effector struct {
	setter AffinitySetter
	masks  config.ClusterMasks
}

// New returns an Effector using the real taskset utility.
func New(masks config.ClusterMasks) *Effector {
	return &Effector{setter: taskset{}, masks: masks}
}

// NewWithSetter returns an Effector using a caller-supplied AffinitySetter,
// for tests.
func NewWithSetter(setter AffinitySetter, masks config.ClusterMasks) *Effector {
	return &Effector{setter: setter, masks: masks}
}

// MaskFor returns the configured affinity mask string for a cluster state.
func (e *Effector) MaskFor(state policy.ClusterState) string {
	switch state {
	case policy.Little:
		return e.masks.Little
	case policy.Big:
		return e.masks.Big
	case policy.Both:
		return e.masks.Both
	default:
		return e.masks.Both
	}
}

// Apply pins pid to the mask for next. A failed syscall/utility invocation
// is logged, never returned as an error: the caller still commits the new
// state to avoid a per-tick retry storm.
func (e *Effector) Apply(pid int, next policy.ClusterState) {
	mask := e.MaskFor(next)
	if err := e.setter.SetAffinity(pid, mask); err != nil {
		logging.GetLogger().WithFields(map[string]interface{}{
			"pid":   pid,
			"mask":  mask,
			"state": next.String(),
			"error": err,
		}).Warn("Failed to apply CPU affinity, advancing state anyway")
	}
}
