package policy

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CollectorAdapter writes one CSV row per tick and never produces a
// decision; the effector is never invoked while it is active. Grounded on
// the original scheduler's create_logging_file/log-row-per-tick behavior,
// using encoding/csv in place of hand-rolled fprintf formatting since it
// is the ecosystem-standard tool for this exact format.
type CollectorAdapter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCollectorAdapter opens scheduler_<pid>.csv for writing. The file has
// no header row.
func NewCollectorAdapter(pid int) (*CollectorAdapter, error) {
	name := fmt.Sprintf("scheduler_%d.csv", pid)
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("policy: failed to open collector log %s: %w", name, err)
	}
	return &CollectorAdapter{file: f, writer: csv.NewWriter(f)}, nil
}

// Decide appends one row and always returns current unchanged.
func (a *CollectorAdapter) Decide(metrics TickMetrics, current ClusterState) (ClusterState, error) {
	row := []string{
		strconv.FormatUint(metrics.ElapsedMS, 10),
		strconv.FormatUint(metrics.Cycles, 10),
		strconv.FormatUint(metrics.Instructions, 10),
		strconv.FormatUint(metrics.CacheMisses, 10),
		strconv.FormatUint(metrics.BranchInstructions, 10),
		strconv.FormatUint(metrics.BranchMisses, 10),
	}
	if err := a.writer.Write(row); err != nil {
		return current, fmt.Errorf("policy: failed to write collector row: %w", err)
	}
	a.writer.Flush()
	return current, a.writer.Error()
}

// Close flushes and closes the underlying file.
func (a *CollectorAdapter) Close() error {
	a.writer.Flush()
	return a.file.Close()
}
