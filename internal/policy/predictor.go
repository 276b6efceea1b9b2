package policy

import (
	"fmt"
	"strconv"
	"strings"

	"bigsched/internal/logging"
)

// candidateOrder is the enumeration order the predictor is queried in, and
// the tie-break order for argmax: last-wins under equality (>= while
// iterating LITTLE -> BIG -> BOTH, so BOTH wins three-way ties).
var candidateOrder = [3]ClusterState{Little, Big, Both}

// PredictorAdapter queries an external regression model once per tick for
// each candidate cluster state and commits the argmax-MIPS state. Grounded
// on the original scheduler's STATE_L/STATE_B/STATE_BL query loop
// (original_source/scheduler), with the has_big/has_little derivation and
// hex-float wire encoding preserved verbatim.
type PredictorAdapter struct {
	pipe Pipe
}

// NewPredictorAdapter wraps an already-spawned policy pipe.
func NewPredictorAdapter(pipe Pipe) *PredictorAdapter {
	return &PredictorAdapter{pipe: pipe}
}

// Decide queries all three candidates and returns the highest-MIPS state,
// retaining current if every estimate is non-positive.
func (a *PredictorAdapter) Decide(metrics TickMetrics, current ClusterState) (ClusterState, error) {
	var best ClusterState = current
	bestMIPS := 0.0
	sawPositive := false

	for _, candidate := range candidateOrder {
		hasBig, hasLittle := clusterFlags(candidate)
		request := fmt.Sprintf("%s %s %s %d %d %s",
			hexFloat(metrics.MKPI),
			hexFloat(metrics.BMissRate),
			hexFloat(metrics.IPC),
			hasBig,
			hasLittle,
			hexFloat(metrics.CPUPercent),
		)

		if err := a.pipe.WriteLine(request); err != nil {
			return current, fmt.Errorf("policy: predictor request failed: %w", err)
		}
		reply, err := a.pipe.ReadLine()
		if err != nil {
			return current, fmt.Errorf("policy: predictor reply failed: %w", err)
		}

		mips, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
		if err != nil {
			logging.GetDecisionLogger().WithField("reply", reply).Warn("Unparseable predictor reply, treating as non-positive")
			continue
		}

		if mips >= bestMIPS {
			bestMIPS = mips
			best = candidate
			if mips > 0 {
				sawPositive = true
			}
		}
	}

	if !sawPositive {
		return current, nil
	}
	return best, nil
}

// Close is a no-op: the policy process itself is owned by the supervisor.
func (a *PredictorAdapter) Close() error { return nil }

// clusterFlags derives (has_big, has_little) from a candidate cluster
// state.
func clusterFlags(c ClusterState) (int, int) {
	switch c {
	case Big:
		return 1, 0
	case Little:
		return 0, 1
	case Both:
		return 1, 1
	default:
		return 0, 0
	}
}

// hexFloat renders f as a round-trippable hexadecimal floating-point
// token, the Go equivalent of the original scheduler's printf("%a", f).
func hexFloat(f float64) string {
	return strconv.FormatFloat(f, 'x', -1, 64)
}
