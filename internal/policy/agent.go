package policy

import (
	"fmt"
	"strings"

	"bigsched/internal/logging"
)

// AgentAdapter queries a learned agent once per tick and maps its token
// reply directly to a cluster state. Grounded on the original scheduler's
// STATE_AGENT branch (original_source/scheduler).
type AgentAdapter struct {
	pipe Pipe
}

// NewAgentAdapter wraps an already-spawned policy pipe.
func NewAgentAdapter(pipe Pipe) *AgentAdapter {
	return &AgentAdapter{pipe: pipe}
}

// Decide sends the three-token request and maps the reply. An
// unrecognized token is logged and current is retained.
func (a *AgentAdapter) Decide(metrics TickMetrics, current ClusterState) (ClusterState, error) {
	request := fmt.Sprintf("%s %s %s",
		hexFloat(metrics.MKPI),
		hexFloat(metrics.BMissRate),
		hexFloat(metrics.IPC),
	)

	if err := a.pipe.WriteLine(request); err != nil {
		return current, fmt.Errorf("policy: agent request failed: %w", err)
	}
	reply, err := a.pipe.ReadLine()
	if err != nil {
		return current, fmt.Errorf("policy: agent reply failed: %w", err)
	}

	switch strings.TrimSpace(reply) {
	case "4L":
		return Little, nil
	case "4B":
		return Big, nil
	case "4B4L":
		return Both, nil
	default:
		logging.GetDecisionLogger().WithField("reply", reply).Warn("Unrecognized agent reply, retaining current state")
		return current, nil
	}
}

// Close is a no-op: the policy process itself is owned by the supervisor.
func (a *AgentAdapter) Close() error { return nil }
