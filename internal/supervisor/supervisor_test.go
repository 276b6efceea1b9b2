package supervisor

import (
	"testing"

	"bigsched/internal/process"
)

func TestCleanupIsIdempotent(t *testing.T) {
	s := &Supervisor{proc: process.New()}

	s.Cleanup()
	// A second call must not panic or block, even though every owned
	// resource is nil or already torn down.
	s.Cleanup()
}

func TestCleanupHandlesNilResources(t *testing.T) {
	s := &Supervisor{}
	s.Cleanup()
}
