package process

import (
	"testing"
	"time"
)

func TestParsePCPU(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   float64
		ok     bool
	}{
		{
			name:   "single aggregate line",
			output: "%CPU\n 12.5\n",
			want:   12.5,
			ok:     true,
		},
		{
			name:   "aggregate followed by thread rows",
			output: "%CPU\n 30.0\n 15.0\n 15.0\n",
			want:   30.0,
			ok:     true,
		},
		{
			name:   "header only",
			output: "%CPU\n",
			ok:     false,
		},
		{
			name:   "garbage",
			output: "%CPU\nnot-a-number\n",
			ok:     false,
		},
		{
			name:   "empty",
			output: "",
			ok:     false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := parsePCPU(c.output)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestSpawnWorkloadPollAndTerminate(t *testing.T) {
	s := New()
	if err := s.SpawnWorkload([]string{"sleep", "5"}); err != nil {
		t.Fatalf("SpawnWorkload: %v", err)
	}
	if s.WorkloadPID() == 0 {
		t.Fatalf("expected a non-zero workload PID")
	}
	if state := s.PollWorkload(); state != WorkloadAlive {
		t.Fatalf("expected workload to be alive immediately after spawn, got %v", state)
	}

	s.TerminateAll()
	if state := s.PollWorkload(); state != WorkloadExited {
		t.Fatalf("expected workload to be exited after TerminateAll, got %v", state)
	}

	// Idempotent: a second call must not block or panic.
	s.TerminateAll()
}

func TestSpawnWorkloadNaturalExitIsObserved(t *testing.T) {
	s := New()
	if err := s.SpawnWorkload([]string{"sh", "-c", "exit 0"}); err != nil {
		t.Fatalf("SpawnWorkload: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.PollWorkload() == WorkloadExited {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("workload never observed as exited")
}

// TestConcurrentPollAndTerminateDoesNotDeadlock exercises the path a real
// SIGINT/SIGTERM takes: the control loop polling on one goroutine while
// TerminateAll runs on another. Before the mutex and the non-blocking
// terminate/kill escalation, whichever goroutine drained workloadDone first
// would leave the other blocked forever.
func TestConcurrentPollAndTerminateDoesNotDeadlock(t *testing.T) {
	s := New()
	if err := s.SpawnWorkload([]string{"sleep", "5"}); err != nil {
		t.Fatalf("SpawnWorkload: %v", err)
	}

	stop := make(chan struct{})
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		for {
			select {
			case <-stop:
				return
			default:
				s.PollWorkload()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	terminateDone := make(chan struct{})
	go func() {
		defer close(terminateDone)
		s.TerminateAll()
	}()

	select {
	case <-terminateDone:
	case <-time.After(5 * time.Second):
		t.Fatal("TerminateAll did not return; concurrent poll likely deadlocked it")
	}
	close(stop)
	<-pollDone

	if state := s.PollWorkload(); state != WorkloadExited {
		t.Fatalf("expected workload to be observed exited after TerminateAll, got %v", state)
	}
}

func TestPolicyPipeRoundTrip(t *testing.T) {
	s := New()
	// cat echoes stdin to stdout line by line, letting us exercise the
	// write/read pipe plumbing without a real policy process.
	if err := s.SpawnPolicy("cat"); err != nil {
		t.Fatalf("SpawnPolicy: %v", err)
	}
	defer s.TerminateAll()

	if s.PolicyPID() == 0 {
		t.Fatalf("expected a non-zero policy PID")
	}

	if err := s.WritePolicyLine("hello"); err != nil {
		t.Fatalf("WritePolicyLine: %v", err)
	}
	line, err := s.ReadPolicyLine()
	if err != nil {
		t.Fatalf("ReadPolicyLine: %v", err)
	}
	if line != "hello" {
		t.Fatalf("got %q, want %q", line, "hello")
	}
}
