package effector

import (
	"errors"
	"testing"

	"bigsched/internal/config"
	"bigsched/internal/policy"
)

type fakeSetter struct {
	calls []call
	err   error
}

type call struct {
	pid  int
	mask string
}

func (f *fakeSetter) SetAffinity(pid int, mask string) error {
	f.calls = append(f.calls, call{pid, mask})
	return f.err
}

func testMasks() config.ClusterMasks {
	return config.ClusterMasks{Little: "0-3", Big: "4-7", Both: "0-7"}
}

func TestApplyUsesConfiguredMask(t *testing.T) {
	setter := &fakeSetter{}
	e := NewWithSetter(setter, testMasks())

	e.Apply(123, policy.Big)

	if len(setter.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(setter.calls))
	}
	if setter.calls[0] != (call{123, "4-7"}) {
		t.Fatalf("got %+v, want pid 123 mask 4-7", setter.calls[0])
	}
}

func TestApplyDoesNotPanicOnFailure(t *testing.T) {
	setter := &fakeSetter{err: errors.New("taskset: no such process")}
	e := NewWithSetter(setter, testMasks())

	// Apply logs and returns; the caller is responsible for advancing
	// state regardless (EffectorFailure policy).
	e.Apply(999, policy.Little)

	if len(setter.calls) != 1 {
		t.Fatalf("expected 1 call even on failure, got %d", len(setter.calls))
	}
}

func TestMaskForAllStates(t *testing.T) {
	e := New(testMasks())
	cases := map[policy.ClusterState]string{
		policy.Little: "0-3",
		policy.Big:    "4-7",
		policy.Both:   "0-7",
	}
	for state, want := range cases {
		if got := e.MaskFor(state); got != want {
			t.Fatalf("MaskFor(%v) = %q, want %q", state, got, want)
		}
	}
}
