package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
)

type recordingJoiner struct {
	mu      gosync.Mutex
	calls   []string
	joinErr error
}

func (r *recordingJoiner) JoinGroup(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "join:"+name)
	return r.joinErr
}

func (r *recordingJoiner) LeaveGroup(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "leave:"+name)
	return nil
}

func (r *recordingJoiner) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func equalCalls(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMembershipJoinThenImmediateLeave(t *testing.T) {
	j := &recordingJoiner{}
	m := NewMembership(j, MembershipOptions{})

	m.Activate("G")
	m.Deactivate()
	m.Deactivate()
	m.Close()

	want := []string{"join:G", "leave:G"}
	if got := j.snapshot(); !equalCalls(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestMembershipActivateIdempotent(t *testing.T) {
	j := &recordingJoiner{}
	m := NewMembership(j, MembershipOptions{})

	m.Activate("G")
	m.Activate("G")
	m.Close()

	want := []string{"join:G", "leave:G"}
	if got := j.snapshot(); !equalCalls(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestMembershipSetGroupLeavesPrevious(t *testing.T) {
	j := &recordingJoiner{}
	m := NewMembership(j, MembershipOptions{})

	m.Activate("A")
	m.SetGroup("B")
	if g, active := m.Group(); g != "B" || !active {
		t.Fatalf("Expected active group B, got %q active=%v", g, active)
	}
	m.Close()

	want := []string{"join:A", "leave:A", "join:B", "leave:B"}
	if got := j.snapshot(); !equalCalls(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestMembershipEmptyGroup(t *testing.T) {
	j := &recordingJoiner{}
	m := NewMembership(j, MembershipOptions{})

	m.Activate("")
	m.Close()

	if got := j.snapshot(); len(got) != 0 {
		t.Fatalf("Expected no calls for the default channel, got %v", got)
	}
}

func TestMembershipFailureIsReported(t *testing.T) {
	boom := errors.New("boom")
	j := &recordingJoiner{joinErr: boom}

	var mu gosync.Mutex
	var reported []error
	m := NewMembership(j, MembershipOptions{OnError: func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}})

	m.Activate("G")
	m.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || !errors.Is(reported[0], boom) {
		t.Fatalf("Expected one reported failure, got %v", reported)
	}
	// The leave is still issued after a failed join.
	if got := j.snapshot(); !equalCalls(got, []string{"join:G", "leave:G"}) {
		t.Fatalf("Unexpected calls %v", got)
	}
}

func TestMembershipCloseTwice(t *testing.T) {
	m := NewMembership(&recordingJoiner{}, MembershipOptions{})
	m.Close()
	m.Close()
	m.Activate("G")
}
