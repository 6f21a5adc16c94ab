package system

import (
	"context"
	"fmt"
	"testing"
)

type recordingService struct {
	name   string
	failOn string
	events *[]string
}

func (r *recordingService) Name() string { return r.name }

func (r *recordingService) Start(context.Context) error {
	if r.failOn == "start" {
		return fmt.Errorf("start failed")
	}
	*r.events = append(*r.events, "start:"+r.name)
	return nil
}

func (r *recordingService) Stop(context.Context) error {
	if r.failOn == "stop" {
		return fmt.Errorf("stop failed")
	}
	*r.events = append(*r.events, "stop:"+r.name)
	return nil
}

func TestManager_StartStopOrder(t *testing.T) {
	var events []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordingService{name: name, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("unexpected events: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d: got %s, want %s", i, events[i], want[i])
		}
	}
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	var events []string
	m := NewManager()
	m.Register(&recordingService{name: "a", events: &events})
	m.Register(&recordingService{name: "b", failOn: "start", events: &events})

	if err := m.Start(context.Background()); err == nil {
		t.Fatalf("expected start failure")
	}

	want := []string{"start:a", "stop:a"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("expected rollback stop, got %v", events)
	}

	// A failed start leaves the manager open for registration.
	if err := m.Register(NoopService{ServiceName: "c"}); err != nil {
		t.Fatalf("register after failed start: %v", err)
	}
}

func TestManager_RejectsDuplicatesAndLateRegistration(t *testing.T) {
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "a"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "b"}); err == nil {
		t.Fatalf("expected registration after start to fail")
	}
}
