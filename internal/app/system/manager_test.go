package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	NoopService
	started bool
	stopped bool
	failOn  string
}

func (s *recordingService) Start(ctx context.Context) error {
	if s.failOn == "start" {
		return errors.New("start failed")
	}
	s.started = true
	return nil
}

func (s *recordingService) Stop(ctx context.Context) error {
	if s.failOn == "stop" {
		return errors.New("stop failed")
	}
	s.stopped = true
	return nil
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	first := &recordingService{NoopService: NoopService{ServiceName: "first"}}
	second := &recordingService{NoopService: NoopService{ServiceName: "second"}}

	if err := m.Register(first); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := m.Register(second); err != nil {
		t.Fatalf("register second: %v", err)
	}
	if err := m.Register(&recordingService{NoopService: NoopService{ServiceName: "first"}}); err == nil {
		t.Fatal("duplicate name accepted")
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !first.started || !second.started {
		t.Fatal("not all services started")
	}

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !first.stopped || !second.stopped {
		t.Fatal("not all services stopped")
	}
}

func TestManagerStartRollback(t *testing.T) {
	m := NewManager()
	ok := &recordingService{NoopService: NoopService{ServiceName: "ok"}}
	bad := &recordingService{NoopService: NoopService{ServiceName: "bad"}, failOn: "start"}

	if err := m.Register(ok); err != nil {
		t.Fatalf("register ok: %v", err)
	}
	if err := m.Register(bad); err != nil {
		t.Fatalf("register bad: %v", err)
	}

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("start should fail")
	}
	// the already-started service is stopped again on rollback
	if !ok.stopped {
		t.Fatal("rollback did not stop started services")
	}
}
