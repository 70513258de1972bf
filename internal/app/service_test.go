package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	mu       sync.Mutex
	stopped  bool
	stopCh   chan struct{}
}

func newFakeService(name string, startErr error) *fakeService {
	return &fakeService{name: name, startErr: startErr, stopCh: make(chan struct{})}
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	select {
	case <-ctx.Done():
	case <-f.stopCh:
	}
	return nil
}

func (f *fakeService) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.stopCh)
	}
	return nil
}

func (f *fakeService) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func TestRunnerStopsAllOnCancel(t *testing.T) {
	a := newFakeService("a", nil)
	b := newFakeService("b", nil)
	runner := NewRunner(a, nil, b)
	if len(runner.Services()) != 2 {
		t.Fatalf("nil services should be filtered, got %d", len(runner.Services()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, time.Second, nil) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop")
	}
	if !a.isStopped() || !b.isStopped() {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerReturnsServiceError(t *testing.T) {
	failing := newFakeService("bad", errors.New("bind failed"))
	healthy := newFakeService("ok", nil)
	err := NewRunner(failing, healthy).Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "bind failed" {
		t.Fatalf("want bind failed, got %v", err)
	}
	if !healthy.isStopped() {
		t.Fatalf("healthy service should be stopped after peer failure")
	}
}

func TestRunnerRequiresServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("empty runner should fail")
	}
}

func TestNormalizeOptions(t *testing.T) {
	opts := normalizeOptions(Options{Mode: "  API "})
	if opts.Mode != ModeAPI {
		t.Fatalf("mode want api got %q", opts.Mode)
	}
	if opts.ShutdownTimeout <= 0 || opts.Logger == nil {
		t.Fatalf("defaults not applied: %+v", opts)
	}
	if validMode("cron") {
		t.Fatalf("unknown mode should be invalid")
	}
}

func TestBuildRunnerRejectsBadInput(t *testing.T) {
	if _, err := BuildRunner(nil, nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
}
