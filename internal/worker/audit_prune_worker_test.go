package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) Prune(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestAuditPruneWorker_RunsUntilCanceled(t *testing.T) {
	pruner := &countingPruner{}
	w := NewAuditPruneWorker(pruner, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for pruner.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if pruner.calls.Load() < 2 {
		t.Errorf("Prune called %d times, want at least 2", pruner.calls.Load())
	}
}

func TestAuditPruneWorker_ErrorIsLogged(t *testing.T) {
	pruner := &countingPruner{err: errors.New("redis down")}
	NewAuditPruneWorker(pruner, time.Minute).run(context.Background())
	if pruner.calls.Load() != 1 {
		t.Errorf("calls = %d", pruner.calls.Load())
	}
}

func TestNewAuditPruneWorker_NonPositiveInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if w := NewAuditPruneWorker(&countingPruner{}, d); w.interval != DefaultPruneInterval {
			t.Errorf("interval for %v = %v, want %v", d, w.interval, DefaultPruneInterval)
		}
	}
}
