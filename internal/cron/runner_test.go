package cronrunner

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"quotepanel/internal/service"
)

type fakeSyncer struct {
	lookback int
	calls    int
	err      error
}

func (f *fakeSyncer) SyncRecent(ctx context.Context, lookbackDays int) (service.SyncResult, error) {
	f.calls++
	f.lookback = lookbackDays
	return service.SyncResult{RunID: "run-1", FetchedDays: 2}, f.err
}

func TestDailySyncLogsOutcome(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	syncer := &fakeSyncer{}
	DailySync(syncer, 5, zap.New(core))(context.Background())
	if syncer.calls != 1 || syncer.lookback != 5 {
		t.Fatalf("calls got=%d lookback=%d want=1/5", syncer.calls, syncer.lookback)
	}
	if n := logs.FilterMessage("cron daily sync ok").Len(); n != 1 {
		t.Fatalf("ok logs got=%d want=1", n)
	}

	syncer.err = errors.New("calendar down")
	DailySync(syncer, 5, zap.New(core))(context.Background())
	if n := logs.FilterMessage("cron daily sync failed").Len(); n != 1 {
		t.Fatalf("failure logs got=%d want=1", n)
	}

	syncer.err = context.Canceled
	DailySync(syncer, 5, zap.New(core))(context.Background())
	if n := logs.FilterMessage("cron daily sync failed").Len(); n != 1 {
		t.Fatalf("cancellation should not log a failure, got=%d", n)
	}
}

func TestRunnerRejectsBadSpec(t *testing.T) {
	r := New(zap.NewNop(), context.Background())
	if _, err := r.Add("not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected parse error for bad spec")
	}
	id, err := r.Add("0 30 18 * * 1-5", func(context.Context) {})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	defer r.Stop()
	if r.Next(id).IsZero() {
		t.Fatalf("next run should be scheduled after start")
	}
}
