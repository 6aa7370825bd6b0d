package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exGeni/free-proxy-telegram-bot/src/feed"
	"github.com/exGeni/free-proxy-telegram-bot/src/ingest"
	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
)

type countingRunner struct {
	calls     atomic.Int32
	panicOn   int32
	blockWith chan struct{}
}

func (r *countingRunner) Run(ctx context.Context) ingest.Report {
	n := r.calls.Add(1)
	if n == r.panicOn {
		panic("boom")
	}
	if r.blockWith != nil {
		<-r.blockWith
	}
	return ingest.Report{Inserted: int(n)}
}

func TestSchedulerRunsImmediatelyAndOnEveryTick(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 10*time.Millisecond, nil)
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerSurvivesPanickingIteration(t *testing.T) {
	runner := &countingRunner{panicOn: 1}
	s := New(runner, 10*time.Millisecond, nil)
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	s := New(runner, 10*time.Millisecond, nil)
	s.Start(ctx)

	require.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Stop()

	after := runner.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runner.calls.Load())
}

func TestSchedulerStopWaitsForRunningIteration(t *testing.T) {
	runner := &countingRunner{blockWith: make(chan struct{})}
	s := New(runner, time.Hour, nil)
	s.Start(context.Background())
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while an iteration was running")
	case <-time.After(30 * time.Millisecond):
	}
	close(runner.blockWith)
	<-stopped
	s.Stop()
}

func TestSchedulerKeepsTickingThroughUpstream503(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := ingest.NewService(pool.NewProxyPool(), feed.NewClient(srv.URL, time.Second), 0, nil)
	s := New(svc, 20*time.Millisecond, nil)

	var mu sync.Mutex
	var reports []ingest.Report
	s.OnReport = func(r ingest.Report) {
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
	}
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reports) >= 2
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, r := range reports {
		assert.Equal(t, 0, r.Inserted)
		assert.Error(t, r.FetchErr)
	}
	assert.GreaterOrEqual(t, hits.Load(), int32(2))
}
