package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/ctiprep/internal/testutil"
	"github.com/vytor/ctiprep/internal/worker"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestPool_RunsJobs(t *testing.T) {
	testutil.Quiet(t)
	p := worker.NewPool(2, 8)
	p.Start(context.Background())

	done := make(chan string, 3)
	for _, name := range []string{"a", "b", "c"} {
		name := name
		require.NoError(t, p.Submit(worker.FuncJob{JobName: name, Fn: func(context.Context) error {
			done <- name
			return nil
		}}))
	}

	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case n := <-done:
			got[n] = true
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}
	assert.Len(t, got, 3)

	p.Stop()
	p.Stop()
	assert.ErrorIs(t, p.Submit(worker.FuncJob{JobName: "late", Fn: func(context.Context) error { return nil }}), worker.ErrPoolStopped)
}

func TestPool_SurvivesFailingJobs(t *testing.T) {
	testutil.Quiet(t)
	p := worker.NewPool(1, 4)
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Submit(worker.FuncJob{JobName: "fail", Fn: func(context.Context) error { return errors.New("boom") }}))
	require.NoError(t, p.Submit(worker.FuncJob{JobName: "panic", Fn: func(context.Context) error { panic("boom") }}))

	r := &countingRefresher{}
	require.NoError(t, p.Submit(&worker.RefreshBankJob{Bank: r, Reason: "test", Timeout: time.Second}))
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestPool_QueueFull(t *testing.T) {
	testutil.Quiet(t)
	p := worker.NewPool(1, 1)
	// not started: nothing drains the queue
	noop := worker.FuncJob{JobName: "noop", Fn: func(context.Context) error { return nil }}
	require.NoError(t, p.Submit(noop))
	assert.ErrorIs(t, p.Submit(noop), worker.ErrQueueFull)
	assert.Equal(t, 1, p.QueueSize())
}
