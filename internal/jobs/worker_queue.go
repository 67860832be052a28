package jobs

import (
	"context"
	"time"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	pool    *worker.Pool
	bank    worker.Refresher
	timeout time.Duration
}

// NewWorkerQueue creates a new WorkerQueue. timeout bounds each refresh; zero
// means no bound.
func NewWorkerQueue(pool *worker.Pool, bank worker.Refresher, timeout time.Duration) *WorkerQueue {
	return &WorkerQueue{pool: pool, bank: bank, timeout: timeout}
}

var _ JobQueue = (*WorkerQueue)(nil)

func (q *WorkerQueue) EnqueueBankRefresh(reason string) error {
	return q.pool.Submit(&worker.RefreshBankJob{
		Bank:    q.bank,
		Reason:  reason,
		Timeout: q.timeout,
	})
}

// Schedule enqueues a refresh every interval until ctx is done. A
// non-positive interval disables periodic refresh.
func (q *WorkerQueue) Schedule(ctx context.Context, interval time.Duration) {
	log := logger.FromContext(ctx).WithPrefix("jobs")
	if interval <= 0 {
		log.Info("periodic bank refresh disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info("refreshing the bank every %v", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.EnqueueBankRefresh("interval"); err != nil {
				log.Warn("skipped scheduled refresh: %v", err)
			}
		}
	}
}
