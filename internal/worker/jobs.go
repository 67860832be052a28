package worker

import (
	"context"
	"time"

	"github.com/vytor/ctiprep/internal/logger"
)

// Refresher reloads the question bank. It keeps the worker package free of
// an import on the bank package.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshBankJob re-fetches every bank source. A failed refresh leaves the
// previous catalog in place.
type RefreshBankJob struct {
	Bank    Refresher
	Reason  string
	Timeout time.Duration
}

func (j *RefreshBankJob) Name() string { return "refresh_bank" }

func (j *RefreshBankJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("reason", j.Reason)
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	log.Debug("refreshing question bank")
	return j.Bank.Refresh(ctx)
}

// FuncJob adapts a function to Job.
type FuncJob struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j FuncJob) Name() string                  { return j.JobName }
func (j FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }
