// Package cli implements the ctiprep command line: deck maintenance,
// analytics and backups against the same store the server uses.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/ctiprep/internal/app"
	"github.com/vytor/ctiprep/internal/logger"
)

// Opener builds the application for one command run.
type Opener func(ctx context.Context) (*app.App, error)

type env struct {
	open Opener
	now  func() time.Time
}

// Option configures the root command.
type Option func(*env)

func WithClock(now func() time.Time) Option {
	return func(e *env) { e.now = now }
}

func NewRootCommand(open Opener, opts ...Option) *cobra.Command {
	e := &env{open: open, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	root := &cobra.Command{
		Use:   "ctiprep",
		Short: "Study companion for the CTI entrance exam",
		Long: `ctiprep manages the adaptive review deck, reports study analytics
and moves backups in and out of the store used by the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(
		newStatsCommand(e),
		newDueCommand(e),
		newAddCommand(e),
		newAnalyticsCommand(e),
		newExportCommand(e),
		newImportCommand(e),
		newResetCommand(e),
	)
	return root
}

// run opens the application, optionally loads the question bank, and hands
// both to fn.
func (e *env) run(cmd *cobra.Command, loadBank bool, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.NewContext(ctx, logger.Default().WithPrefix("cli"))

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if loadBank {
		if err := a.LoadBank(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}
