package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vytor/ctiprep/internal/app"
	"github.com/vytor/ctiprep/internal/cli"
	"github.com/vytor/ctiprep/internal/config"
	"github.com/vytor/ctiprep/internal/logger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Commands print their own output; keep the log to warnings.
	level := logger.ParseLevel(cfg.LogLevel)
	if level < logger.WARN {
		level = logger.WARN
	}
	logger.SetDefault(logger.New(logger.WithLevel(level), logger.WithOutput(os.Stderr)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg)
	})
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
