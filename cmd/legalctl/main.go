package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/legal-assistant/internal/adapters/cli"
	"github.com/kirillkom/legal-assistant/internal/bootstrap"
	"github.com/kirillkom/legal-assistant/internal/config"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
	"github.com/kirillkom/legal-assistant/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(func(ctx context.Context) (ports.Assistant, func(), error) {
		cfg := config.Load()
		logger := logging.NewJSONLoggerTo(os.Stderr, "legalctl", cfg.LogLevel)
		app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return app.Assistant, app.Close, nil
	})

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
