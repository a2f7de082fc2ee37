package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/campus-records/internal/cli"
	"github.com/noah-isme/campus-records/pkg/config"
	"github.com/noah-isme/campus-records/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := cli.NewRootCommand(func(ctx context.Context) (*cli.App, error) {
		return cli.NewApp(ctx, cfg, logr, nil)
	})
	err = cmd.ExecuteContext(ctx)
	stop()
	_ = logr.Sync()

	if err != nil {
		format, _ := cmd.PersistentFlags().GetString("format")
		_ = (&cli.OutputFormatter{Format: format, Writer: os.Stderr}).Error(err)
		os.Exit(cli.GetExitCode(err))
	}
}
