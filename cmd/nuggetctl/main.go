package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nugget-pipeline/internal/app"
	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nuggetctl",
		Short: "Administer the nugget pipeline queue",
		Long: `nuggetctl works directly against the configured key-value store.
It reads the same environment (and CONFIG_FILE) as the server.
Output is JSON on stdout; logs go to stderr.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newRequeueCommand())
	rootCmd.AddCommand(newSkipCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newReconcileCommand())
	rootCmd.AddCommand(newMigrateCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the stderr logger
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.NewWithWriter(cfg.Log, os.Stderr), nil
}

// openApp assembles the pipeline for one command
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts.Durable = true
	return app.New(ctx, cfg, opts, log)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
