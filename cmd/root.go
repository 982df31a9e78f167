// Package cmd holds the CLI entrypoints.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dshy007/blockassign/app"
	"github.com/Dshy007/blockassign/config"
	"github.com/Dshy007/blockassign/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "blockassign",
	Short: "Driver-to-block weekly assignment engine",
	Long: "Reads one JSON request on stdin, runs the requested action and " +
		"writes one JSON response on stdout. Diagnostics go to stderr.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main", cfg.Logging.Level).Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
