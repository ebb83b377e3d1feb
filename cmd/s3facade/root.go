package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "s3facade",
	Short: "S3 storage client facade",
	Long:  `Demonstrates the s3facade storage client against S3 or any S3-compatible endpoint.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(postDemoCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, cancel := handleSignals(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func handleSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
