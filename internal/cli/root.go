package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	verbose    bool
	envFile    string
	configPath string
	version    = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nasbridge",
	Short: "Notifications and certificate chores for a self-hosted network",
	Long: `nasbridge sends operator notifications over Telegram and email, forwards
dated log files, and keeps TLS certificates healthy: renewal with acme.sh in
Docker, sync to a remote host over ssh/rsync, and expiry checks.

Secrets are read from a .env file (--env), everything else from the profile
(--config, default ~/.config/nasbridge/config.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status for the error kind
func Execute() {
	// Initialize logger based on verbose flag (parsed by cobra)
	cobra.OnInitialize(func() {
		logger.Init(verbose)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		output.Error("%v", err)
		os.Exit(nberrors.ExitCode(err))
	}
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging for debugging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to the .env file (default ./.env)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the profile (default ~/.config/nasbridge/config.yaml)")
}
