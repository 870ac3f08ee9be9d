package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/order-alert/internal/config"
	"github.com/oshokin/order-alert/internal/service/audioserver"
	"github.com/oshokin/order-alert/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// listenAddress overrides the configured audio address.
	listenAddress string

	// rootCmd represents the base command for running the audio surface.
	rootCmd = &cobra.Command{
		Use:   "order-alert-audio",
		Short: "Play order alerts on behalf of the monitor.",
		Long: `Runs the audio surface as a standalone gRPC server.

The monitor daemon starts this process in remote audio mode and sends it
playback instructions. It holds no alert state of its own.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return audioserver.Run(ctx, &audioserver.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
			})
		},
	}
)

// Execute runs the order-alert-audio CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// An empty path lets the defaults apply when the default file is absent.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "gRPC listen address")
}
