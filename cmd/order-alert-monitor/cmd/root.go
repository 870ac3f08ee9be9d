package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/order-alert/internal/config"
	"github.com/oshokin/order-alert/internal/service/server"
	"github.com/oshokin/order-alert/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// storeFile where the UI persists the shop selection.
	storeFile string
	// httpAddress of the HTTP command API.
	httpAddress string
	// audioMode selects an embedded or remote audio surface.
	audioMode string

	// rootCmd represents the base command for running the monitor daemon.
	rootCmd = &cobra.Command{
		Use:   "order-alert-monitor [listen-address]",
		Short: "Watch a shop's pending orders and sound alerts.",
		Long: `Starts the order monitor daemon.

The daemon polls the pending-order count endpoint every few seconds for the
configured shop, plays a short chime when new orders arrive and loops an alarm
until the operator acknowledges it or the orders are handled.

Commands are accepted over gRPC on the listen address (from the argument or
configuration) and, when configured, over the HTTP API. Monitoring resumes on
start and whenever the shop store file is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				StoreFile:     storeFile,
				AudioMode:     audioMode,
			})
		},
	}
)

// Execute runs the order-alert-monitor CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&storeFile, "store-file", "s", "", "path to the shop store file")
	rootCmd.Flags().StringVar(&httpAddress, "http", "", "HTTP API listen address")
	rootCmd.Flags().StringVar(&audioMode, "audio", "",
		"audio surface mode: "+config.AudioModeEmbedded+" or "+config.AudioModeRemote)
}
