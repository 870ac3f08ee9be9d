package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/order-alert/internal/config"
	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
	"github.com/oshokin/order-alert/internal/service/client"
	"github.com/oshokin/order-alert/internal/version"
)

// defaultWait is how long commands retry while the daemon is unreachable.
const defaultWait = 10 * time.Second

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the monitor daemon address.
	serverAddress string
	// storeFile overrides the shop store path.
	storeFile string
	// wait bounds retries while the daemon is unreachable.
	wait time.Duration

	// rootCmd represents the base command of the operator UI.
	rootCmd = &cobra.Command{
		Use:   "order-alert",
		Short: "Control the order alert monitor.",
		Long: `Sends commands to the order-alert-monitor daemon.

Run "setup" once with the shop id; the daemon then watches the shop's pending
orders across restarts. Use "ack" to silence a looping alarm for the current
batch of orders.`,
		SilenceUsage: true,
	}

	setupCmd = &cobra.Command{
		Use:   "setup <shop-id>",
		Short: "Verify a shop id, save it and start monitoring.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &client.Options{Setup: true, ShopID: args[0]})
		},
	}

	startCmd = &cobra.Command{
		Use:   "start [shop-id]",
		Short: "Start monitoring the given or stored shop.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &client.Options{Action: domain.ActionStartMonitoring}
			if len(args) > 0 {
				opts.ShopID = args[0]
			}

			return run(cmd, opts)
		},
	}

	stopCmd = actionCommand("stop", "Stop monitoring and silence alerts.", domain.ActionStopMonitoring)
	ackCmd  = actionCommand("ack", "Silence the looping alarm until orders drop to zero.", domain.ActionStopSound)
	testCmd = actionCommand("test", "Play the notification, then the alarm for a few seconds.", domain.ActionTestSounds)

	statusCmd = actionCommand("status", "Show what the monitor is doing.", domain.ActionGetStatus)
)

// actionCommand builds a subcommand that sends a single action.
func actionCommand(use, short string, action domain.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, &client.Options{Action: action})
		},
	}
}

// run fills the shared flags into opts and executes the command.
func run(cmd *cobra.Command, opts *client.Options) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts.ConfigPath = cfgPath
	opts.ServerAddress = serverAddress
	opts.StoreFile = storeFile
	opts.Wait = wait
	opts.Output = cmd.OutOrStdout()

	return client.Run(ctx, opts)
}

// Execute runs the order-alert CLI and exits with non-zero status on error.
func Execute() {
	// Command results go to stdout, logs to stderr.
	logger.SetLogger(logger.NewWithSink(zapcore.Lock(os.Stderr), nil))

	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+")")
	flags.StringVarP(&serverAddress, "server", "s", "", "monitor daemon address")
	flags.StringVar(&storeFile, "store-file", "", "path to the shop store file")
	flags.DurationVarP(&wait, "wait", "w", defaultWait, "how long to retry while the daemon is unreachable")

	rootCmd.AddCommand(setupCmd, startCmd, stopCmd, ackCmd, testCmd, statusCmd)
}
