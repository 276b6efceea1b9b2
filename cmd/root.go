// Package cmd is the CLI entry point: a root command, a --log-level
// persistent flag applied in PersistentPreRunE, and the workload argv
// taken positionally.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bigsched/internal/logging"
	"bigsched/internal/supervisor"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

// Execute builds and runs the root command. It is the sole export other
// packages (here, just main.go) call into.
func Execute() error {
	// Best-effort .env loading for the telemetry mirror's InfluxDB
	// credentials; a missing .env file is not an error.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "bigsched WORKLOAD [ARGS...]",
		Short: "Userspace scheduler for asymmetric big.LITTLE CPUs",
		Long:  "Supervises a workload process, samples hardware counters, and re-pins its CPU affinity according to a scheduling policy.",
		Args:  cobra.MinimumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervisor(args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set log level (trace, debug, info, warn, error)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to an optional YAML configuration file")

	return rootCmd.Execute()
}

// runSupervisor installs a signal handler translating SIGINT/SIGTERM into
// a single supervisor cleanup call, then runs the supervisor to
// completion.
func runSupervisor(workloadArgv []string) error {
	logger := logging.GetLogger()

	sup, err := supervisor.New(supervisor.Options{
		WorkloadArgv: workloadArgv,
		ConfigPath:   configPath,
	})
	if err != nil {
		return err
	}
	defer sup.Cleanup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig).Info("Received interrupt signal, shutting down")
		// Terminating the workload here makes the control loop observe
		// its exit on the next tick and return on its own; Cleanup is
		// idempotent, so this races harmlessly against the deferred call
		// above.
		sup.Cleanup()
	}()

	return sup.Run()
}
