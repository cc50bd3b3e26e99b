package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/strategy-engine/src/eventmodels"
	"github.com/jiaming2012/strategy-engine/src/logger"
	"github.com/jiaming2012/strategy-engine/src/telemetry"
	"github.com/jiaming2012/strategy-engine/src/utils"
)

const serviceName = "strategy-engine"

type RunArgs struct {
	ConfigPath string
	EnvDir     string
	GoEnv      string
	OutDir     string
}

func parseRunArgs(cmd *cobra.Command) (RunArgs, error) {
	var args RunArgs
	var err error

	if args.ConfigPath, err = cmd.Flags().GetString("config"); err != nil {
		return args, fmt.Errorf("error getting config: %w", err)
	}

	if args.EnvDir, err = cmd.Flags().GetString("envDir"); err != nil {
		return args, fmt.Errorf("error getting envDir: %w", err)
	}

	if args.GoEnv, err = cmd.Flags().GetString("env"); err != nil {
		return args, fmt.Errorf("error getting env: %w", err)
	}

	if f := cmd.Flags().Lookup("outDir"); f != nil {
		args.OutDir = f.Value.String()
	}

	return args, nil
}

// setup loads the environment and the config file, configures logging, and starts telemetry
// when an OTLP endpoint is configured. The returned func flushes telemetry.
func setup(ctx context.Context, args RunArgs) (*eventmodels.EngineConfigYAML, func(), error) {
	if err := utils.InitEnvironmentVariables(args.EnvDir, args.GoEnv); err != nil {
		log.Warnf("skipping env file: %v", err)
	}

	if err := logger.Setup(log.StandardLogger(), logger.LoggerConfigFromEnv()); err != nil {
		return nil, nil, err
	}

	config, err := eventmodels.LoadEngineConfig(args.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		otelShutdown, err := telemetry.SetupOTelSDK(ctx, serviceName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to setup otel sdk: %w", err)
		}

		cleanup = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := otelShutdown(shutdownCtx); err != nil {
				log.Errorf("failed to shutdown otel sdk: %v", err)
			}
		}
	}

	return config, cleanup, nil
}

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Replay strategies over historical bars or run them against live prices",
}

var backtestCmd = &cobra.Command{
	Use:   "backtest --config config.yaml [--outDir results]",
	Short: "Run the backtest section of the config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		args, err := parseRunArgs(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()

		config, cleanup, err := setup(ctx, args)
		if err != nil {
			return err
		}
		defer cleanup()

		if config.Backtest == nil {
			return fmt.Errorf("config %s has no backtest section", args.ConfigPath)
		}

		if args.OutDir != "" {
			config.Backtest.OutDir = args.OutDir
		}

		if _, err := runBacktest(ctx, config.Backtest, os.Stdout, telemetry.NewEngineMetrics()); err != nil {
			return err
		}

		log.Info("Done")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve --config config.yaml",
	Short: "Start the live sessions in the config and serve the session API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		args, err := parseRunArgs(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		config, cleanup, err := setup(ctx, args)
		if err != nil {
			return err
		}
		defer cleanup()

		if config.Live == nil {
			return fmt.Errorf("config %s has no live section", args.ConfigPath)
		}

		return runServe(ctx, cancel, config.Live)
	},
}

func main() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to the engine config file.")
	rootCmd.PersistentFlags().String("envDir", ".", "Directory holding the .env.<env> files.")
	rootCmd.PersistentFlags().String("env", utils.GetEnvOrDefault("GO_ENV", utils.DEV_ENV), "Environment name used to pick the .env file.")
	backtestCmd.Flags().String("outDir", "", "The directory to write trades.csv and equity.csv to.")

	rootCmd.AddCommand(backtestCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
