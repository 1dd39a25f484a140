package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"ecoleta/internal/app"
	"ecoleta/internal/components/telemetry"
	libtelemetry "ecoleta/lib/telemetry"

	"github.com/spf13/cobra"
)

type environment struct {
	cfg       app.Config
	app       app.App
	tel       telemetry.API
	telemetry libtelemetry.Telemetry
}

var env *environment

var rootCmd = &cobra.Command{
	Use:   "ecoleta",
	Short: "ecoleta is a CLI for browsing and registering waste collection points.",

	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if env == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return env.telemetry.Shutdown(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file, by default ecoleta.json5 is searched from the working directory up.")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().String("dump-dir", "", "Dump every http exchange to this directory.")
}

func setup(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return err
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return err
	}
	dumpDir, err := flags.GetString("dump-dir")
	if err != nil {
		return err
	}

	libtelemetry.InitSlog(os.Stderr, verbose)

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if dumpDir != "" {
		cfg.DumpDir = dumpDir
	}

	t, err := libtelemetry.Setup(cmd.Context(), "ecoleta", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	if t.Enabled() {
		libtelemetry.InstrumentPerfStats(cmd.Context(), time.Second*30)
	}

	tel := telemetry.SlogAPI{}
	a, err := app.New(cfg, tel)
	if err != nil {
		return err
	}

	env = &environment{
		cfg:       cfg,
		app:       a,
		tel:       tel,
		telemetry: t,
	}
	return nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
