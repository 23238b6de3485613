package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roadtype-cli/internal/config"
	"github.com/sells-group/roadtype-cli/internal/enrich"
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "roadtype-cli <input.csv> [output.csv]",
	Short: "Append OpenStreetMap road types to a CSV of coordinates",
	Long: `Reads a CSV with latitude/longitude columns, asks the Overpass API for the
nearest tagged road around each point and writes a copy of the file with a
RoadType column appended.

Without an output path the result is written next to the input, e.g.
trips.csv -> trips.with_roads.csv.

Exit status: 0 ok, 1 usage, 2 cannot open input, 3 cannot open output,
4 empty input, 5 write failure, 6 cannot delete input.`,
	Args:         cobra.RangeArgs(1, 2),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: runEnrich,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(enrich.ExitCode(err))
	}
}
