package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roadtype-cli/internal/config"
	"github.com/sells-group/roadtype-cli/internal/enrich"
	"github.com/sells-group/roadtype-cli/internal/resilience"
	"github.com/sells-group/roadtype-cli/internal/resolver"
	"github.com/sells-group/roadtype-cli/pkg/overpass"
)

var (
	enrichDelay       time.Duration
	enrichRadii       []int
	enrichOutputMode  string
	enrichColumn      string
	enrichDeleteInput bool
)

func init() {
	f := rootCmd.Flags()
	f.DurationVar(&enrichDelay, "delay", 200*time.Millisecond, "pause after every row")
	f.IntSliceVar(&enrichRadii, "radii", nil, "search radii in meters, tried smallest first (default from config: 20,50)")
	f.StringVar(&enrichOutputMode, "output-mode", "", "overpass output mode: tags or geom (default from config)")
	f.StringVar(&enrichColumn, "column", "", "name of the appended column (default from config: RoadType)")
	f.BoolVar(&enrichDeleteInput, "delete-input", false, "remove the input file after a successful run")
}

// applyEnrichFlags copies explicitly set flags over the loaded config.
func applyEnrichFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("delay") {
		c.Enrich.DelayMs = int(enrichDelay / time.Millisecond)
	}
	if flags.Changed("radii") {
		c.Overpass.Radii = enrichRadii
	}
	if flags.Changed("output-mode") {
		c.Overpass.OutputMode = enrichOutputMode
	}
	if flags.Changed("column") {
		c.Enrich.ColumnName = enrichColumn
	}
	if flags.Changed("delete-input") {
		c.Enrich.DeleteInput = enrichDeleteInput
	}
}

func runEnrich(cmd *cobra.Command, args []string) error {
	applyEnrichFlags(cmd, cfg)

	input := args[0]
	output := enrich.DeriveOutputPath(input, cfg.Enrich.OutputSuffix)
	if len(args) > 1 {
		output = args[1]
	}

	res, err := newResolver(cfg)
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("run_id", uuid.NewString()))
	p := enrich.New(res, enrichOptions(cfg), enrich.WithLogger(log))

	log.Info("enrich: start",
		zap.String("input", input),
		zap.String("output", output),
		zap.Ints("radii", res.Radii()),
		zap.Int("delay_ms", cfg.Enrich.DelayMs),
	)

	stats, err := p.RunFile(cmd.Context(), input, output)
	if err != nil {
		return err
	}

	log.Info("enrich: complete",
		zap.Int("rows", stats.Rows),
		zap.Int("lookups", stats.Lookups),
		zap.Int("skipped", stats.Skipped),
		zap.Int("not_found", stats.Classes[cfg.Enrich.NotFound]),
		zap.Any("classes", stats.Classes),
		zap.Duration("duration", stats.Duration),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s\n", output)
	return nil
}

func enrichOptions(c *config.Config) enrich.Options {
	return enrich.Options{
		LatitudeColumns:  c.Enrich.LatitudeColumns,
		LongitudeColumns: c.Enrich.LongitudeColumns,
		ColumnName:       c.Enrich.ColumnName,
		Delay:            time.Duration(c.Enrich.DelayMs) * time.Millisecond,
		DeleteInput:      c.Enrich.DeleteInput,
	}
}

// newResolver wires the Overpass client, call policy and resolver from config.
func newResolver(c *config.Config) (*resolver.RoadResolver, error) {
	mode, err := overpass.ParseOutputMode(c.Overpass.OutputMode)
	if err != nil {
		return nil, err
	}

	client := overpass.NewClient(
		overpass.WithEndpoint(c.Overpass.Endpoint),
		overpass.WithUserAgent(c.Overpass.UserAgent),
		overpass.WithTimeout(time.Duration(c.Overpass.RequestTimeoutSecs)*time.Second),
		overpass.WithRateLimit(c.Overpass.RateLimitRPS),
	)

	return resolver.New(client, resolver.Options{
		Radii:       c.Overpass.Radii,
		TagKey:      c.Overpass.TagKey,
		Mode:        mode,
		TimeoutSecs: c.Overpass.QueryTimeoutSecs,
		NotFound:    c.Enrich.NotFound,
		Policy: resilience.NewPolicy(
			c.Overpass.MaxAttempts,
			c.Overpass.CircuitFailureThreshold,
			c.Overpass.CircuitResetSecs,
		),
	}), nil
}
