package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	lookupRadii []int
	lookupGeom  bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <lat> <lon>",
	Short: "Resolve the road type for a single coordinate",
	Long:  "Runs the same radius search the CSV enrichment uses and prints the matching way, if any.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("radii") {
			cfg.Overpass.Radii = lookupRadii
		}
		if lookupGeom {
			cfg.Overpass.OutputMode = "geom"
		}

		res, err := newResolver(cfg)
		if err != nil {
			return err
		}

		lat, lon := args[0], args[1]
		m, ok := res.Lookup(cmd.Context(), lat, lon)

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.Style().Format = table.FormatOptions{
			Header: text.FormatDefault,
			Row:    text.FormatDefault,
		}
		t.AppendHeader(table.Row{"lat", "lon", "radius", "way", cfg.Overpass.TagKey, "name"})

		if !ok {
			t.AppendRow(table.Row{lat, lon, "", "", cfg.Enrich.NotFound, ""})
			t.Render()
			return nil
		}

		name, _ := m.Element.Tag("name")
		t.AppendRow(table.Row{lat, lon, m.Radius, m.Element.ID, m.Value, name})
		t.Render()

		if lookupGeom {
			wkt, err := m.Element.WKT()
			if err != nil {
				return err
			}
			if wkt != "" {
				fmt.Fprintln(cmd.OutOrStdout(), wkt)
			}
		}
		return nil
	},
}

func init() {
	lookupCmd.Flags().IntSliceVar(&lookupRadii, "radii", nil, "search radii in meters (default from config)")
	lookupCmd.Flags().BoolVar(&lookupGeom, "geom", false, "request way geometry and print it as WKT")
	rootCmd.AddCommand(lookupCmd)
}
