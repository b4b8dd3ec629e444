package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exploration-planner/internal/geometry"
)

func newExtractCmd(a *app) *cobra.Command {
	var out string
	var inflate float64

	cmd := &cobra.Command{
		Use:   "extract <map>",
		Short: "Convert an ASCII map into free-space polygons (GeoJSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadMap(args[0])
			if err != nil {
				return err
			}
			g := m.Grid.Inflate(inflate)

			set, err := geometry.Extract(g)
			if err != nil {
				return err
			}
			a.logger.Info("extracted polygons",
				"obstacles", len(set.Obstacles),
				"area", set.Area())

			if out == "" {
				if err := geometry.WriteGeoJSON(cmd.OutOrStdout(), set); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}
			return geometry.SaveGeoJSON(set, out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write GeoJSON to this file instead of stdout")
	cmd.Flags().Float64Var(&inflate, "inflate", 0, "Grow obstacles by this many cells first")
	return cmd
}
