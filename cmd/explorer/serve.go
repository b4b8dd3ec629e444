package main

import (
	"log"

	"github.com/spf13/cobra"

	"exploration-planner/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var mapFile string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP debug server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}

			log.Println("========================================")
			log.Println("🚀 Exploration Planner Server")
			log.Println("========================================")

			srv := server.New(a.cfg)
			if mapFile != "" {
				m, err := a.loadMap(mapFile)
				if err != nil {
					return err
				}
				if err := srv.SetMap(m.Grid); err != nil {
					return err
				}
				log.Printf("✅ Loaded map from %s (%d x %d)\n", mapFile, m.Grid.Width, m.Grid.Height)
			} else {
				log.Println("ℹ️  No map loaded (this is normal on first run)")
				log.Println("   Call /map to load one")
			}
			log.Println("")

			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&mapFile, "map", "", "ASCII map to load on startup")
	cmd.Flags().IntVar(&port, "port", 0, "Override the configured port")
	return cmd
}
