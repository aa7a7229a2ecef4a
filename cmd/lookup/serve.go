package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/cardinal-lookup/internal/web"
)

func createServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup API over HTTP",
		Run: func(cmd *cobra.Command, args []string) {
			a := mustApp(context.Background())

			webConfig := web.FromEnv(a.Config.Web)
			if configFile != "" {
				c, err := web.LoadConfig(configFile)
				if err != nil {
					log.Fatalf("Failed to load %s: %v", configFile, err)
				}
				webConfig = c
			}

			server := web.NewServer(webConfig, web.Deps{
				Runner:    a.Runner,
				Store:     a.Store,
				StoreName: a.Config.Store.Driver,
				Logger:    a.Log,
			})

			fmt.Printf("Starting web server on http://%s:%d (store: %s, auth: %v)\n",
				webConfig.Server.Host, webConfig.Server.Port, a.Config.Store.Driver, webConfig.Auth.Enabled)
			if err := server.Start(); err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "JSON web config file overriding WEB_* settings")
	return cmd
}
