package main

import (
	"context"
	"fmt"
	"log"

	"github.com/cardinal-lookup/internal/app"
	"github.com/cardinal-lookup/internal/config"
	"github.com/cardinal-lookup/internal/web"
)

func main() {
	fmt.Println("=== Cardinal Lookup Web Interface ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	webConfig := web.FromEnv(cfg.Web)

	fmt.Printf("Server: http://%s:%d\n", webConfig.Server.Host, webConfig.Server.Port)
	fmt.Printf("Store: %s\n", cfg.Store.Driver)
	fmt.Printf("Parcel service: %s (%s)\n", cfg.Lookup.URL, cfg.Lookup.Jurisdiction)

	server := web.NewServer(webConfig, web.Deps{
		Runner:    a.Runner,
		Store:     a.Store,
		StoreName: cfg.Store.Driver,
		Logger:    a.Log,
	})

	fmt.Println("\nFeatures enabled:")
	fmt.Printf("  • Authentication: %v\n", webConfig.Auth.Enabled)
	fmt.Printf("  • Export: %v\n", webConfig.Features.ExportEnabled)
	fmt.Println("\nPress Ctrl+C to stop the server")

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
