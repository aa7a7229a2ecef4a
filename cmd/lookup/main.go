package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cardinal-lookup/internal/app"
	"github.com/cardinal-lookup/internal/config"
	"github.com/cardinal-lookup/internal/controller"
	"github.com/cardinal-lookup/internal/terminal"
)

var (
	userID   string
	logLevel string
	noColor  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lookup",
		Short: "Owner-occupied parcel lookup",
		Long:  `Looks up owner-occupied residents for street addresses in the Maryland parcel database and manages saved batches`,
	}

	rootCmd.PersistentFlags().StringVar(&userID, "user", config.GetEnv("LOOKUP_USER", "local"), "User the saved batches belong to (empty for guest)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")

	// Add subcommands
	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createReportCmd())
	rootCmd.AddCommand(createBatchesCmd())
	rootCmd.AddCommand(createServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// mustApp loads the configuration and wires the application, exiting on failure.
func mustApp(ctx context.Context) *app.App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	return a
}

// requirePersistentStore exits when batches would be lost with the process.
func requirePersistentStore(a *app.App) {
	if !a.Config.Store.Persistent() {
		a.Close()
		log.Fatalf("STORE_DRIVER=%s does not keep batches between runs; set STORE_DRIVER to postgres or oracle", a.Config.Store.Driver)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// useColor is true when stdout is a terminal and colors were not disabled.
func useColor() bool {
	return !noColor && term.IsTerminal(int(os.Stdout.Fd()))
}

// newController builds a controller signed in as --user.
func newController(ctx context.Context, a *app.App, r controller.Renderer, n controller.Notifier) *controller.Controller {
	ctrl := controller.New(controller.Options{
		Runner:   a.Runner,
		Store:    a.Store,
		Renderer: r,
		Notifier: n,
		Logger:   a.Log,
	})
	if err := ctrl.SetIdentity(ctx, controller.Identity{UserID: userID, Name: userID}); err != nil {
		log.Fatalf("Failed to subscribe to saved batches: %v", err)
	}
	return ctrl
}

// newViewer returns a viewer reading the terminal on stdin.
func newViewer(name string) *terminal.Viewer {
	return &terminal.Viewer{
		In:       os.Stdin,
		Out:      os.Stdout,
		Style:    terminal.Style{Color: !noColor},
		SaveName: name,
	}
}
