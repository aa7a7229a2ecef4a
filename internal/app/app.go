// Package app assembles the lookup runner, the batch store and the logger
// from a Config. Both binaries start here.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/arcgis"
	"github.com/cardinal-lookup/internal/config"
	"github.com/cardinal-lookup/internal/engine"
	"github.com/cardinal-lookup/internal/logging"
	"github.com/cardinal-lookup/internal/parser"
	"github.com/cardinal-lookup/internal/store"
)

// App holds the long-lived collaborators.
type App struct {
	Config *config.Config
	Log    *logrus.Logger
	Store  store.Store
	Runner *engine.Runner
}

// New wires an App. The store connection is opened (and migrated) here.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	runner, err := NewRunner(cfg.Lookup, log)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	log.WithFields(logrus.Fields{
		"store":        cfg.Store.Driver,
		"parser":       cfg.Lookup.Parser,
		"jurisdiction": cfg.Lookup.Jurisdiction,
	}).Debug("app ready")

	return &App{Config: cfg, Log: log, Store: st, Runner: runner}, nil
}

// NewRunner builds the lookup pipeline against the configured parcel service.
func NewRunner(cfg config.LookupConfig, log logrus.FieldLogger) (*engine.Runner, error) {
	p, err := parser.New(cfg.Parser)
	if err != nil {
		return nil, err
	}

	client := arcgis.NewClient(arcgis.Options{
		URL:          cfg.URL,
		Jurisdiction: cfg.Jurisdiction,
		Timeout:      cfg.Timeout,
		Retries:      cfg.Retries,
		StrictLimit:  cfg.StrictLimit,
		CacheTTL:     cfg.CacheTTL,
		Logger:       log,
	})
	return engine.NewRunner(p, client, log), nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
