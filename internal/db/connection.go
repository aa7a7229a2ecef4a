// Package db opens the SQL connections used by the batch stores.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/sijms/go-ora/v2"

	"github.com/cardinal-lookup/internal/config"
)

const pingTimeout = 10 * time.Second

// Connection holds a postgres connection and the DSN it was opened with;
// the DSN is needed again to open LISTEN connections.
type Connection struct {
	DB  *sqlx.DB
	DSN string
}

// NewConnection opens and pings a PostgreSQL connection.
func NewConnection(ctx context.Context, cfg config.StoreConfig) (*Connection, error) {
	dsn := cfg.PostgresDSN()

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	return &Connection{DB: db, DSN: dsn}, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}

// OracleDSN builds a go-ora URL. With a wallet location the connection uses
// mTLS through the wallet.
func OracleDSN(cfg config.StoreConfig) string {
	if cfg.OracleWallet != "" {
		return fmt.Sprintf("oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			url.PathEscape(cfg.OracleUser), url.PathEscape(cfg.OraclePassword),
			cfg.OracleHost, cfg.OraclePort, cfg.OracleService, url.PathEscape(cfg.OracleWallet))
	}
	return (&url.URL{
		Scheme: "oracle",
		User:   url.UserPassword(cfg.OracleUser, cfg.OraclePassword),
		Host:   cfg.OracleHost + ":" + cfg.OraclePort,
		Path:   "/" + cfg.OracleService,
	}).String()
}

// NewOracle opens and pings an Oracle connection.
func NewOracle(ctx context.Context, cfg config.StoreConfig) (*sql.DB, error) {
	db, err := sql.Open("oracle", OracleDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open oracle connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping oracle: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}
