// Package store persists a user's saved batches. Backends: in-process
// memory, PostgreSQL (LISTEN/NOTIFY snapshots) and Oracle (polled snapshots).
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/config"
	"github.com/cardinal-lookup/internal/db"
)

// ErrNotFound is returned when a batch id does not exist for the user.
var ErrNotFound = errors.New("batch not found")

// Store is the persistence gateway for saved batches. All methods are scoped
// to one user id.
type Store interface {
	// List returns the user's batches, newest first.
	List(ctx context.Context, user string) ([]batch.Batch, error)
	// Watch delivers a full snapshot now and after every change, until ctx
	// is done, at which point the channel is closed.
	Watch(ctx context.Context, user string) (<-chan []batch.Batch, error)
	// Create stores b under a new id and returns that id.
	Create(ctx context.Context, user string, b batch.Batch) (string, error)
	// Update replaces the records and strikes of an existing batch.
	Update(ctx context.Context, user, id string, records []batch.Record, strikes []bool, lastUpdated time.Time) error
	// Delete removes a batch.
	Delete(ctx context.Context, user, id string) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log logrus.FieldLogger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "postgres":
		conn, err := db.NewConnection(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pg := NewPostgres(conn.DB, conn.DSN, log)
		if err := pg.Migrate(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return pg, nil
	case "oracle":
		odb, err := db.NewOracle(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ora := NewOracle(odb, cfg.PollInterval, log)
		if err := ora.Migrate(ctx); err != nil {
			odb.Close()
			return nil, err
		}
		return ora, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// sortNewestFirst orders by timestamp descending, id breaking ties.
func sortNewestFirst(batches []batch.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].Timestamp.Equal(batches[j].Timestamp) {
			return batches[i].Timestamp.After(batches[j].Timestamp)
		}
		return batches[i].ID < batches[j].ID
	})
}

// offer replaces whatever snapshot is still pending in ch with snap. ch must
// have a buffer of one and a single sender.
func offer(ch chan []batch.Batch, snap []batch.Batch) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func copyBatch(b batch.Batch) batch.Batch {
	out := b
	out.Records = cloneRecords(b.Records)
	out.GroupStrikes = cloneStrikes(b.GroupStrikes)
	if b.LastUpdated != nil {
		t := *b.LastUpdated
		out.LastUpdated = &t
	}
	return out
}

func cloneRecords(records []batch.Record) []batch.Record {
	if records == nil {
		return nil
	}
	out := make([]batch.Record, len(records))
	copy(out, records)
	return out
}

func cloneStrikes(strikes []bool) []bool {
	if strikes == nil {
		return nil
	}
	out := make([]bool, len(strikes))
	copy(out, strikes)
	return out
}
