package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/batch"
)

// NotifyChannel is the LISTEN/NOTIFY channel; the payload is the user id
// whose batches changed.
const NotifyChannel = "data_batches"

const pgSchema = `
CREATE TABLE IF NOT EXISTS data_batches (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	name          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	records       JSONB NOT NULL DEFAULT '[]',
	group_strikes BOOLEAN[] NOT NULL DEFAULT '{}',
	last_updated  TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_data_batches_user ON data_batches (user_id, created_at DESC);
`

// Postgres stores batches in PostgreSQL.
type Postgres struct {
	db  *sqlx.DB
	dsn string
	log logrus.FieldLogger

	// listener reconnect bounds
	minReconnect time.Duration
	maxReconnect time.Duration
	pingEvery    time.Duration
}

// NewPostgres wraps an open connection. dsn is used to open LISTEN
// connections for Watch.
func NewPostgres(db *sqlx.DB, dsn string, log logrus.FieldLogger) *Postgres {
	return &Postgres{
		db:           db,
		dsn:          dsn,
		log:          log.WithField("store", "postgres"),
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		pingEvery:    90 * time.Second,
	}
}

// Migrate creates the table if needed.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create data_batches: %w", err)
	}
	return nil
}

type pgRow struct {
	ID           string       `db:"id"`
	UserID       string       `db:"user_id"`
	Name         string       `db:"name"`
	CreatedAt    time.Time    `db:"created_at"`
	Records      []byte       `db:"records"`
	GroupStrikes pq.BoolArray `db:"group_strikes"`
	LastUpdated  sql.NullTime `db:"last_updated"`
}

func (r pgRow) toBatch() (batch.Batch, error) {
	b := batch.Batch{
		ID:           r.ID,
		Name:         r.Name,
		Timestamp:    r.CreatedAt,
		GroupStrikes: []bool(r.GroupStrikes),
	}
	if b.GroupStrikes == nil {
		b.GroupStrikes = []bool{}
	}
	if err := json.Unmarshal(r.Records, &b.Records); err != nil {
		return batch.Batch{}, fmt.Errorf("failed to decode records of batch %s: %w", r.ID, err)
	}
	if b.Records == nil {
		b.Records = []batch.Record{}
	}
	if r.LastUpdated.Valid {
		t := r.LastUpdated.Time
		b.LastUpdated = &t
	}
	return b, nil
}

func encodeRecords(records []batch.Record) (string, error) {
	if records == nil {
		records = []batch.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}
	return string(data), nil
}

func (p *Postgres) List(ctx context.Context, user string) ([]batch.Batch, error) {
	var rows []pgRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, created_at, records, group_strikes, last_updated
		FROM data_batches
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	out := make([]batch.Batch, 0, len(rows))
	for _, r := range rows {
		b, err := r.toBatch()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// write runs fn in a transaction and notifies watchers of user on commit.
func (p *Postgres) write(ctx context.Context, user string, fn func(tx *sqlx.Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, user); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, user string, b batch.Batch) (string, error) {
	records, err := encodeRecords(b.Records)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	ts := b.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	strikes := b.GroupStrikes
	if strikes == nil {
		strikes = []bool{}
	}

	err = p.write(ctx, user, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO data_batches (id, user_id, name, created_at, records, group_strikes)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
			id, user, b.Name, ts, records, pq.BoolArray(strikes))
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	p.log.WithFields(logrus.Fields{"batch_id": id, "user": user}).Debug("batch created")
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, user, id string, records []batch.Record, strikes []bool, lastUpdated time.Time) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if strikes == nil {
		strikes = []bool{}
	}

	return p.write(ctx, user, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE data_batches
			SET records = $1::jsonb, group_strikes = $2, last_updated = $3
			WHERE id = $4 AND user_id = $5`,
			data, pq.BoolArray(strikes), lastUpdated, id, user)
		if err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}
		return expectOne(res)
	})
}

func (p *Postgres) Delete(ctx context.Context, user, id string) error {
	return p.write(ctx, user, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM data_batches WHERE id = $1 AND user_id = $2`, id, user)
		if err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		return expectOne(res)
	})
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Watch listens on NotifyChannel with a dedicated connection and re-lists
// whenever the user's batches change or the listener reconnects.
func (p *Postgres) Watch(ctx context.Context, user string) (<-chan []batch.Batch, error) {
	log := p.log.WithField("user", user)
	listener := pq.NewListener(p.dsn, p.minReconnect, p.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).Warn("listener event")
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	first, err := p.List(ctx, user)
	if err != nil {
		listener.Close()
		return nil, err
	}

	ch := make(chan []batch.Batch, 1)
	offer(ch, first)

	go func() {
		defer close(ch)
		defer listener.Close()

		ping := time.NewTicker(p.pingEvery)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// nil after a reconnect: notifications may have been missed
				if n != nil && n.Extra != user {
					continue
				}
				snap, err := p.List(ctx, user)
				if err != nil {
					if ctx.Err() == nil {
						log.WithError(err).Warn("failed to refresh batches")
					}
					continue
				}
				offer(ch, snap)
			case <-ping.C:
				go listener.Ping()
			}
		}
	}()
	return ch, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
