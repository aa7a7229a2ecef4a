package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	go_ora "github.com/sijms/go-ora/v2"

	"github.com/cardinal-lookup/internal/batch"
)

const oraSchema = `
CREATE TABLE DATA_BATCHES (
	ID            VARCHAR2(36) PRIMARY KEY,
	USER_ID       VARCHAR2(255) NOT NULL,
	NAME          VARCHAR2(1000) NOT NULL,
	CREATED_AT    TIMESTAMP WITH TIME ZONE NOT NULL,
	RECORDS       CLOB NOT NULL,
	GROUP_STRIKES CLOB NOT NULL,
	LAST_UPDATED  TIMESTAMP WITH TIME ZONE
)`

// ORA-00955: name is already used by an existing object
const oraAlreadyExists = "ORA-00955"

// Oracle stores batches in an Oracle database. Records and strikes are JSON
// in CLOB columns. Oracle has no LISTEN/NOTIFY equivalent reachable from
// go-ora, so Watch polls.
type Oracle struct {
	db   *sql.DB
	poll time.Duration
	log  logrus.FieldLogger
}

// NewOracle wraps an open go-ora connection.
func NewOracle(db *sql.DB, poll time.Duration, log logrus.FieldLogger) *Oracle {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Oracle{db: db, poll: poll, log: log.WithField("store", "oracle")}
}

// Migrate creates DATA_BATCHES unless it already exists.
func (o *Oracle) Migrate(ctx context.Context) error {
	if _, err := o.db.ExecContext(ctx, oraSchema); err != nil {
		if strings.Contains(err.Error(), oraAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create DATA_BATCHES: %w", err)
	}
	return nil
}

type oraRow struct {
	ID          string
	Name        string
	CreatedAt   time.Time
	Records     string
	Strikes     string
	LastUpdated sql.NullTime
}

func (r oraRow) toBatch() (batch.Batch, error) {
	b := batch.Batch{ID: r.ID, Name: r.Name, Timestamp: r.CreatedAt}
	if err := json.Unmarshal([]byte(r.Records), &b.Records); err != nil {
		return batch.Batch{}, fmt.Errorf("failed to decode records of batch %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Strikes), &b.GroupStrikes); err != nil {
		return batch.Batch{}, fmt.Errorf("failed to decode strikes of batch %s: %w", r.ID, err)
	}
	if b.Records == nil {
		b.Records = []batch.Record{}
	}
	if b.GroupStrikes == nil {
		b.GroupStrikes = []bool{}
	}
	if r.LastUpdated.Valid {
		t := r.LastUpdated.Time
		b.LastUpdated = &t
	}
	return b, nil
}

func encodeStrikes(strikes []bool) (string, error) {
	if strikes == nil {
		strikes = []bool{}
	}
	data, err := json.Marshal(strikes)
	if err != nil {
		return "", fmt.Errorf("failed to encode strikes: %w", err)
	}
	return string(data), nil
}

func clob(s string) go_ora.Clob {
	return go_ora.Clob{String: s, Valid: true}
}

func (o *Oracle) List(ctx context.Context, user string) ([]batch.Batch, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT ID, NAME, CREATED_AT, RECORDS, GROUP_STRIKES, LAST_UPDATED
		FROM DATA_BATCHES
		WHERE USER_ID = :1
		ORDER BY CREATED_AT DESC, ID`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	out := []batch.Batch{}
	for rows.Next() {
		var r oraRow
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.Records, &r.Strikes, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b, err := r.toBatch()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return out, nil
}

func (o *Oracle) Create(ctx context.Context, user string, b batch.Batch) (string, error) {
	records, err := encodeRecords(b.Records)
	if err != nil {
		return "", err
	}
	strikes, err := encodeStrikes(b.GroupStrikes)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	ts := b.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = o.db.ExecContext(ctx, `
		INSERT INTO DATA_BATCHES (ID, USER_ID, NAME, CREATED_AT, RECORDS, GROUP_STRIKES)
		VALUES (:1, :2, :3, :4, :5, :6)`,
		id, user, b.Name, ts, clob(records), clob(strikes))
	if err != nil {
		return "", fmt.Errorf("failed to insert batch: %w", err)
	}
	o.log.WithFields(logrus.Fields{"batch_id": id, "user": user}).Debug("batch created")
	return id, nil
}

func (o *Oracle) Update(ctx context.Context, user, id string, records []batch.Record, strikes []bool, lastUpdated time.Time) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	strikeData, err := encodeStrikes(strikes)
	if err != nil {
		return err
	}

	res, err := o.db.ExecContext(ctx, `
		UPDATE DATA_BATCHES
		SET RECORDS = :1, GROUP_STRIKES = :2, LAST_UPDATED = :3
		WHERE ID = :4 AND USER_ID = :5`,
		clob(data), clob(strikeData), lastUpdated, id, user)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	return expectOne(res)
}

func (o *Oracle) Delete(ctx context.Context, user, id string) error {
	res, err := o.db.ExecContext(ctx, `DELETE FROM DATA_BATCHES WHERE ID = :1 AND USER_ID = :2`, id, user)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return expectOne(res)
}

// Watch lists every poll interval and delivers a snapshot only when it
// differs from the previous one.
func (o *Oracle) Watch(ctx context.Context, user string) (<-chan []batch.Batch, error) {
	first, err := o.List(ctx, user)
	if err != nil {
		return nil, err
	}

	ch := make(chan []batch.Batch, 1)
	offer(ch, first)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(o.poll)
		defer ticker.Stop()

		last := first
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap, err := o.List(ctx, user)
				if err != nil {
					if ctx.Err() == nil {
						o.log.WithError(err).WithField("user", user).Warn("failed to poll batches")
					}
					continue
				}
				if reflect.DeepEqual(snap, last) {
					continue
				}
				last = snap
				offer(ch, snap)
			}
		}
	}()
	return ch, nil
}

func (o *Oracle) Close() error {
	return o.db.Close()
}
