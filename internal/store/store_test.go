package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/logging"
)

func sampleRecords(n int) []batch.Record {
	records := make([]batch.Record, n)
	for i := range records {
		records[i] = batch.Record{
			Name: "Owner", RawName: "OWNER", Address: "1 Main St", City: "Bowie",
			State: batch.State, Zip: "20715", Status: batch.StatusActive,
		}
	}
	return records
}

// testStoreContract exercises the behaviour every backend shares.
func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	user := "user-" + uuid.New().String()
	other := "user-" + uuid.New().String()

	t.Run("round trip", func(t *testing.T) {
		ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		in := batch.Batch{Name: "Batch 3/1/2024", Timestamp: ts, Records: sampleRecords(7), GroupStrikes: []bool{false, true}}

		id, err := s.Create(ctx, user, in)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		list, err := s.List(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		got := list[0]
		assert.Equal(t, id, got.ID)
		assert.Equal(t, in.Name, got.Name)
		assert.True(t, ts.Equal(got.Timestamp))
		assert.Equal(t, in.Records, got.Records)
		assert.Equal(t, in.GroupStrikes, got.GroupStrikes)
		assert.Nil(t, got.LastUpdated)

		require.NoError(t, s.Delete(ctx, user, id))
	})

	t.Run("newest first", func(t *testing.T) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		var ids []string
		for i := 0; i < 3; i++ {
			id, err := s.Create(ctx, user, batch.Batch{Name: "b", Timestamp: base.Add(time.Duration(i) * time.Hour), Records: sampleRecords(1), GroupStrikes: []bool{false}})
			require.NoError(t, err)
			ids = append(ids, id)
		}

		list, err := s.List(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})

		for _, id := range ids {
			require.NoError(t, s.Delete(ctx, user, id))
		}
	})

	t.Run("update", func(t *testing.T) {
		id, err := s.Create(ctx, user, batch.Batch{Name: "u", Timestamp: time.Now().UTC(), Records: sampleRecords(3), GroupStrikes: []bool{false}})
		require.NoError(t, err)

		updated := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
		require.NoError(t, s.Update(ctx, user, id, sampleRecords(6), []bool{true, false}, updated))

		list, err := s.List(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Len(t, list[0].Records, 6)
		assert.Equal(t, []bool{true, false}, list[0].GroupStrikes)
		require.NotNil(t, list[0].LastUpdated)
		assert.True(t, updated.Equal(*list[0].LastUpdated))

		require.NoError(t, s.Delete(ctx, user, id))
	})

	t.Run("users are isolated", func(t *testing.T) {
		id, err := s.Create(ctx, user, batch.Batch{Name: "mine", Timestamp: time.Now().UTC(), Records: sampleRecords(1), GroupStrikes: []bool{false}})
		require.NoError(t, err)

		list, err := s.List(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, list)

		assert.ErrorIs(t, s.Update(ctx, other, id, nil, nil, time.Now()), ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, other, id), ErrNotFound)

		require.NoError(t, s.Delete(ctx, user, id))
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, s.Update(ctx, user, "missing", sampleRecords(1), []bool{false}, time.Now()), ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, user, "missing"), ErrNotFound)
	})

	t.Run("watch", func(t *testing.T) {
		wctx, cancel := context.WithCancel(ctx)
		ch, err := s.Watch(wctx, user)
		require.NoError(t, err)

		first := receive(t, ch)
		assert.Empty(t, first)

		id, err := s.Create(ctx, user, batch.Batch{Name: "watched", Timestamp: time.Now().UTC(), Records: sampleRecords(2), GroupStrikes: []bool{false}})
		require.NoError(t, err)

		snap := receive(t, ch)
		require.Len(t, snap, 1)
		assert.Equal(t, id, snap[0].ID)

		require.NoError(t, s.Delete(ctx, user, id))
		assert.Empty(t, receive(t, ch))

		cancel()
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-ch:
				return !ok
			default:
				return false
			}
		}, 5*time.Second, 10*time.Millisecond)
	})
}

func receive(t *testing.T, ch <-chan []batch.Batch) []batch.Batch {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return snap
	case <-time.After(10 * time.Second):
		t.Fatal("no snapshot received")
		return nil
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemory())
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	records := sampleRecords(1)
	strikes := []bool{false}

	id, err := m.Create(ctx, "u", batch.Batch{Name: "x", Records: records, GroupStrikes: strikes})
	require.NoError(t, err)

	records[0].Name = "changed"
	strikes[0] = true

	list, err := m.List(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Owner", list[0].Records[0].Name)
	assert.Equal(t, []bool{false}, list[0].GroupStrikes)
	assert.False(t, list[0].Timestamp.IsZero())
}

func TestMemoryWatchKeepsLatestSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemory()

	ch, err := m.Watch(ctx, "u")
	require.NoError(t, err)

	// nobody reads while three writes happen; only the newest survives
	for i := 0; i < 3; i++ {
		_, err := m.Create(ctx, "u", batch.Batch{Name: "b", Records: sampleRecords(1), GroupStrikes: []bool{false}})
		require.NoError(t, err)
	}

	assert.Len(t, receive(t, ch), 3)
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Create(ctx, "u", batch.Batch{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)

	pg := NewPostgres(db, dsn, logging.Discard())
	defer pg.Close()
	require.NoError(t, pg.Migrate(context.Background()))
	require.NoError(t, pg.Migrate(context.Background()), "migrate must be idempotent")

	testStoreContract(t, pg)
}

func TestOracleStore(t *testing.T) {
	dsn := os.Getenv("TEST_ORACLE_DSN")
	if dsn == "" {
		t.Skip("TEST_ORACLE_DSN not set")
	}

	db, err := sql.Open("oracle", dsn)
	require.NoError(t, err)

	ora := NewOracle(db, 100*time.Millisecond, logging.Discard())
	defer ora.Close()
	require.NoError(t, ora.Migrate(context.Background()))
	require.NoError(t, ora.Migrate(context.Background()), "migrate must be idempotent")

	testStoreContract(t, ora)
}

func TestPgRowToBatch(t *testing.T) {
	created := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	row := pgRow{
		ID: "id-1", Name: "n", CreatedAt: created,
		Records:      []byte(`[{"name":"John Doe","rawName":"DOE, JOHN","address":"100 Main St","city":"Baltimore","state":"MD","zip":"21201","status":"Active"}]`),
		GroupStrikes: []bool{true},
	}

	b, err := row.toBatch()
	require.NoError(t, err)
	assert.Equal(t, "John Doe", b.Records[0].Name)
	assert.Equal(t, []bool{true}, b.GroupStrikes)
	assert.Nil(t, b.LastUpdated)

	row.Records = []byte(`{`)
	_, err = row.toBatch()
	assert.Error(t, err)
}

func TestOraRowToBatch(t *testing.T) {
	row := oraRow{
		ID: "id-2", Name: "n", CreatedAt: time.Now(),
		Records: `[]`, Strikes: `[]`,
		LastUpdated: sql.NullTime{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true},
	}

	b, err := row.toBatch()
	require.NoError(t, err)
	assert.Equal(t, []batch.Record{}, b.Records)
	assert.Equal(t, []bool{}, b.GroupStrikes)
	require.NotNil(t, b.LastUpdated)

	row.Strikes = `[1]`
	_, err = row.toBatch()
	assert.Error(t, err)
}
