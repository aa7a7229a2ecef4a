package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardinal-lookup/internal/batch"
)

// Memory keeps batches in process. It is the default store and the one used
// by guests of the web server.
type Memory struct {
	mu       sync.RWMutex
	batches  map[string]map[string]batch.Batch
	watchers map[string]map[int]chan []batch.Batch
	nextID   int
	now      func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		batches:  make(map[string]map[string]batch.Batch),
		watchers: make(map[string]map[int]chan []batch.Batch),
		now:      time.Now,
	}
}

func (m *Memory) List(ctx context.Context, user string) ([]batch.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(user), nil
}

// snapshot must be called with mu held.
func (m *Memory) snapshot(user string) []batch.Batch {
	out := make([]batch.Batch, 0, len(m.batches[user]))
	for _, b := range m.batches[user] {
		out = append(out, copyBatch(b))
	}
	sortNewestFirst(out)
	return out
}

func (m *Memory) Watch(ctx context.Context, user string) (<-chan []batch.Batch, error) {
	ch := make(chan []batch.Batch, 1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.watchers[user] == nil {
		m.watchers[user] = make(map[int]chan []batch.Batch)
	}
	m.watchers[user][id] = ch
	offer(ch, m.snapshot(user))
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers[user], id)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// publish must be called with mu held for writing.
func (m *Memory) publish(user string) {
	if len(m.watchers[user]) == 0 {
		return
	}
	for _, ch := range m.watchers[user] {
		offer(ch, m.snapshot(user))
	}
}

func (m *Memory) Create(ctx context.Context, user string, b batch.Batch) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b = copyBatch(b)
	b.ID = uuid.New().String()
	if b.Timestamp.IsZero() {
		b.Timestamp = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batches[user] == nil {
		m.batches[user] = make(map[string]batch.Batch)
	}
	m.batches[user][b.ID] = b
	m.publish(user)
	return b.ID, nil
}

func (m *Memory) Update(ctx context.Context, user, id string, records []batch.Record, strikes []bool, lastUpdated time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[user][id]
	if !ok {
		return ErrNotFound
	}
	b.Records = cloneRecords(records)
	b.GroupStrikes = cloneStrikes(strikes)
	b.LastUpdated = &lastUpdated
	m.batches[user][id] = b
	m.publish(user)
	return nil
}

func (m *Memory) Delete(ctx context.Context, user, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[user][id]; !ok {
		return ErrNotFound
	}
	delete(m.batches[user], id)
	m.publish(user)
	return nil
}

func (m *Memory) Close() error { return nil }
