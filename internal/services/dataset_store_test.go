package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incomestatement/internal/config"
	"incomestatement/internal/shared/testutil"
	"incomestatement/internal/statement"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleIndex(t *testing.T) *statement.ProductIndex {
	t.Helper()
	index, err := statement.BuildIndex(&statement.Table{
		Header: testutil.SampleHeader,
		Rows:   testutil.Rows(testutil.SampleProducts()...),
	})
	require.NoError(t, err)
	return index
}

func newTestStore(t *testing.T, capacity int, ttl time.Duration) (*DatasetStore, *fakeClock) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewDatasetStore(config.DatasetConfig{Capacity: capacity, TTL: ttl}, logger)
	store.now = clock.Now
	return store, clock
}

func TestDatasetStore_PutGet(t *testing.T) {
	store, clock := newTestStore(t, 4, time.Hour)
	ctx := context.Background()

	d := &Dataset{ID: "ds-1", Name: "q1.csv", Source: SourceUpload, Index: sampleIndex(t)}
	require.NoError(t, store.Put(ctx, d))

	got, err := store.Get(ctx, "ds-1")
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.Equal(t, clock.Now(), got.UploadedAt)
	assert.Equal(t, clock.Now().Add(time.Hour), got.ExpiresAt)

	summary := got.Summary()
	assert.Equal(t, []string{"A", "B"}, summary.Products)
	assert.Equal(t, 2, summary.ProductCount)
	assert.Equal(t, 20, summary.RowCount)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestDatasetStore_PutRejectsIncomplete(t *testing.T) {
	store, _ := newTestStore(t, 0, 0)
	assert.Error(t, store.Put(context.Background(), nil))
	assert.Error(t, store.Put(context.Background(), &Dataset{ID: "x"}))
	assert.Error(t, store.Put(context.Background(), &Dataset{Index: sampleIndex(t)}))
}

func TestDatasetStore_CapacityEvictsOldest(t *testing.T) {
	store, _ := newTestStore(t, 2, 0)
	ctx := context.Background()
	index := sampleIndex(t)

	var evicted []string
	store.OnEvict(func(_ context.Context, d *Dataset, reason string) {
		assert.Equal(t, "capacity", reason)
		evicted = append(evicted, d.ID)
	})

	for _, id := range []string{"first", "second", "third"} {
		// the clock never moves, so insertion order decides
		require.NoError(t, store.Put(ctx, &Dataset{ID: id, Index: index}))
	}

	assert.Equal(t, []string{"first"}, evicted)
	assert.Equal(t, 2, store.Len())

	_, err := store.Get(ctx, "first")
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	list := store.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)
	assert.Equal(t, "third", list[1].ID)
}

func TestDatasetStore_TTLExpiry(t *testing.T) {
	store, clock := newTestStore(t, 0, 10*time.Minute)
	ctx := context.Background()

	var reasons []string
	store.OnEvict(func(_ context.Context, _ *Dataset, reason string) {
		reasons = append(reasons, reason)
	})

	require.NoError(t, store.Put(ctx, &Dataset{ID: "old", Index: sampleIndex(t)}))
	clock.Advance(5 * time.Minute)
	require.NoError(t, store.Put(ctx, &Dataset{ID: "new", Index: sampleIndex(t)}))

	clock.Advance(5 * time.Minute)
	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrDatasetNotFound, "expired at exactly the TTL")
	assert.Equal(t, []string{"expired"}, reasons)

	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)

	clock.Advance(5 * time.Minute)
	assert.Empty(t, store.List(ctx))
	assert.Equal(t, 1, store.PurgeExpired(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestDatasetStore_Delete(t *testing.T) {
	store, _ := newTestStore(t, 0, 0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Dataset{ID: "ds", Index: sampleIndex(t)}))
	require.NoError(t, store.Delete(ctx, "ds"))
	assert.ErrorIs(t, store.Delete(ctx, "ds"), ErrDatasetNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestDatasetStore_DeleteExpired(t *testing.T) {
	store, clock := newTestStore(t, 0, time.Minute)
	ctx := context.Background()

	var reasons []string
	store.OnEvict(func(_ context.Context, _ *Dataset, reason string) {
		reasons = append(reasons, reason)
	})

	require.NoError(t, store.Put(ctx, &Dataset{ID: "ds", Index: sampleIndex(t)}))
	clock.Advance(time.Minute)

	assert.ErrorIs(t, store.Delete(ctx, "ds"), ErrDatasetNotFound)
	assert.Equal(t, []string{"expired"}, reasons)
	assert.Equal(t, 0, store.Len())
}

func TestDatasetStore_RunJanitor(t *testing.T) {
	store, clock := newTestStore(t, 0, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, store.Put(ctx, &Dataset{ID: "ds", Index: sampleIndex(t)}))
	clock.Advance(2 * time.Minute)

	done := make(chan error, 1)
	go func() { done <- store.RunJanitor(ctx, time.Millisecond) }()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestChecksums(t *testing.T) {
	a := Checksum([]byte(testutil.SampleCSV()))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Checksum([]byte(testutil.SampleCSV())))
	assert.NotEqual(t, a, Checksum([]byte(testutil.CSV(testutil.SampleProducts()[0]))))

	table := &statement.Table{Header: testutil.SampleHeader, Rows: [][]string{{"A", "x", "1"}}}
	moved := &statement.Table{Header: testutil.SampleHeader, Rows: [][]string{{"A", "x1", ""}}}
	assert.Len(t, TableChecksum(table), 64)
	assert.NotEqual(t, TableChecksum(table), TableChecksum(moved), "cell boundaries are part of the digest")
}
