package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore is a memory store whose Save always fails.
type failingStore struct {
	*memorySnapshotStore
	err error
}

func (f *failingStore) Save(context.Context, snapshot) error { return f.err }

// blockingGetStore is a memory store whose Get waits for release, so a draft write can be
// held between its read of the stored LastResult and its Save.
type blockingGetStore struct {
	*memorySnapshotStore
	entered chan struct{}
	release chan struct{}
}

func newBlockingGetStore() *blockingGetStore {
	return &blockingGetStore{
		memorySnapshotStore: newMemorySnapshotStore(),
		entered:             make(chan struct{}, 1),
		release:             make(chan struct{}),
	}
}

func (b *blockingGetStore) Get(ctx context.Context, key string) (snapshot, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.memorySnapshotStore.Get(ctx, key)
}

func (b *blockingGetStore) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-b.entered:
	case <-time.After(time.Second):
		t.Fatal("draft write never reached the store")
	}
}

// writerRefs is how many writes hold or wait for key's writer.
func (s *snapshotSaver) writerRefs(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kw, ok := s.keys[key]; ok {
		return kw.refs
	}
	return 0
}

func draft(key string, weight float64) snapshot {
	s := testSnapshot(key)
	s.Profile.WeightKG = weight
	s.LastResult = nil
	return s
}

func TestSnapshotSaver_CoalescesDrafts(t *testing.T) {
	ctx := context.Background()
	metrics := newTestMetrics()
	store := newMemorySnapshotStore()
	saver := newSnapshotSaver(store, 50*time.Millisecond, metrics)
	defer saver.Close(ctx)

	for _, w := range []float64{60, 61, 62, 63} {
		require.NoError(t, saver.Schedule(draft("k1", w)))
	}
	require.NoError(t, saver.Schedule(draft("k2", 70)))
	assert.Equal(t, 2, saver.Pending())

	debounced := metrics.CounterSnapshotWrites.WithLabelValues("debounced", "ok")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(debounced) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, saver.Pending())

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 63.0, got.Profile.WeightKG)
	got, err = store.Get(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Profile.WeightKG)
}

func TestSnapshotSaver_DraftKeepsStoredResult(t *testing.T) {
	ctx := context.Background()
	store := newMemorySnapshotStore()
	saver := newSnapshotSaver(store, time.Hour, newTestMetrics())
	defer saver.Close(ctx)

	require.NoError(t, store.Save(ctx, testSnapshot("k1")))
	require.NoError(t, saver.Schedule(draft("k1", 58)))
	require.NoError(t, saver.Flush(ctx))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 58.0, got.Profile.WeightKG)
	require.NotNil(t, got.LastResult)
	assert.Equal(t, 1926, got.LastResult.Calories)
}

func TestSnapshotSaver_SaveNowSupersedesDraft(t *testing.T) {
	ctx := context.Background()
	metrics := newTestMetrics()
	store := newMemorySnapshotStore()
	saver := newSnapshotSaver(store, 20*time.Millisecond, metrics)

	require.NoError(t, saver.Schedule(draft("k1", 99)))
	require.NoError(t, saver.SaveNow(ctx, testSnapshot("k1")))
	assert.Equal(t, 0, saver.Pending())

	// Close waits for any timer already running, so the stale draft can't land after this.
	require.NoError(t, saver.Close(ctx))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 62.5, got.Profile.WeightKG)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("immediate", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("debounced", "ok")))
}

func TestSnapshotSaver_Cancel(t *testing.T) {
	ctx := context.Background()
	store := newMemorySnapshotStore()
	saver := newSnapshotSaver(store, time.Hour, newTestMetrics())

	require.NoError(t, saver.Schedule(draft("k1", 60)))
	saver.Cancel("k1")
	saver.Cancel("never-scheduled")
	assert.Equal(t, 0, saver.Pending())

	require.NoError(t, saver.Close(ctx))
	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, errSnapshotNotFound)
}

func TestSnapshotSaver_CloseFlushesAndRejects(t *testing.T) {
	ctx := context.Background()
	metrics := newTestMetrics()
	store := newMemorySnapshotStore()
	saver := newSnapshotSaver(store, time.Hour, metrics)

	require.NoError(t, saver.Schedule(draft("k1", 60)))
	require.NoError(t, saver.Close(ctx))

	_, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("flush", "ok")))

	assert.ErrorIs(t, saver.Schedule(draft("k2", 60)), errSaverClosed)
	assert.ErrorIs(t, saver.SaveNow(ctx, testSnapshot("k2")), errSaverClosed)
}

func TestSnapshotSaver_StoreError(t *testing.T) {
	ctx := context.Background()
	metrics := newTestMetrics()
	boom := errors.New("disk full")
	store := &failingStore{memorySnapshotStore: newMemorySnapshotStore(), err: boom}
	saver := newSnapshotSaver(store, time.Hour, metrics)
	defer saver.Close(ctx)

	assert.ErrorIs(t, saver.SaveNow(ctx, testSnapshot("k1")), boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("immediate", "error")))

	require.NoError(t, saver.Schedule(draft("k1", 60)))
	require.NoError(t, saver.Schedule(draft("k2", 60)))
	assert.ErrorIs(t, saver.Flush(ctx), boom)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("flush", "error")))
	assert.Equal(t, 0, saver.Pending())
}

func TestSnapshotSaver_SaveNowWinsOverRunningDraft(t *testing.T) {
	ctx := context.Background()
	metrics := newTestMetrics()
	store := newBlockingGetStore()
	saver := newSnapshotSaver(store, time.Millisecond, metrics)

	require.NoError(t, saver.Schedule(draft("k1", 99)))
	store.waitEntered(t)

	done := make(chan error, 1)
	go func() { done <- saver.SaveNow(ctx, testSnapshot("k1")) }()
	require.Eventually(t, func() bool { return saver.writerRefs("k1") == 2 }, time.Second, time.Millisecond)

	close(store.release)
	require.NoError(t, <-done)
	require.NoError(t, saver.Close(ctx))

	got, err := store.memorySnapshotStore.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 62.5, got.Profile.WeightKG)
	require.NotNil(t, got.LastResult)
	assert.Equal(t, 1926, got.LastResult.Calories)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("debounced", "superseded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("debounced", "ok")))
	assert.Equal(t, 0, saver.writerRefs("k1"))
}

func TestSnapshotSaver_DeleteWinsOverRunningDraft(t *testing.T) {
	ctx := context.Background()
	metrics := newTestMetrics()
	store := newBlockingGetStore()
	require.NoError(t, store.Save(ctx, testSnapshot("k1")))
	saver := newSnapshotSaver(store, time.Millisecond, metrics)

	require.NoError(t, saver.Schedule(draft("k1", 99)))
	store.waitEntered(t)

	done := make(chan error, 1)
	go func() { done <- saver.Delete(ctx, "k1") }()
	require.Eventually(t, func() bool { return saver.writerRefs("k1") == 2 }, time.Second, time.Millisecond)

	close(store.release)
	require.NoError(t, <-done)
	require.NoError(t, saver.Close(ctx))

	_, err := store.memorySnapshotStore.Get(ctx, "k1")
	assert.ErrorIs(t, err, errSnapshotNotFound, "a running draft must not bring a deleted snapshot back")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("debounced", "superseded")))
}

func TestSnapshotSaver_CancelDropsRunningDraft(t *testing.T) {
	ctx := context.Background()
	metrics := newTestMetrics()
	store := newBlockingGetStore()
	saver := newSnapshotSaver(store, time.Millisecond, metrics)

	require.NoError(t, saver.Schedule(draft("k1", 99)))
	store.waitEntered(t)
	saver.Cancel("k1")

	close(store.release)
	require.NoError(t, saver.Close(ctx))

	_, err := store.memorySnapshotStore.Get(ctx, "k1")
	assert.ErrorIs(t, err, errSnapshotNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CounterSnapshotWrites.WithLabelValues("debounced", "superseded")))
}

func TestSnapshotSaver_DraftAfterSaveNowIsWritten(t *testing.T) {
	ctx := context.Background()
	store := newMemorySnapshotStore()
	saver := newSnapshotSaver(store, time.Hour, newTestMetrics())

	require.NoError(t, saver.SaveNow(ctx, testSnapshot("k1")))
	require.NoError(t, saver.Schedule(draft("k1", 70)))
	require.NoError(t, saver.Close(ctx))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Profile.WeightKG)
	assert.Equal(t, 1926, got.LastResult.Calories)
}

func TestSnapshotSaver_Delete(t *testing.T) {
	ctx := context.Background()
	store := newMemorySnapshotStore()
	saver := newSnapshotSaver(store, time.Hour, newTestMetrics())
	defer saver.Close(ctx)

	require.NoError(t, saver.SaveNow(ctx, testSnapshot("k1")))
	require.NoError(t, saver.Schedule(draft("k1", 70)))

	require.NoError(t, saver.Delete(ctx, "k1"))
	assert.Equal(t, 0, saver.Pending())
	assert.ErrorIs(t, saver.Delete(ctx, "k1"), errSnapshotNotFound)
	assert.Equal(t, 0, saver.writerRefs("k1"))
}
