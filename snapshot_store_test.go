package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lg/oxyn-energy-api/energy"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(key string) snapshot {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return snapshot{
		Key:           key,
		Profile:       energy.Profile{Sex: energy.Female, AgeYears: 31, HeightCM: 165, WeightKG: 62.5},
		ActivityLevel: energy.Light,
		Strategy:      energy.Soft,
		LastResult:    &lastResult{Calories: 1926, ComputedAt: at},
		UpdatedAt:     at,
	}
}

func TestMemorySnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := newMemorySnapshotStore()

	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, errSnapshotNotFound)

	s := testSnapshot("k1")
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// Mutating a returned copy must not reach the store.
	got.LastResult.Calories = 1
	again, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 1926, again.LastResult.Calories)

	require.NoError(t, store.Delete(ctx, "k1"))
	assert.ErrorIs(t, store.Delete(ctx, "k1"), errSnapshotNotFound)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, errSnapshotNotFound)
}

func TestSnapshotKeyPattern(t *testing.T) {
	for _, key := range []string{"a", "my-calc_1", "0b6f8a5e-3c1d-4e7a-9f2b-1a2b3c4d5e6f"} {
		assert.True(t, snapshotKeyPattern.MatchString(key), key)
	}
	for _, key := range []string{"", "has space", "dots.not.allowed", "slash/no", string(make([]byte, 129))} {
		assert.False(t, snapshotKeyPattern.MatchString(key), key)
	}
}

func TestRedisSnapshotStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := newRedisSnapshotStore(db, 2*time.Hour)

	s := testSnapshot("k1")
	data, err := json.Marshal(s)
	require.NoError(t, err)

	mock.ExpectSet(snapshotKeyPrefix+"k1", string(data), 2*time.Hour).SetVal("OK")
	require.NoError(t, store.Save(ctx, s))

	mock.ExpectGet(snapshotKeyPrefix + "k1").SetVal(string(data))
	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSnapshotStore_NotFound(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := newRedisSnapshotStore(db, 0)

	mock.ExpectGet(snapshotKeyPrefix + "missing").RedisNil()
	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, errSnapshotNotFound)

	mock.ExpectDel(snapshotKeyPrefix + "missing").SetVal(0)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), errSnapshotNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSnapshotStore_Delete(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := newRedisSnapshotStore(db, 0)

	mock.ExpectDel(snapshotKeyPrefix + "k1").SetVal(1)
	require.NoError(t, store.Delete(ctx, "k1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSnapshotStore_Errors(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := newRedisSnapshotStore(db, 0)
	boom := errors.New("connection reset")

	mock.ExpectGet(snapshotKeyPrefix + "k1").SetErr(boom)
	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errSnapshotNotFound)

	mock.ExpectGet(snapshotKeyPrefix + "k2").SetVal("{not json")
	_, err = store.Get(ctx, "k2")
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRow_ToSnapshot(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	calories := 1926
	row := snapshotRow{
		Key:            "k1",
		Sex:            "female",
		AgeYears:       31,
		HeightCM:       165,
		WeightKG:       62.5,
		ActivityLevel:  "light",
		Strategy:       "soft",
		LastCalories:   &calories,
		LastComputedAt: &at,
		UpdatedAt:      at,
	}
	assert.Equal(t, testSnapshot("k1"), row.toSnapshot())

	row.LastCalories = nil
	assert.Nil(t, row.toSnapshot().LastResult)
}

func TestNewSnapshotStore_Memory(t *testing.T) {
	store, closeStore, err := newSnapshotStore(context.Background(), &Config{StoreBackend: "memory"})
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &memorySnapshotStore{}, store)

	_, _, err = newSnapshotStore(context.Background(), &Config{StoreBackend: "sqlite"})
	assert.Error(t, err)
}
