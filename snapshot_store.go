package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"lg/oxyn-energy-api/energy"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var errSnapshotNotFound = errors.New("snapshot not found")

// snapshotKeyPattern restricts caller-chosen keys to something safe for every backend.
var snapshotKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// lastResult is the headline number of the most recent explicit calculation.
type lastResult struct {
	Calories   int       `json:"calories"`
	ComputedAt time.Time `json:"computed_at"`
}

// snapshot is the persisted calculator state: the inputs the user last entered and,
// once they asked for a result, the TDEE it produced.
type snapshot struct {
	Key           string                 `json:"key"`
	Profile       energy.Profile         `json:"profile"`
	ActivityLevel energy.ActivityLevel   `json:"activity_level"`
	Strategy      energy.DeficitStrategy `json:"strategy"`
	LastResult    *lastResult            `json:"last_result,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// snapshotStore is the key-value store behind the snapshot endpoints.
type snapshotStore interface {
	Get(ctx context.Context, key string) (snapshot, error)
	Save(ctx context.Context, s snapshot) error
	Delete(ctx context.Context, key string) error
}

// newSnapshotStore builds the backend named by cfg.StoreBackend. The returned close
// func releases its connections.
func newSnapshotStore(ctx context.Context, cfg *Config) (snapshotStore, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return newMemorySnapshotStore(), func() {}, nil
	case "postgres":
		pool, err := getDBPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		return &pgSnapshotStore{db: pool}, pool.Close, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return newRedisSnapshotStore(rdb, cfg.SnapshotTTL()), func() { rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store_backend: %s", cfg.StoreBackend)
	}
}

/* ─── In-memory ──────────────────────────────────────────────────────── */

type memorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]snapshot
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snapshots: make(map[string]snapshot)}
}

func (m *memorySnapshotStore) Get(_ context.Context, key string) (snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[key]
	if !ok {
		return snapshot{}, errSnapshotNotFound
	}
	return s.clone(), nil
}

func (m *memorySnapshotStore) Save(_ context.Context, s snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[s.Key] = s.clone()
	return nil
}

func (m *memorySnapshotStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snapshots[key]; !ok {
		return errSnapshotNotFound
	}
	delete(m.snapshots, key)
	return nil
}

// clone copies s so callers never share the LastResult pointer with the store.
func (s snapshot) clone() snapshot {
	if s.LastResult != nil {
		lr := *s.LastResult
		s.LastResult = &lr
	}
	return s
}

/* ─── Postgres ───────────────────────────────────────────────────────── */

// snapshotRow maps to the energy_snapshots table.
type snapshotRow struct {
	Key            string     `db:"key"`
	Sex            string     `db:"sex"`
	AgeYears       int        `db:"age_years"`
	HeightCM       int        `db:"height_cm"`
	WeightKG       float64    `db:"weight_kg"`
	ActivityLevel  string     `db:"activity_level"`
	Strategy       string     `db:"strategy"`
	LastCalories   *int       `db:"last_calories"`
	LastComputedAt *time.Time `db:"last_computed_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (r snapshotRow) toSnapshot() snapshot {
	s := snapshot{
		Key: r.Key,
		Profile: energy.Profile{
			Sex:      energy.Sex(r.Sex),
			AgeYears: r.AgeYears,
			HeightCM: r.HeightCM,
			WeightKG: r.WeightKG,
		},
		ActivityLevel: energy.ActivityLevel(r.ActivityLevel),
		Strategy:      energy.DeficitStrategy(r.Strategy),
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LastCalories != nil && r.LastComputedAt != nil {
		s.LastResult = &lastResult{Calories: *r.LastCalories, ComputedAt: *r.LastComputedAt}
	}
	return s
}

type pgSnapshotStore struct {
	db *pgxpool.Pool
}

// getDBPool creates a connection pool. Simple protocol avoids "cached plan must not
// change result type" errors after a migration alters the table.
func getDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Infoln("[db] pool ready")
	return pool, nil
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
func queryOne[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		log.Errorf("[queryOne] query error: %v", err)
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Errorf("[queryOne] scan error: %v", err)
	}
	return result, err
}

func (p *pgSnapshotStore) Get(ctx context.Context, key string) (snapshot, error) {
	row, err := queryOne[snapshotRow](ctx, p.db,
		"SELECT * FROM energy_snapshots WHERE key = @key",
		pgx.NamedArgs{"key": key})
	if errors.Is(err, pgx.ErrNoRows) {
		return snapshot{}, errSnapshotNotFound
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	return row.toSnapshot(), nil
}

func (p *pgSnapshotStore) Save(ctx context.Context, s snapshot) error {
	args := pgx.NamedArgs{
		"key":           s.Key,
		"sex":           string(s.Profile.Sex),
		"ageYears":      s.Profile.AgeYears,
		"heightCM":      s.Profile.HeightCM,
		"weightKG":      s.Profile.WeightKG,
		"activityLevel": string(s.ActivityLevel),
		"strategy":      string(s.Strategy),
		"updatedAt":     s.UpdatedAt,
		"lastCalories":  nil,
		"lastAt":        nil,
	}
	if s.LastResult != nil {
		args["lastCalories"] = s.LastResult.Calories
		args["lastAt"] = s.LastResult.ComputedAt
	}

	_, err := p.db.Exec(ctx,
		`INSERT INTO energy_snapshots
			(key, sex, age_years, height_cm, weight_kg, activity_level, strategy,
			 last_calories, last_computed_at, updated_at)
		 VALUES (@key, @sex, @ageYears, @heightCM, @weightKG, @activityLevel, @strategy,
			 @lastCalories, @lastAt, @updatedAt)
		 ON CONFLICT (key) DO UPDATE SET
			sex              = EXCLUDED.sex,
			age_years        = EXCLUDED.age_years,
			height_cm        = EXCLUDED.height_cm,
			weight_kg        = EXCLUDED.weight_kg,
			activity_level   = EXCLUDED.activity_level,
			strategy         = EXCLUDED.strategy,
			last_calories    = EXCLUDED.last_calories,
			last_computed_at = EXCLUDED.last_computed_at,
			updated_at       = EXCLUDED.updated_at`,
		args)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.Key, err)
	}
	return nil
}

func (p *pgSnapshotStore) Delete(ctx context.Context, key string) error {
	result, err := p.db.Exec(ctx,
		"DELETE FROM energy_snapshots WHERE key = @key",
		pgx.NamedArgs{"key": key})
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	if result.RowsAffected() == 0 {
		return errSnapshotNotFound
	}
	return nil
}

/* ─── Redis ──────────────────────────────────────────────────────────── */

// snapshotKeyPrefix namespaces snapshots; it is the storage key the calculator page
// used for its local copy.
const snapshotKeyPrefix = "oxyn_tdee_data:"

type redisSnapshotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func newRedisSnapshotStore(rdb *redis.Client, ttl time.Duration) *redisSnapshotStore {
	return &redisSnapshotStore{rdb: rdb, ttl: ttl}
}

func (r *redisSnapshotStore) Get(ctx context.Context, key string) (snapshot, error) {
	data, err := r.rdb.Get(ctx, snapshotKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return snapshot{}, errSnapshotNotFound
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("get snapshot %s: %w", key, err)
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return snapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return s, nil
}

func (r *redisSnapshotStore) Save(ctx context.Context, s snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.Key, err)
	}
	if err := r.rdb.Set(ctx, snapshotKeyPrefix+s.Key, string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.Key, err)
	}
	return nil
}

func (r *redisSnapshotStore) Delete(ctx context.Context, key string) error {
	n, err := r.rdb.Del(ctx, snapshotKeyPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	if n == 0 {
		return errSnapshotNotFound
	}
	return nil
}
