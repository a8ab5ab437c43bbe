package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/middleware"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by backends for missing keys.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a raw key/value store. Values are opaque bytes; the envelope
// handling lives in Manager.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Close() error
}

// envelope is the stored form of every value. Timestamps are unix
// milliseconds; Expiration is absent for entries that never expire.
type envelope struct {
	Value      json.RawMessage `json:"value"`
	Timestamp  int64           `json:"timestamp"`
	Expiration *int64          `json:"expiration"`
}

// Manager is the persistent store used for all cross-command client state.
type Manager struct {
	backend Backend
	logger  *logrus.Logger
	metrics *middleware.Metrics
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the time source used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics records storage operation counts and latencies.
func WithMetrics(metrics *middleware.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// New wraps backend.
func New(backend Backend, logger *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManager creates the persistent store selected by cfg.Storage.Type.
func NewManager(cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Manager, error) {
	var backend Backend

	switch cfg.Storage.Type {
	case "redis":
		redisBackend, err := NewRedisBackend(&cfg.Storage.Redis)
		if err != nil {
			return nil, err
		}
		backend = redisBackend
	case "sqlite":
		sqliteBackend, err := NewSQLiteBackend(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		backend = sqliteBackend
	case "memory":
		backend = NewMemoryBackend(cfg.Storage.Memory.CleanupInterval)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	logger.WithField("type", cfg.Storage.Type).Debug("Storage initialized")
	return New(backend, logger, opts...), nil
}

// NewSessionStore returns the tab-scoped store that logout clears.
func NewSessionStore(logger *logrus.Logger, opts ...Option) *Manager {
	return New(NewMemoryBackend(0), logger, opts...)
}

// Set stores value under key. A positive expiration makes the entry
// unreadable once that much time has passed.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) (err error) {
	defer m.observe("set", time.Now(), &err)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	now := m.now()
	item := envelope{
		Value:     raw,
		Timestamp: now.UnixMilli(),
	}
	if expiration > 0 {
		expiresAt := now.Add(expiration).UnixMilli()
		item.Expiration = &expiresAt
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return m.backend.Set(ctx, key, data)
}

// Get decodes the value stored under key into dst and reports whether one
// was found. Expired entries are deleted. Entries that cannot be decoded are
// logged and reported as missing; only backend failures return an error.
func (m *Manager) Get(ctx context.Context, key string, dst interface{}) (found bool, err error) {
	defer m.observe("get", time.Now(), &err)

	data, err := m.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var item envelope
	if err := json.Unmarshal(data, &item); err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("Error parsing stored item")
		return false, nil
	}
	if item.Value == nil {
		m.logger.WithField("key", key).Warn("Stored item has no value")
		return false, nil
	}

	if m.expired(&item) {
		if err := m.backend.Delete(ctx, key); err != nil {
			m.logger.WithError(err).WithField("key", key).Warn("Failed to delete expired item")
		}
		return false, nil
	}

	if string(item.Value) == "null" {
		return false, nil
	}
	if dst == nil {
		return true, nil
	}
	if err := decodeInto(item.Value, dst); err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("Error parsing stored item")
		return false, nil
	}
	return true, nil
}

// decodeInto unmarshals raw over a copy of *dst and stores the result only
// when decoding succeeds, so a failed read leaves dst untouched.
func decodeInto(raw []byte, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return json.Unmarshal(raw, dst)
	}
	tmp := reflect.New(rv.Elem().Type())
	tmp.Elem().Set(rv.Elem())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(tmp.Elem())
	return nil
}

// Has reports whether a live value is stored under key.
func (m *Manager) Has(ctx context.Context, key string) (bool, error) {
	return m.Get(ctx, key, nil)
}

// Remove deletes key.
func (m *Manager) Remove(ctx context.Context, key string) (err error) {
	defer m.observe("remove", time.Now(), &err)

	err = m.backend.Delete(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Clear deletes every key.
func (m *Manager) Clear(ctx context.Context) (err error) {
	defer m.observe("clear", time.Now(), &err)
	return m.backend.Clear(ctx)
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	keys, err := m.backend.Keys(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, key := range keys {
		data, err := m.backend.Get(ctx, key)
		if err != nil {
			continue
		}
		var item envelope
		if json.Unmarshal(data, &item) != nil || !m.expired(&item) {
			continue
		}
		if err := m.backend.Delete(ctx, key); err == nil {
			purged++
		}
	}

	if purged > 0 {
		m.logger.WithField("count", purged).Debug("Purged expired items")
	}
	return purged, nil
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}

func (m *Manager) expired(item *envelope) bool {
	return item.Expiration != nil && *item.Expiration < m.now().UnixMilli()
}

func (m *Manager) observe(op string, start time.Time, err *error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if *err != nil {
		status = "error"
	}
	m.metrics.RecordStorageOperation(op, status, time.Since(start))
}
