package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

type KVStoreKey string

// KeyLastTarget remembers the host:port of the last tcp run, so the next run
// can omit it.
const KeyLastTarget KVStoreKey = "client.last_target"

// Entry represents one record: key -> value.
type Entry struct {
	Key       KVStoreKey
	Value     string
	CreatedAt time.Time
	LastUsed  time.Time
}

type KVStore struct {
	db *DB
}

func NewKVStore(database *DB) *KVStore {
	return &KVStore{db: database}
}

// Get returns the entry for the given key.
// found == false means "no row".
func (s *KVStore) Get(ctx context.Context, key KVStoreKey) (entry Entry, found bool, err error) {
	const q = `
SELECT key, value, created_at, last_used
FROM kv_store
WHERE key = ?
`
	row := s.db.Raw().QueryRowContext(ctx, q, key)

	var createdAtUnix, lastUsedUnix int64
	if err = row.Scan(&entry.Key, &entry.Value, &createdAtUnix, &lastUsedUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("kv_store: get: %w", err)
	}

	entry.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	entry.LastUsed = time.Unix(lastUsedUnix, 0).UTC()

	_ = s.Touch(ctx, key)

	return entry, true, nil
}

// Upsert sets value for the key. If the row exists,
// it updates the value + last_used; otherwise it inserts a new one.
func (s *KVStore) Upsert(ctx context.Context, key KVStoreKey, value string) error {
	const stmt = `
INSERT INTO kv_store (key, value, created_at, last_used)
VALUES (?, ?, strftime('%s','now'), strftime('%s','now'))
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	last_used = strftime('%s','now');
`

	if _, err := s.db.Raw().ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("kv_store: upsert: %w", err)
	}
	return nil
}

// Touch updates last_used for a given key if it exists.
// No-op if the row doesn't exist.
func (s *KVStore) Touch(ctx context.Context, key KVStoreKey) error {
	const stmt = `
UPDATE kv_store
SET last_used = strftime('%s','now')
WHERE key = ?;
`
	if _, err := s.db.Raw().ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("kv_store: touch: %w", err)
	}
	return nil
}

// Delete removes the entry for the given key, if any.
func (s *KVStore) Delete(ctx context.Context, key KVStoreKey) error {
	const stmt = `DELETE FROM kv_store WHERE key = ?`
	if _, err := s.db.Raw().ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("kv_store: delete: %w", err)
	}
	return nil
}

// LastTarget returns the host:port remembered by the last tcp run.
func (s *KVStore) LastTarget(ctx context.Context) (string, bool, error) {
	entry, found, err := s.Get(ctx, KeyLastTarget)
	if err != nil || !found {
		return "", false, err
	}
	return entry.Value, true, nil
}

// RememberTarget stores host:port as the default target of the next run.
func (s *KVStore) RememberTarget(ctx context.Context, host string, port int) error {
	return s.Upsert(ctx, KeyLastTarget, net.JoinHostPort(host, strconv.Itoa(port)))
}

// ForgetTarget drops the remembered target.
func (s *KVStore) ForgetTarget(ctx context.Context) error {
	return s.Delete(ctx, KeyLastTarget)
}
