// Package cache stores computed analyzer results in the cache table with an expiry.
package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Results is a key-value store of msgpack-encoded values with a fixed TTL.
type Results struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	log zerolog.Logger
}

// NewResults creates a result cache. A non-positive ttl disables caching.
func NewResults(db *sql.DB, ttl time.Duration, log zerolog.Logger) *Results {
	return &Results{
		db:  db,
		ttl: ttl,
		now: time.Now,
		log: log.With().Str("component", "result_cache").Logger(),
	}
}

// Enabled reports whether entries are kept at all.
func (c *Results) Enabled() bool { return c.ttl > 0 }

func encode(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, dest interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(dest)
}

// Set stores value under key until now+ttl.
func (c *Results) Set(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return nil
	}
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	expiresAt := c.now().Add(c.ttl).Unix()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, data, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Get decodes the entry for key into dest. It reports false on a miss or an
// expired entry.
func (c *Results) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	var data []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx, "SELECT value, expires_at FROM cache WHERE key = ?", key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if c.now().Unix() >= expiresAt {
		return false, nil
	}

	if err := decode(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a cache entry.
func (c *Results) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes all cache entries matching a prefix.
func (c *Results) DeleteByPrefix(ctx context.Context, prefix string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE key LIKE ?", prefix+"%"); err != nil {
		return fmt.Errorf("failed to delete cache entries with prefix %s: %w", prefix, err)
	}
	return nil
}

// PurgeExpired drops entries past their expiry and returns how many went.
func (c *Results) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		c.log.Debug().Int64("purged", n).Msg("Purged expired cache entries")
	}
	return n, nil
}
