// Package cache keeps fetched contract source in a local SQLite file so
// addresses resolved in any prior run are served without an explorer call.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"

	"github.com/cognicore/artspect/pkg/artspect/pipeline"
)

// Cache is a durable address → source map.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) a cache database with WAL mode enabled.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
CREATE TABLE IF NOT EXISTS sources (
	address TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached source for an address, if any.
func (c *Cache) Get(ctx context.Context, address string) (string, bool, error) {
	var code string
	err := c.db.QueryRowContext(ctx,
		"SELECT code FROM sources WHERE address = ?", address).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

// Put stores fetched source for an address, replacing any prior entry.
func (c *Cache) Put(ctx context.Context, address, code string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO sources (address, code, fetched_at) VALUES (?, ?, ?)",
		address, code, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Adapter serves fetches from the cache and falls through to the wrapped
// adapter on a miss, storing successful values. Empty outcomes are not
// cached: an unverified contract may become verified later.
type Adapter struct {
	Cache *Cache
	Next  pipeline.Adapter
	Log   *zap.Logger
}

func (a *Adapter) Invoke(ctx context.Context, in pipeline.Invocation) pipeline.Outcome {
	code, ok, err := a.Cache.Get(ctx, in.Key)
	if err != nil && a.Log != nil {
		a.Log.Warn("cache read failed", zap.String("address", in.Key), zap.Error(err))
	}
	if ok {
		return pipeline.Outcome{Kind: pipeline.Success, Value: code}
	}

	out := a.Next.Invoke(ctx, in)
	if out.Kind == pipeline.Success {
		if err := a.Cache.Put(ctx, in.Key, out.Value); err != nil && a.Log != nil {
			a.Log.Warn("cache write failed", zap.String("address", in.Key), zap.Error(err))
		}
	}
	return out
}
