// Package store opens the Postgres database backing the secondary state
// channel and applies its schema migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PoolOptions sizes the connection pool. The secondary channel sees one
// small write per save, so the defaults are modest.
type PoolOptions struct {
	MaxOpen     int
	MaxIdle     int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

func defaultPool() PoolOptions {
	return PoolOptions{MaxOpen: 8, MaxIdle: 4, MaxIdleTime: 5 * time.Minute, MaxLifetime: 30 * time.Minute}
}

// Open connects through the pgx stdlib driver and pings once. A zero pool
// field keeps its default.
func Open(ctx context.Context, databaseURL string, pool ...PoolOptions) (*sql.DB, error) {
	opts := defaultPool()
	if len(pool) > 0 {
		p := pool[0]
		if p.MaxOpen > 0 {
			opts.MaxOpen = p.MaxOpen
		}
		if p.MaxIdle > 0 {
			opts.MaxIdle = p.MaxIdle
		}
		if p.MaxIdleTime > 0 {
			opts.MaxIdleTime = p.MaxIdleTime
		}
		if p.MaxLifetime > 0 {
			opts.MaxLifetime = p.MaxLifetime
		}
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open user state db: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpen)
	db.SetMaxIdleConns(opts.MaxIdle)
	db.SetConnMaxIdleTime(opts.MaxIdleTime)
	db.SetConnMaxLifetime(opts.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping user state db: %w", err)
	}
	return db, nil
}
