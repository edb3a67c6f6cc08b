// Package bundb opens the Postgres handle shared by every module repository.
package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Black-And-White-Club/lobby-bot/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewBunDB connects to Postgres and pings it before returning.
func NewBunDB(ctx context.Context, cfg config.PostgresConfig) (*bun.DB, error) {
	db := Open(cfg.DSN)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Open returns a bun.DB for dsn without connecting.
func Open(dsn string) *bun.DB {
	return bunDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))))
}

func bunDB(sqldb *sql.DB) *bun.DB {
	return bun.NewDB(sqldb, pgdialect.New())
}
