package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// unifyPool creates the shared pgxpool.Pool from store configuration.
func unifyPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("unify: no database_url configured (set store.database_url or UNIFY_STORE_DATABASE_URL)")
	}

	pc, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "unify: parse database url")
	}
	if cfg.Store.MaxConns > 0 {
		pc.MaxConns = cfg.Store.MaxConns
	}
	if cfg.Store.MinConns > 0 {
		pc.MinConns = cfg.Store.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, eris.Wrap(err, "unify: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "unify: ping database")
	}
	return pool, nil
}
