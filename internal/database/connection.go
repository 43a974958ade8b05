// Package database owns the process-lifetime connection pool. The pool is
// created lazily on first use and reused by every request in the process;
// a failed initialization is retried on the next call rather than cached.
package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lawlink/lawlink-api/pkg/config"
)

type Handle struct {
	cfg  config.DatabaseConfig
	mu   sync.Mutex
	pool *pgxpool.Pool
}

func NewHandle(cfg config.DatabaseConfig) *Handle {
	return &Handle{cfg: cfg}
}

// Get returns the shared pool, creating it on first use.
func (h *Handle) Get(ctx context.Context) (*pgxpool.Pool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pool != nil {
		return h.pool, nil
	}

	pcfg, err := pgxpool.ParseConfig(h.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	pcfg.MinConns = int32(h.cfg.MinConns)
	pcfg.MaxConns = int32(h.cfg.MaxConns)
	pcfg.MaxConnLifetime = h.cfg.MaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	h.pool = pool
	return h.pool, nil
}

func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pool != nil {
		h.pool.Close()
		h.pool = nil
	}
}
