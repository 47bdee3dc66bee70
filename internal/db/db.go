package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"persona-ingest/internal/config"
)

// poolMaxConns dimensiona el pool en funcion de los workers: cada worker
// escribe como mucho una fila a la vez, mas un margen para la API de feedback.
func poolMaxConns(workerCount int) int32 {
	maxConns := int32(workerCount + 2)
	if maxConns < 4 {
		maxConns = 4
	}
	return maxConns
}

// NewPool construye y devuelve el pool de conexiones que comparten los
// workers de ingesta.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = poolMaxConns(cfg.WorkerCount)
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}
