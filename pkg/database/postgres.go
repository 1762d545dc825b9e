package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TxQuerier is implemented by both pgxpool.Pool and pgx.Tx.
// Repository methods that need transaction support should accept TxQuerier.
type TxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	maxBackoff  = 16 * time.Second
	pingTimeout = 5 * time.Second
)

// retryDelay is the wait after the given zero-based failed attempt:
// 1s, 2s, 4s, 8s, then 16s for every later attempt.
func retryDelay(attempt int) time.Duration {
	if attempt >= 4 {
		return maxBackoff
	}
	return time.Duration(1<<attempt) * time.Second
}

// NewPool creates a PostgreSQL connection pool, making up to maxRetries
// attempts (at least one) with exponential backoff between them. Pool sizing
// comes from the DSN's pool_max_conns and pool_min_conns parameters.
func NewPool(ctx context.Context, dsn string, maxRetries int) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	attempts := max(maxRetries, 1)
	logger := log.With().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Int32("min_conns", poolCfg.MinConns).
		Logger()

	for attempt := 0; ; attempt++ {
		pool, err := connect(ctx, poolCfg)
		if err == nil {
			logger.Info().Int("attempt", attempt+1).Msg("database connection established")
			return pool, nil
		}
		if attempt+1 >= attempts {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, err)
		}

		backoff := retryDelay(attempt)
		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", attempts).
			Dur("next_retry_in", backoff).
			Msg("database connection failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func connect(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return pool, nil
}
