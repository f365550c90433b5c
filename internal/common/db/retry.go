package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"

	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 25 * time.Millisecond,
	MaxDelay:     500 * time.Millisecond,
	Multiplier:   2.0,
}

// retryableClasses are SQLSTATE classes worth another attempt: connection
// exceptions and transaction rollbacks (serialization failure, deadlock).
var retryableClasses = map[string]bool{
	"08": true,
	"40": true,
}

// IsRetryable reports transient PostgreSQL failures. Constraint violations
// and everything that is not a *pgconn.PgError are permanent.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	return retryableClasses[pgErr.Code[:2]] || pgErr.Code == "55P03"
}

// Retry runs fn until it succeeds, fails permanently, or MaxAttempts is
// reached. op names the operation in logs and in the db_retries_total metric.
func Retry(ctx context.Context, log *logger.Logger, cfg RetryConfig, op string, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
		}

		metrics.DBRetries.WithLabelValues(op).Inc()
		if log != nil {
			log.WithFields(ctx, logger.Fields{
				"operation": op,
				"attempt":   attempt,
				"action":    "db_retry",
			}).Warnf("transient database error, retrying in %v: %v", delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}

		delay = nextDelay(delay, cfg)
	}
}

func nextDelay(current time.Duration, cfg RetryConfig) time.Duration {
	next := time.Duration(float64(current) * cfg.Multiplier)
	if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return next
}
