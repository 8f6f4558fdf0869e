package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// pgClasses names the SQLSTATEs worth telling apart on a dashboard.
var pgClasses = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"22P02": "invalid_input",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"53300": "too_many_connections",
	"57014": "query_canceled",
}

// ObserveDB times one logical store operation such as "todos.list". A lookup
// that finds nothing is recorded as ok.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	if err == nil || isNoRows(err) {
		p.DbQueryDuration.WithLabelValues(op, "ok").Observe(elapsed)
		return err
	}

	p.DbQueryDuration.WithLabelValues(op, "error").Observe(elapsed)
	p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments)
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, known := pgClasses[pgErr.Code]; known {
			return class
		}
		return "pg_" + pgErr.Code
	}

	switch {
	case mongo.IsDuplicateKeyError(err):
		return "unique_violation"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return "timeout"
	case mongo.IsNetworkError(err):
		return "connection"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "connect:"):
		return "connection"
	default:
		return "unknown"
	}
}
