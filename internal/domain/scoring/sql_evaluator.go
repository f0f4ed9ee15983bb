package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// SQLEvaluator runs substituted expressions as raw SQL inside a read-only
// transaction. Statements use the simple protocol so an expression may not
// carry bind parameters of its own.
type SQLEvaluator struct {
	db               txBeginner
	statementTimeout time.Duration
}

func NewSQLEvaluator(db txBeginner, statementTimeout time.Duration) *SQLEvaluator {
	return &SQLEvaluator{db: db, statementTimeout: statementTimeout}
}

func (e *SQLEvaluator) Exists(ctx context.Context, expr string, subject Subject) Outcome {
	return e.run(ctx, Substitute(expr, subject.EmployeeID, subject.Period), func(rows pgx.Rows) Outcome {
		found := rows.Next()
		rows.Close()
		if err := rows.Err(); err != nil {
			return Failed(err)
		}
		return Found(found)
	})
}

func (e *SQLEvaluator) Number(ctx context.Context, expr string, subject Subject) Outcome {
	return e.run(ctx, Substitute(expr, subject.EmployeeID, subject.Period), func(rows pgx.Rows) Outcome {
		if !rows.Next() {
			rows.Close()
			if err := rows.Err(); err != nil {
				return Failed(err)
			}
			return Failed(ErrNoRows)
		}
		values, err := rows.Values()
		if err != nil {
			return Failed(err)
		}
		idx := valueColumn(rows.FieldDescriptions())
		rows.Close()
		if err := rows.Err(); err != nil {
			return Failed(err)
		}
		if idx >= len(values) {
			return Failed(ErrNoRows)
		}
		value, err := toDecimal(values[idx])
		if err != nil {
			return Failed(err)
		}
		return Number(value)
	})
}

func (e *SQLEvaluator) run(ctx context.Context, sql string, read func(pgx.Rows) Outcome) Outcome {
	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return Failed(err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if e.statementTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", e.statementTimeout.Milliseconds())); err != nil {
			return Failed(err)
		}
	}

	rows, err := tx.Query(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return Failed(err)
	}
	defer rows.Close()
	return read(rows)
}

// valueColumn prefers a column aliased "value" and falls back to the first.
func valueColumn(fields []pgconn.FieldDescription) int {
	for i, f := range fields {
		if f.Name == "value" {
			return i
		}
	}
	return 0
}
