package scoring

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Outcome is the tagged result of evaluating one expression. A non-nil Err
// marks the evaluation as failed; Exists and Value are then meaningless.
type Outcome struct {
	Exists bool
	Value  decimal.Decimal
	Err    error
}

func Found(exists bool) Outcome {
	return Outcome{Exists: exists}
}

func Number(value decimal.Decimal) Outcome {
	return Outcome{Exists: true, Value: value}
}

func Failed(err error) Outcome {
	return Outcome{Err: err}
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Evaluator runs administrator-authored expressions for a subject.
//
// Exists reports whether a condition expression yields at least one row.
// Number reads the single numeric result of a value expression.
type Evaluator interface {
	Exists(ctx context.Context, expr string, subject Subject) Outcome
	Number(ctx context.Context, expr string, subject Subject) Outcome
}

// Substitute replaces the two recognised placeholders with the employee id
// and the quoted period literal. Authors are trusted administrators: no other
// escaping or placeholder is supported.
func Substitute(expr string, employeeID int64, period time.Time) string {
	return strings.NewReplacer(
		PlaceholderEmployeeID, strconv.FormatInt(employeeID, 10),
		PlaceholderApplyDate, "'"+FormatPeriod(period)+"'",
	).Replace(expr)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, ErrNullValue
	case decimal.Decimal:
		return x, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int16:
		return decimal.NewFromInt(int64(x)), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, ErrNotNumeric
		}
		return decimal.NewFromFloat(x), nil
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return decimal.Zero, ErrNotNumeric
		}
		return decimal.NewFromFloat32(x), nil
	case pgtype.Numeric:
		if !x.Valid {
			return decimal.Zero, ErrNullValue
		}
		if x.NaN || x.InfinityModifier != pgtype.Finite {
			return decimal.Zero, ErrNotNumeric
		}
		if x.Int == nil {
			return decimal.Zero, nil
		}
		return decimal.NewFromBigInt(x.Int, x.Exp), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}
}
