package scoring

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELEvaluator evaluates expressions written in CEL against the employee
// context. It never touches the database, which makes it the restricted
// alternative to raw SQL for rules that only depend on directory fields.
//
// Variables: employee_id (int), employee_code, role, team, area, apply_date
// (strings, apply_date as YYYY-MM-DD), active (bool) and period (timestamp).
type CELEvaluator struct {
	env      *cel.Env
	programs sync.Map
}

type celProgram struct {
	program cel.Program
	err     error
}

func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("employee_id", cel.IntType),
		cel.Variable("employee_code", cel.StringType),
		cel.Variable("role", cel.StringType),
		cel.Variable("team", cel.StringType),
		cel.Variable("area", cel.StringType),
		cel.Variable("active", cel.BoolType),
		cel.Variable("apply_date", cel.StringType),
		cel.Variable("period", cel.TimestampType),
	)
	if err != nil {
		return nil, err
	}
	return &CELEvaluator{env: env}, nil
}

func (e *CELEvaluator) Exists(ctx context.Context, expr string, subject Subject) Outcome {
	out, err := e.eval(ctx, expr, subject)
	if err != nil {
		return Failed(err)
	}
	active, ok := out.(bool)
	if !ok {
		return Failed(fmt.Errorf("condition must evaluate to bool, got %T", out))
	}
	return Found(active)
}

func (e *CELEvaluator) Number(ctx context.Context, expr string, subject Subject) Outcome {
	out, err := e.eval(ctx, expr, subject)
	if err != nil {
		return Failed(err)
	}
	if _, ok := out.(bool); ok {
		return Failed(fmt.Errorf("%w: bool", ErrNotNumeric))
	}
	value, err := toDecimal(out)
	if err != nil {
		return Failed(err)
	}
	return Number(value)
}

func (e *CELEvaluator) eval(ctx context.Context, expr string, subject Subject) (any, error) {
	if subject.Employee == nil {
		return nil, ErrNoEmployeeData
	}
	program, err := e.program(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expr), CELPrefix)))
	if err != nil {
		return nil, err
	}
	emp := subject.Employee
	out, _, err := program.ContextEval(ctx, map[string]any{
		"employee_id":   subject.EmployeeID,
		"employee_code": emp.Code,
		"role":          emp.Role,
		"team":          emp.Team,
		"area":          emp.Area,
		"active":        emp.Active,
		"apply_date":    FormatPeriod(subject.Period),
		"period":        NormalizePeriod(subject.Period),
	})
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *CELEvaluator) program(src string) (cel.Program, error) {
	if cached, ok := e.programs.Load(src); ok {
		p := cached.(celProgram)
		return p.program, p.err
	}
	var compiled celProgram
	ast, iss := e.env.Compile(src)
	if iss != nil && iss.Err() != nil {
		compiled.err = iss.Err()
	} else {
		compiled.program, compiled.err = e.env.Program(ast, cel.InterruptCheckFrequency(100))
	}
	e.programs.Store(src, compiled)
	return compiled.program, compiled.err
}

// DialectEvaluator sends CEL-prefixed expressions to the CEL engine and
// everything else to SQL.
type DialectEvaluator struct {
	SQL Evaluator
	CEL Evaluator
}

func (d DialectEvaluator) pick(expr string) Evaluator {
	if d.CEL != nil && strings.HasPrefix(strings.TrimSpace(expr), CELPrefix) {
		return d.CEL
	}
	return d.SQL
}

func (d DialectEvaluator) Exists(ctx context.Context, expr string, subject Subject) Outcome {
	return d.pick(expr).Exists(ctx, expr, subject)
}

func (d DialectEvaluator) Number(ctx context.Context, expr string, subject Subject) Outcome {
	return d.pick(expr).Number(ctx, expr, subject)
}
