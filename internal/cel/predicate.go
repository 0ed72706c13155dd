// Package cel compiles CEL expressions into row predicates. The row under
// test is bound to the variable "_", so `_.city == "Boston"` or
// `int(_.age) >= 30` select rows.
package cel

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/rowpick/pkg/logger"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

// ErrNotBoolean is returned for expressions or results that are not booleans.
var ErrNotBoolean = errors.New("filter expression must evaluate to a bool")

// RowVariable is the name the row is bound to.
const RowVariable = "_"

func newRowEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 5+len(opts))
	allOpts = append(allOpts,
		cel.Variable(RowVariable, cel.MapType(cel.StringType, cel.DynType)),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

// Predicate is a compiled row filter.
type Predicate struct {
	expr string
	prg  cel.Program
}

// Compile parses and checks expr.
func Compile(expr string) (*Predicate, error) {
	env, err := newRowEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(types.BoolType) && !out.IsExactType(types.DynType) {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotBoolean, expr, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Predicate{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (p *Predicate) String() string { return p.expr }

// Match evaluates the predicate against row.
func (p *Predicate) Match(row tabular.Row) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{RowVariable: map[string]any(row)})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("%w: got %s", ErrNotBoolean, out.Type().TypeName())
	}
	return bool(b), nil
}

// Filter adapts the predicate to tabular.Predicate. Rows that fail to
// evaluate, for example because a column is missing, are dropped and logged
// at debug level.
func (p *Predicate) Filter(ctx context.Context) tabular.Predicate {
	lgr := logger.FromContext(ctx)
	return func(row tabular.Row) bool {
		ok, err := p.Match(row)
		if err != nil {
			lgr.V(1).Info("filter expression failed on row", "expression", p.expr, "error", err.Error())
			return false
		}
		return ok
	}
}
