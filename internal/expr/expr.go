// Package expr builds target functions from arithmetic expressions such as "log(x) - 1".
//
// An expression is undefined at a point when its evaluation fails, yields NaN or yields
// something other than a number. A ternary without an else branch, for example
// "y > -1 ? x**2 + y**2", is therefore undefined wherever its condition is false.
package expr

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/cwbudde/robustsolve/internal/opt"
	"github.com/cwbudde/robustsolve/internal/roots"
)

func unary(f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		return f(toFloat(args[0])), nil
	}
}

var functions = map[string]govaluate.ExpressionFunction{
	"sin":  unary(math.Sin),
	"cos":  unary(math.Cos),
	"tan":  unary(math.Tan),
	"exp":  unary(math.Exp),
	"log":  unary(math.Log),
	"sqrt": unary(math.Sqrt),
	"abs":  unary(math.Abs),
	"pow": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}
		return math.Pow(toFloat(args[0]), toFloat(args[1])), nil
	},
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Expression is a parsed expression over a fixed set of variables.
type Expression struct {
	source string
	vars   []string
	parsed *govaluate.EvaluableExpression
}

// Parse parses source and checks that it only refers to the given variables and to pi and e.
func Parse(source string, vars ...string) (*Expression, error) {
	parsed, err := govaluate.NewEvaluableExpressionWithFunctions(source, functions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", source, err)
	}

	for _, v := range parsed.Vars() {
		if _, ok := constants[v]; ok {
			continue
		}
		if !slices.Contains(vars, v) {
			return nil, fmt.Errorf("unknown variable %q in %q (expected %s)", v, source, strings.Join(vars, ", "))
		}
	}

	return &Expression{source: source, vars: vars, parsed: parsed}, nil
}

// String returns the source of the expression.
func (e *Expression) String() string {
	return e.source
}

// Eval evaluates the expression with values bound to the variables in order.
func (e *Expression) Eval(values ...float64) (float64, bool) {
	params := make(map[string]interface{}, len(e.vars)+len(constants))
	for name, c := range constants {
		params[name] = c
	}
	for i, name := range e.vars {
		params[name] = values[i]
	}

	v, err := e.parsed.Evaluate(params)
	if err != nil {
		return math.NaN(), false
	}
	y, ok := number(v)
	if !ok || math.IsNaN(y) {
		return math.NaN(), false
	}
	return y, true
}

// NewFunc parses a function of x.
func NewFunc(source string) (roots.Func, error) {
	e, err := Parse(source, "x")
	if err != nil {
		return nil, err
	}
	return func(x float64) (float64, bool) {
		return e.Eval(x)
	}, nil
}

// NewObjective parses a function of x and y.
func NewObjective(source string) (opt.Objective, error) {
	e, err := Parse(source, "x", "y")
	if err != nil {
		return nil, err
	}
	return func(p []float64) (float64, bool) {
		if len(p) != 2 {
			return math.NaN(), false
		}
		return e.Eval(p[0], p[1])
	}, nil
}

func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return math.NaN(), false
		}
		return parsed, true
	default:
		return math.NaN(), false
	}
}

func toFloat(v interface{}) float64 {
	f, _ := number(v)
	return f
}
