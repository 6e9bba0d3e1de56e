package govaluate

import (
	"fmt"
	"math"
	"sync"

	"github.com/Knetic/govaluate"

	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

// Non-finite values are passed as parameters; govaluate has no literal
// for them.
var dialect = numeric.Dialect{
	NaN:    "NaN",
	PosInf: "Inf",
	NegInf: "(-Inf)",
}

// Evaluator compiles expressions with govaluate
type Evaluator struct {
	functions map[string]govaluate.ExpressionFunction
	cache     map[string]*govaluate.EvaluableExpression
	mu        sync.RWMutex
}

// NewEvaluator creates a govaluate backend with the calculator's math
// functions registered
func NewEvaluator() *Evaluator {
	functions := map[string]govaluate.ExpressionFunction{
		"pow": wrap("pow", 2, func(args ...float64) float64 { return math.Pow(args[0], args[1]) }),
	}
	for _, name := range symbolic.FunctionNames() {
		kernel, err := symbolic.Kernel(name)
		if err != nil {
			panic(err)
		}
		arity, err := symbolic.FunctionArity(name)
		if err != nil {
			panic(err)
		}
		functions[name] = wrap(name, arity, kernel)
	}
	return &Evaluator{
		functions: functions,
		cache:     make(map[string]*govaluate.EvaluableExpression),
	}
}

func wrap(name string, arity int, kernel func(...float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != arity {
			return nil, fmt.Errorf("%s takes %d argument(s), got %d", name, arity, len(args))
		}
		values := make([]float64, len(args))
		for i, a := range args {
			f, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("%s: argument %d is %T, not a number", name, i+1, a)
			}
			values[i] = f
		}
		return kernel(values...), nil
	}
}

// Name returns the backend name
func (e *Evaluator) Name() string { return "govaluate" }

// Compile translates expr into a govaluate expression. The result only
// evaluates one point at a time.
func (e *Evaluator) Compile(expr symbolic.Expr, variable string) (numeric.Func, error) {
	if err := numeric.CheckVariables(expr, variable); err != nil {
		return nil, err
	}
	if variable == "NaN" || variable == "Inf" {
		return nil, fmt.Errorf("variable name %q is reserved", variable)
	}
	source, err := numeric.Format(expr, dialect)
	if err != nil {
		return nil, err
	}
	compiled, err := e.getExpression(source)
	if err != nil {
		return nil, err
	}
	return &expressionFunc{expr: compiled, variable: variable}, nil
}

func (e *Evaluator) getExpression(source string) (*govaluate.EvaluableExpression, error) {
	e.mu.RLock()
	if compiled, ok := e.cache[source]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if compiled, ok := e.cache[source]; ok {
		return compiled, nil
	}
	compiled, err := govaluate.NewEvaluableExpressionWithFunctions(source, e.functions)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}
	e.cache[source] = compiled
	return compiled, nil
}

type expressionFunc struct {
	expr     *govaluate.EvaluableExpression
	variable string
}

func (f *expressionFunc) EvalBulk([]float64) ([]float64, error) {
	return nil, fmt.Errorf("%w: govaluate expressions take a single number", numeric.ErrTypeIncompatible)
}

func (f *expressionFunc) Eval(x float64) (float64, error) {
	params := map[string]interface{}{
		f.variable: x,
		"NaN":      math.NaN(),
		"Inf":      math.Inf(1),
	}
	v, err := f.expr.Evaluate(params)
	if err != nil {
		return math.NaN(), fmt.Errorf("evaluation failed: %w", err)
	}
	y, ok := v.(float64)
	if !ok {
		return math.NaN(), fmt.Errorf("expression returned %T, not a number", v)
	}
	return y, nil
}

// CacheSize returns the number of cached expressions
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
