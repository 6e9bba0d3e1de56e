package cel

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

var dialect = numeric.Dialect{
	NaN:    `double("NaN")`,
	PosInf: `double("Infinity")`,
	NegInf: `double("-Infinity")`,
}

// Evaluator evaluates CEL expressions over one double variable
type Evaluator struct {
	env      *cel.Env
	variable string
	cache    map[string]cel.Program
	mu       sync.RWMutex
}

// NewEvaluator creates a new CEL evaluator with the calculator's math
// functions declared as double overloads
func NewEvaluator(variable string) *Evaluator {
	opts := []cel.EnvOption{
		cel.Variable(variable, cel.DoubleType),
		binaryFunction("pow", math.Pow),
	}
	for _, name := range symbolic.FunctionNames() {
		opt, err := declareFunction(name)
		if err != nil {
			panic(fmt.Sprintf("failed to declare CEL function %s: %v", name, err))
		}
		opts = append(opts, opt)
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create CEL environment: %v", err))
	}

	return &Evaluator{
		env:      env,
		variable: variable,
		cache:    make(map[string]cel.Program),
	}
}

func declareFunction(name string) (cel.EnvOption, error) {
	arity, err := symbolic.FunctionArity(name)
	if err != nil {
		return nil, err
	}
	kernel, err := symbolic.Kernel(name)
	if err != nil {
		return nil, err
	}
	switch arity {
	case 1:
		return cel.Function(name,
			cel.Overload(name+"_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Double(kernel(float64(v.(types.Double))))
				}),
			),
		), nil
	case 2:
		return binaryFunction(name, func(a, b float64) float64 { return kernel(a, b) }), nil
	}
	return nil, fmt.Errorf("unsupported arity %d", arity)
}

func binaryFunction(name string, f func(a, b float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
			cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				return types.Double(f(float64(lhs.(types.Double)), float64(rhs.(types.Double))))
			}),
		),
	)
}

// Name returns the backend name
func (e *Evaluator) Name() string { return "cel" }

// Compile translates expr to CEL and compiles it. The result only evaluates
// one point at a time.
func (e *Evaluator) Compile(expr symbolic.Expr, variable string) (numeric.Func, error) {
	if variable != e.variable {
		return nil, fmt.Errorf("evaluator is declared over %q, not %q", e.variable, variable)
	}
	if err := numeric.CheckVariables(expr, variable); err != nil {
		return nil, err
	}
	source, err := numeric.Format(expr, dialect)
	if err != nil {
		return nil, err
	}
	program, err := e.getProgram(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}
	return &programFunc{program: program, variable: variable}, nil
}

type programFunc struct {
	program  cel.Program
	variable string
}

func (f *programFunc) EvalBulk([]float64) ([]float64, error) {
	return nil, fmt.Errorf("%w: CEL programs take a single double", numeric.ErrTypeIncompatible)
}

func (f *programFunc) Eval(x float64) (float64, error) {
	out, _, err := f.program.Eval(map[string]interface{}{f.variable: x})
	if err != nil {
		return math.NaN(), fmt.Errorf("evaluation failed: %w", err)
	}
	return toFloat(out)
}

func toFloat(out ref.Val) (float64, error) {
	switch v := out.Value().(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	}
	return math.NaN(), fmt.Errorf("expression returned %s, not a number", out.Type().TypeName())
}

// getProgram gets a compiled program from cache or compiles it
func (e *Evaluator) getProgram(expression string) (cel.Program, error) {
	// Check cache first (read lock)
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return program, nil
	}
	e.mu.RUnlock()

	// Compile the expression (write lock)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine compiled it
	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("parse error: %w", issues.Err())
	}
	if got := ast.OutputType().String(); got != cel.DoubleType.String() {
		return nil, fmt.Errorf("expression yields %s, want double", got)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program generation error: %w", err)
	}

	e.cache[expression] = program

	return program, nil
}

// CacheSize returns the number of cached programs, reported by the health
// endpoint
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
