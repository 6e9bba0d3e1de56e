package numeric

import (
	"errors"
	"fmt"

	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

var (
	// ErrTypeIncompatible means a compiled function cannot accept a
	// sequence argument and must be called once per point.
	ErrTypeIncompatible = errors.New("function does not accept a sequence argument")

	// ErrUnboundSymbol means the expression has a free symbol other than
	// the sampled variable.
	ErrUnboundSymbol = errors.New("unbound symbol")
)

// Func is a compiled numeric function of one variable.
type Func interface {
	// EvalBulk evaluates the function at every x.
	EvalBulk(xs []float64) ([]float64, error)

	// Eval evaluates the function at a single x.
	Eval(x float64) (float64, error)
}

// Backend compiles symbolic expressions.
type Backend interface {
	Name() string
	Compile(expr symbolic.Expr, variable string) (Func, error)
}

// scalarOnly lists functions whose kernels take scalars only.
var scalarOnly = map[string]bool{
	"gamma":     true,
	"factorial": true,
	"digamma":   true,
	"beta":      true,
	"Min":       true,
	"Max":       true,
}

// IsScalarOnly reports whether the named function cannot be applied to a
// sequence.
func IsScalarOnly(name string) bool {
	return scalarOnly[name]
}

// CheckVariables fails when expr has a free symbol other than variable.
func CheckVariables(expr symbolic.Expr, variable string) error {
	for _, name := range symbolic.FreeSymbols(expr) {
		if name != variable {
			return fmt.Errorf("%w: %s (only %s may be free)", ErrUnboundSymbol, name, variable)
		}
	}
	return nil
}
