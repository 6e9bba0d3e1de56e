package numeric

import (
	"fmt"
	"math"

	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

// Native compiles expressions into Go closures. It is the only backend that
// evaluates sequences in bulk.
type Native struct{}

// NewNative creates the native backend.
func NewNative() *Native { return &Native{} }

// Name returns "native".
func (*Native) Name() string { return "native" }

// column is the value of a subexpression over a sequence: either one
// value per point or a single constant.
type column struct {
	values  []float64
	scalar  float64
	varying bool
}

func (c column) at(i int) float64 {
	if c.varying {
		return c.values[i]
	}
	return c.scalar
}

type program struct {
	scalar func(x float64) float64
	bulk   func(xs []float64) (column, error)
}

// Compile builds a function of variable from expr.
func (n *Native) Compile(expr symbolic.Expr, variable string) (Func, error) {
	if err := CheckVariables(expr, variable); err != nil {
		return nil, err
	}
	prog, err := compileNative(expr)
	if err != nil {
		return nil, err
	}
	_, isVar := expr.(*symbolic.Sym)
	return &nativeFunc{prog: prog, identity: isVar}, nil
}

type nativeFunc struct {
	prog     program
	identity bool
}

func (f *nativeFunc) EvalBulk(xs []float64) ([]float64, error) {
	if f.identity {
		return append([]float64(nil), xs...), nil
	}
	c, err := f.prog.bulk(xs)
	if err != nil {
		return nil, err
	}
	if !c.varying {
		return nil, fmt.Errorf("%w: expression is constant", ErrTypeIncompatible)
	}
	return c.values, nil
}

func (f *nativeFunc) Eval(x float64) (float64, error) {
	return f.prog.scalar(x), nil
}

func constantProgram(v float64) program {
	return program{
		scalar: func(float64) float64 { return v },
		bulk: func([]float64) (column, error) {
			return column{scalar: v}, nil
		},
	}
}

func compileNative(e symbolic.Expr) (program, error) {
	switch v := e.(type) {
	case *symbolic.Num:
		return constantProgram(v.Float64()), nil
	case *symbolic.Special:
		return constantProgram(v.Float64()), nil
	case *symbolic.Const:
		return constantProgram(v.Float64()), nil
	case *symbolic.Sym:
		return program{
			scalar: func(x float64) float64 { return x },
			bulk: func(xs []float64) (column, error) {
				return column{values: xs, varying: true}, nil
			},
		}, nil
	case *symbolic.Add:
		return compileReduce(v.Terms(), 0, func(a, b float64) float64 { return a + b })
	case *symbolic.Mul:
		return compileReduce(v.Factors(), 1, func(a, b float64) float64 { return a * b })
	case *symbolic.Pow:
		return compileApply("pow", []symbolic.Expr{v.Base(), v.Exp()},
			func(args ...float64) float64 { return math.Pow(args[0], args[1]) })
	case *symbolic.Func:
		kernel, err := symbolic.Kernel(v.Name())
		if err != nil {
			return program{}, err
		}
		return compileApply(v.Name(), v.Args(), kernel)
	}
	return program{}, fmt.Errorf("cannot compile %T", e)
}

func compileChildren(exprs []symbolic.Expr) ([]program, error) {
	progs := make([]program, len(exprs))
	for i, e := range exprs {
		p, err := compileNative(e)
		if err != nil {
			return nil, err
		}
		progs[i] = p
	}
	return progs, nil
}

func evalChildren(progs []program, xs []float64) ([]column, int, error) {
	cols := make([]column, len(progs))
	n := 0
	for i, p := range progs {
		c, err := p.bulk(xs)
		if err != nil {
			return nil, 0, err
		}
		if c.varying {
			n = len(c.values)
		}
		cols[i] = c
	}
	return cols, n, nil
}

func compileReduce(exprs []symbolic.Expr, identity float64, op func(a, b float64) float64) (program, error) {
	progs, err := compileChildren(exprs)
	if err != nil {
		return program{}, err
	}
	return program{
		scalar: func(x float64) float64 {
			acc := identity
			for _, p := range progs {
				acc = op(acc, p.scalar(x))
			}
			return acc
		},
		bulk: func(xs []float64) (column, error) {
			cols, n, err := evalChildren(progs, xs)
			if err != nil {
				return column{}, err
			}
			acc := identity
			var out []float64
			for _, c := range cols {
				if !c.varying {
					acc = op(acc, c.scalar)
				}
			}
			for _, c := range cols {
				if !c.varying {
					continue
				}
				if out == nil {
					out = make([]float64, n)
					for i := range out {
						out[i] = acc
					}
				}
				for i := range out {
					out[i] = op(out[i], c.values[i])
				}
			}
			if out == nil {
				return column{scalar: acc}, nil
			}
			return column{values: out, varying: true}, nil
		},
	}, nil
}

func compileApply(name string, exprs []symbolic.Expr, kernel func(...float64) float64) (program, error) {
	progs, err := compileChildren(exprs)
	if err != nil {
		return program{}, err
	}
	scalarOnly := IsScalarOnly(name)
	return program{
		scalar: func(x float64) float64 {
			args := make([]float64, len(progs))
			for i, p := range progs {
				args[i] = p.scalar(x)
			}
			return kernel(args...)
		},
		bulk: func(xs []float64) (column, error) {
			cols, n, err := evalChildren(progs, xs)
			if err != nil {
				return column{}, err
			}
			args := make([]float64, len(cols))
			varying := false
			for _, c := range cols {
				varying = varying || c.varying
			}
			if !varying {
				for i, c := range cols {
					args[i] = c.scalar
				}
				return column{scalar: kernel(args...)}, nil
			}
			if scalarOnly {
				return column{}, fmt.Errorf("%w: %s takes scalar arguments", ErrTypeIncompatible, name)
			}
			out := make([]float64, n)
			for i := range out {
				for j, c := range cols {
					args[j] = c.at(i)
				}
				out[i] = kernel(args...)
			}
			return column{values: out, varying: true}, nil
		},
	}, nil
}
