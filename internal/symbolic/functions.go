package symbolic

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"gonum.org/v1/gonum/mathext"
)

// ErrUnknownFunction is returned for calls to names outside the registry.
var ErrUnknownFunction = errors.New("unknown function")

// ErrArity is returned when a function is called with the wrong number of
// arguments.
var ErrArity = errors.New("wrong number of arguments")

// Largest n for which factorial(n) is evaluated exactly.
const maxExactFactorial = 1000

type parity int

const (
	noParity parity = iota
	oddFunc
	evenFunc
)

type funcSpec struct {
	arity  int
	kernel func(args ...float64) float64
	parity parity
	// exact returns a simplified value for exact arguments, or nil.
	exact func(args []Expr) Expr
}

func unary(f func(float64) float64) func(...float64) float64 {
	return func(args ...float64) float64 { return f(args[0]) }
}

func binary(f func(float64, float64) float64) func(...float64) float64 {
	return func(args ...float64) float64 { return f(args[0], args[1]) }
}

// functions and rewrites are filled in init: their entries construct
// expressions, and the constructors look names up in these maps.
var (
	functions map[string]funcSpec
	rewrites  map[string]rewrite
)

func init() {
	functions = map[string]funcSpec{
		"sin":       {arity: 1, kernel: unary(math.Sin), parity: oddFunc, exact: exactSin},
		"cos":       {arity: 1, kernel: unary(math.Cos), parity: evenFunc, exact: exactCos},
		"tan":       {arity: 1, kernel: unary(math.Tan), parity: oddFunc, exact: exactTan},
		"cot":       {arity: 1, kernel: unary(func(x float64) float64 { return 1 / math.Tan(x) }), parity: oddFunc},
		"sec":       {arity: 1, kernel: unary(func(x float64) float64 { return 1 / math.Cos(x) }), parity: evenFunc},
		"csc":       {arity: 1, kernel: unary(func(x float64) float64 { return 1 / math.Sin(x) }), parity: oddFunc},
		"asin":      {arity: 1, kernel: unary(math.Asin), parity: oddFunc, exact: zeroAtZero},
		"acos":      {arity: 1, kernel: unary(math.Acos)},
		"atan":      {arity: 1, kernel: unary(math.Atan), parity: oddFunc, exact: zeroAtZero},
		"sinh":      {arity: 1, kernel: unary(math.Sinh), parity: oddFunc, exact: zeroAtZero},
		"cosh":      {arity: 1, kernel: unary(math.Cosh), parity: evenFunc, exact: oneAtZero},
		"tanh":      {arity: 1, kernel: unary(math.Tanh), parity: oddFunc, exact: zeroAtZero},
		"asinh":     {arity: 1, kernel: unary(math.Asinh), parity: oddFunc, exact: zeroAtZero},
		"acosh":     {arity: 1, kernel: unary(math.Acosh)},
		"atanh":     {arity: 1, kernel: unary(math.Atanh), parity: oddFunc, exact: zeroAtZero},
		"atan2":     {arity: 2, kernel: binary(math.Atan2)},
		"exp":       {arity: 1, kernel: unary(math.Exp), exact: exactExp},
		"log":       {arity: 1, kernel: unary(math.Log), exact: exactLog},
		"Abs":       {arity: 1, kernel: unary(math.Abs), parity: evenFunc, exact: exactAbs},
		"sign":      {arity: 1, kernel: unary(signum), exact: exactSign},
		"floor":     {arity: 1, kernel: unary(math.Floor), exact: exactRound(math.Floor, (*big.Int).Div)},
		"ceiling":   {arity: 1, kernel: unary(math.Ceil), exact: exactRound(math.Ceil, ceilDiv)},
		"gamma":     {arity: 1, kernel: unary(math.Gamma), exact: exactGamma},
		"factorial": {arity: 1, kernel: unary(func(x float64) float64 { return math.Gamma(x + 1) }), exact: exactFactorial},
		"erf":       {arity: 1, kernel: unary(math.Erf), parity: oddFunc, exact: zeroAtZero},
		"digamma":   {arity: 1, kernel: unary(mathext.Digamma)},
		"beta":      {arity: 2, kernel: binary(mathext.Beta)},
		"Min":       {arity: 2, kernel: binary(math.Min)},
		"Max":       {arity: 2, kernel: binary(math.Max)},
	}
	rewrites = map[string]rewrite{
		"sqrt": {1, 1, func(a []Expr) Expr { return NewPow(a[0], half) }},
		"cbrt": {1, 1, func(a []Expr) Expr { return NewPow(a[0], Rat(1, 3)) }},
		"log": {2, 2, func(a []Expr) Expr {
			return Div(mustFunc("log", a[0]), mustFunc("log", a[1]))
		}},
	}
}

// aliases map accepted spellings onto canonical names.
var aliases = map[string]string{
	"ln":      "log",
	"abs":     "Abs",
	"ceil":    "ceiling",
	"min":     "Min",
	"max":     "Max",
	"arcsin":  "asin",
	"arccos":  "acos",
	"arctan":  "atan",
	"arctan2": "atan2",
}

// rewrite is an accepted name that does not survive as a function node.
type rewrite struct {
	minArgs, maxArgs int
	build            func(args []Expr) Expr
}

// IsFunction reports whether name is an accepted function name.
func IsFunction(name string) bool {
	if _, ok := aliases[name]; ok {
		return true
	}
	if _, ok := rewrites[name]; ok {
		return true
	}
	_, ok := functions[name]
	return ok
}

// FunctionNames returns the canonical names of the function nodes that may
// appear in a simplified expression, sorted.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionArity returns the number of arguments a canonical function takes.
func FunctionArity(name string) (int, error) {
	spec, ok := functions[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return spec.arity, nil
}

// Kernel returns the float64 implementation of a canonical function.
func Kernel(name string) (func(args ...float64) float64, error) {
	spec, ok := functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return spec.kernel, nil
}

// NewFunc applies the named function to args and simplifies the result.
func NewFunc(name string, args ...Expr) (Expr, error) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	if rw, ok := rewrites[name]; ok && len(args) >= rw.minArgs && len(args) <= rw.maxArgs {
		return rw.build(args), nil
	}
	spec, ok := functions[name]
	if !ok {
		if _, isRewrite := rewrites[name]; isRewrite {
			return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArity, name, rewrites[name].minArgs, len(args))
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if len(args) != spec.arity {
		return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArity, name, spec.arity, len(args))
	}
	return simplifyFunc(name, spec, args), nil
}

func mustFunc(name string, args ...Expr) Expr {
	e, err := NewFunc(name, args...)
	if err != nil {
		panic(err)
	}
	return e
}

func simplifyFunc(name string, spec funcSpec, args []Expr) Expr {
	for _, a := range args {
		if isNaN(a) {
			return NaN
		}
	}
	if spec.exact != nil {
		if v := spec.exact(args); v != nil {
			return v
		}
	}
	if spec.arity == 1 && spec.parity != noParity {
		if c, rest := splitCoeff(args[0]); numberSign(c) < 0 && !isNumber(args[0]) {
			positive := NewMul(mulNumbers(c, minusOne), rest)
			inner := simplifyFunc(name, spec, []Expr{positive})
			if spec.parity == evenFunc {
				return inner
			}
			return Neg(inner)
		}
	}
	if v := evalInexact(spec, args); v != nil {
		return v
	}
	return &Func{name: name, args: append([]Expr(nil), args...)}
}

// evalInexact evaluates a function of numbers when at least one of them is
// a float. Results outside the reals leave the call unevaluated.
func evalInexact(spec funcSpec, args []Expr) Expr {
	anyFloat := false
	values := make([]float64, len(args))
	for i, a := range args {
		n, ok := a.(*Num)
		if !ok {
			return nil
		}
		anyFloat = anyFloat || n.float
		values[i] = n.Float64()
	}
	if !anyFloat {
		return nil
	}
	r := spec.kernel(values...)
	if math.IsNaN(r) {
		return nil
	}
	return Float(r)
}

func signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	case x == 0:
		return 0
	}
	return math.NaN()
}

// ============================================================
// Exact special values
// ============================================================

// piMultiple returns k when e == k*pi for a rational k.
func piMultiple(e Expr) (*big.Rat, bool) {
	if isZero(e) {
		return new(big.Rat), true
	}
	if e == Pi {
		return big.NewRat(1, 1), true
	}
	m, ok := e.(*Mul)
	if !ok || len(m.factors) != 2 || m.factors[1] != Pi {
		return nil, false
	}
	n, ok := m.factors[0].(*Num)
	if !ok || n.float {
		return nil, false
	}
	return n.rat, true
}

// sinPi returns sin(k*pi) when k is a multiple of 1/6 or 1/4, or nil.
func sinPi(k *big.Rat) Expr {
	// reduce k to [0, 2), then to [0, 1/2] tracking the sign
	turns := new(big.Int).Div(k.Num(), new(big.Int).Lsh(k.Denom(), 1))
	t := new(big.Rat).Sub(k, new(big.Rat).SetInt(turns.Lsh(turns, 1)))
	neg := false
	if t.Cmp(big.NewRat(1, 1)) >= 0 {
		neg = true
		t.Sub(t, big.NewRat(1, 1))
	}
	if t.Cmp(half.rat) > 0 {
		t.Sub(big.NewRat(1, 1), t)
	}
	var v Expr
	switch {
	case t.Sign() == 0:
		return zero
	case t.Cmp(big.NewRat(1, 6)) == 0:
		v = half
	case t.Cmp(big.NewRat(1, 4)) == 0:
		v = NewMul(half, NewPow(Int(2), half))
	case t.Cmp(big.NewRat(1, 3)) == 0:
		v = NewMul(half, NewPow(Int(3), half))
	case t.Cmp(half.rat) == 0:
		v = one
	default:
		return nil
	}
	if neg {
		return Neg(v)
	}
	return v
}

func exactSin(args []Expr) Expr {
	k, ok := piMultiple(args[0])
	if !ok {
		return nil
	}
	return sinPi(k)
}

func exactCos(args []Expr) Expr {
	k, ok := piMultiple(args[0])
	if !ok {
		return nil
	}
	return sinPi(new(big.Rat).Add(k, half.rat))
}

func exactTan(args []Expr) Expr {
	k, ok := piMultiple(args[0])
	if !ok {
		return nil
	}
	sin, cos := sinPi(k), sinPi(new(big.Rat).Add(k, half.rat))
	if sin == nil || cos == nil {
		return nil
	}
	if isZero(cos) {
		return ComplexInfinity
	}
	return Div(sin, cos)
}

func zeroAtZero(args []Expr) Expr {
	if n, ok := args[0].(*Num); ok && !n.float && n.isZero() {
		return zero
	}
	return nil
}

func oneAtZero(args []Expr) Expr {
	if n, ok := args[0].(*Num); ok && !n.float && n.isZero() {
		return one
	}
	return nil
}

func exactExp(args []Expr) Expr {
	switch a := args[0].(type) {
	case *Num:
		if !a.float && a.isZero() {
			return one
		}
		if a.isExactOne() {
			return E
		}
	case *Special:
		switch a.kind {
		case KindInfinity:
			return Infinity
		case KindNegInfinity:
			return zero
		}
		return NaN
	case *Func:
		// exp(log(x)) is x on the whole domain of log.
		if a.name == "log" {
			return a.args[0]
		}
	}
	return nil
}

func exactLog(args []Expr) Expr {
	switch a := args[0].(type) {
	case *Num:
		switch {
		case a.isZero():
			return ComplexInfinity
		case a.isExactOne():
			return zero
		}
	case *Const:
		if a == E {
			return one
		}
	case *Special:
		if a.kind == KindInfinity {
			return Infinity
		}
		return nil
	}
	// log(exp(x)) stays as written: it equals x only for real x.
	return nil
}

func exactAbs(args []Expr) Expr {
	switch a := args[0].(type) {
	case *Num:
		if a.float {
			return Float(math.Abs(a.f))
		}
		return ratNum(new(big.Rat).Abs(a.rat))
	case *Special:
		if a.kind == KindNaN {
			return NaN
		}
		return Infinity
	case *Const:
		return a
	}
	return nil
}

func exactSign(args []Expr) Expr {
	switch a := args[0].(type) {
	case *Num:
		return Int(int64(a.Sign()))
	case *Const:
		return one
	}
	return nil
}

func ceilDiv(z, x, y *big.Int) *big.Int {
	// ceil(x/y) = -floor(-x/y)
	nx := new(big.Int).Neg(x)
	z.Div(nx, y)
	return z.Neg(z)
}

func exactRound(f func(float64) float64, div func(z, x, y *big.Int) *big.Int) func([]Expr) Expr {
	return func(args []Expr) Expr {
		switch a := args[0].(type) {
		case *Num:
			if a.float {
				return Float(f(a.f))
			}
			q := div(new(big.Int), a.rat.Num(), a.rat.Denom())
			return ratNum(new(big.Rat).SetInt(q))
		case *Const:
			return Int(int64(f(a.value)))
		}
		return nil
	}
}

func exactFactorial(args []Expr) Expr {
	n, ok := args[0].(*Num)
	if !ok || !n.IsInt() {
		return nil
	}
	k, ok := n.int64()
	switch {
	case !ok:
		return nil
	case k < 0:
		return ComplexInfinity
	case k > maxExactFactorial:
		return nil
	}
	r := new(big.Int).MulRange(1, k)
	if k == 0 {
		r.SetInt64(1)
	}
	return ratNum(new(big.Rat).SetInt(r))
}

func exactGamma(args []Expr) Expr {
	n, ok := args[0].(*Num)
	if !ok || !n.IsInt() {
		return nil
	}
	if n.Sign() <= 0 {
		return ComplexInfinity
	}
	return exactFactorial([]Expr{NewAdd(n, minusOne)})
}
