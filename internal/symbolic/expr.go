package symbolic

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Expr is an immutable symbolic expression.
type Expr interface {
	// String returns the expression in the calculator's output syntax.
	String() string

	// key returns a canonical structural encoding used for ordering and
	// for recognising like terms.
	key() string
}

// Equal reports whether two expressions are structurally identical.
func Equal(a, b Expr) bool {
	return a.key() == b.key()
}

func sortByKey(exprs []Expr) {
	sort.SliceStable(exprs, func(i, j int) bool {
		return exprs[i].key() < exprs[j].key()
	})
}

// ============================================================
// Num: exact rational or floating number
// ============================================================

// Num is a finite number. Exact numbers carry a big.Rat; inexact numbers a
// float64.
type Num struct {
	rat   *big.Rat
	f     float64
	float bool
}

var (
	zero     = Int(0)
	one      = Int(1)
	minusOne = Int(-1)
	half     = Rat(1, 2)
)

// Int returns the exact integer n.
func Int(n int64) *Num { return &Num{rat: new(big.Rat).SetInt64(n)} }

// Rat returns the exact fraction p/q. q must not be zero.
func Rat(p, q int64) *Num { return &Num{rat: big.NewRat(p, q)} }

func ratNum(r *big.Rat) *Num { return &Num{rat: r} }

// Float returns an inexact number. Non-finite values map to oo, -oo and nan.
func Float(f float64) Expr {
	switch {
	case math.IsNaN(f):
		return NaN
	case math.IsInf(f, 1):
		return Infinity
	case math.IsInf(f, -1):
		return NegInfinity
	}
	return &Num{f: f, float: true}
}

// IsFloat reports whether n is inexact.
func (n *Num) IsFloat() bool { return n.float }

// Float64 returns the value of n as a float64.
func (n *Num) Float64() float64 {
	if n.float {
		return n.f
	}
	f, _ := n.rat.Float64()
	return f
}

// Sign returns -1, 0 or +1.
func (n *Num) Sign() int {
	if n.float {
		switch {
		case n.f < 0:
			return -1
		case n.f > 0:
			return 1
		}
		return 0
	}
	return n.rat.Sign()
}

// IsInt reports whether n is an exact integer.
func (n *Num) IsInt() bool { return !n.float && n.rat.IsInt() }

func (n *Num) isZero() bool { return n.Sign() == 0 }

func (n *Num) isExactOne() bool { return !n.float && n.rat.Cmp(one.rat) == 0 }

func (n *Num) isExact(p, q int64) bool { return !n.float && n.rat.Cmp(big.NewRat(p, q)) == 0 }

// int64 returns the value of an exact integer that fits in an int64.
func (n *Num) int64() (int64, bool) {
	if !n.IsInt() || !n.rat.Num().IsInt64() {
		return 0, false
	}
	return n.rat.Num().Int64(), true
}

func (n *Num) key() string {
	if n.float {
		return "f:" + strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return "n:" + n.rat.RatString()
}

func (n *Num) String() string {
	if !n.float {
		return n.rat.RatString()
	}
	s := strconv.FormatFloat(n.f, 'g', 15, 64)
	if strings.ContainsAny(s, "e") {
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ============================================================
// Special: infinities and nan
// ============================================================

// SpecialKind enumerates the non-finite values.
type SpecialKind int

const (
	KindInfinity SpecialKind = iota
	KindNegInfinity
	KindComplexInfinity
	KindNaN
)

// Special is a non-finite value.
type Special struct{ kind SpecialKind }

var (
	Infinity        = &Special{kind: KindInfinity}
	NegInfinity     = &Special{kind: KindNegInfinity}
	ComplexInfinity = &Special{kind: KindComplexInfinity}
	NaN             = &Special{kind: KindNaN}
)

// Kind returns the kind of the value.
func (s *Special) Kind() SpecialKind { return s.kind }

// Float64 returns the numeric value used when sampling. Complex infinity has
// no real value and samples as NaN.
func (s *Special) Float64() float64 {
	switch s.kind {
	case KindInfinity:
		return math.Inf(1)
	case KindNegInfinity:
		return math.Inf(-1)
	}
	return math.NaN()
}

func (s *Special) key() string { return "s:" + s.String() }

func (s *Special) String() string {
	switch s.kind {
	case KindInfinity:
		return "oo"
	case KindNegInfinity:
		return "-oo"
	case KindComplexInfinity:
		return "zoo"
	}
	return "nan"
}

// ============================================================
// Const: named mathematical constants
// ============================================================

// Const is a named real constant.
type Const struct {
	name  string
	value float64
}

var (
	Pi = &Const{name: "pi", value: math.Pi}
	E  = &Const{name: "E", value: math.E}
)

// Name returns the printed name of the constant.
func (c *Const) Name() string { return c.name }

// Float64 returns the value of the constant.
func (c *Const) Float64() float64 { return c.value }

func (c *Const) key() string    { return "c:" + c.name }
func (c *Const) String() string { return c.name }

// ============================================================
// Sym: free symbol
// ============================================================

// Sym is a free symbol such as x.
type Sym struct{ name string }

// Symbol returns the symbol with the given name.
func Symbol(name string) *Sym { return &Sym{name: name} }

// Name returns the symbol name.
func (s *Sym) Name() string { return s.name }

func (s *Sym) key() string    { return "v:" + s.name }
func (s *Sym) String() string { return s.name }

// ============================================================
// Add, Mul, Pow, Func: compound nodes
// ============================================================

// Add is a sum of at least two terms. At most one term is a number and
// like terms are already collected.
type Add struct{ terms []Expr }

// Terms returns a copy of the summands.
func (a *Add) Terms() []Expr { return append([]Expr(nil), a.terms...) }

func (a *Add) key() string { return "+(" + joinKeys(a.terms) + ")" }

// Mul is a product of at least two factors. A numeric coefficient, when
// present, is the first factor; like bases are already combined.
type Mul struct{ factors []Expr }

// Factors returns a copy of the factors.
func (m *Mul) Factors() []Expr { return append([]Expr(nil), m.factors...) }

func (m *Mul) key() string { return "*(" + joinKeys(m.factors) + ")" }

// Pow is base**exp.
type Pow struct{ base, exp Expr }

// Base returns the base of the power.
func (p *Pow) Base() Expr { return p.base }

// Exp returns the exponent of the power.
func (p *Pow) Exp() Expr { return p.exp }

func (p *Pow) key() string { return "^(" + p.base.key() + "," + p.exp.key() + ")" }

// Func is the application of a named function.
type Func struct {
	name string
	args []Expr
}

// Name returns the canonical function name.
func (f *Func) Name() string { return f.name }

// Args returns a copy of the arguments.
func (f *Func) Args() []Expr { return append([]Expr(nil), f.args...) }

func (f *Func) key() string { return "f:" + f.name + "(" + joinKeys(f.args) + ")" }

func joinKeys(exprs []Expr) string {
	keys := make([]string, len(exprs))
	for i, e := range exprs {
		keys[i] = e.key()
	}
	return strings.Join(keys, ",")
}

// isNumber reports whether e is a Num or a Special.
func isNumber(e Expr) bool {
	switch e.(type) {
	case *Num, *Special:
		return true
	}
	return false
}

// IsNumber reports whether the expression is a plain number, finite or not.
func IsNumber(e Expr) bool { return isNumber(e) }

func isZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.isZero()
}

func isExactOne(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.isExactOne()
}

func isNaN(e Expr) bool {
	s, ok := e.(*Special)
	return ok && s.kind == KindNaN
}
