package symbolic

import (
	"math"
	"math/big"
)

// Exact integer powers larger than this many result bits stay unevaluated.
const maxExactPowBits = 1 << 16

// Trial divisors tried when pulling perfect powers out of a root.
const maxRootFactor = 1 << 12

// ============================================================
// Numeric folding
// ============================================================

func addNumbers(a, b Expr) Expr {
	if isNaN(a) || isNaN(b) {
		return NaN
	}
	sa, aSpecial := a.(*Special)
	sb, bSpecial := b.(*Special)
	switch {
	case aSpecial && bSpecial:
		if sa.kind == sb.kind && sa.kind != KindComplexInfinity {
			return sa
		}
		return NaN
	case aSpecial:
		return sa
	case bSpecial:
		return sb
	}
	na, nb := a.(*Num), b.(*Num)
	if na.float || nb.float {
		return Float(na.Float64() + nb.Float64())
	}
	return ratNum(new(big.Rat).Add(na.rat, nb.rat))
}

func mulNumbers(a, b Expr) Expr {
	if isNaN(a) || isNaN(b) {
		return NaN
	}
	sa, aSpecial := a.(*Special)
	sb, bSpecial := b.(*Special)
	if aSpecial || bSpecial {
		if isZero(a) || isZero(b) {
			return NaN
		}
		if sa != nil && sa.kind == KindComplexInfinity || sb != nil && sb.kind == KindComplexInfinity {
			return ComplexInfinity
		}
		return signedInfinity(numberSign(a) * numberSign(b))
	}
	na, nb := a.(*Num), b.(*Num)
	if na.float || nb.float {
		return Float(na.Float64() * nb.Float64())
	}
	return ratNum(new(big.Rat).Mul(na.rat, nb.rat))
}

func numberSign(e Expr) int {
	switch v := e.(type) {
	case *Num:
		return v.Sign()
	case *Special:
		if v.kind == KindNegInfinity {
			return -1
		}
	}
	return 1
}

func signedInfinity(sign int) Expr {
	if sign < 0 {
		return NegInfinity
	}
	return Infinity
}

func powNumbers(b, e Expr) Expr {
	sb, bSpecial := b.(*Special)
	se, eSpecial := e.(*Special)
	if eSpecial {
		if se.kind == KindNaN || se.kind == KindComplexInfinity {
			return NaN
		}
		nb, ok := b.(*Num)
		if !ok {
			return NaN
		}
		mag := math.Abs(nb.Float64())
		switch {
		case mag > 1 && se.kind == KindInfinity, mag < 1 && se.kind == KindNegInfinity:
			if nb.Sign() < 0 {
				return ComplexInfinity
			}
			return Infinity
		case mag < 1, mag > 1:
			return zero
		}
		return NaN
	}
	ne := e.(*Num)
	if bSpecial {
		switch {
		case sb.kind == KindNaN:
			return NaN
		case ne.Sign() < 0:
			return zero
		case sb.kind == KindComplexInfinity:
			return ComplexInfinity
		case sb.kind == KindNegInfinity:
			if k, ok := ne.int64(); ok && k%2 == 0 {
				return Infinity
			} else if ok {
				return NegInfinity
			}
			return ComplexInfinity
		}
		return Infinity
	}
	nb := b.(*Num)
	if nb.float || ne.float {
		if nb.isZero() && ne.Sign() < 0 {
			return ComplexInfinity
		}
		r := math.Pow(nb.Float64(), ne.Float64())
		if math.IsNaN(r) {
			return &Pow{base: nb, exp: ne}
		}
		return Float(r)
	}
	if nb.isZero() {
		if ne.Sign() < 0 {
			return ComplexInfinity
		}
		return zero
	}
	if ne.IsInt() {
		if r, ok := ratPowInt(nb.rat, ne.rat.Num()); ok {
			return ratNum(r)
		}
		return &Pow{base: nb, exp: ne}
	}
	// Rational exponent p/q: evaluate only perfect roots of positive bases.
	if nb.Sign() > 0 {
		q := ne.rat.Denom()
		if q.IsInt64() && q.Int64() <= 64 {
			num, okNum := intRoot(nb.rat.Num(), q.Int64())
			den, okDen := intRoot(nb.rat.Denom(), q.Int64())
			if okNum && okDen {
				root := new(big.Rat).SetFrac(num, den)
				if r, ok := ratPowInt(root, ne.rat.Num()); ok {
					return ratNum(r)
				}
			}
			if nb.IsInt() {
				if v := extractRoot(nb.rat.Num(), ne.rat); v != nil {
					return v
				}
			}
		}
	}
	return &Pow{base: nb, exp: ne}
}

// extractRoot rewrites n**(p/q) as c*m**(r/q) with 0 < r < q and m free of
// q-th powers, so sqrt(8) becomes 2*sqrt(2). It returns nil when c is 1.
func extractRoot(n *big.Int, e *big.Rat) Expr {
	if !e.Num().IsInt64() || !e.Denom().IsInt64() {
		return nil
	}
	p, q := e.Num().Int64(), e.Denom().Int64()
	whole := p / q
	if p%q != 0 && p < 0 {
		whole--
	}
	r := p - whole*q

	m := new(big.Int).Set(n)
	k := big.NewInt(1)
	exp := big.NewInt(q)
	rem := new(big.Int)
	for d := int64(2); ; d++ {
		dq := new(big.Int).Exp(big.NewInt(d), exp, nil)
		if dq.Cmp(m) > 0 || d > maxRootFactor {
			break
		}
		for {
			quo, _ := new(big.Int).QuoRem(m, dq, rem)
			if rem.Sign() != 0 {
				break
			}
			m = quo
			k.Mul(k, big.NewInt(d))
		}
	}
	if whole == 0 && k.Cmp(big.NewInt(1)) == 0 {
		return nil
	}

	c, ok := ratPowInt(new(big.Rat).SetInt(n), big.NewInt(whole))
	if !ok {
		return nil
	}
	c.Mul(c, new(big.Rat).SetInt(new(big.Int).Exp(k, big.NewInt(r), nil)))
	if m.Cmp(big.NewInt(1)) == 0 {
		return ratNum(c)
	}
	return NewMul(ratNum(c), &Pow{base: ratNum(new(big.Rat).SetInt(m)), exp: Rat(r, q)})
}

func ratPowInt(r *big.Rat, n *big.Int) (*big.Rat, bool) {
	if !n.IsInt64() {
		return nil, false
	}
	k := n.Int64()
	neg := k < 0
	if neg {
		k = -k
	}
	bits := int64(r.Num().BitLen() + r.Denom().BitLen())
	if bits*k > maxExactPowBits {
		return nil, false
	}
	exp := big.NewInt(k)
	num := new(big.Int).Exp(r.Num(), exp, nil)
	den := new(big.Int).Exp(r.Denom(), exp, nil)
	if neg {
		num, den = den, num
	}
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	return new(big.Rat).SetFrac(num, den), true
}

// intRoot returns the exact q-th root of a non-negative integer.
func intRoot(n *big.Int, q int64) (*big.Int, bool) {
	if n.Sign() < 0 {
		return nil, false
	}
	if q == 2 {
		r := new(big.Int).Sqrt(n)
		return r, new(big.Int).Mul(r, r).Cmp(n) == 0
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	if math.IsInf(f, 0) {
		return nil, false
	}
	guess := int64(math.Round(math.Pow(f, 1/float64(q))))
	exp := big.NewInt(q)
	for c := guess - 1; c <= guess+1; c++ {
		if c < 0 {
			continue
		}
		r := big.NewInt(c)
		if new(big.Int).Exp(r, exp, nil).Cmp(n) == 0 {
			return r, true
		}
	}
	return nil, false
}

// ============================================================
// Add
// ============================================================

type termGroup struct {
	coeff Expr
	rest  Expr
}

// NewAdd returns the simplified sum of the terms.
func NewAdd(terms ...Expr) Expr {
	var flat []Expr
	for _, t := range terms {
		if a, ok := t.(*Add); ok {
			flat = append(flat, a.terms...)
			continue
		}
		flat = append(flat, t)
	}

	var constant Expr = zero
	var order []string
	groups := make(map[string]*termGroup)
	for _, t := range flat {
		if isNumber(t) {
			constant = addNumbers(constant, t)
			continue
		}
		c, rest := splitCoeff(t)
		k := rest.key()
		if g, ok := groups[k]; ok {
			g.coeff = addNumbers(g.coeff, c)
			continue
		}
		groups[k] = &termGroup{coeff: c, rest: rest}
		order = append(order, k)
	}
	if isNaN(constant) {
		return NaN
	}

	var out []Expr
	for _, k := range order {
		g := groups[k]
		if isZero(g.coeff) {
			continue
		}
		out = append(out, NewMul(g.coeff, g.rest))
	}
	if !isZero(constant) || (len(out) == 0 && constant.(*Num).float) {
		out = append(out, constant)
	}

	switch len(out) {
	case 0:
		return zero
	case 1:
		return out[0]
	}
	sortByKey(out)
	return &Add{terms: out}
}

// splitCoeff splits a term into its numeric coefficient and the rest.
func splitCoeff(e Expr) (Expr, Expr) {
	m, ok := e.(*Mul)
	if !ok || !isNumber(m.factors[0]) {
		return one, e
	}
	rest := m.factors[1:]
	if len(rest) == 1 {
		return m.factors[0], rest[0]
	}
	return m.factors[0], &Mul{factors: append([]Expr(nil), rest...)}
}

// ============================================================
// Mul
// ============================================================

type powGroup struct {
	base Expr
	exp  Expr
}

// NewMul returns the simplified product of the factors.
func NewMul(factors ...Expr) Expr {
	var flat []Expr
	for _, f := range factors {
		if m, ok := f.(*Mul); ok {
			flat = append(flat, m.factors...)
			continue
		}
		flat = append(flat, f)
	}

	var coeff Expr = one
	var order []string
	groups := make(map[string]*powGroup)
	for _, f := range flat {
		if isNumber(f) {
			coeff = mulNumbers(coeff, f)
			continue
		}
		base, exp := splitPow(f)
		k := base.key()
		if g, ok := groups[k]; ok {
			g.exp = NewAdd(g.exp, exp)
			continue
		}
		groups[k] = &powGroup{base: base, exp: exp}
		order = append(order, k)
	}
	if isNaN(coeff) {
		return NaN
	}
	if isZero(coeff) {
		return coeff
	}

	var out []Expr
	redistributed := false
	for _, k := range order {
		g := groups[k]
		p := NewPow(g.base, g.exp)
		switch v := p.(type) {
		case *Num, *Special:
			coeff = mulNumbers(coeff, v)
		case *Mul:
			out = append(out, v.factors...)
			redistributed = true
		default:
			out = append(out, p)
		}
	}
	if redistributed {
		return NewMul(append([]Expr{coeff}, out...)...)
	}
	if isNaN(coeff) || isZero(coeff) {
		return coeff
	}

	if len(out) == 0 {
		return coeff
	}
	if isExactOne(coeff) && len(out) == 1 {
		return out[0]
	}
	sortByKey(out)
	if !isExactOne(coeff) {
		out = append([]Expr{coeff}, out...)
	}
	return &Mul{factors: out}
}

// splitPow splits a factor into base and exponent. Numeric bases raised to
// symbolic or fractional powers keep their own group.
func splitPow(e Expr) (Expr, Expr) {
	if p, ok := e.(*Pow); ok {
		return p.base, p.exp
	}
	return e, one
}

// ============================================================
// Pow
// ============================================================

// NewPow returns the simplified power base**exp.
func NewPow(base, exp Expr) Expr {
	if isNaN(base) || isNaN(exp) {
		return NaN
	}
	if n, ok := exp.(*Num); ok {
		if n.isZero() {
			return one
		}
		if n.isExactOne() {
			return base
		}
	}
	if isExactOne(base) {
		return one
	}
	if isNumber(base) && isNumber(exp) {
		return powNumbers(base, exp)
	}
	if bn, ok := base.(*Num); ok && bn.isZero() {
		if en, ok := exp.(*Num); ok {
			if en.Sign() > 0 {
				return zero
			}
			return ComplexInfinity
		}
	}
	if base == E {
		return mustFunc("exp", exp)
	}
	en, intExp := exp.(*Num)
	intExp = intExp && en.IsInt()
	switch b := base.(type) {
	case *Pow:
		if intExp {
			return NewPow(b.base, NewMul(b.exp, exp))
		}
	case *Mul:
		if intExp {
			parts := make([]Expr, len(b.factors))
			for i, f := range b.factors {
				parts[i] = NewPow(f, exp)
			}
			return NewMul(parts...)
		}
	}
	return &Pow{base: base, exp: exp}
}

// ============================================================
// Derived operations
// ============================================================

// Neg returns -e.
func Neg(e Expr) Expr { return NewMul(minusOne, e) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return NewAdd(a, Neg(b)) }

// Div returns a / b.
func Div(a, b Expr) Expr { return NewMul(a, NewPow(b, minusOne)) }
