package symbolic

import (
	"sort"
	"strings"
)

// Binding strength of printed forms, loosest first.
const (
	precAdd = iota*10 + 10
	precMul
	precPow
	precAtom
)

func precedence(e Expr) int {
	switch v := e.(type) {
	case *Add:
		return precAdd
	case *Mul:
		if numberSign(v.factors[0]) < 0 {
			return precAdd
		}
		return precMul
	case *Pow:
		if en, ok := v.exp.(*Num); ok && en.Sign() < 0 {
			if en.isExact(-1, 1) || en.isExact(-1, 2) {
				return precMul
			}
		}
		if en, ok := v.exp.(*Num); ok && en.isExact(1, 2) {
			return precAtom
		}
		return precPow
	case *Num:
		if v.Sign() < 0 {
			return precAdd
		}
		if !v.float && !v.rat.IsInt() {
			return precMul
		}
	case *Special:
		if v.kind == KindNegInfinity {
			return precAdd
		}
	}
	return precAtom
}

func parens(e Expr, min int) string {
	if precedence(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// ============================================================
// Add
// ============================================================

func (a *Add) String() string {
	terms := orderTerms(a.terms)
	var b strings.Builder
	for i, t := range terms {
		if i == 0 {
			b.WriteString(t.String())
			continue
		}
		if isNegativeTerm(t) {
			b.WriteString(" - ")
			b.WriteString(parens(Neg(t), precAdd+1))
			continue
		}
		b.WriteString(" + ")
		b.WriteString(t.String())
	}
	return b.String()
}

// orderTerms sorts summands by descending degree with numbers last. A
// positive constant moves to the front when the leading term is negative,
// so 1 - x prints as such.
func orderTerms(terms []Expr) []Expr {
	out := append([]Expr(nil), terms...)
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := isNumber(out[i]), isNumber(out[j])
		if ni != nj {
			return nj
		}
		di, dj := degree(out[i]), degree(out[j])
		if di != dj {
			return di > dj
		}
		return out[i].key() < out[j].key()
	})
	last := out[len(out)-1]
	if isNegativeTerm(out[0]) && isNumber(last) && !isNegativeTerm(last) {
		out = append([]Expr{last}, out[:len(out)-1]...)
	}
	return out
}

func isNegativeTerm(e Expr) bool {
	switch v := e.(type) {
	case *Num, *Special:
		return numberSign(v) < 0
	case *Mul:
		return isNumber(v.factors[0]) && numberSign(v.factors[0]) < 0
	}
	return false
}

// ============================================================
// Mul
// ============================================================

func (m *Mul) String() string {
	var coeff Expr = one
	rest := m.factors
	if isNumber(m.factors[0]) {
		coeff, rest = m.factors[0], m.factors[1:]
	}
	neg := numberSign(coeff) < 0
	if neg {
		coeff = mulNumbers(coeff, minusOne)
	}

	var num, den []string
	switch c := coeff.(type) {
	case *Num:
		switch {
		case c.float:
			num = append(num, c.String())
		default:
			if p := c.rat.Num(); !p.IsInt64() || p.Int64() != 1 {
				num = append(num, p.String())
			}
			if q := c.rat.Denom(); !q.IsInt64() || q.Int64() != 1 {
				den = append(den, q.String())
			}
		}
	case *Special:
		num = append(num, c.String())
	}

	var denExprs []Expr
	for _, f := range rest {
		if p, ok := f.(*Pow); ok {
			if en, ok := p.exp.(*Num); ok && en.Sign() < 0 {
				denExprs = append(denExprs, NewPow(p.base, mulNumbers(en, minusOne)))
				continue
			}
		}
		num = append(num, parens(f, precMul))
	}
	for _, d := range denExprs {
		den = append(den, parens(d, precMul))
	}

	s := "1"
	if len(num) > 0 {
		s = strings.Join(num, "*")
	}
	switch {
	case len(den) == 1 && len(denExprs) == 1:
		s += "/" + parens(denExprs[0], precPow)
	case len(den) == 1:
		s += "/" + den[0]
	case len(den) > 1:
		s += "/(" + strings.Join(den, "*") + ")"
	}
	if neg {
		s = "-" + s
	}
	return s
}

// ============================================================
// Pow, Func
// ============================================================

func (p *Pow) String() string {
	if en, ok := p.exp.(*Num); ok {
		switch {
		case en.isExact(1, 2):
			return "sqrt(" + p.base.String() + ")"
		case en.isExact(-1, 2):
			return "1/sqrt(" + p.base.String() + ")"
		case en.isExact(-1, 1):
			return "1/" + parens(p.base, precPow)
		}
	}
	return parens(p.base, precAtom) + "**" + parens(p.exp, precAtom)
}

func (f *Func) String() string {
	args := make([]string, len(f.args))
	for i, a := range f.args {
		args[i] = a.String()
	}
	return f.name + "(" + strings.Join(args, ", ") + ")"
}
