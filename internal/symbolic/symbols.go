package symbolic

import "sort"

// FreeSymbols returns the names of the free symbols in e, sorted.
func FreeSymbols(e Expr) []string {
	seen := make(map[string]struct{})
	collectSymbols(e, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectSymbols(e Expr, seen map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		seen[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, seen)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, seen)
		}
	case *Pow:
		collectSymbols(v.base, seen)
		collectSymbols(v.exp, seen)
	case *Func:
		for _, a := range v.args {
			collectSymbols(a, seen)
		}
	}
}

// IsConstant reports whether e has no free symbols.
func IsConstant(e Expr) bool {
	return len(FreeSymbols(e)) == 0
}

// degree is the total polynomial degree of a term, used to order sums.
// Non-polynomial parts count as degree zero.
func degree(e Expr) float64 {
	switch v := e.(type) {
	case *Sym:
		return 1
	case *Mul:
		var d float64
		for _, f := range v.factors {
			d += degree(f)
		}
		return d
	case *Pow:
		if n, ok := v.exp.(*Num); ok {
			return degree(v.base) * n.Float64()
		}
	case *Add:
		var d float64
		for _, t := range v.terms {
			if td := degree(t); td > d {
				d = td
			}
		}
		return d
	}
	return 0
}
