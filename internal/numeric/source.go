package numeric

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

// Dialect describes how an expression language spells the values that
// have no plain literal form.
type Dialect struct {
	NaN    string
	PosInf string
	NegInf string
	// Rename maps canonical function names to the names registered with
	// the target language. Names not present are used as is.
	Rename map[string]string
}

// Format renders expr as source text in an infix expression language with
// call syntax. Powers are written as pow(base, exp).
func Format(expr symbolic.Expr, d Dialect) (string, error) {
	var b strings.Builder
	if err := format(&b, expr, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

func format(b *strings.Builder, e symbolic.Expr, d Dialect) error {
	switch v := e.(type) {
	case *symbolic.Num:
		b.WriteString(d.literal(v.Float64()))
	case *symbolic.Special:
		b.WriteString(d.literal(v.Float64()))
	case *symbolic.Const:
		b.WriteString(d.literal(v.Float64()))
	case *symbolic.Sym:
		b.WriteString(v.Name())
	case *symbolic.Add:
		return formatJoin(b, v.Terms(), " + ", d)
	case *symbolic.Mul:
		return formatJoin(b, v.Factors(), " * ", d)
	case *symbolic.Pow:
		return formatCall(b, "pow", []symbolic.Expr{v.Base(), v.Exp()}, d)
	case *symbolic.Func:
		name := v.Name()
		if renamed, ok := d.Rename[name]; ok {
			name = renamed
		}
		return formatCall(b, name, v.Args(), d)
	default:
		return fmt.Errorf("cannot format %T", e)
	}
	return nil
}

func formatJoin(b *strings.Builder, exprs []symbolic.Expr, sep string, d Dialect) error {
	b.WriteByte('(')
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(sep)
		}
		if err := format(b, e, d); err != nil {
			return err
		}
	}
	b.WriteByte(')')
	return nil
}

func formatCall(b *strings.Builder, name string, args []symbolic.Expr, d Dialect) error {
	b.WriteString(name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := format(b, a, d); err != nil {
			return err
		}
	}
	b.WriteByte(')')
	return nil
}

func (d Dialect) literal(f float64) string {
	switch {
	case math.IsNaN(f):
		return d.NaN
	case math.IsInf(f, 1):
		return d.PosInf
	case math.IsInf(f, -1):
		return d.NegInf
	}
	s := strconv.FormatFloat(math.Abs(f), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if f < 0 {
		return "(-" + s + ")"
	}
	return s
}
