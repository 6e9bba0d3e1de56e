// Package cel provides a numeric backend built on CEL (Common Expression Language).
//
// Expressions are translated to CEL source over a single double variable.
// Every calculator function is declared as a CEL overload on doubles, and
// powers are written as pow(base, exp). Compiled programs are cached by
// source text.
//
// Example usage:
//
//	evaluator := cel.NewEvaluator("x")
//
//	expr, _ := symbolic.Parse("x**2 + sin(x)")
//	f, err := evaluator.Compile(expr, "x") // pow(x, 2.0) + sin(x)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	y, err := f.Eval(1.5)
//
// Programs yielding anything but a double are rejected at compile time.
// CacheSize reports the number of cached programs.
//
// As a numeric.Backend the evaluator is scalar-only: EvalBulk always
// reports numeric.ErrTypeIncompatible so sampling goes point by point.
package cel
