// Package symbolic implements the expression model used by the calculator.
//
// Expressions are immutable trees of numbers, symbols, constants, sums,
// products, powers and named function applications. Every constructor
// returns an already simplified expression, so a parsed input is always in
// its automatically evaluated form:
//
//	e, err := symbolic.Parse("2+2")
//	// e.String() == "4"
//
//	e, err = symbolic.Parse("x + x + sin(0)")
//	// e.String() == "2*x"
//
// Integer and rational literals use exact arithmetic; once a decimal
// literal takes part in an operation the result is a floating value, the
// way a computer algebra system mixes exact and inexact numbers.
//
// Supported syntax:
//   - Numbers: 2, 2.5, .5, 1e3
//   - Operators: + - * / ** ^ and postfix ! (factorial)
//   - Constants: pi, E, oo, zoo, nan
//   - Functions: see FunctionNames
package symbolic
