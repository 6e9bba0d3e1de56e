// Package numeric turns symbolic expressions into numeric functions of one
// variable and samples them.
//
// A Backend compiles an expression into a Func. EvalBulk evaluates the
// function once over a whole sequence and reports ErrTypeIncompatible when
// the compiled form cannot take a sequence (the expression is constant, it
// calls a scalar-only function on the variable, or the backend itself is
// scalar-only). Sample treats that error as the signal to evaluate point by
// point; every other error is returned to the caller.
//
// Domain mistakes such as division by zero or the logarithm of a negative
// number follow IEEE semantics and produce ±Inf or NaN samples.
package numeric
