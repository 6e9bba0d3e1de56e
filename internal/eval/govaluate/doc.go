// Package govaluate provides a scalar numeric backend built on
// github.com/Knetic/govaluate.
//
// Expressions are rendered to govaluate syntax with every calculator
// function registered as an ExpressionFunction. Parsed expressions are
// cached by source text; each Eval call gets its own parameter map so a
// compiled function can be shared between goroutines.
package govaluate
