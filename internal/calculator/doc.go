// Package calculator implements the two user operations: evaluating an
// expression and plotting it over a range of x.
//
// Evaluate parses and simplifies the input and reports a ParseFailure when it
// cannot. Plot parses, compiles with the configured numeric backend, samples
// 400 points and renders the chart; every failure along the way becomes a
// PlotFailure. Neither operation panics or keeps state between calls.
//
// Example usage:
//
//	calc := calculator.NewCalculator(symbolic.NewParser(), numeric.NewNative(), renderer, logger)
//
//	res, err := calc.Evaluate(ctx, "2*x + 3")
//	if err != nil {
//	    fmt.Println(calc.ErrorBanner(err)) // Error: ...
//	}
//	fmt.Println(calc.ResultBanner(res))    // Result: 2*x + 3
//
//	rp, err := calc.Plot(ctx, "sin(x)", numeric.DefaultRange, plot.FormatPNG)
package calculator
