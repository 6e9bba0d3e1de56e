package calculator

import (
	"context"
	"fmt"
	"math"

	"github.com/aescanero/dago-node-calculator/internal/eval/template"
	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/plot"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
	"go.uber.org/zap"
)

// Variable is the free symbol a plot is sampled over.
const Variable = "x"

const (
	resultTemplate = "Result: {{{result}}}"
	errorTemplate  = "Error: {{{error}}}"
	titleTemplate  = "Graph of {{{expression}}}"
	legendTemplate = "y = {{{expression}}}"
)

// Parser turns text into a simplified expression
type Parser interface {
	Parse(text string) (symbolic.Expr, error)
}

// Calculation is the result of evaluating an expression
type Calculation struct {
	Expression string        `json:"expression"`
	Result     string        `json:"result"`
	Value      symbolic.Expr `json:"-"`
}

// RenderedPlot is the result of plotting an expression
type RenderedPlot struct {
	Expression string
	Title      string
	Legend     string
	Samples    numeric.Samples
	Image      *plot.Image
}

// NullableY returns the sampled values with non-finite entries as nil, so
// they encode as JSON null.
func (rp *RenderedPlot) NullableY() []*float64 {
	out := make([]*float64, len(rp.Samples.Y))
	for i := range rp.Samples.Y {
		if v := rp.Samples.Y[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = &rp.Samples.Y[i]
		}
	}
	return out
}

// Calculator evaluates and plots expressions
type Calculator struct {
	parser    Parser
	backend   numeric.Backend
	renderer  *plot.Renderer
	templates *template.Engine
	logger    *zap.Logger
}

// NewCalculator creates a new calculator
func NewCalculator(parser Parser, backend numeric.Backend, renderer *plot.Renderer, logger *zap.Logger) *Calculator {
	return &Calculator{
		parser:    parser,
		backend:   backend,
		renderer:  renderer,
		templates: template.NewEngine(),
		logger:    logger,
	}
}

// Backend returns the name of the numeric backend in use
func (c *Calculator) Backend() string {
	return c.backend.Name()
}

// CachedPrograms returns the number of compiled programs the backend keeps,
// or false when the backend has no cache.
func (c *Calculator) CachedPrograms() (int, bool) {
	cached, ok := c.backend.(interface{ CacheSize() int })
	if !ok {
		return 0, false
	}
	return cached.CacheSize(), true
}

// Renderer returns the plot renderer
func (c *Calculator) Renderer() *plot.Renderer {
	return c.renderer
}

// Evaluate parses and simplifies text
func (c *Calculator) Evaluate(ctx context.Context, text string) (calc *Calculation, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("evaluation panicked", zap.String("expression", text), zap.Any("panic", rec))
			calc, err = nil, panicFailure(ParseFailure, rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, failure(ParseFailure, err)
	}

	value, err := c.parser.Parse(text)
	if err != nil {
		c.logger.Debug("evaluation failed",
			zap.String("expression", text),
			zap.Error(err),
		)
		return nil, failure(ParseFailure, err)
	}

	calc = &Calculation{
		Expression: text,
		Result:     value.String(),
		Value:      value,
	}

	c.logger.Debug("expression evaluated",
		zap.String("expression", text),
		zap.String("result", calc.Result),
	)

	return calc, nil
}

// Plot samples text over rng and renders the graph. An empty format selects
// the renderer's default.
func (c *Calculator) Plot(ctx context.Context, text string, rng numeric.Range, format plot.Format) (rp *RenderedPlot, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("plot panicked", zap.String("expression", text), zap.Any("panic", rec))
			rp, err = nil, panicFailure(PlotFailure, rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, failure(PlotFailure, err)
	}

	expr, err := c.parser.Parse(text)
	if err != nil {
		return nil, failure(PlotFailure, err)
	}

	f, err := c.backend.Compile(expr, Variable)
	if err != nil {
		return nil, failure(PlotFailure, fmt.Errorf("compile with %s backend: %w", c.backend.Name(), err))
	}

	if err := rng.Validate(); err != nil {
		return nil, failure(PlotFailure, err)
	}
	xs := numeric.Linspace(rng.Min, rng.Max, numeric.SampleCount)
	samples, err := numeric.Sample(ctx, f, xs)
	if err != nil {
		return nil, failure(PlotFailure, err)
	}
	if samples.Fallback {
		c.logger.Debug("bulk evaluation not supported, sampled per point",
			zap.String("expression", text),
			zap.String("backend", c.backend.Name()),
		)
	}

	data := map[string]interface{}{"expression": text}
	title, err := c.templates.Render(titleTemplate, data)
	if err != nil {
		return nil, failure(PlotFailure, err)
	}
	legend, err := c.templates.Render(legendTemplate, data)
	if err != nil {
		return nil, failure(PlotFailure, err)
	}

	img, err := c.renderer.Render(plot.Figure{
		Title:  title,
		Legend: legend,
		XLabel: "x",
		YLabel: "y",
		X:      samples.X,
		Y:      samples.Y,
	}, format)
	if err != nil {
		return nil, failure(PlotFailure, err)
	}

	c.logger.Info("expression plotted",
		zap.String("expression", text),
		zap.Float64("x_min", rng.Min),
		zap.Float64("x_max", rng.Max),
		zap.Bool("fallback", samples.Fallback),
		zap.String("format", string(img.Format)),
		zap.Int("bytes", len(img.Data)),
	)

	return &RenderedPlot{
		Expression: text,
		Title:      title,
		Legend:     legend,
		Samples:    samples,
		Image:      img,
	}, nil
}

// ResultBanner formats a successful evaluation for display
func (c *Calculator) ResultBanner(calc *Calculation) string {
	return c.banner(resultTemplate, "result", calc.Result)
}

// ErrorBanner formats a failure for display
func (c *Calculator) ErrorBanner(err error) string {
	return c.banner(errorTemplate, "error", err.Error())
}

func (c *Calculator) banner(tmpl, key, value string) string {
	out, err := c.templates.Render(tmpl, map[string]interface{}{key: value})
	if err != nil {
		c.logger.Warn("banner rendering failed", zap.Error(err))
		return value
	}
	return out
}
