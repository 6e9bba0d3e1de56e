package api

import (
	"encoding/base64"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-calculator/internal/config"
	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

// Page actions
const (
	actionCalculate = "calculate"
	actionPlot      = "plot"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Modern Scientific Calculator</title>
<style>
body { font-family: sans-serif; max-width: 720px; margin: 2em auto; }
.result { background: #e6f4ea; padding: .5em; }
.error { background: #fce8e6; padding: .5em; }
.info { color: #555; font-size: .9em; }
</style>
</head>
<body>
<h1>Modern Scientific Calculator</h1>
<form method="get" action="/">
  <h3>Enter a mathematical expression (e.g., 2*x + 3, sin(x), exp(x))</h3>
  <label for="expression">Expression</label>
  <input id="expression" name="expression" size="40" value="{{trim expression}}" title="You can enter expressions like sin(x), log(x), exp(x), etc.">

  <h3>Choose common functions:</h3>
  <select name="preset" aria-label="Choose a function">
  {{#each options}}
    <option value="{{this}}"{{selected this ../preset}}>{{this}}</option>
  {{/each}}
  </select>
  {{#if (ne preset "None")}}<span class="info">replaces the expression above</span>{{/if}}
  <p><button type="submit" name="action" value="calculate">Calculate</button></p>
  {{#if (eq action "calculate")}}
  {{#if result}}<p class="result">{{result}}</p>{{/if}}
  {{#if error}}<p class="error">{{error}}</p>{{/if}}
  {{/if}}

  <h3>Plot the graph of the function</h3>
  <p>
    <label>X-axis minimum value <input type="range" name="x_min" min="{{number xMin.Min}}" max="{{number xMin.Max}}" step="any" value="{{number xMinValue}}"></label> {{number xMinValue}}<br>
    <label>X-axis maximum value <input type="range" name="x_max" min="{{number xMax.Min}}" max="{{number xMax.Max}}" step="any" value="{{number xMaxValue}}"></label> {{number xMaxValue}}
  </p>
  <p><button type="submit" name="action" value="plot">Plot Graph</button></p>
  {{#if (eq action "plot")}}
  {{#if error}}<p class="error">{{error}}</p>{{/if}}
  {{#if image}}
  <figure>
    <img alt="{{title}}" src="data:{{contentType}};base64,{{{image}}}">
    {{#if fallback}}<figcaption class="info">Sampled point by point.</figcaption>{{/if}}
  </figure>
  {{/if}}
  {{/if}}
</form>
<h2>Modern Look for Interactive Calculator</h2>
<p class="info">This calculator supports complex math expressions with dynamic graph plotting for visual analysis!</p>
<p class="info">Functions: {{join functions ", "}}</p>
</body>
</html>
`

// pageState is the data the page template is rendered with
type pageState struct {
	Action      string        `handlebars:"action"`
	Expression  string        `handlebars:"expression"`
	Preset      string        `handlebars:"preset"`
	Options     []string      `handlebars:"options"`
	Functions   []string      `handlebars:"functions"`
	XMin        config.Slider `handlebars:"xMin"`
	XMax        config.Slider `handlebars:"xMax"`
	XMinValue   float64       `handlebars:"xMinValue"`
	XMaxValue   float64       `handlebars:"xMaxValue"`
	Result      string        `handlebars:"result"`
	Error       string        `handlebars:"error"`
	Title       string        `handlebars:"title"`
	ContentType string        `handlebars:"contentType"`
	Image       string        `handlebars:"image"`
	Fallback    bool          `handlebars:"fallback"`
}

func (s *Server) handlePage(c *gin.Context) {
	state := s.readPageState(c)
	status := http.StatusOK

	switch state.Action {
	case actionCalculate:
		if err := s.checkLength(state.Expression); err != nil {
			state.Error = s.calculator.ErrorBanner(err)
			status = http.StatusBadRequest
			break
		}
		calc, err := s.calculator.Evaluate(c.Request.Context(), state.Expression)
		if err != nil {
			state.Error = s.calculator.ErrorBanner(err)
			break
		}
		state.Result = s.calculator.ResultBanner(calc)

	case actionPlot:
		if err := s.checkLength(state.Expression); err != nil {
			state.Error = s.calculator.ErrorBanner(err)
			status = http.StatusBadRequest
			break
		}
		rng := numeric.Range{Min: state.XMinValue, Max: state.XMaxValue}
		rp, err := s.calculator.Plot(c.Request.Context(), state.Expression, rng, "")
		if err != nil {
			state.Error = s.calculator.ErrorBanner(err)
			break
		}
		state.Title = rp.Title
		state.ContentType = rp.Image.ContentType
		state.Image = base64.StdEncoding.EncodeToString(rp.Image.Data)
		state.Fallback = rp.Samples.Fallback
	}

	html, err := s.templates.Render(pageTemplate, state)
	if err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", []byte(html))
}

// readPageState reads the form fields. A preset other than None replaces the
// typed expression; the bounds are clamped to the sliders.
func (s *Server) readPageState(c *gin.Context) pageState {
	p := s.presets
	state := pageState{
		Action:     c.Query("action"),
		Expression: c.DefaultQuery("expression", p.DefaultExpression),
		Preset:     c.DefaultQuery("preset", config.NoPreset),
		Options:    p.Options(),
		Functions:  symbolic.FunctionNames(),
		XMin:       p.XMin,
		XMax:       p.XMax,
		XMinValue:  p.XMin.Clamp(queryFloat(c, "x_min", p.XMin.Default)),
		XMaxValue:  p.XMax.Clamp(queryFloat(c, "x_max", p.XMax.Default)),
	}
	if expr, ok := p.Lookup(state.Preset); ok {
		state.Expression = expr
	} else {
		state.Preset = config.NoPreset
	}
	return state
}

// queryFloat returns the named query value, or def when it is missing or
// not a number
func queryFloat(c *gin.Context, name string, def float64) float64 {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil || math.IsNaN(v) {
		return def
	}
	return v
}
