package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aescanero/dago-node-calculator/internal/calculator"
	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/plot"
)

// CalculateRequest is the body of POST /api/v1/calculate
type CalculateRequest struct {
	Expression string `json:"expression"`
}

// CalculateResponse is a successful evaluation
type CalculateResponse struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// PlotRequest is the body of POST /api/v1/plot
type PlotRequest struct {
	Expression string   `json:"expression"`
	XMin       *float64 `json:"x_min"`
	XMax       *float64 `json:"x_max"`
	Format     string   `json:"format"`
}

// PlotResponse is a successful plot. Non-finite samples are null in Y.
type PlotResponse struct {
	Expression  string     `json:"expression"`
	Title       string     `json:"title"`
	Legend      string     `json:"legend"`
	X           []float64  `json:"x"`
	Y           []*float64 `json:"y"`
	Fallback    bool       `json:"fallback"`
	ContentType string     `json:"content_type"`
	Image       []byte     `json:"image"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string               `json:"error"`
	Kind  calculator.ErrorKind `json:"kind,omitempty"`
}

func (s *Server) handleCalculate(c *gin.Context) {
	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := s.checkLength(req.Expression); err != nil {
		s.badRequest(c, err)
		return
	}

	calc, err := s.calculator.Evaluate(c.Request.Context(), req.Expression)
	if err != nil {
		s.failed(c, err)
		return
	}

	c.JSON(http.StatusOK, CalculateResponse{
		Expression: calc.Expression,
		Result:     calc.Result,
	})
}

func (s *Server) handlePlot(c *gin.Context) {
	var req PlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	rng := numeric.DefaultRange
	if req.XMin != nil {
		rng.Min = *req.XMin
	}
	if req.XMax != nil {
		rng.Max = *req.XMax
	}

	rp, ok := s.plot(c, req.Expression, rng, req.Format)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, PlotResponse{
		Expression:  rp.Expression,
		Title:       rp.Title,
		Legend:      rp.Legend,
		X:           rp.Samples.X,
		Y:           rp.NullableY(),
		Fallback:    rp.Samples.Fallback,
		ContentType: rp.Image.ContentType,
		Image:       rp.Image.Data,
	})
}

func (s *Server) handlePlotImage(c *gin.Context) {
	rng, err := queryRange(c, numeric.DefaultRange)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	rp, ok := s.plot(c, c.Query("expression"), rng, c.Query("format"))
	if !ok {
		return
	}

	c.Header("X-Sample-Fallback", strconv.FormatBool(rp.Samples.Fallback))
	c.Data(http.StatusOK, rp.Image.ContentType, rp.Image.Data)
}

func (s *Server) handlePresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"options":            s.presets.Options(),
		"default_expression": s.presets.DefaultExpression,
		"x_min":              s.presets.XMin,
		"x_max":              s.presets.XMax,
		"backend":            s.calculator.Backend(),
	})
}

// plot validates the request and runs the plotter. It writes the error
// response itself and reports whether the caller should continue.
func (s *Server) plot(c *gin.Context, expression string, rng numeric.Range, formatName string) (*calculator.RenderedPlot, bool) {
	if err := s.checkLength(expression); err != nil {
		s.badRequest(c, err)
		return nil, false
	}
	format, err := plot.ParseFormat(formatName, s.calculator.Renderer().Format())
	if err != nil {
		s.badRequest(c, err)
		return nil, false
	}

	rp, err := s.calculator.Plot(c.Request.Context(), expression, rng, format)
	if err != nil {
		s.failed(c, err)
		return nil, false
	}
	return rp, true
}

func (s *Server) checkLength(expression string) error {
	if n := len(expression); n > s.maxExprLength {
		return fmt.Errorf("expression is %d bytes long, limit is %d", n, s.maxExprLength)
	}
	return nil
}

func (s *Server) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// failed reports a calculator failure
func (s *Server) failed(c *gin.Context, err error) {
	_ = c.Error(err)
	var ce *calculator.Error
	if !errors.As(err, &ce) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error: ce.Description,
		Kind:  ce.Kind,
	})
}

// queryRange reads x_min and x_max from the query, keeping def for the
// missing ones
func queryRange(c *gin.Context, def numeric.Range) (numeric.Range, error) {
	rng := def
	for name, dst := range map[string]*float64{"x_min": &rng.Min, "x_max": &rng.Max} {
		raw, ok := c.GetQuery(name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rng, fmt.Errorf("%s: %q is not a number", name, raw)
		}
		*dst = v
	}
	return rng, nil
}
