package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-calculator/internal/calculator"
	"github.com/aescanero/dago-node-calculator/internal/config"
	"github.com/aescanero/dago-node-calculator/internal/eval/govaluate"
	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/plot"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, backend numeric.Backend) *Server {
	t.Helper()
	r, err := plot.NewRenderer(plot.DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	calc := calculator.NewCalculator(symbolic.NewParser(), backend, r, zap.NewNop())
	cfg := &config.Config{
		APIPort:             8080,
		AllowOrigins:        []string{"*"},
		MaxExpressionLength: 32,
	}
	s, err := NewServer(cfg, calc, config.DefaultPresets(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
}

func TestCalculate(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	tests := []struct {
		body   string
		status int
		result string
		kind   calculator.ErrorKind
	}{
		{`{"expression":"2+2"}`, http.StatusOK, "4", ""},
		{`{"expression":"x + x"}`, http.StatusOK, "2*x", ""},
		{`{"expression":"2*+"}`, http.StatusUnprocessableEntity, "", calculator.ParseFailure},
		{`{"expression":""}`, http.StatusUnprocessableEntity, "", calculator.ParseFailure},
		{`{"expression":"1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1"}`, http.StatusBadRequest, "", ""},
		{`{"expression":`, http.StatusBadRequest, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/calculate", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			if tt.status == http.StatusOK {
				var resp CalculateResponse
				decode(t, rec, &resp)
				if resp.Result != tt.result {
					t.Errorf("result = %q, want %q", resp.Result, tt.result)
				}
				return
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Error == "" || resp.Kind != tt.kind {
				t.Errorf("error response = %+v", resp)
			}
		})
	}
}

func TestCalculateRequiresPayload(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	if rec := do(t, s, http.MethodPost, "/api/v1/calculate", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestPlot(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	rec := do(t, s, http.MethodPost, "/api/v1/plot", `{"expression":"1/x","x_min":-1,"x_max":1,"format":"svg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp PlotResponse
	decode(t, rec, &resp)
	if len(resp.X) != numeric.SampleCount || len(resp.Y) != numeric.SampleCount {
		t.Fatalf("got %d x and %d y values", len(resp.X), len(resp.Y))
	}
	if resp.X[0] != -1 || resp.X[len(resp.X)-1] != 1 {
		t.Errorf("x spans [%v, %v]", resp.X[0], resp.X[len(resp.X)-1])
	}
	if resp.Y[0] == nil || *resp.Y[0] != -1 {
		t.Errorf("y[0] = %v", resp.Y[0])
	}
	if resp.Title != "Graph of 1/x" || resp.Legend != "y = 1/x" {
		t.Errorf("labels = %q, %q", resp.Title, resp.Legend)
	}
	if resp.ContentType != "image/svg+xml" || !bytes.Contains(resp.Image, []byte("<svg")) {
		t.Errorf("content type %q, image %d bytes", resp.ContentType, len(resp.Image))
	}
	if resp.Fallback {
		t.Error("native backend fell back")
	}
}

func TestPlotFailures(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	tests := []struct {
		body   string
		status int
	}{
		{`{"expression":"x*y"}`, http.StatusUnprocessableEntity},
		{`{"expression":"2*+"}`, http.StatusUnprocessableEntity},
		{`{"expression":"x","format":"gif"}`, http.StatusBadRequest},
		{`{"expression":"x","x_min":"a"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/plot", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			if tt.status == http.StatusUnprocessableEntity {
				var resp ErrorResponse
				decode(t, rec, &resp)
				if resp.Kind != calculator.PlotFailure {
					t.Errorf("kind = %q", resp.Kind)
				}
			}
		})
	}
}

func TestPlotExtremeRange(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	rec := do(t, s, http.MethodPost, "/api/v1/plot", `{"expression":"x","x_min":-1e308,"x_max":1e308,"format":"svg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp PlotResponse
	decode(t, rec, &resp)
	if len(resp.X) != numeric.SampleCount || resp.X[0] != -1e308 || resp.X[len(resp.X)-1] != 1e308 {
		t.Errorf("got %d x values", len(resp.X))
	}

	rec = do(t, s, http.MethodGet, "/api/v1/plot/image?expression=x&x_min=-Inf", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("infinite x_min: status = %d", rec.Code)
	}
	var errResp ErrorResponse
	decode(t, rec, &errResp)
	if errResp.Kind != calculator.PlotFailure {
		t.Errorf("kind = %q", errResp.Kind)
	}
}

func TestPlotScalarBackendFallsBack(t *testing.T) {
	s := newTestServer(t, govaluate.NewEvaluator())
	rec := do(t, s, http.MethodPost, "/api/v1/plot", `{"expression":"sin(x)"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp PlotResponse
	decode(t, rec, &resp)
	if !resp.Fallback {
		t.Error("expected per-point fallback")
	}
}

func TestPlotImage(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	rec := do(t, s, http.MethodGet, "/api/v1/plot/image?expression=exp(x)&x_min=-2&x_max=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/plot/image?expression=x&x_min=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad x_min: status = %d", rec.Code)
	}
}

func TestPresets(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	rec := do(t, s, http.MethodGet, "/api/v1/presets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Options []string      `json:"options"`
		XMin    config.Slider `json:"x_min"`
		Backend string        `json:"backend"`
	}
	decode(t, rec, &resp)
	if len(resp.Options) == 0 || resp.Options[0] != config.NoPreset {
		t.Errorf("options = %v", resp.Options)
	}
	if resp.XMin.Min != -20 || resp.Backend != "native" {
		t.Errorf("response = %+v", resp)
	}
}

func TestPage(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())

	t.Run("empty", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/", "")
		body := rec.Body.String()
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		for _, want := range []string{
			"Modern Scientific Calculator",
			"Enter a mathematical expression (e.g., 2*x + 3, sin(x), exp(x))",
			"dynamic graph plotting",
			`<option value="None" selected>`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("page is missing %q", want)
			}
		}
		if strings.Contains(body, "<img") {
			t.Error("image rendered without a plot action")
		}
	})

	t.Run("calculate", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/?expression=2%2B2&action=calculate", "")
		if !strings.Contains(rec.Body.String(), "Result: 4") {
			t.Errorf("missing result banner in %s", rec.Body)
		}
	})

	t.Run("error", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/?expression=2*%2B&action=calculate", "")
		if !strings.Contains(rec.Body.String(), "Error: ") {
			t.Errorf("missing error banner in %s", rec.Body)
		}
	})

	t.Run("preset overrides expression", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/?expression=x&preset=cos(x)&action=plot&x_min=-50&x_max=5", "")
		body := rec.Body.String()
		if !strings.Contains(body, `alt="Graph of cos(x)"`) {
			t.Errorf("plot title missing in %s", body)
		}
		if !strings.Contains(body, `<option value="cos(x)" selected>`) {
			t.Error("preset not selected")
		}
		if !strings.Contains(body, "replaces the expression above") {
			t.Error("preset note missing")
		}
		if !strings.Contains(body, "data:image/png;base64,") {
			t.Error("inline image missing")
		}
		// x_min is clamped to its slider
		if !strings.Contains(body, `name="x_min" min="-20" max="0" step="any" value="-20"`) {
			t.Error("x_min not clamped")
		}
	})

	t.Run("too long", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/?action=calculate&expression="+strings.Repeat("x", 40), "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, numeric.NewNative())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/presets", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc" {
		t.Errorf("request id = %q", got)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/presets", "")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("request id not generated")
	}
}
