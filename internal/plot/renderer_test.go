package plot

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"
)

func squares(n int) Figure {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = -10 + 20*float64(i)/float64(n-1)
		ys[i] = xs[i] * xs[i]
	}
	return Figure{Title: "Graph of x**2", Legend: "y = x**2", XLabel: "x", YLabel: "y", X: xs, Y: ys}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRenderPNG(t *testing.T) {
	r := newRenderer(t)
	img, err := r.Render(squares(400), "")
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != FormatPNG || img.ContentType != "image/png" {
		t.Errorf("format = %s, content type = %s", img.Format, img.ContentType)
	}
	if !bytes.HasPrefix(img.Data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
	if n := r.OpenCanvases(); n != 0 {
		t.Errorf("OpenCanvases = %d after render", n)
	}
}

func TestRenderSVG(t *testing.T) {
	r := newRenderer(t)
	img, err := r.Render(squares(50), FormatSVG)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(img.Data, []byte("<svg")) {
		t.Error("output is not an SVG")
	}
	if !bytes.Contains(img.Data, []byte("Graph of x**2")) {
		t.Error("title missing from SVG")
	}
}

func TestRenderNonFinite(t *testing.T) {
	r := newRenderer(t)
	fig := squares(20)
	fig.Y[3] = math.Inf(1)
	fig.Y[10] = math.NaN()
	if _, err := r.Render(fig, ""); err != nil {
		t.Fatal(err)
	}

	for i := range fig.Y {
		fig.Y[i] = math.NaN()
	}
	if _, err := r.Render(fig, ""); err != nil {
		t.Fatalf("all-NaN figure: %v", err)
	}
	if n := r.OpenCanvases(); n != 0 {
		t.Errorf("OpenCanvases = %d", n)
	}
}

func TestRenderErrorsReleaseCanvas(t *testing.T) {
	r := newRenderer(t)
	fig := squares(10)
	fig.Y = fig.Y[:5]
	if _, err := r.Render(fig, ""); err == nil {
		t.Error("mismatched lengths accepted")
	}
	if _, err := r.Render(squares(10), "gif"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
	if n := r.OpenCanvases(); n != 0 {
		t.Errorf("OpenCanvases = %d", n)
	}
}

func TestRenderConcurrent(t *testing.T) {
	r := newRenderer(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Render(squares(100), ""); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n := r.OpenCanvases(); n != 0 {
		t.Errorf("OpenCanvases = %d", n)
	}
}

func TestFiniteSegments(t *testing.T) {
	nan := math.NaN()
	xs := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	ys := []float64{1, 2, nan, 3, nan, 4, 5, 6}
	segs := finiteSegments(xs, ys)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if len(segs[0].x) != 2 || len(segs[1].x) != 3 {
		t.Errorf("segment lengths = %d, %d", len(segs[0].x), len(segs[1].x))
	}
}

func TestPaddedRange(t *testing.T) {
	r := paddedRange([]float64{1, 3, math.Inf(1)}, 0)
	if math.Abs(r.Min+0.15) > 1e-12 || math.Abs(r.Max-3.15) > 1e-12 {
		t.Errorf("range = [%v, %v]", r.Min, r.Max)
	}
	r = paddedRange([]float64{0, 0}, 0)
	if r.Min != -1 || r.Max != 1 {
		t.Errorf("degenerate range = [%v, %v]", r.Min, r.Max)
	}
}

func TestNewRendererRejectsUnknownFormat(t *testing.T) {
	if _, err := NewRenderer(Options{Format: "bmp"}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v", err)
	}
}
