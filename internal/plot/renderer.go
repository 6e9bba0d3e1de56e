package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an output image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ErrUnknownFormat is returned for formats other than png and svg.
var ErrUnknownFormat = errors.New("unknown image format")

// ParseFormat validates an image format name. The empty string selects def.
func ParseFormat(name string, def Format) (Format, error) {
	switch Format(name) {
	case "":
		return def, nil
	case FormatPNG, FormatSVG:
		return Format(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// Options configure a Renderer.
type Options struct {
	Width  int
	Height int
	Format Format
}

// DefaultOptions is a 6x4 inch figure at 100 dpi.
var DefaultOptions = Options{Width: 600, Height: 400, Format: FormatPNG}

// Figure is what gets drawn.
type Figure struct {
	Title  string
	Legend string
	XLabel string
	YLabel string
	X      []float64
	Y      []float64
}

// Image is a rendered chart.
type Image struct {
	Format      Format
	ContentType string
	Data        []byte
}

var (
	curveColor = drawing.Color{R: 0, G: 0, B: 255, A: 255}
	titleColor = drawing.ColorFromHex("00008b")
	axisColor  = drawing.Color{R: 0, G: 0, B: 0, A: 255}
	gridColor  = drawing.Color{R: 128, G: 128, B: 128, A: 153}
)

// Renderer draws figures.
type Renderer struct {
	opts     Options
	canvases *canvasPool
}

// NewRenderer creates a renderer. Zero fields of opts take their defaults.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Width == 0 {
		opts.Width = DefaultOptions.Width
	}
	if opts.Height == 0 {
		opts.Height = DefaultOptions.Height
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", opts.Width, opts.Height)
	}
	format, err := ParseFormat(string(opts.Format), DefaultOptions.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format
	return &Renderer{opts: opts, canvases: newCanvasPool()}, nil
}

// Format returns the default output format.
func (r *Renderer) Format() Format { return r.opts.Format }

// OpenCanvases returns the number of canvases not yet released.
func (r *Renderer) OpenCanvases() int64 { return r.canvases.open.Load() }

// Render draws fig in the given format, or the renderer's default when
// format is empty.
func (r *Renderer) Render(fig Figure, format Format) (img *Image, err error) {
	if format == "" {
		format = r.opts.Format
	}
	if _, err := ParseFormat(string(format), r.opts.Format); err != nil {
		return nil, err
	}
	if len(fig.X) != len(fig.Y) {
		return nil, fmt.Errorf("x has %d values, y has %d", len(fig.X), len(fig.Y))
	}
	if len(fig.X) == 0 {
		return nil, errors.New("nothing to plot")
	}

	canvas := r.canvases.acquire()
	defer canvas.Release()

	defer func() {
		if rec := recover(); rec != nil {
			img, err = nil, fmt.Errorf("chart rendering panicked: %v", rec)
		}
	}()

	ch := r.build(fig)
	if err := ch.Render(format.provider(), canvas.buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	return &Image{
		Format:      format,
		ContentType: format.ContentType(),
		Data:        canvas.Bytes(),
	}, nil
}

func (r *Renderer) build(fig Figure) chart.Chart {
	xr := paddedRange(fig.X, 0)
	yr := paddedRange(fig.Y, 0)

	var curves []chart.Series
	for i, seg := range finiteSegments(fig.X, fig.Y) {
		s := chart.ContinuousSeries{
			XValues: seg.x,
			YValues: seg.y,
			Style:   chart.Style{StrokeColor: curveColor, StrokeWidth: 2},
		}
		if i == 0 {
			s.Name = fig.Legend
		}
		curves = append(curves, s)
	}

	refStyle := chart.Style{StrokeColor: axisColor, StrokeWidth: 0.5}
	series := []chart.Series{
		chart.ContinuousSeries{XValues: []float64{xr.Min, xr.Max}, YValues: []float64{0, 0}, Style: refStyle},
		chart.ContinuousSeries{XValues: []float64{0, 0}, YValues: []float64{yr.Min, yr.Max}, Style: refStyle},
	}
	series = append(series, curves...)

	grid := chart.Style{StrokeColor: gridColor, StrokeWidth: 0.5, StrokeDashArray: []float64{4, 4}}
	labelStyle := chart.Style{FontSize: 12}

	ch := chart.Chart{
		Title:      fig.Title,
		TitleStyle: chart.Style{FontSize: 16, FontColor: titleColor},
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           fig.XLabel,
			NameStyle:      labelStyle,
			Range:          xr,
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           fig.YLabel,
			NameStyle:      labelStyle,
			Range:          yr,
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		Series: series,
	}

	// The legend lists the curve only, not the reference lines.
	if len(curves) > 0 {
		legend := ch
		legend.Series = curves[:1]
		ch.Elements = []chart.Renderable{chart.Legend(&legend)}
	}
	return ch
}

type segment struct {
	x, y []float64
}

// finiteSegments splits the samples at non-finite y values. Segments of a
// single point cannot be drawn as a line and are dropped.
func finiteSegments(xs, ys []float64) []segment {
	var out []segment
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= 2 {
			out = append(out, segment{x: xs[start:end], y: ys[start:end]})
		}
		start = -1
	}
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(ys))
	return out
}

// paddedRange spans the finite values and include, with a 5% margin on
// each side.
func paddedRange(values []float64, include float64) *chart.ContinuousRange {
	lo, hi := include, include
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	margin := (hi - lo) * 0.05
	if math.IsInf(margin, 0) {
		return &chart.ContinuousRange{Min: lo, Max: hi}
	}
	return &chart.ContinuousRange{Min: lo - margin, Max: hi + margin}
}
