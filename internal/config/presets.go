package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// NoPreset is the selector entry that keeps the typed expression.
const NoPreset = "None"

// Slider bounds one end of the plotted range.
type Slider struct {
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Default float64 `yaml:"default" json:"default"`
}

// Clamp limits v to the slider bounds.
func (s Slider) Clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Presets are the choices offered by the calculator page
type Presets struct {
	DefaultExpression string   `yaml:"default_expression" json:"default_expression"`
	Expressions       []string `yaml:"expressions" json:"expressions"`
	XMin              Slider   `yaml:"x_min" json:"x_min"`
	XMax              Slider   `yaml:"x_max" json:"x_max"`
}

// DefaultPresets returns the built-in presets
func DefaultPresets() *Presets {
	return &Presets{
		DefaultExpression: "sin(x)",
		Expressions:       []string{"sin(x)", "cos(x)", "tan(x)", "log(x)", "exp(x)"},
		XMin:              Slider{Min: -20, Max: 0, Default: -10},
		XMax:              Slider{Min: 0, Max: 20, Default: 10},
	}
}

// LoadPresets reads presets from a YAML file. Fields missing from the file
// keep their built-in values; an empty path returns the defaults.
func LoadPresets(path string) (*Presets, error) {
	p := DefaultPresets()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid presets: %w", err)
	}
	return p, nil
}

// Validate validates the presets
func (p *Presets) Validate() error {
	if p.DefaultExpression == "" {
		return fmt.Errorf("default_expression is required")
	}
	for i, e := range p.Expressions {
		if e == "" || e == NoPreset {
			return fmt.Errorf("expression %d: %q is not a valid preset", i, e)
		}
	}
	for name, s := range map[string]Slider{"x_min": p.XMin, "x_max": p.XMax} {
		if s.Min > s.Max {
			return fmt.Errorf("%s: min %g is above max %g", name, s.Min, s.Max)
		}
		if s.Default < s.Min || s.Default > s.Max {
			return fmt.Errorf("%s: default %g is outside [%g, %g]", name, s.Default, s.Min, s.Max)
		}
	}
	return nil
}

// Options returns the selector entries, NoPreset first
func (p *Presets) Options() []string {
	return append([]string{NoPreset}, p.Expressions...)
}

// Lookup reports whether name is one of the preset expressions
func (p *Presets) Lookup(name string) (string, bool) {
	for _, e := range p.Expressions {
		if e == name {
			return e, true
		}
	}
	return "", false
}
