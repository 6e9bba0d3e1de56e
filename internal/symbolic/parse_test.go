package symbolic

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSimplifies(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2+2", "4"},
		{"x + x", "2*x"},
		{"2*x+3", "2*x + 3"},
		{"x*x", "x**2"},
		{"x**2", "x**2"},
		{"x^2", "x**2"},
		{"x/2", "x/2"},
		{"1/x", "1/x"},
		{"2/x", "2/x"},
		{"-x", "-x"},
		{"1 - x", "1 - x"},
		{"2*x - 3", "2*x - 3"},
		{"x**2 + 2*x + 1", "x**2 + 2*x + 1"},
		{"(x+1)**2", "(x + 1)**2"},
		{"x - x", "0"},
		{"x/x", "1"},
		{"2^-1", "1/2"},
		{"2**10", "1024"},
		{"2**3**2", "512"},
		{"-2**2", "-4"},
		{"sqrt(4)", "2"},
		{"sqrt(x)", "sqrt(x)"},
		{"sqrt(2)", "sqrt(2)"},
		{"1/0", "zoo"},
		{"0/0", "nan"},
		{"sin(0)", "0"},
		{"cos(0)", "1"},
		{"sin(pi)", "0"},
		{"cos(pi)", "-1"},
		{"sin(pi/2)", "1"},
		{"sin(-x)", "-sin(x)"},
		{"cos(-x)", "cos(x)"},
		{"exp(0)", "1"},
		{"log(1)", "0"},
		{"ln(E)", "1"},
		{"exp(log(x))", "x"},
		{"log(exp(x))", "log(exp(x))"},
		{"Abs(-x)", "Abs(x)"},
		{"abs(-pi)", "pi"},
		{"cos(pi/3)", "1/2"},
		{"sin(pi/6)", "1/2"},
		{"sin(-pi/2)", "-1"},
		{"cos(2*pi/3)", "-1/2"},
		{"sin(pi/4)**2", "1/2"},
		{"tan(pi/4)", "1"},
		{"tan(pi/3)", "sqrt(3)"},
		{"tan(pi/2)", "zoo"},
		{"sqrt(8)", "2*sqrt(2)"},
		{"sqrt(12)", "2*sqrt(3)"},
		{"2**(3/2)", "2*sqrt(2)"},
		{"1/sqrt(2)", "sqrt(2)/2"},
		{"sqrt(8)*sqrt(2)", "4"},
		{"0x1F", "31"},
		{"0b101", "5"},
		{"0o17", "15"},
		{"1_000", "1000"},
		{"00", "0"},
		{"E**x", "exp(x)"},
		{"abs(-3)", "3"},
		{"3!", "6"},
		{"factorial(5)", "120"},
		{"gamma(5)", "24"},
		{"log(8, 2)", "log(8)/log(2)"},
		{"0.5 + 0.25", "0.75"},
		{"1.5*x", "1.5*x"},
		{"2.5*2", "5.0"},
		{"floor(7/2)", "3"},
		{"ceiling(7/2)", "4"},
		{"oo + 1", "oo"},
		{"sin(x)", "sin(x)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input  string
		target error
	}{
		{"2*+", nil},
		{"foo((", nil},
		{"(x", nil},
		{"2x", nil},
		{"sin", nil},
		{"1e", nil},
		{"x #", nil},
		{"010", nil},
		{"0x1p3", nil},
		{"   ", ErrEmptyExpression},
		{"foo(x)", ErrUnknownFunction},
		{"sin(x, 2)", ErrArity},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.input, e)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse(%q) error %T is not a *SyntaxError", tt.input, err)
			}
			if se.Msg == "" || !strings.HasPrefix(err.Error(), "invalid syntax at position") {
				t.Errorf("Parse(%q) error %q has no description", tt.input, err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.input, err, tt.target)
			}
		})
	}
}

func TestParseNestingLimit(t *testing.T) {
	deep := strings.Repeat("(", 50) + "x" + strings.Repeat(")", 50)
	p := NewParser().WithMaxDepth(20)
	if _, err := p.Parse(deep); err == nil {
		t.Fatal("expected nesting error")
	}
	if _, err := NewParser().Parse(deep); err != nil {
		t.Fatalf("default parser rejected %d levels: %v", 50, err)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	for _, input := range []string{"x**2 + sin(x) - 3/x", "exp(x)*cos(2*x)"} {
		a, err := Parse(input)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Parse(input)
		if err != nil {
			t.Fatal(err)
		}
		if !Equal(a, b) || a.String() != b.String() {
			t.Errorf("Parse(%q) not deterministic: %q vs %q", input, a, b)
		}
	}
}

func TestFreeSymbols(t *testing.T) {
	e, err := Parse("x*y + sin(z) + pi")
	if err != nil {
		t.Fatal(err)
	}
	got := FreeSymbols(e)
	want := []string{"x", "y", "z"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("FreeSymbols = %v, want %v", got, want)
	}

	c, _ := Parse("2*pi + 1")
	if !IsConstant(c) {
		t.Errorf("%s should be constant", c)
	}
}
