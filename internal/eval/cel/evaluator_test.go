package cel

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

func TestCompileMatchesNative(t *testing.T) {
	ev := NewEvaluator("x")
	native := numeric.NewNative()
	inputs := []string{
		"x**2",
		"2*x + 3",
		"sin(x) + cos(x)",
		"exp(x)/2",
		"Abs(x) - sqrt(2)",
		"gamma(x)",
		"Max(x, 1)",
		"pi*x",
	}
	xs := []float64{0.5, 1, 2.25}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			e, err := symbolic.Parse(input)
			if err != nil {
				t.Fatal(err)
			}
			f, err := ev.Compile(e, "x")
			if err != nil {
				t.Fatal(err)
			}
			want, err := native.Compile(e, "x")
			if err != nil {
				t.Fatal(err)
			}
			for _, x := range xs {
				got, err := f.Eval(x)
				if err != nil {
					t.Fatalf("Eval(%v): %v", x, err)
				}
				w, _ := want.Eval(x)
				if math.Abs(got-w) > 1e-9 {
					t.Errorf("Eval(%v) = %v, want %v", x, got, w)
				}
			}
		})
	}
}

func TestCompileIsScalarOnly(t *testing.T) {
	ev := NewEvaluator("x")
	e, _ := symbolic.Parse("x + 1")
	f, err := ev.Compile(e, "x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.EvalBulk([]float64{1, 2}); !errors.Is(err, numeric.ErrTypeIncompatible) {
		t.Fatalf("EvalBulk error = %v, want ErrTypeIncompatible", err)
	}
	s, err := numeric.Sample(context.Background(), f, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Fallback || s.Y[0] != 2 || s.Y[1] != 3 {
		t.Errorf("Sample = %+v", s)
	}
}

func TestNonFiniteLiterals(t *testing.T) {
	ev := NewEvaluator("x")
	f, err := ev.Compile(symbolic.NewAdd(symbolic.Symbol("x"), symbolic.Infinity), "x")
	if err != nil {
		t.Fatal(err)
	}
	y, err := f.Eval(1)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(y, 1) {
		t.Errorf("x + oo = %v", y)
	}

	g, err := ev.Compile(symbolic.NewPow(symbolic.Symbol("x"), symbolic.Int(-1)), "x")
	if err != nil {
		t.Fatal(err)
	}
	if y, _ := g.Eval(0); !math.IsInf(y, 1) {
		t.Errorf("1/0 = %v, want +Inf", y)
	}
}

func TestCompileCachesPrograms(t *testing.T) {
	ev := NewEvaluator("x")
	for _, input := range []string{"x**2 + 1", "x**2 + 1", "x*x + 1"} {
		e, err := symbolic.Parse(input)
		if err != nil {
			t.Fatal(err)
		}
		f, err := ev.Compile(e, "x")
		if err != nil {
			t.Fatal(err)
		}
		if y, err := f.Eval(3); err != nil || y != 10 {
			t.Fatalf("%s at 3 = %v, %v", input, y, err)
		}
	}
	// all three simplify to the same source
	if n := ev.CacheSize(); n != 1 {
		t.Errorf("CacheSize = %d, want 1", n)
	}
}

func TestProgramsMustYieldDouble(t *testing.T) {
	ev := NewEvaluator("x")
	if _, err := ev.getProgram("sin(x) * 2.0"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if _, err := ev.getProgram("x > 1.0"); err == nil {
		t.Error("boolean expression accepted")
	}
	if _, err := ev.getProgram("sin("); err == nil {
		t.Error("malformed expression accepted")
	}
	if n := ev.CacheSize(); n != 1 {
		t.Errorf("CacheSize = %d, want 1", n)
	}
}

func TestCompileRejectsOtherVariable(t *testing.T) {
	ev := NewEvaluator("x")
	e, _ := symbolic.Parse("t + 1")
	if _, err := ev.Compile(e, "t"); err == nil {
		t.Error("expected error for undeclared variable")
	}
}
