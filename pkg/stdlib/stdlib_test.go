package stdlib_test

import (
	"errors"
	"math"
	"testing"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
)

func TestDefaultRegistryNames(t *testing.T) {
	got := stdlib.Default().Names()
	want := []string{"cos", "exp", "log", "sin", "sqrt"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMathFunctions(t *testing.T) {
	r := stdlib.Default()
	tests := []struct {
		name string
		arg  float32
		want float32
	}{
		{"sqrt", 16, 4},
		{"sin", 0, 0},
		{"cos", 0, 1},
		{"exp", 0, 1},
		{"log", 1, 0},
		{"log", float32(math.E), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Get(tt.name).Call([]float32{tt.arg})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("%s(%g) = %g, want %g", tt.name, tt.arg, got, tt.want)
			}
		})
	}
}

func TestCallChecksArity(t *testing.T) {
	fn := stdlib.Default().Get("sqrt")
	for _, args := range [][]float32{nil, {1, 2}} {
		if _, err := fn.Call(args); !errors.Is(err, stdlib.ErrArity) {
			t.Errorf("Call(%v) error = %v, want ErrArity", args, err)
		}
	}
}

func TestUnknownFunction(t *testing.T) {
	if stdlib.Default().Get("print") != nil {
		t.Error("print is a statement form, not a registry function")
	}
}

func TestEmitterNames(t *testing.T) {
	r := stdlib.Default()
	if fn := r.Get("log"); fn.RustMethod != "ln" || fn.CName32 != "logf" || fn.AsmSymbol != "logf" {
		t.Errorf("unexpected log spellings: %+v", fn)
	}
	if fn := r.Get("sqrt"); fn.AsmSymbol != "" {
		t.Errorf("sqrt should be lowered inline, got symbol %q", fn.AsmSymbol)
	}
}

func TestReduce(t *testing.T) {
	values := []float32{1, 2, 3, 4}
	tests := []struct {
		op   ast.ReduceOp
		want float32
	}{
		{ast.ReduceSum, 10},
		{ast.ReduceProd, 24},
		{ast.ReduceMax, 4},
		{ast.ReduceMin, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			if got := stdlib.Reduce(tt.op, values); got != tt.want {
				t.Errorf("Reduce(%s) = %g, want %g", tt.op, got, tt.want)
			}
		})
	}
}

func TestReduceEmpty(t *testing.T) {
	tests := []struct {
		op   ast.ReduceOp
		want float32
	}{
		{ast.ReduceSum, 0},
		{ast.ReduceProd, 1},
		{ast.ReduceMax, -math.MaxFloat32},
		{ast.ReduceMin, math.MaxFloat32},
	}
	for _, tt := range tests {
		if got := stdlib.Reduce(tt.op, nil); got != tt.want {
			t.Errorf("Reduce(%s, nil) = %g, want %g", tt.op, got, tt.want)
		}
	}
}

func TestReduceNegativeMax(t *testing.T) {
	if got := stdlib.Reduce(ast.ReduceMax, []float32{-5, -2, -9}); got != -2 {
		t.Errorf("got %g, want -2", got)
	}
}
