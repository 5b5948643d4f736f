package stdlib

import (
	"math"
)

// RegisterDefaults adds the math built-ins. All of them take one argument and
// compute in float64 before narrowing back to float32.
func RegisterDefaults(r *Registry) {
	r.Register(unary("sqrt", "square root", math.Sqrt, "sqrt", "sqrtf", "sqrt", ""))
	r.Register(unary("sin", "sine, radians", math.Sin, "sin", "sinf", "sin", "sinf"))
	r.Register(unary("cos", "cosine, radians", math.Cos, "cos", "cosf", "cos", "cosf"))
	r.Register(unary("exp", "e raised to x", math.Exp, "exp", "expf", "exp", "expf"))
	r.Register(unary("log", "natural logarithm", math.Log, "ln", "logf", "log", "logf"))
}

func unary(name, doc string, f func(float64) float64, rust, c32, c64, asm string) Fn {
	return Fn{
		Name:  name,
		Arity: 1,
		Doc:   doc,
		Execute: func(args []float32) float32 {
			return float32(f(float64(args[0])))
		},
		RustMethod: rust,
		CName32:    c32,
		CName64:    c64,
		AsmSymbol:  asm,
	}
}
