package stdlib

import (
	"math"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// ReduceIdentity returns the starting value of a fold. Max and min start at
// the extremes of float32 rather than at infinity, so reducing an empty
// array yields those extremes.
func ReduceIdentity(op ast.ReduceOp) float32 {
	switch op {
	case ast.ReduceProd:
		return 1
	case ast.ReduceMax:
		return -math.MaxFloat32
	case ast.ReduceMin:
		return math.MaxFloat32
	}
	return 0
}

// ReduceStep combines the accumulator with the next element.
func ReduceStep(op ast.ReduceOp, acc, x float32) float32 {
	switch op {
	case ast.ReduceProd:
		return acc * x
	case ast.ReduceMax:
		if x > acc {
			return x
		}
		return acc
	case ast.ReduceMin:
		if x < acc {
			return x
		}
		return acc
	}
	return acc + x
}

// Reduce folds values left to right.
func Reduce(op ast.ReduceOp, values []float32) float32 {
	acc := ReduceIdentity(op)
	for _, v := range values {
		acc = ReduceStep(op, acc, v)
	}
	return acc
}

// ReduceOpName is the identifier-safe name of op, used in generated helper names.
func ReduceOpName(op ast.ReduceOp) string {
	switch op {
	case ast.ReduceSum:
		return "sum"
	case ast.ReduceProd:
		return "prod"
	case ast.ReduceMax:
		return "max"
	case ast.ReduceMin:
		return "min"
	}
	return "unknown"
}
