package codegen

import (
	"math"
	"strconv"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

var rustTypes = map[ast.TypeKind]string{
	ast.TypeVoid: "()",
	ast.TypeI32:  "i32",
	ast.TypeI64:  "i64",
	ast.TypeF32:  "f32",
	ast.TypeF64:  "f64",
	ast.TypeBool: "bool",
}

var cTypes = map[ast.TypeKind]string{
	ast.TypeVoid: "void",
	ast.TypeI32:  "int32_t",
	ast.TypeI64:  "int64_t",
	ast.TypeF32:  "float",
	ast.TypeF64:  "double",
	ast.TypeBool: "bool",
}

// RustStackLimit is the largest Rust array kept on the stack; bigger arrays
// become heap vectors.
const RustStackLimit = 1 << 16

func onHeap(t ast.DataType) bool {
	return t.IsArray() && t.Size > RustStackLimit
}

// typeName maps a scalar type, or for Rust an array type, to the target.
func (g *generator) typeName(t ast.DataType) string {
	if g.rust() {
		if onHeap(t) {
			return "Vec<" + g.typeName(t.ElemType()) + ">"
		}
		if t.IsArray() {
			return "[" + g.typeName(t.ElemType()) + "; " + strconv.Itoa(t.Size) + "]"
		}
		return rustTypes[t.Kind]
	}
	if t.IsArray() {
		return cTypes[t.ElemType().Kind]
	}
	return cTypes[t.Kind]
}

// cDecl renders a C declarator such as float x[100].
func (g *generator) cDecl(name string, t ast.DataType) string {
	if t.IsArray() {
		return g.typeName(t.ElemType()) + " " + name + "[" + strconv.Itoa(t.Size) + "]"
	}
	return g.typeName(t) + " " + name
}

func (g *generator) zeroValue(t ast.DataType) string {
	switch t.Kind {
	case ast.TypeBool:
		return "false"
	case ast.TypeF32:
		if g.rust() {
			return "0.0_f32"
		}
		return "0.0f"
	case ast.TypeF64:
		return "0.0"
	}
	return "0"
}

// floatLit renders v rounded to single precision.
func (g *generator) floatLit(v float64) string {
	f := float32(v)
	if math.IsInf(float64(f), 0) {
		switch {
		case g.rust() && f > 0:
			return "f32::INFINITY"
		case g.rust():
			return "f32::NEG_INFINITY"
		case f > 0:
			return "INFINITY"
		}
		return "(-INFINITY)"
	}
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	if g.rust() {
		return s + "_f32"
	}
	return s + "f"
}

func (g *generator) intLit(v int64) string {
	s := strconv.FormatInt(v, 10)
	if !g.rust() && (v > math.MaxInt32 || v < math.MinInt32) {
		s += "LL"
	}
	return s
}

// --- Names ---

var rustKeywords = map[string]bool{
	"as": true, "break": true, "const": true, "continue": true, "else": true, "enum": true,
	"extern": true, "false": true, "fn": true, "for": true, "if": true, "impl": true, "in": true,
	"let": true, "loop": true, "match": true, "mod": true, "move": true, "mut": true, "pub": true,
	"ref": true, "return": true, "static": true, "struct": true, "trait": true, "true": true,
	"type": true, "unsafe": true, "use": true, "where": true, "while": true, "async": true,
	"await": true, "dyn": true, "abstract": true, "become": true, "box": true, "do": true,
	"final": true, "macro": true, "override": true, "priv": true, "typeof": true, "unsized": true,
	"virtual": true, "yield": true, "try": true,
}

// rustReserved cannot be written as raw identifiers.
var rustReserved = map[string]bool{"self": true, "Self": true, "super": true, "crate": true, "_": true}

var cReserved = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true, "continue": true,
	"default": true, "do": true, "double": true, "else": true, "enum": true, "extern": true,
	"float": true, "for": true, "goto": true, "if": true, "inline": true, "int": true, "long": true,
	"register": true, "restrict": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "struct": true, "switch": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true, "bool": true, "true": true,
	"false": true, "main": true, "int32_t": true, "int64_t": true, "printf": true, "puts": true,
	"exit": true, "isnan": true, "isinf": true, "fabsf": true, "fmodf": true, "sqrtf": true,
	"sinf": true, "cosf": true, "expf": true, "logf": true, "abs": true, "_": true,
}

// name escapes a program identifier for the target.
func (g *generator) name(n string) string {
	if strings.HasPrefix(n, "sc_") || strings.HasPrefix(n, "SC_") || strings.HasPrefix(n, "__sc") {
		return n + "_"
	}
	if g.rust() {
		switch {
		case rustReserved[n]:
			return n + "_"
		case rustKeywords[n]:
			return "r#" + n
		}
		return n
	}
	if cReserved[n] {
		return n + "_"
	}
	return n
}

// fnName gives user functions their own namespace. Variables never start
// with sc_ after escaping, so the two cannot collide.
func (g *generator) fnName(n string) string {
	return "sc_fn_" + n
}

// --- Prelude ---

const rustPrelude = `#![allow(unused_mut, unused_variables, unused_assignments, unused_parens, unreachable_code, dead_code, non_snake_case)]

const SC_EPSILON: f32 = f32::EPSILON;

fn sc_feq(a: f32, b: f32) -> bool {
    (a - b).abs() < SC_EPSILON
}

fn sc_idx(i: i64, len: usize) -> usize {
    if i < 0 || i as usize >= len {
        eprintln!("Array access error: index {} out of range 0..{}", i, len);
        std::process::exit(1);
    }
    i as usize
}

`

const cPrelude = `#include <float.h>
#include <math.h>
#include <stdbool.h>
#include <stdint.h>
#include <stdio.h>
#include <stdlib.h>

static const float SC_EPSILON = 1.1920929e-07f;

static bool sc_feq(float a, float b) {
    return fabsf(a - b) < SC_EPSILON;
}

static int64_t sc_idx(int64_t i, int64_t n) {
    if (i < 0 || i >= n) {
        fprintf(stderr, "Array access error: index %lld out of range 0..%lld\n", (long long)i, (long long)n);
        exit(1);
    }
    return i;
}

static int64_t sc_idiv(int64_t a, int64_t b) {
    if (b == 0) {
        fprintf(stderr, "integer division by zero\n");
        exit(1);
    }
    return a / b;
}

static int64_t sc_imod(int64_t a, int64_t b) {
    if (b == 0) {
        fprintf(stderr, "integer division by zero\n");
        exit(1);
    }
    return a % b;
}

static void sc_print(float v) {
    if (isnan(v)) {
        puts("NaN");
    } else if (isinf(v)) {
        puts(v > 0 ? "inf" : "-inf");
    } else {
        printf("%.6f\n", (double)v);
    }
}

`

func (g *generator) prelude(file string) string {
	if file == "" {
		file = "<stdin>"
	}
	if g.rust() {
		return "// Generated by SuperC from " + file + "\n" + rustPrelude
	}
	return "/* Generated by SuperC from " + file + " */\n" + cPrelude
}
