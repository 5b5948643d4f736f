// Package help holds the SuperC quick reference and help topics.
package help

import (
	"fmt"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
)

// Version is reported by the quick reference.
const Version = "v0.1"

// QUICKREF is printed by `superc help` with no topic.
var QUICKREF = `SuperC ` + Version + ` - unified compute engine

Usage:
  superc run <file> [--gpu|--cpu|--asm|--low-power] [--json] [--trace] [--pretty]
  superc emit <file> (--rust|-r | --c|-c | --asm|-a)
  superc build <file>          write <file>_generated.rs and, best effort, _generated.c
  superc check <file> [--pretty]
  superc fmt <file> [--write]
  superc watch <file> [run options]
  superc repl
  superc config
  superc help [topic]

A file argument of - reads standard input.

Exit codes: 0 ok, 1 usage or I/O, 2 diagnostics, 3 code generation, 4 runtime.

Topics (superc help <topic>):
  syntax       declarations, statements and expressions
  types        scalar and array types
  backends     backend labels and selection
  stdlib       built-in functions and reductions
  emit         Rust, C and NASM output
  diagnostics  error codes
  config       config files and SUPERC_* variables
  examples     complete programs
`

// TopicList is the display order of Topics.
var TopicList = []string{"syntax", "types", "backends", "stdlib", "emit", "diagnostics", "config", "examples"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `SYNTAX

  data x: f32[100]            declare a zeroed array
  data s: f32                 declare a zeroed scalar
  x[0] = 42.0                 indexed assignment; out of range writes are dropped
  s = x[0] * 2                scalar assignment; out of range reads are errors

  for i = 0 : 100 { ... }     i runs over [0, 100); bounds are integer expressions
  if s > 1 { ... } else { ... }
  parallel { ... }            exec blocks: parallel, seq, gpu, asm (advisory tags)
  print(s)                    writes the value with six decimals

  fn f(a: f32, n: i32) -> f32 { return a * n }
                              functions are checked and emitted, never interpreted

Operators, lowest precedence first: ||  &&  == !=  < > <= >=  + -  * / %
Unary: - !. Statements end at a newline or ;. Comments start with //.
`,
	"types": `TYPES

  i32 i64 f32 f64 bool        scalars
  T[N]                        array of N elements, N fixed at parse time

The interpreter stores every value as a 32-bit float. Comparisons and logic
yield 1.0 or 0.0; any non-zero value is true. Indices and loop bounds are
evaluated as integers: literals, scalars (truncated) and + - * / %.
`,
	"backends": `BACKENDS

  CudaGpu  CUDA GPU           HipGpu   HIP GPU (AMD)
  HipCpu   HIP-CPU fallback   PureCpu  pure CPU
  AsmSimd  ASM SIMD (AVX)

Workload is the size of the largest top-level array.
  auto:      > 100000 and a GPU → GPU; > 1000 → AsmSimd; else PureCpu
  --gpu:     CUDA, else HIP, else HipCpu
  --cpu, --low-power: PureCpu
  --asm:     AsmSimd

Labels only describe the run: every backend gives the same results.
`,
	"stdlib": `STDLIB

  sqrt(x) sin(x) cos(x) exp(x) log(x)   one argument each
  reduce(+, a) reduce(*, a)             sum and product of array a
  reduce(max, a) reduce(min, a)         largest and smallest element
  print(x)                              statement only

Run "superc help stdlib --index" for the generated index.
`,
	"emit": `EMIT

  superc emit prog.sc --rust   Rust translation
  superc emit prog.sc --c      C99 translation
  superc emit prog.sc --asm    NASM x86-64, Windows x64 ABI

All targets keep the interpreter's semantics: dropped out-of-range writes,
aborting out-of-range reads, epsilon float equality and a fixed loop trip
count. Calls to user functions are only allowed inside functions.
superc build writes prog_generated.rs and, when it succeeds, prog_generated.c.
`,
	"diagnostics": `DIAGNOSTICS

  E_PARSE        syntax error
  E_UNDEFINED    undefined variable
  E_BOUNDS       array read out of range
  E_UNKNOWN_FN   unknown function
  E_ARITY        wrong number of arguments
  E_REDUCE       reduce target is not an array
  E_INT_CONTEXT  expression not allowed in an index or loop bound
  E_DIV_ZERO     integer division by zero
  E_TYPE         scalar/array misuse
  E_BUDGET       iteration or time budget exceeded
  E_CANCELLED    execution cancelled
  E_CODEGEN      code generation failed
  E_IO           file error
  E_CONFIG       invalid configuration

Use --pretty for human readable output; the default is JSON.
`,
	"config": `CONFIG

Settings come from .superc.json in the working directory, else
~/.superc/config.json, else defaults:

  {"preference": "auto", "maxIterations": 0, "timeMs": 0,
   "pretty": true, "trace": false, "runId": "cli", "emitTarget": "rust"}

Environment variables override the file:
  SUPERC_PREFERENCE  SUPERC_MAX_ITERATIONS  SUPERC_PRETTY
  SUPERC_TRACE       SUPERC_RUN_ID          SUPERC_EMIT_TARGET

Command line flags override both. "superc config" prints the result.
`,
	"examples": `EXAMPLES

  data x: f32[100]
  parallel {
      x[0] = 42.0
  }

  data v: f32[1024]
  data total: f32
  for i = 0 : 1024 {
      v[i] = sin(i * 0.01)
  }
  total = reduce(+, v)
  print(total)
`,
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (name, content string, err error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if text, ok := Topics[q]; ok {
		return q, text, nil
	}
	var matches []string
	if q != "" {
		for _, topic := range TopicList {
			if strings.HasPrefix(topic, q) {
				matches = append(matches, topic)
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic: %s", query)
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	return "", "", fmt.Errorf("ambiguous help topic %s: %s", query, strings.Join(matches, ", "))
}

// StdlibIndex lists every built-in with its arity and description.
func StdlibIndex() string {
	reg := stdlib.Default()
	names := reg.Names()

	var b strings.Builder
	b.WriteString("Built-in functions:\n")
	for _, name := range names {
		fn := reg.Get(name)
		fmt.Fprintf(&b, "  %-8s %d  %s\n", fn.Name, fn.Arity, fn.Doc)
	}
	b.WriteString("Statements:\n")
	fmt.Fprintf(&b, "  %-8s %d  %s\n", "print", 1, "write a value")
	b.WriteString("Reductions:\n")
	for _, op := range []string{"+", "*", "max", "min"} {
		fmt.Fprintf(&b, "  reduce(%s, array)\n", op)
	}
	fmt.Fprintf(&b, "Total: %d functions\n", len(names)+1)
	return b.String()
}
