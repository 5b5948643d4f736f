// Command superc is the SuperC CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/codegen"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/compute"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/config"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/formatter"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/help"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/runtime"
)

const usage = "usage: superc <command> [options]\ncommands: run, emit, build, check, fmt, watch, repl, config, help"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "emit":
		os.Exit(cmdEmit(os.Args[2:]))
	case "build":
		os.Exit(cmdBuild(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "watch":
		os.Exit(cmdWatch(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s\n", cmd, usage)
		os.Exit(1)
	}
}

// runFlags are the options shared by run and watch.
type runFlags struct {
	file       string
	preference compute.Preference
	hasPref    bool
	json       bool
	trace      bool
	pretty     bool
}

func parseRunFlags(args []string) (runFlags, error) {
	var f runFlags
	for _, arg := range args {
		switch arg {
		case "--gpu", "--cpu", "--asm", "--low-power", "--auto":
			p, err := compute.ParsePreference(strings.TrimPrefix(arg, "--"))
			if err != nil {
				return f, err
			}
			f.preference, f.hasPref = p, true
		case "--json":
			f.json = true
		case "--trace":
			f.trace = true
		case "--pretty":
			f.pretty = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				f.file = arg
				continue
			}
			return f, fmt.Errorf("unknown option %s", arg)
		}
	}
	return f, nil
}

// options merges the loaded configuration with command line flags.
func (f runFlags) options(cfg *config.Config, stdout io.Writer) []runtime.Option {
	opts := append(cfg.Options(), runtime.WithStdout(stdout))
	if f.hasPref {
		opts = append(opts, runtime.WithPreference(f.preference))
	}
	if f.trace || cfg.Trace {
		enc := json.NewEncoder(os.Stderr)
		opts = append(opts, runtime.WithTrace(func(ev compute.TraceEvent) {
			_ = enc.Encode(ev)
		}))
	}
	return opts
}

func (f runFlags) prettyOutput(cfg *config.Config) bool {
	if f.json {
		return false
	}
	return f.pretty || cfg.Pretty
}

func cmdRun(args []string) int {
	flags, err := parseRunFlags(args)
	if err != nil || flags.file == "" {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprintln(os.Stderr, "usage: superc run <file> [--gpu|--cpu|--asm|--low-power] [--json] [--trace] [--pretty]")
		return 1
	}

	cfg, code := loadConfig()
	if code != 0 {
		return code
	}
	pretty := flags.prettyOutput(cfg)

	source, filename, exitCode := readSource(flags.file, pretty)
	if exitCode != 0 {
		return exitCode
	}
	return runOnce(context.Background(), source, filename, flags, cfg)
}

func runOnce(ctx context.Context, source, filename string, flags runFlags, cfg *config.Config) int {
	pretty := flags.prettyOutput(cfg)
	rt := runtime.New(flags.options(cfg, os.Stdout)...)

	result, err := rt.Run(ctx, source, filename)
	if err != nil {
		return report(err, pretty)
	}

	if flags.json {
		b, err := json.Marshal(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error serializing result: %s\n", err)
			return 4
		}
		fmt.Println(string(b))
		return 0
	}
	fmt.Fprintf(os.Stderr, "backend: %s (%s)\ntime: %d us\n",
		result.Backend, result.Backend.DisplayName(), result.ExecutionTimeUs)
	return 0
}

func cmdEmit(args []string) int {
	var file string
	var target runtime.Target

	for _, arg := range args {
		if arg == "-" {
			file = arg
			continue
		}
		if t, err := runtime.ParseTarget(arg); err == nil && (strings.HasPrefix(arg, "-") || file != "") {
			target = t
			continue
		}
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintf(os.Stderr, "Unknown target: %s\nUse --rust, --c or --asm\n", arg)
			return 1
		}
		if file != "" {
			fmt.Fprintf(os.Stderr, "Unknown target: %s\nUse --rust, --c or --asm\n", arg)
			return 1
		}
		file = arg
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: superc emit <file> (--rust|-r | --c|-c | --asm|-a)")
		return 1
	}

	cfg, code := loadConfig()
	if code != 0 {
		return code
	}
	if target == "" {
		target = cfg.EmitTarget
	}

	source, filename, exitCode := readSource(file, cfg.Pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New(cfg.Options()...)
	out, err := rt.Emit(source, filename, target)
	if err != nil {
		return report(err, cfg.Pretty)
	}
	fmt.Print(out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
	return 0
}

func cmdBuild(args []string) int {
	var file string
	for _, arg := range args {
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: superc build <file>")
		return 1
	}

	cfg, code := loadConfig()
	if code != 0 {
		return code
	}

	source, filename, exitCode := readSource(file, cfg.Pretty)
	if exitCode != 0 {
		return exitCode
	}

	fmt.Printf("Building %s...\n", filename)
	rt := runtime.New(cfg.Options()...)
	res, err := rt.Build(source, filename)
	if err != nil {
		return report(err, cfg.Pretty)
	}

	for _, art := range res.Artifacts {
		if err := os.WriteFile(art.Path, []byte(art.Source), 0644); err != nil {
			err = errors.Wrapf(err, "write %s", art.Path)
			if art.Target != runtime.TargetRust {
				fmt.Fprintf(os.Stderr, "warning: %s\n", err)
				continue
			}
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(
				[]diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}, cfg.Pretty))
			return 1
		}
		fmt.Printf("Generated: %s\n", art.Path)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return 0
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for _, arg := range args {
		switch arg {
		case "--pretty":
			pretty = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: superc check <file> [--pretty]")
		return 1
	}

	cfg, code := loadConfig()
	if code != 0 {
		return code
	}
	pretty = pretty || cfg.Pretty

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New(cfg.Options()...)
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for _, arg := range args {
		switch arg {
		case "--write":
			write = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: superc fmt <file> [--write]")
		return 1
	}
	if write && file == "-" {
		fmt.Fprintln(os.Stderr, "error: --write needs a file, not standard input")
		return 1
	}

	source, filename, exitCode := readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	formatted, err := runtime.New().Format(source, filename)
	if err != nil {
		return report(err, false)
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return 1
		}
		return 0
	}
	fmt.Print(formatted)
	return 0
}

func cmdConfig(_ []string) int {
	cfg, code := loadConfig()
	if code != 0 {
		return code
	}
	b, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Println(string(b))
	return 0
}

func cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic == "" {
			fmt.Fprintln(os.Stderr, "error: --index requires a topic (e.g., superc help stdlib --index)")
			return 1
		}
		if topic != "stdlib" {
			fmt.Fprintf(os.Stderr, "error: --index is only supported for the stdlib topic\n")
			return 1
		}
		fmt.Print(help.StdlibIndex())
		return 0
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Print(content)
	return 0
}

func loadConfig() (*config.Config, int) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, true))
		return nil, 1
	}
	return cfg, 0
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, errors.Wrap(err, "error reading stdin"))
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", 1
	}
	return string(source), file, 0
}

// report prints err as diagnostics and returns the exit code for it.
func report(err error, pretty bool) int {
	var diags []diagnostics.Diagnostic
	code := 1

	switch e := errors.Cause(err).(type) {
	case *runtime.DiagnosticError:
		diags, code = e.Diagnostics, 2
	case *compute.RuntimeError:
		diags, code = []diagnostics.Diagnostic{e.Diagnostic()}, exitCodeForDiag(e.Code)
	case *codegen.Error:
		diags, code = []diagnostics.Diagnostic{e.Diagnostic()}, 3
	default:
		fmt.Fprintln(os.Stderr, err.Error())
		return code
	}
	fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
	return code
}

func exitCodeForDiag(code string) int {
	switch diagnostics.KindOf(code) {
	case diagnostics.KindParse:
		return 2
	case diagnostics.KindCodegen:
		return 3
	case diagnostics.KindIO:
		return 1
	default:
		return 4
	}
}
