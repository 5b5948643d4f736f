package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/compute"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/help"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/lexer"
)

const (
	historyFile = ".superc_history"
	promptMain  = "sc> "
	promptCont  = "... "
)

const replHelp = `Statements run as they are entered; declarations persist.
  :vars   list variables
  :reset  forget all variables
  :quit   leave
`

func cmdRepl(_ []string) int {
	fmt.Printf("SuperC %s (:help for commands, :quit to exit)\n", help.Version)

	cfg, code := loadConfig()
	if code != 0 {
		return code
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	opts := compute.ExecOptions{
		Preference: cfg.Preference,
		Stdout:     os.Stdout,
		RunID:      cfg.RunID,
		Budget:     cfg.Budget(),
	}
	session := compute.NewSession(opts)

	for {
		src, ok := readFragment(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q", ":exit":
				return 0
			case ":help":
				fmt.Print(replHelp)
			case ":vars":
				printVars(session.Env())
			case ":reset":
				session = compute.NewSession(opts)
			default:
				fmt.Println("unknown command. Type :help for commands.")
			}
			continue
		}

		if _, err := session.Exec(context.Background(), src, "<repl>"); err != nil {
			fmt.Fprintln(os.Stderr, "error: "+err.Error())
		}
	}
	return 0
}

// readFragment reads lines until braces and parentheses balance.
func readFragment(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if ok, more := promptEnd(err); !more {
			return "", ok
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// promptEnd classifies a Prompt error. Ctrl+C abandons the fragment but
// keeps the REPL running; EOF and other errors end it.
func promptEnd(err error) (ok, more bool) {
	switch errors.Cause(err) {
	case nil:
		return true, true
	case liner.ErrPromptAborted:
		return true, false
	}
	return false, false
}

// incomplete reports whether source has unclosed braces or parentheses.
func incomplete(source string) bool {
	depth := 0
	for _, tok := range lexer.Tokenize(source, "<repl>") {
		switch tok.Type {
		case lexer.TokLBrace, lexer.TokLParen:
			depth++
		case lexer.TokRBrace, lexer.TokRParen:
			depth--
		}
	}
	return depth > 0
}

func printVars(env *compute.Env) {
	for _, name := range env.ArrayNames() {
		arr, _ := env.Array(name)
		fmt.Printf("%s: f32[%d]", name, len(arr))
		if len(arr) <= 8 {
			vals := make([]string, len(arr))
			for i, v := range arr {
				vals[i] = compute.FormatValue(v)
			}
			fmt.Printf(" = [%s]", strings.Join(vals, ", "))
		}
		fmt.Println()
	}
	for _, name := range env.ScalarNames() {
		v, _ := env.Scalar(name)
		fmt.Printf("%s = %s\n", name, compute.FormatValue(v))
	}
}
