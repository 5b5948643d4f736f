package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/watch"
)

func cmdWatch(args []string) int {
	flags, err := parseRunFlags(args)
	if err != nil || flags.file == "" || flags.file == "-" {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprintln(os.Stderr, "usage: superc watch <file> [--gpu|--cpu|--asm|--low-power] [--json] [--trace]")
		return 1
	}

	cfg, code := loadConfig()
	if code != 0 {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	rerun := func() {
		mu.Lock()
		defer mu.Unlock()
		source, filename, code := readSource(flags.file, flags.prettyOutput(cfg))
		if code != 0 {
			return
		}
		runOnce(ctx, source, filename, flags, cfg)
	}

	w, err := watch.New(func(string) {
		fmt.Fprintf(os.Stderr, "--- %s changed, running again\n", flags.file)
		rerun()
	}, watch.DefaultDelay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	defer w.Close()

	if err := w.Add(flags.file); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}

	rerun()
	fmt.Fprintf(os.Stderr, "watching %s (Ctrl+C to stop)\n", flags.file)
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	return 0
}
