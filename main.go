package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/coforth/coforth/internal/logio"
)

func main() {
	ctx := context.Background()

	var timeout time.Duration
	var trace bool
	var debug bool
	var eval string
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.BoolVar(&debug, "debug", false, "start with the debug tracer on")
	flag.StringVar(&eval, "eval", "", "evaluate the given source and exit")
	flag.Parse()

	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := []Option{
		WithOutput(os.Stdout),
		WithTracer(NewDebugger(os.Stdin, os.Stderr)),
	}
	if trace {
		opts = append(opts, WithLogf(log.Printf))
	}
	vm := New(opts...)
	vm.debug = debug

	if eval != "" {
		if err := vm.EvalString(ctx, eval); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
			os.Exit(1)
		}
		vm.Pump()
		return
	}

	var lines lineSource
	if term.IsTerminal(int(os.Stdin.Fd())) {
		rl, err := NewReadlineSource()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
			os.Exit(1)
		}
		lines = rl
	} else {
		lines = NewPlainSource(os.Stdin, nil)
	}
	defer lines.Close()

	var logger logio.Logger
	logger.SetOutput(os.Stderr)

	sh := NewShell(vm, lines, &logger)
	if err := sh.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
	os.Exit(logger.ExitCode())
}
