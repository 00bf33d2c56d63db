package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/coforth/coforth/internal/panicerr"
	"github.com/coforth/coforth/internal/source"
)

// New builds a VM with the full built-in word pack loaded.
func New(opts ...Option) *VM {
	var vm VM
	vm.apply(defaults...)
	vm.apply(opts...)
	if vm.rand == nil {
		vm.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	vm.ctx = context.Background()
	vm.registerBuiltins()
	return &vm
}

// AddSource registers an input source name and returns its id for token
// locators.
func (vm *VM) AddSource(name string) source.FileID {
	return vm.files.Add(name)
}

// EvalTokens dispatches one token batch. A forthError unwinds to here: the
// in-progress definition (if any) is rolled back, the stacks are cleared
// when the error demands it, and the error is returned for the shell to
// report. Any other failure is fatal and returned as-is.
func (vm *VM) EvalTokens(ctx context.Context, tokens []Token) error {
	vm.ctx = ctx
	defer func() { vm.ctx = context.Background() }()
	return vm.recoverEval(func() { vm.evalTokens(tokens) })
}

// EvalString tokenizes src as terminal input and evaluates it.
func (vm *VM) EvalString(ctx context.Context, src string) error {
	tz := NewTokenizer(source.NoFile)
	var tokens []Token
	for _, line := range splitLines(src) {
		tokens = append(tokens, tz.Line(line)...)
	}
	return vm.EvalTokens(ctx, tokens)
}

func (vm *VM) recoverEval(fn func()) error {
	err := panicerr.Recover("eval", func() error {
		fn()
		return nil
	})
	if err == nil {
		if ferr := vm.out.Flush(); ferr != nil {
			return ferr
		}
		return nil
	}

	var fe forthError
	if errors.As(err, &fe) {
		vm.rollbackDefinition()
		if fe.clearStacks {
			vm.dstack.clear()
			vm.rstack.clear()
		}
		vm.out.Flush()
		return fe
	}
	return err
}

// IsRecoverable reports whether err is a fault the shell may continue
// after.
func IsRecoverable(err error) bool {
	var fe forthError
	return errors.As(err, &fe)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
