package main

import (
	"io"
	"math/rand"

	"github.com/coforth/coforth/internal/flushio"
)

// Option configures a VM being built by New.
type Option interface{ apply(vm *VM) }

var defaults = []Option{
	withOutput(io.Discard),
}

func (vm *VM) apply(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(vm)
		}
	}
}

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(vm *VM) { vm.logfn = logfn }

type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type tracerOption struct{ Tracer }
type seedOption int64

func withOutput(w io.Writer) outputOption { return outputOption{w} }

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.WriteFlushers(vm.out, flushio.NewWriteFlusher(o.Writer))
}

func (o tracerOption) apply(vm *VM) { vm.tracer = o.Tracer }

func (s seedOption) apply(vm *VM) { vm.rand = rand.New(rand.NewSource(int64(s))) }

// WithOutput directs the words that print ( . EMIT TYPE CR and friends ) at w.
func WithOutput(w io.Writer) Option { return withOutput(w) }

// WithTee copies output to an additional writer.
func WithTee(w io.Writer) Option { return teeOption{w} }

// WithLogf enables engine trace logging through a printf-style function.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// WithTracer installs the debug tracer driven by DEBUGGER ON.
func WithTracer(t Tracer) Option { return tracerOption{t} }

// WithRandSeed pins the RANDOM word's sequence, mostly for tests.
func WithRandSeed(seed int64) Option { return seedOption(seed) }
