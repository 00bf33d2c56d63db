package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forthTestCases []*forthTestCase

func (fts forthTestCases) run(t *testing.T) {
	for _, ft := range fts {
		if !t.Run(ft.name, ft.run) {
			return
		}
	}
}

func forthTest(name string) *forthTestCase {
	return &forthTestCase{name: name}
}

type forthTestCase struct {
	name    string
	opts    []Option
	ops     []func(t *testing.T, vm *VM)
	expects []func(t *testing.T, vm *VM)
	out     strings.Builder
	timeout time.Duration
}

func (ft *forthTestCase) withOptions(opts ...Option) *forthTestCase {
	ft.opts = append(ft.opts, opts...)
	return ft
}

// do evaluates one batch of source, which must succeed.
func (ft *forthTestCase) do(src string) *forthTestCase {
	ft.ops = append(ft.ops, func(t *testing.T, vm *VM) {
		require.NoError(t, vm.EvalString(context.Background(), src), "eval %q", src)
	})
	return ft
}

// doErr evaluates one batch expecting a recoverable fault of the given
// kind.
func (ft *forthTestCase) doErr(src string, kind errKind) *forthTestCase {
	ft.ops = append(ft.ops, func(t *testing.T, vm *VM) {
		err := vm.EvalString(context.Background(), src)
		require.Error(t, err, "eval %q", src)
		var fe forthError
		require.True(t, errors.As(err, &fe), "eval %q: unexpected %+v", src, err)
		assert.Equal(t, errKindNames[kind], errKindNames[fe.kind], "eval %q error kind", src)
	})
	return ft
}

// pump sweeps the fiber scheduler n times.
func (ft *forthTestCase) pump(n int) *forthTestCase {
	ft.ops = append(ft.ops, func(t *testing.T, vm *VM) {
		for i := 0; i < n; i++ {
			require.NoError(t, vm.Pump(), "pump %v", i)
		}
	})
	return ft
}

func (ft *forthTestCase) expect(fn func(t *testing.T, vm *VM)) *forthTestCase {
	ft.expects = append(ft.expects, fn)
	return ft
}

// expectStack asserts the data stack contents, bottom first, as signed
// values.
func (ft *forthTestCase) expectStack(values ...int64) *forthTestCase {
	if values == nil {
		values = []int64{}
	}
	return ft.expect(func(t *testing.T, vm *VM) {
		assert.Equal(t, values, stackSigned(vm.dstack), "expected stack values")
	})
}

func (ft *forthTestCase) expectRStackEmpty() *forthTestCase {
	return ft.expect(func(t *testing.T, vm *VM) {
		assert.Equal(t, 0, vm.rstack.size(), "expected empty return stack")
	})
}

func (ft *forthTestCase) expectOutput(output string) *forthTestCase {
	return ft.expect(func(t *testing.T, vm *VM) {
		assert.Equal(t, output, ft.out.String(), "expected output")
	})
}

func (ft *forthTestCase) expectOutputContains(output string) *forthTestCase {
	return ft.expect(func(t *testing.T, vm *VM) {
		assert.Contains(t, ft.out.String(), output, "expected output fragment")
	})
}

func (ft *forthTestCase) run(t *testing.T) {
	opts := append([]Option{WithOutput(&ft.out), WithRandSeed(1)}, ft.opts...)
	vm := New(opts...)

	for _, op := range ft.ops {
		op(t, vm)
		if t.Failed() {
			return
		}
	}
	for _, expect := range ft.expects {
		expect(t, vm)
	}
}

func testCtx() context.Context { return context.Background() }

func stackSigned(s cellStack) []int64 {
	out := make([]int64, 0, s.size())
	for _, c := range s.data() {
		out = append(out, c.Signed())
	}
	return out
}
