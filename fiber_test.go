package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoRange(t *testing.T) {
	forthTestCases{
		forthTest("range yields one value per call").
			do(": r 0 5 1 CO_RANGE ;").
			do("r . r . r . r . r .").
			expectOutputContains("0 1 2 3 4"),

		forthTest("spent range yields nothing").
			do(": r [ 0 ] [ 2 ] [ 1 ] CO_RANGE ;").
			do("r DROP r DROP").
			do("r r DEPTH").
			expectStack(0),

		forthTest("descending range").
			do(": down [ 3 ] [ 0 ] [ -1 ] CO_RANGE ;").
			do("down . down . down .").
			expectOutputContains("3 2 1"),

		forthTest("non-progressing parameters fail").
			doErr(": bad 5 0 1 CO_RANGE ; bad", errRuntime),

		forthTest("each definition owns its generator").
			do(": r1 0 9 1 CO_RANGE ;  : r2 0 9 1 CO_RANGE ;").
			do("r1 . r1 . r2 .").
			expectOutput("0 1 0 "),
	}.run(t)
}

func TestCoFiber(t *testing.T) {
	forthTestCases{
		forthTest("fiber runs once per scheduler tick").
			do("VARIABLE CNT").
			do(": tick CNT @ 1 + CNT ! 1 ;").
			do(": f [ -1 ] [ 0 ] tick CO_FIBER ;").
			do("f").  // first call creates the fiber
			do("f f"). // later calls enqueue, idempotently
			pump(3).
			do("CNT @").
			expectStack(3),

		forthTest("fiber stops when its body leaves zero").
			do("VARIABLE CNT").
			do(": step CNT @ 1 + DUP CNT ! 3 < ;").
			do(": f [ -1 ] [ 0 ] step CO_FIBER ; f f").
			pump(6).
			do("CNT @").
			expectStack(3),

		forthTest("bounded rotations").
			do("VARIABLE CNT").
			do(": tick CNT @ 1 + CNT ! 1 ;").
			do(": f [ 2 ] [ 1000 ] tick CO_FIBER ; f f").
			pump(4).
			do("CNT @").
			expectStack(2),

		forthTest("interpret-mode fiber is rejected").
			doErr("-1 0 CO_FIBER", errSyntax),
	}.run(t)
}

func TestSchedulerQueue(t *testing.T) {
	vm := New()
	ctx := testCtx()

	require.NoError(t, vm.EvalString(ctx, "VARIABLE CNT : tick CNT @ 1 + CNT ! 1 ;"))
	require.NoError(t, vm.EvalString(ctx, ": f [ -1 ] [ 0 ] tick CO_FIBER ;"))

	require.NoError(t, vm.EvalString(ctx, "f"))
	assert.Len(t, vm.sched.queue, 0, "creation does not enqueue")

	require.NoError(t, vm.EvalString(ctx, "f f f"))
	assert.Len(t, vm.sched.queue, 1, "enqueue is idempotent")

	require.NoError(t, vm.Pump())
	require.NoError(t, vm.EvalString(ctx, "CNT @"))
	assert.Equal(t, []int64{1}, stackSigned(vm.dstack), "one iteration per tick")
}

func TestFiberErrorSurfaces(t *testing.T) {
	vm := New()
	ctx := testCtx()

	require.NoError(t, vm.EvalString(ctx, ": boom 1 0 / 1 ; : f [ -1 ] [ 0 ] boom CO_FIBER ; f f"))
	err := vm.Pump()
	require.Error(t, err, "the fiber's fault reaches the scheduler pump")
	assert.True(t, IsRecoverable(err))

	// the queue drops the dead fiber on the next sweep
	require.NoError(t, vm.Pump())
	assert.Len(t, vm.sched.queue, 0)
}

func TestFiberDoneRemoval(t *testing.T) {
	vm := New()
	ctx := testCtx()

	require.NoError(t, vm.EvalString(ctx, "VARIABLE CNT : once CNT @ 1 + CNT ! 0 ; : f [ -1 ] [ 0 ] once CO_FIBER ; f f"))
	require.NoError(t, vm.Pump()) // runs the single iteration; body left zero
	require.NoError(t, vm.Pump()) // sweep drops the completed handle
	assert.Len(t, vm.sched.queue, 0)

	require.NoError(t, vm.EvalString(ctx, "CNT @"))
	assert.Equal(t, []int64{1}, stackSigned(vm.dstack))
}
