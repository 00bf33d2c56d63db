package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiterals(t *testing.T) {
	forthTestCases{
		forthTest("decimal integers").
			do("42 -7 +0 007").
			expectStack(42, -7, 0, 7),

		forthTest("hex prefix works in any base").
			do("0x1A 0XfF").
			expectStack(26, 255),

		forthTest("HEX parses plain and prefixed alike").
			do("HEX 1A 0x1A").
			expectStack(26, 26),

		forthTest("DECIMAL rejects hex digits").
			do("HEX 1A DECIMAL").
			doErr("1A", errUndefined).
			expectStack(),

		forthTest("BASE variable drives parsing").
			do("16 BASE ! FF 10 BASE !").
			expectStack(255),

		forthTest("floats require a dot").
			do("1.5 2.25 F+ F.").
			expectOutput("3.75 "),

		forthTest("float bits round trip through S>F and F>S").
			do("7 S>F 2.0 F* F>S").
			expectStack(14),
	}.run(t)
}

func TestArithmetic(t *testing.T) {
	forthTestCases{
		forthTest("basics").
			do("7 3 + 10 2 - 6 4 * 9 3 /").
			expectStack(10, 8, 24, 3),

		forthTest("MOD and /MOD").
			do("17 5 MOD 17 5 /MOD").
			expectStack(2, 2, 3),

		forthTest("*/ keeps a widened intermediate").
			do("5000000000000000000 3 5 */").
			expectStack(3000000000000000000),

		forthTest("*/MOD leaves remainder and quotient").
			do("7 3 2 */MOD").
			expectStack(1, 10),

		forthTest("division by zero fails").
			doErr("1 0 /", errArith).
			expectStack(),

		forthTest("comparisons push canonical one and zero").
			do("3 3 = 3 4 = 3 4 < 4 3 <= 0 0= -1 0<").
			expectStack(1, 0, 1, 0, 1, 1),

		forthTest("logic words").
			do("12 10 AND 12 10 OR 12 10 XOR 1 3 LSHIFT").
			expectStack(8, 14, 6, 8),
	}.run(t)
}

func TestStackWords(t *testing.T) {
	forthTestCases{
		forthTest("inverse pairs restore the stack").
			do("1 2 3 DUP DROP SWAP SWAP >R R>").
			expectStack(1, 2, 3).
			expectRStackEmpty(),

		forthTest("manipulators").
			do("1 2 OVER").
			expectStack(1, 2, 1),

		forthTest("rot and two-variants").
			do("1 2 3 ROT 10 20 2DUP").
			expectStack(2, 3, 1, 10, 20, 10, 20),

		forthTest("pick and roll").
			do("11 22 33 2 PICK 3 ROLL").
			expectStack(22, 33, 11, 11),

		forthTest("depth").
			do("DEPTH 5 DEPTH").
			expectStack(0, 5, 2),

		forthTest("n DUP = pushes one").
			do("-9223372036854775808 DUP =").
			expectStack(1),
	}.run(t)
}

func TestVariables(t *testing.T) {
	forthTestCases{
		forthTest("variable round trip").
			do("VARIABLE foo  17 foo !  foo @").
			expectStack(17),

		forthTest("plus-store").
			do("VARIABLE foo 4 foo ! 3 foo +! foo @").
			expectStack(7),

		forthTest("TO writes the cell head").
			do("VARIABLE fuel  234 TO fuel  fuel @").
			expectStack(234),

		forthTest("constant round trip").
			do("42 CONSTANT life life life").
			expectStack(42, 42),

		forthTest("CREATE with comma").
			do("CREATE TWOS 2 , 4 , 8 ,").
			do("TWOS @ TWOS CELL+ @ TWOS CELL+ CELL+ @").
			expectStack(2, 4, 8),

		forthTest("byte fetch and store").
			do("CREATE BUF 4 ALLOT  65 BUF C!  BUF C@").
			expectStack(65),

		forthTest("CHAR pushes the first character").
			do("CHAR A CHAR zulu").
			expectStack(65, 122),

		forthTest("CELLS and CHARS scale counts").
			do("3 CELLS 3 CHARS").
			expectStack(24, 3),
	}.run(t)
}

func TestTickAndExecute(t *testing.T) {
	forthTestCases{
		forthTest("tick then execute equals a direct call").
			do(": bar 2 3 + ;  ' bar EXECUTE  bar").
			expectStack(5, 5),

		forthTest("tick survives redefinition").
			do(": bar 1 ;  ' bar  : bar 2 ;  EXECUTE  bar").
			expectStack(1, 2),

		forthTest("compiled references keep their original target").
			do(": one 1 ;  : caller one ;  : one 100 ;  caller one").
			expectStack(1, 100),

		forthTest("compiling tick binds at compile time").
			do(": bar 9 ;  : getbar ['] bar ;  : bar 0 ;  getbar EXECUTE").
			expectStack(9),
	}.run(t)
}

func TestTextWords(t *testing.T) {
	forthTestCases{
		forthTest("dot-quote prints immediately").
			do(`." Hello world"`).
			expectOutput("Hello world"),

		forthTest("dot-quote compiles into a definition").
			do(`: greet ." hi there" ;`).
			do("greet").
			expectOutput("hi there"),

		forthTest("s-quote leaves addr len for TYPE").
			do(`S" abc def" TYPE`).
			expectOutput("abc def"),

		forthTest("c-quote makes a counted string").
			do(`C" four" COUNT TYPE`).
			expectOutput("four"),

		forthTest("comma-quote appends a counted string to an array").
			do(`CREATE AGH ," University of Science and Technology"`).
			do("AGH COUNT TYPE").
			expectOutputContains("University of Science and Technology"),

		forthTest("abort-quote fails with its message").
			doErr(`: boom ABORT" all wrong" ; boom`, errRuntime).
			expectStack(),

		forthTest("paren comments are skipped").
			do("1 ( this is ( nested ) ignored ) 2").
			expectStack(1, 2),

		forthTest("backslash comments run to end of line").
			do("1 \\ 2 3 4\n5").
			expectStack(1, 5),
	}.run(t)
}

func TestFindOutput(t *testing.T) {
	forthTestCases{
		forthTest("found word shows its comment").
			do("FIND DUP").
			expectOutputContains("Word DUP found ==> ( ( a -- a a ) )"),

		forthTest("immediate words are tagged").
			do("FIND IF").
			expectOutputContains("immediate"),

		forthTest("unknown word").
			do("FIND NOPE_NOT_HERE").
			expectOutputContains("Unknown word NOPE_NOT_HERE"),
	}.run(t)
}

func TestErrorIsolation(t *testing.T) {
	forthTestCases{
		forthTest("underflow clears both stacks").
			do(": half 2 / ;").
			doErr("half", errUnderflow).
			expectStack().
			expectRStackEmpty(),

		forthTest("underflow leaves the dictionary intact").
			do(": half 2 / ;").
			doErr("half", errUnderflow).
			do("8 half").
			expectStack(4),

		forthTest("lexical faults leave the stacks alone").
			do("1 2").
			doErr("FIND", errSyntax).
			expectStack(1, 2),

		forthTest("undefined word clears the stacks").
			do("1 2").
			doErr("no-such-word", errUndefined).
			expectStack(),

		forthTest("compile fault discards the partial definition").
			doErr(": broken 1 +junk& ;", errUndefined).
			doErr("broken", errUndefined).
			do(": broken 7 ; broken").
			expectStack(7),

		forthTest("ABORT clears the stacks").
			do("1 2 3").
			doErr("ABORT", errRuntime).
			expectStack(),
	}.run(t)
}

func TestCaseInsensitiveLookup(t *testing.T) {
	forthTestCases{
		forthTest("lower case finds upper case words").
			do("3 4 swap dup").
			expectStack(4, 3, 3),

		forthTest("redefinition shadows either casing").
			do(": greet 1 ; : GREET 2 ; greet").
			expectStack(2),
	}.run(t)
}

func TestCompositeMatchesInterpreted(t *testing.T) {
	a := New()
	b := New()
	ctx := testCtx()
	assert.NoError(t, a.EvalString(ctx, ": seq 1 2 + 3 * 4 SWAP ; seq"))
	assert.NoError(t, b.EvalString(ctx, "1 2 + 3 * 4 SWAP"))
	assert.Equal(t, stackSigned(b.dstack), stackSigned(a.dstack),
		"a straight-line composite behaves like interpreting its tokens")
}
