package main

import "testing"

func TestConditionals(t *testing.T) {
	forthTestCases{
		forthTest("IF THEN").
			do(": t 1 IF 10 THEN 99 ; t").
			expectStack(10, 99),

		forthTest("IF skipped on zero").
			do(": t 0 IF 10 THEN 99 ; t").
			expectStack(99),

		forthTest("IF ELSE THEN").
			do(": pick01 IF 111 ELSE 222 THEN ;  1 pick01  0 pick01").
			expectStack(111, 222),

		forthTest("nested conditionals").
			do(": t IF 1 IF 2 ELSE 3 THEN ELSE 4 THEN ;  1 1 SWAP DROP t").
			expectStack(2),

		forthTest("THEN without IF").
			doErr(": t THEN ;", errSyntax),

		forthTest("semicolon with an open IF").
			doErr(": t 1 IF ;", errSyntax).
			doErr("t", errUndefined),

		forthTest("IF outside a definition").
			doErr("1 IF", errSyntax),
	}.run(t)
}

func TestIndefiniteLoops(t *testing.T) {
	forthTestCases{
		forthTest("BEGIN UNTIL").
			do(": count5 0 BEGIN 1+ DUP 5 >= UNTIL ; count5").
			expectStack(5),

		forthTest("BEGIN WHILE REPEAT").
			do(": count 0 BEGIN DUP 3 < WHILE 1+ REPEAT ; count").
			expectStack(3),

		forthTest("BEGIN AGAIN with EXIT escape").
			do(": first10 0 BEGIN 1+ DUP 10 >= IF EXIT THEN AGAIN ; first10").
			expectStack(10),

		forthTest("REPEAT without WHILE").
			doErr(": t BEGIN REPEAT ;", errSyntax),
	}.run(t)
}

func TestCountedLoops(t *testing.T) {
	forthTestCases{
		forthTest("sum of loop indices").
			do(": sum10 0 10 0 DO I + LOOP ; sum10 .").
			expectOutputContains("45"),

		forthTest("zero iterations with ?DO").
			do(": none 0 0 ?DO 77 LOOP ; none").
			expectStack(),

		forthTest("?DO still loops on a real range").
			do(": some 0 3 0 ?DO 1+ LOOP ; some").
			expectStack(3),

		forthTest("+LOOP with a wider step").
			do(": evens 0 10 0 DO I + 2 +LOOP ; evens").
			expectStack(20),

		forthTest("+LOOP counts down").
			do(": down 0 0 5 DO I + -1 +LOOP ; down").
			expectStack(15),

		forthTest("zero step fails").
			doErr(": z 5 0 DO 0 +LOOP ; z", errArith),

		forthTest("nested loops see I and J").
			do(": grid 0 2 0 DO 2 0 DO J 10 * I + + LOOP LOOP ; grid").
			expectStack(22),

		forthTest("EXIT leaves the loop early").
			do(": firstover3 10 0 DO I 3 > IF I EXIT THEN LOOP ; firstover3").
			expectStack(4).
			expectRStackEmpty(),
	}.run(t)
}

func TestCaseSelector(t *testing.T) {
	forthTestCases{
		forthTest("selector picks the matching arm").
			do(`: day CASE 1 OF ." Mon" ENDOF 2 OF ." Tue" ENDOF ." ??" ENDCASE ;`).
			do("2 day").
			expectOutputContains("Tue"),

		forthTest("selector default arm").
			do(`: day CASE 1 OF ." Mon" ENDOF 2 OF ." Tue" ENDOF ." ??" ENDCASE ;`).
			do("9 day").
			expectOutputContains("??"),

		forthTest("values survive into the arm").
			do(": classify CASE 0 OF 100 ENDOF 1 OF 200 ENDOF 300 SWAP ENDCASE ; 1 classify").
			expectStack(200),

		forthTest("ENDCASE without CASE").
			doErr(": t ENDCASE ;", errSyntax),
	}.run(t)
}

func TestCompileModeWords(t *testing.T) {
	forthTestCases{
		forthTest("LITERAL bakes a compile-time value").
			do(": five [ 2 3 + ] LITERAL ; five").
			expectStack(5),

		forthTest("bracket pair leaves values for later").
			do(": f [ 41 ] 1 + ; f").
			expectStack(42),

		forthTest("char literal compiles").
			do(": a [CHAR] A ; a").
			expectStack(65),

		forthTest("POSTPONE defers an immediate word").
			do(": my-then POSTPONE THEN ; IMMEDIATE").
			do(": t 1 IF 7 my-then ; t").
			expectStack(7),

		forthTest("IMMEDIATE words run during compilation").
			do(": now 33 ; IMMEDIATE").
			do(": t now LITERAL ; t").
			expectStack(33),

		forthTest("TO compiles inside definitions").
			do("VARIABLE fuel : refill 500 TO fuel ; refill fuel @").
			expectStack(500),

		forthTest("recursion calls the word being defined").
			do(": gcd ?DUP IF TUCK MOD gcd THEN ; 48 18 gcd").
			expectStack(6),

		forthTest("EXIT returns from the definition").
			do(": t 1 EXIT 2 ; t").
			expectStack(1),
	}.run(t)
}

func TestDefinitionComments(t *testing.T) {
	forthTestCases{
		forthTest("FIND shows a colon definition's source").
			do(": double 2 * ;").
			do("FIND double").
			expectOutputContains("2 *"),
	}.run(t)
}
