/* Package main: an interactive Forth-like interpreter-compiler.

The engine reads whitespace-delimited tokens, keeps a dictionary of named
words, and either executes words at once (interpretation) or appends them to
the body of a word under construction (compilation). The same primitives
serve on both sides of the : ; boundary, which is what makes the system a
member of the Forth family.

Words are a tagged sum: primitives carry a Go function, composites an
ordered list of references into the node repository and the dictionary,
plus literals, branches, counted strings, byte arrays, loop heads and
tails, and the two coroutine-backed words. Control flow is rewritten at
compile time through a private control stack of unresolved branch sites;
CREATE ... DOES> words bake new words at run time; CO_RANGE embeds lazy
integer ranges and CO_FIBER time-sliced cooperative tasks, resumed by a
ready-queue pumped between reads.

Errors are typed and recoverable: a fault unwinds the current token batch,
optionally clears the stacks, rolls back any half-built definition, and
returns control to the shell.
*/
package main
