package main

import (
	"math/bits"
	"strconv"
	"time"

	"github.com/coforth/coforth/internal/source"
)

// Register installs a built-in word: a canonical name, a comment shown by
// FIND, the immediate flag, and a zero-argument callable with access to the
// stacks and output stream. External modules plug in through this.
func (vm *VM) Register(name, comment string, immediate bool, fn func(vm *VM)) {
	vm.dict.insert(&wordEntry{
		name:      name,
		word:      &prim{fn: fn},
		comment:   comment,
		immediate: immediate,
		loc:       source.Location{File: source.NoFile},
	})
}

// registerBuiltins loads every module. Order matters: later modules lean on
// words from earlier ones.
func (vm *VM) registerBuiltins() {
	vm.registerCore()
	vm.registerStack()
	vm.registerMemory()
	vm.registerCompiler()
	vm.registerFloat()
	vm.registerText()
	vm.registerRandom()
	vm.registerTime()
	vm.registerFibers()
}

func binop(fn func(a, b int64) int64) func(vm *VM) {
	return func(vm *VM) {
		b, a := vm.pop().Signed(), vm.pop().Signed()
		vm.push(signedCell(fn(a, b)))
	}
}

func cmpop(fn func(a, b int64) bool) func(vm *VM) {
	return func(vm *VM) {
		b, a := vm.pop().Signed(), vm.pop().Signed()
		vm.push(boolCell(fn(a, b)))
	}
}

func nonzero(v int64, what string) int64 {
	if v == 0 {
		panic(arithErrf("division by zero in %v", what))
	}
	return v
}

// mulDivMod computes a*b/c and a*b%c through a widened intermediate so the
// product does not wrap.
func mulDivMod(a, b, c int64) (int64, int64) {
	neg := (a < 0) != (b < 0)
	ua, ub := absU(a), absU(b)
	hi, lo := bits.Mul64(ua, ub)
	uc := absU(nonzero(c, "*/"))
	if hi >= uc {
		panic(arithErrf("*/ result out of range"))
	}
	uq, ur := bits.Div64(hi, lo, uc)
	q, r := int64(uq), int64(ur)
	if neg {
		q, r = -q, -r
	}
	if c < 0 {
		q = -q
	}
	return q, r
}

func absU(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func (vm *VM) registerCore() {
	vm.Register("+", "( a b -- a+b ) integer addition", false, binop(func(a, b int64) int64 { return a + b }))
	vm.Register("-", "( a b -- a-b ) integer subtraction", false, binop(func(a, b int64) int64 { return a - b }))
	vm.Register("*", "( a b -- a*b ) integer multiplication", false, binop(func(a, b int64) int64 { return a * b }))
	vm.Register("/", "( a b -- a/b ) integer division", false, binop(func(a, b int64) int64 { return a / nonzero(b, "/") }))
	vm.Register("MOD", "( a b -- a%b ) division remainder", false, binop(func(a, b int64) int64 { return a % nonzero(b, "MOD") }))
	vm.Register("/MOD", "( a b -- rem quot ) remainder and quotient", false, func(vm *VM) {
		b, a := vm.pop().Signed(), vm.pop().Signed()
		nonzero(b, "/MOD")
		vm.push(signedCell(a % b))
		vm.push(signedCell(a / b))
	})
	vm.Register("*/", "( a b c -- a*b/c ) with a widened intermediate", false, func(vm *VM) {
		c, b, a := vm.pop().Signed(), vm.pop().Signed(), vm.pop().Signed()
		q, _ := mulDivMod(a, b, c)
		vm.push(signedCell(q))
	})
	vm.Register("*/MOD", "( a b c -- rem quot ) widened multiply then divide", false, func(vm *VM) {
		c, b, a := vm.pop().Signed(), vm.pop().Signed(), vm.pop().Signed()
		q, r := mulDivMod(a, b, c)
		vm.push(signedCell(r))
		vm.push(signedCell(q))
	})
	vm.Register("1+", "( a -- a+1 )", false, func(vm *VM) { vm.push(signedCell(vm.pop().Signed() + 1)) })
	vm.Register("1-", "( a -- a-1 )", false, func(vm *VM) { vm.push(signedCell(vm.pop().Signed() - 1)) })
	vm.Register("2*", "( a -- a*2 )", false, func(vm *VM) { vm.push(signedCell(vm.pop().Signed() << 1)) })
	vm.Register("2/", "( a -- a/2 )", false, func(vm *VM) { vm.push(signedCell(vm.pop().Signed() >> 1)) })
	vm.Register("NEGATE", "( a -- -a )", false, func(vm *VM) { vm.push(signedCell(-vm.pop().Signed())) })
	vm.Register("ABS", "( a -- |a| )", false, func(vm *VM) {
		if v := vm.pop().Signed(); v < 0 {
			vm.push(signedCell(-v))
		} else {
			vm.push(signedCell(v))
		}
	})
	vm.Register("MIN", "( a b -- min )", false, binop(func(a, b int64) int64 {
		if a < b {
			return a
		}
		return b
	}))
	vm.Register("MAX", "( a b -- max )", false, binop(func(a, b int64) int64 {
		if a > b {
			return a
		}
		return b
	}))

	vm.Register("AND", "( a b -- a&b ) bitwise and", false, binop(func(a, b int64) int64 { return a & b }))
	vm.Register("OR", "( a b -- a|b ) bitwise or", false, binop(func(a, b int64) int64 { return a | b }))
	vm.Register("XOR", "( a b -- a^b ) bitwise xor", false, binop(func(a, b int64) int64 { return a ^ b }))
	vm.Register("INVERT", "( a -- ~a ) bitwise complement", false, func(vm *VM) { vm.push(Cell(^uint64(vm.pop()))) })
	vm.Register("LSHIFT", "( a n -- a<<n )", false, func(vm *VM) {
		n, a := vm.pop(), vm.pop()
		vm.push(a << (n & 63))
	})
	vm.Register("RSHIFT", "( a n -- a>>n )", false, func(vm *VM) {
		n, a := vm.pop(), vm.pop()
		vm.push(a >> (n & 63))
	})

	vm.Register("=", "( a b -- flag ) 1 when equal", false, cmpop(func(a, b int64) bool { return a == b }))
	vm.Register("<>", "( a b -- flag ) 1 when different", false, cmpop(func(a, b int64) bool { return a != b }))
	vm.Register("<", "( a b -- flag )", false, cmpop(func(a, b int64) bool { return a < b }))
	vm.Register(">", "( a b -- flag )", false, cmpop(func(a, b int64) bool { return a > b }))
	vm.Register("<=", "( a b -- flag )", false, cmpop(func(a, b int64) bool { return a <= b }))
	vm.Register(">=", "( a b -- flag )", false, cmpop(func(a, b int64) bool { return a >= b }))
	vm.Register("0=", "( a -- flag )", false, func(vm *VM) { vm.push(boolCell(vm.pop() == 0)) })
	vm.Register("0<", "( a -- flag )", false, func(vm *VM) { vm.push(boolCell(vm.pop().Signed() < 0)) })
	vm.Register("0>", "( a -- flag )", false, func(vm *VM) { vm.push(boolCell(vm.pop().Signed() > 0)) })

	vm.Register(".", "( a -- ) print signed, in the current base", false, func(vm *VM) {
		vm.writeString(strconv.FormatInt(vm.pop().Signed(), vm.readBase()) + " ")
	})
	vm.Register("U.", "( a -- ) print unsigned, in the current base", false, func(vm *VM) {
		vm.writeString(strconv.FormatUint(uint64(vm.pop()), vm.readBase()) + " ")
	})
	vm.Register("EMIT", "( ch -- ) write one character", false, func(vm *VM) { vm.writeRune(rune(vm.pop())) })
	vm.Register("CR", "( -- ) write a newline", false, func(vm *VM) { vm.writeString("\n") })
	vm.Register("SPACE", "( -- ) write one blank", false, func(vm *VM) { vm.writeString(" ") })
	vm.Register("SPACES", "( n -- ) write n blanks", false, func(vm *VM) {
		for n := vm.pop().Signed(); n > 0; n-- {
			vm.writeString(" ")
		}
	})

	vm.Register("EXECUTE", "( handle -- ) run the word a tick left", false, func(vm *VM) {
		w := vm.handleWord(vm.pop())
		w.run(vm)
		vm.unwound = false
	})
	vm.Register("ABORT", "( -- ) fail, clearing both stacks", false, func(vm *VM) {
		panic(runtimeErrf("ABORT"))
	})
	vm.Register("WORDS", "( -- ) list dictionary names", false, func(vm *VM) {
		dumper{vm: vm}.words()
	})
	vm.Register(".S", "( -- ) dump the data stack", false, func(vm *VM) {
		dumper{vm: vm}.stack(true)
	})
}

func (vm *VM) registerStack() {
	vm.Register("DUP", "( a -- a a )", false, func(vm *VM) {
		a := vm.pop()
		vm.push(a)
		vm.push(a)
	})
	vm.Register("?DUP", "( a -- a a | 0 ) duplicate unless zero", false, func(vm *VM) {
		a := vm.pop()
		vm.push(a)
		if a != 0 {
			vm.push(a)
		}
	})
	vm.Register("DROP", "( a -- )", false, func(vm *VM) { vm.pop() })
	vm.Register("SWAP", "( a b -- b a )", false, func(vm *VM) {
		b, a := vm.pop(), vm.pop()
		vm.push(b)
		vm.push(a)
	})
	vm.Register("OVER", "( a b -- a b a )", false, func(vm *VM) {
		b, a := vm.pop(), vm.pop()
		vm.push(a)
		vm.push(b)
		vm.push(a)
	})
	vm.Register("ROT", "( a b c -- b c a )", false, func(vm *VM) {
		c, b, a := vm.pop(), vm.pop(), vm.pop()
		vm.push(b)
		vm.push(c)
		vm.push(a)
	})
	vm.Register("NIP", "( a b -- b )", false, func(vm *VM) {
		b := vm.pop()
		vm.pop()
		vm.push(b)
	})
	vm.Register("TUCK", "( a b -- b a b )", false, func(vm *VM) {
		b, a := vm.pop(), vm.pop()
		vm.push(b)
		vm.push(a)
		vm.push(b)
	})
	vm.Register("2DUP", "( a b -- a b a b )", false, func(vm *VM) {
		b, a := vm.pop(), vm.pop()
		vm.push(a)
		vm.push(b)
		vm.push(a)
		vm.push(b)
	})
	vm.Register("2DROP", "( a b -- )", false, func(vm *VM) {
		vm.pop()
		vm.pop()
	})
	vm.Register("2SWAP", "( a b c d -- c d a b )", false, func(vm *VM) {
		d, c, b, a := vm.pop(), vm.pop(), vm.pop(), vm.pop()
		vm.push(c)
		vm.push(d)
		vm.push(a)
		vm.push(b)
	})
	vm.Register("2OVER", "( a b c d -- a b c d a b )", false, func(vm *VM) {
		d, c, b, a := vm.pop(), vm.pop(), vm.pop(), vm.pop()
		vm.push(a)
		vm.push(b)
		vm.push(c)
		vm.push(d)
		vm.push(a)
		vm.push(b)
	})
	vm.Register("PICK", "( ... n -- ... x ) copy the n-th entry up", false, func(vm *VM) {
		n := int(vm.pop().Signed())
		c, ok := vm.dstack.peek(n)
		if !ok {
			panic(underflowErr("in PICK"))
		}
		vm.push(c)
	})
	vm.Register("ROLL", "( ... n -- ... x ) rotate the n-th entry to the top", false, func(vm *VM) {
		n := int(vm.pop().Signed())
		if n < 0 || n >= vm.dstack.size() {
			panic(underflowErr("in ROLL"))
		}
		i := vm.dstack.size() - 1 - n
		x := vm.dstack[i]
		copy(vm.dstack[i:], vm.dstack[i+1:])
		vm.dstack[vm.dstack.size()-1] = x
	})
	vm.Register("DEPTH", "( -- n ) data stack depth", false, func(vm *VM) {
		vm.push(signedCell(int64(vm.dstack.size())))
	})
	vm.Register(">R", "( a -- ) move to the return stack", false, func(vm *VM) { vm.rpush(vm.pop()) })
	vm.Register("R>", "( -- a ) move from the return stack", false, func(vm *VM) { vm.push(vm.rpop("in R>")) })
	vm.Register("R@", "( -- a ) copy the return stack top", false, func(vm *VM) { vm.push(vm.rpeek(0, "in R@")) })
}

func (vm *VM) registerMemory() {
	vm.Register("@", "( addr -- x ) fetch a cell", false, func(vm *VM) { vm.push(vm.loadCell(vm.pop())) })
	vm.Register("!", "( x addr -- ) store a cell", false, func(vm *VM) {
		addr, x := vm.pop(), vm.pop()
		vm.storeCell(addr, x)
	})
	vm.Register("+!", "( n addr -- ) add into a cell", false, func(vm *VM) {
		addr, n := vm.pop(), vm.pop()
		vm.storeCell(addr, signedCell(vm.loadCell(addr).Signed()+n.Signed()))
	})
	vm.Register("C@", "( addr -- ch ) fetch a byte", false, func(vm *VM) {
		b, err := vm.space.LoadByte(uint64(vm.pop()))
		if err != nil {
			panic(runtimeErrf("%v", err))
		}
		vm.push(Cell(b))
	})
	vm.Register("C!", "( ch addr -- ) store a byte", false, func(vm *VM) {
		addr, ch := vm.pop(), vm.pop()
		if err := vm.space.StoreByte(uint64(addr), byte(ch)); err != nil {
			panic(runtimeErrf("%v", err))
		}
	})
	vm.Register("CELLS", "( n -- n*cell )", false, func(vm *VM) {
		vm.push(signedCell(vm.pop().Signed() * cellSize))
	})
	vm.Register("CELL+", "( addr -- addr+cell )", false, func(vm *VM) {
		vm.push(signedCell(vm.pop().Signed() + cellSize))
	})
	vm.Register("CHARS", "( n -- n )", false, func(vm *VM) {})
	vm.Register("CHAR+", "( addr -- addr+1 )", false, func(vm *VM) {
		vm.push(signedCell(vm.pop().Signed() + 1))
	})
	vm.Register("HERE", "( -- addr ) next free data space address", false, func(vm *VM) {
		vm.push(Cell(vm.space.End()))
	})
	vm.Register("ALLOT", "( n -- ) extend the newest array by n bytes", false, func(vm *VM) {
		n := vm.pop().Signed()
		if vm.latest == nil {
			panic(syntaxErrf("ALLOT without a CREATEd array"))
		}
		if err := vm.space.Grow(vm.latest, int(n)); err != nil {
			panic(runtimeErrf("%v", err))
		}
	})
	vm.Register(",", "( x -- ) append a cell to the newest array", false, func(vm *VM) {
		if vm.latest == nil {
			panic(syntaxErrf(", without a CREATEd array"))
		}
		if err := vm.space.AppendCell(vm.latest, uint64(vm.pop())); err != nil {
			panic(runtimeErrf("%v", err))
		}
	})
	vm.Register("CMOVE", "( from to u -- ) copy bytes", false, func(vm *VM) {
		u, to, from := vm.pop(), vm.pop(), vm.pop()
		b, err := vm.space.Load(uint64(from), int(u.Signed()))
		if err == nil {
			err = vm.space.Store(uint64(to), b)
		}
		if err != nil {
			panic(runtimeErrf("%v", err))
		}
	})
	vm.Register("FILL", "( addr u ch -- ) fill bytes", false, func(vm *VM) {
		ch, u, addr := vm.pop(), vm.pop(), vm.pop()
		for i := int64(0); i < u.Signed(); i++ {
			if err := vm.space.StoreByte(uint64(addr)+uint64(i), byte(ch)); err != nil {
				panic(runtimeErrf("%v", err))
			}
		}
	})

	// defining words and the variables they lean on
	vm.dict.insert(&wordEntry{
		name:     "[CREATE]",
		comment:  "( -- ) reserve a fresh byte array under the following name",
		defining: true,
		word:     &prim{fn: func(vm *VM) { vm.newArray(0) }},
		define: func(vm *VM, name string, loc source.Location) {
			arr := vm.newArray(0)
			w := &compo{}
			w.add(arr, loc)
			vm.dict.insert(&wordEntry{name: name, word: w, comment: "CREATE " + name, loc: loc})
		},
	})
	// CREATE is rewritten to [CREATE] by the driver in interpret mode; the
	// alias makes it compilable inside a defining word's creation branch.
	createEntry := vm.dict.lookup("[CREATE]")
	vm.dict.insert(&wordEntry{
		name:     "CREATE",
		comment:  createEntry.comment,
		defining: true,
		word:     createEntry.word,
		define:   createEntry.define,
	})
	vm.dict.insert(&wordEntry{
		name:     "VARIABLE",
		comment:  "( -- ) create a one-cell variable under the following name",
		defining: true,
		word:     &prim{fn: func(vm *VM) { vm.newArray(cellSize) }},
		define: func(vm *VM, name string, loc source.Location) {
			arr := vm.newArray(cellSize)
			w := &compo{}
			w.add(arr, loc)
			vm.dict.insert(&wordEntry{name: name, word: w, comment: "VARIABLE " + name, loc: loc})
		},
	})
	vm.dict.insert(&wordEntry{
		name:     "CONSTANT",
		comment:  "( x -- ) create a word pushing x under the following name",
		defining: true,
		word: &prim{fn: func(vm *VM) {
			panic(syntaxErrf("CONSTANT needs a following name"))
		}},
		define: func(vm *VM, name string, loc source.Location) {
			lit := &literal{val: vm.pop()}
			vm.repo = append(vm.repo, lit)
			w := &compo{}
			w.add(lit, loc)
			vm.dict.insert(&wordEntry{name: name, word: w, comment: "CONSTANT " + name, loc: loc})
		},
	})

	// BASE drives literal parsing and numeric output
	base := vm.newArray(cellSize)
	vm.baseVar = base.region
	vm.storeCell(Cell(base.region.Base()), 10)
	baseWord := &compo{}
	baseWord.add(base, source.Location{File: source.NoFile})
	vm.dict.insert(&wordEntry{name: "BASE", word: baseWord, comment: "( -- addr ) numeric conversion base"})

	vm.Register("DECIMAL", "( -- ) parse and print in base 10", false, func(vm *VM) {
		vm.storeCell(Cell(vm.baseVar.Base()), 10)
	})
	vm.Register("HEX", "( -- ) parse and print in base 16", false, func(vm *VM) {
		vm.storeCell(Cell(vm.baseVar.Base()), 16)
	})

	// the PAD scratch area
	pad := vm.newArray(padSize)
	vm.pad = pad.region
	padWord := &compo{}
	padWord.add(pad, source.Location{File: source.NoFile})
	vm.dict.insert(&wordEntry{name: "PAD", word: padWord, comment: "( -- addr ) scratch byte area"})
}

// padSize matches the original's 8 kB temporary storage area.
const padSize = 8 * 1024

func (vm *VM) registerCompiler() {
	imm := func(name, comment string, fn func(vm *VM)) {
		vm.Register(name, comment, true, fn)
	}
	imm(";", "( -- ) close the definition", func(vm *VM) { vm.endDefinition() })
	imm("IF", "( flag -- ) branch unless flag", func(vm *VM) { vm.compileIf() })
	imm("ELSE", "( -- ) the other branch", func(vm *VM) { vm.compileElse() })
	imm("THEN", "( -- ) close IF", func(vm *VM) { vm.compileThen() })
	imm("BEGIN", "( -- ) open a loop", func(vm *VM) { vm.compileBegin() })
	imm("AGAIN", "( -- ) loop forever", func(vm *VM) { vm.compileAgain() })
	imm("UNTIL", "( flag -- ) loop until flag", func(vm *VM) { vm.compileUntil() })
	imm("WHILE", "( flag -- ) loop guard", func(vm *VM) { vm.compileWhile() })
	imm("REPEAT", "( -- ) close BEGIN WHILE", func(vm *VM) { vm.compileRepeat() })
	imm("DO", "( limit start -- ) open a counted loop", func(vm *VM) { vm.compileDo() })
	imm("?DO", "( limit start -- ) counted loop, possibly empty", func(vm *VM) { vm.compileQDo() })
	imm("LOOP", "( -- ) step the counted loop by one", func(vm *VM) { vm.compileLoop(false) })
	imm("+LOOP", "( step -- ) step the counted loop", func(vm *VM) { vm.compileLoop(true) })
	imm("EXIT", "( -- ) leave the loop or definition", func(vm *VM) { vm.compileExit() })
	imm("CASE", "( -- ) open a selector", func(vm *VM) { vm.compileCase() })
	imm("OF", "( x sel -- x | ) one selector arm", func(vm *VM) { vm.compileOf() })
	imm("ENDOF", "( -- ) close the arm", func(vm *VM) { vm.compileEndOf() })
	imm("ENDCASE", "( x -- ) close the selector", func(vm *VM) { vm.compileEndCase() })
	imm("DOES>", "( -- ) start the behavior branch of a defining word", func(vm *VM) { vm.compileDoes() })
	imm("LITERAL", "( x -- ) bake the cell on the stack into the definition", func(vm *VM) { vm.compileLiteral() })
	imm("[", "( -- ) leave compile mode", func(vm *VM) { vm.leaveCompile() })
	imm("IMMEDIATE", "( -- ) mark the definition immediate", func(vm *VM) { vm.markImmediate() })

	vm.Register("]", "( -- ) re-enter compile mode", false, func(vm *VM) { vm.enterCompile() })

	// loop counters read the return stack, skipping control pairs
	i := &loopIndex{depth: 0, name: "I"}
	j := &loopIndex{depth: 2, name: "J"}
	vm.dict.insert(&wordEntry{name: "I", word: i, comment: "( -- n ) current loop counter"})
	vm.dict.insert(&wordEntry{name: "J", word: j, comment: "( -- n ) outer loop counter"})
}

func fbinop(fn func(a, b float64) float64) func(vm *VM) {
	return func(vm *VM) {
		b, a := vm.pop().Float(), vm.pop().Float()
		vm.push(floatCell(fn(a, b)))
	}
}

func (vm *VM) registerFloat() {
	vm.Register("F+", "( fa fb -- fa+fb )", false, fbinop(func(a, b float64) float64 { return a + b }))
	vm.Register("F-", "( fa fb -- fa-fb )", false, fbinop(func(a, b float64) float64 { return a - b }))
	vm.Register("F*", "( fa fb -- fa*fb )", false, fbinop(func(a, b float64) float64 { return a * b }))
	vm.Register("F/", "( fa fb -- fa/fb )", false, fbinop(func(a, b float64) float64 { return a / b }))
	vm.Register("FNEGATE", "( fa -- -fa )", false, func(vm *VM) { vm.push(floatCell(-vm.pop().Float())) })
	vm.Register("F<", "( fa fb -- flag )", false, func(vm *VM) {
		b, a := vm.pop().Float(), vm.pop().Float()
		vm.push(boolCell(a < b))
	})
	vm.Register("F.", "( fa -- ) print a float", false, func(vm *VM) {
		vm.writeString(strconv.FormatFloat(vm.pop().Float(), 'g', -1, 64) + " ")
	})
	vm.Register("S>F", "( n -- fa ) integer to float", false, func(vm *VM) {
		vm.push(floatCell(float64(vm.pop().Signed())))
	})
	vm.Register("F>S", "( fa -- n ) float to integer, truncating", false, func(vm *VM) {
		vm.push(signedCell(int64(vm.pop().Float())))
	})
}

func (vm *VM) registerText() {
	vm.Register("TYPE", "( addr u -- ) write u bytes", false, func(vm *VM) {
		u, addr := vm.pop(), vm.pop()
		b, err := vm.space.Load(uint64(addr), int(u.Signed()))
		if err != nil {
			panic(runtimeErrf("%v", err))
		}
		vm.writeString(string(b))
	})
	vm.Register("COUNT", "( c-addr -- addr u ) open a counted string", false, func(vm *VM) {
		addr := vm.pop()
		n, err := vm.space.LoadByte(uint64(addr))
		if err != nil {
			panic(runtimeErrf("%v", err))
		}
		vm.push(addr + 1)
		vm.push(Cell(n))
	})
}

func (vm *VM) registerRandom() {
	vm.Register("RANDOM", "( n -- r ) a random cell in [0,n)", false, func(vm *VM) {
		n := vm.pop().Signed()
		if n <= 0 {
			panic(arithErrf("RANDOM needs a positive range, got %v", n))
		}
		vm.push(signedCell(vm.rand.Int63n(n)))
	})
}

func (vm *VM) registerTime() {
	vm.Register("TICKS", "( -- ms ) wall clock milliseconds", false, func(vm *VM) {
		vm.push(signedCell(time.Now().UnixMilli()))
	})
	vm.Register("MS", "( n -- ) sleep n milliseconds", false, func(vm *VM) {
		if n := vm.pop().Signed(); n > 0 {
			time.Sleep(time.Duration(n) * time.Millisecond)
		}
	})
}

func (vm *VM) registerFibers() {
	vm.dict.insert(&wordEntry{
		name:    "CO_RANGE",
		comment: "( from to step -- ) lazy integer range, one value per call",
		word: &prim{fn: func(vm *VM) {
			g := &coRange{}
			vm.repo = append(vm.repo, g)
			g.run(vm)
		}},
		compile: func(vm *VM) {
			vm.compileNode(&coRange{}, vm.def.loc)
		},
	})
	vm.dict.insert(&wordEntry{
		name:    "CO_FIBER",
		comment: "( rotations ms -- ) time-sliced fiber over the words before it",
		word: &prim{fn: func(vm *VM) {
			panic(syntaxErrf("CO_FIBER outside a definition"))
		}},
		compile: func(vm *VM) {
			t := vm.def.target()
			assoc := &compo{body: t.body, locs: t.locs}
			t.body, t.locs = nil, nil
			f := &coFiber{assoc: assoc}
			vm.repo = append(vm.repo, assoc)
			vm.compileNode(f, vm.def.loc)
		},
	})
}
