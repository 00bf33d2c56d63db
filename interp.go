package main

import (
	"context"
	"math/rand"
	"regexp"
	"strconv"

	"github.com/coforth/coforth/internal/flushio"
	"github.com/coforth/coforth/internal/mem"
	"github.com/coforth/coforth/internal/source"
)

// VM is one interpreter instance: dictionary, node repository, data space,
// both stacks, and the fiber scheduler. Instances are independent; nothing
// is shared between two VMs.
type VM struct {
	logging

	out flushio.WriteFlusher

	dict dictionary
	repo []word // owning storage for anonymous nodes

	space   mem.Space
	handles []word // tick handles: cell -> word

	dstack cellStack
	rstack cellStack

	compiling   bool
	def         *defState
	ctrl        []ctrlFrame
	lastDefined *wordEntry

	// unwound is set by EXIT to stop the innermost running composite.
	unwound bool

	latest  *mem.Region // most recently created byte array, target of ALLOT and ,
	baseVar *mem.Region // backing cell of the BASE variable
	pad     *mem.Region

	files  source.Map
	tracer Tracer
	debug  bool

	sched scheduler
	rand  *rand.Rand

	ctx context.Context
}

// stack access

func (vm *VM) push(c Cell) { vm.dstack.push(c) }

func (vm *VM) pop() Cell {
	c, ok := vm.dstack.pop()
	if !ok {
		panic(underflowErr("popping the data stack"))
	}
	return c
}

func (vm *VM) rpush(c Cell) { vm.rstack.push(c) }

func (vm *VM) rpop(what string) Cell {
	c, ok := vm.rstack.pop()
	if !ok {
		panic(underflowErr(what))
	}
	return c
}

func (vm *VM) rpeek(depth int, what string) Cell {
	c, ok := vm.rstack.peek(depth)
	if !ok {
		panic(underflowErr(what))
	}
	return c
}

// data space helpers

// newArray reserves a fresh byte array node in the repository and makes it
// the target of ALLOT and comma.
func (vm *VM) newArray(size int) *rawByteArray {
	w := &rawByteArray{region: vm.space.Alloc(size)}
	vm.repo = append(vm.repo, w)
	vm.latest = w.region
	return w
}

func (vm *VM) loadCell(addr Cell) Cell {
	v, err := vm.space.LoadCell(uint64(addr))
	if err != nil {
		panic(runtimeErrf("%v", err))
	}
	return Cell(v)
}

func (vm *VM) storeCell(addr, val Cell) {
	if err := vm.space.StoreCell(uint64(addr), uint64(val)); err != nil {
		panic(runtimeErrf("%v", err))
	}
}

// readBase reads the BASE variable, defaulting to decimal on nonsense.
func (vm *VM) readBase() int {
	switch b := mem.HeadCell(vm.baseVar); b {
	case 2, 8, 10, 16:
		return int(b)
	default:
		return 10
	}
}

// literal classification, per the original's regular expressions: integers
// in the current base, 0x-prefixed hex in any base, floats with a
// mandatory dot.
var (
	intPatterns = map[int]*regexp.Regexp{
		2:  regexp.MustCompile(`^[+-]?[01]+$`),
		8:  regexp.MustCompile(`^[+-]?[0-7]+$`),
		10: regexp.MustCompile(`^[+-]?\d+$`),
		16: regexp.MustCompile(`^[+-]?[\da-fA-F]+$`),
	}
	hexPattern   = regexp.MustCompile(`^0[xX][\da-fA-F]+$`)
	floatPattern = regexp.MustCompile(`^[+-]?(\d+[.]\d*([eE][+-]?\d+)?|[.]\d+([eE][+-]?\d+)?)$`)
)

// parseInt classifies tok as an integer literal in the current base. The
// second result is false when tok is not an integer literal; a token that
// matches the pattern but does not fit a cell raises a parse error.
func (vm *VM) parseInt(tok string) (Cell, bool) {
	if hexPattern.MatchString(tok) {
		n, err := strconv.ParseUint(tok[2:], 16, 64)
		if err != nil {
			panic(parseErrf("wrong format of the integer literal %v", tok))
		}
		return Cell(n), true
	}
	base := vm.readBase()
	if !intPatterns[base].MatchString(tok) {
		return 0, false
	}
	n, err := strconv.ParseInt(tok, base, 64)
	if err != nil {
		panic(parseErrf("wrong format of the integer literal %v", tok))
	}
	return signedCell(n), true
}

func (vm *VM) parseFloat(tok string) (Cell, bool) {
	if !floatPattern.MatchString(tok) {
		return 0, false
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		panic(parseErrf("wrong format of the float literal %v", tok))
	}
	return floatCell(f), true
}

// tick handles

// handleFor interns w and returns its stable cell-width handle.
func (vm *VM) handleFor(w word) Cell {
	for i, h := range vm.handles {
		if h == w {
			return Cell(i + 1)
		}
	}
	vm.handles = append(vm.handles, w)
	return Cell(len(vm.handles))
}

func (vm *VM) handleWord(c Cell) word {
	if i := int(c) - 1; i >= 0 && i < len(vm.handles) {
		return vm.handles[i]
	}
	panic(runtimeErrf("invalid execution handle %v", uint64(c)))
}

// the driver

// evalTokens dispatches a token batch, consuming tokens until none remain.
func (vm *VM) evalTokens(ts []Token) {
	for len(ts) > 0 {
		vm.haltif(vm.ctx.Err())
		ts = vm.step(ts)
	}
}

func (vm *VM) haltif(err error) {
	if err != nil {
		vm.halt(err)
	}
}

func (vm *VM) step(ts []Token) []Token {
	tok := ts[0]
	vm.trace(tok.Name, tok.Loc, true)
	defer vm.trace(tok.Name, tok.Loc, false)

	vm.logf(">", "token %q %v", tok.Name, vm.files.Resolve(tok.Loc))

	if rest, done := vm.commonSequences(ts); done {
		return rest
	}
	if vm.compiling {
		return vm.compileStep(ts)
	}
	return vm.interpretStep(ts)
}

// commonSequences handles token sequences recognized in both modes: the
// debugger toggle, comments, and the quoted-text words.
func (vm *VM) commonSequences(ts []Token) ([]Token, bool) {
	switch name := ts[0].Name; {
	case match(name, "DEBUGGER"):
		if len(ts) < 2 {
			panic(syntaxErrf("Missing 'ON' or 'OFF' in DEBUGGER command"))
		}
		switch arg := ts[1].Name; {
		case match(arg, "ON"):
			vm.debug = true
		case match(arg, "OFF"):
			vm.debug = false
		default:
			panic(syntaxErrf("Missing 'ON' or 'OFF' in DEBUGGER command"))
		}
		return ts[2:], true

	case name == "(":
		return skipComment(ts[1:]), true

	case match(name, `."`):
		rest, text := collectText(ts[1:], `."`)
		if vm.compiling {
			vm.compileNode(&printWord{text: text}, ts[0].Loc)
		} else {
			vm.writeString(text)
		}
		return rest, true

	case match(name, `S"`):
		rest, text := collectText(ts[1:], `S"`)
		w := &stringWord{text: text, region: vm.space.AllocBytes([]byte(text))}
		vm.repo = append(vm.repo, w)
		if vm.compiling {
			vm.compileNode(w, ts[0].Loc)
		} else {
			w.run(vm)
		}
		return rest, true

	case match(name, `C"`):
		rest, text := collectText(ts[1:], `C"`)
		w := &countedWord{text: text, region: vm.space.AllocBytes(countedBytes(text))}
		vm.repo = append(vm.repo, w)
		if vm.compiling {
			vm.compileNode(w, ts[0].Loc)
		} else {
			w.run(vm)
		}
		return rest, true

	case match(name, `ABORT"`):
		rest, text := collectText(ts[1:], `ABORT"`)
		if vm.compiling {
			vm.compileNode(&abortWord{text: text}, ts[0].Loc)
			return rest, true
		}
		panic(runtimeErrf("%v", text))

	case match(name, `,"`):
		rest, text := collectText(ts[1:], `,"`)
		vm.commaText(text)
		return rest, true
	}
	return ts, false
}

// commaText appends a counted string (length byte then characters) to the
// most recently created byte array.
func (vm *VM) commaText(text string) {
	if vm.latest == nil {
		panic(syntaxErrf(`," without a CREATEd array`))
	}
	for _, b := range countedBytes(text) {
		if err := vm.space.Grow(vm.latest, 1); err != nil {
			panic(runtimeErrf("%v", err))
		}
		vm.latest.Bytes()[vm.latest.Len()-1] = b
	}
}

// interpretStep classifies and consumes the leading token in interpret
// mode.
func (vm *VM) interpretStep(ts []Token) []Token {
	if rest, done := vm.contextSequences(ts); done {
		return rest
	}

	tok := ts[0]
	name := tok.Name
	if name == ":" {
		return vm.beginDefinition(ts)
	}

	if c, ok := vm.parseInt(name); ok {
		vm.push(c)
		return ts[1:]
	}
	if c, ok := vm.parseFloat(name); ok {
		vm.push(c)
		return ts[1:]
	}

	entry := vm.dict.lookup(name)
	if entry == nil {
		panic(undefinedErr(name))
	}

	if entry.defining {
		if len(ts) < 2 {
			panic(syntaxErrf("Syntax missing variable name for the defining word"))
		}
		vm.instantiate(entry, ts[1].Name, ts[1].Loc)
		return ts[2:]
	}

	entry.word.run(vm)
	vm.unwound = false
	return ts[1:]
}

// contextSequences handles the interpret-mode prefixes that consume a fixed
// number of following tokens.
func (vm *VM) contextSequences(ts []Token) ([]Token, bool) {
	need := func(what string) {
		if len(ts) < 2 {
			panic(syntaxErrf("Syntax missing %v", what))
		}
	}

	switch name := ts[0].Name; {
	case match(name, "FIND"):
		need("word name")
		if entry := vm.dict.lookup(ts[1].Name); entry != nil {
			tag := ""
			if entry.immediate {
				tag = "\t\timmediate"
			}
			vm.writeString("Word " + ts[1].Name + " found ==> ( " + entry.comment + " )" + tag + "\n")
		} else {
			vm.writeString("Unknown word " + ts[1].Name + "\n")
		}
		return ts[2:], true

	case name == "'":
		need("word name")
		entry := vm.dict.lookup(ts[1].Name)
		if entry == nil {
			panic(undefinedErr(ts[1].Name))
		}
		vm.push(vm.handleFor(entry.word))
		return ts[2:], true

	case match(name, "TO"):
		need("variable name")
		arr := vm.variableRegion(ts[1].Name)
		v := vm.pop()
		vm.storeCell(Cell(arr.Base()), v)
		return ts[2:], true

	case match(name, "CHAR"):
		need("text after CHAR")
		vm.push(Cell(ts[1].Name[0]))
		return ts[2:], true

	case match(name, "CREATE"):
		// rewritten to the plain defining word and processed as usual
		ts[0].Name = "[CREATE]"
		return ts, false
	}
	return ts, false
}

// variableRegion resolves name to the byte array behind a variable.
func (vm *VM) variableRegion(name string) *mem.Region {
	entry := vm.dict.lookup(name)
	if entry == nil {
		panic(undefinedErr(name))
	}
	if cw, ok := entry.word.(*compo); ok && len(cw.body) > 0 {
		if arr, ok := cw.body[0].(*rawByteArray); ok {
			return arr.region
		}
	}
	panic(syntaxErrf("%v is not a variable", name))
}

// instantiate runs a defining word against a new name: built-in defining
// words install through their hook; DOES> words follow the two phase
// protocol, running the creation branch and then wiring the fresh byte
// array to the behavior branch under the new name.
func (vm *VM) instantiate(entry *wordEntry, name string, loc source.Location) {
	if entry.define != nil {
		entry.define(vm, name, loc)
		return
	}

	cw, ok := entry.word.(*compo)
	if !ok || len(cw.body) != 1 {
		panic(syntaxErrf("%v cannot define new words", entry.name))
	}
	does, ok := cw.body[0].(*doesWord)
	if !ok {
		panic(syntaxErrf("%v cannot define new words", entry.name))
	}

	mark := len(vm.repo)
	does.run(vm)

	if len(vm.repo) == mark {
		panic(runtimeErrf("missing CREATE action in the defining word"))
	}
	arr, ok := vm.repo[len(vm.repo)-1].(*rawByteArray)
	if !ok {
		panic(runtimeErrf("missing CREATE action in the defining word"))
	}

	defined := &compo{}
	defined.add(arr, loc)
	if len(does.behavior.body) > 0 {
		defined.add(does.behavior, loc)
	}
	vm.dict.insert(&wordEntry{
		name:    name,
		word:    defined,
		comment: "DOES>" + entry.name,
		loc:     loc,
	})
}

// tracing

func (vm *VM) trace(name string, loc source.Location, before bool) {
	if !vm.debug || vm.tracer == nil {
		return
	}
	if before {
		vm.tracer.Before(vm, name, loc)
	} else {
		vm.tracer.After(vm, name, loc)
	}
}

// traceChild reports a composite child dispatch to the trace log and the
// tracer. Name lookup walks the dictionary, so it only happens while one of
// them is listening.
func (vm *VM) traceChild(child word, loc source.Location) {
	debugging := vm.debug && vm.tracer != nil
	if vm.logfn == nil && !debugging {
		return
	}
	name := vm.dict.nameOf(child)
	vm.logf(".", "word %v %v", name, vm.files.Resolve(loc))
	if debugging {
		vm.tracer.Before(vm, name, loc)
	}
}

// match compares a token against a canonical name, honoring the case
// policy.
func match(token, name string) bool {
	return canonical(token) == name
}

// countedBytes lays out text as a counted string. Texts longer than one
// length byte allows are truncated.
func countedBytes(text string) []byte {
	n := len(text)
	if n > 255 {
		n = 255
	}
	out := make([]byte, 0, n+1)
	out = append(out, byte(n))
	return append(out, text[:n]...)
}
