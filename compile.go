package main

import (
	"strings"

	"github.com/coforth/coforth/internal/source"
)

// defState tracks a definition between ':' and ';'. The shell entry is
// installed at ':' so recursive references bind to the word being defined;
// an error before ';' rolls everything back.
type defState struct {
	name string
	loc  source.Location

	body     *compo // the entry's word; stays pointer-stable across DOES>
	creation *compo // set at DOES>: the children compiled before it
	behavior *compo // set at DOES>: compilation target afterwards

	entry    *wordEntry
	prev     *wordEntry // shadowed entry, restored on rollback
	repoMark int

	immediate bool
	srcNames  []string // definition text, kept as the entry comment
}

// target is the composite currently receiving compiled nodes.
func (def *defState) target() *compo {
	if def.behavior != nil {
		return def.behavior
	}
	return def.body
}

// ctrlKind tags compile-time control stack frames.
type ctrlKind int

const (
	ctrlIf ctrlKind = iota
	ctrlElse
	ctrlBegin
	ctrlWhile
	ctrlDo
	ctrlCase
	ctrlOf
)

var ctrlKindNames = [...]string{"IF", "ELSE", "BEGIN", "WHILE", "DO", "CASE", "OF"}

// ctrlFrame records one unresolved control structure: a forward patch site
// or a backward target, plus exit sites for loops and cases.
type ctrlFrame struct {
	kind  ctrlKind
	site  int
	exits []int
}

func (vm *VM) pushCtrl(f ctrlFrame) { vm.ctrl = append(vm.ctrl, f) }

func (vm *VM) popCtrl(closer string, want ...ctrlKind) ctrlFrame {
	f := vm.topCtrl(closer, want...)
	vm.ctrl = vm.ctrl[:len(vm.ctrl)-1]
	return f
}

func (vm *VM) topCtrl(closer string, want ...ctrlKind) ctrlFrame {
	if len(vm.ctrl) == 0 {
		panic(syntaxErrf("%v without a matching opener", closer))
	}
	f := vm.ctrl[len(vm.ctrl)-1]
	for _, k := range want {
		if f.kind == k {
			return f
		}
	}
	panic(syntaxErrf("%v cannot close %v", closer, ctrlKindNames[f.kind]))
}

// compile emission

// here is the index the next node lands at in the current target body.
func (vm *VM) here() int { return len(vm.def.target().body) }

// compileNode appends an anonymous node to the current definition and the
// repository, returning its body index.
func (vm *VM) compileNode(w word, loc source.Location) int {
	vm.repo = append(vm.repo, w)
	return vm.compileRef(w, loc)
}

// compileRef appends a reference to an existing word.
func (vm *VM) compileRef(w word, loc source.Location) int {
	if vm.def == nil {
		panic(syntaxErrf("compiling outside a definition"))
	}
	t := vm.def.target()
	t.add(w, loc)
	return len(t.body) - 1
}

// patchSite points the forward branch at site to the current here.
func (vm *VM) patchSite(site int) {
	body := vm.def.target().body
	p, ok := body[site].(patchable)
	if !ok {
		panic(syntaxErrf("control structure mismatch"))
	}
	p.patch(vm.here() - site)
}

// beginDefinition handles ':', reading the new word's name and switching to
// compile mode.
func (vm *VM) beginDefinition(ts []Token) []Token {
	if len(ts) < 2 {
		panic(syntaxErrf("Syntax missing word name after :"))
	}
	name, loc := ts[1].Name, ts[1].Loc

	body := &compo{}
	entry := &wordEntry{name: name, word: body, loc: loc}
	def := &defState{
		name:     name,
		loc:      loc,
		body:     body,
		entry:    entry,
		prev:     vm.dict.lookup(name),
		repoMark: len(vm.repo),
	}
	vm.dict.insert(entry)
	vm.def = def
	vm.compiling = true
	vm.logf(":", "defining %v", name)
	return ts[2:]
}

// endDefinition handles ';', finalizing flags and leaving compile mode.
func (vm *VM) endDefinition() {
	def := vm.def
	if def == nil {
		panic(syntaxErrf("; without :"))
	}
	if len(vm.ctrl) > 0 {
		panic(syntaxErrf("unterminated %v in definition of %v",
			ctrlKindNames[vm.ctrl[len(vm.ctrl)-1].kind], def.name))
	}

	if def.behavior != nil {
		does := &doesWord{creation: def.creation, behavior: def.behavior}
		vm.repo = append(vm.repo, does)
		def.body.body = []word{does}
		def.body.locs = []source.Location{def.loc}
		def.entry.defining = true
	}
	def.entry.immediate = def.immediate
	def.entry.comment = strings.Join(def.srcNames, " ")
	vm.lastDefined = def.entry

	vm.def = nil
	vm.compiling = false
	vm.logf(";", "defined %v", def.name)
}

// rollbackDefinition discards an in-progress definition after a compile
// mode fault: the shell entry, and every repository node appended since
// ':'.
func (vm *VM) rollbackDefinition() {
	def := vm.def
	if def == nil {
		return
	}
	vm.dict.remove(def.name, def.prev)
	vm.repo = vm.repo[:def.repoMark]
	vm.ctrl = vm.ctrl[:0]
	vm.def = nil
	vm.compiling = false
}

// compileStep classifies and consumes the leading token in compile mode.
func (vm *VM) compileStep(ts []Token) []Token {
	tok := ts[0]
	name := tok.Name
	if vm.def != nil {
		vm.def.srcNames = append(vm.def.srcNames, name)
	}

	// sequences that consume a following token
	switch {
	case match(name, "[']"):
		if len(ts) < 2 {
			panic(syntaxErrf("Syntax missing word name after [']"))
		}
		entry := vm.dict.lookup(ts[1].Name)
		if entry == nil {
			panic(undefinedErr(ts[1].Name))
		}
		vm.compileNode(&literal{val: vm.handleFor(entry.word)}, tok.Loc)
		return ts[2:]

	case match(name, "[CHAR]"):
		if len(ts) < 2 {
			panic(syntaxErrf("Syntax [CHAR] should be followed by a text"))
		}
		vm.compileNode(&literal{val: Cell(ts[1].Name[0])}, tok.Loc)
		return ts[2:]

	case match(name, "TO"):
		if len(ts) < 2 {
			panic(syntaxErrf("Syntax missing variable name"))
		}
		arr := vm.variableRegion(ts[1].Name)
		vm.compileNode(&toWord{name: ts[1].Name, region: arr}, tok.Loc)
		return ts[2:]

	case match(name, "POSTPONE"):
		if len(ts) < 2 {
			panic(syntaxErrf("Syntax missing word name after POSTPONE"))
		}
		entry := vm.dict.lookup(ts[1].Name)
		if entry == nil {
			panic(undefinedErr(ts[1].Name))
		}
		vm.compileRef(entry.word, ts[1].Loc)
		return ts[2:]
	}

	if name == ";" {
		vm.endDefinition()
		return ts[1:]
	}

	if c, ok := vm.parseInt(name); ok {
		vm.compileNode(&literal{val: c}, tok.Loc)
		return ts[1:]
	}
	if c, ok := vm.parseFloat(name); ok {
		vm.compileNode(&literal{val: c}, tok.Loc)
		return ts[1:]
	}

	entry := vm.dict.lookup(name)
	if entry == nil {
		panic(undefinedErr(name))
	}
	switch {
	case entry.compile != nil:
		entry.compile(vm)
	case entry.immediate:
		entry.word.run(vm)
		vm.unwound = false
	default:
		vm.compileRef(entry.word, tok.Loc)
	}
	return ts[1:]
}

// control flow compilers, run as immediate words

func (vm *VM) requireCompiling(who string) {
	if !vm.compiling || vm.def == nil {
		panic(syntaxErrf("%v outside a definition", who))
	}
}

func (vm *VM) compileIf() {
	vm.requireCompiling("IF")
	site := vm.compileNode(&branchIf0{}, vm.def.loc)
	vm.pushCtrl(ctrlFrame{kind: ctrlIf, site: site})
}

func (vm *VM) compileElse() {
	vm.requireCompiling("ELSE")
	f := vm.popCtrl("ELSE", ctrlIf)
	site := vm.compileNode(&branch{}, vm.def.loc)
	vm.patchSite(f.site)
	vm.pushCtrl(ctrlFrame{kind: ctrlElse, site: site})
}

func (vm *VM) compileThen() {
	vm.requireCompiling("THEN")
	f := vm.popCtrl("THEN", ctrlIf, ctrlElse)
	vm.patchSite(f.site)
}

func (vm *VM) compileBegin() {
	vm.requireCompiling("BEGIN")
	vm.pushCtrl(ctrlFrame{kind: ctrlBegin, site: vm.here()})
}

func (vm *VM) compileAgain() {
	vm.requireCompiling("AGAIN")
	f := vm.popCtrl("AGAIN", ctrlBegin)
	vm.compileNode(&branch{offset: f.site - vm.here()}, vm.def.loc)
}

func (vm *VM) compileUntil() {
	vm.requireCompiling("UNTIL")
	f := vm.popCtrl("UNTIL", ctrlBegin)
	vm.compileNode(&branchIf0{offset: f.site - vm.here()}, vm.def.loc)
}

func (vm *VM) compileWhile() {
	vm.requireCompiling("WHILE")
	vm.topCtrl("WHILE", ctrlBegin)
	site := vm.compileNode(&branchIf0{}, vm.def.loc)
	vm.pushCtrl(ctrlFrame{kind: ctrlWhile, site: site})
}

func (vm *VM) compileRepeat() {
	vm.requireCompiling("REPEAT")
	wf := vm.popCtrl("REPEAT", ctrlWhile)
	bf := vm.popCtrl("REPEAT", ctrlBegin)
	vm.compileNode(&branch{offset: bf.site - vm.here()}, vm.def.loc)
	vm.patchSite(wf.site)
}

func (vm *VM) compileDo() {
	vm.requireCompiling("DO")
	vm.compileNode(&doHead{}, vm.def.loc)
	vm.pushCtrl(ctrlFrame{kind: ctrlDo, site: vm.here()})
}

func (vm *VM) compileQDo() {
	vm.requireCompiling("?DO")
	vm.compileNode(&qdoHead{}, vm.def.loc)
	skip := vm.compileNode(&branchIf0{}, vm.def.loc)
	vm.pushCtrl(ctrlFrame{kind: ctrlDo, site: vm.here(), exits: []int{skip}})
}

func (vm *VM) compileLoop(plus bool) {
	who := "LOOP"
	if plus {
		who = "+LOOP"
	}
	vm.requireCompiling(who)
	f := vm.popCtrl(who, ctrlDo)
	vm.compileNode(&doTail{plusLoop: plus, back: f.site - vm.here()}, vm.def.loc)
	for _, site := range f.exits {
		vm.patchSite(site)
	}
}

// compileExit records a loop exit on the nearest DO frame, or compiles a
// plain return from the definition.
func (vm *VM) compileExit() {
	vm.requireCompiling("EXIT")
	for i := len(vm.ctrl) - 1; i >= 0; i-- {
		if vm.ctrl[i].kind == ctrlDo {
			vm.compileNode(&unloop{}, vm.def.loc)
			site := vm.compileNode(&branch{}, vm.def.loc)
			vm.ctrl[i].exits = append(vm.ctrl[i].exits, site)
			return
		}
	}
	vm.compileNode(&exitDef{}, vm.def.loc)
}

func (vm *VM) compileCase() {
	vm.requireCompiling("CASE")
	vm.pushCtrl(ctrlFrame{kind: ctrlCase})
}

func (vm *VM) compileOf() {
	vm.requireCompiling("OF")
	vm.topCtrl("OF", ctrlCase)
	vm.compileRef(vm.mustWord("OVER"), vm.def.loc)
	vm.compileRef(vm.mustWord("="), vm.def.loc)
	site := vm.compileNode(&branchIf0{}, vm.def.loc)
	vm.compileRef(vm.mustWord("DROP"), vm.def.loc)
	vm.pushCtrl(ctrlFrame{kind: ctrlOf, site: site})
}

func (vm *VM) compileEndOf() {
	vm.requireCompiling("ENDOF")
	of := vm.popCtrl("ENDOF", ctrlOf)
	vm.topCtrl("ENDOF", ctrlCase)
	site := vm.compileNode(&branch{}, vm.def.loc)
	top := len(vm.ctrl) - 1
	vm.ctrl[top].exits = append(vm.ctrl[top].exits, site)
	vm.patchSite(of.site)
}

func (vm *VM) compileEndCase() {
	vm.requireCompiling("ENDCASE")
	f := vm.popCtrl("ENDCASE", ctrlCase)
	vm.compileRef(vm.mustWord("DROP"), vm.def.loc)
	for _, site := range f.exits {
		vm.patchSite(site)
	}
}

// compileDoes splits the definition: children so far become the creation
// branch, subsequent tokens compile into the behavior branch.
func (vm *VM) compileDoes() {
	vm.requireCompiling("DOES>")
	if vm.def.behavior != nil {
		panic(syntaxErrf("DOES> twice in one definition"))
	}
	vm.def.creation = &compo{body: vm.def.body.body, locs: vm.def.body.locs}
	vm.def.behavior = &compo{}
	vm.repo = append(vm.repo, vm.def.creation, vm.def.behavior)
}

// compileLiteral takes the cell on the data stack now and bakes it into the
// definition.
func (vm *VM) compileLiteral() {
	vm.requireCompiling("LITERAL")
	vm.compileNode(&literal{val: vm.pop()}, vm.def.loc)
}

// leaveCompile and enterCompile implement '[' and ']'.
func (vm *VM) leaveCompile() {
	vm.requireCompiling("[")
	vm.compiling = false
}

func (vm *VM) enterCompile() {
	if vm.def == nil {
		panic(syntaxErrf("] without a definition"))
	}
	vm.compiling = true
}

// markImmediate flags the definition in progress, or the latest completed
// one when used after its semicolon.
func (vm *VM) markImmediate() {
	if vm.def != nil {
		vm.def.immediate = true
		return
	}
	if vm.lastDefined != nil {
		vm.lastDefined.immediate = true
	}
}

// mustWord resolves a core word the compiler itself emits.
func (vm *VM) mustWord(name string) word {
	entry := vm.dict.lookup(name)
	if entry == nil {
		panic(undefinedErr(name))
	}
	return entry.word
}
