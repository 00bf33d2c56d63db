package main

import (
	"github.com/coforth/coforth/internal/mem"
	"github.com/coforth/coforth/internal/source"
)

// word is the unit of execution. Every variant shares the same invocation
// contract: no arguments, no results, all effects through the VM's stacks,
// data space, and output stream.
type word interface {
	run(vm *VM)
}

// prim is a built-in leaf operation.
type prim struct {
	fn func(vm *VM)
}

func (w *prim) run(vm *VM) { w.fn(vm) }

// literal pushes a baked-in cell.
type literal struct {
	val Cell
}

func (w *literal) run(vm *VM) { vm.push(w.val) }

// compo is an ordered sequence of child word references. Branch-flavored
// children steer the instruction pointer; everything else just runs.
type compo struct {
	body []word
	locs []source.Location
}

func (w *compo) add(child word, loc source.Location) {
	w.body = append(w.body, child)
	w.locs = append(w.locs, loc)
}

func (w *compo) loc(i int) source.Location {
	if i < len(w.locs) {
		return w.locs[i]
	}
	return source.Location{File: source.NoFile}
}

func (w *compo) run(vm *VM) {
	if vm.logfn != nil {
		defer vm.withLogPrefix("\t")()
	}
	for ip := 0; ip < len(w.body); {
		child := w.body[ip]
		vm.traceChild(child, w.loc(ip))
		switch b := child.(type) {
		case *branch:
			ip += b.offset
			continue
		case *branchIf0:
			if vm.pop() == cellFalse {
				ip += b.offset
				continue
			}
		case *doTail:
			if back, again := b.step(vm); again {
				ip += back
				continue
			}
		default:
			child.run(vm)
			if vm.unwound {
				vm.unwound = false
				return
			}
		}
		ip++
	}
}

// branch is an unconditional jump within the enclosing compo, relative to
// its own index. The offset is patched during compilation.
type branch struct {
	offset int
}

func (w *branch) run(vm *VM) {} // steered by compo.run

func (w *branch) patch(offset int) { w.offset = offset }

// branchIf0 jumps when the popped cell is zero.
type branchIf0 struct {
	offset int
}

func (w *branchIf0) run(vm *VM) {} // steered by compo.run

func (w *branchIf0) patch(offset int) { w.offset = offset }

// patchable is the compile-time interface of forward branch sites.
type patchable interface {
	word
	patch(offset int)
}

// doHead sets up a counted loop: ( limit start -- ) moves both onto the
// return stack.
type doHead struct{}

func (w *doHead) run(vm *VM) {
	start, limit := vm.pop(), vm.pop()
	vm.rpush(limit)
	vm.rpush(start)
}

// qdoHead is the guarded setup emitted by ?DO: equal bounds leave 0 for the
// following branchIf0 to skip the loop body, otherwise the loop runs.
type qdoHead struct{}

func (w *qdoHead) run(vm *VM) {
	start, limit := vm.pop(), vm.pop()
	if start == limit {
		vm.push(cellFalse)
		return
	}
	vm.rpush(limit)
	vm.rpush(start)
	vm.push(cellTrue)
}

// doTail steps a counted loop. plusLoop tails pop their step from the data
// stack; plain LOOP steps by one. back is the negative offset to the loop
// body start, patched at compile.
type doTail struct {
	plusLoop bool
	back     int
}

func (w *doTail) run(vm *VM) {} // steered by compo.run

// step advances the loop index and reports whether to jump back.
func (w *doTail) step(vm *VM) (int, bool) {
	step := int64(1)
	if w.plusLoop {
		step = vm.pop().Signed()
		if step == 0 {
			panic(arithErrf("loop with zero step"))
		}
	}
	idx := vm.rpeek(0, "inside LOOP").Signed() + step
	limit := vm.rpeek(1, "inside LOOP").Signed()
	var done bool
	if step > 0 {
		done = idx >= limit
	} else {
		done = idx <= limit
	}
	if done {
		vm.rpop("inside LOOP")
		vm.rpop("inside LOOP")
		return 0, false
	}
	vm.rstack.setTop(0, signedCell(idx))
	return w.back, true
}

// loopIndex reads a loop counter off the return stack: depth 0 is I, depth
// 2 is J (skipping the inner loop's limit and index).
type loopIndex struct {
	depth int
	name  string
}

func (w *loopIndex) run(vm *VM) {
	vm.push(vm.rpeek(w.depth, "reading "+w.name))
}

// unloop drops one loop's control pair from the return stack; emitted ahead
// of an EXIT branch inside DO ... LOOP.
type unloop struct{}

func (w *unloop) run(vm *VM) {
	vm.rpop("inside EXIT")
	vm.rpop("inside EXIT")
}

// exitDef unwinds the current composite; compiled by EXIT outside any loop.
type exitDef struct{}

func (w *exitDef) run(vm *VM) { vm.unwound = true }

// rawByteArray pushes the base address of a mutable data space region. The
// region may grow through ALLOT while it is the newest allocation.
type rawByteArray struct {
	region *mem.Region
}

func (w *rawByteArray) run(vm *VM) { vm.push(Cell(w.region.Base())) }

// stringWord pushes ( addr len ) of an immutable text blob.
type stringWord struct {
	text   string
	region *mem.Region
}

func (w *stringWord) run(vm *VM) {
	vm.push(Cell(w.region.Base()))
	vm.push(Cell(len(w.text)))
}

// countedWord pushes the address of a counted string: a length byte
// followed by the text.
type countedWord struct {
	text   string
	region *mem.Region
}

func (w *countedWord) run(vm *VM) { vm.push(Cell(w.region.Base())) }

// printWord writes baked text to the output stream; compiled by ." .
type printWord struct {
	text string
}

func (w *printWord) run(vm *VM) { vm.writeString(w.text) }

// abortWord fails with its baked message; compiled by ABORT" .
type abortWord struct {
	text string
}

func (w *abortWord) run(vm *VM) { panic(runtimeErrf("%v", w.text)) }

// toWord pops a cell into the head of a variable's byte array; compiled by
// TO inside a definition.
type toWord struct {
	name   string
	region *mem.Region
}

func (w *toWord) run(vm *VM) {
	v := vm.pop()
	if err := vm.space.StoreCell(w.region.Base(), uint64(v)); err != nil {
		panic(runtimeErrf("TO %v: %v", w.name, err))
	}
}

// doesWord is the two-branch body of a defining word. Invoking the defining
// word runs only the creation branch; the behavior branch is referenced by
// the words the defining word installs.
type doesWord struct {
	creation *compo
	behavior *compo
}

func (w *doesWord) run(vm *VM) { w.creation.run(vm) }
