package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/coforth/coforth/internal/source"
)

// Tracer receives every dispatched token and every composite child while
// debugging is on. The default is no tracer at all.
type Tracer interface {
	Before(vm *VM, name string, loc source.Location)
	After(vm *VM, name string, loc source.Location)
}

// Debugger is the interactive tracer: it prompts before each dispatch and
// understands a tiny protocol. c continues, s dumps the stack signed, d
// dumps it unsigned, x turns debugging off, a aborts the batch.
type Debugger struct {
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

// NewDebugger builds a Debugger around the given prompt streams.
func NewDebugger(in io.Reader, out io.Writer) *Debugger {
	return &Debugger{In: in, Out: out, r: bufio.NewReader(in)}
}

func (dbg *Debugger) Before(vm *VM, name string, loc source.Location) {
	fmt.Fprintf(dbg.Out, "\nTo exec >> %v  @ (%v,%v)\nStack dump: ", name, loc.Line, loc.Col)
	fmt.Fprintf(dbg.Out, "(c) cont, (s) signd st.dump & cont, (d) unsignd st.dump & cont, (x) stop debug & cont, (a) abort: ")

	switch c := dbg.readCommand(); c {
	case 's', 'S':
		dbg.dumpStack(vm, true)
	case 'd', 'D':
		dbg.dumpStack(vm, false)
	case 'x', 'X':
		vm.debug = false
	case 'a', 'A':
		panic(runtimeErrf("DEBUGGING aborted by a user"))
	}
}

func (dbg *Debugger) After(vm *VM, name string, loc source.Location) {}

// readCommand skips blanks and returns the next command character, or 'c'
// at end of input.
func (dbg *Debugger) readCommand() byte {
	for {
		c, err := dbg.r.ReadByte()
		if err != nil {
			return 'c'
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return c
		}
	}
}

func (dbg *Debugger) dumpStack(vm *VM, signed bool) {
	base := vm.readBase()
	for _, c := range vm.dstack.data() {
		if signed {
			fmt.Fprintf(dbg.Out, "%v ", strconv.FormatInt(c.Signed(), base))
		} else {
			fmt.Fprintf(dbg.Out, "%v ", strconv.FormatUint(uint64(c), base))
		}
	}
	fmt.Fprintln(dbg.Out)
}
