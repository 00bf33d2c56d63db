package main

import (
	"fmt"
	"strings"

	"github.com/coforth/coforth/internal/runeio"
)

// logging carries the injectable trace function shared by the interpreter,
// compiler, and scheduler.
type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) withLogPrefix(prefix string) func() {
	logfn := log.logfn
	log.logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() {
		log.logfn = logfn
	}
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		for _, r := range mark {
			mark = strings.Repeat(string(r), n) + mark
			break
		}
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}

// halt aborts the run with a non-recoverable error, flushing output first.
func (vm *VM) halt(err error) {
	func() {
		defer func() { recover() }()
		if vm.out != nil {
			if ferr := vm.out.Flush(); err == nil {
				err = ferr
			}
		}
	}()
	func() {
		defer func() { recover() }()
		vm.logf("#", "halt error: %v", err)
	}()
	panic(haltError{err})
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}
func (err haltError) Unwrap() error { return err.error }

func (vm *VM) writeRune(r rune) {
	if _, err := runeio.WriteANSIRune(vm.out, r); err != nil {
		vm.halt(err)
	}
}

func (vm *VM) writeString(s string) {
	if _, err := runeio.WriteANSIString(vm.out, s); err != nil {
		vm.halt(err)
	}
}
