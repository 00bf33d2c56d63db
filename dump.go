package main

import "strconv"

// dumper renders dictionary listings and stack dumps onto the VM's output
// stream.
type dumper struct {
	vm *VM
}

// words lists dictionary names in insertion order, a few per line.
func (d dumper) words() {
	const perLine = 8
	n := 0
	d.vm.dict.each(func(e *wordEntry) {
		d.vm.writeString(e.name)
		n++
		if n%perLine == 0 {
			d.vm.writeString("\n")
		} else {
			d.vm.writeString("\t")
		}
	})
	if n%perLine != 0 {
		d.vm.writeString("\n")
	}
}

// stack dumps the data stack bottom first, in the current base.
func (d dumper) stack(signed bool) {
	vm := d.vm
	base := vm.readBase()
	vm.writeString("<" + strconv.Itoa(vm.dstack.size()) + "> ")
	for _, c := range vm.dstack.data() {
		if signed {
			vm.writeString(strconv.FormatInt(c.Signed(), base))
		} else {
			vm.writeString(strconv.FormatUint(uint64(c), base))
		}
		vm.writeString(" ")
	}
}
