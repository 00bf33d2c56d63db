package main

import (
	"strings"

	"github.com/coforth/coforth/internal/source"
)

// Set to false to make word lookup case sensitive. Built-in words are
// registered uppercase either way.
const caseInsensitive = true

func canonical(name string) string {
	if caseInsensitive {
		return strings.ToUpper(name)
	}
	return name
}

// wordEntry is a dictionary value: the word plus its metadata.
type wordEntry struct {
	name      string // display casing
	word      word
	comment   string
	immediate bool
	defining  bool
	hidden    bool
	loc       source.Location

	// define, when set, makes this a built-in defining word: the driver
	// consumes the following token and calls it with the new name.
	define func(vm *VM, name string, loc source.Location)

	// compile, when set, overrides how the compiler handles this word
	// inside a definition.
	compile func(vm *VM)
}

// dictionary maps canonical names to word entries, keeping first-insertion
// order for listings. Redefinition shadows: the entry is replaced but any
// compiled reference keeps its original target word.
type dictionary struct {
	entries map[string]*wordEntry
	order   []string
}

func (d *dictionary) lookup(name string) *wordEntry {
	return d.entries[canonical(name)]
}

func (d *dictionary) insert(e *wordEntry) {
	key := canonical(e.name)
	if d.entries == nil {
		d.entries = make(map[string]*wordEntry)
	}
	if _, seen := d.entries[key]; !seen {
		d.order = append(d.order, key)
	}
	d.entries[key] = e
}

// remove drops the entry for name, restoring prev if non-nil. Used only to
// roll back a definition shell after a compile error.
func (d *dictionary) remove(name string, prev *wordEntry) {
	key := canonical(name)
	if prev != nil {
		d.entries[key] = prev
		return
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// each visits entries in insertion order.
func (d *dictionary) each(fn func(e *wordEntry)) {
	for _, key := range d.order {
		if e := d.entries[key]; e != nil && !e.hidden {
			fn(e)
		}
	}
}

// nameOf finds the dictionary name currently bound to w, for trace output.
func (d *dictionary) nameOf(w word) string {
	for _, key := range d.order {
		if e := d.entries[key]; e != nil && e.word == w {
			return e.name
		}
	}
	return ""
}
