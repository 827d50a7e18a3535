package main

import "strconv"

// native is a word implemented in Go.
type native interface {
	exec(vm *VM) error
}

type nativeFunc func(vm *VM) error

func (f nativeFunc) exec(vm *VM) error { return f(vm) }

// word is either native, or compiled into the instruction store starting at
// body. Macro words run even while compiling.
type word struct {
	macro  bool
	native native
	body   uint
}

// dictionary holds every word ever defined, indexed by a dense id. Names
// resolve to the most recent word defined under them; ids are never reused.
type dictionary struct {
	words []word
	names []string
	ids   map[string]uint
}

func (dict *dictionary) define(name string, w word) (id uint) {
	id = uint(len(dict.words))
	dict.words = append(dict.words, w)
	dict.names = append(dict.names, name)
	if dict.ids == nil {
		dict.ids = make(map[string]uint)
	}
	dict.ids[name] = id
	return id
}

// unbind reverts name to prior, but only if it is still bound to id.
func (dict *dictionary) unbind(name string, id, prior uint, shadowed bool) {
	if cur, bound := dict.ids[name]; !bound || cur != id {
		return
	}
	if shadowed {
		dict.ids[name] = prior
	} else {
		delete(dict.ids, name)
	}
}

func (dict dictionary) lookup(name string) (id uint, defined bool) {
	id, defined = dict.ids[name]
	return id, defined
}

func (dict dictionary) word(id uint) (word, bool) {
	if id < uint(len(dict.words)) {
		return dict.words[id], true
	}
	return word{}, false
}

func (dict dictionary) name(id uint) string {
	if id < uint(len(dict.names)) {
		return dict.names[id]
	}
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// wordAt returns the compiled word whose body contains addr, assuming that
// bodies are laid out in definition order.
func (dict dictionary) wordAt(addr uint) (id uint, found bool) {
	for i := len(dict.words) - 1; i >= 0; i-- {
		if w := dict.words[i]; w.native == nil && w.body <= addr {
			return uint(i), true
		}
	}
	return 0, false
}
