package main

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jcorbin/gothread/internal/runeio"
)

// builtins is the native word catalog, installed in order by compileBuiltins
// so that each word's id is its index here.
var builtins []builtin

type builtin struct {
	name  string
	macro bool
	nativeFunc
}

func init() {
	builtins = []builtin{
		// Words that control the machine itself run even while compiling.
		{"quit", true, (*VM).quit},
		{":", true, (*VM).defineWord},
		{"!", true, (*VM).defineMacro},
		{";", true, (*VM).endDefinition},
		{"cm.set", true, (*VM).cmSet},
		{"cm.get", true, (*VM).cmGet},
		{"cm.true", true, (*VM).cmTrue},
		{"cm.false", true, (*VM).cmFalse},
		{"@", true, (*VM).tick},

		// Inspection
		{".s", false, (*VM).printStack},
		{".r", false, (*VM).printRStack},

		// Input
		{"peekch", false, (*VM).peekch},
		{"getch", false, (*VM).getch},

		// Compiling instructions; control structures are built from these.
		{"op.lit", false, (*VM).opLit},
		{"op.call", false, (*VM).opCall},
		{"op.cond", false, (*VM).opCond},
		{"op.jmp", false, (*VM).opJmp},
		{"op.ret", false, (*VM).opRet},

		// Arithmetic
		{"+", false, binaryOp(func(a, b uint) uint { return a + b })},
		{"-", false, binaryOp(func(a, b uint) uint { return a - b })},
		{"*", false, binaryOp(func(a, b uint) uint { return a * b })},
		{"/", false, divisionOp(func(a, b uint) uint { return a / b })},
		{"%", false, divisionOp(func(a, b uint) uint { return a % b })},

		// Output
		{"emit", false, (*VM).emit},
		{"here", false, (*VM).pushHere},
	}
}

func (vm *VM) compileBuiltins() {
	for _, bi := range builtins {
		vm.dictionary.define(bi.name, word{macro: bi.macro, native: bi.nativeFunc})
	}
}

//// Machine control

func (vm *VM) quit() error {
	vm.halted = true
	return nil
}

func (vm *VM) defineWord() error  { return vm.beginDefinition(false) }
func (vm *VM) defineMacro() error { return vm.beginDefinition(true) }

// beginDefinition reads a name, and starts compiling a new word under it.
// Definitions do not nest: the open one must be ended first.
func (vm *VM) beginDefinition(macro bool) error {
	if def := vm.pending; def != nil {
		return unendedDefinition(def.name)
	}
	name, err := vm.scan()
	if err == io.EOF {
		return errEmptyToken
	} else if err != nil {
		return err
	}
	def := definition{name: name}
	def.prior, def.shadowed = vm.lookup(name)
	def.id = vm.dictionary.define(name, word{macro: macro, body: vm.here()})
	vm.logf("#", "define %q #%v @%v macro:%v", name, def.id, vm.here(), macro)
	vm.compiling = true
	vm.pending = &def
	return nil
}

func (vm *VM) endDefinition() error {
	vm.compile(ret())
	vm.compiling = false
	vm.pending = nil
	return nil
}

func (vm *VM) cmSet() error {
	val, err := vm.pop()
	if err != nil {
		return err
	}
	vm.compiling = val != 0
	return nil
}

func (vm *VM) cmGet() error {
	if vm.compiling {
		vm.push(1)
	} else {
		vm.push(0)
	}
	return nil
}

func (vm *VM) cmTrue() error  { vm.compiling = true; return nil }
func (vm *VM) cmFalse() error { vm.compiling = false; return nil }

// tick reads the next token, and pushes the id of the word it names.
func (vm *VM) tick() error {
	name, err := vm.scan()
	if err == io.EOF {
		return errEmptyToken
	} else if err != nil {
		return err
	}
	id, defined := vm.lookup(name)
	if !defined {
		return wordNotFound(name)
	}
	vm.push(id)
	return nil
}

//// Inspection

func (vm *VM) printStack() error {
	var sb strings.Builder
	sb.WriteString("[ ")
	for _, val := range vm.stack {
		sb.WriteString(strconv.FormatUint(uint64(val), 10))
		sb.WriteByte(' ')
	}
	sb.WriteString("]\n")
	vm.printf("%s", sb.String())
	return nil
}

func (vm *VM) printRStack() error {
	for i, addr := range vm.rstack {
		vm.printf("%v - %v\n", i, vm.addrName(addr))
	}
	return nil
}

//// Input

// peekch pushes the next input rune without consuming it, or 0 at the end
// of an input source. Once all input is exhausted it pushes 0 and halts.
func (vm *VM) peekch() error {
	r, err := vm.peekRune()
	vm.pushRune(r, err)
	return nil
}

// getch is like peekch, but consumes the rune.
func (vm *VM) getch() error {
	r, err := vm.readRune()
	vm.pushRune(r, err)
	return nil
}

func (vm *VM) pushRune(r rune, err error) {
	if err == io.EOF {
		vm.logf("#", "input exhausted")
		vm.halted = true
		r = 0
	} else if vm.logfn != nil {
		vm.logf("#", "read %v", runeio.Mnemonic(r))
	}
	vm.push(uint(r))
}

//// Compiling instructions

func (vm *VM) opLit() error  { return vm.compileOp(lit) }
func (vm *VM) opCall() error { return vm.compileOp(call) }
func (vm *VM) opCond() error { return vm.compileOp(cond) }
func (vm *VM) opJmp() error  { return vm.compileOp(jmp) }

func (vm *VM) compileOp(op func(uint) instruction) error {
	arg, err := vm.pop()
	if err != nil {
		return err
	}
	vm.compile(op(arg))
	return nil
}

// opRet appends a return, consuming an operand like the other emitters.
func (vm *VM) opRet() error {
	return vm.compileOp(func(uint) instruction { return ret() })
}

//// Arithmetic

// binaryOp pops a then b, and pushes a op b.
func binaryOp(op func(a, b uint) uint) nativeFunc {
	return func(vm *VM) error {
		a, b, err := vm.pop2()
		if err != nil {
			return err
		}
		vm.push(op(a, b))
		return nil
	}
}

func divisionOp(op func(a, b uint) uint) nativeFunc {
	return func(vm *VM) error {
		if n := len(vm.stack); n >= 2 && vm.stack[n-2] == 0 {
			return errDivisionByZero
		}
		return binaryOp(op)(vm)
	}
}

//// Output

func (vm *VM) emit() error {
	val, err := vm.pop()
	if err != nil {
		return err
	}
	r := utf8.RuneError
	if val <= utf8.MaxRune {
		r = rune(val)
	}
	vm.writeRune(r)
	return nil
}

func (vm *VM) pushHere() error {
	vm.push(vm.here())
	return nil
}
