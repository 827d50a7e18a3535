package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jcorbin/gothread/internal/fileinput"
)

// VM is a threaded code machine: a dictionary of words, an append-only
// instruction store that compiled words live in, an operand stack, and a
// return stack of instruction addresses.
type VM struct {
	Core

	compiling bool // compile mode
	halted    bool // set by quit, or by reading past the last input
	prog      uint // instruction pointer

	stack  []uint
	rstack []uint
	code   []instruction

	dictionary

	// pending is the definition begun by : or ! and not yet ended by ;
	pending *definition

	// at is the input location where the current token started
	at fileinput.Location
}

type definition struct {
	name     string
	id       uint
	prior    uint
	shadowed bool
}

//// Instructions

type vmCode uint

const (
	vmCodeLit vmCode = iota
	vmCodeJmp
	vmCodeCall
	vmCodeCond
	vmCodeRet
	vmCodeMax
)

var vmCodeNames = [vmCodeMax]string{
	"lit",
	"jmp",
	"call",
	"cond",
	"ret",
}

func (code vmCode) String() string {
	if code < vmCodeMax {
		return vmCodeNames[code]
	}
	return fmt.Sprintf("code_%d", uint(code))
}

type instruction struct {
	code vmCode
	arg  uint
}

func lit(v uint) instruction     { return instruction{vmCodeLit, v} }
func jmp(addr uint) instruction  { return instruction{vmCodeJmp, addr} }
func call(id uint) instruction   { return instruction{vmCodeCall, id} }
func cond(addr uint) instruction { return instruction{vmCodeCond, addr} }
func ret() instruction           { return instruction{vmCodeRet, 0} }

func (in instruction) String() string {
	switch in.code {
	case vmCodeLit:
		return fmt.Sprintf("lit(%d)", in.arg)
	case vmCodeJmp, vmCodeCond:
		return fmt.Sprintf("%v(@%d)", in.code, in.arg)
	case vmCodeCall:
		return fmt.Sprintf("call(#%d)", in.arg)
	case vmCodeRet:
		return "ret"
	default:
		return in.code.String()
	}
}

//// Stacks

// retTop marks the bottom of a return stack frame entered from Go code; the
// run loop stops before ever jumping to it.
const retTop = ^uint(0)

func (vm *VM) push(val uint) {
	vm.stack = append(vm.stack, val)
}

func (vm *VM) pop() (uint, error) {
	i := len(vm.stack) - 1
	if i < 0 {
		return 0, errStackUnderflow
	}
	val := vm.stack[i]
	vm.stack = vm.stack[:i]
	return val, nil
}

// pop2 pops the top two values, leaving the stack untouched if there are
// fewer than two.
func (vm *VM) pop2() (a, b uint, err error) {
	i := len(vm.stack) - 2
	if i < 0 {
		return 0, 0, errStackUnderflow
	}
	a, b = vm.stack[i+1], vm.stack[i]
	vm.stack = vm.stack[:i]
	return a, b, nil
}

func (vm *VM) pushr(addr uint) {
	vm.rstack = append(vm.rstack, addr)
}

func (vm *VM) popr() (uint, error) {
	i := len(vm.rstack) - 1
	if i < 0 {
		return 0, errRetUnderflow
	}
	addr := vm.rstack[i]
	vm.rstack = vm.rstack[:i]
	return addr, nil
}

//// Instruction store

func (vm *VM) here() uint { return uint(len(vm.code)) }

func (vm *VM) compile(in instruction) {
	vm.logf(">", "compile @%v %v", vm.here(), in)
	vm.code = append(vm.code, in)
}

//// Execution

func (vm *VM) step() error {
	at := vm.prog
	if at >= vm.here() {
		return progError(at)
	}
	in := vm.code[at]
	if vm.logfn != nil {
		vm.logf("@", "%v %v -- r:%v s:%v", vm.addrName(at), in, vm.rstack, vm.stack)
	}

	switch in.code {
	case vmCodeLit:
		vm.push(in.arg)
		vm.prog = at + 1

	case vmCodeJmp:
		vm.prog = in.arg

	case vmCodeCond:
		val, err := vm.pop()
		if err != nil {
			return err
		}
		if val != 0 {
			vm.prog = in.arg
		} else {
			vm.prog = at + 1
		}

	case vmCodeCall:
		return vm.call(in.arg, at+1)

	case vmCodeRet:
		addr, err := vm.popr()
		if err != nil {
			return err
		}
		vm.prog = addr

	default:
		return codeError(in.code)
	}
	return nil
}

// call enters the word id, returning to next once it is done.
func (vm *VM) call(id, next uint) error {
	w, defined := vm.word(id)
	if !defined {
		return wordNotFound(vm.name(id))
	}
	if w.native != nil {
		err := w.native.exec(vm)
		vm.prog = next
		return err
	}
	vm.pushr(next)
	vm.prog = w.body
	return nil
}

// run steps the machine until its return stack unwinds to depth.
func (vm *VM) run(ctx context.Context, depth int) error {
	for len(vm.rstack) > depth && !vm.halted {
		if err := vm.step(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// execute runs word id to completion, whether native or compiled.
func (vm *VM) execute(ctx context.Context, id uint) error {
	w, defined := vm.word(id)
	if !defined {
		return wordNotFound(vm.name(id))
	}
	if w.native != nil {
		return w.native.exec(vm)
	}

	if vm.logfn != nil {
		vm.logf(">", "execute %v", vm.name(id))
		defer vm.withLogPrefix("\t")()
	}

	prog, depth := vm.prog, len(vm.rstack)
	vm.pushr(retTop)
	vm.prog = w.body
	if err := vm.run(ctx, depth); err != nil {
		return err
	}
	vm.prog = prog
	return nil
}

// addrName names an instruction address relative to the compiled word that
// contains it, e.g. "foo+2"; the retTop sentinel is named "<top>".
func (vm *VM) addrName(addr uint) string {
	if addr == retTop {
		return "<top>"
	}
	id, found := vm.wordAt(addr)
	if !found {
		return "@" + strconv.FormatUint(uint64(addr), 10)
	}
	name := vm.name(id)
	if off := addr - vm.words[id].body; off > 0 {
		name += "+" + strconv.FormatUint(uint64(off), 10)
	}
	return name
}

//// Errors

var (
	errStackUnderflow = errors.New("stack underflow")
	errRetUnderflow   = errors.New("return stack underflow")
	errEmptyToken     = errors.New("empty token")
	errDivisionByZero = errors.New("division by zero")
)

type wordNotFound string
type unendedDefinition string
type progError uint
type codeError vmCode

type literalError struct {
	token string
	err   error
}

func (name wordNotFound) Error() string { return fmt.Sprintf("word %v not found", string(name)) }
func (name unendedDefinition) Error() string {
	return fmt.Sprintf("definition of %v not ended", string(name))
}
func (addr progError) Error() string { return fmt.Sprintf("program ran off the end @%v", uint(addr)) }
func (code codeError) Error() string { return fmt.Sprintf("invalid code %v", uint(code)) }

func (le literalError) Error() string { return fmt.Sprintf("invalid literal %q: %v", le.token, le.err) }
func (le literalError) Unwrap() error { return le.err }
