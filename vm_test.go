package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/repr"
	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/gothread/internal/logio"
	"github.com/jcorbin/gothread/internal/panicerr"
)

type vmTestCases []vmTestCase

func (vmts vmTestCases) run(t *testing.T) {
	{
		var exclusive []vmTestCase
		for _, vmt := range vmts {
			if vmt.exclusive {
				exclusive = append(exclusive, vmt)
			}
		}
		if len(exclusive) > 0 {
			vmts = exclusive
		}
	}
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type optFunc func(vm *VM)

func (f optFunc) apply(vm *VM) { f(vm) }

type vmTestCase struct {
	name    string
	opts    []interface{}
	ops     []func(vm *VM) error
	expect  []func(t *testing.T, vm *VM)
	timeout time.Duration
	wantErr error

	exclusive   bool
	nextInputID int
}

func (vmt vmTestCase) apply(wraps ...func(vmTestCase) vmTestCase) vmTestCase {
	for _, wrap := range wraps {
		vmt = wrap(vmt)
	}
	return vmt
}

func (vmt vmTestCase) exclusiveTest() vmTestCase {
	vmt.exclusive = true
	return vmt
}

func (vmt vmTestCase) withOptions(opts ...VMOption) vmTestCase {
	for _, opt := range opts {
		vmt.opts = append(vmt.opts, opt)
	}
	return vmt
}

func (vmt vmTestCase) withProg(prog uint) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
		vm.prog = prog
	}))
	return vmt
}

func (vmt vmTestCase) withStack(values ...uint) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
		vm.stack = append(vm.stack, values...)
	}))
	return vmt
}

func (vmt vmTestCase) withRStack(values ...uint) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
		vm.rstack = append(vm.rstack, values...)
	}))
	return vmt
}

func (vmt vmTestCase) withCode(code ...instruction) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
		vm.code = append(vm.code, code...)
	}))
	return vmt
}

func (vmt vmTestCase) withWord(name string, code ...instruction) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
		vm.dictionary.define(name, word{body: vm.here()})
		vm.code = append(vm.code, code...)
	}))
	return vmt
}

func (vmt vmTestCase) withMacro(name string, code ...instruction) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
		vm.dictionary.define(name, word{macro: true, body: vm.here()})
		vm.code = append(vm.code, code...)
	}))
	return vmt
}

func (vmt vmTestCase) withCompiling(compiling bool) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
		vm.compiling = compiling
	}))
	return vmt
}

func (vmt vmTestCase) withPrelude() vmTestCase {
	vmt.opts = append(vmt.opts, WithPrelude())
	return vmt
}

func (vmt vmTestCase) withInput(input string) vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		name := t.Name() + "/input"
		if id := vmt.nextInputID; id > 0 {
			name += "_" + strconv.Itoa(id+1)
		}
		vmt.nextInputID++
		return WithInput(NamedReader(name, strings.NewReader(input)))
	})
	return vmt
}

func (vmt vmTestCase) withNamedInput(name string, input string) vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		return WithInput(NamedReader(name, strings.NewReader(input)))
	})
	return vmt
}

func (vmt vmTestCase) withInputWriter(w io.WriterTo) vmTestCase {
	vmt.opts = append(vmt.opts, WithInputWriter(w))
	return vmt
}

func (vmt vmTestCase) do(ops ...func(vm *VM) error) vmTestCase {
	vmt.ops = append(vmt.ops, ops...)
	return vmt
}

func (vmt vmTestCase) withTimeout(timeout time.Duration) vmTestCase {
	vmt.timeout = timeout
	return vmt
}

func (vmt vmTestCase) expectError(err error) vmTestCase {
	vmt.wantErr = err
	return vmt
}

func (vmt vmTestCase) expectProg(prog uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, prog, vm.prog, "expected program counter")
	})
	return vmt
}

func (vmt vmTestCase) expectStack(values ...uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if values == nil {
			values = []uint{}
		}
		stack := vm.stack
		if stack == nil {
			stack = []uint{}
		}
		assert.Equal(t, values, stack, "expected stack values")
	})
	return vmt
}

func (vmt vmTestCase) expectRStack(values ...uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if values == nil {
			values = []uint{}
		}
		rstack := vm.rstack
		if rstack == nil {
			rstack = []uint{}
		}
		assert.Equal(t, values, rstack, "expected return stack values")
	})
	return vmt
}

func (vmt vmTestCase) expectCode(code ...instruction) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if code == nil {
			code = []instruction{}
		}
		have := vm.code
		if have == nil {
			have = []instruction{}
		}
		assert.Equal(t, code, have, "expected instruction store")
	})
	return vmt
}

func (vmt vmTestCase) expectCompiling(compiling bool) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, compiling, vm.compiling, "expected compile mode")
	})
	return vmt
}

func (vmt vmTestCase) expectPending(name string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if name == "" {
			assert.Nil(t, vm.pending, "expected no pending definition")
		} else if assert.NotNil(t, vm.pending, "expected a pending definition") {
			assert.Equal(t, name, vm.pending.name, "expected pending definition name")
		}
	})
	return vmt
}

func (vmt vmTestCase) expectHalted(halted bool) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, halted, vm.halted, "expected halted")
	})
	return vmt
}

// expectWord checks that name is bound to a compiled word, whose body up to
// and including its first ret is code.
func (vmt vmTestCase) expectWord(name string, code ...instruction) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		id, defined := vm.lookup(name)
		if !assert.True(t, defined, "expected word %q to be defined", name) {
			return
		}
		w := vm.words[id]
		if !assert.Nil(t, w.native, "expected word %q to be compiled", name) {
			return
		}
		var body []instruction
		for addr := w.body; addr < vm.here(); addr++ {
			body = append(body, vm.code[addr])
			if vm.code[addr].code == vmCodeRet {
				break
			}
		}
		assert.Equal(t, code, body, "expected word %q body @%v", name, w.body)
	})
	return vmt
}

func (vmt vmTestCase) expectWordID(name string, id uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		have, defined := vm.lookup(name)
		if assert.True(t, defined, "expected word %q to be defined", name) {
			assert.Equal(t, id, have, "expected word %q id", name)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectMacro(name string, macro bool) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		id, defined := vm.lookup(name)
		if assert.True(t, defined, "expected word %q to be defined", name) {
			assert.Equal(t, macro, vm.words[id].macro, "expected word %q macro flag", name)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectUnbound(name string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		_, defined := vm.lookup(name)
		assert.False(t, defined, "expected word %q to be unbound", name)
	})
	return vmt
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	var out strings.Builder
	vmt.opts = append(vmt.opts, WithOutput(&out))
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return vmt
}

func (vmt vmTestCase) expectDump(dump string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		var out strings.Builder
		vmDumper{
			vm:  vm,
			out: &out,
		}.dump()
		assert.Equal(t, dump, out.String(), "expected dump")
	})
	return vmt
}

func (vmt vmTestCase) withTestDump() vmTestCase {
	vmt.expect = append(vmt.expect, vmt.dumpToTest)
	return vmt
}

func (vmt vmTestCase) withTestOutput() vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		return WithTee(&logio.Writer{Logf: t.Logf, Prefix: "out: "})
	})
	return vmt
}

func (vmt vmTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Now().Sub(then))
	}(time.Now())

	vmt.runVMTest(context.Background(), t, vmt.buildVM(t))
}

func (vmt vmTestCase) runVMTest(ctx context.Context, t *testing.T, vm *VM) {
	const defaultTimeout = time.Second
	timeout := vmt.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if t.Failed() {
			vmt.dumpToTest(t, vm)
		}
	}()

	if err := vmt.runVM(ctx, vm); vmt.wantErr != nil {
		assert.True(t, errors.Is(err, vmt.wantErr), "expected error: %v\ngot: %+v", vmt.wantErr, err)
	} else {
		assert.NoError(t, err, "unexpected VM run error")
	}

	if !t.Failed() {
		for _, expect := range vmt.expect {
			expect(t, vm)
		}
	}
}

func (vmt vmTestCase) runVM(ctx context.Context, vm *VM) (rerr error) {
	defer func() {
		if err := vm.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("vm.Close failed: %w", err)
		}
	}()

	if len(vmt.ops) == 0 {
		return vm.Run(ctx)
	}

	names := make([]string, len(vmt.ops))
	for i, op := range vmt.ops {
		names[i] = runtime.FuncForPC(reflect.ValueOf(op).Pointer()).Name()
	}
	return panicerr.Recover("vmTestCase.ops", func() error {
		for i, op := range vmt.ops {
			vm.logf(">", "do[%v] %v", i, names[i])
			if err := op(vm); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (vmt vmTestCase) buildVM(t *testing.T) *VM {
	opts := []VMOption{WithLogf(t.Logf)}
	for _, o := range vmt.opts {
		switch impl := o.(type) {
		case func(vmt *vmTestCase, t *testing.T) VMOption:
			opts = append(opts, impl(&vmt, t))
		case VMOption:
			opts = append(opts, impl)
		default:
			t.Logf("unsupported vmTestCase opt type %T", o)
			t.FailNow()
		}
	}
	return New(opts...)
}

// vmState is a snapshot of machine state for test failure diagnostics.
type vmState struct {
	Prog      uint
	Compiling bool
	Halted    bool
	Pending   string
	Stack     []uint
	RStack    []string
	Code      []string
	Words     map[string]uint
}

func (vmt vmTestCase) dumpToTest(t *testing.T, vm *VM) {
	lw := logio.Writer{Logf: t.Logf}
	defer lw.Close()
	vmDumper{vm: vm, out: &lw}.dump()

	state := vmState{
		Prog:      vm.prog,
		Compiling: vm.compiling,
		Halted:    vm.halted,
		Stack:     vm.stack,
		Words:     vm.ids,
	}
	if def := vm.pending; def != nil {
		state.Pending = def.name
	}
	for _, addr := range vm.rstack {
		state.RStack = append(state.RStack, vm.addrName(addr))
	}
	for _, in := range vm.code {
		state.Code = append(state.Code, in.String())
	}
	t.Logf("state: %s", repr.String(state, repr.Indent("  ")))
}

//// utilities

// builtinID returns the id of the named native word.
func builtinID(name string) uint {
	for id, bi := range builtins {
		if bi.name == name {
			return uint(id)
		}
	}
	panic(fmt.Sprintf("no builtin named %q", name))
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}
