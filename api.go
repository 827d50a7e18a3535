package main

import (
	"context"
	"errors"
	"io"

	"github.com/jcorbin/gothread/internal/panicerr"
)

// New creates a VM with the native words installed, and any options applied.
func New(opts ...VMOption) *VM {
	var vm VM
	vm.compileBuiltins()
	defaultOptions.apply(&vm)
	VMOptions(opts...).apply(&vm)
	return &vm
}

// Run interprets all input, returning nil once it runs out or the quit word
// is executed. Errors from individual commands are reported without stopping
// the run.
func (vm *VM) Run(ctx context.Context) error {
	err := panicerr.Recover("VM", func() error {
		return vm.interpret(ctx)
	})
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var halt haltError
	if errors.As(err, &halt) {
		err = halt.error
	}
	return err
}

func WithInput(r io.Reader) VMOption         { return withInput(r) }
func WithInputWriter(w io.WriterTo) VMOption { return withInputWriter(w) }
func WithOutput(w io.Writer) VMOption        { return withOutput(w) }
func WithTee(w io.Writer) VMOption           { return withTee(w) }
func WithPrelude() VMOption                  { return preludeOption{} }

func WithLogf(logfn func(mess string, args ...interface{})) VMOption    { return withLogfn(logfn) }
func WithErrorf(errorf func(mess string, args ...interface{})) VMOption { return withErrorfn(errorf) }
