package main

import (
	"bytes"
	"io"

	"github.com/jcorbin/gothread/internal/flushio"
)

// VMOption configures a VM; see the With* functions.
type VMOption interface{ apply(vm *VM) }

var defaultOptions = VMOptions(
	withOutput(io.Discard),
)

// VMOptions combines any number of options into one, applied in order.
func VMOptions(opts ...VMOption) VMOption {
	var all vmOptions
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case vmOptions:
			all = append(all, impl...)
		default:
			all = append(all, impl)
		}
	}
	if len(all) == 1 {
		return all[0]
	}
	return all
}

type vmOptions []VMOption

func (opts vmOptions) apply(vm *VM) {
	for _, opt := range opts {
		opt.apply(vm)
	}
}

type withLogfn func(mess string, args ...interface{})
type withErrorfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(vm *VM)    { vm.logfn = logfn }
func (errorf withErrorfn) apply(vm *VM) { vm.errorf = errorf }

type inputOption struct{ io.Reader }
type inputWriterOption struct{ io.WriterTo }
type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type preludeOption struct{}

func withInput(r io.Reader) inputOption               { return inputOption{r} }
func withInputWriter(w io.WriterTo) inputWriterOption { return inputWriterOption{w} }
func withOutput(w io.Writer) outputOption             { return outputOption{w} }
func withTee(w io.Writer) teeOption                   { return teeOption{w} }

func (i inputOption) apply(vm *VM) {
	vm.Queue = append(vm.Queue, i.Reader)
}

// apply renders the writer into an in-memory input source.
func (i inputWriterOption) apply(vm *VM) {
	var buf bytes.Buffer
	if _, err := i.WriteTo(&buf); err != nil {
		panic(err)
	}
	var r io.Reader = &buf
	if nom, ok := i.WriterTo.(interface{ Name() string }); ok {
		r = NamedReader(nom.Name(), r)
	}
	vm.Queue = append(vm.Queue, r)
}

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.Tee(vm.out, flushio.NewWriteFlusher(o.Writer))
	if cl, ok := o.Writer.(io.Closer); ok {
		vm.closers = append(vm.closers, cl)
	}
}

func (preludeOption) apply(vm *VM) {
	vm.Queue = append([]io.Reader{preludeReader()}, vm.Queue...)
}

// NamedReader attaches a name to r, used to report input locations.
func NamedReader(name string, r io.Reader) io.Reader {
	return namedReader{r, name}
}

type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

func (nr namedReader) Close() error {
	if cl, ok := nr.Reader.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
