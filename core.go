package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jcorbin/gothread/internal/fileinput"
	"github.com/jcorbin/gothread/internal/flushio"
	"github.com/jcorbin/gothread/internal/runeio"
)

// Core holds the machine's io plumbing: queued input, buffered output, and
// logging.
type Core struct {
	logging
	fileinput.Input
	out     flushio.WriteFlusher
	errorf  func(mess string, args ...interface{})
	closers []io.Closer
}

// Close flushes output, then closes all input sources and any other
// resources added by options, returning the first error.
func (core *Core) Close() (err error) {
	if core.out != nil {
		err = core.out.Flush()
	}
	if cerr := core.Input.Close(); err == nil {
		err = cerr
	}
	for i := len(core.closers) - 1; i >= 0; i-- {
		if cerr := core.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (core *Core) halt(err error) {
	// ignore any panics while trying to flush output
	func() {
		defer func() { recover() }()
		if core.out != nil {
			if ferr := core.out.Flush(); err == nil {
				err = ferr
			}
		}
	}()

	// ignore any panics while logging
	func() {
		defer func() { recover() }()
		core.logf("#", "halt error: %v", err)
	}()

	panic(haltError{err})
}

func (core *Core) flush() {
	if err := core.out.Flush(); err != nil {
		core.halt(err)
	}
}

func (core *Core) writeRune(r rune) {
	if _, err := runeio.WriteANSIRune(core.out, r); err != nil {
		core.halt(err)
	}
}

func (core *Core) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(core.out, format, args...); err != nil {
		core.halt(err)
	}
}

// readRune reads the next input rune, after flushing any prompting output.
// It returns a 0 rune at the end of each source, and io.EOF once every
// source is done; any other input error halts.
func (core *Core) readRune() (rune, error) {
	core.flush()
	r, _, err := core.Input.ReadRune()
	if err != nil && err != io.EOF {
		core.halt(err)
	}
	return r, err
}

// peekRune is like readRune, but does not consume the rune.
func (core *Core) peekRune() (rune, error) {
	core.flush()
	r, err := core.Input.PeekRune()
	if err != nil && err != io.EOF {
		core.halt(err)
	}
	return r, err
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}
func (err haltError) Unwrap() error { return err.error }

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
