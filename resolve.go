package main

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/jcorbin/gothread/internal/panicerr"
)

// interpret reads and resolves tokens until input runs out or the machine
// halts. Each token is one command: a failed command is reported, unwinds
// the return stack, and abandons any pending definition, after which
// interpretation continues with the next token.
func (vm *VM) interpret(ctx context.Context) error {
	defer vm.flush()
	for !vm.halted {
		if err := ctx.Err(); err != nil {
			return err
		}
		token, err := vm.scan()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err := panicerr.Guard(token, func() error {
			return vm.resolve(ctx, token)
		}); err != nil {
			var halt haltError
			if errors.As(err, &halt) || ctx.Err() != nil {
				return err
			}
			vm.abort(err)
		}
	}
	return nil
}

// resolve compiles or executes a single token according to the current mode.
func (vm *VM) resolve(ctx context.Context, token string) error {
	if val, isLit, err := parseLiteral(token); err != nil {
		return err
	} else if isLit {
		if vm.compiling {
			vm.compile(lit(val))
		} else {
			vm.push(val)
		}
		return nil
	}

	id, defined := vm.lookup(token)
	if !defined {
		return wordNotFound(token)
	}
	if vm.words[id].macro || !vm.compiling {
		return vm.execute(ctx, id)
	}
	vm.compile(call(id))
	return nil
}

// parseLiteral recognizes tokens made only of decimal digits.
func parseLiteral(token string) (val uint, isLit bool, err error) {
	if token == "" {
		return 0, false, nil
	}
	for i := 0; i < len(token); i++ {
		if c := token[i]; c < '0' || c > '9' {
			return 0, false, nil
		}
	}
	n, err := strconv.ParseUint(token, 10, strconv.IntSize)
	if err != nil {
		return 0, true, literalError{token, err}
	}
	return uint(n), true, nil
}

// scan reads the next whitespace delimited token, skipping any leading
// whitespace. The end of each input source also ends a token. Returns io.EOF
// once all input is exhausted without reading a token.
func (vm *VM) scan() (token string, err error) {
	defer func() {
		if token != "" {
			vm.logf(">", "scan %q from %v", token, vm.at)
		}
	}()

	var r rune
	for {
		if r, err = vm.readRune(); err != nil {
			return "", err
		}
		if !isDelim(r) {
			break
		}
	}

	vm.at = vm.Scan.Location
	var sb strings.Builder
	for {
		sb.WriteRune(r)
		if r, err = vm.readRune(); err == io.EOF || isDelim(r) {
			break
		}
	}
	return sb.String(), nil
}

func isDelim(r rune) bool { return r == 0 || unicode.IsSpace(r) }

// abort recovers from a failed command.
func (vm *VM) abort(err error) {
	vm.report(err)
	if stack := panicerr.PanicStack(err); stack != "" {
		vm.logf("!", "panic stack: %s", stack)
	}
	vm.rstack = vm.rstack[:0]
	vm.abandon()
}

func (vm *VM) report(err error) {
	vm.flush()
	if vm.errorf != nil {
		vm.errorf("%v: %v", vm.at, err)
	} else {
		vm.printf("ERROR: %v: %v\n", vm.at, err)
	}
}

// abandon terminates any pending definition, and reverts its name to
// whatever it meant before.
func (vm *VM) abandon() {
	def := vm.pending
	if def == nil {
		return
	}
	vm.logf("#", "abandon definition of %q", def.name)
	vm.compile(ret())
	vm.compiling = false
	vm.unbind(def.name, def.id, def.prior, def.shadowed)
	vm.pending = nil
}
