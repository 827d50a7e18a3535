package main

import (
	"bytes"
	"io"
)

// prelude is a source, written in the machine's own language, that builds
// looping and comment words out of the native catalog.
var prelude = preludeSource{}

type preludeSource struct{}

func (preludeSource) Name() string { return "prelude.fs" }

func (preludeSource) WriteTo(w io.Writer) (n int64, err error) {
	var buf bytes.Buffer
	line := func(parts ...string) {
		if err != nil {
			return
		}
		for _, s := range parts {
			buf.WriteString(s)
		}
		buf.WriteByte('\n')
		var m int64
		m, err = buf.WriteTo(w)
		n += m
	}

	// Every word here is a macro, so it runs while another word is being
	// compiled, and appends instructions to it.

	// A loop starts by remembering where its body will be compiled; the
	// address stays on the stack until the loop is closed.
	line(`! begin here ;`)

	// An unconditional loop jumps back to its start...
	line(`! again op.jmp ;`)

	// ...while a conditional one only jumps back while the top of the stack
	// is nonzero.
	line(`! loop-if op.cond ;`)

	// Compiling a value computed while not compiling.
	line(`! literal op.lit ;`)

	// Switching modes from inside a definition needs a call to the mode
	// words compiled, rather than run, so their ids are compiled with
	// compile mode briefly off.
	line(`! [ @ cm.false cm.false op.call cm.true ;`)
	line(`! ] @ cm.true cm.false op.call cm.true ;`)

	// Comments skip input until their closing rune. Each rune is peeked and
	// then read, so that two copies are on the stack: (c0 - c) * c is zero
	// once the closing rune or the end of the source is read.
	line(`! ( begin peekch getch 41 - * loop-if ;`)
	line(`! \ begin peekch getch 10 - * loop-if ;`)

	return n, err
}

func preludeReader() io.Reader {
	var buf bytes.Buffer
	prelude.WriteTo(&buf)
	return NamedReader(prelude.Name(), &buf)
}
