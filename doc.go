/*
Package main implements gothread, a threaded code word machine.

The machine reads whitespace separated tokens from a queue of input sources
(files named on the command line, then the terminal) and resolves each one
against a dictionary of words. A token made only of decimal digits is a
literal; anything else names a word.

Words are either native, implemented in Go, or compiled: a sequence of
instructions in an append-only instruction store, always ending in a return.
There are only five instructions:

	lit(v)    push v onto the stack
	jmp(@a)   continue at address a
	cond(@a)  pop; continue at address a if the value was nonzero
	call(w)   run word w; compiled words push a return address first
	ret       pop a return address, and continue there

The machine is always in one of two modes. In immediate mode every token is
acted on as soon as it is read: literals are pushed, and words are run. In
compile mode, literals and calls are instead appended to the instruction
store, building the body of whatever word is being defined. Macro words are
the exception: they run even in compile mode, which is how definitions are
ended, and how control structures get built.

	: name ... ;    defines a word
	! name ... ;    defines a macro word

Since the op.* words append instructions directly, macros can compile any
control flow. For example, a loop remembers where its body starts with
"here", and closes with a conditional jump back to it. This skips input up
to the next line feed (note that "10 -" computes 10 minus the value below):

	! begin here ;
	! loop-if op.cond ;
	: skip-line begin getch 10 - loop-if ;

The prelude (see prelude.go, enabled with -prelude) defines these and a few
other such words, including ( and \ comments.

Errors do not stop the machine. The failing command is reported, and any word
being defined is abandoned; interpretation then continues with the next token.
The quit word, or running out of input, stops it.
*/
package main
