package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

type fmtBuf interface {
	Len() int
	Write(p []byte) (n int, err error)
	WriteByte(c byte) error
	WriteRune(r rune) (n int, err error)
	WriteString(s string) (n int, err error)
}

// vmDumper writes a human readable dump of machine state: registers and
// stacks, followed by a disassembly of the instruction store, one compiled
// word per line.
type vmDumper struct {
	vm  *VM
	out io.Writer

	addrWidth int
	bodies    []uint // compiled word entry addresses, ascending
	bodyWord  map[uint]uint
}

func (dump vmDumper) dump() {
	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  prog: %v\n", dump.vm.prog)
	if dump.vm.compiling {
		fmt.Fprintf(dump.out, "  mode: compile\n")
	} else {
		fmt.Fprintf(dump.out, "  mode: immediate\n")
	}
	if def := dump.vm.pending; def != nil {
		fmt.Fprintf(dump.out, "  pending: %v\n", def.name)
	}
	fmt.Fprintf(dump.out, "  stack: %v\n", dump.vm.stack)
	dump.dumpRStack()
	dump.dumpCode()
}

func (dump *vmDumper) dumpRStack() {
	var sb strings.Builder
	sb.WriteString("  rstack: [")
	for i, addr := range dump.vm.rstack {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(dump.vm.addrName(addr))
	}
	sb.WriteString("]\n")
	io.WriteString(dump.out, sb.String())
}

func (dump *vmDumper) dumpCode() {
	fmt.Fprintf(dump.out, "# Code\n")

	code := dump.vm.code
	if len(code) == 0 {
		return
	}
	if dump.addrWidth == 0 {
		dump.addrWidth = len(strconv.Itoa(len(code) - 1))
	}
	if dump.bodies == nil {
		dump.scanWords()
	}

	var buf strings.Builder
	for addr := uint(0); addr < uint(len(code)); {
		fmt.Fprintf(&buf, "  @%*d", dump.addrWidth, addr)

		if id, isWord := dump.bodyWord[addr]; isWord {
			buf.WriteString(" : ")
			buf.WriteString(dump.vm.name(id))
			if dump.vm.words[id].macro {
				buf.WriteString(" macro")
			}
		}

		end := dump.nextBody(addr)
		for ; addr < end; addr++ {
			buf.WriteByte(' ')
			dump.formatCode(&buf, code[addr])
		}

		buf.WriteByte('\n')
		io.WriteString(dump.out, buf.String())
		buf.Reset()
	}
}

func (dump *vmDumper) formatCode(buf fmtBuf, in instruction) {
	if in.code != vmCodeCall {
		buf.WriteString(in.String())
		return
	}
	if _, defined := dump.vm.word(in.arg); !defined {
		buf.WriteString(in.String())
		return
	}
	buf.WriteString(dump.vm.name(in.arg))
}

// scanWords indexes compiled words by entry address; where several words
// share an address, the latest defined one names it.
func (dump *vmDumper) scanWords() {
	dump.bodyWord = make(map[uint]uint)
	for id, w := range dump.vm.words {
		if w.native != nil {
			continue
		}
		if _, seen := dump.bodyWord[w.body]; !seen {
			dump.bodies = append(dump.bodies, w.body)
		}
		dump.bodyWord[w.body] = uint(id)
	}
	sort.Slice(dump.bodies, func(i, j int) bool {
		return dump.bodies[i] < dump.bodies[j]
	})
}

// nextBody returns the first word entry address after addr, or the end of
// the instruction store.
func (dump *vmDumper) nextBody(addr uint) uint {
	i := sort.Search(len(dump.bodies), func(i int) bool {
		return dump.bodies[i] > addr
	})
	if i < len(dump.bodies) {
		if next := dump.bodies[i]; next < uint(len(dump.vm.code)) {
			return next
		}
	}
	return uint(len(dump.vm.code))
}
