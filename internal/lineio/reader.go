// Package lineio provides an io.Reader over an interactive line editor, so
// that terminal input can be queued alongside ordinary files.
package lineio

import (
	"bytes"
	"errors"

	"github.com/chzyer/readline"
)

// Liner reads one edited line at a time, without its line feed.
type Liner interface {
	Readline() (string, error)
	Close() error
}

// Reader implements io.Reader by reading whole lines from a Liner, each one
// terminated with a line feed. An interrupted line is discarded.
type Reader struct {
	Liner
	name string
	buf  bytes.Buffer
	err  error
}

// New creates a Reader around a new readline instance on the process
// terminal, prompting with prompt before each line.
func New(prompt string) (*Reader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "bye",
	})
	if err != nil {
		return nil, err
	}
	return NewReader("<stdin>", rl), nil
}

// NewReader creates a Reader with the given name around any Liner.
func NewReader(name string, liner Liner) *Reader {
	return &Reader{Liner: liner, name: name}
}

// Interactive returns true if the process is attached to a terminal.
func Interactive() bool { return readline.DefaultIsTerminal() }

// Name returns the reader's name, for use in input locations.
func (lr *Reader) Name() string { return lr.name }

func (lr *Reader) Read(p []byte) (n int, err error) {
	for lr.buf.Len() == 0 {
		if lr.err != nil {
			return 0, lr.err
		}
		line, err := lr.Liner.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if err != nil {
			lr.err = err
			if line == "" {
				continue
			}
		}
		lr.buf.WriteString(line)
		lr.buf.WriteByte('\n')
	}
	return lr.buf.Read(p)
}
