package fileinput

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jcorbin/gothread/internal/runeio"
)

// Location names a line in an Input source.
type Location struct {
	Name string
	Line int
}

// Line combines a Location along with a bytes.Buffer for handling it.
type Line struct {
	Location
	bytes.Buffer
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }
func (il Line) String() string      { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// Input implements sequential rune reading through a Queue of one or more
// input sources. The end of each source is reported as a 0 rune with a nil
// error; io.EOF is only returned once the Queue has been exhausted.
//
// Both the current and last scanned lines are tracked to facilitate user
// feedback.
type Input struct {
	rr    io.RuneReader
	Queue []io.Reader
	Last  Line
	Scan  Line

	peeked   bool
	peekRune rune
	peekSize int
	peekErr  error
}

// Done returns true if there is no current source, and none left in the
// Queue.
func (in *Input) Done() bool {
	if in.peeked && in.peekErr != io.EOF {
		return false
	}
	return in.rr == nil && len(in.Queue) == 0
}

// ReadRune reads one rune from the current input source, appending it into
// the current Scan line, and rolling Scan over to Last after line feed.
func (in *Input) ReadRune() (r rune, n int, err error) {
	if in.peeked {
		r, n, err = in.peekRune, in.peekSize, in.peekErr
		in.peeked = false
		in.peekErr = nil
	} else {
		r, n, err = in.readRune()
	}
	if err == nil {
		if r == '\n' {
			in.nextLine()
		} else if r != 0 {
			in.Scan.WriteRune(r)
		}
	}
	return r, n, err
}

// PeekRune returns the rune that the next ReadRune will return, without
// consuming it.
func (in *Input) PeekRune() (rune, error) {
	if !in.peeked {
		in.peekRune, in.peekSize, in.peekErr = in.readRune()
		in.peeked = true
	}
	return in.peekRune, in.peekErr
}

// Close closes the current source and any remaining in the Queue that
// implement io.Closer, returning the first error encountered.
func (in *Input) Close() (err error) {
	if in.rr != nil {
		if cl, ok := in.rr.(io.Closer); ok {
			err = cl.Close()
		}
		in.rr = nil
	}
	for _, r := range in.Queue {
		if cl, ok := r.(io.Closer); ok {
			if cerr := cl.Close(); err == nil {
				err = cerr
			}
		}
	}
	in.Queue = nil
	in.peeked = false
	return err
}

func (in *Input) readRune() (rune, int, error) {
	if in.rr == nil && !in.nextIn() {
		return 0, 0, io.EOF
	}
	r, n, err := in.rr.ReadRune()
	if err == io.EOF {
		in.nextIn()
		return 0, 0, nil
	}
	return r, n, err
}

func (in *Input) nextLine() {
	in.Last.Reset()
	in.Last.Name = in.Scan.Name
	in.Last.Line = in.Scan.Line
	in.Last.Write(in.Scan.Bytes())
	in.Scan.Reset()
	in.Scan.Line++
}

func (in *Input) nextIn() bool {
	if in.rr != nil {
		in.nextLine()
		if cl, ok := in.rr.(io.Closer); ok {
			cl.Close()
		}
		in.rr = nil
	}
	if len(in.Queue) > 0 {
		r := in.Queue[0]
		in.Queue = in.Queue[1:]
		in.rr = runeio.NewReader(r)
		in.Scan.Name = nameOf(r)
		in.Scan.Line = 1
	}
	return in.rr != nil
}

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
