package runeio

import (
	"bufio"
	"io"
)

// Reader is an io.Reader that also supports reading runes.
type Reader interface {
	io.Reader
	io.RuneReader
}

// NewReader returns a Reader from r; if r already implements, it is simply returned.
// Otherwise bufio.Reader is used to provide rune reading around the given reader.
// If r implements Name() string or io.Closer, so will the returned Reader.
func NewReader(r io.Reader) Reader {
	if impl, ok := r.(Reader); ok {
		return impl
	}
	rr := runeReader{r, bufio.NewReader(r)}
	if impl, ok := r.(interface{ Name() string }); ok {
		return namedRuneReader{rr, impl.Name()}
	}
	return rr
}

type runeReader struct {
	under io.Reader
	*bufio.Reader
}

// Close closes the underlying reader, if it is an io.Closer.
func (rr runeReader) Close() error {
	if cl, ok := rr.under.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

type namedRuneReader struct {
	runeReader
	name string
}

func (nr namedRuneReader) Name() string { return nr.name }
