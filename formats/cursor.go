package formats

import (
	"encoding/binary"
	"io"
)

// cursor reads little-endian fields from an in-memory GIF stream. Every read
// is bounds checked; running past the end of a mandatory field yields a
// *FormatError wrapping ErrTruncated.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) readByte(field string) (byte, error) {
	if c.remaining() < 1 {
		return 0, formatError(c.off, ErrTruncated, "reading %s", field)
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// next returns the next n bytes without copying.
func (c *cursor) next(n int, field string) ([]byte, error) {
	if c.remaining() < n {
		return nil, formatError(c.off, ErrTruncated, "reading %s: need %d bytes, have %d", field, n, c.remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) colorTable(entries int, field string) (ColorTable, error) {
	data, err := c.next(3*entries, field)
	if err != nil {
		return nil, err
	}
	t := make(ColorTable, entries)
	for i := range t {
		t[i] = RGB{R: data[i*3], G: data[i*3+1], B: data[i*3+2]}
	}
	return t, nil
}

// subBlocks walks a data sub-block chain: repeat { read length L; if L == 0
// stop; read L bytes }. Each payload is passed to emit without copying. If the
// buffer ends before the zero-length terminator, the payloads seen so far
// have been emitted and io.ErrUnexpectedEOF is returned.
func (c *cursor) subBlocks(emit func(p []byte)) error {
	for {
		if c.remaining() < 1 {
			return io.ErrUnexpectedEOF
		}
		n := int(c.buf[c.off])
		c.off++
		if n == 0 {
			return nil
		}
		if c.remaining() < n {
			emit(c.buf[c.off:])
			c.off = len(c.buf)
			return io.ErrUnexpectedEOF
		}
		emit(c.buf[c.off : c.off+n])
		c.off += n
	}
}

// fixedBlock reads a size-prefixed fixed extension block and returns a body
// of exactly want bytes, zero-extended when the stream announces fewer. The
// boolean reports whether the announced size matched.
func (c *cursor) fixedBlock(want int, field string) ([]byte, bool, error) {
	size, err := c.readByte(field + " size")
	if err != nil {
		return nil, false, err
	}
	body, err := c.next(int(size), field)
	if err != nil {
		return nil, false, err
	}
	if int(size) >= want {
		return body[:want], int(size) == want, nil
	}
	padded := make([]byte, want)
	copy(padded, body)
	return padded, false, nil
}

func le16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}
