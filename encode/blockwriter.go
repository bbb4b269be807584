package encode

import "bufio"

// blockWriter frames a byte stream as GIF data sub-blocks of up to 255 bytes.
// Close writes the pending block and the zero-length terminator.
type blockWriter struct {
	w   *bufio.Writer
	buf [256]byte
	n   int
	err error
}

func (b *blockWriter) Write(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	written := 0
	for len(p) > 0 {
		k := copy(b.buf[1+b.n:], p)
		b.n += k
		p = p[k:]
		written += k
		if b.n == 255 {
			b.flush()
			if b.err != nil {
				return written, b.err
			}
		}
	}
	return written, nil
}

func (b *blockWriter) flush() {
	if b.n == 0 {
		return
	}
	b.buf[0] = byte(b.n)
	_, b.err = b.w.Write(b.buf[:1+b.n])
	b.n = 0
}

func (b *blockWriter) Close() error {
	b.flush()
	if b.err != nil {
		return b.err
	}
	return b.w.WriteByte(0x00)
}
