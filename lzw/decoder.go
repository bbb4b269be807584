// Package lzw decodes the variable-width LZW code stream carried by GIF image
// blocks.
//
// The decoder is lenient: codes it cannot resolve are skipped, a stream that
// ends early leaves the rest of the output zeroed, and a stream that keeps
// going past the expected pixel count is cut off. Each such condition is
// returned as a non-fatal issue instead of an error.
package lzw

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidCode reports codes that could not be resolved against the
	// dictionary.
	ErrInvalidCode = errors.New("lzw: invalid code")

	// ErrShortStream reports a code stream that produced fewer indices than
	// expected.
	ErrShortStream = errors.New("lzw: short stream")

	// ErrCodeSize reports a minimum code size outside 1..11.
	ErrCodeSize = errors.New("lzw: invalid minimum code size")
)

const (
	maxWidth = 12
	maxCodes = 1 << maxWidth
	noCode   = 0xFFFF
)

// bitReader yields LSB-first codes of a given width.
type bitReader struct {
	data  []byte
	pos   int
	bits  uint32
	nBits uint
}

func (r *bitReader) read(width uint) (uint16, bool) {
	for r.nBits < width {
		if r.pos >= len(r.data) {
			return 0, false
		}
		r.bits |= uint32(r.data[r.pos]) << r.nBits
		r.nBits += 8
		r.pos++
	}
	code := uint16(r.bits & (1<<width - 1))
	r.bits >>= width
	r.nBits -= width
	return code, true
}

func (r bitReader) peek(width uint) (uint16, bool) {
	return r.read(width)
}

// decoder holds the dictionary as prefix/suffix chains. Entry i expands to
// expand(prefix[i]) + suffix[i]; first and length are cached per entry.
type decoder struct {
	prefix [maxCodes]uint16
	suffix [maxCodes]byte
	first  [maxCodes]byte
	length [maxCodes]uint16

	clear uint16
	end   uint16
	count uint16
	width uint
	min   uint
	prev  uint16
}

var decoderPool = sync.Pool{
	New: func() interface{} { return new(decoder) },
}

func (d *decoder) init(minCodeSize uint) {
	d.min = minCodeSize
	d.clear = 1 << minCodeSize
	d.end = d.clear + 1
	for i := uint16(0); i < d.clear; i++ {
		d.prefix[i] = noCode
		d.suffix[i] = byte(i)
		d.first[i] = byte(i)
		d.length[i] = 1
	}
	d.reset()
}

func (d *decoder) reset() {
	d.count = d.clear + 2
	d.width = d.min + 1
	d.prev = noCode
}

// add appends expand(prev) + c as the next dictionary entry.
func (d *decoder) add(prev uint16, c byte) uint16 {
	code := d.count
	d.prefix[code] = prev
	d.suffix[code] = c
	d.first[code] = d.first[prev]
	d.length[code] = d.length[prev] + 1
	d.count++
	return code
}

// emit writes the expansion of code to dst, truncated to len(dst), and
// returns the number of bytes written.
func (d *decoder) emit(dst []byte, code uint16) int {
	n := int(d.length[code])
	for i := n - 1; i >= 0; i-- {
		if i < len(dst) {
			dst[i] = d.suffix[code]
		}
		code = d.prefix[code]
	}
	if n > len(dst) {
		return len(dst)
	}
	return n
}

// Decode decodes data into a new buffer of exactly expected bytes.
func Decode(data []byte, minCodeSize int, expected int) ([]byte, []error) {
	if expected < 0 {
		expected = 0
	}
	dst := make([]byte, expected)
	_, issues := DecodeInto(dst, data, minCodeSize)
	return dst, issues
}

// DecodeInto decodes data into dst and returns the number of indices the
// stream produced. Bytes of dst past that count are zeroed, so dst may be a
// reused buffer.
func DecodeInto(dst []byte, data []byte, minCodeSize int) (int, []error) {
	var issues []error
	if minCodeSize < 1 || minCodeSize > maxWidth-1 {
		issues = append(issues, fmt.Errorf("%w: %d", ErrCodeSize, minCodeSize))
		minCodeSize = clamp(minCodeSize, 1, maxWidth-1)
	}

	d := decoderPool.Get().(*decoder)
	defer decoderPool.Put(d)
	d.init(uint(minCodeSize))

	r := bitReader{data: data}
	n := 0
	invalid, firstInvalid := 0, 0
	codes := 0

loop:
	for n < len(dst) {
		code, ok := r.read(d.width)
		if !ok {
			break
		}
		codes++

		switch {
		case code == d.clear:
			d.reset()
			continue
		case code == d.end:
			break loop
		case code < d.count:
			n += d.emit(dst[n:], code)
			if d.prev != noCode && d.count < maxCodes {
				d.add(d.prev, d.first[code])
			}
			d.prev = code
		case d.prev != noCode && d.count < maxCodes:
			// KwKwK: the code names the entry about to be created.
			if code > d.count {
				invalid++
				if invalid == 1 {
					firstInvalid = codes - 1
				}
			}
			code = d.add(d.prev, d.first[d.prev])
			n += d.emit(dst[n:], code)
			d.prev = code
		default:
			invalid++
			if invalid == 1 {
				firstInvalid = codes - 1
			}
			continue
		}

		if d.count >= 1<<d.width && d.width < maxWidth {
			d.width++
		}
		if d.width == maxWidth && d.count >= maxCodes {
			// Full dictionary: start over unless the encoder does so itself.
			if next, ok := r.peek(maxWidth); !ok || next != d.clear {
				d.reset()
			}
		}
	}

	if invalid > 0 {
		issues = append(issues, fmt.Errorf("%w: %d unresolvable codes, first at code %d", ErrInvalidCode, invalid, firstInvalid))
	}
	if n < len(dst) {
		issues = append(issues, fmt.Errorf("%w: decoded %d of %d indices", ErrShortStream, n, len(dst)))
		clear(dst[n:])
	}
	return n, issues
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
