package encode

import (
	"bufio"
	"compress/lzw"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Encoder writes a GIF stream frame by frame. The first frame's palette
// becomes the global color table; later frames carry a local table.
type Encoder struct {
	w      *bufio.Writer
	width  int
	height int
	opts   Options

	frames int
	closed bool
	err    error
}

// NewEncoder returns an encoder for a width x height canvas.
func NewEncoder(w io.Writer, width, height int, opts *Options) *Encoder {
	e := &Encoder{
		w:      bufio.NewWriter(w),
		width:  width,
		height: height,
	}
	if opts != nil {
		e.opts = *opts
	}
	return e
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int { return e.frames }

// AddFrame quantizes img, resizing it to the canvas first if needed, and
// writes it.
func (e *Encoder) AddFrame(img image.Image) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.AddPaletted(e.prepare(img))
}

func (e *Encoder) prepare(img image.Image) *image.Paletted {
	img = fit(img, e.width, e.height, e.opts.Resize)
	return quantize(img, e.opts.quality(), e.opts.Dither)
}

// AddPaletted writes an already paletted frame. Its bounds give the image
// position on the canvas.
func (e *Encoder) AddPaletted(p *image.Paletted) error {
	if err := e.check(); err != nil {
		return err
	}
	r := p.Bounds()
	if r.Empty() || r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > e.width || r.Max.Y > e.height {
		return fmt.Errorf("%w: %v on %dx%d", ErrFrameBounds, r, e.width, e.height)
	}
	if len(p.Palette) == 0 || len(p.Palette) > maxColors {
		return fmt.Errorf("encode: palette has %d colors", len(p.Palette))
	}

	if e.frames == 0 {
		e.writeHeader(p.Palette)
	}
	e.writeGraphicControl()
	e.writeImage(p, e.frames > 0)
	if e.err != nil {
		return e.err
	}
	e.frames++
	return nil
}

// Close writes the trailer and flushes. It does not close the underlying
// writer.
func (e *Encoder) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	if e.err != nil {
		return e.err
	}
	if e.frames == 0 {
		e.err = ErrNoFrames
		return e.err
	}
	e.writeByte(0x3B)
	if e.err == nil {
		e.err = e.w.Flush()
	}
	return e.err
}

func (e *Encoder) check() error {
	if e.closed {
		return ErrClosed
	}
	return e.err
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *Encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func (e *Encoder) writeShort(v int) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	e.write(b[:])
}

func (e *Encoder) writeHeader(global color.Palette) {
	e.write([]byte("GIF89a"))

	// logical screen descriptor
	e.writeShort(e.width)
	e.writeShort(e.height)
	e.writeByte(0x80 | 0x70 | byte(tableBits(len(global))-1))
	e.writeByte(0x00) // background color index
	e.writeByte(0x00) // pixel aspect ratio
	e.writePalette(global)

	if e.opts.Repeat >= 0 {
		e.write([]byte{0x21, 0xFF, 0x0B})
		e.write([]byte("NETSCAPE2.0"))
		e.write([]byte{0x03, 0x01})
		e.writeShort(e.opts.Repeat)
		e.writeByte(0x00)
	}
}

func (e *Encoder) writePalette(p color.Palette) {
	n := 1 << tableBits(len(p))
	table := make([]byte, 3*n)
	for i, c := range p {
		r, g, b, _ := c.RGBA()
		table[3*i], table[3*i+1], table[3*i+2] = byte(r>>8), byte(g>>8), byte(b>>8)
	}
	e.write(table)
}

func (e *Encoder) writeGraphicControl() {
	disposal := byte(e.opts.Dispose&0x07) << 2
	e.write([]byte{0x21, 0xF9, 0x04, disposal})
	e.writeShort(int(e.opts.delay()))
	e.writeByte(0x00) // transparent color index
	e.writeByte(0x00) // block terminator
}

func (e *Encoder) writeImage(p *image.Paletted, local bool) {
	r := p.Bounds()
	e.writeByte(0x2C)
	e.writeShort(r.Min.X)
	e.writeShort(r.Min.Y)
	e.writeShort(r.Dx())
	e.writeShort(r.Dy())

	bits := tableBits(len(p.Palette))
	if local {
		e.writeByte(0x80 | byte(bits-1))
		e.writePalette(p.Palette)
	} else {
		e.writeByte(0x00)
	}

	litWidth := bits
	if litWidth < 2 {
		litWidth = 2
	}
	e.writeByte(byte(litWidth))
	if e.err != nil {
		return
	}

	bw := &blockWriter{w: e.w}
	lw := lzw.NewWriter(bw, lzw.LSB, litWidth)
	for y := 0; y < r.Dy(); y++ {
		off := y * p.Stride
		if _, err := lw.Write(p.Pix[off : off+r.Dx()]); err != nil {
			e.err = err
			return
		}
	}
	if err := lw.Close(); err != nil {
		e.err = err
		return
	}
	e.err = bw.Close()
}

// Encode quantizes frames in parallel and writes them to w as one
// animation, reporting the fraction of frames written to progress. The
// canvas takes the size of the first frame.
func Encode(ctx context.Context, w io.Writer, frames []image.Image, opts *Options, progress func(float64)) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	b := frames[0].Bounds()
	enc := NewEncoder(w, b.Dx(), b.Dy(), opts)

	paletted := make([]*image.Paletted, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, img := range frames {
		i, img := i, img
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			paletted[i] = enc.prepare(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, p := range paletted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.AddPaletted(p); err != nil {
			return fmt.Errorf("encode: frame %d: %w", i, err)
		}
		if progress != nil {
			progress(float64(i+1) / float64(len(paletted)))
		}
	}
	return enc.Close()
}
