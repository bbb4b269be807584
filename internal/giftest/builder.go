// Package giftest assembles GIF streams block by block for tests.
package giftest

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
	"image/color"
)

// Image describes one image block.
type Image struct {
	Left, Top     int
	Width, Height int
	Pixels        []byte // color indices in natural row order
	Local         []color.RGBA
	Interlaced    bool
	MinCodeSize   int // 0 picks the smallest size that fits the table
}

// Builder writes a GIF stream. Methods append blocks in call order.
type Builder struct {
	Version    string
	Width      int
	Height     int
	Global     []color.RGBA
	Background uint8

	blocks bytes.Buffer
}

// NewBuilder returns a GIF89a builder with an optional global color table.
func NewBuilder(width, height int, global []color.RGBA) *Builder {
	return &Builder{Version: "89a", Width: width, Height: height, Global: global}
}

// Loop appends a NETSCAPE2.0 loop extension.
func (b *Builder) Loop(count int) *Builder {
	b.blocks.Write([]byte{0x21, 0xFF, 0x0B})
	b.blocks.WriteString("NETSCAPE2.0")
	b.blocks.Write([]byte{0x03, 0x01, byte(count), byte(count >> 8), 0x00})
	return b
}

// Comment appends a comment extension.
func (b *Builder) Comment(text string) *Builder {
	b.blocks.Write([]byte{0x21, 0xFE})
	writeSubBlocks(&b.blocks, []byte(text))
	return b
}

// GraphicControl appends a graphic control extension. A negative transparent
// index leaves the transparent flag unset.
func (b *Builder) GraphicControl(disposal int, delay int, transparent int) *Builder {
	packed := byte(disposal&0x07) << 2
	index := byte(0)
	if transparent >= 0 {
		packed |= 0x01
		index = byte(transparent)
	}
	b.blocks.Write([]byte{0x21, 0xF9, 0x04, packed, byte(delay), byte(delay >> 8), index, 0x00})
	return b
}

// Image appends an image descriptor, its local table and compressed data.
func (b *Builder) Image(img Image) *Builder {
	var desc [10]byte
	desc[0] = 0x2C
	binary.LittleEndian.PutUint16(desc[1:], uint16(img.Left))
	binary.LittleEndian.PutUint16(desc[3:], uint16(img.Top))
	binary.LittleEndian.PutUint16(desc[5:], uint16(img.Width))
	binary.LittleEndian.PutUint16(desc[7:], uint16(img.Height))
	if img.Local != nil {
		desc[9] = 0x80 | byte(TableBits(len(img.Local))-1)
	}
	if img.Interlaced {
		desc[9] |= 0x40
	}
	b.blocks.Write(desc[:])
	if img.Local != nil {
		writeTable(&b.blocks, img.Local)
	}

	codeSize := img.MinCodeSize
	if codeSize == 0 {
		table := img.Local
		if table == nil {
			table = b.Global
		}
		codeSize = TableBits(len(table))
		if codeSize < 2 {
			codeSize = 2
		}
	}
	pixels := img.Pixels
	if img.Interlaced {
		pixels = Interlace(pixels, img.Width, img.Height)
	}
	b.blocks.WriteByte(byte(codeSize))
	b.blocks.Write(Compress(pixels, codeSize))
	return b
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(p ...byte) *Builder {
	b.blocks.Write(p)
	return b
}

// Bytes returns the stream including the trailer.
func (b *Builder) Bytes() []byte {
	return append(b.BytesNoTrailer(), 0x3B)
}

// BytesNoTrailer returns the stream without the trailer byte.
func (b *Builder) BytesNoTrailer() []byte {
	var out bytes.Buffer
	out.WriteString("GIF" + b.Version)

	var lsd [7]byte
	binary.LittleEndian.PutUint16(lsd[0:], uint16(b.Width))
	binary.LittleEndian.PutUint16(lsd[2:], uint16(b.Height))
	if b.Global != nil {
		lsd[4] = 0x80 | 0x70 | byte(TableBits(len(b.Global))-1)
	}
	lsd[5] = b.Background
	out.Write(lsd[:])
	if b.Global != nil {
		writeTable(&out, b.Global)
	}
	out.Write(b.blocks.Bytes())
	return out.Bytes()
}

// Compress LZW-encodes indices and frames the result as data sub-blocks,
// terminator included.
func Compress(pixels []byte, minCodeSize int) []byte {
	var raw bytes.Buffer
	w := lzw.NewWriter(&raw, lzw.LSB, minCodeSize)
	if _, err := w.Write(pixels); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	var out bytes.Buffer
	writeSubBlocks(&out, raw.Bytes())
	return out.Bytes()
}

// Interlace reorders natural rows into the four-pass GIF interlace order.
func Interlace(pixels []byte, width, height int) []byte {
	out := make([]byte, 0, len(pixels))
	for _, pass := range [][2]int{{0, 8}, {4, 8}, {2, 4}, {1, 2}} {
		for y := pass[0]; y < height; y += pass[1] {
			out = append(out, pixels[y*width:(y+1)*width]...)
		}
	}
	return out
}

// TableBits returns the number of bits needed to index n table entries,
// with a minimum of 1.
func TableBits(n int) int {
	bits := 1
	for 1<<bits < n {
		bits++
	}
	return bits
}

func writeTable(buf *bytes.Buffer, table []color.RGBA) {
	n := 1 << TableBits(len(table))
	for i := 0; i < n; i++ {
		if i < len(table) {
			buf.Write([]byte{table[i].R, table[i].G, table[i].B})
		} else {
			buf.Write([]byte{0, 0, 0})
		}
	}
}

func writeSubBlocks(buf *bytes.Buffer, data []byte) {
	for len(data) > 0 {
		n := len(data)
		if n > 255 {
			n = 255
		}
		buf.WriteByte(byte(n))
		buf.Write(data[:n])
		data = data[n:]
	}
	buf.WriteByte(0x00)
}
