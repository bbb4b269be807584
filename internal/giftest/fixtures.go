package giftest

import "image/color"

var (
	Red   = color.RGBA{R: 0xFF, A: 0xFF}
	Green = color.RGBA{G: 0xFF, A: 0xFF}
	Blue  = color.RGBA{B: 0xFF, A: 0xFF}
	White = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	Black = color.RGBA{A: 0xFF}
)

// MinimalGIF returns a hand-assembled 2x2 GIF89a with a red/blue global table
// whose single image decodes to the indices [0 1 1 0]: red on the diagonal.
func MinimalGIF() []byte {
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // "GIF89a"
		0x02, 0x00, // Width (2) little-endian
		0x02, 0x00, // Height (2) little-endian
		0x80,             // Packed fields: global table, 2 entries
		0x00,             // Background color
		0x00,             // Aspect ratio
		0xFF, 0x00, 0x00, // index 0: red
		0x00, 0x00, 0xFF, // index 1: blue
		0x2C,                   // Image separator
		0x00, 0x00, 0x00, 0x00, // Left, Top
		0x02, 0x00, 0x02, 0x00, // Width, Height
		0x00,                   // Packed fields
		0x02,                   // LZW minimum code size
		0x03, 0x44, 0x02, 0x05, // codes: clear 0 1 1 | 0 end
		0x00, // Block terminator
		0x3B, // Trailer
	}
}

// MinimalIndices is the decoded index stream of MinimalGIF.
var MinimalIndices = []byte{0, 1, 1, 0}
