package encode

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/soniakeys/quant/median"
	"golang.org/x/image/draw"
)

const maxColors = 256

// quantize maps img onto a palette of at most 256 colors, moving it to the
// origin. Images with few enough sampled colors keep them exactly; others go
// through median cut.
func quantize(img image.Image, quality int, dither bool) *image.Paletted {
	b := img.Bounds()
	palette := census(img, quality)
	if palette == nil {
		palette = median.Quantizer(maxColors).Quantize(make(color.Palette, 0, maxColors), img)
	}
	palette = padPalette(palette)

	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette)
	if dither {
		draw.FloydSteinberg.Draw(dst, dst.Bounds(), img, b.Min)
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	return dst
}

// census collects the distinct colors of every step-th pixel in order of
// first appearance. It returns nil when there are more than 256.
func census(img image.Image, step int) color.Palette {
	if step < 1 {
		step = 1
	}
	b := img.Bounds()
	seen := make(map[color.RGBA]struct{}, maxColors)
	palette := make(color.Palette, 0, maxColors)

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if i%step == 0 {
				c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
				c.A = 0xFF
				if _, ok := seen[c]; !ok {
					if len(palette) == maxColors {
						return nil
					}
					seen[c] = struct{}{}
					palette = append(palette, c)
				}
			}
			i++
		}
	}
	return palette
}

// padPalette extends p with black to a power of two of at least 2 entries.
func padPalette(p color.Palette) color.Palette {
	n := 1 << tableBits(len(p))
	for len(p) < n {
		p = append(p, color.RGBA{A: 0xFF})
	}
	return p
}

// tableBits returns the color table size field for n entries, 1 to 8.
func tableBits(n int) int {
	bits := 1
	for bits < 8 && 1<<bits < n {
		bits++
	}
	return bits
}

// fit resizes img to width x height according to mode.
func fit(img image.Image, width, height int, mode Resize) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	if mode == ResizeStretch {
		return imaging.Resize(img, width, height, imaging.Lanczos)
	}

	scaled := imaging.Fit(img, width, height, imaging.Lanczos)
	canvas := imaging.New(width, height, color.Black)
	return imaging.PasteCenter(canvas, scaled)
}
