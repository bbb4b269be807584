package progif

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Texture returns the frame with rows ordered bottom-up, the layout texture
// uploads expect.
func (f Frame) Texture() *image.NRGBA {
	return imaging.FlipV(f.Image)
}

// Scale resamples the frame to width x height using its filter hint.
func (f Frame) Scale(width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	f.kernel().Scale(dst, dst.Bounds(), f.Image, f.Image.Bounds(), draw.Src, nil)
	return dst
}

func (f Frame) kernel() draw.Interpolator {
	switch f.Filter {
	case FilterBilinear:
		return draw.ApproxBiLinear
	case FilterTrilinear:
		return draw.CatmullRom
	default:
		return draw.NearestNeighbor
	}
}

// Sample returns the color at normalized coordinates (u, v), with (0, 0) at
// the top-left corner. Coordinates outside [0, 1) are resolved with the
// frame's wrap hint. Bilinear and trilinear frames blend the four nearest
// pixels.
func (f Frame) Sample(u, v float64) color.RGBA {
	b := f.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return color.RGBA{}
	}

	x := u*float64(w) - 0.5
	y := v*float64(h) - 0.5
	if f.Filter == FilterPoint {
		return f.Image.RGBAAt(b.Min.X+f.wrap(int(math.Floor(x+0.5)), w), b.Min.Y+f.wrap(int(math.Floor(y+0.5)), h))
	}

	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	px := func(dx, dy int) color.RGBA {
		return f.Image.RGBAAt(b.Min.X+f.wrap(ix+dx, w), b.Min.Y+f.wrap(iy+dy, h))
	}
	c00, c10, c01, c11 := px(0, 0), px(1, 0), px(0, 1), px(1, 1)

	lerp := func(tl, tr, bl, br uint8) uint8 {
		top := float64(tl)*(1-fx) + float64(tr)*fx
		bottom := float64(bl)*(1-fx) + float64(br)*fx
		return uint8(math.Round(top*(1-fy) + bottom*fy))
	}
	return color.RGBA{
		R: lerp(c00.R, c10.R, c01.R, c11.R),
		G: lerp(c00.G, c10.G, c01.G, c11.G),
		B: lerp(c00.B, c10.B, c01.B, c11.B),
		A: lerp(c00.A, c10.A, c01.A, c11.A),
	}
}

// wrap maps a pixel coordinate into [0, n).
func (f Frame) wrap(i, n int) int {
	switch f.Wrap {
	case WrapRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case WrapMirror:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	default:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}
