package encode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"progif"
	"progif/formats"
)

// checker returns a w x h image cycling through colors.
func checker(w, h int, colors []color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, colors[(x+y*3)%len(colors)])
		}
	}
	return img
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: uint8(x * y), A: 0xFF})
		}
	}
	return img
}

var (
	warm = []color.RGBA{{R: 0xFF, A: 0xFF}, {R: 0xFF, G: 0x80, A: 0xFF}, {R: 0xFF, G: 0xFF, A: 0xFF}}
	cool = []color.RGBA{{B: 0xFF, A: 0xFF}, {G: 0x80, B: 0xFF, A: 0xFF}, {G: 0xFF, B: 0xFF, A: 0xFF}, {A: 0xFF}, {R: 0x10, G: 0x20, B: 0x30, A: 0xFF}}
)

func TestEncode_RoundTrip(t *testing.T) {
	frames := []image.Image{
		checker(8, 6, warm),
		checker(8, 6, cool),
		checker(8, 6, append(append([]color.RGBA{}, warm...), cool...)),
	}

	var buf bytes.Buffer
	var progress []float64
	opts := &Options{Quality: 1, Delay: 100 * time.Millisecond, Dispose: 1}
	if err := Encode(context.Background(), &buf, frames, opts, func(f float64) { progress = append(progress, f) }); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	res, err := progif.Decode(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(res.Anomalies) != 0 {
		t.Errorf("Anomalies = %v", res.Anomalies)
	}
	if len(res.Frames) != len(frames) {
		t.Fatalf("Frames = %d, want %d", len(res.Frames), len(frames))
	}
	if res.Width != 8 || res.Height != 6 {
		t.Errorf("canvas = %dx%d, want 8x6", res.Width, res.Height)
	}

	for i, f := range res.Frames {
		want := frames[i].(*image.RGBA)
		if !bytes.Equal(f.Image.Pix, want.Pix) {
			t.Errorf("frame %d differs from the source", i)
		}
		if f.Delay != 100*time.Millisecond {
			t.Errorf("frame %d delay = %v, want 100ms", i, f.Delay)
		}
	}

	if len(progress) != 3 || progress[2] != 1 {
		t.Errorf("progress = %v, want three steps ending at 1", progress)
	}
}

func TestEncoder_Repeat(t *testing.T) {
	tests := []struct {
		repeat   int
		wantApps int
		wantLoop int
	}{
		{-1, 0, 0},
		{0, 1, 0},
		{3, 1, 3},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		enc := NewEncoder(&buf, 2, 2, &Options{Repeat: tt.repeat})
		if err := enc.AddFrame(checker(2, 2, warm)); err != nil {
			t.Fatalf("AddFrame() error = %v", err)
		}
		if err := enc.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		doc, err := formats.Parse(buf.Bytes())
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if len(doc.Applications) != tt.wantApps {
			t.Errorf("Repeat %d: Applications = %d, want %d", tt.repeat, len(doc.Applications), tt.wantApps)
		}
		if doc.LoopCount() != tt.wantLoop {
			t.Errorf("Repeat %d: LoopCount() = %d, want %d", tt.repeat, doc.LoopCount(), tt.wantLoop)
		}
	}
}

func TestEncoder_Layout(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 4, 4, &Options{Quality: 1, Dispose: 2, Delay: 250 * time.Millisecond})
	for _, colors := range [][]color.RGBA{warm, cool} {
		if err := enc.AddFrame(checker(4, 4, colors)); err != nil {
			t.Fatalf("AddFrame() error = %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	doc, err := formats.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Version != formats.Version89a || !doc.Trailer {
		t.Errorf("Version = %q, Trailer = %v", doc.Version, doc.Trailer)
	}
	if len(doc.GlobalColorTable) != 4 {
		t.Errorf("GlobalColorTable = %d entries, want 4", len(doc.GlobalColorTable))
	}
	if doc.Images[0].LocalColorTableFlag {
		t.Error("first frame has a local color table")
	}
	if !doc.Images[1].LocalColorTableFlag || len(doc.Images[1].LocalColorTable) != 8 {
		t.Errorf("second frame local table = %d entries, want 8", len(doc.Images[1].LocalColorTable))
	}
	for i, img := range doc.Images {
		gc := img.Control
		if gc == nil || gc.Disposal != formats.DisposalBackground || gc.DelayTime != 25 {
			t.Errorf("image %d control = %+v", i, gc)
		}
	}
}

func TestEncoder_ManyColors(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 32, 32, &Options{Quality: 1})
	if err := enc.AddFrame(gradient(32, 32)); err != nil {
		t.Fatalf("AddFrame() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	res, err := progif.Decode(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(res.Anomalies) != 0 {
		t.Errorf("Anomalies = %v", res.Anomalies)
	}
	if len(res.Frames) != 1 {
		t.Fatalf("Frames = %d, want 1", len(res.Frames))
	}
}

func TestEncoder_Dither(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 32, 32, &Options{Dither: true})
	if err := enc.AddFrame(gradient(32, 32)); err != nil {
		t.Fatalf("AddFrame() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := progif.Decode(buf.Bytes(), nil); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
}

func TestEncoder_Resize(t *testing.T) {
	tests := []struct {
		name   string
		mode   Resize
		corner color.RGBA
	}{
		{"Stretch", ResizeStretch, color.RGBA{R: 0xFF, A: 0xFF}},
		{"KeepRatio", ResizeKeepRatio, color.RGBA{A: 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			enc := NewEncoder(&buf, 8, 8, &Options{Quality: 1, Resize: tt.mode})
			if err := enc.AddFrame(checker(4, 2, warm[:1])); err != nil {
				t.Fatalf("AddFrame() error = %v", err)
			}
			if err := enc.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			res, err := progif.Decode(buf.Bytes(), nil)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			img := res.Frames[0].Image
			if img.Bounds() != image.Rect(0, 0, 8, 8) {
				t.Fatalf("Bounds() = %v, want 8x8", img.Bounds())
			}
			if c := img.RGBAAt(0, 0); c != tt.corner {
				t.Errorf("corner = %v, want %v", c, tt.corner)
			}
		})
	}
}

func TestEncoder_Errors(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 2, 2, nil)
	if err := enc.Close(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Close() error = %v, want ErrNoFrames", err)
	}
	if err := enc.AddFrame(checker(2, 2, warm)); !errors.Is(err, ErrClosed) {
		t.Errorf("AddFrame() error = %v, want ErrClosed", err)
	}

	enc = NewEncoder(&buf, 2, 2, nil)
	p := image.NewPaletted(image.Rect(1, 1, 3, 3), color.Palette{color.Black, color.White})
	if err := enc.AddPaletted(p); !errors.Is(err, ErrFrameBounds) {
		t.Errorf("AddPaletted() error = %v, want ErrFrameBounds", err)
	}

	if err := Encode(context.Background(), &buf, nil, nil, nil); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Encode() error = %v, want ErrNoFrames", err)
	}
}

func TestEncoder_AddPalettedOffset(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 4, 4, &Options{Dispose: 1})
	palette := color.Palette{color.RGBA{R: 0xFF, A: 0xFF}, color.RGBA{B: 0xFF, A: 0xFF}}

	if err := enc.AddPaletted(image.NewPaletted(image.Rect(0, 0, 4, 4), palette)); err != nil {
		t.Fatalf("AddPaletted() error = %v", err)
	}
	small := image.NewPaletted(image.Rect(2, 2, 4, 4), palette)
	for i := range small.Pix {
		small.Pix[i] = 1
	}
	if err := enc.AddPaletted(small); err != nil {
		t.Fatalf("AddPaletted() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	res, err := progif.Decode(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second := res.Frames[1].Image
	if c := second.RGBAAt(0, 0); c != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Errorf("pixel (0,0) = %v, want red", c)
	}
	if c := second.RGBAAt(3, 3); c != (color.RGBA{B: 0xFF, A: 0xFF}) {
		t.Errorf("pixel (3,3) = %v, want blue", c)
	}
}

func TestEncode_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Encode(ctx, &buf, []image.Image{checker(2, 2, warm)}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Encode() error = %v, want context.Canceled", err)
	}
}

func TestBlockWriter(t *testing.T) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	bw := &blockWriter{w: w}
	if _, err := bw.Write(bytes.Repeat([]byte{0xAB}, 600)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	w.Flush()

	data := out.Bytes()
	var sizes []int
	for len(data) > 0 {
		n := int(data[0])
		sizes = append(sizes, n)
		data = data[1+n:]
	}
	want := []int{255, 255, 90, 0}
	if len(sizes) != len(want) {
		t.Fatalf("sub-blocks = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("sub-blocks = %v, want %v", sizes, want)
			break
		}
	}
}

func TestCensus(t *testing.T) {
	img := checker(6, 6, warm)
	if got := census(img, 1); len(got) != 3 {
		t.Errorf("census() = %d colors, want 3", len(got))
	}
	if got := census(gradient(32, 32), 1); got != nil {
		t.Errorf("census() = %d colors, want nil for more than 256", len(got))
	}
	if got := padPalette(census(img, 1)); len(got) != 4 {
		t.Errorf("padPalette() = %d entries, want 4", len(got))
	}
}

func TestTableBits(t *testing.T) {
	tests := []struct{ n, want int }{
		{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {16, 4}, {17, 5}, {256, 8},
	}
	for _, tt := range tests {
		if got := tableBits(tt.n); got != tt.want {
			t.Errorf("tableBits(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestWorker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gif")
	frames := []image.Image{checker(4, 4, warm), checker(4, 4, cool)}

	w := NewWorker(path, frames, &Options{Quality: 1})
	var (
		progress []float64
		savedID  int
		saved    string
	)
	w.OnProgress = func(id int, f float64) {
		if id != w.ID() {
			t.Errorf("OnProgress id = %d, want %d", id, w.ID())
		}
		progress = append(progress, f)
	}
	w.OnSaved = func(id int, p string) {
		savedID, saved = id, p
	}

	w.Start(context.Background())
	w.Start(context.Background())
	if err := w.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if len(progress) == 0 || progress[len(progress)-1] != 1 {
		t.Errorf("progress = %v, want to end at 1", progress)
	}
	if saved != path || savedID != w.ID() {
		t.Errorf("OnSaved(%d, %q), want (%d, %q)", savedID, saved, w.ID(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	res, err := progif.Decode(data, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(res.Frames) != 2 {
		t.Errorf("Frames = %d, want 2", len(res.Frames))
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the saved file", len(entries))
	}
}

func TestWorker_IDs(t *testing.T) {
	a := NewWorker("a.gif", nil, nil)
	b := NewWorker("b.gif", nil, nil)
	if a.ID() == b.ID() {
		t.Errorf("worker ids collide: %d", a.ID())
	}
	if err := a.Wait(); err == nil {
		t.Error("Wait() on an unstarted worker returned nil")
	}
}

func TestWorker_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gif")
	w := NewWorker(path, nil, nil)
	called := false
	w.OnSaved = func(int, string) { called = true }
	w.Start(context.Background())

	if err := w.Wait(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Wait() error = %v, want ErrNoFrames", err)
	}
	if called {
		t.Error("OnSaved called for a failed encode")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat() error = %v, want not exist", err)
	}
}

// BenchmarkEncode benchmarks quantizing and writing 8 frames
func BenchmarkEncode(b *testing.B) {
	frames := make([]image.Image, 8)
	for i := range frames {
		frames[i] = gradient(64, 64)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := Encode(context.Background(), &buf, frames, nil, nil); err != nil {
			b.Fatal(err)
		}
	}
}
