package progif

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"testing"
	"time"

	"progif/internal/giftest"
)

// TestDetectFormat tests format detection via magic bytes
func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name       string
		magicBytes []byte
		expected   string
	}{
		{
			name:       "GIF87a",
			magicBytes: []byte{0x47, 0x49, 0x46, 0x38, 0x37, 0x61},
			expected:   "GIF87a",
		},
		{
			name:       "GIF89a",
			magicBytes: []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61},
			expected:   "GIF89a",
		},
		{
			name:       "JPEG",
			magicBytes: []byte{0xFF, 0xD8, 0xFF, 0xE0},
			expected:   "",
		},
		{
			name:       "PNG",
			magicBytes: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			expected:   "",
		},
		{
			name:       "Unknown",
			magicBytes: []byte{0x00, 0x00, 0x00, 0x00},
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detectFormat(tt.magicBytes)
			if result != tt.expected {
				t.Errorf("detectFormat() = %v, want %v", result, tt.expected)
			}
			if IsGIF(tt.magicBytes) != (tt.expected != "") {
				t.Errorf("IsGIF() = %v", IsGIF(tt.magicBytes))
			}
		})
	}
}

// TestMetadata_InvalidFile tests error handling for invalid files
func TestMetadata_InvalidFile(t *testing.T) {
	_, err := Metadata("nonexistent.gif")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

// TestMetadata_UnsupportedFormat tests error handling for unsupported formats
func TestMetadata_UnsupportedFormat(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test.*.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())
	defer tmpfile.Close()

	// Write invalid magic bytes
	tmpfile.Write([]byte{0x00, 0x00, 0x00, 0x00})

	_, err = Metadata(tmpfile.Name())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Metadata() error = %v, want ErrUnsupportedFormat", err)
	}
}

// TestMetadata_GIF tests GIF metadata extraction
func TestMetadata_GIF(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test.*.gif")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())
	defer tmpfile.Close()

	gifData := giftest.MinimalGIF()
	tmpfile.Write(gifData)
	tmpfile.Close()

	md, err := Metadata(tmpfile.Name())
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}

	if md.Format != "GIF89a" {
		t.Errorf("Format = %v, want GIF89a", md.Format)
	}
	if md.Width != 2 || md.Height != 2 {
		t.Errorf("Dimensions = %dx%d, want 2x2", md.Width, md.Height)
	}
	if md.FileSize != int64(len(gifData)) {
		t.Errorf("FileSize = %d, want %d", md.FileSize, len(gifData))
	}
	if md.FrameCount != 1 {
		t.Errorf("FrameCount = %d, want 1", md.FrameCount)
	}
	if md.ColorSpace != "Indexed" {
		t.Errorf("ColorSpace = %q, want Indexed", md.ColorSpace)
	}
}

func TestMetadataFromBytes(t *testing.T) {
	palette := []color.RGBA{giftest.Red, giftest.Green, giftest.Blue, giftest.White}
	pixels := make([]byte, 8*8)
	for i := range pixels {
		pixels[i] = byte(i % 4)
	}

	data := giftest.NewBuilder(8, 8, palette).
		Loop(0).
		Comment("first").
		GraphicControl(1, 10, -1).
		Image(giftest.Image{Width: 8, Height: 8, Pixels: pixels}).
		GraphicControl(1, 20, 3).
		Image(giftest.Image{Width: 8, Height: 8, Pixels: pixels, Interlaced: true}).
		Image(giftest.Image{Width: 8, Height: 8, Pixels: pixels, Local: palette}).
		Comment("second").
		Bytes()

	md, err := MetadataFromBytes(data)
	if err != nil {
		t.Fatalf("MetadataFromBytes() error = %v", err)
	}

	if md.FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", md.FrameCount)
	}
	if md.LoopCount != 0 || !md.Looping {
		t.Errorf("LoopCount = %d, Looping = %v, want 0 and true", md.LoopCount, md.Looping)
	}
	if !md.HasTransparency {
		t.Error("HasTransparency = false, want true")
	}
	// 100ms + 200ms + one frame without a graphic control
	if want := 300*time.Millisecond + time.Second/60; md.Duration != want {
		t.Errorf("Duration = %v, want %v", md.Duration, want)
	}
	if len(md.Comments) != 2 || md.Comments[0] != "first" || md.Comments[1] != "second" {
		t.Errorf("Comments = %q", md.Comments)
	}
	if md.ColorDepth != 8 {
		t.Errorf("ColorDepth = %d, want 8", md.ColorDepth)
	}

	additional := map[string]interface{}{
		"Animated":             true,
		"InterlacedFrames":     1,
		"LocalColorTables":     1,
		"GlobalColorTableSize": 4,
	}
	for k, want := range additional {
		if got := md.Additional[k]; got != want {
			t.Errorf("Additional[%q] = %v, want %v", k, got, want)
		}
	}
	apps, ok := md.Additional["Applications"].([]string)
	if !ok || len(apps) != 1 || apps[0] != "NETSCAPE2.0" {
		t.Errorf("Additional[Applications] = %v", md.Additional["Applications"])
	}
}

func TestMetadataFromBytes_PlaysOnce(t *testing.T) {
	md, err := MetadataFromBytes(giftest.MinimalGIF())
	if err != nil {
		t.Fatalf("MetadataFromBytes() error = %v", err)
	}
	if md.Looping || md.LoopCount != 0 {
		t.Errorf("LoopCount = %d, Looping = %v, want 0 and false", md.LoopCount, md.Looping)
	}
}

func TestMetadataFromReader(t *testing.T) {
	md, err := MetadataFromReader(bytes.NewReader(giftest.MinimalGIF()))
	if err != nil {
		t.Fatalf("MetadataFromReader() error = %v", err)
	}
	if md.Width != 2 || md.Height != 2 {
		t.Errorf("Dimensions = %dx%d, want 2x2", md.Width, md.Height)
	}

	if _, err := MetadataFromReader(bytes.NewReader([]byte("GIF"))); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("MetadataFromReader() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestMetadataFromBytes_Truncated(t *testing.T) {
	data := giftest.MinimalGIF()
	_, err := MetadataFromBytes(data[:16])
	if !errors.Is(err, ErrFormat) {
		t.Errorf("MetadataFromBytes() error = %v, want ErrFormat", err)
	}
}

// BenchmarkDetectFormat benchmarks format detection
func BenchmarkDetectFormat(b *testing.B) {
	magicBytes := []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}
	for i := 0; i < b.N; i++ {
		detectFormat(magicBytes)
	}
}

// BenchmarkMetadataFromBytes benchmarks metadata extraction
func BenchmarkMetadataFromBytes(b *testing.B) {
	data := giftest.MinimalGIF()
	for i := 0; i < b.N; i++ {
		MetadataFromBytes(data)
	}
}
