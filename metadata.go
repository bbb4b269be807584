package progif

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"progif/formats"
)

// setAdditional stores a value lazily in the Additional map.
func (md *ImageMetadata) setAdditional(key string, value interface{}) {
	if md.Additional == nil {
		md.Additional = make(map[string]interface{})
	}
	md.Additional[key] = value
}

var bytePool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 64*1024)
	},
}

func borrowBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}
	buf := bytePool.Get().([]byte)
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	return buf[:size]
}

func releaseBuffer(buf []byte) {
	if buf == nil {
		return
	}
	bytePool.Put(buf)
}

// Metadata reads a GIF file and extracts its metadata: version, canvas size,
// color tables, frame count, loop count, playback length and comments.
//
// Example:
//
//	md, err := progif.Metadata("anim.gif")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Format: %s, Dimensions: %dx%d, Frames: %d\n", md.Format, md.Width, md.Height, md.FrameCount)
func Metadata(filepath string) (*ImageMetadata, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return MetadataFromReader(file)
}

// MetadataFromReader extracts metadata from any io.Reader. The magic bytes
// are checked before the rest of the stream is read.
func MetadataFromReader(r io.Reader) (*ImageMetadata, error) {
	var magicBytes [16]byte
	n, err := io.ReadFull(r, magicBytes[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: failed to read file header: %v", ErrInvalidSource, err)
	}
	header := magicBytes[:n]

	if detectFormat(header) == "" {
		return nil, ErrUnsupportedFormat
	}

	data, err := io.ReadAll(io.MultiReader(bytes.NewReader(header), r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	return MetadataFromBytes(data)
}

// MetadataFromBytes extracts metadata from an in-memory GIF stream.
func MetadataFromBytes(data []byte) (*ImageMetadata, error) {
	if detectFormat(data) == "" {
		return nil, ErrUnsupportedFormat
	}

	doc, err := formats.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract GIF metadata: %w", err)
	}

	md := &ImageMetadata{FileSize: int64(len(data))}
	ExtractGIFMetadata(doc, md)
	return md, nil
}
