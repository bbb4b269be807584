package progif

import (
	"errors"
	"fmt"

	"progif/formats"
)

var (
	// ErrUnsupportedFormat is returned when the input is not a GIF stream.
	ErrUnsupportedFormat = errors.New("progif: unsupported format")

	// ErrInvalidSource is returned when the provided data source cannot be read.
	ErrInvalidSource = errors.New("progif: invalid source")

	// ErrNoImages is recorded as an anomaly when a stream has no image blocks.
	ErrNoImages = errors.New("progif: no image blocks")

	// ErrImageTooLarge is recorded as an anomaly when an image declares more
	// pixels than its data can encode. Only the encodable part is decoded.
	ErrImageTooLarge = errors.New("progif: image larger than its data")

	// ErrFormat matches every structural parse failure with errors.Is.
	ErrFormat = formats.ErrInvalidData
)

// FormatError is the fatal error for a structurally invalid stream. It
// carries the byte offset of the violation.
type FormatError = formats.FormatError

// DecodeAnomaly is a non-fatal problem met while decoding. Frame is the image
// block index, or -1 for problems found while parsing the block stream.
type DecodeAnomaly struct {
	Frame int
	Err   error
}

func (a DecodeAnomaly) Error() string {
	if a.Frame < 0 {
		return fmt.Sprintf("progif: stream: %v", a.Err)
	}
	return fmt.Sprintf("progif: frame %d: %v", a.Frame, a.Err)
}

func (a DecodeAnomaly) Unwrap() error {
	return a.Err
}
