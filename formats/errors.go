package formats

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidData indicates malformed or incomplete format data.
	// Every *FormatError matches it with errors.Is.
	ErrInvalidData = errors.New("formats: invalid data")

	// ErrUnsupportedFormat is returned when a parser is not available.
	ErrUnsupportedFormat = errors.New("formats: unsupported format")

	// ErrBadSignature is returned when the stream does not start with "GIF".
	ErrBadSignature = errors.New("formats: bad signature")

	// ErrUnsupportedVersion is returned for versions other than 87a and 89a.
	ErrUnsupportedVersion = errors.New("formats: unsupported version")

	// ErrTruncated is returned when the buffer ends inside a mandatory field.
	ErrTruncated = errors.New("formats: truncated buffer")

	// ErrUnknownBlock is returned for an unrecognized block introducer.
	ErrUnknownBlock = errors.New("formats: unknown block introducer")

	// ErrNoProgress is returned when the block loop fails to advance.
	ErrNoProgress = errors.New("formats: parser made no progress")
)

// Non-fatal conditions recorded in Document.Warnings.
var (
	// ErrTruncatedData marks a sub-block chain cut short by the end of the buffer.
	ErrTruncatedData = errors.New("formats: truncated sub-block data")

	// ErrMissingTrailer marks a stream that ends without a trailer block.
	ErrMissingTrailer = errors.New("formats: missing trailer")

	// ErrMalformedExtension marks an extension whose fixed block has an unexpected size.
	ErrMalformedExtension = errors.New("formats: malformed extension")
)

// FormatError is the fatal error returned by Parse. It names the violated
// expectation and the byte offset where it was detected.
type FormatError struct {
	Offset int
	Err    error
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Detail)
}

// Unwrap exposes both the specific cause and ErrInvalidData.
func (e *FormatError) Unwrap() []error {
	return []error{e.Err, ErrInvalidData}
}

func formatError(offset int, err error, format string, args ...interface{}) *FormatError {
	return &FormatError{Offset: offset, Err: err, Detail: fmt.Sprintf(format, args...)}
}
