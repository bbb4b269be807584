package progif

import "progif/formats"

// detectFormat identifies a GIF stream by its magic bytes. It returns
// "GIF87a" or "GIF89a", or an empty string if the format is not recognized.
func detectFormat(magicBytes []byte) string {
	return formats.Detect(magicBytes)
}

// IsGIF reports whether b starts with a supported GIF signature.
func IsGIF(b []byte) bool {
	return detectFormat(b) != ""
}
