package formats

// Detect identifies a GIF stream by examining the magic bytes.
// It returns "GIF87a" or "GIF89a", or an empty string if the prefix is not a
// supported GIF signature.
func Detect(magicBytes []byte) string {
	if len(magicBytes) < 6 {
		return ""
	}

	// GIF: 47 49 46 38 37 61 (GIF87a) or 47 49 46 38 39 61 (GIF89a)
	if !hasSignature(magicBytes) {
		return ""
	}
	switch string(magicBytes[3:6]) {
	case Version87a:
		return "GIF87a"
	case Version89a:
		return "GIF89a"
	}
	return ""
}

func hasSignature(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x47 && b[1] == 0x49 && b[2] == 0x46
}

func supportedVersion(v []byte) bool {
	return string(v) == Version87a || string(v) == Version89a
}
