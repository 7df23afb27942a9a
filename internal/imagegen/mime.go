package imagegen

import "bytes"

const defaultMIME = "image/jpeg"

var signatures = []struct {
	magic []byte
	mime  string
}{
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
	{[]byte{0x47, 0x49, 0x46}, "image/gif"},
	{[]byte{0x52, 0x49, 0x46, 0x46}, "image/webp"},
}

// DetectMIME sniffs the leading bytes of an image. Unknown or empty input is
// reported as JPEG.
func DetectMIME(data []byte) string {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.mime
		}
	}
	return defaultMIME
}

// Extension returns the file extension for a MIME type produced by DetectMIME.
func Extension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
