// Package encoding decodes the free-text fields of mesh files.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// HeaderSize is the length of a binary STL header.
const HeaderSize = 80

// Windows1252ToUTF8 converts Windows-1252 bytes, the usual encoding of CAD
// exporters, to a UTF-8 string. Returns the input as-is if decoding fails.
func Windows1252ToUTF8(data []byte) string {
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToWindows1252 encodes s, writing '?' for characters the code page
// lacks.
func UTF8ToWindows1252(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// HeaderName extracts a display name from a binary STL header: text up to
// the first NUL, decoded, with a leading "solid" keyword removed.
func HeaderName(header []byte) string {
	if i := bytes.IndexByte(header, 0); i >= 0 {
		header = header[:i]
	}
	name := strings.TrimSpace(Windows1252ToUTF8(header))
	if rest, ok := strings.CutPrefix(name, "solid"); ok && (rest == "" || rest[0] == ' ') {
		name = strings.TrimSpace(rest)
	}
	return name
}

// Header builds a NUL-padded binary STL header holding name.
func Header(name string) []byte {
	h := make([]byte, HeaderSize)
	copy(h, UTF8ToWindows1252(name))
	return h
}
