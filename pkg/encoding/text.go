// Package encoding provides text decoding utilities for voxel file formats.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeText converts a dictionary string to UTF-8.
// Valid UTF-8 is returned unchanged; anything else is treated as
// Windows-1252, which older MagicaVoxel builds wrote for node names.
func DecodeText(data []byte) string {
	data = TrimNullBytes(data)
	if utf8.Valid(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		// Return as-is if decoding fails
		return string(data)
	}
	return string(result)
}

// EncodeText converts a UTF-8 string to Windows-1252 bytes.
// Returns the original bytes if the string has no Windows-1252 form.
func EncodeText(s string) []byte {
	result, _, err := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}
