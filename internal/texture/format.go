package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format is an atlas image file format.
type Format string

// Supported atlas formats.
const (
	FormatTGA Format = "tga"
	FormatBMP Format = "bmp"
	FormatPNG Format = "png"
)

// ParseFormat parses a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatTGA, FormatBMP, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Encode encodes img in format f.
func Encode(img image.Image, f Format) ([]byte, error) {
	switch f {
	case FormatTGA:
		return EncodeTGA(img)
	case FormatBMP:
		var buf bytes.Buffer
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatPNG:
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Decode decodes data in format f.
func Decode(data []byte, f Format) (image.Image, error) {
	switch f {
	case FormatTGA:
		img, err := DecodeTGA(data)
		if err != nil {
			return nil, err
		}
		return img, nil
	case FormatBMP:
		return bmp.Decode(bytes.NewReader(data))
	case FormatPNG:
		return png.Decode(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// WriteFile encodes img in format f and writes it to path, creating parent
// directories as needed.
func WriteFile(path string, img image.Image, f Format) error {
	data, err := Encode(img, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
