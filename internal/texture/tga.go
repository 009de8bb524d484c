// Package texture reads and writes the TGA images used for palette and
// material atlas strips.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color

	tgaHeaderSize  = 18
	tgaTopToBottom = 0x20
)

// Errors returned by the encoders and decoders.
var (
	ErrInvalidTGA     = errors.New("invalid TGA")
	ErrUnsupportedTGA = errors.New("unsupported TGA")
)

// EncodeTGA encodes img as an uncompressed 32-bit top-to-bottom TGA with
// straight (non-premultiplied) alpha.
func EncodeTGA(img image.Image) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > 0xFFFF || h > 0xFFFF {
		return nil, fmt.Errorf("%w: %dx%d exceeds 65535", ErrUnsupportedTGA, w, h)
	}

	out := make([]byte, tgaHeaderSize, tgaHeaderSize+w*h*4)
	out[2] = TGATypeUncompressed
	out[12], out[13] = byte(w), byte(w>>8)
	out[14], out[15] = byte(h), byte(h>>8)
	out[16] = 32
	out[17] = tgaTopToBottom | 8 // 8 alpha bits

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out = append(out, c.B, c.G, c.R, c.A)
		}
	}
	return out, nil
}

// DecodeTGA decodes an uncompressed (type 2) or RLE (type 10) true-color
// TGA with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (*image.NRGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrInvalidTGA)
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped image", ErrUnsupportedTGA)
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("%w: image type %d", ErrUnsupportedTGA, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupportedTGA, bpp)
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("%w: truncated id field", ErrInvalidTGA)
	}

	d := tgaDecoder{
		img:         image.NewNRGBA(image.Rect(0, 0, width, height)),
		src:         data[offset:],
		width:       width,
		height:      height,
		bytesPerPx:  bpp / 8,
		topToBottom: descriptor&tgaTopToBottom != 0,
	}
	var err error
	if imageType == TGATypeUncompressed {
		err = d.raw()
	} else {
		err = d.rle()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	img         *image.NRGBA
	src         []byte
	pos         int
	width       int
	height      int
	bytesPerPx  int
	topToBottom bool
}

// pixel reads one BGR(A) pixel from the source.
func (d *tgaDecoder) pixel() (color.NRGBA, bool) {
	if d.pos+d.bytesPerPx > len(d.src) {
		return color.NRGBA{}, false
	}
	p := d.src[d.pos:]
	c := color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bytesPerPx == 4 {
		c.A = p[3]
	}
	d.pos += d.bytesPerPx
	return c, true
}

// set stores the n-th pixel in file order.
func (d *tgaDecoder) set(n int, c color.NRGBA) {
	x, y := n%d.width, n/d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetNRGBA(x, y, c)
}

func (d *tgaDecoder) raw() error {
	for n := 0; n < d.width*d.height; n++ {
		c, ok := d.pixel()
		if !ok {
			return fmt.Errorf("%w: pixel data truncated", ErrInvalidTGA)
		}
		d.set(n, c)
	}
	return nil
}

// rle decodes run-length packets. A short stream leaves the remaining
// pixels transparent.
func (d *tgaDecoder) rle() error {
	total := d.width * d.height
	n := 0
	for n < total && d.pos < len(d.src) {
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := d.pixel()
			if !ok {
				return nil
			}
			for i := 0; i < count && n < total; i++ {
				d.set(n, c)
				n++
			}
			continue
		}

		for i := 0; i < count && n < total; i++ {
			c, ok := d.pixel()
			if !ok {
				return nil
			}
			d.set(n, c)
			n++
		}
	}
	return nil
}
