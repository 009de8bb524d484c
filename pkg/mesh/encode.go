package mesh

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/voxport/pkg/formats"
)

// AtlasWidth is the width of the palette and material strips: 255 colors
// plus one unused slot.
const AtlasWidth = 256

// EmissionScale maps emission from [0,5] into a [0,1] channel.
const EmissionScale = 5

// emissionStrengthFactor converts emission into renderer emission strength
// for separate materials.
const emissionStrengthFactor = 20

// EncodeOptions controls how fragments are colored.
type EncodeOptions struct {
	Encoding Encoding
	// Gamma is applied as channel^Gamma to palette RGB for separate
	// materials. Zero or one leaves colors unchanged.
	Gamma float32
}

// Encode fills the color data of frag for the chosen encoding.
// Existing encoding data is replaced.
func Encode(frag *Fragment, src Source, opts EncodeOptions) {
	frag.Material = nil
	frag.Colors = nil
	frag.MaterialColors = nil
	frag.UVs = nil

	n := len(frag.Vertices)
	switch opts.Encoding {
	case EncodingSeparateMaterials:
		frag.Material = NewMaterial(frag.ColorID, src, opts.Gamma)

	case EncodingVertexColor:
		col := mgl32.Vec4(src.Color(frag.ColorID))
		mat := MaterialChannels(src.Material(frag.ColorID))
		frag.Colors = make([]mgl32.Vec4, n)
		frag.MaterialColors = make([]mgl32.Vec4, n)
		for i := 0; i < n; i++ {
			frag.Colors[i] = col
			frag.MaterialColors[i] = mat
		}

	case EncodingTexture:
		uv := AtlasUV(frag.ColorID)
		frag.UVs = make([]mgl32.Vec2, n)
		for i := range frag.UVs {
			frag.UVs[i] = uv
		}
	}
}

// NewMaterial builds the separate material of colorID.
func NewMaterial(colorID uint8, src Source, gamma float32) *Material {
	m := src.Material(colorID)
	return &Material{
		ColorID:          colorID,
		BaseColor:        GammaCorrect(src.Color(colorID), gamma),
		Roughness:        m.Roughness,
		Metallic:         m.Metallic,
		Transmission:     m.Transmission,
		Emission:         m.Emission,
		EmissionStrength: m.Emission * emissionStrengthFactor,
	}
}

// GammaCorrect raises the RGB channels to gamma. Alpha is kept.
func GammaCorrect(c formats.VOXColor, gamma float32) mgl32.Vec4 {
	if gamma <= 0 || gamma == 1 {
		return mgl32.Vec4(c)
	}
	g := float64(gamma)
	return mgl32.Vec4{
		float32(math.Pow(float64(c[0]), g)),
		float32(math.Pow(float64(c[1]), g)),
		float32(math.Pow(float64(c[2]), g)),
		c[3],
	}
}

// MaterialChannels packs a material into {roughness, metallic, transmission, emission/5}.
func MaterialChannels(m formats.VOXMaterial) mgl32.Vec4 {
	return mgl32.Vec4{m.Roughness, m.Metallic, m.Transmission, m.Emission / EmissionScale}
}

// AtlasUV returns the texel center of colorID in the 256x1 strips.
func AtlasUV(colorID uint8) mgl32.Vec2 {
	return mgl32.Vec2{(float32(colorID) - 0.5) / AtlasWidth, 0.5}
}

// PaletteStrip renders the palette into a 256x1 image. Pixel i holds color
// index i+1; the last pixel is zero.
func PaletteStrip(src Source) *image.NRGBA {
	return strip(func(id uint8) mgl32.Vec4 {
		return mgl32.Vec4(src.Color(id))
	})
}

// MaterialStrip renders material channels into a 256x1 image, laid out like
// PaletteStrip.
func MaterialStrip(src Source) *image.NRGBA {
	return strip(func(id uint8) mgl32.Vec4 {
		return MaterialChannels(src.Material(id))
	})
}

func strip(texel func(id uint8) mgl32.Vec4) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, AtlasWidth, 1))
	for i := 0; i < formats.PaletteSize; i++ {
		v := texel(uint8(i + 1))
		img.SetNRGBA(i, 0, color.NRGBA{R: unorm8(v[0]), G: unorm8(v[1]), B: unorm8(v[2]), A: unorm8(v[3])})
	}
	return img
}

// unorm8 quantizes a [0,1] channel, clamping out-of-range values.
func unorm8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}
