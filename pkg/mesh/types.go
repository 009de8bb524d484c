// Package mesh converts voxel models into quad meshes with per-color material data.
package mesh

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/voxport/pkg/formats"
)

// Direction is the outward axis of a voxel face.
type Direction uint8

// Face directions, in emission order.
const (
	PosX Direction = iota
	PosY
	PosZ
	NegX
	NegY
	NegZ
)

// String returns the axis name, e.g. "+X".
func (d Direction) String() string {
	switch d {
	case PosX:
		return "+X"
	case PosY:
		return "+Y"
	case PosZ:
		return "+Z"
	case NegX:
		return "-X"
	case NegY:
		return "-Y"
	case NegZ:
		return "-Z"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// Normal returns the unit outward normal.
func (d Direction) Normal() mgl32.Vec3 {
	o := sides[d].offset
	return mgl32.Vec3{float32(o[0]), float32(o[1]), float32(o[2])}
}

// Face is a quad referencing four vertices of its own fragment.
type Face struct {
	Indices [4]uint32
	Dir     Direction
}

// Triangles splits the quad into two triangles sharing the first vertex.
func (f Face) Triangles() [2][3]uint32 {
	i := f.Indices
	return [2][3]uint32{{i[0], i[1], i[2]}, {i[0], i[2], i[3]}}
}

// Material is a per-color material for the separate-materials encoding.
type Material struct {
	ColorID          uint8
	BaseColor        mgl32.Vec4 // Gamma corrected RGB, alpha untouched
	Roughness        float32
	Metallic         float32
	Transmission     float32
	Emission         float32
	EmissionStrength float32
}

// Fragment is the mesh of one color of one model. Face indices are local
// to Vertices, so fragments can be joined or used on their own.
type Fragment struct {
	ColorID  uint8
	Vertices []mgl32.Vec3
	Faces    []Face

	// Filled by Encode depending on the encoding.
	Material       *Material
	Colors         []mgl32.Vec4 // Palette RGBA per vertex
	MaterialColors []mgl32.Vec4 // {roughness, metallic, transmission, emission/5} per vertex
	UVs            []mgl32.Vec2 // Atlas texel center per vertex
}

// Empty reports whether the fragment has no faces.
func (f *Fragment) Empty() bool {
	return len(f.Faces) == 0
}

// Source provides palette colors and materials by 1-based color index.
// *formats.VOX implements it.
type Source interface {
	Color(colorID uint8) formats.VOXColor
	Material(colorID uint8) formats.VOXMaterial
}

// Encoding selects how color and material data reach the renderer.
type Encoding int

// Encodings.
const (
	EncodingNone Encoding = iota
	EncodingSeparateMaterials
	EncodingVertexColor
	EncodingTexture
)

var encodingNames = map[Encoding]string{
	EncodingNone:              "none",
	EncodingSeparateMaterials: "separate_materials",
	EncodingVertexColor:       "vertex_color",
	EncodingTexture:           "texture",
}

// String returns the configuration name of the encoding.
func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ParseEncoding parses a configuration name, case-insensitively.
func ParseEncoding(s string) (Encoding, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for e, name := range encodingNames {
		if s == name {
			return e, nil
		}
	}
	return EncodingNone, fmt.Errorf("unknown color encoding %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	v, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
