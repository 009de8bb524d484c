package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/voxport/pkg/formats"
	"github.com/Faultbox/voxport/pkg/mesh"
)

// Material extension names.
const (
	ExtEmissiveStrength = "KHR_materials_emissive_strength"
	ExtTransmission     = "KHR_materials_transmission"
	ExtLightsPunctual   = "KHR_lights_punctual"
)

type emissiveStrength struct {
	EmissiveStrength float32 `json:"emissiveStrength"`
}

type transmission struct {
	TransmissionFactor float32 `json:"transmissionFactor"`
}

type punctualLight struct {
	Name      string     `json:"name,omitempty"`
	Type      string     `json:"type"`
	Color     [3]float32 `json:"color"`
	Intensity float32    `json:"intensity"`
}

type punctualLights struct {
	Lights []punctualLight `json:"lights"`
}

type lightRef struct {
	Light int `json:"light"`
}

// separateMaterial returns the material of a fragment. Materials are shared
// between models by color id unless OverrideExistingMaterials asks for a
// fresh one each time.
func (b *docBuilder) separateMaterial(f *mesh.Fragment) int {
	if idx, ok := b.materials[f.ColorID]; ok && !b.cfg.OverrideExistingMaterials {
		return idx
	}
	m := f.Material
	if m == nil {
		m = mesh.NewMaterial(f.ColorID, b.res.Scene, b.cfg.Gamma())
	}

	base := vec4(m.BaseColor)
	mat := &gltf.Material{
		Name: fmt.Sprintf("%s_%d", b.res.Name, m.ColorID),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &base,
			MetallicFactor:  gltf.Float(float64(m.Metallic)),
			RoughnessFactor: gltf.Float(float64(m.Roughness)),
		},
		AlphaMode: gltf.AlphaOpaque,
	}
	if m.BaseColor[3] < 1 || m.Transmission > 0 {
		mat.AlphaMode = gltf.AlphaBlend
	}

	ext := gltf.Extensions{}
	if m.Emission > 0 {
		c := m.BaseColor
		mat.EmissiveFactor = [3]float64{clamp01(c[0]), clamp01(c[1]), clamp01(c[2])}
		ext[ExtEmissiveStrength] = emissiveStrength{EmissiveStrength: m.EmissionStrength}
		b.use(ExtEmissiveStrength)
	}
	if m.Transmission > 0 {
		ext[ExtTransmission] = transmission{TransmissionFactor: m.Transmission}
		b.use(ExtTransmission)
	}
	if len(ext) > 0 {
		mat.Extensions = ext
	}

	b.doc.Materials = append(b.doc.Materials, mat)
	idx := len(b.doc.Materials) - 1
	b.materials[f.ColorID] = idx
	return idx
}

// sharedMaterial creates the one material used by the joined encodings.
func (b *docBuilder) sharedMaterial() error {
	var mat *gltf.Material
	switch b.res.Encoding {
	case mesh.EncodingVertexColor:
		// COLOR_0 carries the palette, COLOR_1 the material channels.
		mat = &gltf.Material{
			Name: b.res.Name + "_vertex_color",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float64{1, 1, 1, 1},
				MetallicFactor:  gltf.Float(0),
				RoughnessFactor: gltf.Float(float64(formats.DefaultVOXMaterial.Roughness)),
			},
		}

	case mesh.EncodingTexture:
		paletteImg, materialImg := b.res.PaletteStrip, b.res.MaterialStrip
		if paletteImg == nil {
			paletteImg = mesh.PaletteStrip(b.res.Scene)
		}
		if materialImg == nil {
			materialImg = mesh.MaterialStrip(b.res.Scene)
		}
		palette, err := b.texture("palette", paletteImg)
		if err != nil {
			return err
		}
		// The material strip is embedded for consumers that decode it
		// themselves; glTF has no slot for its channel layout.
		if _, err := b.texture("materials", materialImg); err != nil {
			return err
		}
		mat = &gltf.Material{
			Name: b.res.Name + "_atlas",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorTexture: &gltf.TextureInfo{Index: palette},
				MetallicFactor:   gltf.Float(0),
				RoughnessFactor:  gltf.Float(float64(formats.DefaultVOXMaterial.Roughness)),
			},
		}

	default:
		return nil
	}

	b.doc.Materials = append(b.doc.Materials, mat)
	idx := len(b.doc.Materials) - 1
	b.shared = &idx
	return nil
}

// texture embeds img as a PNG with a nearest-neighbour sampler so palette
// texels are never blended.
func (b *docBuilder) texture(name string, img image.Image) (int, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, fmt.Errorf("encoding %s strip: %w", name, err)
	}
	src, err := modeler.WriteImage(b.doc, name, "image/png", &buf)
	if err != nil {
		return 0, err
	}

	if len(b.doc.Samplers) == 0 {
		b.doc.Samplers = append(b.doc.Samplers, &gltf.Sampler{
			MagFilter: gltf.MagNearest,
			MinFilter: gltf.MinNearest,
		})
	}
	b.doc.Textures = append(b.doc.Textures, &gltf.Texture{
		Name:    name,
		Sampler: gltf.Index(0),
		Source:  gltf.Index(src),
	})
	return len(b.doc.Textures) - 1, nil
}

// light adds a light node under a model node. Positions are relative to the
// model's bounds center, in voxel units.
func (b *docBuilder) light(model string, i int, l mesh.Light, center mgl32.Vec3) int {
	b.lights = append(b.lights, punctualLight{
		Name:      fmt.Sprintf("%s_light_%d", model, i),
		Type:      "point",
		Color:     [3]float32(l.Color),
		Intensity: l.Energy / (4 * math.Pi),
	})
	b.use(ExtLightsPunctual)

	node := &gltf.Node{
		Name:        fmt.Sprintf("%s_light_%d", model, i),
		Translation: vec3(l.Position.Sub(center)),
		Extensions: gltf.Extensions{
			ExtLightsPunctual: lightRef{Light: len(b.lights) - 1},
		},
	}
	b.doc.Nodes = append(b.doc.Nodes, node)
	return len(b.doc.Nodes) - 1
}

// finishLights attaches the light list to the document.
func (b *docBuilder) finishLights() {
	if len(b.lights) == 0 {
		return
	}
	if b.doc.Extensions == nil {
		b.doc.Extensions = gltf.Extensions{}
	}
	b.doc.Extensions[ExtLightsPunctual] = punctualLights{Lights: b.lights}
}

// use records an extension in extensionsUsed once.
func (b *docBuilder) use(ext string) {
	for _, e := range b.doc.ExtensionsUsed {
		if e == ext {
			return
		}
	}
	b.doc.ExtensionsUsed = append(b.doc.ExtensionsUsed, ext)
}

func clamp01(v float32) float64 {
	return float64(mgl32.Clamp(v, 0, 1))
}

func vec3(v mgl32.Vec3) [3]float64 {
	return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
}

func vec4(v mgl32.Vec4) [4]float64 {
	return [4]float64{float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])}
}
