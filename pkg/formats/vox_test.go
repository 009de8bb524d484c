package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// voxBuilder assembles synthetic VOX files for testing.
type voxBuilder struct {
	chunks bytes.Buffer
}

func (b *voxBuilder) chunk(tag string, content []byte) *voxBuilder {
	b.chunks.WriteString(tag)
	binary.Write(&b.chunks, binary.LittleEndian, int32(len(content)))
	binary.Write(&b.chunks, binary.LittleEndian, int32(0))
	b.chunks.Write(content)
	return b
}

func (b *voxBuilder) size(x, y, z int32) *voxBuilder {
	return b.chunk("SIZE", le(x, y, z))
}

func (b *voxBuilder) xyzi(voxels ...Voxel) *voxBuilder {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, int32(len(voxels)))
	for _, v := range voxels {
		buf.Write([]byte{v.X, v.Y, v.Z, v.ColorIndex})
	}
	return b.chunk("XYZI", buf.Bytes())
}

func (b *voxBuilder) transform(id, child int32, frame ...string) *voxBuilder {
	return b.namedTransform(id, child, "", frame...)
}

func (b *voxBuilder) namedTransform(id, child int32, name string, frame ...string) *voxBuilder {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	if name != "" {
		buf.Write(dict("_name", name))
	} else {
		buf.Write(dict())
	}
	binary.Write(buf, binary.LittleEndian, child)
	binary.Write(buf, binary.LittleEndian, int32(-1)) // reserved
	binary.Write(buf, binary.LittleEndian, int32(0))  // layer
	binary.Write(buf, binary.LittleEndian, int32(1))  // frames
	buf.Write(dict(frame...))
	return b.chunk("nTRN", buf.Bytes())
}

func (b *voxBuilder) group(id int32, children ...int32) *voxBuilder {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	buf.Write(dict())
	binary.Write(buf, binary.LittleEndian, int32(len(children)))
	for _, c := range children {
		binary.Write(buf, binary.LittleEndian, c)
	}
	return b.chunk("nGRP", buf.Bytes())
}

func (b *voxBuilder) shape(id int32, models ...int32) *voxBuilder {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	buf.Write(dict())
	binary.Write(buf, binary.LittleEndian, int32(len(models)))
	for _, m := range models {
		binary.Write(buf, binary.LittleEndian, m)
		buf.Write(dict())
	}
	return b.chunk("nSHP", buf.Bytes())
}

func (b *voxBuilder) rgba(fill func(i int) [4]uint8) *voxBuilder {
	buf := new(bytes.Buffer)
	for i := 0; i < 256; i++ {
		c := fill(i)
		buf.Write(c[:])
	}
	return b.chunk("RGBA", buf.Bytes())
}

func (b *voxBuilder) matl(id int32, kv ...string) *voxBuilder {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	buf.Write(dict(kv...))
	return b.chunk("MATL", buf.Bytes())
}

func (b *voxBuilder) bytes() []byte {
	out := new(bytes.Buffer)
	out.WriteString("VOX ")
	binary.Write(out, binary.LittleEndian, int32(VOXVersion))
	out.WriteString("MAIN")
	binary.Write(out, binary.LittleEndian, int32(0))
	binary.Write(out, binary.LittleEndian, int32(b.chunks.Len()))
	out.Write(b.chunks.Bytes())
	return out.Bytes()
}

// dict encodes alternating key/value strings.
func dict(kv ...string) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, int32(len(kv)/2))
	for _, s := range kv {
		binary.Write(buf, binary.LittleEndian, int32(len(s)))
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func le(vals ...int32) []byte {
	buf := new(bytes.Buffer)
	for _, v := range vals {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestParseVOX_MinimalFile(t *testing.T) {
	data := (&voxBuilder{}).size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	if vox.Version != VOXVersion {
		t.Errorf("expected version %d, got %d", VOXVersion, vox.Version)
	}
	if len(vox.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(vox.Models))
	}

	m := vox.Models[0]
	if m.Size != (VOXPoint{1, 1, 1}) {
		t.Errorf("expected size 1x1x1, got %+v", m.Size)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 voxel, got %d", m.Len())
	}
	if got := m.ColorAt(0, 0, 0); got != 1 {
		t.Errorf("expected color 1 at origin, got %d", got)
	}
	if vox.HasPalette {
		t.Error("expected HasPalette false without RGBA chunk")
	}
}

func TestParseVOX_VoxelCountsSum(t *testing.T) {
	data := (&voxBuilder{}).
		size(4, 4, 4).xyzi(Voxel{0, 0, 0, 1}, Voxel{1, 0, 0, 2}, Voxel{2, 0, 0, 3}).
		size(2, 2, 2).xyzi(Voxel{0, 0, 0, 5}, Voxel{1, 1, 1, 5}).
		size(8, 8, 8).xyzi().
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	if len(vox.Models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(vox.Models))
	}
	if got := vox.VoxelCount(); got != 5 {
		t.Errorf("expected 5 voxels in total, got %d", got)
	}
	if vox.Models[1].Size != (VOXPoint{2, 2, 2}) {
		t.Errorf("model 1 should use its own SIZE, got %+v", vox.Models[1].Size)
	}
	if colors := vox.Models[0].UsedColors(); len(colors) != 3 || colors[0] != 1 || colors[2] != 3 {
		t.Errorf("unexpected used colors %v", colors)
	}
}

func TestParseVOX_InvalidMagic(t *testing.T) {
	data := (&voxBuilder{}).bytes()
	copy(data, "XOV ")

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("expected ErrInvalidVOXFormat, got %v", err)
	}
}

func TestParseVOX_UnsupportedVersion(t *testing.T) {
	data := (&voxBuilder{}).bytes()
	binary.LittleEndian.PutUint32(data[4:8], 200)

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrUnsupportedVOXVersion) {
		t.Errorf("expected ErrUnsupportedVOXVersion, got %v", err)
	}
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("version error should also be ErrInvalidVOXFormat, got %v", err)
	}
}

func TestParseVOX_FirstChunkNotMain(t *testing.T) {
	data := (&voxBuilder{}).bytes()
	copy(data[8:12], "SIZE")

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("expected ErrInvalidVOXFormat, got %v", err)
	}
}

func TestParseVOX_MainWithContent(t *testing.T) {
	data := (&voxBuilder{}).bytes()
	binary.LittleEndian.PutUint32(data[12:16], 4)

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("expected ErrInvalidVOXFormat, got %v", err)
	}
}

func TestParseVOX_MissingSize(t *testing.T) {
	data := (&voxBuilder{}).xyzi(Voxel{0, 0, 0, 1}).bytes()

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrMissingVOXSize) {
		t.Errorf("expected ErrMissingVOXSize, got %v", err)
	}
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("missing size should be ErrInvalidVOXFormat, got %v", err)
	}
}

func TestParseVOX_VoxelOutsideSize(t *testing.T) {
	data := (&voxBuilder{}).size(2, 2, 2).xyzi(Voxel{2, 0, 0, 1}).bytes()

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("expected ErrInvalidVOXFormat, got %v", err)
	}
}

func TestParseVOX_Truncated(t *testing.T) {
	full := (&voxBuilder{}).size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).bytes()

	for _, cut := range []int{3, 7, 15, 24, 30, len(full) - 1} {
		_, err := ParseVOX(full[:cut])
		if !errors.Is(err, ErrTruncatedVOXData) {
			t.Errorf("cut at %d: expected ErrTruncatedVOXData, got %v", cut, err)
		}
	}
}

func TestParseVOX_XYZICountBeyondContent(t *testing.T) {
	content := le(10) // declares 10 voxels, provides none
	data := (&voxBuilder{}).size(1, 1, 1).chunk("XYZI", content).bytes()

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrTruncatedVOXData) {
		t.Errorf("expected ErrTruncatedVOXData, got %v", err)
	}
}

func TestParseVOX_UnknownChunksSkipped(t *testing.T) {
	data := (&voxBuilder{}).
		chunk("PACK", le(1)).
		size(1, 1, 1).
		chunk("rOBJ", dict("_type", "_bloom")).
		xyzi(Voxel{0, 0, 0, 7}).
		chunk("LAYR", le(0, 0, -1)).
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	if len(vox.Models) != 1 {
		t.Errorf("expected 1 model, got %d", len(vox.Models))
	}
	if vox.SkippedChunks["PACK"] != 1 || vox.SkippedChunks["rOBJ"] != 1 || vox.SkippedChunks["LAYR"] != 1 {
		t.Errorf("unexpected skipped chunks %v", vox.SkippedChunks)
	}
}

func TestParseVOX_Palette(t *testing.T) {
	data := (&voxBuilder{}).rgba(func(i int) [4]uint8 {
		return [4]uint8{uint8(i), 255, 0, 51}
	}).bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	if !vox.HasPalette {
		t.Error("expected HasPalette")
	}
	if len(vox.Palette) != PaletteSize {
		t.Fatalf("expected %d palette entries, got %d", PaletteSize, len(vox.Palette))
	}
	for i, c := range vox.Palette {
		for ch, v := range c {
			if v < 0 || v > 1 {
				t.Fatalf("entry %d channel %d out of range: %f", i, ch, v)
			}
		}
	}
	// Color index 1 is the first entry in the file.
	if c := vox.Color(1); c[0] != 0 || c[1] != 1 || !approx(c[3], 0.2) {
		t.Errorf("unexpected color 1: %v", c)
	}
	if c := vox.Color(255); !approx(c[0], 254.0/255) {
		t.Errorf("unexpected color 255: %v", c)
	}
}

func TestParseVOX_DefaultPalette(t *testing.T) {
	pal := DefaultVOXPalette()
	if pal[0] != (VOXColor{1, 1, 1, 1}) {
		t.Errorf("expected white first, got %v", pal[0])
	}
	// Last cube entry is pure blue (r=0, g=0, b=0x33).
	if !approx(pal[214][2], 0x33/255.0) || pal[214][0] != 0 || pal[214][1] != 0 {
		t.Errorf("unexpected last cube entry %v", pal[214])
	}
	if !approx(pal[215][0], 0xee/255.0) || pal[215][1] != 0 {
		t.Errorf("expected red ramp start, got %v", pal[215])
	}
	if !approx(pal[254][0], 0x11/255.0) || pal[254][0] != pal[254][2] {
		t.Errorf("expected dark gray last, got %v", pal[254])
	}
}

func TestParseVOX_MaterialDefaults(t *testing.T) {
	vox, err := ParseVOX((&voxBuilder{}).bytes())
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	for i, m := range vox.Materials {
		if m != DefaultVOXMaterial {
			t.Fatalf("material %d not default: %+v", i, m)
		}
	}
	if DefaultVOXMaterial.Roughness != 0.5 {
		t.Errorf("expected default roughness 0.5, got %f", DefaultVOXMaterial.Roughness)
	}
}

func TestParseVOX_MaterialEmissionFlux(t *testing.T) {
	data := (&voxBuilder{}).
		matl(5, "_type", "_emit", "_emit", "0.5", "_flux", "1.0").
		matl(5, "_rough", "0.2").
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	m := vox.Material(5)
	if !approx(m.Emission, 1.0) {
		t.Errorf("expected emission 1.0, got %f", m.Emission)
	}
	if !approx(m.Roughness, 0.2) {
		t.Errorf("expected roughness 0.2, got %f", m.Roughness)
	}
}

func TestParseVOX_MaterialFields(t *testing.T) {
	tests := []struct {
		name string
		kv   []string
		want VOXMaterial
	}{
		{
			name: "metal",
			kv:   []string{"_type", "_metal", "_rough", "0.1", "_metal", "0.9"},
			want: VOXMaterial{Roughness: 0.1, Metallic: 0.9},
		},
		{
			name: "glass",
			kv:   []string{"_type", "_glass", "_alpha", "0.4"},
			want: VOXMaterial{Roughness: 0.5, Transmission: 0.4},
		},
		{
			name: "metal ignored for diffuse",
			kv:   []string{"_type", "_diffuse", "_metal", "0.9", "_alpha", "0.4", "_emit", "3"},
			want: DefaultVOXMaterial,
		},
		{
			name: "flux before emit is ignored",
			kv:   []string{"_type", "_emit", "_flux", "3", "_emit", "0.5"},
			want: VOXMaterial{Roughness: 0.5, Emission: 0.5},
		},
		{
			name: "repeated emit keeps its first position",
			kv:   []string{"_type", "_emit", "_emit", "0.5", "_flux", "1", "_emit", "0.2"},
			want: VOXMaterial{Roughness: 0.5, Emission: 0.4},
		},
		{
			name: "type after value",
			kv:   []string{"_metal", "0.9", "_type", "_metal"},
			want: DefaultVOXMaterial,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vox, err := ParseVOX((&voxBuilder{}).matl(9, tc.kv...).bytes())
			if err != nil {
				t.Fatalf("ParseVOX failed: %v", err)
			}
			got := vox.Material(9)
			if !approx(got.Roughness, tc.want.Roughness) || !approx(got.Metallic, tc.want.Metallic) ||
				!approx(got.Transmission, tc.want.Transmission) || !approx(got.Emission, tc.want.Emission) {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseVOX_MaterialFluxScopedToChunk(t *testing.T) {
	data := (&voxBuilder{}).
		matl(3, "_type", "_emit", "_emit", "0.5").
		matl(3, "_type", "_emit", "_flux", "2").
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	if got := vox.Material(3).Emission; !approx(got, 0.5) {
		t.Errorf("flux from a later chunk must not scale emission, got %f", got)
	}
}

func TestParseVOX_MaterialOutOfRange(t *testing.T) {
	data := (&voxBuilder{}).
		matl(300, "_type", "_metal", "_rough", "0.0", "_metal", "1.0").
		matl(256, "_rough", "0.0").
		matl(0, "_rough", "0.0").
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("out-of-range material must not fail: %v", err)
	}
	for i, m := range vox.Materials {
		if m != DefaultVOXMaterial {
			t.Fatalf("material %d mutated: %+v", i, m)
		}
	}
	if len(vox.SkippedMaterials) != 3 || vox.SkippedMaterials[0] != 300 {
		t.Errorf("unexpected skipped materials %v", vox.SkippedMaterials)
	}
}

func TestParseVOX_MaterialBadFloat(t *testing.T) {
	data := (&voxBuilder{}).matl(1, "_rough", "rough").bytes()

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("expected ErrInvalidVOXFormat, got %v", err)
	}
}

func TestParseVOX_SceneNodes(t *testing.T) {
	data := (&voxBuilder{}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).
		transform(0, 1).
		group(1, 2, 4).
		transform(2, 3, "_t", "-10 4 22", "_r", "\x04").
		shape(3, 0).
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	if len(vox.Transforms) != 2 {
		t.Fatalf("expected 2 transforms, got %d", len(vox.Transforms))
	}
	tr, ok := vox.Transforms[3]
	if !ok {
		t.Fatal("transform should be keyed by its child id 3")
	}
	if tr.NodeID != 2 || tr.Translation != (VOXPoint{-10, 4, 22}) {
		t.Errorf("unexpected transform %+v", tr)
	}
	if tr.Rotation != (VOXPoint{}) {
		t.Errorf("rotation must stay zero, got %+v", tr.Rotation)
	}
	if got := vox.Groups[1]; len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("unexpected group children %v", got)
	}
	if got := vox.Shapes[3]; len(got) != 1 || got[0] != 0 {
		t.Errorf("unexpected shape models %v", got)
	}
	if vox.NodeCount() != 4 {
		t.Errorf("expected 4 nodes, got %d", vox.NodeCount())
	}

	stats := vox.Stats()
	want := VOXStats{Models: 1, Voxels: 1, Nodes: 4, Transforms: 2, Groups: 1, Shapes: 1, Colors: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestParseVOX_BadTranslation(t *testing.T) {
	data := (&voxBuilder{}).transform(0, 1, "_t", "1 2").bytes()

	_, err := ParseVOX(data)
	if !errors.Is(err, ErrInvalidVOXFormat) {
		t.Errorf("expected ErrInvalidVOXFormat, got %v", err)
	}
}
