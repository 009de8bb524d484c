// Package formats provides parsers for voxel file formats.
// VOX (MagicaVoxel) format parser for models, palette, materials and scene nodes.
package formats

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/voxport/pkg/encoding"
)

// VOX format errors.
var (
	ErrInvalidVOXFormat      = errors.New("invalid VOX format")
	ErrInvalidVOXMagic       = fmt.Errorf("%w: expected 'VOX '", ErrInvalidVOXFormat)
	ErrUnsupportedVOXVersion = fmt.Errorf("%w: unsupported version", ErrInvalidVOXFormat)
	ErrMissingVOXSize        = fmt.Errorf("%w: XYZI chunk without preceding SIZE", ErrInvalidVOXFormat)
	ErrTruncatedVOXData      = errors.New("truncated VOX data")
)

// VOXVersion is the only container version accepted.
const VOXVersion = 150

// PaletteSize is the number of usable palette slots (color indices 1..255).
const PaletteSize = 255

// Chunk tags.
const (
	voxTagMain      = "MAIN"
	voxTagSize      = "SIZE"
	voxTagXYZI      = "XYZI"
	voxTagTransform = "nTRN"
	voxTagGroup     = "nGRP"
	voxTagShape     = "nSHP"
	voxTagRGBA      = "RGBA"
	voxTagMaterial  = "MATL"
)

// VOXColor is an RGBA color with channels normalized to [0,1].
type VOXColor [4]float32

// VOXMaterial holds the physical properties of one palette slot.
type VOXMaterial struct {
	Roughness    float32
	Metallic     float32
	Transmission float32 // Glass
	Emission     float32
}

// DefaultVOXMaterial is the material of every slot no MATL chunk touches.
var DefaultVOXMaterial = VOXMaterial{Roughness: 0.5}

// VOXTransform is a transform node. Rotation is never decoded and stays zero.
type VOXTransform struct {
	NodeID      int32
	ChildID     int32
	Name        string
	Translation VOXPoint
	Rotation    VOXPoint
}

// VOX represents a parsed MagicaVoxel file.
type VOX struct {
	Version   int32
	Palette   [PaletteSize]VOXColor
	Materials [PaletteSize]VOXMaterial
	Models    []*VoxelModel // Index is the model id, in XYZI order.

	// Scene nodes share one id space. Transforms are keyed by child id.
	Transforms map[int32]VOXTransform
	Groups     map[int32][]int32
	Shapes     map[int32][]int32

	// transformOrder holds transform keys in the order they first appeared.
	transformOrder []int32

	// HasPalette is false when the file carried no RGBA chunk.
	HasPalette bool
	// SkippedChunks counts chunks with unknown tags, by tag.
	SkippedChunks map[string]int
	// SkippedMaterials lists MATL ids outside 1..255 that were ignored.
	SkippedMaterials []int32
}

// Color returns the palette color of a 1-based color index.
// Index 0 and out-of-range indices return transparent black.
func (v *VOX) Color(colorID uint8) VOXColor {
	if colorID == 0 {
		return VOXColor{}
	}
	return v.Palette[colorID-1]
}

// Material returns the material of a 1-based color index.
func (v *VOX) Material(colorID uint8) VOXMaterial {
	if colorID == 0 {
		return DefaultVOXMaterial
	}
	return v.Materials[colorID-1]
}

// VoxelCount returns the total number of voxels across models.
func (v *VOX) VoxelCount() int {
	n := 0
	for _, m := range v.Models {
		n += m.Len()
	}
	return n
}

// VOXStats summarizes a parsed file.
type VOXStats struct {
	Models     int
	Voxels     int
	Nodes      int
	Transforms int
	Groups     int
	Shapes     int
	Colors     int // Distinct color indices used by voxels
	Skipped    int // Unknown chunks
}

// Stats returns counts of models, voxels and scene nodes.
func (v *VOX) Stats() VOXStats {
	used := make(map[uint8]struct{})
	for _, m := range v.Models {
		for _, c := range m.UsedColors() {
			used[c] = struct{}{}
		}
	}
	skipped := 0
	for _, n := range v.SkippedChunks {
		skipped += n
	}
	return VOXStats{
		Models:     len(v.Models),
		Voxels:     v.VoxelCount(),
		Nodes:      v.NodeCount(),
		Transforms: len(v.Transforms),
		Groups:     len(v.Groups),
		Shapes:     len(v.Shapes),
		Colors:     len(used),
		Skipped:    skipped,
	}
}

// ParseVOX parses a VOX file from raw bytes.
func ParseVOX(data []byte) (*VOX, error) {
	r := NewVOXReader(data)

	magic, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != "VOX " {
		return nil, ErrInvalidVOXMagic
	}
	version, err := r.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != VOXVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVOXVersion, version)
	}

	// MAIN carries no content of its own; children follow in the stream.
	main, err := r.ReadChunkHeader()
	if err != nil {
		return nil, err
	}
	if main.Tag != voxTagMain {
		return nil, fmt.Errorf("%w: first chunk is %q, expected MAIN", ErrInvalidVOXFormat, main.Tag)
	}
	if main.ContentSize != 0 {
		return nil, fmt.Errorf("%w: MAIN content size %d, expected 0", ErrInvalidVOXFormat, main.ContentSize)
	}

	vox := &VOX{
		Version:       version,
		Transforms:    make(map[int32]VOXTransform),
		Groups:        make(map[int32][]int32),
		Shapes:        make(map[int32][]int32),
		SkippedChunks: make(map[string]int),
	}
	vox.Palette = DefaultVOXPalette()
	for i := range vox.Materials {
		vox.Materials[i] = DefaultVOXMaterial
	}

	p := &voxParser{vox: vox}
	for !r.EOF() {
		tag, content, err := r.ReadChunk()
		if err != nil {
			return nil, err
		}
		if err := p.chunk(tag, content); err != nil {
			return nil, fmt.Errorf("parsing %s chunk: %w", tag, err)
		}
	}

	return vox, nil
}

// ParseVOXFile parses a VOX file from disk.
func ParseVOXFile(path string) (*VOX, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading VOX file: %w", err)
	}
	return ParseVOX(data)
}

// voxParser holds state carried between chunks.
type voxParser struct {
	vox         *VOX
	pendingSize *VOXPoint
}

func (p *voxParser) chunk(tag string, content []byte) error {
	r := NewVOXReader(content)
	switch tag {
	case voxTagSize:
		return p.size(r)
	case voxTagXYZI:
		return p.xyzi(r)
	case voxTagTransform:
		return p.transform(r)
	case voxTagGroup:
		return p.group(r)
	case voxTagShape:
		return p.shape(r)
	case voxTagRGBA:
		return p.rgba(r)
	case voxTagMaterial:
		return p.material(r)
	default:
		// Content was already consumed by ReadChunk.
		p.vox.SkippedChunks[tag]++
		return nil
	}
}

func (p *voxParser) size(r *VOXReader) error {
	var dims [3]int32
	for i := range dims {
		v, err := r.ReadInt32()
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("%w: negative size %d", ErrInvalidVOXFormat, v)
		}
		dims[i] = v
	}
	p.pendingSize = &VOXPoint{X: dims[0], Y: dims[1], Z: dims[2]}
	return nil
}

func (p *voxParser) xyzi(r *VOXReader) error {
	if p.pendingSize == nil {
		return ErrMissingVOXSize
	}
	size := *p.pendingSize

	count, err := r.readLength("voxel count")
	if err != nil {
		return err
	}
	raw, err := r.ReadBytes(count * 4)
	if err != nil {
		return fmt.Errorf("reading %d voxels: %w", count, err)
	}

	voxels := make([]Voxel, 0, count)
	for i := 0; i < count; i++ {
		v := Voxel{X: raw[i*4], Y: raw[i*4+1], Z: raw[i*4+2], ColorIndex: raw[i*4+3]}
		if int32(v.X) >= size.X || int32(v.Y) >= size.Y || int32(v.Z) >= size.Z {
			return fmt.Errorf("%w: voxel %d at (%d,%d,%d) outside size %dx%dx%d",
				ErrInvalidVOXFormat, i, v.X, v.Y, v.Z, size.X, size.Y, size.Z)
		}
		if v.ColorIndex == 0 {
			continue
		}
		voxels = append(voxels, v)
	}

	p.vox.Models = append(p.vox.Models, NewVoxelModel(size, voxels))
	return nil
}

func (p *voxParser) transform(r *VOXReader) error {
	nodeID, err := r.ReadInt32()
	if err != nil {
		return err
	}
	attrs, err := r.ReadDict()
	if err != nil {
		return fmt.Errorf("node %d attributes: %w", nodeID, err)
	}
	childID, err := r.ReadInt32()
	if err != nil {
		return err
	}
	// Reserved id, layer id and frame count are not used.
	if err := r.Skip(12); err != nil {
		return err
	}
	frame, err := r.ReadDict()
	if err != nil {
		return fmt.Errorf("node %d frame: %w", nodeID, err)
	}

	t := VOXTransform{NodeID: nodeID, ChildID: childID}
	if name, ok := attrs.Get("_name"); ok {
		t.Name = encoding.DecodeText(name)
	}
	for _, e := range frame {
		switch e.Key {
		case "_t":
			t.Translation, err = parseVOXTranslation(e.Value)
			if err != nil {
				return fmt.Errorf("node %d: %w", nodeID, err)
			}
		case "_r":
			// Packed rotation is recognized but not decoded.
		}
	}
	if _, ok := p.vox.Transforms[childID]; !ok {
		p.vox.transformOrder = append(p.vox.transformOrder, childID)
	}
	p.vox.Transforms[childID] = t
	return nil
}

// parseVOXTranslation parses "x y z" integer translations.
func parseVOXTranslation(b []byte) (VOXPoint, error) {
	fields := strings.Fields(encoding.DecodeText(b))
	if len(fields) != 3 {
		return VOXPoint{}, fmt.Errorf("%w: translation %q needs 3 components", ErrInvalidVOXFormat, b)
	}
	var out [3]int32
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return VOXPoint{}, fmt.Errorf("%w: translation component %q", ErrInvalidVOXFormat, f)
		}
		out[i] = int32(n)
	}
	return VOXPoint{X: out[0], Y: out[1], Z: out[2]}, nil
}

func (p *voxParser) group(r *VOXReader) error {
	nodeID, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if _, err := r.ReadDict(); err != nil {
		return fmt.Errorf("node %d attributes: %w", nodeID, err)
	}
	n, err := r.readLength("child count")
	if err != nil {
		return err
	}
	children := make([]int32, 0, min(n, r.Remaining()/4))
	for i := 0; i < n; i++ {
		id, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("node %d child %d: %w", nodeID, i, err)
		}
		children = append(children, id)
	}
	p.vox.Groups[nodeID] = children
	return nil
}

func (p *voxParser) shape(r *VOXReader) error {
	nodeID, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if _, err := r.ReadDict(); err != nil {
		return fmt.Errorf("node %d attributes: %w", nodeID, err)
	}
	n, err := r.readLength("model count")
	if err != nil {
		return err
	}
	models := make([]int32, 0, min(n, r.Remaining()/8))
	for i := 0; i < n; i++ {
		id, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("node %d model %d: %w", nodeID, i, err)
		}
		if _, err := r.ReadDict(); err != nil {
			return fmt.Errorf("node %d model %d attributes: %w", nodeID, i, err)
		}
		models = append(models, id)
	}
	p.vox.Shapes[nodeID] = models
	return nil
}

func (p *voxParser) rgba(r *VOXReader) error {
	raw, err := r.ReadBytes(PaletteSize * 4)
	if err != nil {
		return err
	}
	for i := 0; i < PaletteSize; i++ {
		for c := 0; c < 4; c++ {
			p.vox.Palette[i][c] = float32(raw[i*4+c]) / 255
		}
	}
	// The 256th entry is reserved and never used.
	if err := r.Skip(4); err != nil {
		return err
	}
	p.vox.HasPalette = true
	return nil
}

func (p *voxParser) material(r *VOXReader) error {
	id, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if id < 1 || id > PaletteSize {
		// Out-of-range ids occur in real files; drop the rest of the chunk.
		p.vox.SkippedMaterials = append(p.vox.SkippedMaterials, id)
		return nil
	}
	props, err := r.ReadDict()
	if err != nil {
		return fmt.Errorf("material %d: %w", id, err)
	}

	mat := &p.vox.Materials[id-1]
	var matType string
	emitSet := false
	for _, e := range props.Collapse() {
		if e.Key == "_type" {
			matType = string(e.Value)
			continue
		}
		var field *float32
		switch {
		case e.Key == "_rough":
			field = &mat.Roughness
		case e.Key == "_metal" && matType == "_metal":
			field = &mat.Metallic
		case e.Key == "_alpha" && matType == "_glass":
			field = &mat.Transmission
		case e.Key == "_emit" && matType == "_emit":
			field = &mat.Emission
		case e.Key == "_flux" && emitSet:
		default:
			continue
		}

		f, err := strconv.ParseFloat(strings.TrimSpace(string(e.Value)), 32)
		if err != nil {
			return fmt.Errorf("%w: material %d %s=%q", ErrInvalidVOXFormat, id, e.Key, e.Value)
		}
		if field == nil {
			mat.Emission *= float32(f) + 1
			continue
		}
		*field = float32(f)
		if field == &mat.Emission {
			emitSet = true
		}
	}
	return nil
}
