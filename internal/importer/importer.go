// Package importer turns .vox files into meshed, colored model results.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/Faultbox/voxport/internal/config"
	"github.com/Faultbox/voxport/internal/logger"
	"github.com/Faultbox/voxport/pkg/formats"
	"github.com/Faultbox/voxport/pkg/mesh"
)

// MToonWarning is reported when the VRM shader cannot be found.
const MToonWarning = "MToon_unversioned shader missing. Install VRM add-on from https://github.com/saturday06/VRM_Addon_for_Blender"

// zstdMagic prefixes zstd frames.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// ErrDecompress is returned when a zstd wrapped input cannot be inflated.
var ErrDecompress = errors.New("decompressing input")

// Part labels the piece of a model a result holds.
type Part string

// Model parts.
const (
	PartWhole Part = "whole"
	PartBody  Part = "body"
	PartHead  Part = "head"
)

// ModelResult is one meshed model, or one half of a split model.
type ModelResult struct {
	ID        int
	Part      Part
	Name      string
	Position  formats.VOXPoint
	Size      formats.VOXPoint
	Model     *formats.VoxelModel
	Fragments []*mesh.Fragment // Shared with identical models, treat as read-only
	Lights    []mesh.Light
	Cleanup   mesh.CleanupStats
	Cached    bool // Fragments reused from an earlier identical model
}

// Result is everything produced by one import.
type Result struct {
	Name          string
	Scene         *formats.VOX
	Models        []ModelResult
	Encoding      mesh.Encoding
	PaletteStrip  *image.NRGBA // Set for the texture encoding
	MaterialStrip *image.NRGBA
	Warnings      []string
	Checksum      uint64 // xxhash of the decompressed file
}

// Import reads and imports the file at path. Files compressed with zstd
// are detected by their magic and inflated first.
func Import(path string, cfg config.ImportConfig) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ImportBytes(baseName(path), data, cfg)
}

// ImportBytes imports an in-memory file under the given name.
func ImportBytes(name string, data []byte, cfg config.ImportConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("importer").With(zap.String("file", name))

	data, err := decompress(data)
	if err != nil {
		return nil, err
	}

	vox, err := formats.ParseVOX(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	for tag, n := range vox.SkippedChunks {
		log.Debug("skipped unknown chunk", zap.String("tag", tag), zap.Int("count", n))
	}
	if len(vox.SkippedMaterials) > 0 {
		log.Debug("skipped out of range materials", zap.Int32s("ids", vox.SkippedMaterials))
	}

	assigned := vox.ResolvePositions()
	log.Debug("resolved positions", zap.Int("assigned", assigned), zap.Int("models", len(vox.Models)))

	res := &Result{
		Name:     name,
		Scene:    vox,
		Encoding: cfg.Encoding(),
		Checksum: xxhash.Sum64(data),
	}
	res.Warnings = warnings(cfg, res.Encoding)

	b := builder{
		cfg:   cfg,
		vox:   vox,
		opts:  mesh.EncodeOptions{Encoding: res.Encoding, Gamma: cfg.Gamma()},
		cache: newFragmentCache(),
		log:   log,
	}
	names := vox.ModelNames()
	for id, m := range vox.Models {
		res.Models = append(res.Models, b.model(id, m, names[id])...)
	}

	if res.Encoding == mesh.EncodingTexture {
		res.PaletteStrip = mesh.PaletteStrip(vox)
		res.MaterialStrip = mesh.MaterialStrip(vox)
	}

	for _, w := range res.Warnings {
		log.Warn(w)
	}
	log.Info("imported",
		zap.Int("models", len(vox.Models)),
		zap.Int("results", len(res.Models)),
		zap.Int("voxels", vox.VoxelCount()),
		zap.Stringer("encoding", res.Encoding),
		zap.Int("cache_hits", b.cache.hits),
	)
	return res, nil
}

// decompress inflates zstd input and passes anything else through.
func decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	return out, nil
}

// warnings returns the non-fatal problems of an import configuration.
func warnings(cfg config.ImportConfig, enc mesh.Encoding) []string {
	var out []string
	if cfg.ApplyMToonShader && enc == mesh.EncodingTexture && !shaderAvailable(cfg.MToonShaderPath) {
		out = append(out, MToonWarning)
	}
	return out
}

func shaderAvailable(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// baseName strips directories and the .vox / .vox.zst extensions.
func baseName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".zst")
	return strings.TrimSuffix(name, ".vox")
}

type builder struct {
	cfg   config.ImportConfig
	vox   *formats.VOX
	opts  mesh.EncodeOptions
	cache *fragmentCache
	log   *zap.Logger
}

// model meshes one model, splitting off the head first when configured.
func (b *builder) model(id int, m *formats.VoxelModel, name string) []ModelResult {
	if name == "" {
		name = fmt.Sprintf("model_%d", id)
	}
	if !b.cfg.SplitHead {
		return []ModelResult{b.part(id, PartWhole, name, m)}
	}

	head := m.Split(uint8(b.cfg.SplitHeadAt))
	head.Position = m.Position
	out := []ModelResult{b.part(id, PartBody, name+"_body", m)}
	if head.Len() > 0 {
		out = append(out, b.part(id, PartHead, name+"_head", head))
	}
	b.log.Debug("split model",
		zap.Int("model", id),
		zap.Int("z", b.cfg.SplitHeadAt),
		zap.Int("body", m.Len()),
		zap.Int("head", head.Len()),
	)
	return out
}

func (b *builder) part(id int, part Part, name string, m *formats.VoxelModel) ModelResult {
	r := ModelResult{
		ID:       id,
		Part:     part,
		Name:     name,
		Position: m.Position,
		Size:     m.Size,
		Model:    m,
	}

	key := modelDigest(m)
	if cached, ok := b.cache.get(key); ok {
		r.Fragments = cached.frags
		r.Cleanup = cached.stats
		r.Cached = true
	} else {
		r.Fragments = mesh.BuildAll(m)
		for _, f := range r.Fragments {
			mesh.Encode(f, b.vox, b.opts)
			if b.cfg.CleanupMesh {
				s := mesh.Cleanup(f)
				r.Cleanup.VerticesRemoved += s.VerticesRemoved
				r.Cleanup.FacesFlipped += s.FacesFlipped
			}
		}
		b.cache.put(key, cachedFragments{frags: r.Fragments, stats: r.Cleanup})
	}

	if b.cfg.CreateLights {
		r.Lights = mesh.Lights(m, b.vox, b.cfg.VoxelWorldScale)
	}

	b.log.Debug("built model",
		zap.Int("model", id),
		zap.String("part", string(part)),
		zap.Int("voxels", m.Len()),
		zap.Int("fragments", len(r.Fragments)),
		zap.Int("lights", len(r.Lights)),
		zap.Bool("cached", r.Cached),
	)
	return r
}
