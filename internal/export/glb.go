// Package export writes imported models as binary glTF.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/voxport/internal/config"
	"github.com/Faultbox/voxport/internal/importer"
	"github.com/Faultbox/voxport/internal/logger"
	"github.com/Faultbox/voxport/pkg/formats"
	"github.com/Faultbox/voxport/pkg/mesh"
)

// zUpToYUp maps MagicaVoxel's Z-up axes onto glTF's Y-up: (x, y, z) -> (x, z, -y).
var zUpToYUp = mgl32.Mat4{
	1, 0, 0, 0,
	0, 0, -1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

// WriteGLB writes res to path as a .glb file.
func WriteGLB(res *importer.Result, cfg config.ImportConfig, path string) error {
	doc, err := Document(res, cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Named("export").Info("wrote glb",
		zap.String("path", path),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("meshes", len(doc.Meshes)),
		zap.Int("materials", len(doc.Materials)),
	)
	return nil
}

// EncodeGLB returns res as .glb bytes.
func EncodeGLB(res *importer.Result, cfg config.ImportConfig) ([]byte, error) {
	doc, err := Document(res, cfg)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Document builds the glTF document for res. Each model result becomes one
// node; with OrganizeIntoGroups the nodes share a root named after the file.
func Document(res *importer.Result, cfg config.ImportConfig) (*gltf.Document, error) {
	b := &docBuilder{
		doc:       gltf.NewDocument(),
		cfg:       cfg,
		res:       res,
		materials: make(map[uint8]int),
	}
	b.doc.Asset.Generator = "voxport"

	if err := b.sharedMaterial(); err != nil {
		return nil, err
	}

	// Without a root node the axis conversion goes into every model node.
	parent := zUpToYUp
	if cfg.OrganizeIntoGroups {
		parent = mgl32.Ident4()
	}

	var top []int
	for i := range res.Models {
		top = append(top, b.model(&res.Models[i], parent))
	}

	if cfg.OrganizeIntoGroups {
		root := &gltf.Node{Name: res.Name, Children: top, Matrix: matrix(zUpToYUp)}
		b.doc.Nodes = append(b.doc.Nodes, root)
		b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, len(b.doc.Nodes)-1)
	} else {
		b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, top...)
	}

	b.finishLights()
	return b.doc, nil
}

type docBuilder struct {
	doc *gltf.Document
	cfg config.ImportConfig
	res *importer.Result

	// materials maps color ids to shared separate materials.
	materials map[uint8]int
	// shared is the single material of joined encodings.
	shared *int
	lights []punctualLight
}

// model adds the node, mesh and lights of one model result and returns the
// node index. parent is premultiplied into the node matrix.
func (b *docBuilder) model(r *importer.ModelResult, parent mgl32.Mat4) int {
	s := b.cfg.VoxelWorldScale
	center := boundsCenter(r.Model)
	node := &gltf.Node{
		Name:   r.Name,
		Matrix: matrix(parent.Mul4(NodeMatrix(r.Position, r.Size, center, s))),
	}

	if len(r.Fragments) > 0 {
		gm := &gltf.Mesh{Name: r.Name}
		if b.res.Encoding == mesh.EncodingSeparateMaterials {
			for _, f := range r.Fragments {
				m := b.prepare(mesh.Join([]*mesh.Fragment{f}), center)
				prim := b.primitive(m)
				prim.Material = gltf.Index(b.separateMaterial(f))
				gm.Primitives = append(gm.Primitives, prim)
			}
		} else {
			m := b.prepare(mesh.Join(r.Fragments), center)
			prim := b.primitive(m)
			if b.shared != nil {
				prim.Material = gltf.Index(*b.shared)
			}
			gm.Primitives = append(gm.Primitives, prim)
		}
		b.doc.Meshes = append(b.doc.Meshes, gm)
		node.Mesh = gltf.Index(len(b.doc.Meshes) - 1)
	}

	for i, l := range r.Lights {
		node.Children = append(node.Children, b.light(r.Name, i, l, center))
	}

	b.doc.Nodes = append(b.doc.Nodes, node)
	return len(b.doc.Nodes) - 1
}

// prepare orients faces outward, splits vertices for the shading mode and
// moves the bounds center to the origin. Smooth shading still keeps the 90
// degree voxel edges hard.
func (b *docBuilder) prepare(m *mesh.Mesh, center mgl32.Vec3) *mesh.Mesh {
	m.OrientOutward()
	if b.cfg.ShadeSmooth {
		m = m.SplitByDirection()
	} else {
		m = m.Flatten()
	}
	m.Translate(center.Mul(-1))
	return m
}

// primitive writes the accessors of m.
func (b *docBuilder) primitive(m *mesh.Mesh) *gltf.Primitive {
	doc := b.doc
	attrs := map[string]int{
		gltf.POSITION: modeler.WritePosition(doc, vec3s(m.Vertices)),
		gltf.NORMAL:   modeler.WriteNormal(doc, vec3s(m.Normals())),
	}
	if m.Colors != nil {
		attrs[gltf.COLOR_0] = modeler.WriteColor(doc, vec4s(m.Colors))
	}
	if m.MaterialColors != nil {
		attrs["COLOR_1"] = modeler.WriteColor(doc, vec4s(m.MaterialColors))
	}
	if m.UVs != nil {
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, vec2s(m.UVs))
	}
	return &gltf.Primitive{
		Attributes: attrs,
		Indices:    gltf.Index(modeler.WriteIndices(doc, m.TriangleIndices())),
	}
}

// NodeMatrix places a model: the MagicaVoxel translation refers to the
// model's center cell, vertices are stored relative to their bounds center
// and everything is scaled by the voxel size.
func NodeMatrix(position, size formats.VOXPoint, center mgl32.Vec3, voxelSize float32) mgl32.Mat4 {
	origin := mgl32.Vec3{
		float32(position.X - size.X/2),
		float32(position.Y - size.Y/2),
		float32(position.Z - size.Z/2),
	}
	t := origin.Add(center).Mul(voxelSize)
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(mgl32.Scale3D(voxelSize, voxelSize, voxelSize))
}

// boundsCenter returns the center of the occupied voxels of m.
func boundsCenter(m *formats.VoxelModel) mgl32.Vec3 {
	if m == nil || m.Len() == 0 {
		return mgl32.Vec3{}
	}
	lo, hi := m.Bounds()
	return mgl32.Vec3{
		float32(lo.X+hi.X) / 2,
		float32(lo.Y+hi.Y) / 2,
		float32(lo.Z+hi.Z) / 2,
	}
}

// matrix widens a column-major mgl32 matrix to the glTF node layout.
func matrix(m mgl32.Mat4) [16]float64 {
	var out [16]float64
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

func vec2s(v []mgl32.Vec2) [][2]float32 {
	out := make([][2]float32, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return out
}

func vec3s(v []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return out
}

func vec4s(v []mgl32.Vec4) [][4]float32 {
	out := make([][4]float32, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return out
}
