package mesh

import "github.com/go-gl/mathgl/mgl32"

// Mesh is the concatenation of several fragments of one model.
type Mesh struct {
	Vertices       []mgl32.Vec3
	Faces          []Face
	FaceColors     []uint8 // Color index of each face
	Colors         []mgl32.Vec4
	MaterialColors []mgl32.Vec4
	UVs            []mgl32.Vec2
}

// Join concatenates fragments, rebasing face indices. Per-vertex attributes
// are kept only when every fragment carries them.
func Join(frags []*Fragment) *Mesh {
	m := &Mesh{}
	hasCols, hasMats, hasUVs := len(frags) > 0, len(frags) > 0, len(frags) > 0
	for _, f := range frags {
		hasCols = hasCols && len(f.Colors) == len(f.Vertices)
		hasMats = hasMats && len(f.MaterialColors) == len(f.Vertices)
		hasUVs = hasUVs && len(f.UVs) == len(f.Vertices)
	}

	for _, f := range frags {
		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, f.Vertices...)
		for _, face := range f.Faces {
			for c := range face.Indices {
				face.Indices[c] += base
			}
			m.Faces = append(m.Faces, face)
			m.FaceColors = append(m.FaceColors, f.ColorID)
		}
		if hasCols {
			m.Colors = append(m.Colors, f.Colors...)
		}
		if hasMats {
			m.MaterialColors = append(m.MaterialColors, f.MaterialColors...)
		}
		if hasUVs {
			m.UVs = append(m.UVs, f.UVs...)
		}
	}
	return m
}

// TriangleIndices returns the faces as a flat triangle list.
func (m *Mesh) TriangleIndices() []uint32 {
	out := make([]uint32, 0, len(m.Faces)*6)
	for _, f := range m.Faces {
		for _, tri := range f.Triangles() {
			out = append(out, tri[:]...)
		}
	}
	return out
}

// Normals returns per-vertex normals averaged over the faces that reference
// each vertex. Unwelded meshes get exact flat normals; welded meshes need
// SplitByDirection first or corners blend three perpendicular faces.
func (m *Mesh) Normals() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(m.Vertices))
	for _, f := range m.Faces {
		n := f.Dir.Normal()
		for _, i := range f.Indices {
			out[i] = out[i].Add(n)
		}
	}
	for i, n := range out {
		if n.Len() > 0 {
			out[i] = n.Normalize()
		}
	}
	return out
}

// OrientOutward flips inward faces of the joined mesh. Fragments the mesh
// was joined from are not touched.
func (m *Mesh) OrientOutward() int {
	return orientOutward(m.Vertices, m.Faces)
}

// Flatten gives every face its own four vertices so per-vertex normals are
// the face normals.
func (m *Mesh) Flatten() *Mesh {
	out := &Mesh{
		Vertices:   make([]mgl32.Vec3, 0, len(m.Faces)*4),
		Faces:      make([]Face, len(m.Faces)),
		FaceColors: m.FaceColors,
	}
	for i, f := range m.Faces {
		base := uint32(len(out.Vertices))
		for c, idx := range f.Indices {
			out.Vertices = append(out.Vertices, m.Vertices[idx])
			if m.Colors != nil {
				out.Colors = append(out.Colors, m.Colors[idx])
			}
			if m.MaterialColors != nil {
				out.MaterialColors = append(out.MaterialColors, m.MaterialColors[idx])
			}
			if m.UVs != nil {
				out.UVs = append(out.UVs, m.UVs[idx])
			}
			f.Indices[c] = base + uint32(c)
		}
		out.Faces[i] = f
	}
	return out
}

// SplitByDirection unshares vertices between faces of different directions,
// so Normals smooths only across coplanar neighbours and voxel edges stay
// hard. Faces of one direction keep sharing their welded corners.
func (m *Mesh) SplitByDirection() *Mesh {
	type corner struct {
		vertex uint32
		dir    Direction
	}
	index := make(map[corner]uint32, len(m.Vertices))
	out := &Mesh{
		Faces:      make([]Face, len(m.Faces)),
		FaceColors: m.FaceColors,
	}
	for i, f := range m.Faces {
		for c, idx := range f.Indices {
			key := corner{idx, f.Dir}
			j, ok := index[key]
			if !ok {
				j = uint32(len(out.Vertices))
				index[key] = j
				out.Vertices = append(out.Vertices, m.Vertices[idx])
				if m.Colors != nil {
					out.Colors = append(out.Colors, m.Colors[idx])
				}
				if m.MaterialColors != nil {
					out.MaterialColors = append(out.MaterialColors, m.MaterialColors[idx])
				}
				if m.UVs != nil {
					out.UVs = append(out.UVs, m.UVs[idx])
				}
			}
			f.Indices[c] = j
		}
		out.Faces[i] = f
	}
	return out
}

// Translate offsets every vertex by d in place.
func (m *Mesh) Translate(d mgl32.Vec3) {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(d)
	}
}

// Bounds returns the axis-aligned bounds of the vertices.
func (m *Mesh) Bounds() (min, max mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max
}
