package mesh

import "github.com/go-gl/mathgl/mgl32"

// vertexKey identifies vertices that can be merged: same position and same
// per-vertex attributes.
type vertexKey struct {
	pos mgl32.Vec3
	col mgl32.Vec4
	mat mgl32.Vec4
	uv  mgl32.Vec2
}

// Weld merges vertices that share a position and attributes and remaps the
// faces. Faces left with fewer than three distinct corners are dropped.
// It returns the number of vertices removed.
func Weld(frag *Fragment) int {
	before := len(frag.Vertices)
	if before == 0 {
		return 0
	}

	index := make(map[vertexKey]uint32, before)
	remap := make([]uint32, before)

	var (
		verts []mgl32.Vec3
		cols  []mgl32.Vec4
		mats  []mgl32.Vec4
		uvs   []mgl32.Vec2
	)
	for i, p := range frag.Vertices {
		k := vertexKey{pos: p}
		if frag.Colors != nil {
			k.col = frag.Colors[i]
		}
		if frag.MaterialColors != nil {
			k.mat = frag.MaterialColors[i]
		}
		if frag.UVs != nil {
			k.uv = frag.UVs[i]
		}
		if j, ok := index[k]; ok {
			remap[i] = j
			continue
		}
		j := uint32(len(verts))
		index[k] = j
		remap[i] = j
		verts = append(verts, p)
		if frag.Colors != nil {
			cols = append(cols, k.col)
		}
		if frag.MaterialColors != nil {
			mats = append(mats, k.mat)
		}
		if frag.UVs != nil {
			uvs = append(uvs, k.uv)
		}
	}

	faces := frag.Faces[:0]
	for _, f := range frag.Faces {
		for c := range f.Indices {
			f.Indices[c] = remap[f.Indices[c]]
		}
		if distinctCorners(f.Indices) < 3 {
			continue
		}
		faces = append(faces, f)
	}

	frag.Vertices = verts
	frag.Faces = faces
	if frag.Colors != nil {
		frag.Colors = cols
	}
	if frag.MaterialColors != nil {
		frag.MaterialColors = mats
	}
	if frag.UVs != nil {
		frag.UVs = uvs
	}
	return before - len(verts)
}

func distinctCorners(idx [4]uint32) int {
	n := 0
	for i := range idx {
		dup := false
		for j := 0; j < i; j++ {
			if idx[j] == idx[i] {
				dup = true
				break
			}
		}
		if !dup {
			n++
		}
	}
	return n
}

// FaceNormal returns the geometric normal of a face from its first three
// corners, following counter-clockwise winding.
func (f *Fragment) FaceNormal(face Face) mgl32.Vec3 {
	return faceNormal(f.Vertices, face)
}

func faceNormal(verts []mgl32.Vec3, face Face) mgl32.Vec3 {
	v0 := verts[face.Indices[0]]
	v1 := verts[face.Indices[1]]
	v2 := verts[face.Indices[2]]
	return v1.Sub(v0).Cross(v2.Sub(v0))
}

// OrientOutward reverses the winding of faces whose geometric normal points
// into the voxel, so every face is counter-clockwise seen from outside.
// It returns the number of faces flipped.
func OrientOutward(frag *Fragment) int {
	return orientOutward(frag.Vertices, frag.Faces)
}

func orientOutward(verts []mgl32.Vec3, faces []Face) int {
	flipped := 0
	for i, face := range faces {
		if faceNormal(verts, face).Dot(face.Dir.Normal()) >= 0 {
			continue
		}
		idx := face.Indices
		faces[i].Indices = [4]uint32{idx[0], idx[3], idx[2], idx[1]}
		flipped++
	}
	return flipped
}

// CleanupStats reports what Cleanup changed.
type CleanupStats struct {
	VerticesRemoved int
	FacesFlipped    int
}

// Cleanup welds duplicate vertices and makes face winding consistent.
func Cleanup(frag *Fragment) CleanupStats {
	return CleanupStats{
		VerticesRemoved: Weld(frag),
		FacesFlipped:    OrientOutward(frag),
	}
}
