package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/voxport/pkg/formats"
)

// side describes one of the six voxel faces: the neighbor offset that hides
// it and the quad corners relative to the voxel origin.
type side struct {
	dir     Direction
	offset  [3]int
	corners [4][3]int
}

// sides holds the fixed corner order of each face. The order is part of the
// output format and must not be derived or sorted.
var sides = [6]side{
	{PosX, [3]int{1, 0, 0}, [4][3]int{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}}},
	{PosY, [3]int{0, 1, 0}, [4][3]int{{1, 1, 0}, {1, 1, 1}, {0, 1, 1}, {0, 1, 0}}},
	{PosZ, [3]int{0, 0, 1}, [4][3]int{{0, 0, 1}, {0, 1, 1}, {1, 1, 1}, {1, 0, 1}}},
	{NegX, [3]int{-1, 0, 0}, [4][3]int{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}}},
	{NegY, [3]int{0, -1, 0}, [4][3]int{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 0, 0}}},
	{NegZ, [3]int{0, 0, -1}, [4][3]int{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}},
}

// Build emits one unit quad for every exposed face of the voxels of colorID.
//
// A face is exposed when the neighbor in that direction is empty in the
// whole model, whatever its color. Every face gets four fresh vertices; no
// welding or coplanar merging happens here. A color with no voxels yields an
// empty fragment.
func Build(model *formats.VoxelModel, colorID uint8) *Fragment {
	frag := &Fragment{ColorID: colorID}
	for _, v := range model.Voxels() {
		if v.ColorIndex != colorID {
			continue
		}
		x, y, z := int(v.X), int(v.Y), int(v.Z)
		for i := range sides {
			s := &sides[i]
			if model.IsSolid(x+s.offset[0], y+s.offset[1], z+s.offset[2]) {
				continue
			}
			base := uint32(len(frag.Vertices))
			for _, c := range s.corners {
				frag.Vertices = append(frag.Vertices, mgl32.Vec3{
					float32(x + c[0]),
					float32(y + c[1]),
					float32(z + c[2]),
				})
			}
			frag.Faces = append(frag.Faces, Face{
				Indices: [4]uint32{base, base + 1, base + 2, base + 3},
				Dir:     s.dir,
			})
		}
	}
	return frag
}

// BuildAll builds one fragment per used color of the model, in the model's
// first-seen color order. Colors whose voxels are all enclosed produce empty
// fragments, which are dropped.
func BuildAll(model *formats.VoxelModel) []*Fragment {
	colors := model.UsedColors()
	frags := make([]*Fragment, 0, len(colors))
	for _, c := range colors {
		frag := Build(model, c)
		if frag.Empty() {
			continue
		}
		frags = append(frags, frag)
	}
	return frags
}
