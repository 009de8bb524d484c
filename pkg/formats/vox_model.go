package formats

// VoxelKeyRadix is the fixed per-axis radix of the linear voxel key.
// It matches the 8-bit coordinate range of the XYZI chunk.
const VoxelKeyRadix = 256

// VOXPoint is an integer position or extent in voxel space.
type VOXPoint struct {
	X, Y, Z int32
}

// Voxel is a single occupied cell. ColorIndex is 1..255; 0 means empty.
type Voxel struct {
	X, Y, Z    uint8
	ColorIndex uint8
}

// Key returns the linear key of the voxel's position.
func (v Voxel) Key() uint32 {
	return VoxelKey(v.X, v.Y, v.Z)
}

// VoxelKey packs coordinates into x + y*256 + z*256*256.
func VoxelKey(x, y, z uint8) uint32 {
	return uint32(x) + uint32(y)*VoxelKeyRadix + uint32(z)*VoxelKeyRadix*VoxelKeyRadix
}

// DecodeVoxelKey is the inverse of VoxelKey for keys below 256^3.
func DecodeVoxelKey(key uint32) (x, y, z uint8) {
	return uint8(key % VoxelKeyRadix), uint8(key / VoxelKeyRadix % VoxelKeyRadix), uint8(key / (VoxelKeyRadix * VoxelKeyRadix))
}

// VoxelModel is a sparse voxel grid bounded by Size.
//
// Voxels are stored in a flat slice in insertion order with a key index on
// the side, so iteration is deterministic and lookups are O(1).
type VoxelModel struct {
	Size     VOXPoint
	Position VOXPoint // Resolved translation; zero until ResolvePositions.

	voxels []Voxel
	index  map[uint32]int
	colors []uint8
}

// NewVoxelModel builds a model from voxels. A voxel whose position repeats
// replaces the earlier one, keeping the earlier slot.
func NewVoxelModel(size VOXPoint, voxels []Voxel) *VoxelModel {
	m := &VoxelModel{
		Size:   size,
		voxels: make([]Voxel, 0, len(voxels)),
		index:  make(map[uint32]int, len(voxels)),
	}
	for _, v := range voxels {
		m.put(v)
	}
	m.refreshColors()
	return m
}

func (m *VoxelModel) put(v Voxel) {
	key := v.Key()
	if i, ok := m.index[key]; ok {
		m.voxels[i] = v
		return
	}
	m.index[key] = len(m.voxels)
	m.voxels = append(m.voxels, v)
}

// refreshColors recomputes the distinct color indices in first-seen order.
func (m *VoxelModel) refreshColors() {
	var seen [256]bool
	m.colors = m.colors[:0]
	for _, v := range m.voxels {
		if v.ColorIndex == 0 || seen[v.ColorIndex] {
			continue
		}
		seen[v.ColorIndex] = true
		m.colors = append(m.colors, v.ColorIndex)
	}
}

// Len returns the number of voxels.
func (m *VoxelModel) Len() int {
	return len(m.voxels)
}

// Voxels returns the voxels in insertion order. The slice must not be modified.
func (m *VoxelModel) Voxels() []Voxel {
	return m.voxels
}

// UsedColors returns the distinct color indices present, in first-seen order.
func (m *VoxelModel) UsedColors() []uint8 {
	return m.colors
}

// ColorAt returns the color index at (x, y, z), or 0 when the cell is empty
// or the coordinates fall outside the 0..255 range.
func (m *VoxelModel) ColorAt(x, y, z int) uint8 {
	if x < 0 || y < 0 || z < 0 || x >= VoxelKeyRadix || y >= VoxelKeyRadix || z >= VoxelKeyRadix {
		return 0
	}
	i, ok := m.index[VoxelKey(uint8(x), uint8(y), uint8(z))]
	if !ok {
		return 0
	}
	return m.voxels[i].ColorIndex
}

// IsSolid reports whether any color occupies (x, y, z).
func (m *VoxelModel) IsSolid(x, y, z int) bool {
	return m.ColorAt(x, y, z) != 0
}

// CountColor returns how many voxels carry colorID.
func (m *VoxelModel) CountColor(colorID uint8) int {
	n := 0
	for _, v := range m.voxels {
		if v.ColorIndex == colorID {
			n++
		}
	}
	return n
}

// Split moves every voxel with z >= zThreshold into a new model with the
// same Size and returns it. Voxels below the threshold stay in m.
func (m *VoxelModel) Split(zThreshold uint8) *VoxelModel {
	var keep, moved []Voxel
	for _, v := range m.voxels {
		if v.Z >= zThreshold {
			moved = append(moved, v)
		} else {
			keep = append(keep, v)
		}
	}

	m.voxels = m.voxels[:0]
	m.index = make(map[uint32]int, len(keep))
	for _, v := range keep {
		m.put(v)
	}
	m.refreshColors()

	return NewVoxelModel(m.Size, moved)
}

// Bounds returns the inclusive min and exclusive max corner of the occupied
// voxels. An empty model returns zero points.
func (m *VoxelModel) Bounds() (min, max VOXPoint) {
	if len(m.voxels) == 0 {
		return VOXPoint{}, VOXPoint{}
	}
	min = VOXPoint{255, 255, 255}
	for _, v := range m.voxels {
		min.X = min32(min.X, int32(v.X))
		min.Y = min32(min.Y, int32(v.Y))
		min.Z = min32(min.Z, int32(v.Z))
		max.X = max32(max.X, int32(v.X)+1)
		max.Y = max32(max.Y, int32(v.Y)+1)
		max.Z = max32(max.Z, int32(v.Z)+1)
	}
	return min, max
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
