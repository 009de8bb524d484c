package importer

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/voxport/pkg/formats"
	"github.com/Faultbox/voxport/pkg/mesh"
)

type cachedFragments struct {
	key   []byte
	frags []*mesh.Fragment
	stats mesh.CleanupStats
}

// fragmentCache reuses meshes of models with identical voxel content, keyed
// by xxhash and confirmed by comparing the full digest.
type fragmentCache struct {
	entries map[uint64][]cachedFragments
	hits    int
}

func newFragmentCache() *fragmentCache {
	return &fragmentCache{entries: make(map[uint64][]cachedFragments)}
}

func (c *fragmentCache) get(key []byte) (cachedFragments, bool) {
	for _, e := range c.entries[xxhash.Sum64(key)] {
		if bytes.Equal(e.key, key) {
			c.hits++
			return e, true
		}
	}
	return cachedFragments{}, false
}

func (c *fragmentCache) put(key []byte, e cachedFragments) {
	h := xxhash.Sum64(key)
	e.key = key
	c.entries[h] = append(c.entries[h], e)
}

// modelDigest serializes the size and voxels of m in storage order.
func modelDigest(m *formats.VoxelModel) []byte {
	out := make([]byte, 0, 12+m.Len()*4)
	out = binary.LittleEndian.AppendUint32(out, uint32(m.Size.X))
	out = binary.LittleEndian.AppendUint32(out, uint32(m.Size.Y))
	out = binary.LittleEndian.AppendUint32(out, uint32(m.Size.Z))
	for _, v := range m.Voxels() {
		out = append(out, v.X, v.Y, v.Z, v.ColorIndex)
	}
	return out
}
