package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/voxport/pkg/formats"
)

// lightEnergyFactor converts emission and voxel size into point light energy.
const lightEnergyFactor = 500

// Light is a point light placed at the center of an emissive voxel.
type Light struct {
	ColorID  uint8
	Position mgl32.Vec3 // Voxel-space center
	Color    mgl32.Vec3
	Energy   float32
	Radius   float32 // Soft shadow radius
}

// Lights returns one point light per voxel whose material emits.
func Lights(model *formats.VoxelModel, src Source, voxelSize float32) []Light {
	var lights []Light
	for _, v := range model.Voxels() {
		m := src.Material(v.ColorIndex)
		if m.Emission <= 0 {
			continue
		}
		c := src.Color(v.ColorIndex)
		lights = append(lights, Light{
			ColorID:  v.ColorIndex,
			Position: mgl32.Vec3{float32(v.X) + 0.5, float32(v.Y) + 0.5, float32(v.Z) + 0.5},
			Color:    mgl32.Vec3{c[0], c[1], c[2]},
			Energy:   m.Emission * lightEnergyFactor * voxelSize,
			Radius:   voxelSize / 2,
		})
	}
	return lights
}
