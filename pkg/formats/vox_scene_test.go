package formats

import "testing"

func TestResolvePositions_ShapeAttached(t *testing.T) {
	data := (&voxBuilder{}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 2}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 3}).
		transform(0, 1).
		group(1, 2, 4).
		transform(2, 3, "_t", "5 -6 7").
		shape(3, 0, 1).
		transform(4, 5, "_t", "1 1 1").
		shape(5, 9). // unknown model id is ignored
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	if n := vox.ResolvePositions(); n != 2 {
		t.Errorf("expected 2 positions assigned, got %d", n)
	}
	want := VOXPoint{5, -6, 7}
	if vox.Models[0].Position != want || vox.Models[1].Position != want {
		t.Errorf("shape models got %+v and %+v, want %+v", vox.Models[0].Position, vox.Models[1].Position, want)
	}
	if vox.Models[2].Position != (VOXPoint{}) {
		t.Errorf("unreferenced model should stay at origin, got %+v", vox.Models[2].Position)
	}
}

func TestResolvePositions_FileOrder(t *testing.T) {
	// Both shapes place model 0. The transform with the higher child id comes
	// first in the file, so the second one decides the position.
	data := (&voxBuilder{}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).
		transform(4, 5, "_t", "1 1 1").
		shape(5, 0).
		transform(2, 3, "_t", "9 9 9").
		shape(3, 0).
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	if got := vox.TransformChildren(); len(got) != 2 || got[0] != 5 || got[1] != 3 {
		t.Errorf("expected transform keys in file order [5 3], got %v", got)
	}
	vox.ResolvePositions()
	if vox.Models[0].Position != (VOXPoint{9, 9, 9}) {
		t.Errorf("expected the later transform to win, got %+v", vox.Models[0].Position)
	}
}

func TestTransformChildren_ManualTransforms(t *testing.T) {
	vox := &VOX{Transforms: map[int32]VOXTransform{7: {}, 3: {}}}
	if got := vox.TransformChildren(); len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Errorf("expected unlisted keys in ascending order, got %v", got)
	}
}

func TestResolvePositions_GroupNotTraversed(t *testing.T) {
	// The root transform translates a group; the shape below it has its own
	// transform without translation. Only the direct transform applies.
	data := (&voxBuilder{}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).
		transform(0, 1, "_t", "100 100 100").
		group(1, 2).
		transform(2, 3).
		shape(3, 0).
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	vox.ResolvePositions()

	if vox.Models[0].Position != (VOXPoint{}) {
		t.Errorf("group translation must not propagate, got %+v", vox.Models[0].Position)
	}
}

func TestResolvePositions_NoSceneGraph(t *testing.T) {
	vox, err := ParseVOX((&voxBuilder{}).size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).bytes())
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	if n := vox.ResolvePositions(); n != 0 {
		t.Errorf("expected no assignments, got %d", n)
	}
}

func TestNodeKindOf(t *testing.T) {
	data := (&voxBuilder{}).
		transform(0, 1).
		group(1, 2).
		transform(2, 3).
		shape(3).
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	tests := []struct {
		id   int32
		want NodeKind
	}{
		{0, NodeTransform},
		{1, NodeGroup},
		{2, NodeTransform},
		{3, NodeShape},
		{42, NodeUnknown},
	}
	for _, tc := range tests {
		if got := vox.NodeKindOf(tc.id); got != tc.want {
			t.Errorf("NodeKindOf(%d) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestModelNames(t *testing.T) {
	data := (&voxBuilder{}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 1}).
		size(1, 1, 1).xyzi(Voxel{0, 0, 0, 2}).
		transform(0, 1).
		group(1, 2, 4).
		namedTransform(2, 3, "torso").
		shape(3, 0).
		transform(4, 5).
		shape(5, 1).
		bytes()

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	names := vox.ModelNames()
	if names[0] != "torso" {
		t.Errorf("expected model 0 named torso, got %q", names[0])
	}
	if _, ok := names[1]; ok {
		t.Errorf("model 1 has no name, got %q", names[1])
	}
}
