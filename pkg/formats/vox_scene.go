package formats

import "sort"

// ResolvePositions copies transform translations onto models.
//
// This is a single flat pass: a transform whose child is a shape node
// positions every model of that shape. Transforms pointing at group nodes
// are not descended into, so shapes nested under groups keep a zero
// position. Rotation is never applied. Missing model ids are ignored.
// Transforms are visited in file order, so when two shapes share a model
// the later transform wins.
//
// It returns the number of model positions assigned.
func (v *VOX) ResolvePositions() int {
	assigned := 0
	for _, childID := range v.TransformChildren() {
		t := v.Transforms[childID]
		models, ok := v.Shapes[childID]
		if !ok {
			// Group children are not traversed.
			continue
		}
		for _, id := range models {
			if id < 0 || int(id) >= len(v.Models) {
				continue
			}
			v.Models[id].Position = t.Translation
			assigned++
		}
	}
	return assigned
}

// TransformChildren returns the transform keys (child node ids) in file
// order. A key that repeats keeps its first position. Keys added to
// Transforms by hand follow in ascending order.
func (v *VOX) TransformChildren() []int32 {
	ids := make([]int32, 0, len(v.Transforms))
	listed := make(map[int32]bool, len(v.transformOrder))
	for _, id := range v.transformOrder {
		if _, ok := v.Transforms[id]; ok && !listed[id] {
			listed[id] = true
			ids = append(ids, id)
		}
	}
	var rest []int32
	for id := range v.Transforms {
		if !listed[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(ids, rest...)
}

// NodeKind identifies the kind of a scene node.
type NodeKind int

// Node kinds.
const (
	NodeUnknown NodeKind = iota
	NodeTransform
	NodeGroup
	NodeShape
)

// String returns a human-readable node kind name.
func (k NodeKind) String() string {
	switch k {
	case NodeTransform:
		return "Transform"
	case NodeGroup:
		return "Group"
	case NodeShape:
		return "Shape"
	default:
		return "Unknown"
	}
}

// NodeKindOf returns the kind of the node with the given id. Transforms are
// stored by child id, so they are matched on their own NodeID.
func (v *VOX) NodeKindOf(id int32) NodeKind {
	if _, ok := v.Shapes[id]; ok {
		return NodeShape
	}
	if _, ok := v.Groups[id]; ok {
		return NodeGroup
	}
	for _, t := range v.Transforms {
		if t.NodeID == id {
			return NodeTransform
		}
	}
	return NodeUnknown
}

// NodeCount returns the number of parsed scene nodes of every kind.
func (v *VOX) NodeCount() int {
	return len(v.Transforms) + len(v.Groups) + len(v.Shapes)
}

// ModelNames maps model ids to the _name attribute of the transform that
// places their shape. Unnamed models are absent.
func (v *VOX) ModelNames() map[int]string {
	names := make(map[int]string)
	for _, childID := range v.TransformChildren() {
		t := v.Transforms[childID]
		if t.Name == "" {
			continue
		}
		for _, id := range v.Shapes[childID] {
			if id >= 0 && int(id) < len(v.Models) {
				names[int(id)] = t.Name
			}
		}
	}
	return names
}
