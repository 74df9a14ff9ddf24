package source

import (
	"github.com/Faultbox/glint/pkg/formats"
	"github.com/Faultbox/glint/pkg/math"
)

// nodeMatrix returns the transform applied to a node's vertices: the
// inherited hierarchy matrix followed by the node's own Offset and Mat3,
// which children do not inherit.
func nodeMatrix(node *formats.RSMNode, rsm *formats.RSM, animTimeMs float32) math.Mat4 {
	visited := make(map[string]bool)
	result := hierarchyMatrix(node, rsm, animTimeMs, visited)
	result = result.Mul(math.Translate(math.V3(node.Offset)))
	return result.Mul(math.FromMat3x3(node.Matrix))
}

// hierarchyMatrix returns parent * Position * Rotation * Scale.
func hierarchyMatrix(node *formats.RSMNode, rsm *formats.RSM, animTimeMs float32, visited map[string]bool) math.Mat4 {
	// Cyclic parent chains terminate at the first repeat
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	local := math.Translate(math.V3(node.Position))

	// Keyframes take precedence over the static axis-angle
	if len(node.RotKeys) > 0 {
		local = local.Mul(rotationAt(node.RotKeys, animTimeMs).ToMat4())
	} else if node.RotAngle != 0 {
		axis := math.V3(node.RotAxis)
		if axis.Length() > 1e-6 {
			local = local.Mul(math.RotateAxis(axis.Normalize(), node.RotAngle))
		}
	}

	local = local.Mul(math.Scale(math.V3(node.Scale)))
	if len(node.ScaleKeys) > 0 {
		local = local.Mul(math.Scale(scaleAt(node.ScaleKeys, animTimeMs)))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if parent := rsm.NodeByName(node.Parent); parent != nil {
			return hierarchyMatrix(parent, rsm, animTimeMs, visited).Mul(local)
		}
	}
	return local
}

// keySpan finds the keys surrounding timeMs and the blend factor between
// them. prev == next when timeMs is outside the keyed range.
func keySpan(count int, frame func(int) int32, timeMs float32) (prev, next int, t float32) {
	for i := range count {
		if float32(frame(i)) > timeMs {
			next = i
			break
		}
		prev = i
		next = i
	}

	if prev != next {
		f0, f1 := frame(prev), frame(next)
		if f1 != f0 {
			t = (timeMs - float32(f0)) / float32(f1-f0)
		}
	}
	return prev, next, t
}

func rotationAt(keys []formats.RSMRotKeyframe, timeMs float32) math.Quat {
	if len(keys) == 0 {
		return math.QuatIdentity()
	}

	prev, next, t := keySpan(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	q0 := math.Q4(keys[prev].Quaternion)
	if prev == next {
		return q0
	}
	return q0.Slerp(math.Q4(keys[next].Quaternion), t)
}

func scaleAt(keys []formats.RSMScaleKeyframe, timeMs float32) math.Vec3 {
	if len(keys) == 0 {
		return math.Vec3{X: 1, Y: 1, Z: 1}
	}

	prev, next, t := keySpan(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	s0 := math.V3(keys[prev].Scale)
	if prev == next {
		return s0
	}
	return s0.Lerp(math.V3(keys[next].Scale), t)
}
