// Package pose turns animation frames into joint poses and skinning
// matrices.
package pose

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/skelanim/iqm"
	"github.com/mogaika/skelanim/skeleton"
	"github.com/mogaika/skelanim/utils"
)

type BonePose = iqm.Transform

// root joint translation axes removed by LerpPoses
const (
	AxisX = 1 << iota
	AxisY
	AxisZ
)

func Identity() BonePose {
	return iqm.IdentityTransform()
}

// LerpPoses writes the pose of every joint blended from currentFrame towards
// oldFrame by backlerp. Frames outside the model clamp to 0; a model without
// frames yields its base pose. Translation axes of the root joint set in
// rootAxisMask are zeroed.
func LerpPoses(data *skeleton.Data, currentFrame, oldFrame int, backlerp float32, rootAxisMask int, out []BonePose) {
	n := data.NumJoints()

	if !data.Model.HasFramePoses() {
		for i := 0; i < n; i++ {
			out[i] = data.BasePose(i)
		}
	} else {
		nf := data.NumFrames()
		if currentFrame < 0 || currentFrame >= nf {
			currentFrame = 0
		}
		if oldFrame < 0 || oldFrame >= nf {
			oldFrame = 0
		}

		if currentFrame == oldFrame {
			for i := 0; i < n; i++ {
				out[i] = data.FramePose(currentFrame, i)
			}
		} else {
			for i := 0; i < n; i++ {
				cur, old := data.FramePose(currentFrame, i), data.FramePose(oldFrame, i)
				out[i] = BonePose{
					Translate: utils.LerpVec3(cur.Translate, old.Translate, backlerp),
					Rotate:    utils.SlerpQuat(cur.Rotate, old.Rotate, backlerp),
					Scale:     utils.LerpVec3(cur.Scale, old.Scale, backlerp),
				}
			}
		}
	}

	if root := data.RootJoint; root >= 0 && root < n && rootAxisMask != 0 {
		for axis := 0; axis < 3; axis++ {
			if rootAxisMask&(1<<uint(axis)) != 0 {
				out[root].Translate[axis] = 0
			}
		}
	}
}

// ComputeLocalTransforms fills out with the skinning matrix of every joint:
// parentLocal * parentBind * joint * invBind, or joint * invBind for
// joints without a parent. Parents must precede their children.
func ComputeLocalTransforms(data *skeleton.Data, poses []BonePose, out []mgl32.Mat4) {
	for i, j := range data.Joints {
		p := poses[i]
		m := utils.JointMatrix(p.Translate, p.Rotate, p.Scale)
		if j.Parent >= 0 {
			out[i] = out[j.Parent].Mul4(data.Bind(j.Parent)).Mul4(m).Mul4(data.InvBind(i))
		} else {
			out[i] = m.Mul4(data.InvBind(i))
		}
	}
}

// ComputeWorldTransforms fills local as ComputeLocalTransforms does and
// world with the model space transform of every joint, local * bind.
func ComputeWorldTransforms(data *skeleton.Data, poses []BonePose, local, world []mgl32.Mat4) {
	ComputeLocalTransforms(data, poses, local)
	for i := range data.Joints {
		world[i] = local[i].Mul4(data.Bind(i))
	}
}

// RecursiveBlendFromBone grafts add onto into for bone and all its
// descendants. Translation and scale are always taken from add; rotation is
// slerped by fraction, so 0 keeps the rotation of into untouched.
func RecursiveBlendFromBone(tree *skeleton.Tree, add, into []BonePose, bone int, fraction float32) {
	node := tree.Node(bone)
	if node == nil {
		return
	}
	if fraction >= 1 {
		into[bone] = add[bone]
	} else {
		into[bone].Translate = add[bone].Translate
		into[bone].Scale = add[bone].Scale
		into[bone].Rotate = utils.SlerpQuat(into[bone].Rotate, add[bone].Rotate, fraction)
	}
	for _, child := range node.Children {
		RecursiveBlendFromBone(tree, add, into, child, fraction)
	}
}
