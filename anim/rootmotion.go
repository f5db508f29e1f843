package anim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/skeleton"
)

// ComputeRootMotion fills the per-frame translation deltas of joint root
// over a.StartFrame..a.EndFrame. The first delta is measured from the
// origin. Distances are linear lengths.
func ComputeRootMotion(data *skeleton.Data, root int, a *Action) error {
	if root < 0 || root >= data.NumJoints() {
		return errkind.New(errkind.Range, "root joint %d out of [0,%d)", root, data.NumJoints())
	}
	if !data.Model.HasFramePoses() {
		return errkind.New(errkind.Range, "action %q: model %q has no frames", a.Name, data.Model.Name)
	}
	if a.StartFrame < 0 || a.EndFrame < a.StartFrame || a.EndFrame >= data.NumFrames() {
		return errkind.New(errkind.Range, "action %q: frames %d..%d out of [0,%d)",
			a.Name, a.StartFrame, a.EndFrame, data.NumFrames())
	}

	n := a.EndFrame - a.StartFrame + 1
	a.FrameTranslates = make([]mgl32.Vec3, n)
	a.FrameDistances = make([]float32, n)
	a.AnimationDistance = 0

	var prev mgl32.Vec3
	for i := 0; i < n; i++ {
		cur := data.FramePose(a.StartFrame+i, root).Translate
		delta := cur.Sub(prev)
		a.FrameTranslates[i] = delta
		a.FrameDistances[i] = delta.Len()
		a.AnimationDistance += a.FrameDistances[i]
		prev = cur
	}
	return nil
}

// MoveSpeed scales a per-frame root distance to world units per frame of
// movement. A zero move distance yields 0.
func MoveSpeed(unitScale, frameDistance, frameMoveDistance float32) float32 {
	if frameMoveDistance == 0 {
		return 0
	}
	return unitScale * frameDistance / frameMoveDistance
}
