package pose

import (
	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/skeleton"
)

// Animate evaluates the pose of an entity at now. The dominant blend action
// follows state; every further blend action is sampled at the same elapsed
// time and grafted from its bone down. The result lives in cache.
func Animate(data *skeleton.Data, table *anim.Table, tree *skeleton.Tree, state *anim.State,
	now int64, rootAxisMask int, cache *Cache) ([]BonePose, error) {
	n := data.NumJoints()
	base := cache.AcquireBlock(n)
	if base == nil {
		return nil, errkind.New(errkind.Limit, "pose cache exhausted for %d joints (%d/%d used)", n, cache.Len(), cache.Cap())
	}

	cur, old, backlerp := state.PoseFrames()
	if state.AnimationIndex < 0 {
		cur, old, backlerp = 0, 0, 0
	}
	LerpPoses(data, cur, old, backlerp, rootAxisMask, base)

	animation := table.Animation(state.AnimationIndex)
	if animation == nil || len(animation.BlendActions) < 2 {
		return base, nil
	}

	elapsed := state.Elapsed(now)
	for _, ba := range animation.BlendActions[1:] {
		a := table.Action(ba.ActionIndex)
		if a == nil {
			continue
		}
		add := cache.AcquireBlock(n)
		if add == nil {
			return nil, errkind.New(errkind.Limit, "pose cache exhausted blending %q", a.Name)
		}
		sm := a.Sample(elapsed)
		LerpPoses(data, sm.Frame, sm.OldFrame, sm.BackLerp, rootAxisMask, add)
		RecursiveBlendFromBone(tree, add, base, ba.BoneNumber, ba.Fraction)
	}
	return base, nil
}
