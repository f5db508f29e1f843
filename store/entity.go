package store

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/pose"
	"github.com/mogaika/skelanim/skeleton"
)

// Entity is one animated instance of a model. It is owned by a single
// goroutine.
type Entity struct {
	Name  string
	Model *Model
	Tree  *skeleton.Tree
	State anim.State

	// inputs of DecideNextAnimation
	Requested string
	Locked    bool
	Fallback  string

	log          zerolog.Logger
	unitScale    float32
	rootAxisMask int

	updated bool
	poses   []pose.BonePose
	local   []mgl32.Mat4
	world   []mgl32.Mat4
}

// SetModel rebinds the entity to m, rebuilding its bone tree and stopping
// any animation. On error the entity is left untouched.
func (e *Entity) SetModel(m *Model) error {
	tree, err := skeleton.BuildTree(m.Data)
	if err != nil {
		return err
	}
	n := m.Data.NumJoints()
	e.Model = m
	e.Tree = tree
	e.State = anim.NewState()
	e.updated = false
	e.poses = make([]pose.BonePose, n)
	e.local = make([]mgl32.Mat4, n)
	e.world = make([]mgl32.Mat4, n)
	return nil
}

// Switch starts animation name now. Unknown names are logged and ignored.
func (e *Entity) Switch(name string, now int64) bool {
	idx, err := anim.SwitchAnimation(e.Model.Table, &e.State, name, now)
	if err != nil {
		e.log.Warn().Err(err).Msg("animation switch ignored")
		return false
	}
	return idx != anim.NoSwitch
}

func (e *Entity) CurrentAnimation() string {
	if a := e.Model.Table.Animation(e.State.AnimationIndex); a != nil {
		return a.Name
	}
	return ""
}

// Think applies DecideNextAnimation to the entity's situation.
func (e *Entity) Think(now int64) anim.Intent {
	intent := anim.DecideNextAnimation(anim.Situation{
		Current:   e.CurrentAnimation(),
		Finished:  e.State.IsFinished(),
		Requested: e.Requested,
		Locked:    e.Locked,
		Fallback:  e.Fallback,
	})
	if intent.Kind == anim.IntentSwitch {
		if e.Switch(intent.Animation, now) && intent.Animation == e.Requested {
			e.Requested = ""
		}
	}
	return intent
}

// Update advances the animation to now and returns the model space
// transform of every joint. The returned slice is reused by the next call.
func (e *Entity) Update(now int64, cache *pose.Cache) ([]mgl32.Mat4, error) {
	e.Think(now)
	anim.AdvanceFrame(&e.State, now)

	poses, err := pose.Animate(e.Model.Data, e.Model.Table, e.Tree, &e.State, now, e.rootAxisMask, cache)
	if err != nil {
		return nil, err
	}
	copy(e.poses, poses)
	e.updated = true
	pose.ComputeWorldTransforms(e.Model.Data, e.poses, e.local, e.world)
	return e.world, nil
}

// Poses returns the joint poses of the last Update.
func (e *Entity) Poses() []pose.BonePose {
	return e.poses
}

// Skinning returns the skinning matrices of the last Update.
func (e *Entity) Skinning() []mgl32.Mat4 {
	return e.local
}

// MoveSpeed converts the root distance of the current frame into world
// units, relative to frameMoveDistance.
func (e *Entity) MoveSpeed(frameMoveDistance float32) float32 {
	a := e.Model.Table.Dominant(e.State.AnimationIndex)
	if a == nil || len(a.FrameDistances) == 0 {
		return 0
	}
	cur, _, _ := e.State.PoseFrames()
	i := cur - a.StartFrame
	if i < 0 || i >= len(a.FrameDistances) {
		return 0
	}
	return anim.MoveSpeed(e.unitScale, a.FrameDistances[i], frameMoveDistance)
}
