// Package anim holds the named actions and blended animations of a model and
// the per-entity playback state that walks them over time.
package anim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/skelanim/errkind"
)

// DefaultFrameTime is used when neither the script nor the model's clips
// give a frame rate: 24 frames per second, in milliseconds.
const DefaultFrameTime = float32(1000.0 / 24.0)

// Action is a frame range of the model. EndFrame is inclusive as a pose
// index while NumFrames = EndFrame - StartFrame counts the steps between.
type Action struct {
	Name  string
	Index int

	StartFrame    int
	EndFrame      int
	NumFrames     int
	LoopingFrames int  // the last LoopingFrames frames repeat after the first pass
	ForceLoop     bool // the whole range repeats
	FrameTime     float32

	// root motion, one entry per frame of StartFrame..EndFrame
	FrameDistances    []float32
	FrameTranslates   []mgl32.Vec3
	AnimationDistance float32
}

// Looping reports whether playback never finishes.
func (a *Action) Looping() bool {
	return a.ForceLoop || a.LoopingFrames > 0
}

// Duration of a single pass in milliseconds.
func (a *Action) Duration() float32 {
	return float32(a.NumFrames) * a.FrameTime
}

type BlendAction struct {
	ActionIndex int
	Fraction    float32
	BoneNumber  int
}

// Animation is an ordered blend list. The first entry drives the base pose.
type Animation struct {
	Name         string
	Index        int
	BlendActions []BlendAction
}

// Table holds every action and animation of one model, indexed by name.
type Table struct {
	Actions    []Action
	Animations []Animation

	actionMap    map[string]int
	animationMap map[string]int
}

func NewTable() *Table {
	return &Table{
		actionMap:    make(map[string]int),
		animationMap: make(map[string]int),
	}
}

// AddAction registers a and assigns its index. Names are unique.
func (t *Table) AddAction(a Action) (int, error) {
	if _, dup := t.actionMap[a.Name]; dup {
		return -1, errkind.New(errkind.Parse, "action %q already defined", a.Name)
	}
	a.Index = len(t.Actions)
	t.Actions = append(t.Actions, a)
	t.actionMap[a.Name] = a.Index
	return a.Index, nil
}

// AddAnimation registers an empty animation named name.
func (t *Table) AddAnimation(name string) (int, error) {
	if _, dup := t.animationMap[name]; dup {
		return -1, errkind.New(errkind.Parse, "animation %q already defined", name)
	}
	idx := len(t.Animations)
	t.Animations = append(t.Animations, Animation{Name: name, Index: idx})
	t.animationMap[name] = idx
	return idx, nil
}

func (t *Table) AddBlendAction(animation int, b BlendAction) error {
	if animation < 0 || animation >= len(t.Animations) {
		return errkind.New(errkind.Range, "animation %d out of [0,%d)", animation, len(t.Animations))
	}
	if b.ActionIndex < 0 || b.ActionIndex >= len(t.Actions) {
		return errkind.New(errkind.Range, "action %d out of [0,%d)", b.ActionIndex, len(t.Actions))
	}
	anim := &t.Animations[animation]
	anim.BlendActions = append(anim.BlendActions, b)
	return nil
}

func (t *Table) ActionByName(name string) (int, bool) {
	i, ok := t.actionMap[name]
	return i, ok
}

func (t *Table) AnimationByName(name string) (int, bool) {
	i, ok := t.animationMap[name]
	return i, ok
}

func (t *Table) Action(i int) *Action {
	if i < 0 || i >= len(t.Actions) {
		return nil
	}
	return &t.Actions[i]
}

func (t *Table) Animation(i int) *Animation {
	if i < 0 || i >= len(t.Animations) {
		return nil
	}
	return &t.Animations[i]
}

// Dominant returns the action driving the base pose of animation i.
func (t *Table) Dominant(i int) *Action {
	a := t.Animation(i)
	if a == nil || len(a.BlendActions) == 0 {
		return nil
	}
	return t.Action(a.BlendActions[0].ActionIndex)
}
