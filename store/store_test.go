package store_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/config"
	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/iqm/iqmtest"
	"github.com/mogaika/skelanim/skeleton"
	"github.com/mogaika/skelanim/store"
	"github.com/mogaika/skelanim/vfs"
)

const runnerScript = `rootbone "hips"
action "walk" 0 10 -1 100
action "wave" 0 3 0 100
animation "Walk"
blendaction "walk" 1.0
animation "Wave"
blendaction "wave" 1.0
`

var joints = []iqmtest.JointSpec{
	{Name: "hips", Parent: -1},
	{Name: "spine", Parent: 0, Translate: mgl32.Vec3{0, 1, 0}},
	{Name: "head", Parent: 1, Translate: mgl32.Vec3{0, 1, 0}},
}

func runner(t *testing.T) []byte {
	frames := iqmtest.BaseFrames(joints, 12, func(f, j int) mgl32.Vec3 {
		if j == 0 {
			return mgl32.Vec3{0, 0, float32(f)}
		}
		return mgl32.Vec3{}
	})
	return iqmtest.Bytes(t, iqmtest.Model("runner", joints, frames))
}

func newStore(t *testing.T, tweak func(*config.Config)) *store.Store {
	cfg := config.Default()
	if tweak != nil {
		tweak(&cfg)
	}
	s, err := store.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestLoadDirectory(t *testing.T) {
	dir := vfs.NewMemoryDirectory("models", map[string][]byte{
		"runner.iqm":  runner(t),
		"runner.anim": []byte(runnerScript),
		"broken.iqm":  []byte("not a model"),
		"notes.txt":   []byte("hello"),
	})
	s := newStore(t, nil)

	loaded, err := s.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Equal(t, []string{"runner"}, s.Models())

	m, ok := s.Model("runner")
	require.True(t, ok)
	assert.NoError(t, m.ScriptError)
	require.NotNil(t, m.Script)
	assert.Len(t, m.Table.Animations, 2)
	assert.Equal(t, 0, m.Data.RootJoint)
}

func TestLoadWithoutScript(t *testing.T) {
	s := newStore(t, func(c *config.Config) { c.DefaultRootBone = "spine" })
	dir := vfs.NewMemoryDirectory("models", map[string][]byte{"runner.iqm": runner(t)})

	m, err := s.LoadFromDirectory(dir, "runner")
	require.NoError(t, err)
	assert.Nil(t, m.Script)
	assert.Empty(t, m.Table.Animations)
	assert.Equal(t, 1, m.Data.RootJoint)
}

func TestBrokenScriptKeepsModel(t *testing.T) {
	s := newStore(t, nil)
	m, err := s.LoadModel("runner", runner(t), []byte("action \"far\" 0 99 0 10\n"))
	require.NoError(t, err)
	assert.True(t, errkind.Is(m.ScriptError, errkind.Parse), "%v", m.ScriptError)
	assert.Nil(t, m.Script)
	assert.Empty(t, m.Table.Actions)
	assert.Equal(t, 0, m.Data.RootJoint, "first root used")

	_, ok := s.Model("runner")
	assert.True(t, ok)
}

func TestLoadRejectsBadModel(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.LoadModel("bad", []byte("INTERQUAKEMODEL"), nil)
	assert.Error(t, err)
	assert.Empty(t, s.Models())

	_, err = s.NewEntity("bad")
	assert.True(t, errkind.Is(err, errkind.Lookup))
}

func TestEntityUpdate(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.LoadModel("runner", runner(t), []byte(runnerScript))
	require.NoError(t, err)

	e, err := s.NewEntity("runner")
	require.NoError(t, err)
	other, err := s.NewEntity("runner")
	require.NoError(t, err)
	assert.NotEmpty(t, e.Name)
	assert.NotEqual(t, e.Name, other.Name)
	assert.Equal(t, "- 0 \"hips\"\n  - 1 \"spine\"\n    - 2 \"head\"\n", e.Tree.String())

	assert.False(t, e.Switch("Run", 0))
	require.True(t, e.Switch("Walk", 0))
	assert.False(t, e.Switch("Walk", 10), "already playing")

	cache := s.NewCache()
	world, err := e.Update(250, cache)
	require.NoError(t, err)
	require.Len(t, world, 3)

	root := world[0].Col(3)
	assert.InDelta(t, 2.5, root.Z(), 1e-4)
	head := world[2].Col(3)
	assert.InDelta(t, 2.0, head.Y(), 1e-4)
	assert.InDelta(t, 2.5, head.Z(), 1e-4)

	assert.InDelta(t, 0.5, e.MoveSpeed(2), 1e-5)
	assert.Equal(t, float32(0), e.MoveSpeed(0))
	assert.Len(t, e.Skinning(), 3)
	assert.Len(t, e.Poses(), 3)
}

func TestEntityFallsBack(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.LoadModel("runner", runner(t), []byte(runnerScript))
	require.NoError(t, err)
	e, err := s.NewEntity("runner")
	require.NoError(t, err)
	cache := s.NewCache()

	e.Fallback = "Walk"
	e.Requested = "Wave"
	_, err = e.Update(0, cache)
	require.NoError(t, err)
	assert.Equal(t, "Wave", e.CurrentAnimation())
	assert.Empty(t, e.Requested)

	cache.Clear()
	_, err = e.Update(1000, cache)
	require.NoError(t, err)
	assert.True(t, e.State.IsFinished())

	cache.Clear()
	_, err = e.Update(1100, cache)
	require.NoError(t, err)
	assert.Equal(t, "Walk", e.CurrentAnimation())
	assert.Equal(t, int64(1100), e.State.StartTime)

	// locked animations ignore requests until they finish
	e.Locked = true
	e.Requested = "Wave"
	assert.Equal(t, anim.IntentKeep, e.Think(1200).Kind)
	assert.Equal(t, "Walk", e.CurrentAnimation())
}

func TestSetModelRejectsCycle(t *testing.T) {
	s := newStore(t, nil)
	m, err := s.LoadModel("runner", runner(t), nil)
	require.NoError(t, err)
	e, err := s.NewEntity("runner")
	require.NoError(t, err)

	broken := *m
	data := *m.Data
	data.Joints = []skeleton.Joint{{Name: "a", Index: 0, Parent: 1}, {Name: "b", Index: 1, Parent: 0}}
	data.RootJoint = 0
	broken.Data = &data

	assert.Error(t, e.SetModel(&broken))
	assert.Same(t, m, e.Model)
}
