package animscript_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/skelanim/animscript"
	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/iqm"
	"github.com/mogaika/skelanim/iqm/iqmtest"
	"github.com/mogaika/skelanim/skeleton"
)

var joints = []iqmtest.JointSpec{
	{Name: "hips", Parent: -1},
	{Name: "spine", Parent: 0, Translate: mgl32.Vec3{0, 1, 0}},
	{Name: "head", Parent: 1, Translate: mgl32.Vec3{0, 1, 0}},
}

func testData(t *testing.T, withClip bool) *skeleton.Data {
	t.Helper()
	frames := iqmtest.BaseFrames(joints, 12, func(f, j int) mgl32.Vec3 {
		if j == 0 {
			return mgl32.Vec3{0, 0, float32(f)}
		}
		return mgl32.Vec3{}
	})
	m := iqmtest.Model("runner", joints, frames)
	if withClip {
		m.Anims = []iqm.Anim{{Name: "all", FirstFrame: 0, NumFrames: 12, Framerate: 50}}
	}
	d, err := skeleton.NewData(iqmtest.Load(t, m), iqm.DefaultMaxJoints)
	require.NoError(t, err)
	return d
}

func strict() animscript.Options {
	return animscript.Options{Strict: true}
}

func TestParseIdle(t *testing.T) {
	const text = "rootbone \"hips\"\naction \"idle\" 0 10 0 16.66\nanimation \"Idle\"\nblendaction \"idle\" 1.0\n"

	s, err := animscript.Parse([]byte(text), testData(t, false), strict())
	require.NoError(t, err)
	assert.Equal(t, 0, s.RootJoint)

	require.Len(t, s.Table.Actions, 1)
	a := s.Table.Actions[0]
	assert.Equal(t, "idle", a.Name)
	assert.Equal(t, 0, a.StartFrame)
	assert.Equal(t, 10, a.EndFrame)
	assert.Equal(t, 10, a.NumFrames)
	assert.False(t, a.ForceLoop)
	assert.Equal(t, 0, a.LoopingFrames)
	assert.InDelta(t, 16.66, a.FrameTime, 1e-4)

	require.Len(t, s.Table.Animations, 1)
	an := s.Table.Animations[0]
	assert.Equal(t, "Idle", an.Name)
	require.Len(t, an.BlendActions, 1)
	assert.Equal(t, 0, an.BlendActions[0].ActionIndex)
	assert.Equal(t, float32(1), an.BlendActions[0].Fraction)
	assert.Equal(t, 0, an.BlendActions[0].BoneNumber)
}

func TestParseFull(t *testing.T) {
	const text = `
// bones may be given by index
rootbone 0
headbone "head"
torsobone "spine"

action "walk" 0 8 -1
action "wave" 2 6 2 20
action "idle" 9 11 0 40

animation "Walk"
blendaction "walk" 1.0
blendaction "wave" 0.25 "spine"

animation "Idle"
blendaction "idle" 1
`
	s, err := animscript.Parse([]byte(text), testData(t, true), strict())
	require.NoError(t, err)
	assert.Equal(t, 0, s.RootJoint)
	assert.Equal(t, 2, s.HeadJoint)
	assert.Equal(t, 1, s.TorsoJoint)

	walk := s.Table.Actions[0]
	assert.True(t, walk.ForceLoop)
	assert.InDelta(t, 20, walk.FrameTime, 1e-6, "frame time from the clip rate")
	assert.Len(t, walk.FrameDistances, 9)
	assert.InDelta(t, 8, walk.AnimationDistance, 1e-3)

	wave := s.Table.Actions[1]
	assert.Equal(t, 2, wave.LoopingFrames)
	assert.Equal(t, 4, wave.NumFrames)

	w := s.Table.Animations[0]
	require.Len(t, w.BlendActions, 2)
	assert.Equal(t, 1, w.BlendActions[1].ActionIndex)
	assert.Equal(t, float32(0.25), w.BlendActions[1].Fraction)
	assert.Equal(t, 1, w.BlendActions[1].BoneNumber)

	idle, ok := s.Table.AnimationByName("Idle")
	require.True(t, ok)
	assert.Equal(t, float32(1), s.Table.Animations[idle].BlendActions[0].Fraction)
}

func TestParseDefaultFrameTime(t *testing.T) {
	s, err := animscript.Parse([]byte(`action "a" 0 1 0`), testData(t, false), strict())
	require.NoError(t, err)
	assert.InDelta(t, 1000.0/24.0, s.Table.Actions[0].FrameTime, 1e-4)
	assert.Empty(t, s.Table.Actions[0].FrameDistances, "no root bone, no root motion")
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
		line int
	}{
		{"unknown identifier", "rootbone \"hips\"\nbogus 1 2", 2},
		{"blendaction without animation", "action \"a\" 0 1 0\nblendaction \"a\" 1.0", 2},
		{"blendaction after action closes scope", "action \"a\" 0 1 0\nanimation \"A\"\naction \"b\" 0 1 0\nblendaction \"a\" 1.0", 4},
		{"unknown action", "animation \"A\"\nblendaction \"nope\" 1.0", 2},
		{"unknown bone", "rootbone \"tail\"", 1},
		{"bone index out of range", "rootbone 3", 1},
		{"missing argument", "action \"a\" 0 1\nanimation \"A\"", 1},
		{"wrong argument type", "action a 0 1 0", 1},
		{"float frame", "action \"a\" 0.5 1 0", 1},
		{"frames past model", "action \"a\" 0 12 0", 1},
		{"reversed range", "action \"a\" 5 4 0", 1},
		{"duplicate action", "action \"a\" 0 1 0\naction \"a\" 2 3 0", 2},
		{"duplicate animation", "animation \"A\"\nanimation \"A\"", 2},
		{"fraction range", "action \"a\" 0 1 0\nanimation \"A\"\nblendaction \"a\" 1.5", 3},
		{"zero frame time", "action \"a\" 0 1 0 0.0", 1},
		{"stray argument", "animation \"A\" 5", 1},
		{"bad character", "action \"a\" 0 1 0 @", 1},
		{"unterminated string", "animation \"A", 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := animscript.Parse([]byte(tc.text), testData(t, false), strict())
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, errkind.Is(err, errkind.Parse), "%v", err)

			var se *animscript.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.line, se.Line, "%v", err)
		})
	}
}

func TestLenientSkipsUnknownCommands(t *testing.T) {
	const text = `
rootbone "hips"
fadetime 0.5 "x"
action "idle" 0 10 0
sound "step.wav" 3
animation "Idle"
blendaction "idle" 1.0
`
	var logs bytes.Buffer
	s, err := animscript.Parse([]byte(text), testData(t, false), animscript.Options{Logger: zerolog.New(&logs)})
	require.NoError(t, err)
	assert.Len(t, s.Table.Actions, 1)
	assert.Len(t, s.Table.Animations, 1)
	assert.Equal(t, 2, strings.Count(logs.String(), "skipping unknown command"))

	_, err = animscript.Parse([]byte(text), testData(t, false), strict())
	assert.Error(t, err)
}

func TestLenientUnknownCommandAfterAction(t *testing.T) {
	for _, text := range []string{
		"action \"idle\" 0 10 0\nspeed 2\nanimation \"Idle\"\nblendaction \"idle\" 1.0",
		"action \"idle\" 0 10 0 40\nspeed 2\nanimation \"Idle\"\nblendaction \"idle\" 1.0",
		"action \"idle\" 0 10 0\nanimation \"Idle\"\nblendaction \"idle\" 1.0\nspeed 2",
	} {
		s, err := animscript.Parse([]byte(text), testData(t, false), animscript.Options{})
		require.NoError(t, err, text)
		require.Len(t, s.Table.Actions, 1)
		require.Len(t, s.Table.Animations, 1)
		assert.Len(t, s.Table.Animations[0].BlendActions, 1)
	}

	s, err := animscript.Parse([]byte("action \"idle\" 0 10 0\nspeed 2"), testData(t, false), animscript.Options{})
	require.NoError(t, err)
	assert.InDelta(t, 1000.0/24.0, s.Table.Actions[0].FrameTime, 1e-4, "unknown command is not a frame time")
}

func TestIntegerBoneIsIndex(t *testing.T) {
	digits := []iqmtest.JointSpec{
		{Name: "2", Parent: -1},
		{Name: "0", Parent: 0},
		{Name: "1", Parent: 1},
	}
	d, err := skeleton.NewData(iqmtest.Load(t, iqmtest.Model("digits", digits, nil)), iqm.DefaultMaxJoints)
	require.NoError(t, err)

	s, err := animscript.Parse([]byte("rootbone 0\nheadbone 2\ntorsobone \"0\""), d, strict())
	require.NoError(t, err)
	assert.Equal(t, 0, s.RootJoint)
	assert.Equal(t, 2, s.HeadJoint)
	assert.Equal(t, 1, s.TorsoJoint, "quoted bones are names")
}

func TestTokenize(t *testing.T) {
	toks, err := animscript.Tokenize([]byte("action \"a b\" -3 +.5 // tail\n  x"), false)
	require.NoError(t, err)
	require.Len(t, toks, 5)

	types := []int{animscript.TOKEN_COMMAND, animscript.TOKEN_STRING, animscript.TOKEN_INTEGER, animscript.TOKEN_FLOAT, animscript.TOKEN_UNKNOWN}
	for i, typ := range types {
		assert.Equal(t, typ, toks[i].Type, "token %d", i)
	}
	assert.Equal(t, "a b", toks[1].Value)
	assert.Equal(t, 2, toks[4].Line)
	assert.Greater(t, toks[4].Column, toks[0].Column)
}

func TestRenderRoundTrip(t *testing.T) {
	const text = `
rootbone "hips"
action "walk" 0 8 -1 33.5
action "wave" 2 6 2 20
animation "Walk"
blendaction "walk" 1.0
blendaction "wave" 0.25 "spine"
`
	data := testData(t, false)
	s, err := animscript.Parse([]byte(text), data, strict())
	require.NoError(t, err)

	rendered := animscript.RenderString(s)
	again, err := animscript.Parse([]byte(rendered), data, strict())
	require.NoError(t, err, rendered)
	assert.Equal(t, s.Table.Actions, again.Table.Actions)
	assert.Equal(t, s.Table.Animations, again.Table.Animations)
	assert.Equal(t, s.RootJoint, again.RootJoint)
}

func TestMarshalYAML(t *testing.T) {
	const text = "rootbone \"hips\"\naction \"idle\" 0 10 -1\nanimation \"Idle\"\nblendaction \"idle\" 0.5 \"head\"\n"
	s, err := animscript.Parse([]byte(text), testData(t, false), strict())
	require.NoError(t, err)

	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	dump := string(out)
	assert.Contains(t, dump, "rootBone: hips # joint 0")
	assert.Contains(t, dump, "frames: 0..10 # 10 steps")
	assert.Contains(t, dump, "loop: -1 # whole range")
	assert.Contains(t, dump, "bone: head # joint 2")
}
