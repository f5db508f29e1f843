package anim_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/iqm"
	"github.com/mogaika/skelanim/iqm/iqmtest"
	"github.com/mogaika/skelanim/skeleton"
)

func testTable(t *testing.T) *anim.Table {
	t.Helper()
	tbl := anim.NewTable()
	for _, a := range []anim.Action{
		{Name: "idle", StartFrame: 0, EndFrame: 10, NumFrames: 10, FrameTime: 10, ForceLoop: true},
		{Name: "jump", StartFrame: 10, EndFrame: 14, NumFrames: 4, FrameTime: 10},
	} {
		_, err := tbl.AddAction(a)
		require.NoError(t, err)
	}
	for i, name := range []string{"Idle", "Jump"} {
		idx, err := tbl.AddAnimation(name)
		require.NoError(t, err)
		require.NoError(t, tbl.AddBlendAction(idx, anim.BlendAction{ActionIndex: i, Fraction: 1}))
	}
	return tbl
}

func TestTableNames(t *testing.T) {
	tbl := testTable(t)

	i, ok := tbl.ActionByName("jump")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, 1, tbl.Actions[1].Index)
	assert.Equal(t, "jump", tbl.Dominant(1).Name)

	_, err := tbl.AddAction(anim.Action{Name: "idle"})
	assert.True(t, errkind.Is(err, errkind.Parse))
	_, err = tbl.AddAnimation("Jump")
	assert.True(t, errkind.Is(err, errkind.Parse))
	assert.Error(t, tbl.AddBlendAction(0, anim.BlendAction{ActionIndex: 5}))
	assert.Error(t, tbl.AddBlendAction(7, anim.BlendAction{}))

	_, err = tbl.AddAnimation("Empty")
	require.NoError(t, err)
	assert.Nil(t, tbl.Dominant(2))
	assert.Nil(t, tbl.Action(-1))
}

func TestSampleRange(t *testing.T) {
	for _, tc := range []struct {
		name      string
		start     int
		end       int
		looping   int
		forceLoop bool
		elapsed   float32
		want      anim.Sample
	}{
		{name: "start", end: 10, want: anim.Sample{Frame: 1, OldFrame: 0, BackLerp: 1}},
		{name: "middle", end: 10, elapsed: 25, want: anim.Sample{Frame: 3, OldFrame: 2, BackLerp: 0.5}},
		{name: "offset range", start: 20, end: 30, elapsed: 25, want: anim.Sample{Frame: 23, OldFrame: 22, BackLerp: 0.5}},
		{name: "last step", end: 10, elapsed: 95, looping: 4, want: anim.Sample{Frame: 10, OldFrame: 9, BackLerp: 0.5}},
		{name: "finished", end: 10, elapsed: 100, want: anim.Sample{Frame: 10, OldFrame: 10, Finished: true}},
		{name: "force loop", end: 10, elapsed: 105, forceLoop: true, want: anim.Sample{Frame: 1, OldFrame: 0, BackLerp: 0.5}},
		{name: "tail loop", end: 10, elapsed: 125, looping: 4, want: anim.Sample{Frame: 9, OldFrame: 8, BackLerp: 0.5}},
		{name: "tail loop longer than range", end: 10, elapsed: 125, looping: 40, want: anim.Sample{Frame: 3, OldFrame: 2, BackLerp: 0.5}},
		{name: "negative time", end: 10, elapsed: -50, want: anim.Sample{Frame: 1, OldFrame: 0, BackLerp: 1}},
		{name: "single frame", start: 5, end: 5, elapsed: 5, want: anim.Sample{Frame: 5, OldFrame: 5}},
		{name: "single frame done", start: 5, end: 5, elapsed: 20, want: anim.Sample{Frame: 5, OldFrame: 5, Finished: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := anim.SampleRange(tc.start, tc.end, 10, tc.looping, tc.forceLoop, tc.elapsed)
			assert.Equal(t, tc.want.Frame, got.Frame)
			assert.Equal(t, tc.want.OldFrame, got.OldFrame)
			assert.InDelta(t, tc.want.BackLerp, got.BackLerp, 1e-6)
			assert.Equal(t, tc.want.Finished, got.Finished)
		})
	}
}

func TestSwitchToCurrentAnimationIsNoop(t *testing.T) {
	tbl := testTable(t)
	s := anim.NewState()

	idx, err := anim.SwitchAnimation(tbl, &s, "Idle", 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.EqualValues(t, 1000, s.StartTime)
	assert.True(t, s.ForceLoop)

	anim.AdvanceFrame(&s, 1025)
	before := s

	idx, err = anim.SwitchAnimation(tbl, &s, "Idle", 5000)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, before, s)
}

func TestSwitchUnknownAnimation(t *testing.T) {
	tbl := testTable(t)
	s := anim.NewState()

	idx, err := anim.SwitchAnimation(tbl, &s, "Dance", 0)
	assert.Equal(t, anim.NoSwitch, idx)
	assert.True(t, errkind.Is(err, errkind.Lookup))
	assert.Equal(t, anim.NoSwitch, s.AnimationIndex)
}

func TestAdvanceFrameFinishes(t *testing.T) {
	tbl := testTable(t)
	s := anim.NewState()
	_, err := anim.SwitchAnimation(tbl, &s, "Jump", 0)
	require.NoError(t, err)

	anim.AdvanceFrame(&s, 15)
	assert.Equal(t, 12, s.Frame)
	assert.Equal(t, 11, s.OldFrame)
	assert.InDelta(t, 0.5, s.BackLerp, 1e-6)
	assert.False(t, s.IsFinished())

	anim.AdvanceFrame(&s, 40)
	assert.True(t, s.IsFinished())
	cur, old, backlerp := s.PoseFrames()
	assert.Equal(t, 14, cur)
	assert.Equal(t, 14, old)
	assert.Zero(t, backlerp)

	// stays finished even if time runs backwards
	anim.AdvanceFrame(&s, 0)
	assert.Equal(t, anim.Finished, s.Frame)

	_, err = anim.SwitchAnimation(tbl, &s, "Idle", 50)
	require.NoError(t, err)
	assert.False(t, s.IsFinished())
}

func TestDecideNextAnimation(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   anim.Situation
		want anim.Intent
	}{
		{"nothing asked", anim.Situation{Current: "Idle"}, anim.Intent{Kind: anim.IntentKeep}},
		{"same requested", anim.Situation{Current: "Idle", Requested: "Idle"}, anim.Intent{Kind: anim.IntentKeep}},
		{"requested", anim.Situation{Current: "Idle", Requested: "Run"}, anim.Intent{Kind: anim.IntentSwitch, Animation: "Run"}},
		{"locked", anim.Situation{Current: "Jump", Requested: "Run", Locked: true}, anim.Intent{Kind: anim.IntentKeep}},
		{"locked finished", anim.Situation{Current: "Jump", Requested: "Run", Locked: true, Finished: true}, anim.Intent{Kind: anim.IntentSwitch, Animation: "Run"}},
		{"fallback", anim.Situation{Current: "Jump", Finished: true, Fallback: "Idle"}, anim.Intent{Kind: anim.IntentSwitch, Animation: "Idle"}},
		{"hold", anim.Situation{Current: "Death", Finished: true}, anim.Intent{Kind: anim.IntentHold}},
		{"hold on fallback", anim.Situation{Current: "Idle", Finished: true, Fallback: "Idle"}, anim.Intent{Kind: anim.IntentHold}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, anim.DecideNextAnimation(tc.in))
		})
	}
	assert.Equal(t, "switch(Run)", anim.Intent{Kind: anim.IntentSwitch, Animation: "Run"}.String())
}

func TestComputeRootMotion(t *testing.T) {
	joints := iqmtest.Chain(2)
	frames := iqmtest.BaseFrames(joints, 4, func(f, j int) mgl32.Vec3 {
		if j == 0 {
			return mgl32.Vec3{3 * float32(f), 0, 4 * float32(f)}
		}
		return mgl32.Vec3{}
	})
	m := iqmtest.Load(t, iqmtest.Model("walker", joints, frames))
	data, err := skeleton.NewData(m, iqm.DefaultMaxJoints)
	require.NoError(t, err)

	a := anim.Action{Name: "walk", StartFrame: 1, EndFrame: 3, NumFrames: 2}
	require.NoError(t, anim.ComputeRootMotion(data, 0, &a))
	require.Len(t, a.FrameDistances, 3)
	require.Len(t, a.FrameTranslates, 3)
	// the first frame is measured from the origin
	assert.InDelta(t, 5, a.FrameDistances[0], 1e-3)
	assert.InDelta(t, 5, a.FrameDistances[1], 1e-3)
	assert.InDelta(t, 4, a.FrameTranslates[2].Z(), 1e-3)
	assert.InDelta(t, 15, a.AnimationDistance, 1e-3)

	bad := anim.Action{Name: "bad", StartFrame: 2, EndFrame: 4}
	assert.True(t, errkind.Is(anim.ComputeRootMotion(data, 0, &bad), errkind.Range))
	assert.Error(t, anim.ComputeRootMotion(data, 5, &a))
}

func TestMoveSpeed(t *testing.T) {
	assert.Equal(t, float32(10), anim.MoveSpeed(2, 5, 1))
	assert.Equal(t, float32(2.5), anim.MoveSpeed(1, 5, 2))
	assert.Zero(t, anim.MoveSpeed(1, 5, 0))
}
