package pose_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/iqm"
	"github.com/mogaika/skelanim/iqm/iqmtest"
	"github.com/mogaika/skelanim/pose"
	"github.com/mogaika/skelanim/skeleton"
	"github.com/mogaika/skelanim/utils"
)

// hips -> spine -> head, hips -> leg
var joints = []iqmtest.JointSpec{
	{Name: "hips", Parent: -1, Translate: mgl32.Vec3{0, 1, 0}},
	{Name: "spine", Parent: 0, Translate: mgl32.Vec3{0, 1, 0}},
	{Name: "head", Parent: 1, Translate: mgl32.Vec3{0, 0.5, 0}},
	{Name: "leg", Parent: 0, Translate: mgl32.Vec3{0.2, -1, 0}},
}

// frame f moves the hips by (f, 0, 2f) and turns the spine by f*10 degrees
func testData(t *testing.T, frames int) *skeleton.Data {
	t.Helper()
	fr := iqmtest.BaseFrames(joints, frames, func(f, j int) mgl32.Vec3 {
		if j == 0 {
			return mgl32.Vec3{float32(f), 0, 2 * float32(f)}
		}
		return mgl32.Vec3{}
	})
	for f := range fr {
		fr[f][1].Rotate = mgl32.QuatRotate(mgl32.DegToRad(float32(f)*10), mgl32.Vec3{0, 0, 1})
	}
	d, err := skeleton.NewData(iqmtest.Load(t, iqmtest.Model("rig", joints, fr)), iqm.DefaultMaxJoints)
	require.NoError(t, err)
	require.NoError(t, d.SetRootJoint(0))
	return d
}

func poses(n int) []pose.BonePose {
	p := make([]pose.BonePose, n)
	for i := range p {
		p[i] = pose.Identity()
	}
	return p
}

func TestLerpPosesSameFrameIsIdempotent(t *testing.T) {
	d := testData(t, 4)
	a, b := poses(4), poses(4)
	pose.LerpPoses(d, 2, 2, 0.3, 0, a)
	pose.LerpPoses(d, 2, 2, 0.3, 0, b)
	assert.Equal(t, a, b)
	pose.LerpPoses(d, 2, 2, 0.3, 0, b)
	assert.Equal(t, a, b)
	assert.InDelta(t, 2, a[0].Translate.X(), 1e-3)
}

func TestLerpPosesClampsFrames(t *testing.T) {
	d := testData(t, 4)
	got, frame0 := poses(4), poses(4)
	pose.LerpPoses(d, 0, 0, 0, 0, frame0)

	for _, frames := range [][2]int{{99, 0}, {0, -3}, {4, 7}, {-1, -1}} {
		pose.LerpPoses(d, frames[0], frames[1], 0.5, 0, got)
		assert.Equal(t, frame0, got, "%v", frames)
	}
}

func TestLerpPosesBlends(t *testing.T) {
	d := testData(t, 4)
	out := poses(4)

	pose.LerpPoses(d, 3, 1, 0.25, 0, out)
	assert.InDelta(t, 2.5, out[0].Translate.X(), 1e-3)
	assert.InDelta(t, 5, out[0].Translate.Z(), 1e-3)

	want := mgl32.QuatRotate(mgl32.DegToRad(25), mgl32.Vec3{0, 0, 1})
	assert.InDelta(t, 1, out[1].Rotate.Dot(want), 1e-5)

	pose.LerpPoses(d, 3, 1, 1, 0, out)
	assert.InDelta(t, 1, out[0].Translate.X(), 1e-3)
}

func TestLerpPosesRootAxisMask(t *testing.T) {
	d := testData(t, 4)
	out := poses(4)
	pose.LerpPoses(d, 2, 2, 0, pose.AxisX|pose.AxisZ, out)
	assert.Zero(t, out[0].Translate.X())
	assert.InDelta(t, 1, out[0].Translate.Y(), 1e-6)
	assert.Zero(t, out[0].Translate.Z())
	assert.InDelta(t, 0.2, out[3].Translate.X(), 1e-6, "only the root is masked")
}

func TestLerpPosesWithoutFrames(t *testing.T) {
	d, err := skeleton.NewData(iqmtest.Load(t, iqmtest.Model("static", joints, nil)), 8)
	require.NoError(t, err)
	out := poses(4)
	pose.LerpPoses(d, 5, 3, 0.5, 0, out)
	for i := range joints {
		assert.Equal(t, d.BasePose(i), out[i])
	}
}

func TestWorldTransforms(t *testing.T) {
	d := testData(t, 4)
	n := d.NumJoints()
	local, world := make([]mgl32.Mat4, n), make([]mgl32.Mat4, n)

	// the bind pose maps every joint onto its bind matrix
	base := poses(n)
	for i := range base {
		base[i] = d.BasePose(i)
	}
	pose.ComputeWorldTransforms(d, base, local, world)
	for i := 0; i < n; i++ {
		assert.True(t, local[i].ApproxEqualThreshold(mgl32.Ident4(), 1e-5), "local %d", i)
		assert.True(t, world[i].ApproxEqualThreshold(d.Bind(i), 1e-5), "world %d", i)
	}

	animated := poses(n)
	pose.LerpPoses(d, 3, 3, 0, 0, animated)
	pose.ComputeWorldTransforms(d, animated, local, world)

	// root: bind applied exactly once, no parent contribution
	assert.True(t, world[0].ApproxEqualThreshold(local[0].Mul4(d.Bind(0)), 1e-6))
	rootJoint := utils.JointMatrix(animated[0].Translate, animated[0].Rotate, animated[0].Scale)
	assert.True(t, world[0].ApproxEqualThreshold(rootJoint, 1e-4))

	// child: parent world times own joint transform
	spine := utils.JointMatrix(animated[1].Translate, animated[1].Rotate, animated[1].Scale)
	assert.True(t, world[1].ApproxEqualThreshold(world[0].Mul4(spine), 1e-4))
}

func TestRecursiveBlendFromBone(t *testing.T) {
	d := testData(t, 4)
	tree, err := skeleton.BuildTree(d)
	require.NoError(t, err)

	into, add := poses(4), poses(4)
	pose.LerpPoses(d, 0, 0, 0, 0, into)
	pose.LerpPoses(d, 3, 3, 0, 0, add)
	for i := range add {
		add[i].Scale = mgl32.Vec3{2, 2, 2}
		add[i].Rotate = mgl32.QuatRotate(1, mgl32.Vec3{1, 0, 0})
	}

	full := append([]pose.BonePose(nil), into...)
	pose.RecursiveBlendFromBone(tree, add, full, 1, 1)
	assert.Equal(t, add[1], full[1])
	assert.Equal(t, add[2], full[2])
	assert.Equal(t, into[0], full[0], "outside the subtree")
	assert.Equal(t, into[3], full[3], "outside the subtree")

	none := append([]pose.BonePose(nil), into...)
	pose.RecursiveBlendFromBone(tree, add, none, 1, 0)
	for _, j := range []int{1, 2} {
		assert.Equal(t, into[j].Rotate, none[j].Rotate)
		assert.Equal(t, add[j].Translate, none[j].Translate)
		assert.Equal(t, add[j].Scale, none[j].Scale)
	}

	half := append([]pose.BonePose(nil), into...)
	pose.RecursiveBlendFromBone(tree, add, half, 0, 0.5)
	want := utils.SlerpQuat(into[3].Rotate, add[3].Rotate, 0.5)
	assert.Equal(t, want, half[3].Rotate)

	// unknown bones are ignored
	pose.RecursiveBlendFromBone(tree, add, half, 42, 1)
}

func TestAnimateBlendsSecondaryActions(t *testing.T) {
	d := testData(t, 4)
	tree, err := skeleton.BuildTree(d)
	require.NoError(t, err)

	tbl := anim.NewTable()
	_, err = tbl.AddAction(anim.Action{Name: "still", StartFrame: 0, EndFrame: 0, FrameTime: 10, ForceLoop: true})
	require.NoError(t, err)
	_, err = tbl.AddAction(anim.Action{Name: "turn", StartFrame: 3, EndFrame: 3, FrameTime: 10, ForceLoop: true})
	require.NoError(t, err)
	idx, err := tbl.AddAnimation("TurnSpine")
	require.NoError(t, err)
	require.NoError(t, tbl.AddBlendAction(idx, anim.BlendAction{ActionIndex: 0, Fraction: 1}))
	require.NoError(t, tbl.AddBlendAction(idx, anim.BlendAction{ActionIndex: 1, Fraction: 1, BoneNumber: 1}))

	state := anim.NewState()
	_, err = anim.SwitchAnimation(tbl, &state, "TurnSpine", 0)
	require.NoError(t, err)
	anim.AdvanceFrame(&state, 5)

	cache := pose.NewCache(8, 64, 8)
	out, err := pose.Animate(d, tbl, tree, &state, 5, 0, cache)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, 8, cache.Len())

	frame0, frame3 := poses(4), poses(4)
	pose.LerpPoses(d, 0, 0, 0, 0, frame0)
	pose.LerpPoses(d, 3, 3, 0, 0, frame3)
	assert.Equal(t, frame0[0], out[0])
	assert.Equal(t, frame3[1], out[1])
	assert.Equal(t, frame0[3], out[3])

	small := pose.NewCache(2, 64, 8)
	_, err = pose.Animate(d, tbl, tree, &state, 5, 0, small)
	assert.Error(t, err)
}
