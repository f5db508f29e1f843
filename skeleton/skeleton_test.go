package skeleton_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/iqm"
	"github.com/mogaika/skelanim/iqm/iqmtest"
	"github.com/mogaika/skelanim/skeleton"
)

// hips -> spine -> head, hips -> leg
var branched = []iqmtest.JointSpec{
	{Name: "hips", Parent: -1},
	{Name: "spine", Parent: 0},
	{Name: "leg", Parent: 0},
	{Name: "head", Parent: 1},
}

func loadData(t *testing.T, joints []iqmtest.JointSpec) *skeleton.Data {
	t.Helper()
	m := iqmtest.Load(t, iqmtest.Model("test", joints, nil))
	d, err := skeleton.NewData(m, iqm.DefaultMaxJoints)
	require.NoError(t, err)
	return d
}

func TestIndexAndNameAgree(t *testing.T) {
	d := loadData(t, iqmtest.Chain(6))
	require.Equal(t, 6, d.NumJoints())
	for i, j := range d.Joints {
		assert.Equal(t, i, j.Index)
		assert.Equal(t, i, d.Joints[d.JointMap[j.Name]].Index)
	}
	assert.Equal(t, skeleton.NoJoint, d.RootJoint)
	assert.Equal(t, skeleton.NoJoint, d.HeadJoint)
	assert.Equal(t, skeleton.NoJoint, d.TorsoJoint)
	assert.Equal(t, 0, d.FirstRoot())
}

func TestNewDataErrors(t *testing.T) {
	m := iqmtest.Load(t, iqmtest.Model("dup", []iqmtest.JointSpec{
		{Name: "a", Parent: -1},
		{Name: "a", Parent: 0},
	}, nil))
	_, err := skeleton.NewData(m, iqm.DefaultMaxJoints)
	assert.True(t, errkind.Is(err, errkind.Format), "%v", err)

	m = iqmtest.Load(t, iqmtest.Model("big", iqmtest.Chain(4), nil))
	_, err = skeleton.NewData(m, 3)
	assert.True(t, errkind.Is(err, errkind.Limit), "%v", err)

	_, err = skeleton.NewData(nil, 3)
	assert.Error(t, err)
}

func TestResolveJoint(t *testing.T) {
	d := loadData(t, branched)

	for _, tc := range []struct {
		ref  string
		want int
		kind errkind.Kind
	}{
		{"leg", 2, errkind.Unknown},
		{"3", 3, errkind.Unknown},
		{"4", skeleton.NoJoint, errkind.Range},
		{"-1", skeleton.NoJoint, errkind.Range},
		{"tail", skeleton.NoJoint, errkind.Lookup},
	} {
		got, err := d.ResolveJoint(tc.ref)
		assert.Equal(t, tc.want, got, tc.ref)
		if tc.kind == errkind.Unknown {
			assert.NoError(t, err, tc.ref)
		} else {
			assert.Equal(t, tc.kind, errkind.Of(err), tc.ref)
		}
	}

	assert.Error(t, d.SetRootJoint(9))
	assert.NoError(t, d.SetRootJoint(skeleton.NoJoint))
}

func TestBuildTree(t *testing.T) {
	d := loadData(t, branched)
	require.NoError(t, d.SetRootJoint(0))

	tree, err := skeleton.BuildTree(d)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Head)
	assert.Equal(t, []int{1, 2}, tree.Node(0).Children)
	assert.Equal(t, []int{3}, tree.Node(1).Children)
	assert.Equal(t, 1, tree.Node(3).Parent)
	assert.Equal(t, skeleton.NoJoint, tree.Node(0).Parent)
	assert.Equal(t, 3, tree.NameMap["head"])

	var visited []int
	tree.Walk(1, func(j int) { visited = append(visited, j) })
	assert.Equal(t, []int{1, 3}, visited)

	assert.Equal(t, "- 0 \"hips\"\n  - 1 \"spine\"\n    - 3 \"head\"\n  - 2 \"leg\"\n", tree.String())
}

func TestBuildTreeFromInnerRoot(t *testing.T) {
	d := loadData(t, branched)
	require.NoError(t, d.SetRootJoint(1))

	tree, err := skeleton.BuildTree(d)
	require.NoError(t, err)
	assert.Nil(t, tree.Node(0))
	assert.Nil(t, tree.Node(2))
	assert.NotNil(t, tree.Node(3))
	assert.Len(t, tree.NameMap, 2)
}

func TestBuildTreeErrors(t *testing.T) {
	_, err := skeleton.BuildTree(nil)
	assert.Error(t, err)

	d := loadData(t, branched)
	_, err = skeleton.BuildTree(d)
	assert.True(t, errkind.Is(err, errkind.Lookup), "root not set: %v", err)

	empty, err := skeleton.NewData(iqmtest.Load(t, iqmtest.Model("empty", nil, nil)), 8)
	require.NoError(t, err)
	_, err = skeleton.BuildTree(empty)
	assert.Error(t, err)
}

func TestBuildTreeRejectsParentCycle(t *testing.T) {
	d := loadData(t, []iqmtest.JointSpec{
		{Name: "A", Parent: 1},
		{Name: "B", Parent: 0},
	})
	assert.Equal(t, skeleton.NoJoint, d.FirstRoot())
	require.NoError(t, d.SetRootJoint(0))

	tree := &skeleton.Tree{}
	err := tree.Rebuild(d)
	assert.True(t, errkind.Is(err, errkind.Range), "%v", err)
	assert.Nil(t, tree.Nodes)

	selfParent := loadData(t, []iqmtest.JointSpec{{Name: "loop", Parent: 0}})
	require.NoError(t, selfParent.SetRootJoint(0))
	_, err = skeleton.BuildTree(selfParent)
	assert.True(t, errkind.Is(err, errkind.Range), "%v", err)
}
