// Package iqmtest builds small in-memory IQM models for tests.
package iqmtest

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/skelanim/iqm"
)

// JointSpec describes one joint. A zero Rotate means identity and a zero
// Scale means unit scale.
type JointSpec struct {
	Name      string
	Parent    int32
	Translate mgl32.Vec3
	Rotate    mgl32.Quat
	Scale     mgl32.Vec3
}

func (j JointSpec) Transform() iqm.Transform {
	t := iqm.Transform{Translate: j.Translate, Rotate: j.Rotate, Scale: j.Scale}
	if t.Rotate == (mgl32.Quat{}) {
		t.Rotate = mgl32.QuatIdent()
	}
	if t.Scale == (mgl32.Vec3{}) {
		t.Scale = mgl32.Vec3{1, 1, 1}
	}
	return t
}

// Chain returns n joints named bone0..bone(n-1), each parented to the
// previous one and offset by one unit on Y.
func Chain(n int) []JointSpec {
	joints := make([]JointSpec, n)
	for i := range joints {
		joints[i] = JointSpec{
			Name:      fmt.Sprintf("bone%d", i),
			Parent:    int32(i - 1),
			Translate: mgl32.Vec3{0, 1, 0},
		}
	}
	if n > 0 {
		joints[0].Translate = mgl32.Vec3{}
	}
	return joints
}

// Model returns an unencoded model with the given joints and frames
// (frames[f][joint]) and a single triangle bound to joint 0.
func Model(name string, joints []JointSpec, frames [][]iqm.Transform) *iqm.Model {
	m := &iqm.Model{
		Name: name,
		Meshes: []iqm.Mesh{{
			Name: "body", Material: "skin",
			NumVertexes: 3, NumTriangles: 1,
		}},
		Vertexes: iqm.Vertexes{
			Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			TexCoords: []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
			Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		},
		Triangles: [][3]uint32{{0, 1, 2}},
	}
	if len(joints) > 0 {
		m.Vertexes.BlendIndices = make([][4]uint8, 3)
		m.Vertexes.BlendWeights = []mgl32.Vec4{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}
	}
	for _, j := range joints {
		m.Joints = append(m.Joints, iqm.Joint{Name: j.Name, Parent: j.Parent, Base: j.Transform()})
	}
	m.NumFrames = len(frames)
	for _, f := range frames {
		m.FramePoses = append(m.FramePoses, f...)
	}
	return m
}

// BaseFrames repeats the joints' base transforms n times with translate
// offset by move(frame, joint).
func BaseFrames(joints []JointSpec, n int, move func(frame, joint int) mgl32.Vec3) [][]iqm.Transform {
	frames := make([][]iqm.Transform, n)
	for f := range frames {
		frames[f] = make([]iqm.Transform, len(joints))
		for j, spec := range joints {
			t := spec.Transform()
			if move != nil {
				t.Translate = t.Translate.Add(move(f, j))
			}
			frames[f][j] = t
		}
	}
	return frames
}

func Bytes(t testing.TB, m *iqm.Model) []byte {
	t.Helper()
	data, err := iqm.Encode(m)
	require.NoError(t, err)
	return data
}

// Load round-trips m through the encoder and the loader.
func Load(t testing.TB, m *iqm.Model, opts ...iqm.Option) *iqm.Model {
	t.Helper()
	loaded, err := iqm.Load(Bytes(t, m), m.Name, opts...)
	require.NoError(t, err)
	return loaded
}
