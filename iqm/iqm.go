// Package iqm reads and writes Inter-Quake Model (version 2) containers.
// Only what the skeletal pipeline needs is decoded: joints, poses, frames,
// bounds, clips, and the geometry arrays required to validate the file.
package iqm

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	Magic   = "INTERQUAKEMODEL\x00"
	Version = 2

	HeaderSize      = 16 + 27*4
	MeshSize        = 6 * 4
	VertexArraySize = 5 * 4
	TriangleSize    = 3 * 4
	JointSize       = 2*4 + 10*4
	PoseSize        = 2*4 + 20*4
	AnimSize        = 5 * 4
	BoundsSize      = 8 * 4

	DefaultMaxJoints = 256

	// channels per pose: translate xyz, rotate xyzw, scale xyz
	PoseChannels = 10
)

// vertex array semantics
const (
	VA_POSITION     = 0
	VA_TEXCOORD     = 1
	VA_NORMAL       = 2
	VA_TANGENT      = 3
	VA_BLENDINDEXES = 4
	VA_BLENDWEIGHTS = 5
	VA_COLOR        = 6
	VA_CUSTOM       = 0x10
)

// vertex array component formats
const (
	FMT_BYTE   = 0
	FMT_UBYTE  = 1
	FMT_SHORT  = 2
	FMT_USHORT = 3
	FMT_INT    = 4
	FMT_UINT   = 5
	FMT_HALF   = 6
	FMT_FLOAT  = 7
	FMT_DOUBLE = 8
)

var formatSizes = [...]uint32{
	FMT_BYTE:   1,
	FMT_UBYTE:  1,
	FMT_SHORT:  2,
	FMT_USHORT: 2,
	FMT_INT:    4,
	FMT_UINT:   4,
	FMT_HALF:   2,
	FMT_FLOAT:  4,
	FMT_DOUBLE: 8,
}

const ANIM_LOOP = 1 << 0

type Header struct {
	Magic    [16]byte
	Version  uint32
	FileSize uint32
	Flags    uint32

	NumText          uint32
	OfsText          uint32
	NumMeshes        uint32
	OfsMeshes        uint32
	NumVertexArrays  uint32
	NumVertexes      uint32
	OfsVertexArrays  uint32
	NumTriangles     uint32
	OfsTriangles     uint32
	OfsAdjacency     uint32
	NumJoints        uint32
	OfsJoints        uint32
	NumPoses         uint32
	OfsPoses         uint32
	NumAnims         uint32
	OfsAnims         uint32
	NumFrames        uint32
	NumFrameChannels uint32
	OfsFrames        uint32
	OfsBounds        uint32
	NumComment       uint32
	OfsComment       uint32
	NumExtensions    uint32
	OfsExtensions    uint32
}

// Transform is a decomposed joint transform.
type Transform struct {
	Translate mgl32.Vec3
	Rotate    mgl32.Quat
	Scale     mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Rotate: mgl32.QuatIdent(),
		Scale:  mgl32.Vec3{1, 1, 1},
	}
}

type Joint struct {
	Name   string
	Parent int32
	Base   Transform
}

type Pose struct {
	Parent        int32
	Mask          uint32
	ChannelOffset [PoseChannels]float32
	ChannelScale  [PoseChannels]float32
}

type Anim struct {
	Name       string
	FirstFrame uint32
	NumFrames  uint32
	Framerate  float32
	Flags      uint32
}

func (a *Anim) Loop() bool {
	return a.Flags&ANIM_LOOP != 0
}

type Mesh struct {
	Name          string
	Material      string
	FirstVertex   uint32
	NumVertexes   uint32
	FirstTriangle uint32
	NumTriangles  uint32
}

type Bounds struct {
	Mins     mgl32.Vec3
	Maxs     mgl32.Vec3
	XYRadius float32
	Radius   float32
}

type VertexArray struct {
	Type   uint32
	Flags  uint32
	Format uint32
	Size   uint32
	Offset uint32
}

type Vertexes struct {
	Positions    []mgl32.Vec3
	TexCoords    []mgl32.Vec2
	Normals      []mgl32.Vec3
	BlendIndices [][4]uint8
	BlendWeights []mgl32.Vec4 // normalized to [0,1]
}

func (v *Vertexes) Len() int {
	return len(v.Positions)
}

// Model is the validated content of an IQM file. It is immutable after Load
// and shared by everything that uses the model.
type Model struct {
	Name    string
	Flags   uint32
	Comment string

	Meshes       []Mesh
	VertexArrays []VertexArray
	Vertexes     Vertexes
	Triangles    [][3]uint32

	Joints  []Joint
	Poses   []Pose
	Bind    []mgl32.Mat4 // joint space to model space, per joint
	InvBind []mgl32.Mat4

	Anims      []Anim
	NumFrames  int
	FramePoses []Transform // frame*len(Poses) + pose
	Bounds     []Bounds    // per frame, may be empty
}

func (m *Model) NumJoints() int {
	return len(m.Joints)
}

// HasFramePoses reports whether per-frame poses exist for every joint.
func (m *Model) HasFramePoses() bool {
	return m.NumFrames > 0 && len(m.Poses) == len(m.Joints) && len(m.Joints) > 0
}

// FramePose returns the decoded transform of joint in frame. Bounds are the
// caller's responsibility.
func (m *Model) FramePose(frame, joint int) Transform {
	return m.FramePoses[frame*len(m.Poses)+joint]
}

// AnimForFrame returns the clip containing frame, or nil.
func (m *Model) AnimForFrame(frame int) *Anim {
	for i := range m.Anims {
		a := &m.Anims[i]
		if frame >= int(a.FirstFrame) && frame < int(a.FirstFrame+a.NumFrames) {
			return a
		}
	}
	return nil
}
