package iqm

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"

	"github.com/mogaika/skelanim/utils"
)

type options struct {
	maxJoints int
	enc       encoding.Encoding
	log       zerolog.Logger
}

type Option func(*options)

// WithMaxJoints overrides the joint count ceiling.
func WithMaxJoints(n int) Option {
	return func(o *options) { o.maxJoints = n }
}

// WithEncoding decodes names from the text block with enc instead of raw UTF-8.
func WithEncoding(enc encoding.Encoding) Option {
	return func(o *options) { o.enc = enc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// OutOfRange is the section check every loader shares with the engine's
// existing content: a section is rejected when it is empty, starts past the
// end of the file or runs past the end of the file. Arithmetic is 64 bit.
func OutOfRange(count, offset, size, filesize uint32) bool {
	return count == 0 ||
		offset > filesize ||
		uint64(offset)+uint64(count)*uint64(size) > uint64(filesize)
}

type loader struct {
	opts options
	name string
	hdr  Header
	file *utils.BufStack
	text []byte
	m    *Model
}

// Load validates data and decodes it into a Model. On any error the
// partially built model is dropped and nil is returned.
func Load(data []byte, name string, opts ...Option) (*Model, error) {
	l := &loader{
		opts: options{maxJoints: DefaultMaxJoints, log: zerolog.Nop()},
		name: name,
		m:    &Model{Name: name},
	}
	for _, o := range opts {
		o(&l.opts)
	}

	steps := []func(data []byte) error{
		l.readHeader,
		func([]byte) error { return l.readText() },
		func([]byte) error { return l.readVertexArrays() },
		func([]byte) error { return l.readTriangles() },
		func([]byte) error { return l.readMeshes() },
		func([]byte) error { return l.readJoints() },
		func([]byte) error { return l.readPoses() },
		func([]byte) error { return l.readAnims() },
		func([]byte) error { return l.readFrames() },
		func([]byte) error { return l.readBounds() },
		func([]byte) error { return l.readComment() },
	}
	for _, step := range steps {
		if err := step(data); err != nil {
			return nil, err
		}
	}

	l.opts.log.Debug().Str("pkg", "iqm").Str("model", name).
		Int("joints", len(l.m.Joints)).
		Int("frames", l.m.NumFrames).
		Int("anims", len(l.m.Anims)).
		Int("meshes", len(l.m.Meshes)).
		Msg("model loaded")
	return l.m, nil
}

func (l *loader) fail(code Code, format string, args ...interface{}) error {
	return newError(l.name, code, format, args...)
}

func (l *loader) readHeader(data []byte) error {
	if len(data) < HeaderSize {
		return l.fail(CodeTruncatedHeader, "got %d bytes, need %d", len(data), HeaderSize)
	}
	bs := utils.NewBufStack("header", data)
	copy(l.hdr.Magic[:], bs.Read(16))
	if string(l.hdr.Magic[:]) != Magic {
		return l.fail(CodeBadMagic, "%q", l.hdr.Magic[:])
	}

	h := &l.hdr
	fields := []*uint32{
		&h.Version, &h.FileSize, &h.Flags,
		&h.NumText, &h.OfsText,
		&h.NumMeshes, &h.OfsMeshes,
		&h.NumVertexArrays, &h.NumVertexes, &h.OfsVertexArrays,
		&h.NumTriangles, &h.OfsTriangles, &h.OfsAdjacency,
		&h.NumJoints, &h.OfsJoints,
		&h.NumPoses, &h.OfsPoses,
		&h.NumAnims, &h.OfsAnims,
		&h.NumFrames, &h.NumFrameChannels, &h.OfsFrames, &h.OfsBounds,
		&h.NumComment, &h.OfsComment,
		&h.NumExtensions, &h.OfsExtensions,
	}
	for _, f := range fields {
		*f = bs.ReadLU32()
	}

	if h.Version != Version {
		return l.fail(CodeBadVersion, "version %d, expected %d", h.Version, Version)
	}
	if uint64(h.FileSize) > uint64(len(data)) {
		return l.fail(CodeFileSize, "header filesize %d, buffer %d", h.FileSize, len(data))
	}
	if int64(h.NumJoints) > int64(l.opts.maxJoints) {
		return l.fail(CodeTooManyJoints, "%d joints, limit %d", h.NumJoints, l.opts.maxJoints)
	}

	l.file = utils.NewBufStack("iqm", data[:h.FileSize]).SetName(l.name)
	l.m.Flags = h.Flags
	return nil
}

// section returns the validated byte range of a section or the given error code.
func (l *loader) section(kind string, code Code, count, offset, size uint32) (*utils.BufStack, error) {
	if OutOfRange(count, offset, size, l.hdr.FileSize) {
		return nil, l.fail(code, "count %d offset 0x%x size %d filesize 0x%x",
			count, offset, size, l.hdr.FileSize)
	}
	return l.file.SubBuf(kind, int(offset), int(count*size)), nil
}

func (l *loader) readText() error {
	if l.hdr.NumText == 0 {
		return nil
	}
	bs, err := l.section("text", CodeTextRange, l.hdr.NumText, l.hdr.OfsText, 1)
	if err != nil {
		return err
	}
	l.text = bs.Raw()
	return nil
}

// str resolves a text block offset to a name.
func (l *loader) str(ofs uint32) (string, error) {
	if len(l.text) == 0 && ofs == 0 {
		return "", nil
	}
	if uint64(ofs) >= uint64(len(l.text)) {
		return "", l.fail(CodeNameRange, "name offset %d, text size %d", ofs, len(l.text))
	}
	s, err := utils.BytesToString(l.text[ofs:], l.opts.enc)
	if err != nil {
		return "", l.fail(CodeNameRange, "name at %d: %v", ofs, err)
	}
	return s, nil
}

func (l *loader) readMeshes() error {
	bs, err := l.section("meshes", CodeMeshRange, l.hdr.NumMeshes, l.hdr.OfsMeshes, MeshSize)
	if err != nil {
		return err
	}
	l.m.Meshes = make([]Mesh, l.hdr.NumMeshes)
	for i := range l.m.Meshes {
		mesh := &l.m.Meshes[i]
		nameOfs, materialOfs := bs.ReadLU32(), bs.ReadLU32()
		mesh.FirstVertex = bs.ReadLU32()
		mesh.NumVertexes = bs.ReadLU32()
		mesh.FirstTriangle = bs.ReadLU32()
		mesh.NumTriangles = bs.ReadLU32()

		if mesh.Name, err = l.str(nameOfs); err != nil {
			return err
		}
		if mesh.Material, err = l.str(materialOfs); err != nil {
			return err
		}
		if uint64(mesh.FirstVertex)+uint64(mesh.NumVertexes) > uint64(l.hdr.NumVertexes) ||
			uint64(mesh.FirstTriangle)+uint64(mesh.NumTriangles) > uint64(l.hdr.NumTriangles) {
			return l.fail(CodeMeshIndex, "mesh %d %q: vertexes [%d+%d]/%d triangles [%d+%d]/%d",
				i, mesh.Name, mesh.FirstVertex, mesh.NumVertexes, l.hdr.NumVertexes,
				mesh.FirstTriangle, mesh.NumTriangles, l.hdr.NumTriangles)
		}
	}
	return nil
}

func (l *loader) readTriangles() error {
	bs, err := l.section("triangles", CodeTriangleRange, l.hdr.NumTriangles, l.hdr.OfsTriangles, TriangleSize)
	if err != nil {
		return err
	}
	l.m.Triangles = make([][3]uint32, l.hdr.NumTriangles)
	for i := range l.m.Triangles {
		for j := 0; j < 3; j++ {
			v := bs.ReadLU32()
			if v >= l.hdr.NumVertexes {
				return l.fail(CodeTriangleIndex, "triangle %d vertex %d of %d", i, v, l.hdr.NumVertexes)
			}
			l.m.Triangles[i][j] = v
		}
	}
	return nil
}

func (l *loader) readJoints() error {
	if l.hdr.NumJoints == 0 {
		return nil
	}
	bs, err := l.section("joints", CodeJointRange, l.hdr.NumJoints, l.hdr.OfsJoints, JointSize)
	if err != nil {
		return err
	}

	numJoints := int32(l.hdr.NumJoints)
	m := l.m
	m.Joints = make([]Joint, numJoints)
	for i := range m.Joints {
		j := &m.Joints[i]
		if j.Name, err = l.str(bs.ReadLU32()); err != nil {
			return err
		}
		j.Parent = bs.ReadLI32()
		if j.Parent < -1 || j.Parent >= numJoints {
			return l.fail(CodeJointParent, "joint %d %q parent %d of %d", i, j.Name, j.Parent, numJoints)
		}
		j.Base.Translate = readVec3(bs)
		j.Base.Rotate = utils.NormalizeQuat(readQuat(bs))
		j.Base.Scale = readVec3(bs)
	}

	l.computeBindMatrices()
	return nil
}

// computeBindMatrices chains every joint's local bind transform with its
// parent's already computed matrices. Joints must be stored parent first;
// a child stored before its parent picks up an unfilled parent matrix and
// the result is wrong. That is reported, not repaired.
func (l *loader) computeBindMatrices() {
	m := l.m
	m.Bind = make([]mgl32.Mat4, len(m.Joints))
	m.InvBind = make([]mgl32.Mat4, len(m.Joints))
	for i, j := range m.Joints {
		local := utils.JointMatrix(j.Base.Translate, j.Base.Rotate, j.Base.Scale)
		invLocal := local.Inv()
		if j.Parent >= 0 {
			if int(j.Parent) >= i {
				l.opts.log.Warn().Str("pkg", "iqm").Str("model", l.name).
					Int("joint", i).Int32("parent", j.Parent).
					Msg("joint stored before its parent, bind pose will be wrong")
			}
			m.Bind[i] = m.Bind[j.Parent].Mul4(local)
			m.InvBind[i] = invLocal.Mul4(m.InvBind[j.Parent])
		} else {
			m.Bind[i] = local
			m.InvBind[i] = invLocal
		}
	}
}

func (l *loader) readPoses() error {
	if l.hdr.NumPoses == 0 {
		return nil
	}
	if l.hdr.NumPoses != l.hdr.NumJoints {
		return l.fail(CodePoseCount, "%d poses for %d joints", l.hdr.NumPoses, l.hdr.NumJoints)
	}
	bs, err := l.section("poses", CodePoseRange, l.hdr.NumPoses, l.hdr.OfsPoses, PoseSize)
	if err != nil {
		return err
	}

	numJoints := int32(l.hdr.NumJoints)
	l.m.Poses = make([]Pose, l.hdr.NumPoses)
	for i := range l.m.Poses {
		p := &l.m.Poses[i]
		p.Parent = bs.ReadLI32()
		if p.Parent < -1 || p.Parent >= numJoints {
			return l.fail(CodeJointParent, "pose %d parent %d of %d", i, p.Parent, numJoints)
		}
		p.Mask = bs.ReadLU32()
		for c := range p.ChannelOffset {
			p.ChannelOffset[c] = bs.ReadLF()
		}
		for c := range p.ChannelScale {
			p.ChannelScale[c] = bs.ReadLF()
		}
	}
	return nil
}

func (l *loader) readAnims() error {
	if l.hdr.NumAnims == 0 {
		return nil
	}
	bs, err := l.section("anims", CodeAnimRange, l.hdr.NumAnims, l.hdr.OfsAnims, AnimSize)
	if err != nil {
		return err
	}
	l.m.Anims = make([]Anim, l.hdr.NumAnims)
	for i := range l.m.Anims {
		a := &l.m.Anims[i]
		if a.Name, err = l.str(bs.ReadLU32()); err != nil {
			return err
		}
		a.FirstFrame = bs.ReadLU32()
		a.NumFrames = bs.ReadLU32()
		a.Framerate = bs.ReadLF()
		a.Flags = bs.ReadLU32()
		if uint64(a.FirstFrame)+uint64(a.NumFrames) > uint64(l.hdr.NumFrames) {
			return l.fail(CodeAnimFrames, "anim %d %q frames [%d+%d] of %d",
				i, a.Name, a.FirstFrame, a.NumFrames, l.hdr.NumFrames)
		}
	}
	return nil
}

func (l *loader) readBounds() error {
	if l.hdr.NumFrames == 0 || l.hdr.OfsBounds == 0 {
		return nil
	}
	bs, err := l.section("bounds", CodeBoundsRange, l.hdr.NumFrames, l.hdr.OfsBounds, BoundsSize)
	if err != nil {
		return err
	}
	l.m.Bounds = make([]Bounds, l.hdr.NumFrames)
	for i := range l.m.Bounds {
		b := &l.m.Bounds[i]
		b.Mins = readVec3(bs)
		b.Maxs = readVec3(bs)
		b.XYRadius = bs.ReadLF()
		b.Radius = bs.ReadLF()
	}
	return nil
}

func (l *loader) readComment() error {
	if l.hdr.NumComment == 0 {
		return nil
	}
	bs, err := l.section("comment", CodeCommentRange, l.hdr.NumComment, l.hdr.OfsComment, 1)
	if err != nil {
		return err
	}
	l.m.Comment, err = utils.BytesToString(bs.Raw(), l.opts.enc)
	if err != nil {
		return l.fail(CodeCommentRange, "%v", err)
	}
	return nil
}

func readVec3(bs *utils.BufStack) mgl32.Vec3 {
	return mgl32.Vec3{bs.ReadLF(), bs.ReadLF(), bs.ReadLF()}
}

// quaternions are stored x, y, z, w
func readQuat(bs *utils.BufStack) mgl32.Quat {
	x, y, z, w := bs.ReadLF(), bs.ReadLF(), bs.ReadLF(), bs.ReadLF()
	return mgl32.Quat{W: w, V: mgl32.Vec3{x, y, z}}
}
