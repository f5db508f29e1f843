package iqm

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

type writer struct {
	buf  []byte
	text []byte
	strs map[string]uint32
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) i32(v int32) {
	w.u32(uint32(v))
}

func (w *writer) f32(v ...float32) {
	for _, f := range v {
		w.u32(math.Float32bits(f))
	}
}

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) align() {
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) ofs() uint32 {
	return uint32(len(w.buf))
}

// str interns s in the text block. Offset 0 is always the empty string.
func (w *writer) str(s string) uint32 {
	if s == "" {
		return 0
	}
	if o, ok := w.strs[s]; ok {
		return o
	}
	o := uint32(len(w.text))
	w.text = append(append(w.text, s...), 0)
	w.strs[s] = o
	return o
}

// quantized channel layout of one pose
type channelLayout struct {
	mask   uint32
	offset [PoseChannels]float32
	scale  [PoseChannels]float32
}

func channelValues(t Transform) [PoseChannels]float32 {
	return [PoseChannels]float32{
		t.Translate[0], t.Translate[1], t.Translate[2],
		t.Rotate.V[0], t.Rotate.V[1], t.Rotate.V[2], t.Rotate.W,
		t.Scale[0], t.Scale[1], t.Scale[2],
	}
}

func quantize(m *Model, numPoses int) []channelLayout {
	layouts := make([]channelLayout, numPoses)
	for p := range layouts {
		lo := channelValues(m.FramePoses[p])
		hi := lo
		for f := 1; f < m.NumFrames; f++ {
			v := channelValues(m.FramePoses[f*numPoses+p])
			for c := range v {
				lo[c] = float32(math.Min(float64(lo[c]), float64(v[c])))
				hi[c] = float32(math.Max(float64(hi[c]), float64(v[c])))
			}
		}
		cl := &layouts[p]
		cl.offset = lo
		for c := range lo {
			if hi[c] > lo[c] {
				cl.mask |= 1 << uint(c)
				cl.scale[c] = (hi[c] - lo[c]) / 65535
			}
		}
	}
	return layouts
}

// Encode writes m as an IQM version 2 container. Vertex positions, texture
// coordinates and normals are stored as floats, blend indices and weights as
// bytes. Frame channels are quantized to 16 bits per channel.
func Encode(m *Model) ([]byte, error) {
	nv := len(m.Vertexes.Positions)
	switch {
	case nv == 0:
		return nil, errors.Errorf("iqm encode %q: no vertexes", m.Name)
	case len(m.Vertexes.TexCoords) != nv || len(m.Vertexes.Normals) != nv:
		return nil, errors.Errorf("iqm encode %q: vertex arrays differ in length", m.Name)
	case len(m.Triangles) == 0:
		return nil, errors.Errorf("iqm encode %q: no triangles", m.Name)
	case len(m.Meshes) == 0:
		return nil, errors.Errorf("iqm encode %q: no meshes", m.Name)
	}
	numJoints := len(m.Joints)
	skinned := numJoints > 0
	if skinned && (len(m.Vertexes.BlendIndices) != nv || len(m.Vertexes.BlendWeights) != nv) {
		return nil, errors.Errorf("iqm encode %q: joints without per-vertex blend data", m.Name)
	}
	numPoses := 0
	if m.NumFrames > 0 {
		numPoses = numJoints
		if numPoses == 0 {
			return nil, errors.Errorf("iqm encode %q: frames without joints", m.Name)
		}
		if len(m.FramePoses) != m.NumFrames*numPoses {
			return nil, errors.Errorf("iqm encode %q: %d frame poses for %d frames of %d joints",
				m.Name, len(m.FramePoses), m.NumFrames, numPoses)
		}
	}

	w := &writer{text: []byte{0}, strs: map[string]uint32{}}
	var h Header
	copy(h.Magic[:], Magic)
	h.Version = Version
	h.Flags = m.Flags

	// names first so the text block can be emitted up front
	meshNames := make([][2]uint32, len(m.Meshes))
	for i, mesh := range m.Meshes {
		meshNames[i] = [2]uint32{w.str(mesh.Name), w.str(mesh.Material)}
	}
	jointNames := make([]uint32, numJoints)
	for i, j := range m.Joints {
		jointNames[i] = w.str(j.Name)
	}
	animNames := make([]uint32, len(m.Anims))
	for i, a := range m.Anims {
		animNames[i] = w.str(a.Name)
	}

	w.buf = make([]byte, HeaderSize, 1024)

	h.NumText, h.OfsText = uint32(len(w.text)), w.ofs()
	w.buf = append(w.buf, w.text...)
	w.align()

	h.NumMeshes, h.OfsMeshes = uint32(len(m.Meshes)), w.ofs()
	for i, mesh := range m.Meshes {
		w.u32(meshNames[i][0])
		w.u32(meshNames[i][1])
		w.u32(mesh.FirstVertex)
		w.u32(mesh.NumVertexes)
		w.u32(mesh.FirstTriangle)
		w.u32(mesh.NumTriangles)
	}

	arrays := []VertexArray{
		{Type: VA_POSITION, Format: FMT_FLOAT, Size: 3},
		{Type: VA_TEXCOORD, Format: FMT_FLOAT, Size: 2},
		{Type: VA_NORMAL, Format: FMT_FLOAT, Size: 3},
	}
	if skinned {
		arrays = append(arrays,
			VertexArray{Type: VA_BLENDINDEXES, Format: FMT_UBYTE, Size: 4},
			VertexArray{Type: VA_BLENDWEIGHTS, Format: FMT_UBYTE, Size: 4})
	}
	h.NumVertexArrays, h.NumVertexes = uint32(len(arrays)), uint32(nv)
	h.OfsVertexArrays = w.ofs()
	w.buf = append(w.buf, make([]byte, len(arrays)*VertexArraySize)...)
	for i := range arrays {
		va := &arrays[i]
		va.Offset = w.ofs()
		for v := 0; v < nv; v++ {
			switch va.Type {
			case VA_POSITION:
				w.f32(m.Vertexes.Positions[v][:]...)
			case VA_TEXCOORD:
				w.f32(m.Vertexes.TexCoords[v][:]...)
			case VA_NORMAL:
				w.f32(m.Vertexes.Normals[v][:]...)
			case VA_BLENDINDEXES:
				w.buf = append(w.buf, m.Vertexes.BlendIndices[v][:]...)
			case VA_BLENDWEIGHTS:
				for _, wt := range m.Vertexes.BlendWeights[v] {
					w.buf = append(w.buf, byte(math.Round(float64(clamp01(wt))*255)))
				}
			}
		}
		w.align()
	}
	for i, va := range arrays {
		o := int(h.OfsVertexArrays) + i*VertexArraySize
		for j, v := range []uint32{va.Type, va.Flags, va.Format, va.Size, va.Offset} {
			binary.LittleEndian.PutUint32(w.buf[o+j*4:], v)
		}
	}

	h.NumTriangles, h.OfsTriangles = uint32(len(m.Triangles)), w.ofs()
	for _, t := range m.Triangles {
		w.u32(t[0])
		w.u32(t[1])
		w.u32(t[2])
	}

	if skinned {
		h.NumJoints, h.OfsJoints = uint32(numJoints), w.ofs()
		for i, j := range m.Joints {
			w.u32(jointNames[i])
			w.i32(j.Parent)
			w.f32(j.Base.Translate[:]...)
			w.f32(j.Base.Rotate.V[0], j.Base.Rotate.V[1], j.Base.Rotate.V[2], j.Base.Rotate.W)
			w.f32(j.Base.Scale[:]...)
		}
	}

	var layouts []channelLayout
	if numPoses > 0 {
		layouts = quantize(m, numPoses)
		h.NumPoses, h.OfsPoses = uint32(numPoses), w.ofs()
		for p, cl := range layouts {
			w.i32(m.Joints[p].Parent)
			w.u32(cl.mask)
			w.f32(cl.offset[:]...)
			w.f32(cl.scale[:]...)
		}
	} else if len(m.Poses) > 0 {
		// pose table without frames, written as given
		h.NumPoses, h.OfsPoses = uint32(len(m.Poses)), w.ofs()
		for _, p := range m.Poses {
			w.i32(p.Parent)
			w.u32(p.Mask)
			w.f32(p.ChannelOffset[:]...)
			w.f32(p.ChannelScale[:]...)
		}
	}

	if len(m.Anims) > 0 {
		h.NumAnims, h.OfsAnims = uint32(len(m.Anims)), w.ofs()
		for i, a := range m.Anims {
			w.u32(animNames[i])
			w.u32(a.FirstFrame)
			w.u32(a.NumFrames)
			w.f32(a.Framerate)
			w.u32(a.Flags)
		}
	}

	if numPoses > 0 {
		for _, cl := range layouts {
			h.NumFrameChannels += uint32(bits.OnesCount32(cl.mask))
		}
		h.NumFrames, h.OfsFrames = uint32(m.NumFrames), w.ofs()
		for f := 0; f < m.NumFrames; f++ {
			for p, cl := range layouts {
				v := channelValues(m.FramePoses[f*numPoses+p])
				for c := 0; c < PoseChannels; c++ {
					if cl.mask&(1<<uint(c)) == 0 {
						continue
					}
					q := math.Round(float64((v[c] - cl.offset[c]) / cl.scale[c]))
					w.u16(uint16(math.Max(0, math.Min(65535, q))))
				}
			}
		}
		w.align()

		if len(m.Bounds) == m.NumFrames {
			h.OfsBounds = w.ofs()
			for _, b := range m.Bounds {
				w.f32(b.Mins[:]...)
				w.f32(b.Maxs[:]...)
				w.f32(b.XYRadius, b.Radius)
			}
		}
	}

	if m.Comment != "" {
		h.NumComment, h.OfsComment = uint32(len(m.Comment)+1), w.ofs()
		w.buf = append(append(w.buf, m.Comment...), 0)
	}

	h.FileSize = w.ofs()
	putHeader(w.buf, &h)
	return w.buf, nil
}

func putHeader(b []byte, h *Header) {
	copy(b, h.Magic[:])
	fields := []uint32{
		h.Version, h.FileSize, h.Flags,
		h.NumText, h.OfsText,
		h.NumMeshes, h.OfsMeshes,
		h.NumVertexArrays, h.NumVertexes, h.OfsVertexArrays,
		h.NumTriangles, h.OfsTriangles, h.OfsAdjacency,
		h.NumJoints, h.OfsJoints,
		h.NumPoses, h.OfsPoses,
		h.NumAnims, h.OfsAnims,
		h.NumFrames, h.NumFrameChannels, h.OfsFrames, h.OfsBounds,
		h.NumComment, h.OfsComment,
		h.NumExtensions, h.OfsExtensions,
	}
	for i, v := range fields {
		binary.LittleEndian.PutUint32(b[16+i*4:], v)
	}
}

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
