package iqm

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"

	"github.com/mogaika/skelanim/utils"
)

type vertexRule struct {
	size    uint32
	formats []uint32
}

var (
	floatFormats  = []uint32{FMT_FLOAT, FMT_HALF}
	weightFormats = []uint32{FMT_UBYTE, FMT_FLOAT, FMT_HALF}
)

// arrays a skinned model cannot do without
var vertexRules = map[uint32]vertexRule{
	VA_POSITION:     {3, floatFormats},
	VA_TEXCOORD:     {2, floatFormats},
	VA_NORMAL:       {3, floatFormats},
	VA_BLENDINDEXES: {4, []uint32{FMT_UBYTE}},
	VA_BLENDWEIGHTS: {4, weightFormats},
}

func vaName(t uint32) string {
	switch t {
	case VA_POSITION:
		return "position"
	case VA_TEXCOORD:
		return "texcoord"
	case VA_NORMAL:
		return "normal"
	case VA_TANGENT:
		return "tangent"
	case VA_BLENDINDEXES:
		return "blendindexes"
	case VA_BLENDWEIGHTS:
		return "blendweights"
	case VA_COLOR:
		return "color"
	}
	return "custom"
}

func (l *loader) readVertexArrays() error {
	h := &l.hdr
	bs, err := l.section("vertexarrays", CodeVertexArrayRange, h.NumVertexArrays, h.OfsVertexArrays, VertexArraySize)
	if err != nil {
		return err
	}
	if OutOfRange(h.NumVertexes, 0, 1, h.FileSize) {
		return l.fail(CodeVertexDataRange, "%d vertexes", h.NumVertexes)
	}

	l.m.VertexArrays = make([]VertexArray, h.NumVertexArrays)
	found := make(map[uint32]*utils.BufStack)
	for i := range l.m.VertexArrays {
		va := &l.m.VertexArrays[i]
		va.Type = bs.ReadLU32()
		va.Flags = bs.ReadLU32()
		va.Format = bs.ReadLU32()
		va.Size = bs.ReadLU32()
		va.Offset = bs.ReadLU32()

		if va.Format >= uint32(len(formatSizes)) {
			return l.fail(CodeVertexArrayFormat, "array %d (%s) format %d", i, vaName(va.Type), va.Format)
		}
		wide := uint64(formatSizes[va.Format]) * uint64(va.Size)
		stride := uint32(wide)
		if va.Size == 0 || wide > uint64(h.FileSize) || OutOfRange(h.NumVertexes, va.Offset, stride, h.FileSize) {
			return l.fail(CodeVertexDataRange, "array %d (%s) offset 0x%x stride %d vertexes %d",
				i, vaName(va.Type), va.Offset, stride, h.NumVertexes)
		}

		rule, known := vertexRules[va.Type]
		if !known {
			continue
		}
		if va.Size != rule.size || !containsFormat(rule.formats, va.Format) {
			return l.fail(CodeVertexArrayFormat, "array %d (%s) format %d size %d",
				i, vaName(va.Type), va.Format, va.Size)
		}
		if _, dup := found[va.Type]; !dup {
			found[va.Type] = l.file.SubBuf(vaName(va.Type), int(va.Offset), int(h.NumVertexes*stride))
		}
	}

	required := []uint32{VA_POSITION, VA_TEXCOORD, VA_NORMAL}
	if h.NumJoints > 0 {
		required = append(required, VA_BLENDINDEXES, VA_BLENDWEIGHTS)
	}
	for _, t := range required {
		if found[t] == nil {
			return l.fail(CodeMissingVertexArray, "%s", vaName(t))
		}
	}

	return l.decodeVertexes(found)
}

func containsFormat(formats []uint32, f uint32) bool {
	for _, v := range formats {
		if v == f {
			return true
		}
	}
	return false
}

func (l *loader) formatOf(t uint32) uint32 {
	for _, va := range l.m.VertexArrays {
		if va.Type == t {
			return va.Format
		}
	}
	return FMT_FLOAT
}

func (l *loader) decodeVertexes(arrays map[uint32]*utils.BufStack) error {
	n := int(l.hdr.NumVertexes)
	v := &l.m.Vertexes

	v.Positions = make([]mgl32.Vec3, n)
	v.Normals = make([]mgl32.Vec3, n)
	v.TexCoords = make([]mgl32.Vec2, n)
	posFmt, texFmt, nrmFmt := l.formatOf(VA_POSITION), l.formatOf(VA_TEXCOORD), l.formatOf(VA_NORMAL)
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			v.Positions[i][c] = readFloat(arrays[VA_POSITION], posFmt)
			v.Normals[i][c] = readFloat(arrays[VA_NORMAL], nrmFmt)
		}
		for c := 0; c < 2; c++ {
			v.TexCoords[i][c] = readFloat(arrays[VA_TEXCOORD], texFmt)
		}
	}

	indexes, weights := arrays[VA_BLENDINDEXES], arrays[VA_BLENDWEIGHTS]
	if indexes == nil || weights == nil {
		return nil
	}
	v.BlendIndices = make([][4]uint8, n)
	v.BlendWeights = make([]mgl32.Vec4, n)
	wFmt := l.formatOf(VA_BLENDWEIGHTS)
	for i := 0; i < n; i++ {
		for c := 0; c < 4; c++ {
			idx := indexes.ReadByte()
			if uint32(idx) >= l.hdr.NumJoints {
				return l.fail(CodeBlendIndex, "vertex %d blend index %d of %d joints", i, idx, l.hdr.NumJoints)
			}
			v.BlendIndices[i][c] = idx
			if wFmt == FMT_UBYTE {
				v.BlendWeights[i][c] = float32(weights.ReadByte()) / 255
			} else {
				v.BlendWeights[i][c] = readFloat(weights, wFmt)
			}
		}
	}
	return nil
}

func readFloat(bs *utils.BufStack, format uint32) float32 {
	if format == FMT_HALF {
		return float16.Frombits(bs.ReadLU16()).Float32()
	}
	return bs.ReadLF()
}
