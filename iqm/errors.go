package iqm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mogaika/skelanim/errkind"
)

// Code identifies a single load failure. Every violated check has its own code.
type Code int

const (
	CodeNone Code = iota

	CodeTruncatedHeader
	CodeBadMagic
	CodeBadVersion
	CodeFileSize
	CodeVertexArrayFormat
	CodeMissingVertexArray
	CodePoseCount
	CodeNoPoses

	CodeTextRange
	CodeMeshRange
	CodeVertexArrayRange
	CodeVertexDataRange
	CodeTriangleRange
	CodeJointRange
	CodePoseRange
	CodeAnimRange
	CodeFrameRange
	CodeBoundsRange
	CodeCommentRange
	CodeNameRange
	CodeTriangleIndex
	CodeMeshIndex
	CodeBlendIndex
	CodeJointParent
	CodeFrameChannels
	CodeAnimFrames

	CodeTooManyJoints
)

var codeNames = map[Code]string{
	CodeTruncatedHeader:    "truncated header",
	CodeBadMagic:           "bad magic",
	CodeBadVersion:         "bad version",
	CodeFileSize:           "file size exceeds buffer",
	CodeVertexArrayFormat:  "bad vertex array format",
	CodeMissingVertexArray: "missing vertex array",
	CodePoseCount:          "pose count mismatch",
	CodeNoPoses:            "frames without poses",
	CodeTextRange:          "text out of range",
	CodeMeshRange:          "meshes out of range",
	CodeVertexArrayRange:   "vertex arrays out of range",
	CodeVertexDataRange:    "vertex data out of range",
	CodeTriangleRange:      "triangles out of range",
	CodeJointRange:         "joints out of range",
	CodePoseRange:          "poses out of range",
	CodeAnimRange:          "anims out of range",
	CodeFrameRange:         "frames out of range",
	CodeBoundsRange:        "bounds out of range",
	CodeCommentRange:       "comment out of range",
	CodeNameRange:          "name out of range",
	CodeTriangleIndex:      "triangle vertex index out of range",
	CodeMeshIndex:          "mesh range out of range",
	CodeBlendIndex:         "blend index out of range",
	CodeJointParent:        "joint parent out of range",
	CodeFrameChannels:      "frame channels overflow",
	CodeAnimFrames:         "anim frames out of range",
	CodeTooManyJoints:      "too many joints",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

func (c Code) Kind() errkind.Kind {
	switch {
	case c == CodeNone:
		return errkind.Unknown
	case c < CodeTextRange:
		return errkind.Format
	case c < CodeTooManyJoints:
		return errkind.Range
	default:
		return errkind.Limit
	}
}

type Error struct {
	Model  string
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("iqm %q: %v", e.Model, e.Code)
	}
	return fmt.Sprintf("iqm %q: %v: %s", e.Model, e.Code, e.Detail)
}

func (e *Error) Kind() errkind.Kind {
	return e.Code.Kind()
}

func newError(model string, code Code, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Model: model, Code: code, Detail: fmt.Sprintf(format, args...)})
}

// CodeOf extracts the load failure code from err, or CodeNone.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}
