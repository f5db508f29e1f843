package gltfutils

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// AddRootsToScene puts every node that is nobody's child into the default
// scene.
func AddRootsToScene(doc *gltf.Document) {
	isChild := make([]bool, len(doc.Nodes))
	for _, node := range doc.Nodes {
		for _, child := range node.Children {
			isChild[child] = true
		}
	}
	doc.Scenes[0].Nodes = doc.Scenes[0].Nodes[:0]
	for iNode := range doc.Nodes {
		if !isChild[iNode] {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
		}
	}
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	AddRootsToScene(doc)

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// Mat4 converts to the column major layout of glTF accessors.
func Mat4(m mgl32.Mat4) [4][4]float32 {
	var r [4][4]float32
	for col := 0; col < 4; col++ {
		copy(r[col][:], m[col*4:col*4+4])
	}
	return r
}

func Rotation(q mgl32.Quat) [4]float32 {
	return q.V.Vec4(q.W)
}
