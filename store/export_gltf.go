package store

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/skelanim/pose"
	"github.com/mogaika/skelanim/utils/gltfutils"
)

type GLTFModelExported struct {
	JointNodes []uint32
	MeshNodes  []uint32
	Skin       *uint32
	Animations []uint32
}

// ExportGLTF appends the skeleton, the meshes skinned to it and one
// animation per script animation to doc.
func (m *Model) ExportGLTF(doc *gltf.Document) (*GLTFModelExported, error) {
	gme := m.exportSkeleton(doc, nil)
	m.exportMeshes(doc, gme)
	m.exportAnimations(doc, gme)
	return gme, nil
}

func (m *Model) ExportGLTFDefault() (*gltf.Document, error) {
	doc := gltfutils.NewDocument()
	if _, err := m.ExportGLTF(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ExportGLTF appends the entity's model posed as of the last Update,
// without animations.
func (e *Entity) ExportGLTF(doc *gltf.Document) (*GLTFModelExported, error) {
	var poses []pose.BonePose
	if e.updated {
		poses = e.poses
	}
	gme := e.Model.exportSkeleton(doc, poses)
	e.Model.exportMeshes(doc, gme)
	return gme, nil
}

func (m *Model) exportSkeleton(doc *gltf.Document, poses []pose.BonePose) *GLTFModelExported {
	gme := &GLTFModelExported{
		JointNodes: make([]uint32, len(m.Data.Joints)),
	}
	if len(m.Data.Joints) == 0 {
		return gme
	}

	for jointId, joint := range m.Data.Joints {
		t := m.Data.BasePose(jointId)
		if poses != nil {
			t = poses[jointId]
		}
		gme.JointNodes[jointId] = uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        joint.Name,
			Translation: t.Translate,
			Rotation:    gltfutils.Rotation(t.Rotate),
			Scale:       t.Scale,
		})
	}
	for jointId, joint := range m.Data.Joints {
		if joint.Parent >= 0 {
			parent := doc.Nodes[gme.JointNodes[joint.Parent]]
			parent.Children = append(parent.Children, gme.JointNodes[jointId])
		}
	}

	invBinds := make([][4][4]float32, len(m.Data.Joints))
	for jointId := range invBinds {
		invBinds[jointId] = gltfutils.Mat4(m.Data.InvBind(jointId))
	}
	skin := &gltf.Skin{
		Name:                m.Name,
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, invBinds)),
		Joints:              gme.JointNodes,
	}
	if root := m.Data.RootJoint; root >= 0 {
		skin.Skeleton = gltf.Index(gme.JointNodes[root])
	}
	gme.Skin = gltf.Index(uint32(len(doc.Skins)))
	doc.Skins = append(doc.Skins, skin)
	return gme
}

func (m *Model) exportMeshes(doc *gltf.Document, gme *GLTFModelExported) {
	v := &m.Raw.Vertexes
	attributes := make(map[string]uint32)
	{
		positions := make([][3]float32, v.Len())
		for i, p := range v.Positions {
			positions[i] = p
		}
		attributes["POSITION"] = modeler.WritePosition(doc, positions)
	}
	if v.Normals != nil {
		normals := make([][3]float32, v.Len())
		for i, n := range v.Normals {
			normals[i] = n
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}
	if v.TexCoords != nil {
		uvs := make([][2]float32, v.Len())
		for i, uv := range v.TexCoords {
			uvs[i] = uv
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
	}
	if gme.Skin != nil && v.BlendIndices != nil {
		joints := make([][4]uint16, v.Len())
		weights := make([][4]float32, v.Len())
		for i := range joints {
			for k := 0; k < 4; k++ {
				joints[i][k] = uint16(v.BlendIndices[i][k])
			}
			weights[i] = v.BlendWeights[i]
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	}

	for _, mesh := range m.Raw.Meshes {
		indices := make([]uint32, 0, mesh.NumTriangles*3)
		for _, tri := range m.Raw.Triangles[mesh.FirstTriangle : mesh.FirstTriangle+mesh.NumTriangles] {
			indices = append(indices, tri[0], tri[1], tri[2])
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name: mesh.Name,
			Primitives: []*gltf.Primitive{{
				Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
				Attributes: attributes,
			}},
		})

		gme.MeshNodes = append(gme.MeshNodes, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: mesh.Name,
			Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
			Skin: gme.Skin,
		})
	}
}

// exportAnimations samples the dominant action of every animation once per
// frame.
func (m *Model) exportAnimations(doc *gltf.Document, gme *GLTFModelExported) {
	if !m.Raw.HasFramePoses() {
		return
	}
	for animIdx, an := range m.Table.Animations {
		a := m.Table.Dominant(animIdx)
		if a == nil {
			continue
		}
		frames := a.EndFrame - a.StartFrame + 1

		times := make([]float32, frames)
		for i := range times {
			times[i] = float32(i) * a.FrameTime / 1000
		}
		input := modeler.WriteAccessor(doc, gltf.TargetNone, times)
		doc.Accessors[input].Min = []float32{0}
		doc.Accessors[input].Max = []float32{times[frames-1]}

		ga := &gltf.Animation{Name: an.Name}
		addChannel := func(node uint32, path gltf.TRSProperty, output uint32) {
			ga.Channels = append(ga.Channels, &gltf.Channel{
				Sampler: gltf.Index(uint32(len(ga.Samplers))),
				Target:  gltf.ChannelTarget{Node: gltf.Index(node), Path: path},
			})
			ga.Samplers = append(ga.Samplers, &gltf.AnimationSampler{
				Input:         gltf.Index(input),
				Output:        gltf.Index(output),
				Interpolation: gltf.InterpolationLinear,
			})
		}

		for jointId, node := range gme.JointNodes {
			translations := make([][3]float32, frames)
			rotations := make([][4]float32, frames)
			scales := make([][3]float32, frames)
			for i := 0; i < frames; i++ {
				t := m.Data.FramePose(a.StartFrame+i, jointId)
				translations[i] = t.Translate
				rotations[i] = gltfutils.Rotation(t.Rotate)
				scales[i] = t.Scale
			}
			addChannel(node, gltf.TRSTranslation, modeler.WriteAccessor(doc, gltf.TargetNone, translations))
			addChannel(node, gltf.TRSRotation, modeler.WriteAccessor(doc, gltf.TargetNone, rotations))
			addChannel(node, gltf.TRSScale, modeler.WriteAccessor(doc, gltf.TargetNone, scales))
		}

		gme.Animations = append(gme.Animations, uint32(len(doc.Animations)))
		doc.Animations = append(doc.Animations, ga)
	}
}
