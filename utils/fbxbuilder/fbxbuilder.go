// Package fbxbuilder writes skeletons as binary FBX 7.4 documents.
package fbxbuilder

import (
	"archive/zip"
	"io"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"
)

const (
	fbxVersion   = 7400
	creator      = "skelanim fbx exporter"
	creationTime = "1970-01-01 10:00:00:000"
	firstId      = 1000000
)

var fileId = []byte{
	0x28, 0xb3, 0x2a, 0xeb, 0xb6, 0x24, 0xcc, 0xc2,
	0xbf, 0xc8, 0xb0, 0x2a, 0xa9, 0x2b, 0xfc, 0xf1}

// property templates of the object types a skeleton is made of
var templates = map[string]func() *fbx.Node{
	"Model": func() *fbx.Node {
		return bfbx73.PropertyTemplate("FbxNode").AddNodes(
			bfbx73.Properties70().AddNodes(
				bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
				bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
				bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
				bfbx73.P("Show", "bool", "", "", int32(1)),
			),
		)
	},
	"NodeAttribute": func() *fbx.Node {
		return bfbx73.PropertyTemplate("FbxSkeleton").AddNodes(
			bfbx73.Properties70().AddNodes(
				bfbx73.P("Size", "double", "Number", "", float64(100)),
			),
		)
	},
}

// Joint is one bone of a skeleton in its local space.
type Joint struct {
	Name string
	// index into the same joint list, negative for roots
	Parent      int
	Translation mgl32.Vec3
	// euler angles in degrees
	Rotation mgl32.Vec3
	Scaling  mgl32.Vec3
}

// Skeleton holds the ids of an added skeleton: the null model every root
// joint hangs from and one LimbNode model per joint.
type Skeleton struct {
	Id     int64
	Joints []int64
}

type FBXBuilder struct {
	f      *fbx.FBX
	lastId int64
	files  map[string][]byte

	definitions *fbx.Node
	objects     *fbx.Node
	connections *fbx.Node
}

func NewFBXBuilder(name string) *FBXBuilder {
	f := &FBXBuilder{
		f:           fbx.NewFBX(fbxVersion),
		lastId:      firstId,
		files:       make(map[string][]byte),
		definitions: bfbx73.Definitions(),
		objects:     bfbx73.Objects(),
		connections: bfbx73.Connections(),
	}
	f.Root().AddNodes(
		bfbx73.FBXHeaderExtension().AddNodes(
			bfbx73.FBXHeaderVersion(1003),
			bfbx73.FBXVersion(fbxVersion),
			bfbx73.EncryptionType(0),
			bfbx73.Creator(creator),
		),
		bfbx73.FileId(fileId),
		bfbx73.CreationTime(creationTime),
		bfbx73.Creator(creator),
		bfbx73.GlobalSettings().AddNodes(
			bfbx73.Version(1000),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("UpAxis", "int", "Integer", "", int32(1)),
				bfbx73.P("UpAxisSign", "int", "Integer", "", int32(1)),
				bfbx73.P("FrontAxis", "int", "Integer", "", int32(2)),
				bfbx73.P("FrontAxisSign", "int", "Integer", "", int32(1)),
				bfbx73.P("CoordAxis", "int", "Integer", "", int32(0)),
				bfbx73.P("CoordAxisSign", "int", "Integer", "", int32(1)),
				bfbx73.P("UnitScaleFactor", "double", "Number", "", float64(1)),
			),
		),
		bfbx73.Documents().AddNodes(
			bfbx73.Count(1),
			bfbx73.Document(f.generateId(), name, "Scene").AddNodes(
				bfbx73.RootNode(0),
			),
		),
		bfbx73.References(),
		f.definitions,
		f.objects,
		f.connections,
		bfbx73.Takes().AddNodes(
			bfbx73.Current(""),
		),
	)
	return f
}

func (f *FBXBuilder) Root() *fbx.Node {
	return &f.f.Root
}

func (f *FBXBuilder) Objects() *fbx.Node     { return f.objects }
func (f *FBXBuilder) Connections() *fbx.Node { return f.connections }

func (f *FBXBuilder) generateId() int64 {
	f.lastId++
	return f.lastId
}

func (f *FBXBuilder) connect(child, parent int64) {
	f.connections.AddNodes(bfbx73.C("OO", child, parent))
}

// addModel adds a model of class with its node attribute and returns the
// model id.
func (f *FBXBuilder) addModel(name, class, typeFlags string, props *fbx.Node) int64 {
	id := f.generateId()
	attrId := f.generateId()
	f.objects.AddNodes(
		bfbx73.Model(id, name+"\x00\x01Model", class).AddNodes(
			bfbx73.Version(232),
			props,
			bfbx73.Shading(true),
			bfbx73.Culling("CullingOff"),
		),
		bfbx73.NodeAttribute(attrId, name+"\x00\x01NodeAttribute", class).AddNodes(
			bfbx73.TypeFlags(typeFlags),
		),
	)
	f.connect(attrId, id)
	return id
}

func lclProperties(j Joint) *fbx.Node {
	t, r, s := j.Translation, j.Rotation, j.Scaling
	return bfbx73.Properties70().AddNodes(
		bfbx73.P("Lcl Translation", "Lcl Translation", "", "A+", float64(t[0]), float64(t[1]), float64(t[2])),
		bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A+", float64(r[0]), float64(r[1]), float64(r[2])),
		bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A+", float64(s[0]), float64(s[1]), float64(s[2])),
	)
}

// AddSkeleton adds a null model called name under parent (0 is the scene
// root) and a LimbNode per joint, each connected to its parent joint or to
// the null model for roots.
func (f *FBXBuilder) AddSkeleton(name string, parent int64, joints []Joint) (*Skeleton, error) {
	for i, j := range joints {
		if j.Parent >= len(joints) || j.Parent == i {
			return nil, errors.Errorf("joint %d %q has invalid parent %d", i, j.Name, j.Parent)
		}
	}

	sk := &Skeleton{
		Id:     f.addModel(name, "Null", "Null", bfbx73.Properties70()),
		Joints: make([]int64, len(joints)),
	}
	for i, j := range joints {
		sk.Joints[i] = f.addModel(j.Name, "LimbNode", "Skeleton", lclProperties(j))
	}
	for i, j := range joints {
		p := sk.Id
		if j.Parent >= 0 {
			p = sk.Joints[j.Parent]
		}
		f.connect(sk.Joints[i], p)
	}
	f.connect(sk.Id, parent)
	return sk, nil
}

func count(n int32) *fbx.Node {
	c := bfbx73.Count(0)
	c.Properties[0] = n
	return c
}

// updateDefinitions counts the objects per type.
func (f *FBXBuilder) updateDefinitions() {
	counts := make(map[string]int32)
	for _, object := range f.objects.Nodes {
		counts[object.Name]++
	}
	names := make([]string, 0, len(counts))
	total := int32(1) // GlobalSettings
	for name, n := range counts {
		names = append(names, name)
		total += n
	}
	sort.Strings(names)

	f.definitions.Nodes = nil
	f.definitions.AddNodes(
		bfbx73.Version(100),
		count(total),
		bfbx73.ObjectType("GlobalSettings").AddNodes(count(1)),
	)
	for _, name := range names {
		ot := bfbx73.ObjectType(name).AddNodes(count(counts[name]))
		if template, ok := templates[name]; ok {
			ot.AddNodes(template())
		}
		f.definitions.AddNodes(ot)
	}
}

// Write encodes the document. fbx.Write needs a seekable file, so the
// document goes through a temporary one.
func (f *FBXBuilder) Write(w io.Writer) error {
	f.updateDefinitions()

	tempFile, err := os.CreateTemp("", "fbxexport.*.fbx")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if err := fbx.Write(tempFile, f.f); err != nil {
		return errors.Wrapf(err, "Unable to encode fbx")
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "Unable to seek")
	}
	_, err = io.Copy(w, tempFile)
	return err
}

// AddExportFile queues a file to be zipped next to the fbx by WriteZip.
func (f *FBXBuilder) AddExportFile(name string, data []byte) {
	f.files[name] = data
}

func (f *FBXBuilder) WriteZip(w io.Writer, name string) error {
	zw := zip.NewWriter(w)

	fw, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "Can't create zip fbx for %q", name)
	}
	if err := f.Write(fw); err != nil {
		return errors.Wrapf(err, "Fbx exporting failed")
	}

	names := make([]string, 0, len(f.files))
	for n := range f.files {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fw, err := zw.Create(n)
		if err != nil {
			return errors.Wrapf(err, "Can't create zip for %q", n)
		}
		if _, err := fw.Write(f.files[n]); err != nil {
			return errors.Wrapf(err, "Can't write zip for %q", n)
		}
	}
	return zw.Close()
}
