package skeleton

import (
	"bytes"
	"fmt"

	"github.com/mogaika/skelanim/errkind"
)

type BoneNode struct {
	Joint    int
	Parent   int // NoJoint for the head
	Children []int
}

// Tree is the bone hierarchy of one entity. Nodes are addressed by joint
// index; joints not reachable from Head have Joint == NoJoint.
type Tree struct {
	Nodes   []BoneNode
	Head    int
	NameMap map[string]int
}

// BuildTree expands the hierarchy from the declared root joint by scanning
// the whole joint list for children of every node. A joint reached twice is
// a parent cycle and is rejected.
func BuildTree(data *Data) (*Tree, error) {
	t := &Tree{}
	if err := t.Rebuild(data); err != nil {
		return nil, err
	}
	return t, nil
}

// Rebuild discards the previous hierarchy and builds it again from data.
func (t *Tree) Rebuild(data *Data) error {
	t.Nodes = nil
	t.Head = NoJoint
	t.NameMap = nil

	if data == nil {
		return errkind.New(errkind.Format, "skeleton: no skeletal data")
	}
	n := data.NumJoints()
	if n == 0 {
		return errkind.New(errkind.Format, "skeleton %q: no joints", data.Model.Name)
	}
	if data.RootJoint < 0 || data.RootJoint >= n {
		return errkind.New(errkind.Lookup, "skeleton %q: root joint not set", data.Model.Name)
	}

	nodes := make([]BoneNode, n)
	for i := range nodes {
		nodes[i] = BoneNode{Joint: NoJoint, Parent: NoJoint}
	}
	names := make(map[string]int, n)
	visited := make([]bool, n)

	var expand func(joint, parent int) error
	expand = func(joint, parent int) error {
		if visited[joint] {
			return errkind.New(errkind.Range, "skeleton %q: joint %d %q reached twice, parent cycle",
				data.Model.Name, joint, data.Joints[joint].Name)
		}
		visited[joint] = true
		nodes[joint].Joint = joint
		nodes[joint].Parent = parent
		names[data.Joints[joint].Name] = joint

		for _, j := range data.Joints {
			if j.Parent == joint {
				nodes[joint].Children = append(nodes[joint].Children, j.Index)
				if err := expand(j.Index, joint); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := expand(data.RootJoint, NoJoint); err != nil {
		return err
	}

	t.Nodes = nodes
	t.Head = data.RootJoint
	t.NameMap = names
	return nil
}

func (t *Tree) Node(joint int) *BoneNode {
	if joint < 0 || joint >= len(t.Nodes) || t.Nodes[joint].Joint == NoJoint {
		return nil
	}
	return &t.Nodes[joint]
}

// Walk visits joint and all its descendants depth first.
func (t *Tree) Walk(joint int, fn func(joint int)) {
	n := t.Node(joint)
	if n == nil {
		return
	}
	fn(joint)
	for _, c := range n.Children {
		t.Walk(c, fn)
	}
}

func (t *Tree) String() string {
	var buffer bytes.Buffer
	inv := make(map[int]string, len(t.NameMap))
	for name, i := range t.NameMap {
		inv[i] = name
	}

	var dump func(joint int, spaces string)
	dump = func(joint int, spaces string) {
		fmt.Fprintf(&buffer, "%s- %d %q\n", spaces, joint, inv[joint])
		for _, c := range t.Nodes[joint].Children {
			dump(c, spaces+"  ")
		}
	}
	if t.Node(t.Head) != nil {
		dump(t.Head, "")
	}
	return buffer.String()
}
