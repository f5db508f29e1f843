// Package skeleton indexes the joints of a loaded model and builds the
// per-entity bone hierarchy.
package skeleton

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/iqm"
)

const NoJoint = -1

type Joint struct {
	Name   string
	Index  int
	Parent int
}

// Data is the read-only joint index of one model, shared by every entity
// using the model. Joints[i].Index == i and JointMap[Joints[i].Name] == i.
type Data struct {
	Model *iqm.Model

	Joints   []Joint
	JointMap map[string]int

	RootJoint  int
	HeadJoint  int
	TorsoJoint int

	// per frame (mins, maxs)
	Bounds [][2]mgl32.Vec3
}

// NewData indexes the joints of model. The joint table has a fixed capacity
// of maxJoints.
func NewData(model *iqm.Model, maxJoints int) (*Data, error) {
	if model == nil {
		return nil, errkind.New(errkind.Format, "skeleton: nil model")
	}
	n := model.NumJoints()
	if n > maxJoints {
		return nil, errkind.New(errkind.Limit, "skeleton %q: %d joints, capacity %d", model.Name, n, maxJoints)
	}

	d := &Data{
		Model:      model,
		Joints:     make([]Joint, 0, maxJoints),
		JointMap:   make(map[string]int, n),
		RootJoint:  NoJoint,
		HeadJoint:  NoJoint,
		TorsoJoint: NoJoint,
	}
	for i, j := range model.Joints {
		if _, dup := d.JointMap[j.Name]; dup {
			return nil, errkind.New(errkind.Format, "skeleton %q: duplicate joint name %q at %d", model.Name, j.Name, i)
		}
		d.Joints = append(d.Joints, Joint{Name: j.Name, Index: i, Parent: int(j.Parent)})
		d.JointMap[j.Name] = i
	}

	d.Bounds = make([][2]mgl32.Vec3, len(model.Bounds))
	for i, b := range model.Bounds {
		d.Bounds[i] = [2]mgl32.Vec3{b.Mins, b.Maxs}
	}
	return d, nil
}

func (d *Data) NumJoints() int {
	return len(d.Joints)
}

func (d *Data) NumFrames() int {
	return d.Model.NumFrames
}

func (d *Data) JointByName(name string) (int, bool) {
	i, ok := d.JointMap[name]
	return i, ok
}

// ResolveJoint accepts either a joint name or a decimal joint index. A
// matching name wins over the index.
func (d *Data) ResolveJoint(ref string) (int, error) {
	if i, ok := d.JointMap[ref]; ok {
		return i, nil
	}
	if i, err := strconv.Atoi(ref); err == nil {
		if err := d.CheckJoint(i); err != nil {
			return NoJoint, err
		}
		return i, nil
	}
	return NoJoint, errkind.New(errkind.Lookup, "unknown joint %q", ref)
}

// CheckJoint fails with a Range error when i is not a joint index.
func (d *Data) CheckJoint(i int) error {
	if i < 0 || i >= len(d.Joints) {
		return errkind.New(errkind.Range, "joint index %d out of [0,%d)", i, len(d.Joints))
	}
	return nil
}

// SetRootJoint validates and stores the root joint; NoJoint clears it.
func (d *Data) SetRootJoint(i int) error {
	if i != NoJoint && (i < 0 || i >= len(d.Joints)) {
		return errkind.New(errkind.Range, "root joint %d out of [0,%d)", i, len(d.Joints))
	}
	d.RootJoint = i
	return nil
}

// FirstRoot returns the first joint without a parent, or NoJoint.
func (d *Data) FirstRoot() int {
	for _, j := range d.Joints {
		if j.Parent < 0 {
			return j.Index
		}
	}
	return NoJoint
}

func (d *Data) Bind(joint int) mgl32.Mat4 {
	return d.Model.Bind[joint]
}

func (d *Data) InvBind(joint int) mgl32.Mat4 {
	return d.Model.InvBind[joint]
}

// FramePose returns the decoded pose of joint in frame. frame must be valid.
func (d *Data) FramePose(frame, joint int) iqm.Transform {
	return d.Model.FramePose(frame, joint)
}

func (d *Data) BasePose(joint int) iqm.Transform {
	return d.Model.Joints[joint].Base
}
