package store

import (
	"github.com/mogaika/skelanim/utils"
	"github.com/mogaika/skelanim/utils/fbxbuilder"
)

func (m *Model) fbxJoints() []fbxbuilder.Joint {
	joints := make([]fbxbuilder.Joint, len(m.Data.Joints))
	for i, j := range m.Data.Joints {
		t := m.Data.BasePose(i)
		joints[i] = fbxbuilder.Joint{
			Name:        j.Name,
			Parent:      j.Parent,
			Translation: t.Translate,
			Rotation:    utils.RadiansToDegreeV3(utils.QuatToEuler(t.Rotate)),
			Scaling:     t.Scale,
		}
	}
	return joints
}

// ExportFbx adds the skeleton in its base pose under parent.
func (m *Model) ExportFbx(f *fbxbuilder.FBXBuilder, parent int64) (*fbxbuilder.Skeleton, error) {
	return f.AddSkeleton(m.Name, parent, m.fbxJoints())
}

func (m *Model) ExportFbxDefault() (*fbxbuilder.FBXBuilder, error) {
	f := fbxbuilder.NewFBXBuilder(m.Name + ".fbx")
	if _, err := m.ExportFbx(f, 0); err != nil {
		return nil, err
	}
	return f, nil
}
