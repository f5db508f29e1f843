package animscript

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

var _ yaml.Marshaler = (*Script)(nil)

type yamlBlendAction struct {
	Action   string
	Fraction float32
	Bone     *yaml.Node `yaml:",omitempty"`
}

type yamlAnimation struct {
	Name         string
	BlendActions []yamlBlendAction `yaml:"blendActions"`
}

type yamlAction struct {
	Name              string
	Frames            yaml.Node
	Loop              yaml.Node
	FrameTime         yaml.Node `yaml:"frameTime"`
	AnimationDistance float32   `yaml:"animationDistance,omitempty"`
}

type yamlScript struct {
	RootBone   *yaml.Node      `yaml:"rootBone,omitempty"`
	HeadBone   *yaml.Node      `yaml:"headBone,omitempty"`
	TorsoBone  *yaml.Node      `yaml:"torsoBone,omitempty"`
	Actions    []yamlAction    `yaml:",omitempty"`
	Animations []yamlAnimation `yaml:",omitempty"`
}

func (s *Script) jointNode(joint int) *yaml.Node {
	if joint < 0 {
		return nil
	}
	return &yaml.Node{
		Kind:        yaml.ScalarNode,
		Value:       s.data.Joints[joint].Name,
		LineComment: fmt.Sprintf("joint %d", joint),
	}
}

func scalar(value, comment string) yaml.Node {
	return yaml.Node{Kind: yaml.ScalarNode, Value: value, LineComment: comment}
}

// MarshalYAML dumps the parsed tables with the resolved indexes as comments.
func (s *Script) MarshalYAML() (interface{}, error) {
	out := &yamlScript{
		RootBone:  s.jointNode(s.RootJoint),
		HeadBone:  s.jointNode(s.HeadJoint),
		TorsoBone: s.jointNode(s.TorsoJoint),
	}

	for _, a := range s.Table.Actions {
		loop := scalar("0", "plays once")
		switch {
		case a.ForceLoop:
			loop = scalar("-1", "whole range")
		case a.LoopingFrames > 0:
			loop = scalar(fmt.Sprint(a.LoopingFrames), "last frames")
		}
		out.Actions = append(out.Actions, yamlAction{
			Name:              a.Name,
			Frames:            scalar(fmt.Sprintf("%d..%d", a.StartFrame, a.EndFrame), fmt.Sprintf("%d steps", a.NumFrames)),
			Loop:              loop,
			FrameTime:         scalar(fmt.Sprint(a.FrameTime), "ms"),
			AnimationDistance: a.AnimationDistance,
		})
	}

	for _, an := range s.Table.Animations {
		ya := yamlAnimation{Name: an.Name}
		for _, ba := range an.BlendActions {
			yb := yamlBlendAction{
				Action:   s.Table.Actions[ba.ActionIndex].Name,
				Fraction: ba.Fraction,
			}
			if ba.BoneNumber != 0 {
				yb.Bone = s.jointNode(ba.BoneNumber)
			}
			ya.BlendActions = append(ya.BlendActions, yb)
		}
		out.Animations = append(out.Animations, ya)
	}
	return out, nil
}
