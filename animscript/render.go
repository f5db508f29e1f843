package animscript

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Render writes s back as script text that parses to the same tables.
func Render(w io.Writer, s *Script) error {
	var b bytes.Buffer

	bone := func(cmd string, joint int) {
		if joint >= 0 {
			fmt.Fprintf(&b, "%s %q\n", cmd, s.data.Joints[joint].Name)
		}
	}
	bone(CMD_ROOTBONE, s.RootJoint)
	bone(CMD_HEADBONE, s.HeadJoint)
	bone(CMD_TORSOBONE, s.TorsoJoint)

	for _, a := range s.Table.Actions {
		loop := a.LoopingFrames
		if a.ForceLoop {
			loop = -1
		}
		fmt.Fprintf(&b, "%s %q %d %d %d %s\n", CMD_ACTION, a.Name, a.StartFrame, a.EndFrame, loop, formatFloat(a.FrameTime))
	}

	for _, an := range s.Table.Animations {
		fmt.Fprintf(&b, "\n%s %q\n", CMD_ANIMATION, an.Name)
		for _, ba := range an.BlendActions {
			fmt.Fprintf(&b, "%s %q %s", CMD_BLENDACTION, s.Table.Actions[ba.ActionIndex].Name, formatFloat(ba.Fraction))
			if ba.BoneNumber != 0 {
				fmt.Fprintf(&b, " %q", s.data.Joints[ba.BoneNumber].Name)
			}
			b.WriteByte('\n')
		}
	}

	_, err := w.Write(b.Bytes())
	return err
}

// RenderString is Render into a string.
func RenderString(s *Script) string {
	var sb strings.Builder
	_ = Render(&sb, s)
	return sb.String()
}

// formatFloat always keeps a decimal point so the value scans as a float.
func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
