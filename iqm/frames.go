package iqm

import (
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/skelanim/utils"
)

func (l *loader) readFrames() error {
	h := &l.hdr
	if h.NumFrames == 0 {
		return nil
	}
	if h.NumPoses == 0 {
		return l.fail(CodeNoPoses, "%d frames", h.NumFrames)
	}

	used := uint32(0)
	for _, p := range l.m.Poses {
		used += uint32(bits.OnesCount32(p.Mask & (1<<PoseChannels - 1)))
	}
	if used > h.NumFrameChannels {
		return l.fail(CodeFrameChannels, "poses use %d channels, frame has %d", used, h.NumFrameChannels)
	}

	if h.NumFrameChannels == 0 {
		// every channel is constant, nothing is stored
		l.decodeFrames(nil)
		return nil
	}
	frameSize := uint64(h.NumFrameChannels) * 2
	if frameSize > uint64(h.FileSize) {
		return l.fail(CodeFrameRange, "frame of %d channels", h.NumFrameChannels)
	}
	bs, err := l.section("frames", CodeFrameRange, h.NumFrames, h.OfsFrames, uint32(frameSize))
	if err != nil {
		return err
	}
	l.decodeFrames(bs)
	return nil
}

// decodeFrames expands every stored frame into one Transform per pose.
// bs is nil when no channel is animated.
func (l *loader) decodeFrames(bs *utils.BufStack) {
	numFrames := int(l.hdr.NumFrames)
	numPoses := len(l.m.Poses)
	l.m.NumFrames = numFrames
	l.m.FramePoses = make([]Transform, numFrames*numPoses)

	for f := 0; f < numFrames; f++ {
		if bs != nil {
			bs = l.frameBuf(bs, f)
		}
		for i := range l.m.Poses {
			l.m.FramePoses[f*numPoses+i] = decodePose(&l.m.Poses[i], bs)
		}
	}
}

// frameBuf positions the cursor at the start of frame f; trailing unused
// channels of the previous frame are skipped.
func (l *loader) frameBuf(bs *utils.BufStack, f int) *utils.BufStack {
	bs.Skip(f*int(l.hdr.NumFrameChannels)*2 - bs.Pos())
	return bs
}

func decodePose(p *Pose, bs *utils.BufStack) Transform {
	var ch [PoseChannels]float32
	for c := 0; c < PoseChannels; c++ {
		ch[c] = p.ChannelOffset[c]
		if p.Mask&(1<<uint(c)) != 0 {
			ch[c] += float32(bs.ReadLU16()) * p.ChannelScale[c]
		}
	}
	return Transform{
		Translate: mgl32.Vec3{ch[0], ch[1], ch[2]},
		Rotate:    utils.NormalizeQuat(mgl32.Quat{W: ch[6], V: mgl32.Vec3{ch[3], ch[4], ch[5]}}),
		Scale:     mgl32.Vec3{ch[7], ch[8], ch[9]},
	}
}
