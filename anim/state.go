package anim

import (
	"math"

	"github.com/mogaika/skelanim/errkind"
)

const (
	// NoSwitch is returned by SwitchAnimation when nothing could be switched to.
	NoSwitch = -1
	// Finished marks State.Frame once a non looping action has played through.
	Finished = -1
)

// Sample is the frame pair an action shows at some point in time.
// The pose is Frame blended towards OldFrame by BackLerp.
type Sample struct {
	Frame    int
	OldFrame int
	BackLerp float32
	Finished bool
}

// SampleRange positions a playback of start..end elapsed milliseconds after
// it started.
func SampleRange(start, end int, frameTime float32, loopingFrames int, forceLoop bool, elapsed float32) Sample {
	if frameTime <= 0 {
		frameTime = DefaultFrameTime
	}
	if elapsed < 0 {
		elapsed = 0
	}
	n := end - start
	pos := float64(elapsed / frameTime)

	if n <= 0 {
		return Sample{
			Frame:    start,
			OldFrame: start,
			Finished: !forceLoop && loopingFrames <= 0 && pos >= 1,
		}
	}

	switch {
	case forceLoop:
		pos = math.Mod(pos, float64(n))
	case pos >= float64(n) && loopingFrames > 0:
		l := loopingFrames
		if l > n {
			l = n
		}
		loopStart := float64(n - l)
		pos = loopStart + math.Mod(pos-loopStart, float64(l))
	case pos >= float64(n):
		return Sample{Frame: end, OldFrame: end, Finished: true}
	}

	whole := math.Floor(pos)
	old := start + int(whole)
	return Sample{
		Frame:    old + 1,
		OldFrame: old,
		BackLerp: float32(1 - (pos - whole)),
	}
}

func (a *Action) Sample(elapsed float32) Sample {
	return SampleRange(a.StartFrame, a.EndFrame, a.FrameTime, a.LoopingFrames, a.ForceLoop, elapsed)
}

// State is the playback state of one entity. Times are milliseconds.
type State struct {
	AnimationIndex int
	Frame          int
	OldFrame       int
	StartTime      int64
	StartFrame     int
	EndFrame       int
	FrameTime      float32
	LoopCount      int
	ForceLoop      bool
	BackLerp       float32
}

func NewState() State {
	return State{AnimationIndex: NoSwitch}
}

// SwitchAnimation starts the animation called name at now. Switching to the
// animation already playing changes nothing.
func SwitchAnimation(t *Table, s *State, name string, now int64) (int, error) {
	idx, ok := t.AnimationByName(name)
	if !ok {
		return NoSwitch, errkind.New(errkind.Lookup, "unknown animation %q", name)
	}
	if idx == s.AnimationIndex {
		return idx, nil
	}
	a := t.Dominant(idx)
	if a == nil {
		return NoSwitch, errkind.New(errkind.Lookup, "animation %q has no blend actions", name)
	}

	*s = State{
		AnimationIndex: idx,
		Frame:          a.StartFrame,
		OldFrame:       a.StartFrame,
		StartTime:      now,
		StartFrame:     a.StartFrame,
		EndFrame:       a.EndFrame,
		FrameTime:      a.FrameTime,
		LoopCount:      a.LoopingFrames,
		ForceLoop:      a.ForceLoop,
	}
	return idx, nil
}

// Elapsed returns milliseconds since the current animation started.
func (s *State) Elapsed(now int64) float32 {
	return float32(now - s.StartTime)
}

// AdvanceFrame moves s to the frames shown at now. A finished state stays
// finished until the next switch.
func AdvanceFrame(s *State, now int64) {
	if s.AnimationIndex < 0 || s.Frame == Finished {
		return
	}
	sm := SampleRange(s.StartFrame, s.EndFrame, s.FrameTime, s.LoopCount, s.ForceLoop, s.Elapsed(now))
	if sm.Finished {
		s.Frame = Finished
		s.OldFrame = s.EndFrame
		s.BackLerp = 0
		return
	}
	s.Frame, s.OldFrame, s.BackLerp = sm.Frame, sm.OldFrame, sm.BackLerp
}

func (s *State) IsFinished() bool {
	return s.AnimationIndex >= 0 && s.Frame == Finished
}

// PoseFrames returns the frames to pose with; a finished action holds its
// last frame.
func (s *State) PoseFrames() (current, old int, backlerp float32) {
	if s.Frame == Finished {
		return s.EndFrame, s.EndFrame, 0
	}
	return s.Frame, s.OldFrame, s.BackLerp
}
