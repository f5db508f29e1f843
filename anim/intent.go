package anim

import "fmt"

type IntentKind int

const (
	IntentKeep   IntentKind = iota // let the current animation run
	IntentSwitch                   // start Intent.Animation
	IntentHold                     // stay on the last frame
)

func (k IntentKind) String() string {
	switch k {
	case IntentKeep:
		return "keep"
	case IntentSwitch:
		return "switch"
	case IntentHold:
		return "hold"
	}
	return fmt.Sprintf("intent(%d)", int(k))
}

type Intent struct {
	Kind      IntentKind
	Animation string
}

func (i Intent) String() string {
	if i.Kind == IntentSwitch {
		return fmt.Sprintf("switch(%s)", i.Animation)
	}
	return i.Kind.String()
}

// Situation is what an entity knows when choosing its next animation.
type Situation struct {
	Current   string
	Finished  bool
	Requested string // empty when nothing is asked for
	Locked    bool   // the current animation must play through before a requested switch
	Fallback  string // played once a non looping animation finishes
}

// DecideNextAnimation picks what an entity should do next. It has no side
// effects.
func DecideNextAnimation(s Situation) Intent {
	wants := s.Requested != "" && s.Requested != s.Current
	if s.Finished {
		switch {
		case wants:
			return Intent{Kind: IntentSwitch, Animation: s.Requested}
		case s.Fallback != "" && s.Fallback != s.Current:
			return Intent{Kind: IntentSwitch, Animation: s.Fallback}
		}
		return Intent{Kind: IntentHold}
	}
	if wants && !s.Locked {
		return Intent{Kind: IntentSwitch, Animation: s.Requested}
	}
	return Intent{Kind: IntentKeep}
}
