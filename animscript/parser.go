package animscript

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/skeleton"
)

type Options struct {
	// Strict rejects unknown identifiers instead of skipping them.
	Strict bool
	Logger zerolog.Logger
}

// Script is the parsed content of an animation script.
type Script struct {
	RootJoint  int
	HeadJoint  int
	TorsoJoint int
	Table      *anim.Table

	data *skeleton.Data
}

// Data returns the skeleton the script was resolved against.
func (s *Script) Data() *skeleton.Data {
	return s.data
}

// scope is what the previous command leaves open for the next one.
type scope interface {
	isScope()
}

type fileScope struct{}

// animationScope is opened by an animation command and kept by the
// blendaction commands following it.
type animationScope struct {
	animation int
}

func (fileScope) isScope()      {}
func (animationScope) isScope() {}

// a handler receives its command token first and reports how many tokens it used
type handler func(p *parser, toks []Token) (int, scope, error)
type animationHandler func(p *parser, toks []Token, sc animationScope) (int, scope, error)

var handlers = map[string]handler{
	CMD_ROOTBONE:  boneHandler(func(s *Script) *int { return &s.RootJoint }),
	CMD_HEADBONE:  boneHandler(func(s *Script) *int { return &s.HeadJoint }),
	CMD_TORSOBONE: boneHandler(func(s *Script) *int { return &s.TorsoJoint }),
	CMD_ACTION:    (*parser).action,
	CMD_ANIMATION: (*parser).animation,
}

var animationHandlers = map[string]animationHandler{
	CMD_BLENDACTION: (*parser).blendAction,
}

type parser struct {
	opts   Options
	script *Script
	data   *skeleton.Data
}

// Parse runs text against the joints of data. Any error aborts the whole
// script; no partial result is returned.
func Parse(text []byte, data *skeleton.Data, opts Options) (*Script, error) {
	if data == nil {
		return nil, newError(0, 0, "no skeletal data")
	}
	toks, err := Tokenize(text, opts.Strict)
	if err != nil {
		return nil, err
	}

	p := &parser{
		opts: opts,
		data: data,
		script: &Script{
			RootJoint:  data.RootJoint,
			HeadJoint:  data.HeadJoint,
			TorsoJoint: data.TorsoJoint,
			Table:      anim.NewTable(),
			data:       data,
		},
	}

	var sc scope = fileScope{}
	for i := 0; i < len(toks); {
		tok := toks[i]
		switch tok.Type {
		case TOKEN_COMMAND:
		case TOKEN_UNKNOWN:
			n := 1
			for i+n < len(toks) && toks[i+n].Type != TOKEN_COMMAND {
				n++
			}
			opts.Logger.Warn().Str("pkg", "animscript").Int("line", tok.Line).
				Str("identifier", tok.Value).Int("skipped", n).
				Msg("skipping unknown command")
			i += n
			continue
		default:
			return nil, tokenError(tok, "expected command, got %s %q", tok.TypeName(), tok.Value)
		}

		var n int
		if h, ok := animationHandlers[tok.Value]; ok {
			as, ok := sc.(animationScope)
			if !ok {
				return nil, tokenError(tok, "%s outside of an animation", tok.Value)
			}
			n, sc, err = h(p, toks[i:], as)
		} else {
			n, sc, err = handlers[tok.Value](p, toks[i:])
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, tokenError(tok, "%s consumed no tokens", tok.Value)
		}
		i += n
	}

	opts.Logger.Debug().Str("pkg", "animscript").Str("model", data.Model.Name).
		Int("actions", len(p.script.Table.Actions)).
		Int("animations", len(p.script.Table.Animations)).
		Msg("script parsed")
	return p.script, nil
}

// arg returns argument i (1 based, after the command) if present and not
// a command.
func arg(toks []Token, i int) (Token, bool) {
	if i >= len(toks) || toks[i].Type == TOKEN_COMMAND {
		return Token{}, false
	}
	return toks[i], true
}

func need(toks []Token, i int, what string) (Token, error) {
	t, ok := arg(toks, i)
	if !ok {
		return Token{}, tokenError(toks[0], "%s: missing %s", toks[0].Value, what)
	}
	return t, nil
}

func (p *parser) stringArg(toks []Token, i int, what string) (string, error) {
	t, err := need(toks, i, what)
	if err != nil {
		return "", err
	}
	if t.Type != TOKEN_STRING {
		return "", tokenError(t, "%s: %s must be a string, got %s %q", toks[0].Value, what, t.TypeName(), t.Value)
	}
	return t.Value, nil
}

func (p *parser) intArg(toks []Token, i int, what string) (int, error) {
	t, err := need(toks, i, what)
	if err != nil {
		return 0, err
	}
	if t.Type != TOKEN_INTEGER {
		return 0, tokenError(t, "%s: %s must be an integer, got %s %q", toks[0].Value, what, t.TypeName(), t.Value)
	}
	v, err := strconv.Atoi(t.Value)
	if err != nil {
		return 0, tokenError(t, "%s: %s: %v", toks[0].Value, what, err)
	}
	return v, nil
}

// floatArg also accepts integers.
func (p *parser) floatArg(t Token, cmd, what string) (float32, error) {
	if t.Type != TOKEN_FLOAT && t.Type != TOKEN_INTEGER {
		return 0, tokenError(t, "%s: %s must be a number, got %s %q", cmd, what, t.TypeName(), t.Value)
	}
	v, err := strconv.ParseFloat(t.Value, 32)
	if err != nil {
		return 0, tokenError(t, "%s: %s: %v", cmd, what, err)
	}
	return float32(v), nil
}

func (p *parser) joint(t Token, cmd string) (int, error) {
	switch t.Type {
	case TOKEN_STRING, TOKEN_INTEGER:
	default:
		return 0, tokenError(t, "%s: bone must be a name or an index, got %s %q", cmd, t.TypeName(), t.Value)
	}
	if t.Type == TOKEN_STRING {
		if i, ok := p.data.JointByName(t.Value); ok {
			return i, nil
		}
		return 0, tokenError(t, "%s: unknown bone %q", cmd, t.Value)
	}
	i, err := strconv.Atoi(t.Value)
	if err != nil {
		return 0, tokenError(t, "%s: bone index: %v", cmd, err)
	}
	if err := p.data.CheckJoint(i); err != nil {
		return 0, tokenError(t, "%s: %v", cmd, err)
	}
	return i, nil
}

// rootbone|headbone|torsobone <string|int>
func boneHandler(field func(s *Script) *int) handler {
	return func(p *parser, toks []Token) (int, scope, error) {
		t, err := need(toks, 1, "bone")
		if err != nil {
			return 0, nil, err
		}
		idx, err := p.joint(t, toks[0].Value)
		if err != nil {
			return 0, nil, err
		}
		*field(p.script) = idx
		return 2, fileScope{}, nil
	}
}

// action <name> <start> <end> <loopCount> [frameTime]
func (p *parser) action(toks []Token) (int, scope, error) {
	cmd := toks[0]
	name, err := p.stringArg(toks, 1, "name")
	if err != nil {
		return 0, nil, err
	}
	start, err := p.intArg(toks, 2, "start frame")
	if err != nil {
		return 0, nil, err
	}
	end, err := p.intArg(toks, 3, "end frame")
	if err != nil {
		return 0, nil, err
	}
	loopCount, err := p.intArg(toks, 4, "loop count")
	if err != nil {
		return 0, nil, err
	}

	if start < 0 || end < start {
		return 0, nil, tokenError(cmd, "action %q: bad frame range %d..%d", name, start, end)
	}
	if nf := p.data.NumFrames(); nf > 0 && end >= nf {
		return 0, nil, tokenError(cmd, "action %q: end frame %d past the model's %d frames", name, end, nf)
	}

	a := anim.Action{
		Name:       name,
		StartFrame: start,
		EndFrame:   end,
		NumFrames:  end - start,
		FrameTime:  p.defaultFrameTime(start),
	}
	switch {
	case loopCount > 0:
		a.LoopingFrames = loopCount
	case loopCount < 0:
		a.ForceLoop = true
	}

	consumed := 5
	if t, ok := arg(toks, 5); ok && (t.Type == TOKEN_FLOAT || t.Type == TOKEN_INTEGER) {
		ft, err := p.floatArg(t, cmd.Value, "frame time")
		if err != nil {
			return 0, nil, err
		}
		if ft <= 0 {
			return 0, nil, tokenError(t, "action %q: frame time must be positive, got %v", name, ft)
		}
		a.FrameTime = ft
		consumed++
	}

	if p.script.RootJoint >= 0 && p.data.Model.HasFramePoses() {
		if err := anim.ComputeRootMotion(p.data, p.script.RootJoint, &a); err != nil {
			return 0, nil, tokenError(cmd, "action %q: %v", name, err)
		}
	}

	if _, err := p.script.Table.AddAction(a); err != nil {
		return 0, nil, tokenError(cmd, "%v", err)
	}
	return consumed, fileScope{}, nil
}

// defaultFrameTime takes the rate of the model clip containing frame.
func (p *parser) defaultFrameTime(frame int) float32 {
	if clip := p.data.Model.AnimForFrame(frame); clip != nil && clip.Framerate > 0 {
		return 1000 / clip.Framerate
	}
	return anim.DefaultFrameTime
}

// animation <name>
func (p *parser) animation(toks []Token) (int, scope, error) {
	name, err := p.stringArg(toks, 1, "name")
	if err != nil {
		return 0, nil, err
	}
	idx, err := p.script.Table.AddAnimation(name)
	if err != nil {
		return 0, nil, tokenError(toks[0], "%v", err)
	}
	return 2, animationScope{animation: idx}, nil
}

// blendaction <action> <fraction> [bone]
func (p *parser) blendAction(toks []Token, sc animationScope) (int, scope, error) {
	cmd := toks[0]
	name, err := p.stringArg(toks, 1, "action name")
	if err != nil {
		return 0, nil, err
	}
	actionIdx, ok := p.script.Table.ActionByName(name)
	if !ok {
		return 0, nil, tokenError(toks[1], "blendaction: unknown action %q", name)
	}
	ft, err := need(toks, 2, "fraction")
	if err != nil {
		return 0, nil, err
	}
	fraction, err := p.floatArg(ft, cmd.Value, "fraction")
	if err != nil {
		return 0, nil, err
	}
	if fraction < 0 || fraction > 1 {
		return 0, nil, tokenError(ft, "blendaction: fraction %v out of [0,1]", fraction)
	}

	b := anim.BlendAction{ActionIndex: actionIdx, Fraction: fraction}
	consumed := 3
	if t, ok := arg(toks, 3); ok && t.Type == TOKEN_STRING {
		if b.BoneNumber, err = p.joint(t, cmd.Value); err != nil {
			return 0, nil, err
		}
		consumed++
	}

	if err := p.script.Table.AddBlendAction(sc.animation, b); err != nil {
		return 0, nil, tokenError(cmd, "%v", err)
	}
	return consumed, sc, nil
}
