// Package store owns the loaded models and creates the entities animating
// them.
package store

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"

	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/animscript"
	"github.com/mogaika/skelanim/config"
	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/iqm"
	"github.com/mogaika/skelanim/pose"
	"github.com/mogaika/skelanim/skeleton"
	"github.com/mogaika/skelanim/utils"
	"github.com/mogaika/skelanim/vfs"
)

const (
	ModelExt  = ".iqm"
	ScriptExt = ".anim"
)

// Model is everything shared by the entities of one model. It is not
// modified after LoadModel returns.
type Model struct {
	Name   string
	Raw    *iqm.Model
	Data   *skeleton.Data
	Table  *anim.Table
	Script *animscript.Script // nil without a usable script

	// why the script was dropped, if it was
	ScriptError error
}

type Store struct {
	cfg config.Config
	log zerolog.Logger
	enc encoding.Encoding

	mu     sync.RWMutex
	models map[string]*Model

	names utils.RandomNameGenerator
}

func New(cfg config.Config, log zerolog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := cfg.NameEncoding()
	if err != nil {
		return nil, err
	}
	return &Store{
		cfg:    cfg,
		log:    log.With().Str("pkg", "store").Logger(),
		enc:    enc,
		models: make(map[string]*Model),
	}, nil
}

func (s *Store) Config() config.Config {
	return s.cfg
}

// LoadModel validates iqmData and registers it under name, replacing any
// model of the same name. A broken script is logged and the model is kept
// without animations; script may be nil.
func (s *Store) LoadModel(name string, iqmData, script []byte) (*Model, error) {
	raw, err := iqm.Load(iqmData, name,
		iqm.WithMaxJoints(s.cfg.MaxJoints),
		iqm.WithEncoding(s.enc),
		iqm.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	data, err := skeleton.NewData(raw, s.cfg.MaxJoints)
	if err != nil {
		return nil, err
	}

	if s.cfg.DefaultRootBone != "" {
		if idx, err := data.ResolveJoint(s.cfg.DefaultRootBone); err != nil {
			s.log.Warn().Str("model", name).Err(err).Msg("default root bone not found")
		} else {
			data.RootJoint = idx
		}
	}

	m := &Model{Name: name, Raw: raw, Data: data, Table: anim.NewTable()}
	if script != nil {
		sc, err := animscript.Parse(script, data, animscript.Options{
			Strict: s.cfg.StrictScript,
			Logger: s.log.With().Str("model", name).Logger(),
		})
		if err != nil {
			s.log.Error().Str("model", name).Err(err).Msg("script dropped")
			m.ScriptError = err
		} else {
			m.Script = sc
			m.Table = sc.Table
			data.RootJoint, data.HeadJoint, data.TorsoJoint = sc.RootJoint, sc.HeadJoint, sc.TorsoJoint
		}
	}
	if data.RootJoint == skeleton.NoJoint {
		data.RootJoint = data.FirstRoot()
	}

	s.mu.Lock()
	s.models[name] = m
	s.mu.Unlock()

	s.log.Info().Str("model", name).
		Int("joints", data.NumJoints()).
		Int("frames", data.NumFrames()).
		Int("actions", len(m.Table.Actions)).
		Int("animations", len(m.Table.Animations)).
		Msg("model loaded")
	return m, nil
}

// LoadFromDirectory reads <name>.iqm and, when present, <name>.anim from d.
func (s *Store) LoadFromDirectory(d vfs.Directory, name string) (*Model, error) {
	iqmData, err := vfs.ReadFile(d, name+ModelExt)
	if err != nil {
		return nil, err
	}
	script, err := vfs.ReadFile(d, name+ScriptExt)
	if err != nil {
		if !errors.Is(err, vfs.ErrNotExist) {
			return nil, err
		}
		script = nil
	}
	return s.LoadModel(name, iqmData, script)
}

// LoadDirectory loads every model in d. Models failing to load are logged
// and skipped; the number loaded is returned.
func (s *Store) LoadDirectory(d vfs.Directory) (int, error) {
	names, err := d.List()
	if err != nil {
		return 0, err
	}
	sort.Strings(names)
	loaded := 0
	for _, fname := range names {
		if !strings.EqualFold(path.Ext(fname), ModelExt) {
			continue
		}
		name := strings.TrimSuffix(fname, path.Ext(fname))
		if _, err := s.LoadFromDirectory(d, name); err != nil {
			s.log.Error().Str("file", fname).Err(err).Msg("model skipped")
			continue
		}
		loaded++
	}
	return loaded, nil
}

func (s *Store) Model(name string) (*Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[name]
	return m, ok
}

// Models returns the sorted names of every loaded model.
func (s *Store) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.models))
	for name := range s.models {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// NewCache returns a pose cache sized by the configuration. Each goroutine
// posing entities needs its own.
func (s *Store) NewCache() *pose.Cache {
	c := s.cfg.Cache
	return pose.NewCache(c.MaxJointsPerPose, c.MaxTotal, c.GrowStep)
}

func (s *Store) NewEntity(model string) (*Entity, error) {
	m, ok := s.Model(model)
	if !ok {
		return nil, errkind.New(errkind.Lookup, "unknown model %q", model)
	}
	name := s.names.RandomName()
	e := &Entity{
		Name:         name,
		log:          s.log.With().Str("model", model).Str("entity", name).Logger(),
		unitScale:    s.cfg.UnitScale,
		rootAxisMask: s.cfg.RootAxisMask,
	}
	if err := e.SetModel(m); err != nil {
		return nil, err
	}
	return e, nil
}
