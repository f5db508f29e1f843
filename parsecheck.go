package main

import (
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/skeleton"
	"github.com/mogaika/skelanim/store"
	"github.com/mogaika/skelanim/vfs"
)

// parseCheck loads every model of rootfs one by one and logs what is wrong
// with it. Returns the number of broken models.
func parseCheck(s *store.Store, rootfs vfs.Directory) int {
	list, err := rootfs.List()
	if err != nil {
		log.Fatal().Err(err).Msg("list")
	}

	broken := 0
	for _, fname := range list {
		if !strings.EqualFold(path.Ext(fname), store.ModelExt) {
			continue
		}
		name := strings.TrimSuffix(fname, path.Ext(fname))

		m, err := s.LoadFromDirectory(rootfs, name)
		if err != nil {
			log.Error().Str("model", name).Str("kind", errkind.Of(err).String()).Err(err).Msg("broken model")
			broken++
			continue
		}
		if m.ScriptError != nil {
			log.Error().Str("model", name).Err(m.ScriptError).Msg("broken script")
			broken++
			continue
		}
		if m.Data.NumJoints() > 0 {
			if _, err := skeleton.BuildTree(m.Data); err != nil {
				log.Error().Str("model", name).Err(err).Msg("broken hierarchy")
				broken++
				continue
			}
		}

		for i, a := range m.Table.Actions {
			for j := range m.Table.Actions[:i] {
				if m.Table.Actions[j].StartFrame == a.StartFrame && m.Table.Actions[j].EndFrame == a.EndFrame {
					log.Warn().Str("model", name).
						Str("action", a.Name).Str("same", m.Table.Actions[j].Name).
						Msg("actions share a frame range")
					break
				}
			}
		}
		log.Info().Str("model", name).Msg("ok")
	}
	return broken
}
